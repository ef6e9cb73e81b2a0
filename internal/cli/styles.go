// Package cli implements the interactive terminal commands: the chat
// REPL, workspace init, and the health and tool listings.
package cli

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor = lipgloss.Color("#06B6D4") // cyan
	mutedColor   = lipgloss.Color("#6B7280") // gray
	successColor = lipgloss.Color("#10B981") // green
	errorColor   = lipgloss.Color("#EF4444") // red
	warnColor    = lipgloss.Color("#F59E0B") // amber

	bannerStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	promptStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	agentStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	toolStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	headingStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Underline(true)
)

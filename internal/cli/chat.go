package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sigitp-git/core-network-devops-agent/internal/agent"
	"github.com/sigitp-git/core-network-devops-agent/internal/memory"
)

// Agent is the surface the REPL drives.
type Agent interface {
	Process(ctx context.Context, input string) (*agent.Response, error)
	HealthCheck(ctx context.Context) map[string]any
	Memory() *memory.Conversation
}

const banner = `
 ┌─────────────────────────────────────────────┐
 │  Core Network DevOps Agent                  │
 │  5G/LTE core operations on AWS + K8s        │
 └─────────────────────────────────────────────┘
`

// Chat runs the interactive REPL until EOF or an exit command.
func Chat(ctx context.Context, ag Agent, in io.Reader, out io.Writer, version string) int {
	fmt.Fprint(out, bannerStyle.Render(banner))
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("  v%s - type 'help' for commands, 'exit' to quit", version)))
	fmt.Fprintln(out)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, promptStyle.Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return 0
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case "exit", "quit":
			fmt.Fprintln(out, mutedStyle.Render("bye"))
			return 0
		case "help":
			printHelp(out)
			continue
		case "status":
			printStatus(ctx, ag, out)
			continue
		case "history":
			printHistory(ag, out)
			continue
		case "clear":
			ag.Memory().Clear()
			fmt.Fprintln(out, mutedStyle.Render("conversation cleared"))
			continue
		}

		resp, err := ag.Process(ctx, line)
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("error: "+err.Error()))
			continue
		}
		printResponse(resp, out)
	}
}

func printResponse(resp *agent.Response, out io.Writer) {
	if len(resp.ToolsUsed) > 0 {
		fmt.Fprintln(out, toolStyle.Render("  [tools: "+strings.Join(resp.ToolsUsed, ", ")+"]"))
	}
	prefix := agentStyle.Render("agent> ")
	if !resp.Success {
		prefix = errorStyle.Render("agent> ")
	}
	fmt.Fprintln(out, prefix+resp.Message)
	fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("  (%.1fs, %s)", resp.Elapsed, resp.Model)))
	fmt.Fprintln(out)
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, headingStyle.Render("Commands"))
	rows := [][2]string{
		{"help", "show this help"},
		{"status", "agent and tool backend health"},
		{"history", "recent conversation turns"},
		{"clear", "forget the conversation"},
		{"exit", "leave the chat"},
	}
	for _, row := range rows {
		fmt.Fprintf(out, "  %-10s %s\n", row[0], mutedStyle.Render(row[1]))
	}
	fmt.Fprintln(out, mutedStyle.Render("  anything else is sent to the agent"))
	fmt.Fprintln(out)
}

func printStatus(ctx context.Context, ag Agent, out io.Writer) {
	report := ag.HealthCheck(ctx)

	status, _ := report["status"].(string)
	style := agentStyle
	if status != "healthy" {
		style = errorStyle
	}
	fmt.Fprintln(out, headingStyle.Render("Status"))
	fmt.Fprintf(out, "  overall: %s\n", style.Render(status))
	fmt.Fprintf(out, "  tools:   %v/%v healthy\n", report["tools_healthy"], report["tools_total"])
	fmt.Fprintf(out, "  memory:  %v messages\n", report["memory_messages"])

	if tools, ok := report["tools"].(map[string]map[string]any); ok {
		for name, probe := range tools {
			mark := agentStyle.Render("ok")
			if probe["status"] != "healthy" {
				mark = errorStyle.Render(fmt.Sprint(probe["error"]))
			}
			fmt.Fprintf(out, "    %-26s %s\n", name, mark)
		}
	}
	fmt.Fprintln(out)
}

func printHistory(ag Agent, out io.Writer) {
	msgs := ag.Memory().Recent(10)
	if len(msgs) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no conversation yet"))
		return
	}
	fmt.Fprintln(out, headingStyle.Render("History"))
	for _, m := range msgs {
		if m.Role == memory.RoleTool {
			continue
		}
		role := promptStyle.Render(string(m.Role))
		if m.Role == memory.RoleAssistant {
			role = agentStyle.Render(string(m.Role))
		}
		content := m.Content
		if len(content) > 100 {
			content = content[:100] + "…"
		}
		fmt.Fprintf(out, "  %s %s\n", role, content)
	}
	fmt.Fprintln(out)
}

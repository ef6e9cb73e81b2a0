// Package models routes chat requests to LLM providers: Bedrock,
// Anthropic-compatible endpoints, and local Ollama. All providers speak a
// common request shape that carries tool schemas and tool results.
package models

import (
	"context"

	"github.com/sigitp-git/core-network-devops-agent/internal/config"
)

// ToolCall is a model's request to run one tool.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolReturn feeds one tool outcome back to the model.
type ToolReturn struct {
	CallID  string `json:"call_id"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Message is one conversation turn as providers see it. Assistant turns
// may carry tool calls; user turns may carry tool returns.
type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolReturns []ToolReturn `json:"tool_returns,omitempty"`
}

// ToolSchema describes one tool in the shape providers expect.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ChatRequest is a provider-independent chat completion request.
type ChatRequest struct {
	Model        string       `json:"model"`
	SystemPrompt string       `json:"system_prompt,omitempty"`
	Messages     []Message    `json:"messages"`
	Tools        []ToolSchema `json:"tools,omitempty"`
	MaxTokens    int          `json:"max_tokens,omitempty"`
	Temperature  float64      `json:"temperature,omitempty"`
}

// ChatResponse is a provider-independent completion. A response may carry
// text, tool calls, or both.
type ChatResponse struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	Model        string     `json:"model"`
	TokensInput  int        `json:"tokens_input"`
	TokensOutput int        `json:"tokens_output"`
	FinishReason string     `json:"finish_reason"`
}

// WantsTools reports whether the model asked for tool execution.
func (r *ChatResponse) WantsTools() bool {
	return len(r.ToolCalls) > 0
}

// Provider is a chat backend serving one or more models.
type Provider interface {
	Name() string
	Models() []config.Model
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

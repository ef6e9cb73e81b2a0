// Package agent runs the orchestration loop: it carries conversation
// state, asks the model what to do, fans tool calls out to the executor,
// and feeds results back until the model produces a final answer.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sigitp-git/core-network-devops-agent/internal/audit"
	"github.com/sigitp-git/core-network-devops-agent/internal/config"
	"github.com/sigitp-git/core-network-devops-agent/internal/memory"
	"github.com/sigitp-git/core-network-devops-agent/internal/models"
	"github.com/sigitp-git/core-network-devops-agent/internal/tool"
)

// AuditSink receives a record of every tool invocation the agent runs.
type AuditSink interface {
	Record(ctx context.Context, inv audit.Invocation)
}

// ChatRouter is the slice of the model router the agent needs.
type ChatRouter interface {
	Chat(ctx context.Context, modelID string, req models.ChatRequest, fallback []string) (*models.ChatResponse, error)
}

// Response is the agent's answer to one user message.
type Response struct {
	ID          string        `json:"id"`
	Message     string        `json:"message"`
	Success     bool          `json:"success"`
	ToolsUsed   []string      `json:"tools_used,omitempty"`
	ToolResults []tool.Result `json:"tool_results,omitempty"`
	Model       string        `json:"model,omitempty"`
	Tokens      TokenUsage    `json:"tokens"`
	Elapsed     float64       `json:"elapsed_seconds"`
	Timestamp   time.Time     `json:"timestamp"`
}

// TokenUsage is the model token traffic for one response.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Metrics tracks per-request loop behavior.
type Metrics struct {
	Iterations      int
	ToolCalls       int
	SuccessCount    int
	ErrorCount      int
	ParallelBatches int
	MaxConcurrency  int
}

// Agent orchestrates one conversation against a model and a tool set.
type Agent struct {
	cfg      config.AgentConfig
	router   ChatRouter
	registry *tool.Registry
	executor *tool.Executor
	memory   *memory.Conversation
	audit    AuditSink
	logger   *slog.Logger
}

// Option customizes an Agent.
type Option func(*Agent)

// WithAudit attaches an invocation audit sink.
func WithAudit(sink AuditSink) Option {
	return func(a *Agent) { a.audit = sink }
}

// New builds an agent over a router, registry, executor, and memory.
func New(cfg config.AgentConfig, router ChatRouter, registry *tool.Registry, executor *tool.Executor, mem *memory.Conversation, logger *slog.Logger, opts ...Option) *Agent {
	if cfg.MaxToolIterations <= 0 {
		cfg.MaxToolIterations = 5
	}
	if cfg.MaxConcurrentTools <= 0 {
		cfg.MaxConcurrentTools = 5
	}
	a := &Agent{
		cfg:      cfg,
		router:   router,
		registry: registry,
		executor: executor,
		memory:   mem,
		logger:   logger.With("component", "agent", "agent", cfg.Name),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Registry exposes the agent's tool registry.
func (a *Agent) Registry() *tool.Registry { return a.registry }

// Memory exposes the agent's conversation window.
func (a *Agent) Memory() *memory.Conversation { return a.memory }

// Process answers one user message. The model may call tools across
// several iterations; tool failures are folded into the transcript so the
// model can react, never raised as process errors. The returned Response
// reports Success=false only when the model itself failed or every
// dispatched tool in the request failed.
func (a *Agent) Process(ctx context.Context, input string) (*Response, error) {
	start := time.Now()
	metrics := &Metrics{}

	a.memory.Add(memory.RoleUser, input, nil)

	msgs := a.historyMessages()
	toolSchemas := a.toolSchemas()

	var (
		finalContent string
		toolsUsed    []string
		toolResults  []tool.Result
		tokens       TokenUsage
		modelUsed    string
		anySuccess   bool
		needsSummary bool
	)

	for iteration := 0; iteration < a.cfg.MaxToolIterations; iteration++ {
		metrics.Iterations++

		resp, err := a.callModel(ctx, msgs, toolSchemas)
		if err != nil {
			a.logger.Error("model call failed", "iteration", iteration, "error", err)
			return a.failedResponse(start, fmt.Sprintf("model error: %v", err)), nil
		}
		tokens.Input += resp.TokensInput
		tokens.Output += resp.TokensOutput
		modelUsed = resp.Model

		assistant := models.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		}
		msgs = append(msgs, assistant)

		if !resp.WantsTools() {
			finalContent = resp.Content
			a.logger.Info("request complete", "iterations", iteration+1, "tool_calls", metrics.ToolCalls)
			break
		}

		batch := a.executeBatch(ctx, resp.ToolCalls, metrics)

		returns := make([]models.ToolReturn, 0, len(batch))
		outcomes := make(map[string]any, len(batch))
		for i, res := range batch {
			toolsUsed = append(toolsUsed, resp.ToolCalls[i].Name)
			toolResults = append(toolResults, res)
			if res.Success {
				anySuccess = true
			}
			returns = append(returns, models.ToolReturn{
				CallID:  resp.ToolCalls[i].ID,
				Content: formatResult(res),
				IsError: !res.Success,
			})
			outcome := map[string]any{"success": res.Success}
			if res.Error != "" {
				outcome["error"] = res.Error
			}
			outcomes[resp.ToolCalls[i].Name] = outcome
		}
		a.memory.AddToolResults(outcomes)
		msgs = append(msgs, models.Message{Role: "user", ToolReturns: returns})

		if iteration == a.cfg.MaxToolIterations-1 {
			needsSummary = true
		}
	}

	// The loop ended on tool results: one more call turns them into prose.
	if needsSummary || finalContent == "" {
		a.logger.Info("making summary model call", "max_iterations", needsSummary)
		resp, err := a.callModel(ctx, msgs, toolSchemas)
		if err != nil {
			return a.failedResponse(start, fmt.Sprintf("model error: %v", err)), nil
		}
		tokens.Input += resp.TokensInput
		tokens.Output += resp.TokensOutput
		finalContent = resp.Content
	}

	success := len(toolResults) == 0 || anySuccess

	a.memory.Add(memory.RoleAssistant, finalContent, map[string]any{
		"tools_used": toolsUsed,
		"success":    success,
	})

	return &Response{
		ID:          uuid.NewString(),
		Message:     finalContent,
		Success:     success,
		ToolsUsed:   toolsUsed,
		ToolResults: toolResults,
		Model:       modelUsed,
		Tokens:      tokens,
		Elapsed:     time.Since(start).Seconds(),
		Timestamp:   time.Now().UTC(),
	}, nil
}

// executeBatch fans a batch of tool calls out to the executor and returns
// results in call order. A single call takes the fast path without
// goroutine overhead. Failures stay in the results; nothing propagates as
// an error, so one bad tool never cancels its siblings.
func (a *Agent) executeBatch(ctx context.Context, calls []models.ToolCall, metrics *Metrics) []tool.Result {
	results := make([]tool.Result, len(calls))

	if len(calls) == 1 {
		results[0] = a.runTool(ctx, calls[0])
		a.tallyBatch(metrics, results, 1)
		return results
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.MaxConcurrentTools)

	for i, call := range calls {
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				results[i] = tool.Failf(gCtx.Err())
				return nil
			default:
			}
			// Unique index per goroutine, no mutex needed.
			results[i] = a.runTool(gCtx, call)
			return nil
		})
	}
	g.Wait()

	metrics.ParallelBatches++
	if len(calls) > metrics.MaxConcurrency {
		metrics.MaxConcurrency = len(calls)
	}
	a.tallyBatch(metrics, results, len(calls))
	return results
}

func (a *Agent) tallyBatch(metrics *Metrics, results []tool.Result, n int) {
	metrics.ToolCalls += n
	for _, r := range results[:n] {
		if r.Success {
			metrics.SuccessCount++
		} else {
			metrics.ErrorCount++
		}
	}
}

func (a *Agent) runTool(ctx context.Context, call models.ToolCall) tool.Result {
	res := a.executor.Execute(ctx, call.Name, call.Arguments)

	if a.audit != nil {
		args, _ := json.Marshal(call.Arguments)
		a.audit.Record(ctx, audit.Invocation{
			Tool:      call.Name,
			Arguments: string(args),
			Success:   res.Success,
			Error:     res.Error,
			ElapsedMs: int64(res.ExecutionTime * 1000),
		})
	}
	return res
}

// UpdateContext shallow-merges operational context carried across turns.
// It is surfaced to the model on every call alongside the system prompt.
func (a *Agent) UpdateContext(patch map[string]any) {
	a.memory.UpdateContext(patch)
}

// systemPrompt appends the conversation context, when present, to the
// configured prompt so the model sees facts accumulated across turns.
func (a *Agent) systemPrompt() string {
	cctx := a.memory.Context()
	if len(cctx) == 0 {
		return a.cfg.SystemPrompt
	}
	data, err := json.Marshal(cctx)
	if err != nil {
		return a.cfg.SystemPrompt
	}
	return a.cfg.SystemPrompt + "\n\nOperational context: " + string(data)
}

func (a *Agent) callModel(ctx context.Context, msgs []models.Message, tools []models.ToolSchema) (*models.ChatResponse, error) {
	req := models.ChatRequest{
		SystemPrompt: a.systemPrompt(),
		Messages:     msgs,
		Tools:        tools,
		MaxTokens:    a.cfg.MaxTokens,
	}
	return a.router.Chat(ctx, a.cfg.Model, req, a.cfg.FallbackModels)
}

// historyMessages converts the retained conversation into provider
// messages. The newest user turn is already in memory when Process runs.
func (a *Agent) historyMessages() []models.Message {
	exchanges := a.memory.Exchanges()
	msgs := make([]models.Message, 0, len(exchanges))
	for _, ex := range exchanges {
		msgs = append(msgs, models.Message{Role: ex.Role, Content: ex.Content})
	}
	return msgs
}

func (a *Agent) toolSchemas() []models.ToolSchema {
	specs := a.registry.Specs()
	out := make([]models.ToolSchema, 0, len(specs))
	for _, s := range specs {
		out = append(out, models.ToolSchema{
			Name:        s.Name,
			Description: s.Description,
			InputSchema: s.Schema(),
		})
	}
	return out
}

func (a *Agent) failedResponse(start time.Time, msg string) *Response {
	return &Response{
		ID:        uuid.NewString(),
		Message:   msg,
		Success:   false,
		Elapsed:   time.Since(start).Seconds(),
		Timestamp: time.Now().UTC(),
	}
}

// formatResult renders a tool result for the model: data as JSON on
// success, the error string otherwise.
func formatResult(res tool.Result) string {
	if !res.Success {
		return fmt.Sprintf("Error: %s", res.Error)
	}
	if len(res.Data) == 0 {
		return "{}"
	}
	data, err := json.Marshal(res.Data)
	if err != nil {
		return fmt.Sprintf("unserializable result: %v", err)
	}
	return string(data)
}

// HealthCheck reports agent and tool health. It never returns an error:
// failing probes appear as unhealthy entries in the report.
func (a *Agent) HealthCheck(ctx context.Context) map[string]any {
	toolHealth := a.registry.HealthCheckAll(ctx)

	healthy := 0
	for _, status := range toolHealth {
		if s, _ := status["status"].(string); s == "healthy" {
			healthy++
		}
	}

	overall := "healthy"
	if healthy < len(toolHealth) {
		overall = "degraded"
	}

	return map[string]any{
		"agent":           a.cfg.Name,
		"status":          overall,
		"model":           a.cfg.Model,
		"tools_total":     len(toolHealth),
		"tools_healthy":   healthy,
		"tools":           toolHealth,
		"memory_messages": a.memory.Len(),
		"memory":          a.memory.Stats(),
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	}
}

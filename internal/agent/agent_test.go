package agent

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sigitp-git/core-network-devops-agent/internal/config"
	"github.com/sigitp-git/core-network-devops-agent/internal/memory"
	"github.com/sigitp-git/core-network-devops-agent/internal/models"
	"github.com/sigitp-git/core-network-devops-agent/internal/tool"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// scriptedRouter returns canned responses in sequence and records the
// requests it saw.
type scriptedRouter struct {
	mu       sync.Mutex
	script   []*models.ChatResponse
	errs     []error
	requests []models.ChatRequest
	calls    int
}

func (r *scriptedRouter) Chat(ctx context.Context, modelID string, req models.ChatRequest, fallback []string) (*models.ChatResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.calls
	r.calls++
	r.requests = append(r.requests, req)
	if idx < len(r.errs) && r.errs[idx] != nil {
		return nil, r.errs[idx]
	}
	if idx >= len(r.script) {
		return &models.ChatResponse{Content: "done", FinishReason: "end_turn"}, nil
	}
	return r.script[idx], nil
}

func textResponse(content string) *models.ChatResponse {
	return &models.ChatResponse{Content: content, Model: "test-model", TokensInput: 10, TokensOutput: 5, FinishReason: "end_turn"}
}

func toolResponse(calls ...models.ToolCall) *models.ChatResponse {
	return &models.ChatResponse{Model: "test-model", ToolCalls: calls, FinishReason: "tool_use"}
}

func newTestAgent(t *testing.T, router ChatRouter, tools ...tool.Tool) *Agent {
	t.Helper()
	reg := tool.NewRegistry(testLogger())
	for _, tl := range tools {
		reg.MustRegister(tl)
	}
	ex := tool.NewExecutor(reg, tool.Policy{Timeout: 5 * time.Second}, testLogger())
	mem := memory.New(50, 0)
	cfg := config.AgentConfig{
		Name:               "test-agent",
		Model:              "mock/test-model",
		MaxToolIterations:  3,
		MaxConcurrentTools: 5,
	}
	return New(cfg, router, reg, ex, mem, testLogger())
}

func simpleTool(name string, fn tool.Func) tool.Tool {
	return tool.MustNew(tool.Spec{Name: name, Description: name}, fn)
}

func TestProcessPlainAnswer(t *testing.T) {
	router := &scriptedRouter{script: []*models.ChatResponse{textResponse("Hello!")}}
	a := newTestAgent(t, router)

	resp, err := a.Process(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Message != "Hello!" {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if len(resp.ToolsUsed) != 0 {
		t.Errorf("no tools should run, got %v", resp.ToolsUsed)
	}
	if router.calls != 1 {
		t.Errorf("expected 1 model call, got %d", router.calls)
	}
}

func TestProcessToolRoundTrip(t *testing.T) {
	router := &scriptedRouter{script: []*models.ChatResponse{
		toolResponse(models.ToolCall{ID: "c1", Name: "describe_vpcs", Arguments: map[string]any{}}),
		textResponse("You have 3 VPCs."),
	}}
	a := newTestAgent(t, router, simpleTool("describe_vpcs",
		func(ctx context.Context, args map[string]any) (tool.Result, error) {
			return tool.Ok(map[string]any{"count": 3}), nil
		}))

	resp, err := a.Process(context.Background(), "How many VPCs?")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !resp.Success {
		t.Error("expected success")
	}
	if resp.Message != "You have 3 VPCs." {
		t.Errorf("unexpected message %q", resp.Message)
	}
	if len(resp.ToolsUsed) != 1 || resp.ToolsUsed[0] != "describe_vpcs" {
		t.Errorf("unexpected tools used %v", resp.ToolsUsed)
	}

	// Second model call carries the tool outcome back.
	second := router.requests[1]
	last := second.Messages[len(second.Messages)-1]
	if len(last.ToolReturns) != 1 || last.ToolReturns[0].CallID != "c1" {
		t.Errorf("tool return not fed back: %+v", last)
	}
	if last.ToolReturns[0].IsError {
		t.Error("successful tool marked as error")
	}
}

func TestProcessConcurrentFanOut(t *testing.T) {
	var mu sync.Mutex
	var running, peak int

	slowTool := func(name string) tool.Tool {
		return simpleTool(name, func(ctx context.Context, args map[string]any) (tool.Result, error) {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()
			time.Sleep(30 * time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
			return tool.Ok(map[string]any{"tool": name}), nil
		})
	}

	router := &scriptedRouter{script: []*models.ChatResponse{
		toolResponse(
			models.ToolCall{ID: "c1", Name: "t1", Arguments: map[string]any{}},
			models.ToolCall{ID: "c2", Name: "t2", Arguments: map[string]any{}},
			models.ToolCall{ID: "c3", Name: "t3", Arguments: map[string]any{}},
		),
		textResponse("all done"),
	}}
	a := newTestAgent(t, router, slowTool("t1"), slowTool("t2"), slowTool("t3"))

	resp, err := a.Process(context.Background(), "run all")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(resp.ToolResults) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.ToolResults))
	}
	// Results arrive in dispatch order despite concurrent execution.
	for i, want := range []string{"t1", "t2", "t3"} {
		if resp.ToolResults[i].Tool != want {
			t.Errorf("position %d: expected %s, got %s", i, want, resp.ToolResults[i].Tool)
		}
	}
	if peak < 2 {
		t.Errorf("expected concurrent execution, peak concurrency was %d", peak)
	}
}

func TestProcessAllToolsFailed(t *testing.T) {
	router := &scriptedRouter{script: []*models.ChatResponse{
		toolResponse(
			models.ToolCall{ID: "c1", Name: "broken1", Arguments: map[string]any{}},
			models.ToolCall{ID: "c2", Name: "broken2", Arguments: map[string]any{}},
		),
		textResponse("everything failed"),
	}}
	failing := func(name string) tool.Tool {
		return simpleTool(name, func(ctx context.Context, args map[string]any) (tool.Result, error) {
			return tool.Fail("backend unreachable"), nil
		})
	}
	a := newTestAgent(t, router, failing("broken1"), failing("broken2"))

	resp, err := a.Process(context.Background(), "do both")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if resp.Success {
		t.Error("expected Success=false when every tool failed")
	}
	if resp.Message != "everything failed" {
		t.Errorf("model summary should still be delivered, got %q", resp.Message)
	}
}

func TestProcessPartialToolFailure(t *testing.T) {
	router := &scriptedRouter{script: []*models.ChatResponse{
		toolResponse(
			models.ToolCall{ID: "c1", Name: "good", Arguments: map[string]any{}},
			models.ToolCall{ID: "c2", Name: "bad", Arguments: map[string]any{}},
		),
		textResponse("partial results"),
	}}
	a := newTestAgent(t, router,
		simpleTool("good", func(ctx context.Context, args map[string]any) (tool.Result, error) {
			return tool.Ok(nil), nil
		}),
		simpleTool("bad", func(ctx context.Context, args map[string]any) (tool.Result, error) {
			return tool.Fail("nope"), nil
		}))

	resp, err := a.Process(context.Background(), "do both")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if !resp.Success {
		t.Error("one tool succeeding should keep Success=true")
	}
}

func TestProcessModelFailure(t *testing.T) {
	router := &scriptedRouter{errs: []error{errors.New("all models failed")}}
	a := newTestAgent(t, router)

	resp, err := a.Process(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Process should fold model failure into response, got error: %v", err)
	}
	if resp.Success {
		t.Error("expected Success=false on model failure")
	}
	if resp.Message == "" {
		t.Error("expected error message in response")
	}
}

func TestProcessMaxIterationsSummary(t *testing.T) {
	// Model keeps asking for tools; the loop must cap and summarize.
	call := models.ToolCall{ID: "c", Name: "loop_tool", Arguments: map[string]any{}}
	router := &scriptedRouter{script: []*models.ChatResponse{
		toolResponse(call),
		toolResponse(call),
		toolResponse(call),
		textResponse("summary after cap"),
	}}
	a := newTestAgent(t, router, simpleTool("loop_tool",
		func(ctx context.Context, args map[string]any) (tool.Result, error) {
			return tool.Ok(nil), nil
		}))

	resp, err := a.Process(context.Background(), "loop forever")
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if resp.Message != "summary after cap" {
		t.Errorf("expected summary call result, got %q", resp.Message)
	}
	// 3 iterations + 1 summary call.
	if router.calls != 4 {
		t.Errorf("expected 4 model calls, got %d", router.calls)
	}
	if len(resp.ToolsUsed) != 3 {
		t.Errorf("expected 3 tool invocations, got %d", len(resp.ToolsUsed))
	}
}

func TestProcessUpdatesMemory(t *testing.T) {
	router := &scriptedRouter{script: []*models.ChatResponse{textResponse("answer")}}
	a := newTestAgent(t, router)

	if _, err := a.Process(context.Background(), "question"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	msgs := a.Memory().Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages in memory, got %d", len(msgs))
	}
	if msgs[0].Role != memory.RoleUser || msgs[0].Content != "question" {
		t.Errorf("user turn not stored: %+v", msgs[0])
	}
	if msgs[1].Role != memory.RoleAssistant || msgs[1].Content != "answer" {
		t.Errorf("assistant turn not stored: %+v", msgs[1])
	}
	if msgs[1].Metadata["success"] != true {
		t.Errorf("assistant metadata missing: %v", msgs[1].Metadata)
	}
}

func TestProcessRecordsToolTurn(t *testing.T) {
	router := &scriptedRouter{script: []*models.ChatResponse{
		toolResponse(models.ToolCall{ID: "c1", Name: "failing", Arguments: map[string]any{}}),
		textResponse("it failed"),
	}}
	a := newTestAgent(t, router, simpleTool("failing",
		func(ctx context.Context, args map[string]any) (tool.Result, error) {
			return tool.Fail("backend down"), nil
		}))

	if _, err := a.Process(context.Background(), "check"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	turns := a.Memory().ByRole(memory.RoleTool, 0)
	if len(turns) != 1 {
		t.Fatalf("expected 1 tool turn in memory, got %d", len(turns))
	}
	outcome, ok := turns[0].ToolResults["failing"].(map[string]any)
	if !ok || outcome["success"] != false || outcome["error"] != "backend down" {
		t.Errorf("tool outcome not recorded: %v", turns[0].ToolResults)
	}
}

func TestProcessCarriesHistory(t *testing.T) {
	router := &scriptedRouter{script: []*models.ChatResponse{
		textResponse("first answer"),
		textResponse("second answer"),
	}}
	a := newTestAgent(t, router)

	ctx := context.Background()
	if _, err := a.Process(ctx, "first question"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if _, err := a.Process(ctx, "second question"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	second := router.requests[1]
	if len(second.Messages) != 3 {
		t.Fatalf("expected 3 history messages, got %d", len(second.Messages))
	}
	if second.Messages[0].Content != "first question" || second.Messages[1].Content != "first answer" {
		t.Errorf("history not carried: %+v", second.Messages)
	}
}

func TestHealthCheck(t *testing.T) {
	router := &scriptedRouter{}
	healthy := tool.MustNew(tool.Spec{Name: "ok", Description: "ok"},
		func(ctx context.Context, args map[string]any) (tool.Result, error) { return tool.Ok(nil), nil })
	sick := tool.MustNew(tool.Spec{Name: "sick", Description: "sick"},
		func(ctx context.Context, args map[string]any) (tool.Result, error) { return tool.Ok(nil), nil },
		tool.WithHealthCheck(func(ctx context.Context) map[string]any {
			return map[string]any{"status": "unhealthy", "error": "no credentials"}
		}))
	a := newTestAgent(t, router, healthy, sick)

	report := a.HealthCheck(context.Background())
	if report["status"] != "degraded" {
		t.Errorf("expected degraded, got %v", report["status"])
	}
	if report["tools_total"] != 2 || report["tools_healthy"] != 1 {
		t.Errorf("unexpected tool counts: %v", report)
	}

	tools, ok := report["tools"].(map[string]map[string]any)
	if !ok || tools["sick"]["status"] != "unhealthy" {
		t.Errorf("per-tool status missing: %v", report["tools"])
	}
}

func TestUpdateContextReachesModel(t *testing.T) {
	router := &scriptedRouter{script: []*models.ChatResponse{textResponse("ok")}}
	a := newTestAgent(t, router)

	a.UpdateContext(map[string]any{"region": "us-east-1"})
	a.UpdateContext(map[string]any{"cluster": "core-prod"})

	if _, err := a.Process(context.Background(), "status?"); err != nil {
		t.Fatalf("Process failed: %v", err)
	}

	prompt := router.requests[0].SystemPrompt
	if !strings.Contains(prompt, "us-east-1") || !strings.Contains(prompt, "core-prod") {
		t.Errorf("expected context keys in system prompt, got %q", prompt)
	}
}

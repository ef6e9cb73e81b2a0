package cli

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sigitp-git/core-network-devops-agent/internal/agent"
	"github.com/sigitp-git/core-network-devops-agent/internal/config"
	"github.com/sigitp-git/core-network-devops-agent/internal/memory"
	"github.com/sigitp-git/core-network-devops-agent/internal/security"
	"github.com/sigitp-git/core-network-devops-agent/internal/tool"
)

type scriptedAgent struct {
	responses map[string]*agent.Response
	err       error
	mem       *memory.Conversation
}

func newScriptedAgent() *scriptedAgent {
	return &scriptedAgent{
		responses: make(map[string]*agent.Response),
		mem:       memory.New(50, 24*time.Hour),
	}
}

func (s *scriptedAgent) Process(ctx context.Context, input string) (*agent.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	if resp, ok := s.responses[input]; ok {
		return resp, nil
	}
	return &agent.Response{Message: "ok", Success: true}, nil
}

func (s *scriptedAgent) HealthCheck(ctx context.Context) map[string]any {
	return map[string]any{
		"status":          "healthy",
		"tools_total":     2,
		"tools_healthy":   2,
		"memory_messages": s.mem.Len(),
	}
}

func (s *scriptedAgent) Memory() *memory.Conversation { return s.mem }

func TestChatProcessesInputAndExits(t *testing.T) {
	ag := newScriptedAgent()
	ag.responses["list vpcs"] = &agent.Response{
		Message:   "found 2 VPCs",
		Success:   true,
		ToolsUsed: []string{"describe_vpcs"},
		Model:     "bedrock/test",
		Elapsed:   1.2,
	}

	in := strings.NewReader("list vpcs\nexit\n")
	var out bytes.Buffer
	code := Chat(context.Background(), ag, in, &out, "1.0.0")

	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	text := out.String()
	if !strings.Contains(text, "found 2 VPCs") {
		t.Errorf("output missing agent reply:\n%s", text)
	}
	if !strings.Contains(text, "describe_vpcs") {
		t.Errorf("output missing tool tag:\n%s", text)
	}
}

func TestChatSpecialCommands(t *testing.T) {
	ag := newScriptedAgent()
	ag.mem.Add(memory.RoleUser, "earlier question", nil)

	in := strings.NewReader("help\nstatus\nhistory\nclear\nquit\n")
	var out bytes.Buffer
	code := Chat(context.Background(), ag, in, &out, "1.0.0")

	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	text := out.String()
	for _, want := range []string{"Commands", "Status", "earlier question", "conversation cleared"} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if ag.mem.Len() != 0 {
		t.Errorf("clear did not empty memory: %d", ag.mem.Len())
	}
}

func TestChatReportsProcessError(t *testing.T) {
	ag := newScriptedAgent()
	ag.err = fmt.Errorf("no providers configured")

	in := strings.NewReader("hello\nexit\n")
	var out bytes.Buffer
	Chat(context.Background(), ag, in, &out, "1.0.0")

	if !strings.Contains(out.String(), "no providers configured") {
		t.Errorf("error not surfaced:\n%s", out.String())
	}
}

func TestChatExitsOnEOF(t *testing.T) {
	ag := newScriptedAgent()
	var out bytes.Buffer
	code := Chat(context.Background(), ag, strings.NewReader(""), &out, "1.0.0")
	if code != 0 {
		t.Errorf("exit code on EOF = %d", code)
	}
}

func TestInitWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	var out bytes.Buffer

	if code := Init(path, &out); code != 0 {
		t.Fatalf("Init = %d: %s", code, out.String())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if _, err := config.Load(path); err != nil {
		t.Fatalf("written config does not load: %v", err)
	}

	// Second run must refuse to overwrite.
	out.Reset()
	if code := Init(path, &out); code != 1 {
		t.Errorf("Init over existing = %d, want 1", code)
	}
}

func TestToolsListing(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	reg := tool.NewRegistry(logger)
	reg.MustRegister(tool.MustNew(tool.Spec{
		Name:        "describe_vpcs",
		Description: "List VPCs in a region.",
		Params: map[string]tool.Param{
			"region": {Type: tool.TypeString},
		},
	}, func(ctx context.Context, args map[string]any) (tool.Result, error) {
		return tool.Ok(nil), nil
	}))

	var out bytes.Buffer
	if code := Tools(reg, &out); code != 0 {
		t.Fatalf("Tools = %d", code)
	}
	text := out.String()
	if !strings.Contains(text, "describe_vpcs") || !strings.Contains(text, "region") {
		t.Errorf("listing incomplete:\n%s", text)
	}
}

func TestTokenCommand(t *testing.T) {
	cfg := config.ServerConfig{JWTSecret: "test-secret"}
	var out bytes.Buffer

	if code := Token(cfg, "ops-user", security.RoleOperator, time.Hour, &out); code != 0 {
		t.Fatalf("Token = %d: %s", code, out.String())
	}
	claims, err := security.ValidateToken(strings.TrimSpace(out.String()), []byte("test-secret"))
	if err != nil {
		t.Fatalf("minted token invalid: %v", err)
	}
	if claims.User != "ops-user" || claims.Role != security.RoleOperator {
		t.Errorf("claims = %+v", claims)
	}

	out.Reset()
	if code := Token(config.ServerConfig{}, "x", security.RoleViewer, time.Hour, &out); code != 1 {
		t.Errorf("Token without secret = %d, want 1", code)
	}
	out.Reset()
	if code := Token(cfg, "  ", security.RoleViewer, time.Hour, &out); code != 1 {
		t.Errorf("Token without user = %d, want 1", code)
	}
}

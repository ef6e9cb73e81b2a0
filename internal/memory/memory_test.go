package memory

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAddEvictsOldest(t *testing.T) {
	c := New(2, 0)
	c.Add(RoleUser, "A", nil)
	c.Add(RoleAssistant, "B", nil)
	c.Add(RoleUser, "C", nil)

	msgs := c.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "B" || msgs[1].Content != "C" {
		t.Errorf("expected [B C], got [%s %s]", msgs[0].Content, msgs[1].Content)
	}
}

func TestUnboundedCount(t *testing.T) {
	c := New(0, 0)
	for i := 0; i < 50; i++ {
		c.Add(RoleUser, fmt.Sprintf("m%d", i), nil)
	}
	if c.Len() != 50 {
		t.Errorf("expected 50 messages, got %d", c.Len())
	}
}

func TestRetentionExcludesAged(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(10, time.Hour, WithClock(func() time.Time { return now }))

	c.Add(RoleUser, "old", nil)
	now = now.Add(2 * time.Hour)
	c.Add(RoleUser, "fresh", nil)

	msgs := c.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 retained message, got %d", len(msgs))
	}
	if msgs[0].Content != "fresh" {
		t.Errorf("expected fresh message retained, got %q", msgs[0].Content)
	}
}

func TestRetentionBoundary(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(10, time.Hour, WithClock(func() time.Time { return now }))

	c.Add(RoleUser, "edge", nil)
	now = now.Add(time.Hour)

	// Exactly at the cutoff counts as expired.
	if got := c.Len(); got != 0 {
		t.Errorf("expected message at exact cutoff to age out, got %d retained", got)
	}
}

func TestRecent(t *testing.T) {
	c := New(0, 0)
	for _, content := range []string{"a", "b", "c", "d"} {
		c.Add(RoleUser, content, nil)
	}

	got := c.Recent(2)
	if len(got) != 2 || got[0].Content != "c" || got[1].Content != "d" {
		t.Errorf("expected [c d], got %v", got)
	}
	if all := c.Recent(0); len(all) != 4 {
		t.Errorf("Recent(0) should return all, got %d", len(all))
	}
}

func TestClear(t *testing.T) {
	c := New(0, 0)
	c.Add(RoleUser, "hello", nil)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty after Clear, got %d", c.Len())
	}
}

func TestExchangesExcludesSystem(t *testing.T) {
	c := New(0, 0)
	c.Add(RoleSystem, "you are a network engineer", nil)
	c.Add(RoleUser, "list my VPCs", nil)
	c.Add(RoleAssistant, "you have 3 VPCs", map[string]any{"tools_used": []string{"describe_vpcs"}})

	ex := c.Exchanges()
	if len(ex) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(ex))
	}
	if ex[0].Role != "user" || ex[1].Role != "assistant" {
		t.Errorf("unexpected roles: %v", ex)
	}
}

func TestByRole(t *testing.T) {
	c := New(0, 0)
	c.Add(RoleUser, "u1", nil)
	c.Add(RoleAssistant, "a1", nil)
	c.Add(RoleUser, "u2", nil)
	c.Add(RoleUser, "u3", nil)

	got := c.ByRole(RoleUser, 2)
	if len(got) != 2 || got[0].Content != "u2" || got[1].Content != "u3" {
		t.Errorf("expected [u2 u3], got %v", got)
	}
	if all := c.ByRole(RoleAssistant, 0); len(all) != 1 || all[0].Content != "a1" {
		t.Errorf("expected [a1], got %v", all)
	}
}

func TestUpdateContextShallowMerge(t *testing.T) {
	c := New(0, 0)
	c.UpdateContext(map[string]any{"region": "us-east-1", "cluster": "core"})
	c.UpdateContext(map[string]any{"region": "us-west-2"})

	got := c.Context()
	if got["region"] != "us-west-2" {
		t.Errorf("expected overwritten region, got %v", got["region"])
	}
	if got["cluster"] != "core" {
		t.Errorf("expected cluster preserved, got %v", got["cluster"])
	}

	// mutating the copy must not touch the conversation
	got["cluster"] = "other"
	if c.Context()["cluster"] != "core" {
		t.Error("Context should return a copy")
	}
}

func TestStats(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := New(0, 0, WithClock(func() time.Time { return now }))
	c.Add(RoleSystem, "prompt", nil)
	c.Add(RoleUser, "hi", nil)
	now = now.Add(time.Minute)
	c.Add(RoleAssistant, "hello", nil)

	s := c.Stats()
	if s.Messages != 3 {
		t.Fatalf("expected 3 messages, got %d", s.Messages)
	}
	if s.ByRole["user"] != 1 || s.ByRole["assistant"] != 1 || s.ByRole["system"] != 1 {
		t.Errorf("unexpected role counts: %v", s.ByRole)
	}
	if !s.Newest.After(s.Oldest) {
		t.Errorf("expected newest %v after oldest %v", s.Newest, s.Oldest)
	}
}

func TestAddToolResults(t *testing.T) {
	c := New(0, 0)
	c.Add(RoleUser, "deploy amf", nil)
	c.AddToolResults(map[string]any{
		"deploy_network_function": map[string]any{"success": true},
	})
	c.Add(RoleAssistant, "deployed", nil)

	turns := c.ByRole(RoleTool, 0)
	if len(turns) != 1 {
		t.Fatalf("expected 1 tool turn, got %d", len(turns))
	}
	outcome, ok := turns[0].ToolResults["deploy_network_function"].(map[string]any)
	if !ok || outcome["success"] != true {
		t.Errorf("tool results not recorded: %v", turns[0].ToolResults)
	}

	// tool turns never reach the provider exchange format
	for _, ex := range c.Exchanges() {
		if ex.Role == string(RoleTool) {
			t.Error("tool turn leaked into exchanges")
		}
	}
}

func TestMetadataPreserved(t *testing.T) {
	c := New(0, 0)
	c.Add(RoleAssistant, "done", map[string]any{"success": true})
	msgs := c.Messages()
	if msgs[0].Metadata["success"] != true {
		t.Errorf("metadata lost: %v", msgs[0].Metadata)
	}
}

func TestConcurrentAdd(t *testing.T) {
	c := New(100, 0)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				c.Add(RoleUser, "m", nil)
			}
		}()
	}
	wg.Wait()
	if c.Len() != 100 {
		t.Errorf("expected window capped at 100, got %d", c.Len())
	}
}

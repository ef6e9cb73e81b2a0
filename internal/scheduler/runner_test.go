package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// mockExecutor records health sweeps and prompts.
type mockExecutor struct {
	mu        sync.Mutex
	sweeps    int
	prompts   []string
	sweepErr  error
	promptErr error
}

func (m *mockExecutor) RunHealthSweep(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweeps++
	return m.sweepErr
}

func (m *mockExecutor) RunPrompt(ctx context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, message)
	return m.promptErr
}

func intervalJob(id string, action ActionConfig) *Job {
	return &Job{
		ID:       id,
		Name:     id,
		Enabled:  true,
		Schedule: ScheduleConfig{Kind: "interval", IntervalMs: 1000},
		Action:   action,
	}
}

func TestRunnerHealthAction(t *testing.T) {
	exec := &mockExecutor{}
	job := intervalJob("health", ActionConfig{Kind: "health"})
	runner := NewJobRunner(job, exec, nil)

	runner.executeJob(context.Background())

	if exec.sweeps != 1 {
		t.Errorf("sweeps = %d, want 1", exec.sweeps)
	}
	if job.State.RunCount != 1 || job.State.ErrorCount != 0 {
		t.Errorf("state = %+v", job.State)
	}
	if job.State.LastError != "" {
		t.Errorf("LastError = %q", job.State.LastError)
	}
}

func TestRunnerHealthFailureRecorded(t *testing.T) {
	exec := &mockExecutor{sweepErr: fmt.Errorf("sts expired")}
	job := intervalJob("health", ActionConfig{Kind: "health"})
	runner := NewJobRunner(job, exec, nil)

	runner.executeJob(context.Background())

	if job.State.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", job.State.ErrorCount)
	}
	if job.State.LastError == "" {
		t.Error("LastError should be set")
	}
}

func TestRunnerPromptAction(t *testing.T) {
	exec := &mockExecutor{}
	job := intervalJob("report", ActionConfig{Kind: "prompt", Message: "summarize alarms"})
	runner := NewJobRunner(job, exec, nil)

	runner.executeJob(context.Background())

	if len(exec.prompts) != 1 || exec.prompts[0] != "summarize alarms" {
		t.Errorf("prompts = %v", exec.prompts)
	}
}

func TestRunnerNilExecutorFails(t *testing.T) {
	job := intervalJob("health", ActionConfig{Kind: "health"})
	runner := NewJobRunner(job, nil, nil)

	runner.executeJob(context.Background())

	if job.State.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", job.State.ErrorCount)
	}
}

func TestRunnerHTTPAction(t *testing.T) {
	var gotMethod, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	job := intervalJob("webhook", ActionConfig{
		Kind:    "http",
		URL:     srv.URL,
		Method:  "POST",
		Payload: map[string]any{"status": "ok"},
	})
	runner := NewJobRunner(job, nil, nil)
	runner.executeJob(context.Background())

	if job.State.ErrorCount != 0 {
		t.Fatalf("http job failed: %s", job.State.LastError)
	}
	if gotMethod != "POST" || gotType != "application/json" {
		t.Errorf("request = %s %s", gotMethod, gotType)
	}
}

func TestRunnerHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	job := intervalJob("webhook", ActionConfig{Kind: "http", URL: srv.URL, Method: "GET"})
	runner := NewJobRunner(job, nil, nil)
	runner.executeJob(context.Background())

	if job.State.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1 for 502", job.State.ErrorCount)
	}
}

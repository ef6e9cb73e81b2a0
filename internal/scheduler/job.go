package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled task: a periodic health sweep, an agent prompt,
// or a webhook call.
type Job struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Schedule ScheduleConfig `json:"schedule"`
	Action   ActionConfig   `json:"action"`
	Enabled  bool           `json:"enabled"`
	State    JobState       `json:"state"`
}

// ScheduleConfig defines when a job runs.
type ScheduleConfig struct {
	Kind       string `json:"kind"` // "interval" or "cron"
	IntervalMs int64  `json:"intervalMs,omitempty"`
	// Expr is a standard cron expression; descriptors like
	// "@every 5m" and "@hourly" are accepted.
	Expr string `json:"expr,omitempty"`
}

// ActionConfig defines what a job does.
type ActionConfig struct {
	Kind    string            `json:"kind"` // "health", "prompt", "http"
	Message string            `json:"message,omitempty"`
	URL     string            `json:"url,omitempty"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
	Payload map[string]any    `json:"payload,omitempty"`
}

// JobState tracks job execution state.
type JobState struct {
	LastRunAt    time.Time     `json:"lastRunAt,omitempty"`
	NextRunAt    time.Time     `json:"nextRunAt,omitempty"`
	RunCount     int64         `json:"runCount"`
	ErrorCount   int64         `json:"errorCount"`
	LastError    string        `json:"lastError,omitempty"`
	LastDuration time.Duration `json:"lastDuration,omitempty"`
}

// Validate checks the job configuration.
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job ID required")
	}
	if j.Name == "" {
		return fmt.Errorf("job name required")
	}

	switch j.Schedule.Kind {
	case "interval":
		if j.Schedule.IntervalMs <= 0 {
			return fmt.Errorf("intervalMs must be positive")
		}
	case "cron":
		if j.Schedule.Expr == "" {
			return fmt.Errorf("cron expression required")
		}
		if _, err := cron.ParseStandard(j.Schedule.Expr); err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
	default:
		return fmt.Errorf("unknown schedule kind: %s (use interval or cron)", j.Schedule.Kind)
	}

	switch j.Action.Kind {
	case "health":
	case "prompt":
		if j.Action.Message == "" {
			return fmt.Errorf("message required for prompt action")
		}
	case "http":
		if j.Action.URL == "" {
			return fmt.Errorf("url required for http action")
		}
		if j.Action.Method == "" {
			j.Action.Method = "GET"
		}
	default:
		return fmt.Errorf("unknown action kind: %s (use health, prompt, or http)", j.Action.Kind)
	}

	return nil
}

// NextRun calculates the next run time after "from".
func (j *Job) NextRun(from time.Time) (time.Time, error) {
	switch j.Schedule.Kind {
	case "interval":
		return from.Add(time.Duration(j.Schedule.IntervalMs) * time.Millisecond), nil
	case "cron":
		schedule, err := cron.ParseStandard(j.Schedule.Expr)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse cron: %w", err)
		}
		return schedule.Next(from), nil
	default:
		return time.Time{}, fmt.Errorf("unknown schedule kind: %s", j.Schedule.Kind)
	}
}

// Clone creates a deep copy of the job.
func (j *Job) Clone() *Job {
	data, _ := json.Marshal(j)
	var clone Job
	json.Unmarshal(data, &clone)
	return &clone
}

package tool

import "time"

// Result is the normalized outcome of a tool invocation. Exactly one of
// Data and Error is meaningful: Data when Success is true, Error when it
// is false.
type Result struct {
	Success       bool           `json:"success"`
	Data          map[string]any `json:"data,omitempty"`
	Error         string         `json:"error,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ExecutionTime float64        `json:"execution_time_seconds"`
	Timestamp     time.Time      `json:"timestamp"`
	Tool          string         `json:"tool,omitempty"`
}

// Ok builds a successful result carrying data.
func Ok(data map[string]any) Result {
	return Result{Success: true, Data: data}
}

// Fail builds a declared-failure result carrying an error message.
func Fail(msg string) Result {
	return Result{Success: false, Error: msg}
}

// Failf builds a declared-failure result from an error value.
func Failf(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// WithMetadata attaches free-form auxiliary values alongside Data or
// Error, merging into any metadata already present.
func (r Result) WithMetadata(meta map[string]any) Result {
	if len(meta) == 0 {
		return r
	}
	if r.Metadata == nil {
		r.Metadata = make(map[string]any, len(meta))
	}
	for k, v := range meta {
		r.Metadata[k] = v
	}
	return r
}

// withTiming stamps the result with the tool name, the completion
// instant, and cumulative elapsed time across all attempts.
func (r Result) withTiming(tool string, elapsed time.Duration) Result {
	r.Tool = tool
	r.ExecutionTime = elapsed.Seconds()
	r.Timestamp = time.Now().UTC()
	return r
}

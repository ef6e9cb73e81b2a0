package tool

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"
)

// Policy bounds a single tool invocation.
type Policy struct {
	// Timeout caps each attempt. Zero means no deadline.
	Timeout time.Duration `json:"timeout"`
	// MaxRetries is the number of additional attempts after the first
	// failed one.
	MaxRetries int `json:"max_retries"`
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration `json:"retry_delay"`
	// RetryDeclaredFailures extends retry to results the tool itself
	// marked failed, not just transport-level errors.
	RetryDeclaredFailures bool `json:"retry_declared_failures"`
	// Disabled refuses invocations without touching the registration.
	Disabled bool `json:"disabled,omitempty"`
}

// DefaultPolicy mirrors the executor's built-in bounds.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:    30 * time.Second,
		MaxRetries: 2,
		RetryDelay: 500 * time.Millisecond,
	}
}

// Executor runs registered tools through the full invocation pipeline:
// argument validation, default injection, per-attempt timeout, and bounded
// retry. Every path returns a Result; pipeline failures surface as failed
// results, not panics.
type Executor struct {
	registry  *Registry
	policy    Policy
	overrides map[string]Policy
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewExecutor builds an executor over a registry with a base policy.
func NewExecutor(registry *Registry, policy Policy, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry:  registry,
		policy:    policy,
		overrides: make(map[string]Policy),
		logger:    logger.With("component", "tool-executor"),
		sleep:     sleepCtx,
	}
}

// SetPolicy installs a per-tool override of the base policy.
func (e *Executor) SetPolicy(tool string, p Policy) {
	e.overrides[tool] = p
}

func (e *Executor) policyFor(tool string) Policy {
	if p, ok := e.overrides[tool]; ok {
		return p
	}
	return e.policy
}

// Execute runs one tool invocation end to end. The returned result always
// carries the tool name and the cumulative elapsed time across attempts.
func (e *Executor) Execute(ctx context.Context, name string, args map[string]any) Result {
	start := time.Now()

	t, err := e.registry.Get(name)
	if err != nil {
		return Failf(err).withTiming(name, time.Since(start))
	}

	pol := e.policyFor(name)
	if pol.Disabled {
		return Fail(fmt.Sprintf("tool %s is disabled", name)).withTiming(name, time.Since(start))
	}

	prepared, err := PrepareArgs(t.Spec(), args)
	if err != nil {
		e.logger.Warn("argument validation failed", "tool", name, "error", err)
		return Failf(err).withTiming(name, time.Since(start))
	}

	attempts := pol.MaxRetries + 1
	var last Result

	for attempt := 1; attempt <= attempts; attempt++ {
		res, callErr := e.attempt(ctx, t, prepared, pol)

		switch {
		case callErr == nil && res.Success:
			if attempt > 1 {
				e.logger.Info("tool recovered after retry", "tool", name, "attempt", attempt)
			}
			return res.withTiming(name, time.Since(start))
		case callErr == nil:
			// Declared failure. Retried only when the policy opts in.
			last = res
			if !pol.RetryDeclaredFailures {
				return last.withTiming(name, time.Since(start))
			}
		default:
			last = Failf(callErr)
			e.logger.Warn("tool attempt failed", "tool", name, "attempt", attempt, "error", callErr)
		}

		if attempt < attempts {
			if err := e.sleep(ctx, pol.RetryDelay); err != nil {
				return Failf(err).withTiming(name, time.Since(start))
			}
		}
	}

	return last.withTiming(name, time.Since(start))
}

// attempt runs a single call under the policy's timeout. Panics inside
// the tool function are contained and converted to operation errors.
func (e *Executor) attempt(ctx context.Context, t Tool, args map[string]any, pol Policy) (res Result, err error) {
	name := t.Spec().Name

	callCtx := ctx
	if pol.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, pol.Timeout)
		defer cancel()
	}

	defer func() {
		if rec := recover(); rec != nil {
			res = Result{}
			err = &OperationError{Tool: name, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	started := time.Now()
	res, err = t.Call(callCtx, args)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			return Result{}, &TimeoutError{Tool: name, Elapsed: time.Since(started).Round(time.Millisecond).String()}
		}
		return Result{}, &OperationError{Tool: name, Err: err}
	}
	if callCtx.Err() == context.DeadlineExceeded {
		return Result{}, &TimeoutError{Tool: name, Elapsed: time.Since(started).Round(time.Millisecond).String()}
	}
	return res, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PrepareArgs validates arguments against a spec and returns a copy with
// defaults injected for absent optional parameters. The input map is not
// mutated.
func PrepareArgs(spec Spec, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args)+len(spec.Params))
	for k, v := range args {
		out[k] = v
	}

	for _, name := range spec.ParamNames() {
		p := spec.Params[name]
		val, present := out[name]

		if !present {
			if p.Required {
				return nil, &ValidationError{Tool: spec.Name, Param: name, Reason: "required parameter missing"}
			}
			if p.Default != nil {
				out[name] = p.Default
			}
			continue
		}
		if err := checkValue(spec.Name, name, p, val); err != nil {
			return nil, err
		}
	}

	for name := range args {
		if _, declared := spec.Params[name]; !declared {
			return nil, &ValidationError{Tool: spec.Name, Param: name, Reason: "unknown parameter"}
		}
	}

	return out, nil
}

func checkValue(tool, name string, p Param, val any) error {
	fail := func(reason string) error {
		return &ValidationError{Tool: tool, Param: name, Reason: reason}
	}

	switch p.Type {
	case TypeString:
		s, ok := val.(string)
		if !ok {
			return fail(fmt.Sprintf("expected string, got %T", val))
		}
		if len(p.Enum) > 0 && !containsString(p.Enum, s) {
			return fail(fmt.Sprintf("value %q not in enum [%s]", s, strings.Join(p.Enum, ", ")))
		}
		if p.Pattern != "" {
			re, err := regexp.Compile(p.Pattern)
			if err != nil {
				return fail(fmt.Sprintf("invalid pattern: %v", err))
			}
			if !re.MatchString(s) {
				return fail(fmt.Sprintf("value %q does not match pattern %q", s, p.Pattern))
			}
		}
	case TypeInteger:
		f, ok := asNumber(val)
		if !ok || f != math.Trunc(f) {
			return fail(fmt.Sprintf("expected integer, got %T", val))
		}
		return checkRange(fail, p, f)
	case TypeNumber:
		f, ok := asNumber(val)
		if !ok {
			return fail(fmt.Sprintf("expected number, got %T", val))
		}
		return checkRange(fail, p, f)
	case TypeBoolean:
		if _, ok := val.(bool); !ok {
			return fail(fmt.Sprintf("expected boolean, got %T", val))
		}
	case TypeObject:
		if _, ok := val.(map[string]any); !ok {
			return fail(fmt.Sprintf("expected object, got %T", val))
		}
	case TypeArray:
		if _, ok := val.([]any); !ok {
			return fail(fmt.Sprintf("expected array, got %T", val))
		}
	}
	return nil
}

func checkRange(fail func(string) error, p Param, f float64) error {
	if p.Minimum != nil && f < *p.Minimum {
		return fail(fmt.Sprintf("value %v below minimum %v", f, *p.Minimum))
	}
	if p.Maximum != nil && f > *p.Maximum {
		return fail(fmt.Sprintf("value %v above maximum %v", f, *p.Maximum))
	}
	return nil
}

// asNumber accepts the numeric representations JSON decoding and direct Go
// callers produce.
func asNumber(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

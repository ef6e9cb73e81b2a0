package tool

import "context"

// Func is the executable body of a tool. Arguments arrive validated and
// with defaults applied. A Func reports domain failures through the
// returned Result; a non-nil error means the invocation itself broke and
// is eligible for retry.
type Func func(ctx context.Context, args map[string]any) (Result, error)

// Tool pairs a spec with its executable body.
type Tool interface {
	Spec() Spec
	Call(ctx context.Context, args map[string]any) (Result, error)
}

// Initializer is implemented by tools that need one-time setup before
// first use, typically to dial clients or load credentials.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// HealthChecker is implemented by tools that can probe their backing
// dependencies. HealthCheck reports status data and must not panic.
type HealthChecker interface {
	HealthCheck(ctx context.Context) map[string]any
}

// Option customizes a tool built with New.
type Option func(*builtTool)

// WithInitializer attaches a setup hook run by Registry.InitializeAll.
func WithInitializer(fn func(ctx context.Context) error) Option {
	return func(t *builtTool) { t.initialize = fn }
}

// WithHealthCheck attaches a liveness probe run by Registry.HealthCheckAll.
func WithHealthCheck(fn func(ctx context.Context) map[string]any) Option {
	return func(t *builtTool) { t.health = fn }
}

type builtTool struct {
	spec       Spec
	fn         Func
	initialize func(ctx context.Context) error
	health     func(ctx context.Context) map[string]any
}

// New builds a Tool from a spec and a function. The spec is validated
// eagerly so a malformed tool fails at construction, not at first call.
func New(spec Spec, fn Func, opts ...Option) (Tool, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, &SpecError{Tool: spec.Name, Reason: "tool function is nil"}
	}
	t := &builtTool{spec: spec, fn: fn}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// MustNew is New for statically-known specs; it panics on a bad spec.
func MustNew(spec Spec, fn Func, opts ...Option) Tool {
	t, err := New(spec, fn, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *builtTool) Spec() Spec { return t.spec }

func (t *builtTool) Call(ctx context.Context, args map[string]any) (Result, error) {
	return t.fn(ctx, args)
}

func (t *builtTool) Initialize(ctx context.Context) error {
	if t.initialize == nil {
		return nil
	}
	return t.initialize(ctx)
}

func (t *builtTool) HealthCheck(ctx context.Context) map[string]any {
	if t.health == nil {
		return map[string]any{"status": "healthy"}
	}
	return t.health(ctx)
}

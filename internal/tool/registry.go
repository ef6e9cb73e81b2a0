package tool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry holds the tools available to a single agent. Registration
// order is preserved: listings and schema exports enumerate tools in the
// order they were registered.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	order  []string
	logger *slog.Logger
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logger.With("component", "tool-registry"),
	}
}

// Register adds a tool under its spec name. A second registration under
// the same name fails with DuplicateError; the original stays registered.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return &SpecError{Reason: "tool is nil"}
	}
	spec := t.Spec()
	if err := spec.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[spec.Name]; exists {
		return &DuplicateError{Tool: spec.Name}
	}
	r.tools[spec.Name] = t
	r.order = append(r.order, spec.Name)
	r.logger.Debug("tool registered", "tool", spec.Name, "params", len(spec.Params))
	return nil
}

// MustRegister is Register for wiring known-good tools; it panics on error.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(fmt.Sprintf("register tool: %v", err))
	}
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, &NotFoundError{Tool: name}
	}
	return t, nil
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Names returns registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Specs returns the specs of all registered tools in registration order.
func (r *Registry) Specs() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec())
	}
	return specs
}

// Schemas exports every tool as a provider-facing schema entry, in
// registration order. Each entry carries name, description, and the
// JSON-schema parameter object.
func (r *Registry) Schemas() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]map[string]any, 0, len(r.order))
	for _, name := range r.order {
		spec := r.tools[name].Spec()
		out = append(out, map[string]any{
			"name":         spec.Name,
			"description":  spec.Description,
			"input_schema": spec.Schema(),
		})
	}
	return out
}

// InitializeAll runs every tool's Initialize hook in registration order,
// stopping at the first failure. Tools without the hook are skipped.
func (r *Registry) InitializeAll(ctx context.Context) error {
	r.mu.RLock()
	ordered := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		ordered = append(ordered, r.tools[name])
	}
	r.mu.RUnlock()

	for _, t := range ordered {
		init, ok := t.(Initializer)
		if !ok {
			continue
		}
		if err := init.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize tool %q: %w", t.Spec().Name, err)
		}
		r.logger.Debug("tool initialized", "tool", t.Spec().Name)
	}
	return nil
}

// HealthCheckAll probes every tool concurrently and returns one status
// map per tool, keyed by name. Tools without a probe report healthy. A
// panicking probe is contained and reported as unhealthy; one tool's
// failure never hides another's status.
func (r *Registry) HealthCheckAll(ctx context.Context) map[string]map[string]any {
	r.mu.RLock()
	ordered := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		ordered = append(ordered, r.tools[name])
	}
	r.mu.RUnlock()

	results := make([]map[string]any, len(ordered))
	g, ctx := errgroup.WithContext(ctx)
	for i, t := range ordered {
		g.Go(func() error {
			results[i] = probe(ctx, t)
			return nil
		})
	}
	g.Wait()

	out := make(map[string]map[string]any, len(ordered))
	for i, t := range ordered {
		out[t.Spec().Name] = results[i]
	}
	return out
}

func probe(ctx context.Context, t Tool) (status map[string]any) {
	defer func() {
		if rec := recover(); rec != nil {
			status = map[string]any{
				"status": "unhealthy",
				"error":  fmt.Sprintf("health check panic: %v", rec),
			}
		}
	}()

	hc, ok := t.(HealthChecker)
	if !ok {
		return map[string]any{"status": "healthy"}
	}
	status = hc.HealthCheck(ctx)
	if status == nil {
		status = map[string]any{"status": "healthy"}
	}
	return status
}

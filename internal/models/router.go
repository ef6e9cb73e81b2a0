package models

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sigitp-git/core-network-devops-agent/internal/config"
)

// Router resolves "provider/model" IDs to providers and walks the
// fallback chain when the primary model fails.
type Router struct {
	providers map[string]Provider
	models    map[string]*ModelInfo
	usage     *UsageTracker
	logger    *slog.Logger
	mu        sync.RWMutex
}

// ModelInfo is the router's view of one registered model.
type ModelInfo struct {
	ID       string
	Provider string
	Config   config.Model
	Impl     Provider
}

// UsageTracker accumulates request and token counts per model.
type UsageTracker struct {
	mu    sync.RWMutex
	usage map[string]*ModelUsage
}

// ModelUsage is the accumulated traffic for one model.
type ModelUsage struct {
	TotalRequests  int64
	TotalTokensIn  int64
	TotalTokensOut int64
	LastRequest    time.Time
}

// NewRouter creates an empty router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{
		providers: make(map[string]Provider),
		models:    make(map[string]*ModelInfo),
		usage: &UsageTracker{
			usage: make(map[string]*ModelUsage),
		},
		logger: logger.With("component", "model-router"),
	}
}

// RegisterProvider adds a provider and indexes all its models under
// "provider/model" IDs.
func (r *Router) RegisterProvider(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	providerName := p.Name()
	r.providers[providerName] = p

	for _, model := range p.Models() {
		fullID := fmt.Sprintf("%s/%s", providerName, model.ID)
		r.models[fullID] = &ModelInfo{
			ID:       fullID,
			Provider: providerName,
			Config:   model,
			Impl:     p,
		}
		r.logger.Info("model registered",
			"id", fullID,
			"name", model.Name,
			"context", model.ContextWindow,
		)
	}

	r.logger.Info("provider registered",
		"name", providerName,
		"models", len(p.Models()),
	)
}

// Chat routes a request to modelID, falling back through the chain when
// the primary fails.
func (r *Router) Chat(ctx context.Context, modelID string, req ChatRequest, fallback []string) (*ChatResponse, error) {
	resp, err := r.chatSingle(ctx, modelID, req)
	if err == nil {
		return resp, nil
	}

	r.logger.Warn("primary model failed, trying fallback",
		"primary", modelID,
		"error", err,
		"fallbacks", len(fallback),
	)

	for i, fbModel := range fallback {
		r.logger.Info("trying fallback", "model", fbModel, "attempt", i+1)
		resp, fbErr := r.chatSingle(ctx, fbModel, req)
		if fbErr == nil {
			return resp, nil
		}
		r.logger.Warn("fallback failed", "model", fbModel, "error", fbErr)
	}

	return nil, fmt.Errorf("all models failed, primary error: %w", err)
}

func (r *Router) chatSingle(ctx context.Context, modelID string, req ChatRequest) (*ChatResponse, error) {
	provider, model, err := r.parseModelID(modelID)
	if err != nil {
		return nil, err
	}
	req.Model = model

	r.mu.RLock()
	_, known := r.models[modelID]
	r.mu.RUnlock()
	if !known {
		return nil, fmt.Errorf("model not found: %s", modelID)
	}

	resp, err := provider.Chat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("chat error: %w", err)
	}

	r.trackUsage(modelID, resp)
	return resp, nil
}

// parseModelID splits "provider/model" into components.
func (r *Router) parseModelID(modelID string) (Provider, string, error) {
	parts := strings.SplitN(modelID, "/", 2)
	if len(parts) != 2 {
		return nil, "", fmt.Errorf("invalid model ID format (expected provider/model): %s", modelID)
	}

	r.mu.RLock()
	provider, ok := r.providers[parts[0]]
	r.mu.RUnlock()
	if !ok {
		return nil, "", fmt.Errorf("provider not found: %s", parts[0])
	}
	return provider, parts[1], nil
}

func (r *Router) trackUsage(modelID string, resp *ChatResponse) {
	r.usage.mu.Lock()
	defer r.usage.mu.Unlock()

	u, ok := r.usage.usage[modelID]
	if !ok {
		u = &ModelUsage{}
		r.usage.usage[modelID] = u
	}
	u.TotalRequests++
	u.TotalTokensIn += int64(resp.TokensInput)
	u.TotalTokensOut += int64(resp.TokensOutput)
	u.LastRequest = time.Now()

	r.logger.Debug("usage tracked",
		"model", modelID,
		"tokens_in", resp.TokensInput,
		"tokens_out", resp.TokensOutput,
	)
}

// GetUsage returns a copy of the usage counters for one model.
func (r *Router) GetUsage(modelID string) ModelUsage {
	r.usage.mu.RLock()
	defer r.usage.mu.RUnlock()
	if u, ok := r.usage.usage[modelID]; ok {
		return *u
	}
	return ModelUsage{}
}

// AllUsage returns usage counters for every model that served traffic.
func (r *Router) AllUsage() map[string]ModelUsage {
	r.usage.mu.RLock()
	defer r.usage.mu.RUnlock()
	out := make(map[string]ModelUsage, len(r.usage.usage))
	for id, u := range r.usage.usage {
		out[id] = *u
	}
	return out
}

// GetModel returns info about one registered model.
func (r *Router) GetModel(modelID string) (*ModelInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.models[modelID]
	if !ok {
		return nil, fmt.Errorf("model not found: %s", modelID)
	}
	return info, nil
}

// ListModels returns all registered models sorted by ID.
func (r *Router) ListModels() []*ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	models := make([]*ModelInfo, 0, len(r.models))
	for _, info := range r.models {
		models = append(models, info)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models
}

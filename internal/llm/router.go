package llm

import (
	"context"
	"fmt"
	"sync"

	"cortex/internal/logging"
	"cortex/internal/usage"
)

// RouterConfig configures a Router's providers and fallback behavior.
type RouterConfig struct {
	ForceProvider  ProviderName
	EnableFallback bool
}

// Router selects a Provider per TaskType, falling over to the next
// available provider in FallbackOrder on failure.
type Router struct {
	providers map[ProviderName]Provider
	cfg       RouterConfig
	tracker   *usage.Tracker

	mu            sync.Mutex
	totalRequests int64
	totalCostUSD  float64
}

// NewRouter builds a Router from whichever providers were successfully
// constructed; a nil entry in providers is dropped silently.
func NewRouter(providers map[ProviderName]Provider, cfg RouterConfig, tracker *usage.Tracker) *Router {
	live := make(map[ProviderName]Provider, len(providers))
	for name, p := range providers {
		if p != nil {
			live[name] = p
		}
	}
	return &Router{providers: live, cfg: cfg, tracker: tracker}
}

// Resolve exposes the routing decision for a task type without executing
// a completion, so callers that need a stable cache key (provider+model)
// ahead of time can ask "who would serve this?" the same way Complete
// would route it.
func (r *Router) Resolve(ctx context.Context, taskType TaskType) (Provider, error) {
	return r.route(ctx, taskType)
}

// route picks the provider for a task type, applying force_provider and
// falling back across FallbackOrder when the chosen provider isn't
// configured or isn't currently available.
func (r *Router) route(ctx context.Context, taskType TaskType) (Provider, error) {
	log := logging.Get(logging.CategoryRouter)

	want := r.cfg.ForceProvider
	if want == "" {
		want = TaskRouting[taskType]
		if want == "" {
			want = ProviderOllama
		}
	}

	if p, ok := r.providers[want]; ok && p.Available(ctx) {
		return p, nil
	}

	if r.cfg.ForceProvider != "" {
		return nil, fmt.Errorf("llm: forced provider %q not available", want)
	}

	if !r.cfg.EnableFallback {
		return nil, fmt.Errorf("llm: provider %q not available and fallback disabled", want)
	}

	log.Warn("provider %q unavailable for task %q, attempting fallback", want, taskType)
	for _, candidate := range FallbackOrder {
		if candidate == want {
			continue
		}
		if p, ok := r.providers[candidate]; ok && p.Available(ctx) {
			log.Warn("falling back to %q", candidate)
			return p, nil
		}
	}

	return nil, fmt.Errorf("llm: %w", ErrNoProviderAvailable)
}

// ErrNoProviderAvailable is returned when no configured provider can serve
// a request, with fallback either disabled or exhausted.
var ErrNoProviderAvailable = fmt.Errorf("no LLM provider available")

// Complete routes and executes a single completion, retrying across the
// fallback ladder on a provider-level error (not just unavailability).
func (r *Router) Complete(ctx context.Context, taskType TaskType, req Request) (Response, error) {
	return r.completeWithExclusions(ctx, taskType, req, nil)
}

func (r *Router) completeWithExclusions(ctx context.Context, taskType TaskType, req Request, tried map[ProviderName]bool) (Response, error) {
	log := logging.Get(logging.CategoryRouter)

	p, err := r.routeExcluding(ctx, taskType, tried)
	if err != nil {
		return Response{}, err
	}

	resp, err := p.Complete(ctx, req)
	if err == nil {
		r.recordStats(resp)
		if r.tracker != nil {
			r.tracker.Track(ctx, string(resp.Provider), resp.Model, string(taskType), resp.InputTokens, resp.OutputTokens, resp.CostUSD)
		}
		return resp, nil
	}

	log.Error("provider %q failed: %v", p.Name(), err)
	if !r.cfg.EnableFallback || r.cfg.ForceProvider != "" {
		return Response{}, err
	}

	if tried == nil {
		tried = map[ProviderName]bool{}
	}
	tried[p.Name()] = true
	if len(tried) >= len(FallbackOrder) {
		return Response{}, fmt.Errorf("llm: all providers exhausted, last error: %w", err)
	}
	return r.completeWithExclusions(ctx, taskType, req, tried)
}

func (r *Router) routeExcluding(ctx context.Context, taskType TaskType, tried map[ProviderName]bool) (Provider, error) {
	if len(tried) == 0 {
		return r.route(ctx, taskType)
	}
	for _, candidate := range FallbackOrder {
		if tried[candidate] {
			continue
		}
		if p, ok := r.providers[candidate]; ok && p.Available(ctx) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("llm: %w", ErrNoProviderAvailable)
}

func (r *Router) recordStats(resp Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totalRequests++
	r.totalCostUSD += resp.CostUSD
}

// Stats is the router's thread-safe usage snapshot.
type Stats struct {
	TotalRequests int64
	TotalCostUSD  float64
}

// GetStats returns the router's lifetime request count and cost.
func (r *Router) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{TotalRequests: r.totalRequests, TotalCostUSD: r.totalCostUSD}
}

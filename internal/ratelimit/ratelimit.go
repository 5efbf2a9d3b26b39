// Package ratelimit provides per-provider token-bucket request throttling.
// Each provider owns an independent bucket; a throttled provider never
// blocks another provider's calls.
package ratelimit

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Budget configures one provider's bucket. Capacity is the burst size;
// RefillPerSecond is the steady-state token refill rate.
type Budget struct {
	Capacity        int
	RefillPerSecond float64
}

// FromRPM derives a Budget from a requests-per-minute quota. Burst defaults
// to a tenth of the quota, at least one.
func FromRPM(rpm int, burst int) Budget {
	if burst <= 0 {
		burst = rpm / 10
		if burst < 1 {
			burst = 1
		}
	}
	return Budget{Capacity: burst, RefillPerSecond: float64(rpm) / 60.0}
}

// Registry holds one token bucket per provider. Buckets live for the process
// lifetime and are the only state shared across concurrently solved tasks;
// rate.Limiter serializes updates per bucket internally.
type Registry struct {
	mu      sync.RWMutex
	buckets map[string]*rate.Limiter
}

// NewRegistry builds a registry from per-provider budgets. A non-positive
// refill rate or capacity is a configuration error and fails fast.
func NewRegistry(budgets map[string]Budget) (*Registry, error) {
	r := &Registry{buckets: make(map[string]*rate.Limiter, len(budgets))}
	for name, b := range budgets {
		if b.RefillPerSecond <= 0 {
			return nil, eris.Errorf("ratelimit: provider %q: refill rate must be positive, got %v", name, b.RefillPerSecond)
		}
		if b.Capacity <= 0 {
			return nil, eris.Errorf("ratelimit: provider %q: capacity must be positive, got %d", name, b.Capacity)
		}
		r.buckets[name] = rate.NewLimiter(rate.Limit(b.RefillPerSecond), b.Capacity)
	}
	return r, nil
}

// Acquire blocks until one token is available for the provider, then debits
// it. Tokens refill lazily and never exceed capacity or go negative.
// Returns immediately with the context's error on cancellation.
func (r *Registry) Acquire(ctx context.Context, provider string) error {
	lim := r.get(provider)
	if lim == nil {
		return eris.Errorf("ratelimit: unknown provider %q", provider)
	}
	if err := lim.Wait(ctx); err != nil {
		return eris.Wrapf(err, "ratelimit: acquire %s", provider)
	}
	return nil
}

// Tokens reports the provider's current token count, for observability and
// tests. Returns -1 for an unknown provider.
func (r *Registry) Tokens(provider string) float64 {
	lim := r.get(provider)
	if lim == nil {
		return -1
	}
	return lim.Tokens()
}

func (r *Registry) get(provider string) *rate.Limiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buckets[provider]
}

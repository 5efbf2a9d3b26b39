package gateway

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/minds-lab/minds-cli/internal/cost"
	"github.com/minds-lab/minds-cli/internal/model"
	"github.com/minds-lab/minds-cli/internal/ratelimit"
	"github.com/minds-lab/minds-cli/internal/resilience"
)

// Options tunes gateway behavior.
type Options struct {
	// DefaultTimeout bounds a call whose ModelCall carries no timeout.
	DefaultTimeout time.Duration
	// Retry controls backoff on rate-limit rejections.
	Retry resilience.RetryConfig
	// Breaker controls the per-provider circuit breaker.
	Breaker resilience.BreakerConfig
}

// Gateway sends prompts to named backends and returns responses. Failures
// come back as error-valued responses, never as panics or propagated
// errors: one unavailable provider must not abort a pipeline.
type Gateway struct {
	registry *Registry
	limiter  *ratelimit.Registry
	calc     *cost.Calculator
	breakers map[string]*resilience.Breaker
	opts     Options
}

// New creates a gateway over the given backends. One breaker per
// registered provider is created up front.
func New(registry *Registry, limiter *ratelimit.Registry, calc *cost.Calculator, opts Options) *Gateway {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = 60 * time.Second
	}
	breakers := make(map[string]*resilience.Breaker)
	for _, name := range registry.List() {
		breakers[name] = resilience.NewBreaker(opts.Breaker)
	}
	return &Gateway{
		registry: registry,
		limiter:  limiter,
		calc:     calc,
		breakers: breakers,
		opts:     opts,
	}
}

// Providers returns the names of all registered backends.
func (g *Gateway) Providers() []string {
	return g.registry.List()
}

// Call executes one model call. The returned response always carries the
// call's provider and stage; on failure Error is set and Text is empty.
func (g *Gateway) Call(ctx context.Context, call model.ModelCall) model.ModelResponse {
	resp := model.ModelResponse{Provider: call.Provider, Stage: call.Stage}
	start := time.Now()

	defer func() {
		resp.LatencyMs = time.Since(start).Milliseconds()
	}()

	backend := g.registry.Get(call.Provider)
	if backend == nil {
		resp.Error = "unknown provider: " + call.Provider
		return resp
	}

	breaker := g.breakers[call.Provider]
	if err := breaker.Allow(); err != nil {
		resp.Error = err.Error()
		return resp
	}

	timeout := g.opts.DefaultTimeout
	if call.TimeoutMs > 0 {
		timeout = time.Duration(call.TimeoutMs) * time.Millisecond
	}

	// Every attempt pays its own token, so backoff retries after a 429 do
	// not re-hit the backend on the strength of a token already spent.
	completion, err := resilience.DoVal(ctx, g.opts.Retry, func(ctx context.Context) (*Completion, error) {
		if err := g.limiter.Acquire(ctx, call.Provider); err != nil {
			return nil, err
		}
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return backend.Complete(callCtx, call.Prompt, call.Temperature)
	})
	breaker.Record(err)

	if err != nil {
		zap.L().Warn("model call failed",
			zap.String("provider", call.Provider),
			zap.String("stage", string(call.Stage)),
			zap.Bool("transient", resilience.IsTransient(err)),
			zap.Error(err),
		)
		resp.Error = err.Error()
		return resp
	}

	resp.Model = completion.Model
	resp.Text = completion.Text
	resp.PromptTokens = completion.PromptTokens
	resp.CompletionTokens = completion.CompletionTokens
	resp.CostUSD = g.calc.Call(call.Provider, completion.Model, completion.PromptTokens, completion.CompletionTokens)

	return resp
}

package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/minds-lab/minds-cli/internal/cost"
	"github.com/minds-lab/minds-cli/internal/gateway"
	"github.com/minds-lab/minds-cli/internal/minds"
	"github.com/minds-lab/minds-cli/internal/ratelimit"
	"github.com/minds-lab/minds-cli/internal/resilience"
	"github.com/minds-lab/minds-cli/internal/store"
	"github.com/minds-lab/minds-cli/pkg/anthropic"
	"github.com/minds-lab/minds-cli/pkg/openaichat"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.New(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// buildGateway assembles the backend registry, per-provider rate limits,
// and pricing from config.
func buildGateway() (*gateway.Gateway, error) {
	if len(cfg.Providers) == 0 {
		return nil, eris.New("no providers configured")
	}

	registry := gateway.NewRegistry()
	budgets := make(map[string]ratelimit.Budget, len(cfg.Providers))

	for _, p := range cfg.Providers {
		switch p.Kind {
		case "anthropic":
			registry.Register(gateway.NewAnthropicBackend(p.Name, p.Model, anthropic.NewClient(p.APIKey)))
		case "openai_compat":
			var opts []openaichat.Option
			if p.BaseURL != "" {
				opts = append(opts, openaichat.WithBaseURL(p.BaseURL))
			}
			registry.Register(gateway.NewOpenAIBackend(p.Name, p.Model, openaichat.NewClient(p.APIKey, opts...)))
		default:
			return nil, eris.Errorf("provider %q: unknown kind %q", p.Name, p.Kind)
		}
		budgets[p.Name] = ratelimit.FromRPM(p.RPM, p.Burst)
	}

	limiter, err := ratelimit.NewRegistry(budgets)
	if err != nil {
		return nil, err
	}

	retry := resilience.RetryConfig{MaxAttempts: cfg.Solver.MaxRetries}
	opts := gateway.Options{
		DefaultTimeout: time.Duration(cfg.Solver.CallTimeoutSecs) * time.Second,
		Retry:          retry,
	}
	return gateway.New(registry, limiter, cost.NewCalculator(cfg.Pricing), opts), nil
}

func buildSolver() (*minds.Solver, error) {
	gw, err := buildGateway()
	if err != nil {
		return nil, err
	}

	specs := make([]minds.ProviderSpec, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		specs = append(specs, minds.ProviderSpec{Name: p.Name, Temperature: p.Temperature})
	}

	return minds.NewSolver(gw, minds.SolverConfig{
		Providers:          specs,
		Challenger:         cfg.Solver.Challenger,
		AgreementThreshold: cfg.Solver.AgreementThreshold,
		ChallengeMargin:    cfg.Solver.ChallengeMargin,
		MaxCostUSD:         cfg.Solver.MaxCostUSD,
		TaskTimeout:        time.Duration(cfg.Solver.TaskTimeoutSecs) * time.Second,
	}), nil
}

package minds

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/minds-lab/minds-cli/internal/gateway"
	"github.com/minds-lab/minds-cli/internal/model"
)

// SolverConfig tunes the solver's thresholds and budgets.
type SolverConfig struct {
	Providers          []ProviderSpec
	Challenger         string
	AgreementThreshold float64
	ChallengeMargin    float64
	MaxCostUSD         float64
	TaskTimeout        time.Duration
}

// Solver is the public entry point: one Solve call per task, wiring the
// critique/revision pipeline, the challenge evaluator, and synthesis under
// a shared cost/time budget.
type Solver struct {
	cfg       SolverConfig
	pipeline  *Pipeline
	evaluator *ChallengeEvaluator
}

// NewSolver wires a solver over the gateway.
func NewSolver(gw *gateway.Gateway, cfg SolverConfig) *Solver {
	challenger := cfg.Challenger
	if challenger == "" && len(cfg.Providers) > 0 {
		challenger = cfg.Providers[0].Name
	}
	return &Solver{
		cfg:       cfg,
		pipeline:  NewPipeline(gw, cfg.Providers),
		evaluator: NewChallengeEvaluator(gw, challenger, cfg.AgreementThreshold, cfg.ChallengeMargin),
	}
}

// Solve produces one synthesized answer for the task. Budget exhaustion
// yields a best-effort answer labeled low confidence; the only error is a
// task where no provider produced anything usable.
func (s *Solver) Solve(ctx context.Context, task model.Task) (*model.SynthesizedAnswer, error) {
	start := time.Now()

	budget := NewBudget(ctx, s.cfg.MaxCostUSD, s.cfg.TaskTimeout)
	defer budget.Release()

	result, err := s.pipeline.Run(ctx, task, budget)
	if err != nil {
		return nil, err
	}

	var challenge *model.Challenge
	if s.evaluator.ShouldChallenge(result.Consensus) {
		challenge = s.evaluator.Evaluate(task, result.Consensus, supporterConfidence(result), budget, result)
	}

	answer := Synthesize(result, challenge, s.cfg.AgreementThreshold)
	answer.TaskID = task.ID
	answer.LatencyMs = time.Since(start).Milliseconds()

	// Best effort under a spent budget: keep the answer, mark which limit
	// was hit, and lower the confidence signal.
	switch budget.Reason() {
	case ExhaustCost:
		answer.BudgetExceeded = true
		answer.ConfidenceLabel = model.ConfidenceLow
	case ExhaustDeadline:
		answer.TimedOut = true
		answer.ConfidenceLabel = model.ConfidenceLow
	}

	zap.L().Info("task solved",
		zap.String("task", task.ID),
		zap.Float64("agreement", answer.AgreementLevel),
		zap.String("confidence", string(answer.ConfidenceLabel)),
		zap.Float64("cost_usd", answer.CostUSD),
		zap.Int64("latency_ms", answer.LatencyMs),
		zap.Bool("budget_exceeded", answer.BudgetExceeded),
		zap.Bool("timed_out", answer.TimedOut),
	)

	return &answer, nil
}

// supporterConfidence is the mean self-confidence of the revisions backing
// the consensus, used as the bar a rebuttal must clear.
func supporterConfidence(result *PipelineResult) float64 {
	supporters := make(map[string]bool, len(result.Consensus.SupportingProviders))
	for _, p := range result.Consensus.SupportingProviders {
		supporters[p] = true
	}
	sum, n := 0.0, 0
	for _, r := range result.Revised {
		if supporters[r.Provider] {
			sum += r.SelfConfidence
			n++
		}
	}
	if n == 0 {
		return result.Consensus.AgreementLevel
	}
	return sum / float64(n)
}

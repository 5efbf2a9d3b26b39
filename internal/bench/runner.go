package bench

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/minds-lab/minds-cli/internal/model"
	"github.com/minds-lab/minds-cli/internal/outcome"
	"github.com/minds-lab/minds-cli/internal/store"
)

// TaskSolver produces one synthesized answer per task.
type TaskSolver interface {
	Solve(ctx context.Context, task model.Task) (*model.SynthesizedAnswer, error)
}

// RunnerConfig tunes one benchmark execution.
type RunnerConfig struct {
	// RunName labels the run in the store.
	RunName string
	// SolverName is recorded on the run for later comparison.
	SolverName string
	// Concurrency bounds how many tasks are solved at once. Defaults to 4.
	Concurrency int
	// LowAgreement is the non-convergence threshold fed to the classifier.
	LowAgreement float64
}

// Runner drives the solver across a task set and persists episodes and
// scored outcomes.
type Runner struct {
	solver TaskSolver
	store  store.Store
	cfg    RunnerConfig
}

// NewRunner wires a runner over the solver and store.
func NewRunner(solver TaskSolver, st store.Store, cfg RunnerConfig) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Runner{solver: solver, store: st, cfg: cfg}
}

// Run solves every task in the file, scores each answer against the task's
// expected answer, and finalizes the run. Individual task failures are
// recorded as outcomes, not returned; Run errors only on store failures or
// a canceled context.
func (r *Runner) Run(ctx context.Context, tf *model.TaskFile) (*model.Run, error) {
	run, err := r.store.CreateRun(ctx, r.cfg.RunName, tf.Name, r.cfg.SolverName)
	if err != nil {
		return nil, eris.Wrap(err, "bench: create run")
	}

	log := zap.L().With(zap.String("run", run.ID), zap.String("benchmark", tf.Name))
	log.Info("benchmark started", zap.Int("tasks", len(tf.Tasks)), zap.Int("concurrency", r.cfg.Concurrency))

	start := time.Now()
	results := make([]taskResult, len(tf.Tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for i, task := range tf.Tasks {
		g.Go(func() error {
			results[i] = r.solveOne(gctx, task)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		if ferr := r.store.UpdateRunStatus(context.WithoutCancel(ctx), run.ID, model.RunStatusFailed); ferr != nil {
			log.Warn("failed to mark run failed", zap.Error(ferr))
		}
		return nil, eris.Wrap(err, "bench: run interrupted")
	}

	// Persist in task order so outcome sequence matches the benchmark file.
	summary := &model.RunSummary{Samples: len(tf.Tasks)}
	for i, task := range tf.Tasks {
		res := results[i]
		if res.answer != nil {
			ep := &model.Episode{RunID: run.ID, SampleID: task.ID, Answer: *res.answer}
			if err := r.store.SaveEpisode(ctx, ep); err != nil {
				return nil, eris.Wrap(err, "bench: save episode")
			}
			summary.TotalCostUSD += res.answer.CostUSD
		}
		o := model.SampleOutcome{
			RunID:       run.ID,
			SampleID:    task.ID,
			Passed:      res.mode == model.FailureNone,
			FailureMode: res.mode,
		}
		if err := r.store.SaveOutcome(ctx, o); err != nil {
			return nil, eris.Wrap(err, "bench: save outcome")
		}
		if o.Passed {
			summary.PassedCount++
		}
	}
	summary.PassRate = float64(summary.PassedCount) / float64(summary.Samples)
	summary.WallTimeSecs = time.Since(start).Seconds()

	if err := r.store.FinalizeRun(ctx, run.ID, summary); err != nil {
		return nil, eris.Wrap(err, "bench: finalize run")
	}
	run.Status = model.RunStatusComplete
	run.Summary = summary

	log.Info("benchmark complete",
		zap.Int("passed", summary.PassedCount),
		zap.Float64("pass_rate", summary.PassRate),
		zap.Float64("total_cost_usd", summary.TotalCostUSD),
		zap.Float64("wall_time_secs", summary.WallTimeSecs),
	)
	return run, nil
}

type taskResult struct {
	answer *model.SynthesizedAnswer
	mode   model.FailureMode
}

func (r *Runner) solveOne(ctx context.Context, task model.Task) taskResult {
	answer, err := r.solver.Solve(ctx, task)

	sc := outcome.SampleContext{LowAgreement: r.cfg.LowAgreement}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		sc.TimedOut = true
	case err != nil:
		sc.SolverErr = err.Error()
		zap.L().Warn("task failed", zap.String("task", task.ID), zap.Error(err))
	default:
		sc.Passed = task.Expected != "" && scoreAnswer(answer.FinalText, task.Expected)
		sc.TimedOut = answer.TimedOut
		sc.BudgetExceeded = answer.BudgetExceeded
		sc.AgreementLevel = answer.AgreementLevel
		sc.ChallengeAccepted = answer.Challenge != nil && answer.Challenge.Accepted
	}

	return taskResult{answer: answer, mode: outcome.Classify(sc)}
}

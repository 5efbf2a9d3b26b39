package bench

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minds-lab/minds-cli/internal/model"
	"github.com/minds-lab/minds-cli/internal/store"
)

// fakeSolver returns canned answers or errors keyed by task ID.
type fakeSolver struct {
	answers map[string]*model.SynthesizedAnswer
	errs    map[string]error
}

func (f *fakeSolver) Solve(_ context.Context, task model.Task) (*model.SynthesizedAnswer, error) {
	if err, ok := f.errs[task.ID]; ok {
		return nil, err
	}
	if a, ok := f.answers[task.ID]; ok {
		return a, nil
	}
	return &model.SynthesizedAnswer{TaskID: task.ID, FinalText: "", AgreementLevel: 1.0}, nil
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "bench.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestRunnerScoresAndPersists(t *testing.T) {
	st := newTestStore(t)
	solver := &fakeSolver{
		answers: map[string]*model.SynthesizedAnswer{
			"q-1": {FinalText: "4", AgreementLevel: 1.0, CostUSD: 0.01},
			"q-2": {FinalText: "London", AgreementLevel: 0.67, CostUSD: 0.02},
			"q-3": {FinalText: "9", AgreementLevel: 0.2, BudgetExceeded: true, CostUSD: 0.5},
		},
	}
	runner := NewRunner(solver, st, RunnerConfig{
		RunName:      "test-run",
		SolverName:   "minds-3",
		Concurrency:  2,
		LowAgreement: 0.34,
	})

	tf := &model.TaskFile{Name: "mini", Tasks: []model.Task{
		{ID: "q-1", Prompt: "2+2?", Expected: "4"},
		{ID: "q-2", Prompt: "capital of France?", Expected: "Paris"},
		{ID: "q-3", Prompt: "3*3?", Expected: "10"},
	}}

	run, err := runner.Run(context.Background(), tf)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Summary)
	assert.Equal(t, 3, run.Summary.Samples)
	assert.Equal(t, 1, run.Summary.PassedCount)
	assert.InDelta(t, 1.0/3.0, run.Summary.PassRate, 1e-9)
	assert.InDelta(t, 0.53, run.Summary.TotalCostUSD, 1e-9)

	set, err := st.GetOutcomes(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, set.Outcomes, 3)
	assert.Equal(t, model.FailureNone, set.Outcomes[0].FailureMode)
	assert.Equal(t, model.FailureWrongAnswer, set.Outcomes[1].FailureMode)
	// Wrong answer under a spent budget classifies as a cost limit failure.
	assert.Equal(t, model.FailureCostLimit, set.Outcomes[2].FailureMode)

	eps, err := st.ListEpisodes(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Len(t, eps, 3)
}

func TestRunnerClassifiesSolverFailures(t *testing.T) {
	st := newTestStore(t)
	solver := &fakeSolver{
		errs: map[string]error{
			"q-1": context.DeadlineExceeded,
			"q-2": assert.AnError,
		},
		answers: map[string]*model.SynthesizedAnswer{
			"q-3": {FinalText: "maybe 7", AgreementLevel: 0.25},
			// Best-effort answer cut off by the task deadline, not the cap.
			"q-4": {FinalText: "wrong", AgreementLevel: 0.9, TimedOut: true},
		},
	}
	runner := NewRunner(solver, st, RunnerConfig{
		RunName:      "failures",
		SolverName:   "minds-3",
		LowAgreement: 0.34,
	})

	tf := &model.TaskFile{Name: "mini", Tasks: []model.Task{
		{ID: "q-1", Prompt: "slow", Expected: "1"},
		{ID: "q-2", Prompt: "broken", Expected: "2"},
		{ID: "q-3", Prompt: "scattered", Expected: "7"},
		{ID: "q-4", Prompt: "cut off", Expected: "right"},
	}}

	run, err := runner.Run(context.Background(), tf)
	require.NoError(t, err)

	set, err := st.GetOutcomes(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, set.Outcomes, 4)
	assert.Equal(t, model.FailureTimeout, set.Outcomes[0].FailureMode)
	assert.Equal(t, model.FailureCrash, set.Outcomes[1].FailureMode)
	assert.Equal(t, model.FailureNoConsensus, set.Outcomes[2].FailureMode)
	// A deadline-marked answer is a timeout even though an answer exists.
	assert.Equal(t, model.FailureTimeout, set.Outcomes[3].FailureMode)
	assert.Equal(t, 0, set.Passed())

	// Solver errors produce no episode; the answering tasks each leave one.
	eps, err := st.ListEpisodes(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Len(t, eps, 2)
}

// cancelingSolver cancels the run mid-flight.
type cancelingSolver struct {
	cancel context.CancelFunc
}

func (c *cancelingSolver) Solve(_ context.Context, _ model.Task) (*model.SynthesizedAnswer, error) {
	c.cancel()
	return nil, context.Canceled
}

func TestRunnerCanceledMidRun(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runner := NewRunner(&cancelingSolver{cancel: cancel}, st, RunnerConfig{
		RunName:     "canceled",
		SolverName:  "minds-3",
		Concurrency: 1,
	})

	tf := &model.TaskFile{Name: "mini", Tasks: []model.Task{
		{ID: "q-1", Prompt: "2+2?", Expected: "4"},
		{ID: "q-2", Prompt: "3+3?", Expected: "6"},
	}}
	_, err := runner.Run(ctx, tf)
	require.Error(t, err)

	runs, err := st.ListRuns(context.Background(), store.RunFilter{Status: model.RunStatusFailed})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

package minds

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minds-lab/minds-cli/internal/model"
)

func testSolverConfig(names ...string) SolverConfig {
	return SolverConfig{
		Providers:          specs(names...),
		AgreementThreshold: 0.8,
		ChallengeMargin:    0.15,
	}
}

func TestSolveMajorityWithoutChallenge(t *testing.T) {
	b1 := answeringBackend("p1", "4", "0.9")
	b2 := answeringBackend("p2", "4.0", "0.8")
	b3 := answeringBackend("p3", "5", "0.6")
	gw := newTestGateway(0, b1, b2, b3)

	s := NewSolver(gw, testSolverConfig("p1", "p2", "p3"))
	answer, err := s.Solve(context.Background(), testTask())
	require.NoError(t, err)

	assert.Equal(t, "q-1", answer.TaskID)
	assert.Equal(t, "4", answer.FinalText)
	assert.InDelta(t, 2.0/3.0, answer.AgreementLevel, 1e-9)
	assert.Equal(t, model.ConfidenceMedium, answer.ConfidenceLabel)
	assert.False(t, answer.BudgetExceeded)
	// Agreement below the threshold never dispatches the challenger.
	assert.Nil(t, answer.Challenge)
	assert.Equal(t, 0, b1.callCount(model.StageChallenge))
}

func TestSolveAcceptedChallengeOverturnsConsensus(t *testing.T) {
	b1 := answeringBackend("p1", "4", "0.7")
	b2 := answeringBackend("p2", "4", "0.7")
	b3 := answeringBackend("p3", "4", "0.7")
	b1.replies[model.StageChallenge] = "CLAIM: every solver dropped the carry\n" +
		"DEFECT: step two adds 14+8 as 12\n" +
		"ANSWER: 6\nCONFIDENCE: 0.95"
	gw := newTestGateway(0, b1, b2, b3)

	s := NewSolver(gw, testSolverConfig("p1", "p2", "p3"))
	answer, err := s.Solve(context.Background(), testTask())
	require.NoError(t, err)

	// Rebuttal at 0.95 clears mean supporter confidence 0.7 plus the 0.15
	// margin and cites a defect, so it replaces the unanimous answer.
	require.NotNil(t, answer.Challenge)
	assert.True(t, answer.Challenge.Accepted)
	assert.Equal(t, "6", answer.FinalText)
	assert.Equal(t, model.ConfidenceMedium, answer.ConfidenceLabel)
	assert.Equal(t, 1, b1.callCount(model.StageChallenge))
}

func TestSolveConcedingChallengerKeepsConsensus(t *testing.T) {
	b1 := answeringBackend("p1", "4", "0.9")
	b2 := answeringBackend("p2", "4", "0.9")
	b1.replies[model.StageChallenge] = "CLAIM: NONE\nANSWER: 4\nCONFIDENCE: 0.9"
	gw := newTestGateway(0, b1, b2)

	s := NewSolver(gw, testSolverConfig("p1", "p2"))
	answer, err := s.Solve(context.Background(), testTask())
	require.NoError(t, err)

	require.NotNil(t, answer.Challenge)
	assert.False(t, answer.Challenge.Accepted)
	assert.Equal(t, "4", answer.FinalText)
	assert.Equal(t, model.ConfidenceHigh, answer.ConfidenceLabel)
}

func TestSolveBudgetExhaustionMarksAnswer(t *testing.T) {
	b1 := answeringBackend("p1", "4", "0.9")
	b2 := answeringBackend("p2", "4.0", "0.8")
	b3 := answeringBackend("p3", "5", "0.6")
	gw := newTestGateway(0.01, b1, b2, b3)

	cfg := testSolverConfig("p1", "p2", "p3")
	// 12 calls at a cent each cross the cap on the final revision charge.
	cfg.MaxCostUSD = 0.115

	s := NewSolver(gw, cfg)
	answer, err := s.Solve(context.Background(), testTask())
	require.NoError(t, err)

	assert.Equal(t, "4", answer.FinalText)
	assert.True(t, answer.BudgetExceeded)
	assert.False(t, answer.TimedOut)
	assert.Equal(t, model.ConfidenceLow, answer.ConfidenceLabel)
	assert.GreaterOrEqual(t, answer.CostUSD, cfg.MaxCostUSD)
}

func TestSolveDeadlineMarksAnswerTimedOut(t *testing.T) {
	b1 := answeringBackend("p1", "4", "0.9")
	b2 := answeringBackend("p2", "4", "0.8")
	// Critique stalls past the task deadline; generation has already
	// succeeded, so a best-effort answer survives.
	b1.stall = map[model.Stage]time.Duration{model.StageCritique: time.Second}
	b2.stall = map[model.Stage]time.Duration{model.StageCritique: time.Second}
	gw := newTestGateway(0, b1, b2)

	cfg := testSolverConfig("p1", "p2")
	cfg.TaskTimeout = 60 * time.Millisecond

	s := NewSolver(gw, cfg)
	answer, err := s.Solve(context.Background(), testTask())
	require.NoError(t, err)

	assert.Equal(t, "4", answer.FinalText)
	assert.True(t, answer.TimedOut)
	assert.False(t, answer.BudgetExceeded)
	assert.Equal(t, model.ConfidenceLow, answer.ConfidenceLabel)
}

func TestSolveTimeoutSurfacesDeadline(t *testing.T) {
	b1 := answeringBackend("p1", "4", "0.9")
	gw := newTestGateway(0, b1)

	cfg := testSolverConfig("p1")
	cfg.TaskTimeout = time.Nanosecond

	s := NewSolver(gw, cfg)
	// The budget deadline expires before any backend call completes, so no
	// provider produces anything usable.
	_, err := s.Solve(context.Background(), testTask())
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestSolveDefaultChallengerIsFirstProvider(t *testing.T) {
	b1 := answeringBackend("p1", "4", "0.9")
	b2 := answeringBackend("p2", "4", "0.9")
	gw := newTestGateway(0, b1, b2)

	s := NewSolver(gw, testSolverConfig("p1", "p2"))
	assert.Equal(t, "p1", s.evaluator.Challenger)
}

func TestSupporterConfidence(t *testing.T) {
	result := &PipelineResult{
		Consensus: model.Consensus{
			AgreementLevel:      2.0 / 3.0,
			SupportingProviders: []string{"p1", "p2"},
		},
		Revised: []model.RevisedAnswer{
			{Provider: "p1", SelfConfidence: 0.9},
			{Provider: "p2", SelfConfidence: 0.7},
			{Provider: "p3", SelfConfidence: 0.1},
		},
	}
	// Dissenter confidence is excluded from the bar the rebuttal must clear.
	assert.InDelta(t, 0.8, supporterConfidence(result), 1e-9)

	// No matching revisions falls back to the agreement level.
	empty := &PipelineResult{Consensus: model.Consensus{AgreementLevel: 0.5}}
	assert.InDelta(t, 0.5, supporterConfidence(empty), 1e-9)
}

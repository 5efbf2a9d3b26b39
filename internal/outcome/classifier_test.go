package outcome

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/minds-lab/minds-cli/internal/model"
)

func TestClassifyPrecedence(t *testing.T) {
	tests := []struct {
		name string
		ctx  SampleContext
		want model.FailureMode
	}{
		{
			"passed wins over everything",
			SampleContext{Passed: true, TimedOut: true, BudgetExceeded: true},
			model.FailureNone,
		},
		{
			"crash outranks timeout",
			SampleContext{SolverErr: "no usable responses", TimedOut: true},
			model.FailureCrash,
		},
		{
			"timeout outranks budget",
			SampleContext{TimedOut: true, BudgetExceeded: true},
			model.FailureTimeout,
		},
		{
			"budget outranks non-convergence",
			SampleContext{BudgetExceeded: true, AgreementLevel: 0.1, LowAgreement: 0.34},
			model.FailureCostLimit,
		},
		{
			"low agreement without accepted challenge",
			SampleContext{AgreementLevel: 0.25, LowAgreement: 0.34},
			model.FailureNoConsensus,
		},
		{
			"accepted challenge rescues low agreement into wrong answer",
			SampleContext{AgreementLevel: 0.25, LowAgreement: 0.34, ChallengeAccepted: true},
			model.FailureWrongAnswer,
		},
		{
			"confident but wrong",
			SampleContext{AgreementLevel: 1.0, LowAgreement: 0.34},
			model.FailureWrongAnswer,
		},
		{
			"agreement exactly at threshold is not no_consensus",
			SampleContext{AgreementLevel: 0.34, LowAgreement: 0.34},
			model.FailureWrongAnswer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.ctx))
		})
	}
}

func TestFailureModeValid(t *testing.T) {
	for _, m := range []model.FailureMode{
		model.FailureNone, model.FailureWrongAnswer, model.FailureTimeout,
		model.FailureCrash, model.FailureCostLimit, model.FailureNoConsensus,
	} {
		assert.True(t, m.Valid(), string(m))
	}
	assert.False(t, model.FailureMode("exploded").Valid())
}

// Package outcome maps scored samples onto the failure taxonomy used by
// run comparisons.
package outcome

import "github.com/minds-lab/minds-cli/internal/model"

// SampleContext is everything known about one evaluated sample when it is
// classified.
type SampleContext struct {
	// Passed is the external scorer's verdict.
	Passed bool
	// SolverErr is non-empty when the solver returned a terminal error.
	SolverErr string
	// TimedOut marks a task that hit its deadline.
	TimedOut bool
	// BudgetExceeded marks a task whose cost budget ran out.
	BudgetExceeded bool
	// AgreementLevel is the consensus agreement the solver reported.
	AgreementLevel float64
	// ChallengeAccepted marks a task where the devil's-advocate rebuttal
	// replaced the consensus.
	ChallengeAccepted bool
	// LowAgreement is the threshold below which the solver is considered
	// to have failed to converge.
	LowAgreement float64
}

// Classify is a pure function from a sample's context to its failure mode.
// Precedence runs from hard failures down: a crash outranks a timeout
// outranks budget exhaustion outranks non-convergence outranks a plain
// wrong answer. no_consensus is reserved for samples where the solver
// itself could not converge, which is a different signal from answering
// incorrectly with conviction.
func Classify(ctx SampleContext) model.FailureMode {
	if ctx.Passed {
		return model.FailureNone
	}
	if ctx.SolverErr != "" {
		return model.FailureCrash
	}
	if ctx.TimedOut {
		return model.FailureTimeout
	}
	if ctx.BudgetExceeded {
		return model.FailureCostLimit
	}
	if ctx.AgreementLevel < ctx.LowAgreement && !ctx.ChallengeAccepted {
		return model.FailureNoConsensus
	}
	return model.FailureWrongAnswer
}

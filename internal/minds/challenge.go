package minds

import (
	"strings"

	"go.uber.org/zap"

	"github.com/minds-lab/minds-cli/internal/gateway"
	"github.com/minds-lab/minds-cli/internal/model"
)

// ChallengeEvaluator runs the devil's-advocate pass against a strong
// consensus. Challenging a weak consensus adds noise rather than signal, so
// the evaluator is gated on the agreement threshold, and acceptance is
// deliberately asymmetric: the rebuttal must clearly out-confidence the
// consensus AND cite a concrete checkable defect. A low-bar acceptance rule
// degrades final accuracy below not challenging at all.
type ChallengeEvaluator struct {
	gw *gateway.Gateway

	// Challenger is the provider asked to attack the consensus.
	Challenger string
	// AgreementThreshold is T_high; below it no challenge is attempted.
	AgreementThreshold float64
	// Margin is how far rebuttal confidence must exceed consensus
	// confidence for acceptance.
	Margin float64
}

// NewChallengeEvaluator creates the evaluator.
func NewChallengeEvaluator(gw *gateway.Gateway, challenger string, agreementThreshold, margin float64) *ChallengeEvaluator {
	return &ChallengeEvaluator{
		gw:                 gw,
		Challenger:         challenger,
		AgreementThreshold: agreementThreshold,
		Margin:             margin,
	}
}

// ShouldChallenge gates the pass on strong apparent agreement.
func (e *ChallengeEvaluator) ShouldChallenge(consensus model.Consensus) bool {
	return consensus.AgreementLevel >= e.AgreementThreshold
}

// Evaluate runs the challenge call and applies the acceptance rule.
// consensusConfidence is the mean self-confidence of the supporting
// revisions. Returns nil when the budget is spent or the challenger call
// fails; a failed challenge never blocks synthesis.
func (e *ChallengeEvaluator) Evaluate(task model.Task, consensus model.Consensus, consensusConfidence float64, budget *Budget, result *PipelineResult) *model.Challenge {
	if !budget.Allow() {
		return nil
	}

	resp := e.gw.Call(budget.Context(), model.ModelCall{
		Provider:    e.Challenger,
		Prompt:      challengePrompt(task.Prompt, consensus.MergedText),
		Temperature: 0,
		Stage:       model.StageChallenge,
	})
	budget.Charge(resp.CostUSD)
	result.Responses = append(result.Responses, resp)

	if !resp.OK() {
		zap.L().Warn("challenge call failed",
			zap.String("task", task.ID),
			zap.String("challenger", e.Challenger),
			zap.String("error", resp.Error),
		)
		return nil
	}

	parsed := parseReply(resp.Text)
	ch := &model.Challenge{
		Claim:              parsed.Claim,
		Defects:            parsed.Defects,
		RebuttalText:       parsed.Answer,
		RebuttalConfidence: parsed.Confidence,
	}

	// The challenger explicitly conceding means no challenge was raised.
	if strings.EqualFold(strings.TrimSpace(ch.Claim), "none") || ch.Claim == "" {
		ch.Accepted = false
		return ch
	}

	// Acceptance rule: out-confidence the consensus by the margin AND cite
	// at least one concrete defect. A rebuttal that is only a restated
	// alternative opinion (no defects) is recorded but never accepted.
	ch.Accepted = ch.RebuttalConfidence > consensusConfidence+e.Margin && len(ch.Defects) > 0

	zap.L().Info("challenge evaluated",
		zap.String("task", task.ID),
		zap.Bool("accepted", ch.Accepted),
		zap.Float64("rebuttal_confidence", ch.RebuttalConfidence),
		zap.Float64("consensus_confidence", consensusConfidence),
		zap.Int("defects", len(ch.Defects)),
	)

	return ch
}

package minds

import (
	"github.com/minds-lab/minds-cli/internal/model"
)

// Synthesize merges the pipeline's consensus and an optional challenge into
// the final answer. The accepted rebuttal replaces the consensus text; a
// rejected or absent challenge leaves the consensus standing and is only
// recorded for transparency. Cost sums every response issued for the task,
// including critique and challenge calls whose content was discarded.
func Synthesize(result *PipelineResult, challenge *model.Challenge, agreementThreshold float64) model.SynthesizedAnswer {
	finalText := result.Consensus.MergedText
	if challenge != nil && challenge.Accepted {
		finalText = challenge.RebuttalText
	}

	answer := model.SynthesizedAnswer{
		FinalText:         finalText,
		AgreementLevel:    result.Consensus.AgreementLevel,
		Challenge:         challenge,
		ConfidenceLabel:   confidenceLabel(result.Consensus.AgreementLevel, challenge, agreementThreshold),
		ProviderResponses: result.Responses,
	}

	for _, r := range result.Responses {
		answer.CostUSD += r.CostUSD
	}

	return answer
}

// confidenceLabel derives the coarse signal: unchallenged high agreement is
// high; an accepted challenge or middling agreement is medium; everything
// else is low. An accepted challenge never labels high because it means one
// dissenting pass overturned the majority.
func confidenceLabel(agreement float64, challenge *model.Challenge, threshold float64) model.ConfidenceLabel {
	if challenge != nil && challenge.Accepted {
		return model.ConfidenceMedium
	}
	switch {
	case agreement >= threshold:
		return model.ConfidenceHigh
	case agreement >= 0.5:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

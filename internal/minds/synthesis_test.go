package minds

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/minds-lab/minds-cli/internal/model"
)

func TestSynthesizeConsensusStands(t *testing.T) {
	result := &PipelineResult{
		Consensus: model.Consensus{MergedText: "4", AgreementLevel: 1.0},
		Responses: []model.ModelResponse{
			{Provider: "p1", CostUSD: 0.01},
			{Provider: "p2", CostUSD: 0.02},
			{Provider: "p3", CostUSD: 0.005, Error: "backend unavailable"},
		},
	}

	answer := Synthesize(result, nil, 0.8)
	assert.Equal(t, "4", answer.FinalText)
	assert.Equal(t, model.ConfidenceHigh, answer.ConfidenceLabel)
	// Cost sums every issued call, errored ones included.
	assert.InDelta(t, 0.035, answer.CostUSD, 1e-9)
	assert.Len(t, answer.ProviderResponses, 3)
	assert.Nil(t, answer.Challenge)
}

func TestSynthesizeAcceptedRebuttalReplacesConsensus(t *testing.T) {
	result := &PipelineResult{
		Consensus: model.Consensus{MergedText: "4", AgreementLevel: 1.0},
	}
	ch := &model.Challenge{
		Claim:        "consensus misreads the problem",
		RebuttalText: "6",
		Accepted:     true,
	}

	answer := Synthesize(result, ch, 0.8)
	assert.Equal(t, "6", answer.FinalText)
	// An accepted challenge caps confidence at medium even at full agreement.
	assert.Equal(t, model.ConfidenceMedium, answer.ConfidenceLabel)
	assert.Same(t, ch, answer.Challenge)
}

func TestSynthesizeRejectedChallengeIsRecordedOnly(t *testing.T) {
	result := &PipelineResult{
		Consensus: model.Consensus{MergedText: "4", AgreementLevel: 0.9},
	}
	ch := &model.Challenge{Claim: "weak objection", RebuttalText: "6", Accepted: false}

	answer := Synthesize(result, ch, 0.8)
	assert.Equal(t, "4", answer.FinalText)
	assert.Equal(t, model.ConfidenceHigh, answer.ConfidenceLabel)
	assert.NotNil(t, answer.Challenge)
}

func TestConfidenceLabelBands(t *testing.T) {
	tests := []struct {
		name      string
		agreement float64
		challenge *model.Challenge
		want      model.ConfidenceLabel
	}{
		{"at threshold", 0.8, nil, model.ConfidenceHigh},
		{"middling", 0.67, nil, model.ConfidenceMedium},
		{"exactly half", 0.5, nil, model.ConfidenceMedium},
		{"scattered", 0.34, nil, model.ConfidenceLow},
		{"accepted challenge at full agreement", 1.0, &model.Challenge{Accepted: true}, model.ConfidenceMedium},
		{"rejected challenge does not affect label", 1.0, &model.Challenge{Accepted: false}, model.ConfidenceHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, confidenceLabel(tt.agreement, tt.challenge, 0.8))
		})
	}
}

package model

// Stage identifies which pipeline phase issued a model call.
type Stage string

const (
	StageGenerate  Stage = "generate"
	StageCritique  Stage = "critique"
	StageRevise    Stage = "revise"
	StageChallenge Stage = "challenge"
)

// ModelCall is an immutable request to a single backend.
type ModelCall struct {
	Provider    string  `json:"provider"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	TimeoutMs   int64   `json:"timeout_ms"`
	Stage       Stage   `json:"stage"`
}

// ModelResponse is the outcome of one backend call. It is created by the
// gateway and never mutated afterward; failed calls carry a non-empty Error
// instead of text so callers can treat partial failure as data.
type ModelResponse struct {
	Provider         string  `json:"provider"`
	Model            string  `json:"model,omitempty"`
	Stage            Stage   `json:"stage"`
	Text             string  `json:"text,omitempty"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	LatencyMs        int64   `json:"latency_ms"`
	CostUSD          float64 `json:"cost_usd"`
	Error            string  `json:"error,omitempty"`
}

// OK reports whether the call produced usable text.
func (r ModelResponse) OK() bool {
	return r.Error == "" && r.Text != ""
}

// CritiqueNote is one provider's critique of another provider's answer.
type CritiqueNote struct {
	AuthorProvider      string   `json:"author_provider"`
	TargetProvider      string   `json:"target_provider"`
	Issues              []string `json:"issues"`
	SuggestedConfidence float64  `json:"suggested_confidence"`
}

// RevisedAnswer is a provider's answer after seeing critiques of its
// original response.
type RevisedAnswer struct {
	Provider       string  `json:"provider"`
	Text           string  `json:"text"`
	SelfConfidence float64 `json:"self_confidence"`
}

// Consensus is the tentative merged answer before any challenge pass.
type Consensus struct {
	MergedText          string   `json:"merged_text"`
	AgreementLevel      float64  `json:"agreement_level"`
	SupportingProviders []string `json:"supporting_providers"`
}

// Challenge records the devil's-advocate pass against a consensus.
// Accepted is decided by the acceptance rule, never by the challenger.
type Challenge struct {
	Claim              string   `json:"claim"`
	Defects            []string `json:"defects,omitempty"`
	RebuttalText       string   `json:"rebuttal_text"`
	RebuttalConfidence float64  `json:"rebuttal_confidence"`
	Accepted           bool     `json:"accepted"`
}

// ConfidenceLabel is the coarse confidence signal on a synthesized answer.
type ConfidenceLabel string

const (
	ConfidenceHigh   ConfidenceLabel = "high"
	ConfidenceMedium ConfidenceLabel = "medium"
	ConfidenceLow    ConfidenceLabel = "low"
)

// SynthesizedAnswer is the solver's terminal output for one task.
type SynthesizedAnswer struct {
	TaskID            string          `json:"task_id"`
	FinalText         string          `json:"final_text"`
	ConfidenceLabel   ConfidenceLabel `json:"confidence_label"`
	AgreementLevel    float64         `json:"agreement_level"`
	Challenge         *Challenge      `json:"challenge,omitempty"`
	CostUSD           float64         `json:"cost_usd"`
	LatencyMs         int64           `json:"latency_ms"`
	ProviderResponses []ModelResponse `json:"provider_responses"`
	// BudgetExceeded marks a best-effort answer produced after the cost cap
	// ran out; TimedOut marks one produced after the task deadline passed.
	// At most one is set.
	BudgetExceeded bool `json:"budget_exceeded,omitempty"`
	TimedOut       bool `json:"timed_out,omitempty"`
}

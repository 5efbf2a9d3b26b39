// Package cost computes USD cost for model API usage from per-provider,
// per-model token rates.
package cost

// ModelRate holds token pricing in USD per million tokens.
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Rates maps provider -> model -> pricing.
type Rates map[string]map[string]ModelRate

// Calculator computes costs for model calls.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Call computes the cost of one model call. Unknown provider/model pairs
// cost zero; the caller logs a warning at configuration time, not per call.
func (c *Calculator) Call(provider, model string, promptTokens, completionTokens int) float64 {
	models, ok := c.rates[provider]
	if !ok {
		return 0
	}
	rate, ok := models[model]
	if !ok {
		return 0
	}
	inCost := (float64(promptTokens) / 1e6) * rate.Input
	outCost := (float64(completionTokens) / 1e6) * rate.Output
	return inCost + outCost
}

// Known reports whether pricing exists for the provider/model pair.
func (c *Calculator) Known(provider, model string) bool {
	models, ok := c.rates[provider]
	if !ok {
		return false
	}
	_, ok = models[model]
	return ok
}

// DefaultRates returns the built-in pricing table. Values are overridable
// through the pricing config section.
func DefaultRates() Rates {
	return Rates{
		"anthropic": {
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		},
		"openai": {
			"gpt-4o":      {Input: 2.50, Output: 10.00},
			"gpt-4o-mini": {Input: 0.15, Output: 0.60},
		},
		"perplexity": {
			"sonar-pro": {Input: 3.00, Output: 15.00},
		},
	}
}

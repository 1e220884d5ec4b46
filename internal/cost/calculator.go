// Package cost estimates the dollar cost of LLM usage from token counts.
package cost

import "strings"

// Rates holds per-provider pricing configuration.
type Rates struct {
	OpenAI    map[string]ModelRate `yaml:"openai" mapstructure:"openai"`
	Anthropic map[string]ModelRate `yaml:"anthropic" mapstructure:"anthropic"`
}

// ModelRate holds per-model token pricing (per million tokens).
type ModelRate struct {
	Input         float64 `yaml:"input" mapstructure:"input"`
	Output        float64 `yaml:"output" mapstructure:"output"`
	BatchDiscount float64 `yaml:"batch_discount" mapstructure:"batch_discount"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// OpenAI computes the cost of an OpenAI chat completion.
func (c *Calculator) OpenAI(model string, isBatch bool, input, output int64) float64 {
	return price(c.rates.OpenAI, model, isBatch, input, output)
}

// Claude computes the cost of an Anthropic message.
func (c *Calculator) Claude(model string, isBatch bool, input, output int64) float64 {
	return price(c.rates.Anthropic, model, isBatch, input, output)
}

// Provider dispatches to OpenAI or Claude by provider name.
func (c *Calculator) Provider(provider, model string, isBatch bool, input, output int64) float64 {
	if strings.EqualFold(provider, "anthropic") {
		return c.Claude(model, isBatch, input, output)
	}
	return c.OpenAI(model, isBatch, input, output)
}

func price(table map[string]ModelRate, model string, isBatch bool, input, output int64) float64 {
	rate, ok := lookup(table, model)
	if !ok {
		return 0
	}

	batchMul := 1.0
	if isBatch && rate.BatchDiscount > 0 {
		batchMul = rate.BatchDiscount
	}

	inCost := (float64(input) / 1e6) * rate.Input * batchMul
	outCost := (float64(output) / 1e6) * rate.Output * batchMul
	return inCost + outCost
}

// lookup matches the exact model name first, then the longest configured
// prefix, so dated snapshots such as gpt-4o-2024-08-06 price as gpt-4o.
func lookup(table map[string]ModelRate, model string) (ModelRate, bool) {
	if rate, ok := table[model]; ok {
		return rate, true
	}
	var (
		best    ModelRate
		bestLen int
	)
	for name, rate := range table {
		if strings.HasPrefix(model, name) && len(name) > bestLen {
			best, bestLen = rate, len(name)
		}
	}
	return best, bestLen > 0
}

// DefaultRates returns the default pricing rates.
func DefaultRates() Rates {
	return Rates{
		OpenAI: map[string]ModelRate{
			"gpt-4o":       {Input: 2.50, Output: 10.00, BatchDiscount: 0.5},
			"gpt-4o-mini":  {Input: 0.15, Output: 0.60, BatchDiscount: 0.5},
			"gpt-4.1":      {Input: 2.00, Output: 8.00, BatchDiscount: 0.5},
			"gpt-4.1-mini": {Input: 0.40, Output: 1.60, BatchDiscount: 0.5},
		},
		Anthropic: map[string]ModelRate{
			"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00, BatchDiscount: 0.5},
			"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00, BatchDiscount: 0.5},
			"claude-opus-4-6":            {Input: 15.00, Output: 75.00, BatchDiscount: 0.5},
		},
	}
}

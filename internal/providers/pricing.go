package providers

import "strings"

// modelRate is the vendor list price in USD per 1M tokens.
type modelRate struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// rates holds the rate card used to estimate spend when the vendor API does
// not report cost directly. Prices drift; these are refreshed manually from
// the published pricing pages.
var rates = map[string]modelRate{
	// OpenAI
	"gpt-4o-mini": {InputPerMTok: 0.15, OutputPerMTok: 0.60},
	"gpt-4o":      {InputPerMTok: 2.50, OutputPerMTok: 10.00},

	// Anthropic
	"claude-3-5-haiku-20241022":  {InputPerMTok: 0.80, OutputPerMTok: 4.00},
	"claude-3-5-sonnet-20241022": {InputPerMTok: 3.00, OutputPerMTok: 15.00},
	"claude-3-opus-20240229":     {InputPerMTok: 15.00, OutputPerMTok: 75.00},
}

// EstimateCostUSD computes the estimated spend of one call.
// Unknown models are billed at a conservative default so a run against an
// unpriced model still consumes its cost budget instead of running free.
func EstimateCostUSD(model string, inputTokens, outputTokens int) float64 {
	rate, ok := rates[model]
	if !ok {
		rate = modelRate{InputPerMTok: 5.00, OutputPerMTok: 15.00}
	}
	return float64(inputTokens)/1e6*rate.InputPerMTok + float64(outputTokens)/1e6*rate.OutputPerMTok
}

// ContextWindowTokens reports the context capacity of a model.
func ContextWindowTokens(model string) int {
	modelLower := strings.ToLower(model)

	switch {
	case strings.Contains(modelLower, "claude"):
		return 200_000
	case strings.Contains(modelLower, "gpt-4o"):
		return 128_000
	case strings.Contains(modelLower, "o1-"):
		return 128_000
	}

	// Conservative default for unknown models.
	return 16_000
}

package llm

import "cortex/internal/usage"

// costUSD computes a completion's cost using the shared rate table so
// that internal/llm and internal/usage never drift on pricing.
func costUSD(provider ProviderName, inputTokens, outputTokens int) float64 {
	return usage.CostUSD(string(provider), inputTokens, outputTokens)
}

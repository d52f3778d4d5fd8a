package usage

import "time"

// UsageData is the root structure persisted to ~/.cortex/usage.json.
type UsageData struct {
	Version   string          `json:"version"`
	Aggregate AggregatedStats `json:"aggregate"`
}

// UsageEvent represents a single LLM completion call, tracked by the
// router after every provider response.
type UsageEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	Model        string    `json:"model"`
	Provider     string    `json:"provider"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	Operation    string    `json:"operation"` // chat, embedding, interpret
}

// AggregatedStats holds running counters broken down by dimension, mirroring
// the router's thread-safe totals (total requests,
// total cost, and per-provider requests/tokens/cost).
type AggregatedStats struct {
	Total       TokenCounts            `json:"total"`
	ByProvider  map[string]TokenCounts `json:"by_provider"`
	ByModel     map[string]TokenCounts `json:"by_model"`
	ByOperation map[string]TokenCounts `json:"by_operation"`
}

// TokenCounts holds input/output token sums, a request count, and the
// accumulated cost in USD.
type TokenCounts struct {
	Requests int64   `json:"requests"`
	Input    int64   `json:"input"`
	Output   int64   `json:"output"`
	Total    int64   `json:"total"`
	CostUSD  float64 `json:"cost_usd"`
}

func (tc *TokenCounts) Add(input, output int, cost float64) {
	tc.Requests++
	tc.Input += int64(input)
	tc.Output += int64(output)
	tc.Total += int64(input + output)
	tc.CostUSD += cost
}

// Rate holds a provider's per-million-token pricing.
type Rate struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// Rates is the fixed per-provider cost table.
var Rates = map[string]Rate{
	"ollama": {InputPerMillion: 0, OutputPerMillion: 0},
	"claude": {InputPerMillion: 3.0, OutputPerMillion: 15.0},
	"kimi":   {InputPerMillion: 1.0, OutputPerMillion: 5.0},
}

// CostUSD computes
// (input_tokens * input_rate + output_tokens * output_rate) / 1e6.
func CostUSD(provider string, inputTokens, outputTokens int) float64 {
	rate, ok := Rates[provider]
	if !ok {
		return 0
	}
	return (float64(inputTokens)*rate.InputPerMillion + float64(outputTokens)*rate.OutputPerMillion) / 1e6
}

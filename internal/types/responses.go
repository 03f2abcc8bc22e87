package types

// Completion is the normalized result of one provider adapter call.
type Completion struct {
	Content      string `json:"content"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// RouteResult is what the router returns to the caller after a successful
// routing call (primary or fallback).
type RouteResult struct {
	RequestID    string   `json:"request_id"`
	Provider     string   `json:"provider"`
	Content      string   `json:"content"`
	InputTokens  int      `json:"input_tokens"`
	OutputTokens int      `json:"output_tokens"`
	ActualCost   float64  `json:"actual_cost"`
	LatencyMs    float64  `json:"latency_ms"`
	FallbackUsed bool     `json:"fallback_used"`
	Reasoning    []string `json:"reasoning"`
}

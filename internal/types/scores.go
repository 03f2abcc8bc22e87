package types

// ScoreBreakdown holds the four 0-100 sub-scores of a candidate.
type ScoreBreakdown struct {
	Cost        float64 `json:"cost"`
	Speed       float64 `json:"speed"`
	Quality     float64 `json:"quality"`
	Reliability float64 `json:"reliability"`
}

// CandidateScore is the scored view of one provider for one request. Created
// fresh on every scoring pass, never persisted.
type CandidateScore struct {
	ProviderID            string         `json:"provider_id"`
	TotalScore            float64        `json:"total_score"`
	Breakdown             ScoreBreakdown `json:"breakdown"`
	EstimatedCost         float64        `json:"estimated_cost"`
	EstimatedLatencyMs    float64        `json:"estimated_latency_ms"`
	EstimatedInputTokens  int            `json:"estimated_input_tokens"`
	EstimatedOutputTokens int            `json:"estimated_output_tokens"`
	MeetsConstraints      bool           `json:"meets_constraints"`
	RejectionReason       string         `json:"rejection_reason,omitempty"`
}

package types

import (
	"time"
)

// Complexity is the caller-supplied estimate of task difficulty. It shifts
// scoring weights toward quality and drives the flagship override.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Priority influences scoring weights the same way complexity does.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Constraints are hard per-request limits. A candidate violating any of them
// is excluded from selection but kept in the scored list for error reporting.
type Constraints struct {
	MaxCost         *float64 `json:"max_cost,omitempty"`
	MaxLatencyMs    *float64 `json:"max_latency_ms,omitempty"`
	MinQualityScore *float64 `json:"min_quality_score,omitempty"`
}

// RoutingRequest is one completion request as seen by the router. Created per
// call, immutable, discarded after the call completes.
type RoutingRequest struct {
	ID          string       `json:"id"`
	Prompt      string       `json:"prompt"`
	MaxTokens   *int         `json:"max_tokens,omitempty"`
	Temperature *float32     `json:"temperature,omitempty"`
	Complexity  Complexity   `json:"complexity,omitempty"`
	Priority    Priority     `json:"priority,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// WantsQuality reports whether the request shape shifts scoring weights to
// the quality-first set.
func (r *RoutingRequest) WantsQuality() bool {
	return r.Complexity == ComplexityComplex || r.Priority == PriorityHigh
}

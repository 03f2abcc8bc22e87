package telemetry

import (
	"time"

	"github.com/samber/lo"
)

// ProviderStats aggregates the attempts routed to one provider within the
// analytics window.
type ProviderStats struct {
	Requests    int     `json:"requests"`
	SuccessRate float64 `json:"success_rate"`
	AvgLatency  float64 `json:"avg_latency_ms"`
	TotalCost   float64 `json:"total_cost"`
}

// Report is the windowed analytics view over the telemetry buffer.
type Report struct {
	WindowHours   int                      `json:"window_hours"`
	TotalRequests int                      `json:"total_requests"`
	SuccessRate   float64                  `json:"success_rate"`
	AvgLatencyMs  float64                  `json:"avg_latency_ms"`
	AvgCost       float64                  `json:"avg_cost"`
	ByProvider    map[string]ProviderStats `json:"by_provider"`
	ByComplexity  map[string]int           `json:"by_complexity"`
	ErrorTypes    map[string]int           `json:"error_types"`
}

// Analyze aggregates the entries whose timestamp falls within the last
// windowHours. An empty window yields a zero-valued report, not an error.
func (r *Recorder) Analyze(windowHours int) Report {
	cutoff := r.now().Add(-time.Duration(windowHours) * time.Hour)

	window := lo.Filter(r.Entries(), func(e Entry, _ int) bool {
		return !e.Timestamp.Before(cutoff)
	})

	report := Report{
		WindowHours:   windowHours,
		TotalRequests: len(window),
		ByProvider:    make(map[string]ProviderStats),
		ByComplexity:  make(map[string]int),
		ErrorTypes:    make(map[string]int),
	}

	if len(window) == 0 {
		return report
	}

	successes := lo.CountBy(window, func(e Entry) bool { return e.Success })
	report.SuccessRate = float64(successes) / float64(len(window))
	report.AvgLatencyMs = lo.SumBy(window, func(e Entry) float64 { return e.LatencyMs }) / float64(len(window))
	report.AvgCost = lo.SumBy(window, func(e Entry) float64 { return e.Cost }) / float64(len(window))

	for provider, entries := range lo.GroupBy(window, func(e Entry) string { return e.Provider }) {
		ok := lo.CountBy(entries, func(e Entry) bool { return e.Success })
		report.ByProvider[provider] = ProviderStats{
			Requests:    len(entries),
			SuccessRate: float64(ok) / float64(len(entries)),
			AvgLatency:  lo.SumBy(entries, func(e Entry) float64 { return e.LatencyMs }) / float64(len(entries)),
			TotalCost:   lo.SumBy(entries, func(e Entry) float64 { return e.Cost }),
		}
	}

	for complexity, entries := range lo.GroupBy(window, func(e Entry) string { return string(e.Complexity) }) {
		report.ByComplexity[complexity] = len(entries)
	}

	failures := lo.Filter(window, func(e Entry, _ int) bool { return !e.Success && e.ErrorKind != "" })
	for kind, entries := range lo.GroupBy(failures, func(e Entry) string { return e.ErrorKind }) {
		report.ErrorTypes[kind] = len(entries)
	}

	return report
}

package telemetry

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adaptivekit/cost-router/internal/types"
)

func TestRecorderKeepsInsertionOrder(t *testing.T) {
	rec := NewRecorder(10, nil)

	for i := 0; i < 5; i++ {
		rec.Record(Entry{RequestID: fmt.Sprintf("req_%d", i)})
	}

	entries := rec.Entries()
	require.Len(t, entries, 5)
	for i, e := range entries {
		assert.Equal(t, fmt.Sprintf("req_%d", i), e.RequestID)
	}
}

func TestRecorderEvictsOldestAtCapacity(t *testing.T) {
	rec := NewRecorder(3, nil)

	for i := 0; i < 7; i++ {
		rec.Record(Entry{RequestID: fmt.Sprintf("req_%d", i)})
	}

	assert.Equal(t, 3, rec.Len())

	entries := rec.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "req_4", entries[0].RequestID)
	assert.Equal(t, "req_5", entries[1].RequestID)
	assert.Equal(t, "req_6", entries[2].RequestID)
}

func TestRecorderDefaultCapacity(t *testing.T) {
	rec := NewRecorder(0, nil)
	for i := 0; i < DefaultCapacity+5; i++ {
		rec.Record(Entry{})
	}
	assert.Equal(t, DefaultCapacity, rec.Len())
}

func TestAnalyzeEmptyWindow(t *testing.T) {
	rec := NewRecorder(10, nil)

	report := rec.Analyze(24)
	assert.Equal(t, 24, report.WindowHours)
	assert.Zero(t, report.TotalRequests)
	assert.Zero(t, report.SuccessRate)
	assert.Zero(t, report.AvgLatencyMs)
	assert.Empty(t, report.ByProvider)
	assert.Empty(t, report.ErrorTypes)
}

func TestAnalyzeAggregates(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := NewRecorder(10, func() time.Time { return base })

	// Outside the 24h window; must be ignored.
	rec.Record(Entry{
		Timestamp: base.Add(-25 * time.Hour),
		Provider:  "alpha",
		Success:   true,
		Cost:      100,
	})

	rec.Record(Entry{
		Timestamp:  base.Add(-2 * time.Hour),
		Provider:   "alpha",
		Complexity: types.ComplexitySimple,
		Cost:       0.002,
		LatencyMs:  800,
		Success:    true,
	})
	rec.Record(Entry{
		Timestamp:  base.Add(-1 * time.Hour),
		Provider:   "alpha",
		Complexity: types.ComplexityComplex,
		Cost:       0.004,
		LatencyMs:  1200,
		Success:    true,
	})
	rec.Record(Entry{
		Timestamp:   base.Add(-30 * time.Minute),
		Provider:    "beta",
		Complexity:  types.ComplexitySimple,
		LatencyMs:   400,
		Success:     false,
		ErrorKind:   "rate_limited",
		RateLimited: true,
	})

	report := rec.Analyze(24)

	assert.Equal(t, 3, report.TotalRequests)
	assert.InDelta(t, 2.0/3.0, report.SuccessRate, 1e-9)
	assert.InDelta(t, 800.0, report.AvgLatencyMs, 1e-9)
	assert.InDelta(t, 0.002, report.AvgCost, 1e-9)

	require.Contains(t, report.ByProvider, "alpha")
	alpha := report.ByProvider["alpha"]
	assert.Equal(t, 2, alpha.Requests)
	assert.InDelta(t, 1.0, alpha.SuccessRate, 1e-9)
	assert.InDelta(t, 1000.0, alpha.AvgLatency, 1e-9)
	assert.InDelta(t, 0.006, alpha.TotalCost, 1e-9)

	require.Contains(t, report.ByProvider, "beta")
	assert.InDelta(t, 0.0, report.ByProvider["beta"].SuccessRate, 1e-9)

	assert.Equal(t, 2, report.ByComplexity["simple"])
	assert.Equal(t, 1, report.ByComplexity["complex"])
	assert.Equal(t, 1, report.ErrorTypes["rate_limited"])
}

func TestAnalyzeNarrowWindow(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := NewRecorder(10, func() time.Time { return base })

	rec.Record(Entry{Timestamp: base.Add(-30 * time.Minute), Provider: "alpha", Success: true})
	rec.Record(Entry{Timestamp: base.Add(-3 * time.Hour), Provider: "alpha", Success: true})

	report := rec.Analyze(1)
	assert.Equal(t, 1, report.TotalRequests)
}

package budget

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger is an in-process Ledger used by the standalone binary and by
// tests. Real deployments inject a persistent ledger instead.
type MemoryLedger struct {
	mu   sync.Mutex
	days map[string]*DailyCost
	now  func() time.Time
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger(now func() time.Time) *MemoryLedger {
	if now == nil {
		now = time.Now
	}
	return &MemoryLedger{
		days: make(map[string]*DailyCost),
		now:  now,
	}
}

// TrackRequest adds one executed request's cost to today's totals.
func (l *MemoryLedger) TrackRequest(ctx context.Context, rec Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := l.dayLocked()
	day.TotalCost += rec.Cost
	day.ByProvider[rec.Provider] += rec.Cost
	return nil
}

// GetDailyCost returns a copy of today's totals.
func (l *MemoryLedger) GetDailyCost(ctx context.Context) (DailyCost, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := l.dayLocked()
	out := DailyCost{
		TotalCost:  day.TotalCost,
		ByProvider: make(map[string]float64, len(day.ByProvider)),
	}
	for k, v := range day.ByProvider {
		out.ByProvider[k] = v
	}
	return out, nil
}

func (l *MemoryLedger) dayLocked() *DailyCost {
	key := l.now().Format("2006-01-02")
	day, ok := l.days[key]
	if !ok {
		day = &DailyCost{ByProvider: make(map[string]float64)}
		l.days[key] = day
	}
	return day
}

var _ Ledger = (*MemoryLedger)(nil)

package profile

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Profile is the mutable performance/cost view of one provider. Created at
// router initialization from static configuration; mutated only through the
// store; never deleted while the router is live.
type Profile struct {
	ID                   string  `json:"id"`
	Family               string  `json:"family"`
	Model                string  `json:"model"`
	CostPerMInputTokens  float64 `json:"cost_per_m_input_tokens"`
	CostPerMOutputTokens float64 `json:"cost_per_m_output_tokens"`
	FreeTierDailyQuota   int     `json:"free_tier_daily_quota,omitempty"`
	AvgLatencyMs         float64 `json:"avg_latency_ms"`
	QualityScore         float64 `json:"quality_score"`
	ReliabilityScore     float64 `json:"reliability_score"`
}

// Store owns all provider profiles and the free-tier daily counters. Every
// mutation runs inside one mutex so counter increments, EMA updates and the
// daily reset cannot interleave into lost updates.
type Store struct {
	mu           sync.Mutex
	profiles     map[string]*Profile
	order        []string
	freeTierUsed map[string]int
	lastReset    string // calendar day of the last free-tier reset, "2006-01-02"
	alpha        float64
	now          func() time.Time
	logger       *logrus.Logger
}

// NewStore builds a store from static configuration. alpha is the EMA
// smoothing factor for observed latency; now is the injected clock.
func NewStore(profiles []Profile, alpha float64, now func() time.Time, logger *logrus.Logger) *Store {
	if now == nil {
		now = time.Now
	}

	s := &Store{
		profiles:     make(map[string]*Profile, len(profiles)),
		freeTierUsed: make(map[string]int),
		alpha:        alpha,
		now:          now,
		logger:       logger,
	}
	s.lastReset = dayOf(now())

	for i := range profiles {
		p := profiles[i]
		s.profiles[p.ID] = &p
		s.order = append(s.order, p.ID)
	}

	return s
}

// Get returns a copy of the profile for id.
func (s *Store) Get(id string) (Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return Profile{}, false
	}
	return *p, true
}

// Snapshot returns copies of all profiles in registration order.
func (s *Store) Snapshot() []Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Profile, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.profiles[id])
	}
	return out
}

// RecordOutcome is the metrics updater: it folds one observed execution into
// the provider's latency EMA and reliability score. This is the sole feedback
// loop that lets repeated failures demote a provider's future ranking.
func (s *Store) RecordOutcome(id string, latencyMs float64, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok {
		return
	}

	p.AvgLatencyMs = p.AvgLatencyMs*(1-s.alpha) + latencyMs*s.alpha

	if success {
		p.ReliabilityScore = clamp(p.ReliabilityScore + 0.1)
	} else {
		p.ReliabilityScore = clamp(p.ReliabilityScore - 1)
	}

	s.logger.WithFields(logrus.Fields{
		"provider":    id,
		"latency_ms":  latencyMs,
		"success":     success,
		"avg_latency": p.AvgLatencyMs,
		"reliability": p.ReliabilityScore,
	}).Debug("Provider profile updated")
}

// ResetIfNewDay zeroes the free-tier counters exactly once per day boundary.
// Called at the start of every routing call; idempotent under concurrency
// because the watermark comparison happens inside the store mutex.
func (s *Store) ResetIfNewDay() {
	s.mu.Lock()
	defer s.mu.Unlock()

	today := dayOf(s.now())
	if today == s.lastReset {
		return
	}

	s.freeTierUsed = make(map[string]int)
	s.lastReset = today
	s.logger.WithField("day", today).Info("Free-tier daily counters reset")
}

// ConsumeFreeTier increments the daily counter for id if quota remains and
// reports whether it did. The counter is monotonically non-decreasing within
// a calendar day.
func (s *Store) ConsumeFreeTier(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok || p.FreeTierDailyQuota <= 0 {
		return false
	}

	if s.freeTierUsed[id] >= p.FreeTierDailyQuota {
		return false
	}

	s.freeTierUsed[id]++
	return true
}

// FreeTierRemaining returns how many zero-cost requests remain today for id.
func (s *Store) FreeTierRemaining(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id]
	if !ok || p.FreeTierDailyQuota <= 0 {
		return 0
	}

	remaining := p.FreeTierDailyQuota - s.freeTierUsed[id]
	if remaining < 0 {
		return 0
	}
	return remaining
}

// FreeTierUsage returns today's counter value for id.
func (s *Store) FreeTierUsage(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.freeTierUsed[id]
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func dayOf(t time.Time) string {
	return t.Format("2006-01-02")
}

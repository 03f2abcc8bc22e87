package telemetry

import (
	"sync"
	"time"

	"github.com/adaptivekit/cost-router/internal/types"
)

// DefaultCapacity bounds the ring buffer when no capacity is configured.
const DefaultCapacity = 1000

// Entry is the immutable record of one execution attempt. Every terminal
// outcome, primary or fallback, success or failure, appends exactly one.
type Entry struct {
	Timestamp    time.Time        `json:"timestamp"`
	RequestID    string           `json:"request_id"`
	Provider     string           `json:"provider"`
	Complexity   types.Complexity `json:"complexity"`
	InputTokens  int              `json:"input_tokens"`
	OutputTokens int              `json:"output_tokens"`
	Cost         float64          `json:"cost"`
	LatencyMs    float64          `json:"latency_ms"`
	Success      bool             `json:"success"`
	ErrorKind    string           `json:"error_kind,omitempty"`
	FallbackUsed bool             `json:"fallback_used"`
	RateLimited  bool             `json:"rate_limited"`
}

// Recorder appends entries to a fixed-capacity ring buffer, evicting the
// oldest first. The buffer never exceeds its configured capacity.
type Recorder struct {
	mu       sync.Mutex
	entries  []Entry
	head     int // index of the oldest entry
	size     int
	capacity int
	now      func() time.Time
}

// NewRecorder creates a recorder with the given capacity (DefaultCapacity
// when non-positive).
func NewRecorder(capacity int, now func() time.Time) *Recorder {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &Recorder{
		entries:  make([]Entry, capacity),
		capacity: capacity,
		now:      now,
	}
}

// Record appends one entry, evicting the oldest when full.
func (r *Recorder) Record(e Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size < r.capacity {
		r.entries[(r.head+r.size)%r.capacity] = e
		r.size++
		return
	}

	r.entries[r.head] = e
	r.head = (r.head + 1) % r.capacity
}

// Entries returns a copy of the buffered entries in insertion order.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, 0, r.size)
	for i := 0; i < r.size; i++ {
		out = append(out, r.entries[(r.head+i)%r.capacity])
	}
	return out
}

// Len returns the number of buffered entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

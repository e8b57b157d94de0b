package notify

import (
	"sort"
	"sync"
	"time"
)

type HealthStatus string

const (
	StatusHealthy  HealthStatus = "healthy"
	StatusDegraded HealthStatus = "degraded"
	StatusFailed   HealthStatus = "failed"
)

// failedThreshold is the number of consecutive failures after which a sink
// is reported as failed rather than degraded.
const failedThreshold = 3

// SinkHealth is a point-in-time view of one sink's delivery record.
type SinkHealth struct {
	Sink                string       `json:"sink"`
	Status              HealthStatus `json:"status"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	TotalFailures       int          `json:"totalFailures"`
	LastError           string       `json:"lastError,omitempty"`
	LastFailure         *time.Time   `json:"lastFailure,omitempty"`
}

type sinkRecord struct {
	consecutive int
	total       int
	lastErr     string
	lastFail    time.Time
}

// healthTracker counts failures per sink. The dispatcher writes it from
// event handlers while the status API reads it.
type healthTracker struct {
	mu    sync.Mutex
	sinks map[string]*sinkRecord
}

func newHealthTracker() *healthTracker {
	return &healthTracker{sinks: make(map[string]*sinkRecord)}
}

// recordLocked returns the record for sink, creating it. Caller must hold h.mu.
func (h *healthTracker) recordLocked(sink string) *sinkRecord {
	r, ok := h.sinks[sink]
	if !ok {
		r = &sinkRecord{}
		h.sinks[sink] = r
	}
	return r
}

func (h *healthTracker) recordSuccess(sink string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recordLocked(sink).consecutive = 0
}

func (h *healthTracker) recordFailure(sink string, err error, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r := h.recordLocked(sink)
	r.consecutive++
	r.total++
	r.lastErr = err.Error()
	r.lastFail = at
}

func statusFor(consecutive int) HealthStatus {
	switch {
	case consecutive >= failedThreshold:
		return StatusFailed
	case consecutive > 0:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

// snapshot returns every sink that has been used, ordered by name.
func (h *healthTracker) snapshot() []SinkHealth {
	h.mu.Lock()
	defer h.mu.Unlock()
	result := make([]SinkHealth, 0, len(h.sinks))
	for name, r := range h.sinks {
		s := SinkHealth{
			Sink:                name,
			Status:              statusFor(r.consecutive),
			ConsecutiveFailures: r.consecutive,
			TotalFailures:       r.total,
			LastError:           r.lastErr,
		}
		if !r.lastFail.IsZero() {
			t := r.lastFail
			s.LastFailure = &t
		}
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Sink < result[j].Sink })
	return result
}

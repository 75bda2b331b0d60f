package calllog

import (
	"sync"
	"time"
)

// window is how far back calls count toward the per-minute usage number.
const window = time.Minute

// Log is a rolling record of call timestamps for a single provider.
// It exists for rate-limit observability only and never gates a call.
// Each Log carries its own mutex so concurrent fetches against different
// providers never contend on a shared lock.
type Log struct {
	limit int // static per-minute ceiling, 0 = unknown

	mu    sync.Mutex
	calls []time.Time
	now   func() time.Time // test hook
}

func New(limitPerMinute int) *Log {
	return &Log{limit: limitPerMinute, now: time.Now}
}

// Record appends a call timestamp and drops entries older than the window.
func (l *Log) Record() {
	now := l.now()
	l.mu.Lock()
	l.calls = append(l.calls, now)
	l.trim(now)
	l.mu.Unlock()
}

// trim drops expired entries. Caller must hold l.mu.
func (l *Log) trim(now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(l.calls) && !l.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.calls = append(l.calls[:0], l.calls[i:]...)
	}
}

// Snapshot is a point-in-time view of one provider's call usage.
type Snapshot struct {
	Used    int        // calls in the last 60 seconds
	Limit   int        // static per-minute ceiling, 0 = unknown
	UsedPct float64    // Used/Limit*100, 0 when the limit is unknown
	ResetAt *time.Time // when the oldest call leaves the window, nil if no calls
}

// Status returns current usage within the rolling window.
func (l *Log) Status() Snapshot {
	now := l.now()
	l.mu.Lock()
	l.trim(now)
	s := Snapshot{Used: len(l.calls), Limit: l.limit}
	if len(l.calls) > 0 {
		reset := l.calls[0].Add(window)
		s.ResetAt = &reset
	}
	l.mu.Unlock()
	if s.Limit > 0 {
		s.UsedPct = float64(s.Used) / float64(s.Limit) * 100
	}
	return s
}

// Package rate implements per-key request accounting over rolling hour and
// day windows. Counters live in process memory only; a restart clears all
// quotas. Cross-process coordination is deliberately out of scope.
package rate

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onetop21/mcp-server-hub-sub003/internal/domain/entities"
)

type window struct {
	start time.Time
	count int
}

// roll resets the window when its duration has elapsed, re-anchoring at the
// current instant. Windows anchor to first use, not calendar boundaries, so
// a burst cannot straddle a boundary for double quota.
func (w *window) roll(now time.Time, d time.Duration) {
	if w.start.IsZero() || !now.Before(w.start.Add(d)) {
		w.start = now
		w.count = 0
	}
}

func (w *window) reset(d time.Duration) time.Time {
	return w.start.Add(d)
}

type counter struct {
	mu   sync.Mutex
	hour window
	day  window
}

// Limiter maintains counters per key id. Contention is scoped to the key:
// concurrent checks on different keys never share a lock.
type Limiter struct {
	counters sync.Map // uuid.UUID -> *counter
	now      func() time.Time
}

// NewLimiter creates an in-memory limiter
func NewLimiter() *Limiter {
	return &Limiter{now: time.Now}
}

// NewLimiterAt creates a limiter with an injected clock (used by tests)
func NewLimiterAt(now func() time.Time) *Limiter {
	return &Limiter{now: now}
}

// Check consumes one unit of quota for the key and reports the post-increment
// state against the policy. The increment happens even when the result is
// exceeded; rejecting the request is the caller's job, this is accounting.
func (l *Limiter) Check(keyID uuid.UUID, policy entities.RateLimit) entities.RateLimitStatus {
	v, _ := l.counters.LoadOrStore(keyID, &counter{})
	c := v.(*counter)

	now := l.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.hour.roll(now, time.Hour)
	c.day.roll(now, 24*time.Hour)
	c.hour.count++
	c.day.count++

	hourExceeded := policy.RequestsPerHour > 0 && c.hour.count > policy.RequestsPerHour
	dayExceeded := policy.RequestsPerDay > 0 && c.day.count > policy.RequestsPerDay

	// report the tighter window: fewer remaining wins, ties go to the one
	// that resets sooner
	hourRemaining := remaining(policy.RequestsPerHour, c.hour.count)
	dayRemaining := remaining(policy.RequestsPerDay, c.day.count)

	status := entities.RateLimitStatus{
		Remaining: hourRemaining,
		ResetTime: c.hour.reset(time.Hour),
		Exceeded:  hourExceeded || dayExceeded,
	}
	if dayRemaining < hourRemaining || (dayExceeded && !hourExceeded) {
		status.Remaining = dayRemaining
		status.ResetTime = c.day.reset(24 * time.Hour)
	}
	return status
}

// Forget drops the counters for a key, e.g. after revocation
func (l *Limiter) Forget(keyID uuid.UUID) {
	l.counters.Delete(keyID)
}

func remaining(limit, count int) int {
	if limit <= 0 {
		return int(^uint(0) >> 1) // unlimited
	}
	r := limit - count
	if r < 0 {
		return 0
	}
	return r
}

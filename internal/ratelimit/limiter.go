// Package ratelimit implements a sliding-window rate limiter keyed by
// arbitrary strings, used for per-IP login and per-user message throttling.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter counts admissions per key within a trailing window. An attempt
// is recorded even when it is rejected, so a sustained flood keeps the
// window full and is held at the limit until traffic stops.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	buckets map[string][]time.Time
	now     func() time.Time
}

func New(window time.Duration, limit int) *Limiter {
	if window <= 0 {
		window = time.Second
	}
	if limit <= 0 {
		limit = 1
	}
	return &Limiter{
		window:  window,
		limit:   limit,
		buckets: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records an attempt for key and reports whether it is admitted.
// Timestamps outside the window are pruned lazily on each touch.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	var kept []time.Time
	for _, ts := range l.buckets[key] {
		if now.Sub(ts) < l.window {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	l.buckets[key] = kept
	return len(kept) <= l.limit
}

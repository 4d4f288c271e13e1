package services

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// AttemptLimiter is a per-key token bucket for PIN attempts.
type AttemptLimiter struct {
	mu    sync.Mutex
	m     map[string]*limiterEntry
	limit rate.Limit
	burst int
	now   func() time.Time
}

// NewAttemptLimiter allows perMinute attempts per key with the given burst.
func NewAttemptLimiter(perMinute, burst int) *AttemptLimiter {
	if perMinute <= 0 {
		perMinute = 5
	}
	if burst <= 0 {
		burst = perMinute
	}
	return &AttemptLimiter{
		m:     make(map[string]*limiterEntry),
		limit: rate.Every(time.Minute / time.Duration(perMinute)),
		burst: burst,
		now:   time.Now,
	}
}

// Allow consumes one attempt for key.
func (l *AttemptLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.m[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.m[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Sweep forgets keys not seen for idle and returns how many were dropped.
func (l *AttemptLimiter) Sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	n := 0
	for k, e := range l.m {
		if e.lastSeen.Before(cutoff) {
			delete(l.m, k)
			n++
		}
	}
	return n
}

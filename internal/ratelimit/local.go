package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long an unused key's bucket is kept.
const idleTTL = time.Hour

// LocalLimiter is an in-process token bucket per key, for single-instance
// deployments without Redis. Each key may burst up to the per-minute limit
// and refills at limit/minute.
type LocalLimiter struct {
	mu        sync.Mutex
	limit     int
	entries   map[string]*localEntry
	lastSweep time.Time
	now       func() time.Time
}

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLocalLimiter creates a limiter allowing limit requests per minute per
// key. A limit of zero or less disables limiting.
func NewLocalLimiter(limit int) *LocalLimiter {
	return &LocalLimiter{
		limit:   limit,
		entries: make(map[string]*localEntry),
		now:     time.Now,
	}
}

// Allow takes one token from key's bucket.
func (l *LocalLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{limiter: rate.NewLimiter(rate.Every(window/time.Duration(l.limit)), l.limit)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// Len returns the number of tracked keys.
func (l *LocalLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// sweep drops idle keys, at most once per window. Callers hold l.mu.
func (l *LocalLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < window {
		return
	}
	l.lastSweep = now
	for k, e := range l.entries {
		if now.Sub(e.lastSeen) > idleTTL {
			delete(l.entries, k)
		}
	}
}

package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Result is the outcome of a rate limit check
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether a request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// MemoryLimiter is a per-key sliding window kept in process memory
type MemoryLimiter struct {
	limit  int
	window time.Duration
	clock  clockwork.Clock

	mu       sync.Mutex
	requests map[string][]time.Time
}

// NewMemoryLimiter allows limit requests per key in any window-long span
func NewMemoryLimiter(limit int, window time.Duration, clock clockwork.Clock) *MemoryLimiter {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryLimiter{
		limit:    limit,
		window:   window,
		clock:    clock,
		requests: make(map[string][]time.Time),
	}
}

// Allow records a request for key if the window has room
func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	reqs := l.prune(key, now)

	if len(reqs) >= l.limit {
		return Result{
			Allowed:   false,
			Limit:     l.limit,
			Remaining: 0,
			ResetAt:   reqs[0].Add(l.window),
		}, nil
	}

	reqs = append(reqs, now)
	l.requests[key] = reqs

	return Result{
		Allowed:   true,
		Limit:     l.limit,
		Remaining: l.limit - len(reqs),
		ResetAt:   reqs[0].Add(l.window),
	}, nil
}

// prune drops timestamps older than the window; callers hold l.mu
func (l *MemoryLimiter) prune(key string, now time.Time) []time.Time {
	reqs := l.requests[key]
	windowStart := now.Add(-l.window)

	idx := 0
	for idx < len(reqs) && !reqs[idx].After(windowStart) {
		idx++
	}
	return reqs[idx:]
}

// Sweep forgets keys with no requests inside the window
func (l *MemoryLimiter) Sweep() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	removed := 0
	for key := range l.requests {
		if reqs := l.prune(key, now); len(reqs) == 0 {
			delete(l.requests, key)
			removed++
		} else {
			l.requests[key] = reqs
		}
	}
	return removed
}

// Keys returns the number of tracked keys
func (l *MemoryLimiter) Keys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

// Start sweeps idle keys once per window until ctx is done
func (l *MemoryLimiter) Start(ctx context.Context) {
	ticker := l.clock.NewTicker(l.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			l.Sweep()
		}
	}
}

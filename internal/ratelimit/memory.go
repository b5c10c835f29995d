package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryLimiter is an in-process sliding-window limiter used when no Redis
// is configured. Admission control then holds per process instead of per
// deployment, which is acceptable degradation for a single-instance site.
type MemoryLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	now    func() time.Time
	seen   map[string][]time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) (*MemoryLimiter, error) {
	return newMemoryLimiter(limit, window, time.Now)
}

func newMemoryLimiter(limit int, window time.Duration, nowFn func() time.Time) (*MemoryLimiter, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %s", window)
	}
	if nowFn == nil {
		nowFn = time.Now
	}

	return &MemoryLimiter{
		limit:  limit,
		window: window,
		now:    nowFn,
		seen:   make(map[string][]time.Time),
	}, nil
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l == nil {
		return false, fmt.Errorf("limiter is not initialized")
	}

	normalizedKey := strings.TrimSpace(key)
	if normalizedKey == "" {
		return false, fmt.Errorf("key is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.seen[normalizedKey][:0]
	for _, stamp := range l.seen[normalizedKey] {
		if stamp.After(cutoff) {
			recent = append(recent, stamp)
		}
	}

	if len(recent) >= l.limit {
		l.seen[normalizedKey] = recent
		return false, nil
	}

	l.seen[normalizedKey] = append(recent, now)
	return true, nil
}

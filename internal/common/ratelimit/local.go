package ratelimit

import (
	"context"
	"sync"
	"time"

	appErr "codesandbox/pkg/errors"

	"golang.org/x/time/rate"
)

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter is an in-process token bucket per key, used when no Redis is configured.
// max requests per window become a bucket of size max refilled at max/window.
type LocalLimiter struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	now     func() time.Time
}

func NewLocalLimiter() *LocalLimiter {
	return &LocalLimiter{
		entries: make(map[string]*localEntry),
		now:     time.Now,
	}
}

func (l *LocalLimiter) Allow(ctx context.Context, key string, max int, window time.Duration) error {
	if max <= 0 || window <= 0 {
		return nil
	}
	now := l.now()

	l.mu.Lock()
	entry, ok := l.entries[key]
	if !ok {
		every := rate.Every(window / time.Duration(max))
		entry = &localEntry{limiter: rate.NewLimiter(every, max)}
		l.entries[key] = entry
	}
	entry.lastSeen = now
	l.mu.Unlock()

	if !entry.limiter.AllowN(now, 1) {
		return appErr.New(appErr.TooManyRequests).WithDetail("key", key)
	}
	return nil
}

// Sweep drops buckets idle for longer than idle and returns how many were removed.
func (l *LocalLimiter) Sweep(idle time.Duration) int {
	cutoff := l.now().Add(-idle)
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	for key, entry := range l.entries {
		if entry.lastSeen.Before(cutoff) {
			delete(l.entries, key)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (l *LocalLimiter) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep(idle)
		}
	}
}

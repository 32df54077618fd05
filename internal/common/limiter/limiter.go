// Package limiter bounds the number of concurrent executions.
package limiter

import (
	"context"
	"time"
)

// TokenLimiter is a counting semaphore for in-flight work.
type TokenLimiter struct {
	tokens chan struct{}
}

// NewTokenLimiter creates a limiter with a fixed capacity.
func NewTokenLimiter(size int) *TokenLimiter {
	if size <= 0 {
		size = 1
	}
	tokens := make(chan struct{}, size)
	for i := 0; i < size; i++ {
		tokens <- struct{}{}
	}
	return &TokenLimiter{tokens: tokens}
}

// Acquire blocks until a token is available or ctx is canceled.
func (l *TokenLimiter) Acquire(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.tokens:
		return nil
	}
}

// AcquireWithin waits at most wait for a token. A non-positive wait only tries once.
func (l *TokenLimiter) AcquireWithin(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		select {
		case <-l.tokens:
			return nil
		default:
			return context.DeadlineExceeded
		}
	}
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return l.Acquire(waitCtx)
}

// Release returns a token to the limiter.
func (l *TokenLimiter) Release() {
	select {
	case l.tokens <- struct{}{}:
	default:
	}
}

// Available reports how many tokens are free right now.
func (l *TokenLimiter) Available() int {
	return len(l.tokens)
}

// Capacity reports the total number of tokens.
func (l *TokenLimiter) Capacity() int {
	return cap(l.tokens)
}

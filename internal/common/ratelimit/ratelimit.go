// Package ratelimit enforces per-key request limits.
package ratelimit

import (
	"context"
	"time"
)

// Limiter admits or rejects one request for key. At most max requests are admitted per window.
// A rejection is returned as a TooManyRequests error.
type Limiter interface {
	Allow(ctx context.Context, key string, max int, window time.Duration) error
}

package ratelimit

import (
	"context"
	"time"

	"codesandbox/internal/common/cache"
	appErr "codesandbox/pkg/errors"
)

// RedisLimiter enforces fixed-window limits shared across service replicas.
type RedisLimiter struct {
	cache        cache.BasicOps
	window       time.Duration
	redisTimeout time.Duration
}

func NewRedisLimiter(cacheClient cache.BasicOps, window time.Duration, redisTimeout time.Duration) *RedisLimiter {
	if redisTimeout <= 0 {
		redisTimeout = time.Second
	}
	return &RedisLimiter{cache: cacheClient, window: window, redisTimeout: redisTimeout}
}

func (s *RedisLimiter) Allow(ctx context.Context, key string, max int, window time.Duration) error {
	if s.cache == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("rate limit cache is unavailable")
	}
	if max <= 0 {
		return nil
	}
	if window <= 0 {
		window = s.window
	}

	ctxCache, cancel := context.WithTimeout(ctx, s.redisTimeout)
	defer cancel()

	acquired, err := s.cache.SetNX(ctxCache, key, 1, window)
	if err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "rate limit check failed")
	}
	var count int64
	if acquired {
		count = 1
	} else {
		count, err = s.cache.Incr(ctxCache, key)
		if err != nil {
			return appErr.Wrapf(err, appErr.CacheError, "rate limit check failed")
		}
		// a key without expiry would block the client forever
		ttl, ttlErr := s.cache.TTL(ctxCache, key)
		if ttlErr == nil && ttl <= 0 {
			_ = s.cache.Expire(ctxCache, key, window)
		}
	}
	if int(count) > max {
		return appErr.New(appErr.TooManyRequests).WithDetail("key", key)
	}
	return nil
}

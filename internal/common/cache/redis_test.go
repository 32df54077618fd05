package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewRedisCache(mr.Addr())
	if err != nil {
		t.Fatalf("new redis cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCacheBasicOps(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	if v, err := c.Get(ctx, "missing"); err != nil || v != "" {
		t.Fatalf("missing key should be empty, got %q err=%v", v, err)
	}
	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := c.Get(ctx, "k"); v != "v" {
		t.Fatalf("unexpected value %q", v)
	}

	ok, err := c.SetNX(ctx, "counter", 1, time.Second)
	if err != nil || !ok {
		t.Fatalf("setnx should succeed: ok=%v err=%v", ok, err)
	}
	ok, _ = c.SetNX(ctx, "counter", 1, time.Second)
	if ok {
		t.Fatalf("second setnx should fail")
	}
	n, err := c.Incr(ctx, "counter")
	if err != nil || n != 2 {
		t.Fatalf("incr: n=%d err=%v", n, err)
	}

	ttl, err := c.TTL(ctx, "counter")
	if err != nil || ttl <= 0 {
		t.Fatalf("expected positive ttl, got %v err=%v", ttl, err)
	}
	mr.FastForward(2 * time.Second)
	if v, _ := c.Get(ctx, "counter"); v != "" {
		t.Fatalf("counter should expire, got %q", v)
	}

	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if err := c.Del(ctx); err != nil {
		t.Fatalf("empty del: %v", err)
	}
}

func TestNewRedisCacheValidation(t *testing.T) {
	if _, err := NewRedisCacheWithConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
	if _, err := NewRedisCache(""); err == nil {
		t.Fatalf("expected error for empty addr")
	}
	if _, err := NewRedisCacheWithClient(nil); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

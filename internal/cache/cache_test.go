package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/fd1az/swap-router/internal/cache"
)

func TestCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := cache.New[string, uint8](time.Minute)
	defer c.Close()

	c.Set(ctx, "usdc", 6, 0)

	got, ok := c.Get(ctx, "usdc")
	if !ok || got != 6 {
		t.Fatalf("expected 6, got %d (found=%v)", got, ok)
	}

	if _, ok := c.Get(ctx, "missing"); ok {
		t.Error("expected miss")
	}
}

func TestCache_EntryTTL(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	clock := func() time.Time { return now }

	c := cache.New[string, int](time.Hour, cache.WithClock(clock))
	c.Set(ctx, "k", 1, time.Second)

	if _, ok := c.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("expected miss after entry ttl")
	}
}

func TestCache_InvalidateAndPurge(t *testing.T) {
	ctx := context.Background()
	c := cache.New[string, int](time.Minute)

	c.Set(ctx, "a", 1, 0)
	c.Set(ctx, "b", 2, 0)

	c.Invalidate(ctx, "a")
	if _, ok := c.Get(ctx, "a"); ok {
		t.Error("expected a to be invalidated")
	}
	if _, ok := c.Get(ctx, "b"); !ok {
		t.Error("expected b to survive")
	}

	c.Purge()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
}

func TestCache_SizeBound(t *testing.T) {
	ctx := context.Background()
	c := cache.New[int, int](time.Minute, cache.WithSize(2))

	c.Set(ctx, 1, 1, 0)
	c.Set(ctx, 2, 2, 0)
	c.Set(ctx, 3, 3, 0)

	if c.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", c.Len())
	}
	if _, ok := c.Get(ctx, 1); ok {
		t.Error("expected oldest entry to be evicted")
	}
}

// Package cache provides a bounded, expiring in-memory cache.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultSize = 1024

type item[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache is a size-bounded LRU whose entries expire after at most the
// cache TTL. Set may shorten the lifetime of a single entry.
type Cache[K comparable, V any] struct {
	lru *expirable.LRU[K, item[V]]
	ttl time.Duration
	now func() time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	size int
	now  func() time.Time
}

// WithSize caps the number of entries.
func WithSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.size = n
		}
	}
}

// WithClock overrides time.Now, used in tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// New creates a cache with the given maximum entry lifetime.
func New[K comparable, V any](ttl time.Duration, opts ...Option) *Cache[K, V] {
	o := options{size: defaultSize, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[K, V]{
		lru: expirable.NewLRU[K, item[V]](o.size, nil, ttl),
		ttl: ttl,
		now: o.now,
	}
}

// Get returns the value for key when present and not expired.
func (c *Cache[K, V]) Get(_ context.Context, key K) (V, bool) {
	it, ok := c.lru.Get(key)
	if !ok {
		var zero V
		return zero, false
	}
	if !it.expiresAt.IsZero() && !c.now().Before(it.expiresAt) {
		c.lru.Remove(key)
		var zero V
		return zero, false
	}
	return it.value, true
}

// Set stores value. A ttl of zero or above the cache TTL uses the cache TTL.
func (c *Cache[K, V]) Set(_ context.Context, key K, value V, ttl time.Duration) {
	if ttl <= 0 || (c.ttl > 0 && ttl > c.ttl) {
		ttl = c.ttl
	}

	it := item[V]{value: value}
	if ttl > 0 {
		it.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(key, it)
}

// Invalidate drops a single key.
func (c *Cache[K, V]) Invalidate(_ context.Context, key K) {
	c.lru.Remove(key)
}

// Purge drops every entry.
func (c *Cache[K, V]) Purge() {
	c.lru.Purge()
}

// Len reports the number of stored entries, including ones pending expiry.
func (c *Cache[K, V]) Len() int {
	return c.lru.Len()
}

// Close releases the entries.
func (c *Cache[K, V]) Close() {
	c.lru.Purge()
}

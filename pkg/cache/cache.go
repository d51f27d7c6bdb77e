// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/phumiphatauk/tinystore/pkg/utils"
)

// entry wraps a value with access time for LRU eviction and TTL expiry
type entry[V any] struct {
	value      V
	lastAccess atomic.Int64 // Unix nano timestamp
}

// Cache is a concurrent string-keyed cache with lock striping.
//
//   - Optional TTL: entries expire after a configurable duration
//   - Optional max size: least recently accessed entry is evicted at capacity
//   - Optional load function for read-through misses
type Cache[V any] struct {
	store *utils.ShardedMap[*entry[V]]

	loadFunc func(ctx context.Context, key string) (V, error)

	// Max size (0 = unlimited)
	maxSize int

	// TTL expiry (0 = no expiry)
	expiry time.Duration

	cleanupTimer *time.Timer
	cleanupStop  chan struct{}
}

// Option configures a Cache
type Option[V any] func(*Cache[V])

// WithMaxSize sets the maximum total number of entries in the cache.
// When capacity is reached, the least recently accessed entry is evicted.
func WithMaxSize[V any](maxSize int) Option[V] {
	return func(c *Cache[V]) {
		c.maxSize = maxSize
	}
}

// WithExpiry sets the TTL for cache entries. Entries older than this
// duration are considered expired and won't be returned by Get().
// A background cleanup timer removes expired entries periodically.
func WithExpiry[V any](expiry time.Duration) Option[V] {
	return func(c *Cache[V]) {
		c.expiry = expiry
	}
}

// WithLoadFunc sets a function to call on cache misses.
// If set, GetOrLoad() will call this function when an entry is not found
// and cache the result for future requests.
func WithLoadFunc[V any](loadFunc func(ctx context.Context, key string) (V, error)) Option[V] {
	return func(c *Cache[V]) {
		c.loadFunc = loadFunc
	}
}

// New creates a new Cache with the given options.
func New[V any](opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		store:       utils.NewShardedMap[*entry[V]](),
		cleanupStop: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.expiry > 0 {
		c.startCleanup()
	}

	return c
}

func (c *Cache[V]) startCleanup() {
	c.cleanupTimer = time.AfterFunc(c.expiry, func() {
		c.cleanup()
		select {
		case <-c.cleanupStop:
			return
		default:
			c.cleanupTimer.Reset(c.expiry)
		}
	})
}

func (c *Cache[V]) cleanup() {
	if c.expiry == 0 {
		return
	}

	now := time.Now().UnixNano()
	expiryNanos := c.expiry.Nanoseconds()

	c.store.DeleteIf(func(_ string, e *entry[V]) bool {
		return now-e.lastAccess.Load() > expiryNanos
	})
}

// Stop stops the cleanup timer. Call this when the cache is no longer needed.
func (c *Cache[V]) Stop() {
	if c.cleanupTimer != nil {
		c.cleanupTimer.Stop()
		close(c.cleanupStop)
	}
}

// Get retrieves a value from the cache.
// Returns the value and true if found (and not expired), or zero value and false otherwise.
func (c *Cache[V]) Get(key string) (V, bool) {
	e, exists := c.store.Load(key)
	if !exists {
		var zero V
		return zero, false
	}

	if c.expiry > 0 {
		ts := e.lastAccess.Load()
		if time.Now().UnixNano()-ts > c.expiry.Nanoseconds() {
			var zero V
			return zero, false
		}
	}

	e.lastAccess.Store(time.Now().UnixNano())

	return e.value, true
}

// GetOrLoad retrieves a value from the cache, loading it if not present.
// Requires WithLoadFunc to be set.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string) (V, error) {
	if val, ok := c.Get(key); ok {
		return val, nil
	}

	if c.loadFunc == nil {
		var zero V
		return zero, nil
	}

	val, err := c.loadFunc(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}

	c.Set(key, val)
	return val, nil
}

// Set adds or updates a value in the cache.
func (c *Cache[V]) Set(key string, value V) {
	e := &entry[V]{value: value}
	e.lastAccess.Store(time.Now().UnixNano())

	if c.maxSize > 0 && c.store.Len() >= c.maxSize {
		c.evictOldest()
	}

	c.store.Store(key, e)
}

// evictOldest removes the least recently accessed entry from the cache.
func (c *Cache[V]) evictOldest() {
	var oldestKey string
	var oldestTime int64
	first := true

	c.store.Range(func(k string, e *entry[V]) bool {
		accessTime := e.lastAccess.Load()
		if first || accessTime < oldestTime {
			oldestKey = k
			oldestTime = accessTime
			first = false
		}
		return true
	})

	if !first {
		c.store.Delete(oldestKey)
	}
}

// Delete removes a key from the cache.
func (c *Cache[V]) Delete(key string) {
	c.store.Delete(key)
}

// Size returns the current number of entries across all shards.
func (c *Cache[V]) Size() int {
	return c.store.Len()
}

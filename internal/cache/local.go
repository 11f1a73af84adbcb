package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LocalCache is an in-process Store used when Redis is not configured.
// Entries share a single TTL fixed at construction. Counters live outside
// the LRU so they are never evicted.
type LocalCache struct {
	lru *expirable.LRU[string, string]

	mu       sync.Mutex
	counters map[string]int64
}

var _ Store = (*LocalCache)(nil)

// NewLocal creates a local cache holding at most size entries for ttl
func NewLocal(size int, ttl time.Duration) *LocalCache {
	return &LocalCache{
		lru:      expirable.NewLRU[string, string](size, nil, ttl),
		counters: make(map[string]int64),
	}
}

// Get retrieves a value from cache
func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	val, ok := c.lru.Get(key)
	if !ok {
		return "", ErrCacheMiss
	}
	return val, nil
}

// Set stores a value. ttl is ignored in favour of the cache-wide TTL.
func (c *LocalCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.lru.Add(key, value)
	return nil
}

// Delete removes keys from cache
func (c *LocalCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.lru.Remove(key)
	}
	return nil
}

// Counter reads an integer counter
func (c *LocalCache) Counter(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[key], nil
}

// Incr increments a counter
func (c *LocalCache) Incr(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	return c.counters[key], nil
}

// Health always succeeds
func (c *LocalCache) Health(context.Context) error {
	return nil
}

// Close purges the cache
func (c *LocalCache) Close() error {
	c.lru.Purge()
	c.mu.Lock()
	c.counters = make(map[string]int64)
	c.mu.Unlock()
	return nil
}

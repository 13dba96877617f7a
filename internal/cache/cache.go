// Package cache provides the two route cache tiers: a bounded in-process
// LRU with TTL expiration and a shared Redis store.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is a generic thread-safe LRU cache with TTL expiration.
type Cache[T any] struct {
	lru *expirable.LRU[string, T]
}

// New creates a cache holding at most size entries for ttl each.
func New[T any](size int, ttl time.Duration) *Cache[T] {
	if size < 1 {
		size = 1
	}
	return &Cache[T]{lru: expirable.NewLRU[string, T](size, nil, ttl)}
}

// Get retrieves a value, returning (value, true) if found and not expired
func (c *Cache[T]) Get(key string) (T, bool) {
	return c.lru.Get(key)
}

// Set stores a value with the cache's TTL, evicting the least recently
// used entry when full.
func (c *Cache[T]) Set(key string, value T) {
	c.lru.Add(key, value)
}

// Delete removes a key from the cache
func (c *Cache[T]) Delete(key string) {
	c.lru.Remove(key)
}

// Clear removes all items from the cache
func (c *Cache[T]) Clear() {
	c.lru.Purge()
}

// Size returns the number of unexpired items.
func (c *Cache[T]) Size() int {
	return c.lru.Len()
}

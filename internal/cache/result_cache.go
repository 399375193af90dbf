// Package cache provides a bounded, TTL-evicting result cache keyed by
// query and configuration. Staleness is acceptable; entries use
// last-write-wins semantics and the oldest entry is evicted when the
// size bound is hit.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// ResultCache wraps an expirable LRU with a stable string key.
type ResultCache[V any] struct {
	lru *expirable.LRU[string, V]
}

// New creates a cache holding at most size entries, each expiring after
// ttl. size <= 0 falls back to 128 entries; ttl <= 0 disables expiry.
func New[V any](size int, ttl time.Duration) *ResultCache[V] {
	if size <= 0 {
		size = 128
	}
	return &ResultCache[V]{
		lru: expirable.NewLRU[string, V](size, nil, ttl),
	}
}

// Get returns the cached value for key, if present and unexpired.
func (c *ResultCache[V]) Get(key string) (V, bool) {
	return c.lru.Get(key)
}

// Add stores the value under key, overwriting any previous entry.
func (c *ResultCache[V]) Add(key string, value V) {
	c.lru.Add(key, value)
}

// Len returns the number of live entries.
func (c *ResultCache[V]) Len() int {
	return c.lru.Len()
}

// Purge drops every entry.
func (c *ResultCache[V]) Purge() {
	c.lru.Purge()
}

// Key hashes the given parts into a stable cache key. Queries are
// hashed rather than stored verbatim so keys stay bounded.
func Key(parts ...string) string {
	h := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(h[:])
}

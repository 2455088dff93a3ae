// Package cache holds query embedding caches.
package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const minEntries = 16

// LRU is an in-process, size-bounded embedding cache with per-entry expiry.
type LRU struct {
	cache *lru.LRU[string, []float32]
}

// NewLRU creates an LRU holding at most size vectors for ttl each.
func NewLRU(size int, ttl time.Duration) *LRU {
	if size < minEntries {
		size = minEntries
	}
	return &LRU{
		cache: lru.NewLRU[string, []float32](size, nil, ttl),
	}
}

// Get returns a cached vector.
func (c *LRU) Get(_ context.Context, key string) ([]float32, bool) {
	return c.cache.Get(key)
}

// Set stores a vector.
func (c *LRU) Set(_ context.Context, key string, vector []float32) {
	c.cache.Add(key, vector)
}

// Len returns the number of live entries.
func (c *LRU) Len() int {
	return c.cache.Len()
}

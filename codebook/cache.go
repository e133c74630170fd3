package codebook

import (
	"math"

	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/internal/cache"
	"github.com/hupe1980/genohdc/resource"
)

// cacheKey scopes an entry to the codebook that produced it so one Cache
// can back several Random codebooks.
type cacheKey struct {
	seed  hypervector.Seed
	dim   int
	token string
}

// Cache is an LRU of derived item vectors bounded in bytes.
// A capacity <= 0 means unbounded. When a resource.Controller is attached,
// cached bytes are charged against its memory limit and entries that would
// exceed it are simply not cached.
type Cache struct {
	lru *cache.Map[cacheKey, hypervector.Hypervector]
}

// CacheStats is a snapshot of cache counters.
type CacheStats struct {
	Entries int
	Bytes   int64
	Hits    int64
	Misses  int64
}

// NewCache creates a cache holding at most capacity bytes of vector data.
func NewCache(capacity int64, rc *resource.Controller) *Cache {
	if capacity <= 0 {
		capacity = math.MaxInt64
	}
	return &Cache{
		lru: cache.New[cacheKey](capacity, rc, func(v hypervector.Hypervector) int64 {
			return int64(v.Len())
		}),
	}
}

func (c *Cache) get(key cacheKey) (hypervector.Hypervector, bool) {
	return c.lru.Get(key)
}

func (c *Cache) set(key cacheKey, v hypervector.Hypervector) {
	c.lru.Set(key, v)
}

// Clear drops every entry and releases its tracked memory.
func (c *Cache) Clear() {
	c.lru.Clear()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	hits, misses := c.lru.Stats()
	return CacheStats{
		Entries: c.lru.Len(),
		Bytes:   c.lru.Size(),
		Hits:    hits,
		Misses:  misses,
	}
}

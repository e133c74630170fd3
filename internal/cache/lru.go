package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/genohdc/resource"
)

// Map is a byte-bounded least-recently-used cache. sizeOf reports the bytes
// each value is charged for.
type Map[K comparable, V any] struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[K]*list.Element
	evictList *list.List
	rc        *resource.Controller
	sizeOf    func(V) int64

	hits   atomic.Int64
	misses atomic.Int64
}

type entry[K comparable, V any] struct {
	key   K
	value V
}

// New creates a cache holding at most capacity bytes as measured by sizeOf.
// If rc is provided, it will be used to track memory usage.
func New[K comparable, V any](capacity int64, rc *resource.Controller, sizeOf func(V) int64) *Map[K, V] {
	return &Map[K, V]{
		capacity:  capacity,
		items:     make(map[K]*list.Element),
		evictList: list.New(),
		rc:        rc,
		sizeOf:    sizeOf,
	}
}

// LRU is a byte-bounded cache of blob content keyed by blob name.
// Cached slices must be treated as read-only.
type LRU = Map[string, []byte]

// NewLRU creates a blob cache holding at most capacity bytes.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return New[string, []byte](capacity, rc, func(b []byte) int64 { return int64(len(b)) })
}

// Get returns a cached value.
func (c *Map[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry[K, V]).value, true
	}
	c.misses.Add(1)
	var zero V
	return zero, false
}

// Set caches a value. Values larger than the capacity are not cached.
func (c *Map[K, V]) Set(key K, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
	}

	itemSize := c.sizeOf(v)
	if itemSize > c.capacity {
		return
	}

	// Evict locally first so released memory is available to the controller.
	for c.size+itemSize > c.capacity {
		ent := c.evictList.Back()
		if ent == nil {
			break
		}
		c.removeElement(ent)
	}

	if !c.rc.TryAcquireMemory(itemSize) {
		return
	}

	c.items[key] = c.evictList.PushFront(&entry[K, V]{key, v})
	c.size += itemSize
}

// Remove drops key.
func (c *Map[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.removeElement(ent)
	}
}

// Clear drops every entry and releases its tracked memory.
func (c *Map[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for ent := c.evictList.Back(); ent != nil; ent = c.evictList.Back() {
		c.removeElement(ent)
	}
}

// Stats returns hit and miss counts.
func (c *Map[K, V]) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Size returns the current size of the cache in bytes.
func (c *Map[K, V]) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Len returns the number of cached values.
func (c *Map[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Map[K, V]) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	kv := e.Value.(*entry[K, V])
	delete(c.items, kv.key)
	itemSize := c.sizeOf(kv.value)
	c.size -= itemSize
	c.rc.ReleaseMemory(itemSize)
}

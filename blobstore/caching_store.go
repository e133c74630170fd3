package blobstore

import (
	"context"
	"slices"

	"github.com/hupe1980/genohdc/internal/cache"
	"github.com/hupe1980/genohdc/resource"
)

// CachingStore wraps a Store and caches whole blobs read through Get.
// Writes and deletes go to the inner store and invalidate the cached entry.
type CachingStore struct {
	inner Store
	cache *cache.LRU
}

var _ Store = (*CachingStore)(nil)

// NewCachingStore caches up to capacity bytes. If rc is non-nil the cached
// bytes count toward its memory limit.
func NewCachingStore(inner Store, capacity int64, rc *resource.Controller) *CachingStore {
	return &CachingStore{
		inner: inner,
		cache: cache.NewLRU(capacity, rc),
	}
}

// Get serves from the cache, filling it on a miss.
func (s *CachingStore) Get(ctx context.Context, name string) ([]byte, error) {
	if data, ok := s.cache.Get(name); ok {
		return slices.Clone(data), nil
	}
	data, err := s.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.Set(name, slices.Clone(data))
	return data, nil
}

// Put writes through and drops the cached copy.
func (s *CachingStore) Put(ctx context.Context, name string, data []byte) error {
	s.cache.Remove(name)
	return s.inner.Put(ctx, name, data)
}

// Delete removes the blob and its cached copy.
func (s *CachingStore) Delete(ctx context.Context, name string) error {
	s.cache.Remove(name)
	return s.inner.Delete(ctx, name)
}

// List is not cached.
func (s *CachingStore) List(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.List(ctx, prefix)
}

// Exists answers from the cache when possible.
func (s *CachingStore) Exists(ctx context.Context, name string) (bool, error) {
	if _, ok := s.cache.Get(name); ok {
		return true, nil
	}
	return s.inner.Exists(ctx, name)
}

// Stats returns cache hits and misses.
func (s *CachingStore) Stats() (hits, misses int64) {
	return s.cache.Stats()
}

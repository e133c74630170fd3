package codebook

import (
	"github.com/hupe1980/genohdc/hypervector"
)

// Random derives item vectors from a seed and memoizes them.
type Random struct {
	seed  hypervector.Seed
	dim   int
	cache *Cache
}

// Option configures a Random codebook.
type Option func(*Random)

// WithDimension sets a non-canonical vector dimension.
func WithDimension(dim int) Option {
	return func(r *Random) {
		r.dim = dim
	}
}

// WithCache shares an existing cache. If nil is passed, memoization is disabled.
func WithCache(c *Cache) Option {
	return func(r *Random) {
		r.cache = c
	}
}

// NewRandom creates a seed-derived codebook with its own unbounded cache.
func NewRandom(seed hypervector.Seed, optFns ...Option) (*Random, error) {
	r := &Random{
		seed:  seed,
		dim:   hypervector.Dimension,
		cache: NewCache(0, nil),
	}
	for _, fn := range optFns {
		fn(r)
	}
	if _, err := hypervector.New(r.dim); err != nil {
		return nil, err
	}
	return r, nil
}

// Seed returns the codebook seed.
func (r *Random) Seed() hypervector.Seed { return r.seed }

// Dimension implements Codebook.
func (r *Random) Dimension() int { return r.dim }

// Cache returns the backing cache, or nil if memoization is disabled.
func (r *Random) Cache() *Cache { return r.cache }

// Vector implements Codebook. It never fails.
func (r *Random) Vector(token string) (hypervector.Hypervector, error) {
	return r.MustVector(token), nil
}

// MustVector returns the item vector for token.
func (r *Random) MustVector(token string) hypervector.Hypervector {
	key := cacheKey{seed: r.seed, dim: r.dim, token: token}
	if r.cache != nil {
		if v, ok := r.cache.get(key); ok {
			return v
		}
	}

	var v hypervector.Hypervector
	if r.dim == hypervector.Dimension {
		v = hypervector.Random(r.seed, token)
	} else {
		// Dimension was validated in NewRandom.
		v, _ = hypervector.RandomWithDimension(r.seed, token, r.dim)
	}

	if r.cache != nil {
		r.cache.set(key, v)
	}
	return v
}

// Precompute derives and caches the vectors for tokens up front.
func (r *Random) Precompute(tokens []string) {
	for _, t := range tokens {
		r.MustVector(t)
	}
}

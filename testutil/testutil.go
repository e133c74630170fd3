package testutil

import (
	"math"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/hupe1980/genohdc/distance"
	"github.com/hupe1980/genohdc/hypervector"
)

// SearchResult represents a search result by corpus position.
type SearchResult struct {
	Index      int
	Similarity float64
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed uint64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewPCG(seed, seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = rand.New(rand.NewPCG(r.seed, r.seed))
}

// Seed returns the initial seed.
func (r *RNG) Seed() uint64 {
	return r.seed
}

// IntN returns a non-negative pseudo-random number in [0,n).
func (r *RNG) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.IntN(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Vector returns a hypervector of dimension dim with uniform random bits.
// dim must be a positive multiple of 8.
func (r *RNG) Vector(dim int) hypervector.Hypervector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.vectorLocked(dim)
}

func (r *RNG) vectorLocked(dim int) hypervector.Hypervector {
	b := make([]byte, dim/8)
	for i := range b {
		b[i] = byte(r.rand.Uint32())
	}
	v, err := hypervector.FromBytesWithDimension(b, dim)
	if err != nil {
		panic(err)
	}
	return v
}

// Vectors generates num random hypervectors.
func (r *RNG) Vectors(num, dim int) []hypervector.Hypervector {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]hypervector.Hypervector, num)
	for i := range out {
		out[i] = r.vectorLocked(dim)
	}
	return out
}

// Flip returns a copy of v with each bit flipped with probability p.
func (r *RNG) Flip(v hypervector.Hypervector, p float64) hypervector.Hypervector {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.flipLocked(v, p)
}

func (r *RNG) flipLocked(v hypervector.Hypervector, p float64) hypervector.Hypervector {
	b := v.Bytes()
	for i := range b {
		for bit := 0; bit < 8; bit++ {
			if r.rand.Float64() < p {
				b[i] ^= 1 << bit
			}
		}
	}
	out, err := hypervector.FromBytesWithDimension(b, v.Dimension())
	if err != nil {
		panic(err)
	}
	return out
}

// ClusteredVectors generates num vectors around clusters random centroids.
// Vector i belongs to cluster i%clusters and differs from its centroid by
// bits flipped with probability noise. It also returns the centroids.
func (r *RNG) ClusteredVectors(num, dim, clusters int, noise float64) ([]hypervector.Hypervector, []hypervector.Hypervector) {
	centroids := r.Vectors(clusters, dim)

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]hypervector.Hypervector, num)
	for i := range out {
		out[i] = r.flipLocked(centroids[i%clusters], noise)
	}
	return out, centroids
}

const nucleotides = "ACGT"

// DNA returns a random ACGT sequence of the given length.
func (r *RNG) DNA(length int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dnaLocked(length)
}

func (r *RNG) dnaLocked(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = nucleotides[r.rand.IntN(4)]
	}
	return string(b)
}

// DNASequences returns num random sequences of the given length.
func (r *RNG) DNASequences(num, length int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, num)
	for i := range out {
		out[i] = r.dnaLocked(length)
	}
	return out
}

// Mutate returns seq with each base replaced by a different random base with
// probability rate.
func (r *RNG) Mutate(seq string, rate float64) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := []byte(seq)
	for i := range b {
		if r.rand.Float64() < rate {
			j := r.rand.IntN(3)
			if j >= indexOf(b[i]) {
				j++
			}
			b[i] = nucleotides[j]
		}
	}
	return string(b)
}

func indexOf(c byte) int {
	for i := 0; i < len(nucleotides); i++ {
		if nucleotides[i] == c {
			return i
		}
	}
	return 0
}

// Zipf returns a Zipfian-distributed value in [0, n).
// Uses Zipf's law: P(k) ∝ 1/k^s where s is the skew parameter.
func (r *RNG) Zipf(n int, s float64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.zipfLocked(n, s)
}

func (r *RNG) zipfLocked(n int, s float64) int {
	if n <= 1 {
		return 0
	}

	var hns float64
	for i := 1; i <= n; i++ {
		hns += 1.0 / math.Pow(float64(i), s)
	}

	u := r.rand.Float64() * hns
	var cumulative float64
	for k := 1; k <= n; k++ {
		cumulative += 1.0 / math.Pow(float64(k), s)
		if u <= cumulative {
			return k - 1
		}
	}
	return n - 1
}

// ZipfBuckets generates n bucket assignments with Zipfian distribution.
func (r *RNG) ZipfBuckets(n, bucketCount int, s float64) []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	buckets := make([]int, n)
	for i := range buckets {
		buckets[i] = r.zipfLocked(bucketCount, s)
	}
	return buckets
}

// ExactTopK scores every corpus vector against query under m and returns
// the k best, ties broken by corpus position.
func ExactTopK(query hypervector.Hypervector, corpus []hypervector.Hypervector, k int, m distance.Metric) ([]SearchResult, error) {
	sim := distance.Provider(m)

	results := make([]SearchResult, len(corpus))
	for i, v := range corpus {
		s, err := sim(query, v)
		if err != nil {
			return nil, err
		}
		results[i] = SearchResult{Index: i, Similarity: s}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if k < len(results) {
		results = results[:max(k, 0)]
	}
	return results, nil
}

// ComputeRecall computes recall@k by comparing approximate results against ground truth.
func ComputeRecall(groundTruth, approximate []SearchResult) float64 {
	if len(groundTruth) == 0 || len(approximate) == 0 {
		if len(groundTruth) == 0 && len(approximate) == 0 {
			return 1.0
		}
		return 0.0
	}

	k := min(len(approximate), len(groundTruth))

	truthSet := make(map[int]struct{}, k)
	for i := range k {
		truthSet[groundTruth[i].Index] = struct{}{}
	}

	hits := 0
	for _, r := range approximate[:k] {
		if _, ok := truthSet[r.Index]; ok {
			hits++
		}
	}

	return float64(hits) / float64(k)
}

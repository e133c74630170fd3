package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genohdc/distance"
	"github.com/hupe1980/genohdc/hypervector"
)

func TestVectors(t *testing.T) {
	rng := NewRNG(4711)

	vs := rng.Vectors(8, 256)

	require.Len(t, vs, 8)
	for _, v := range vs {
		assert.Equal(t, 256, v.Dimension())
	}
	assert.False(t, vs[0].Equal(vs[1]))

	big := rng.Vector(hypervector.Dimension)
	assert.InDelta(t, 0.5, big.Density(), 0.05)
}

func TestReset(t *testing.T) {
	rng := NewRNG(4711)
	v1 := rng.Vector(128)
	s1 := rng.DNA(20)

	rng.Reset()
	v2 := rng.Vector(128)
	s2 := rng.DNA(20)

	assert.True(t, v1.Equal(v2))
	assert.Equal(t, s1, s2)
	assert.Equal(t, uint64(4711), rng.Seed())
}

func TestFlip(t *testing.T) {
	rng := NewRNG(1)
	v := rng.Vector(hypervector.Dimension)

	assert.True(t, rng.Flip(v, 0).Equal(v))

	near := rng.Flip(v, 0.1)
	s, err := hypervector.HammingSimilarity(v, near)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, s, 0.02)
}

func TestClusteredVectors(t *testing.T) {
	rng := NewRNG(7)

	vs, centroids := rng.ClusteredVectors(20, 1024, 4, 0.05)

	require.Len(t, vs, 20)
	require.Len(t, centroids, 4)
	for i, v := range vs {
		s, err := hypervector.HammingSimilarity(v, centroids[i%4])
		require.NoError(t, err)
		assert.Greater(t, s, 0.85)
	}
}

func TestDNA(t *testing.T) {
	rng := NewRNG(3)

	seqs := rng.DNASequences(5, 40)
	require.Len(t, seqs, 5)
	for _, s := range seqs {
		assert.Len(t, s, 40)
		for _, c := range s {
			assert.Contains(t, "ACGT", string(c))
		}
	}

	t.Run("mutate", func(t *testing.T) {
		orig := seqs[0]
		assert.Equal(t, orig, rng.Mutate(orig, 0))

		all := rng.Mutate(orig, 1)
		require.Len(t, all, len(orig))
		for i := range orig {
			assert.NotEqual(t, orig[i], all[i])
		}
	})
}

func TestZipfBuckets(t *testing.T) {
	rng := NewRNG(42)

	buckets := rng.ZipfBuckets(5000, 20, 1.5)

	counts := make([]int, 20)
	for _, b := range buckets {
		require.GreaterOrEqual(t, b, 0)
		require.Less(t, b, 20)
		counts[b]++
	}
	assert.Greater(t, counts[0], counts[19])
	assert.Equal(t, 0, rng.Zipf(1, 1.5))
}

func TestExactTopK(t *testing.T) {
	rng := NewRNG(9)
	corpus := rng.Vectors(10, 512)
	corpus = append(corpus, corpus[3])

	res, err := ExactTopK(corpus[3], corpus, 3, distance.MetricHamming)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, SearchResult{Index: 3, Similarity: 1}, res[0])
	assert.Equal(t, SearchResult{Index: 10, Similarity: 1}, res[1])

	all, err := ExactTopK(corpus[0], corpus, 100, distance.MetricCosine)
	require.NoError(t, err)
	assert.Len(t, all, len(corpus))

	none, err := ExactTopK(corpus[0], corpus, -1, distance.MetricCosine)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = ExactTopK(rng.Vector(64), corpus, 1, distance.MetricCosine)
	assert.Error(t, err)
}

func TestComputeRecall(t *testing.T) {
	truth := []SearchResult{{Index: 1}, {Index: 2}, {Index: 3}}

	tests := []struct {
		name   string
		approx []SearchResult
		want   float64
	}{
		{"identical", truth, 1},
		{"partial", []SearchResult{{Index: 1}, {Index: 9}, {Index: 3}}, 2.0 / 3},
		{"empty approx", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ComputeRecall(truth, tt.approx), 1e-9)
		})
	}

	assert.Equal(t, 1.0, ComputeRecall(nil, nil))
}

package batch

import (
	"context"
	"sort"

	"github.com/hupe1980/genohdc/distance"
	"github.com/hupe1980/genohdc/hypervector"
)

// Pair is one entry of a similarity matrix.
type Pair struct {
	I, J       int
	Similarity float64
}

// SimilarityMatrix holds pairwise similarities of n vectors, row-major.
type SimilarityMatrix struct {
	n    int
	data []float64
}

// NewSimilarityMatrix computes all pairwise similarities under m. Only the
// upper triangle is computed; the diagonal is the self-similarity.
func NewSimilarityMatrix(ctx context.Context, vectors []hypervector.Hypervector, m distance.Metric) (*SimilarityMatrix, error) {
	n := len(vectors)
	sim := distance.Provider(m)
	mx := &SimilarityMatrix{n: n, data: make([]float64, n*n)}
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := i; j < n; j++ {
			s, err := sim(vectors[i], vectors[j])
			if err != nil {
				return nil, err
			}
			mx.data[i*n+j] = s
			mx.data[j*n+i] = s
		}
	}
	return mx, nil
}

// Size returns the number of rows.
func (m *SimilarityMatrix) Size() int { return m.n }

// Get returns the similarity of i and j.
func (m *SimilarityMatrix) Get(i, j int) float64 { return m.data[i*m.n+j] }

// Row returns a copy of row i.
func (m *SimilarityMatrix) Row(i int) []float64 {
	out := make([]float64, m.n)
	copy(out, m.data[i*m.n:(i+1)*m.n])
	return out
}

// Rows returns the matrix as nested slices.
func (m *SimilarityMatrix) Rows() [][]float64 {
	out := make([][]float64, m.n)
	for i := range out {
		out[i] = m.Row(i)
	}
	return out
}

// MostSimilarPair returns the off-diagonal pair with the highest similarity,
// the first one in row-major order on ties. It reports false for fewer than
// two vectors.
func (m *SimilarityMatrix) MostSimilarPair() (Pair, bool) {
	best, found := Pair{}, false
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			if s := m.Get(i, j); !found || s > best.Similarity {
				best, found = Pair{I: i, J: j, Similarity: s}, true
			}
		}
	}
	return best, found
}

// PairsAboveThreshold returns the off-diagonal pairs i<j with similarity
// ≥ threshold, most similar first.
func (m *SimilarityMatrix) PairsAboveThreshold(threshold float64) []Pair {
	var out []Pair
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			if s := m.Get(i, j); s >= threshold {
				out = append(out, Pair{I: i, J: j, Similarity: s})
			}
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Similarity > out[b].Similarity })
	return out
}

// AverageSimilarity returns the mean off-diagonal similarity, 0 for fewer
// than two vectors.
func (m *SimilarityMatrix) AverageSimilarity() float64 {
	if m.n < 2 {
		return 0
	}
	sum := 0.0
	for i := 0; i < m.n; i++ {
		for j := i + 1; j < m.n; j++ {
			sum += m.Get(i, j)
		}
	}
	return sum / float64(m.n*(m.n-1)/2)
}

// Match is one corpus hit.
type Match struct {
	Index      int     `json:"index"`
	Similarity float64 `json:"similarity"`
}

func score(query hypervector.Hypervector, corpus []hypervector.Hypervector, m distance.Metric) ([]Match, error) {
	sim := distance.Provider(m)
	out := make([]Match, len(corpus))
	for i, v := range corpus {
		s, err := sim(query, v)
		if err != nil {
			return nil, err
		}
		out[i] = Match{Index: i, Similarity: s}
	}
	return out, nil
}

// TopK returns the k corpus vectors most similar to query, ties broken by
// corpus order.
func TopK(query hypervector.Hypervector, corpus []hypervector.Hypervector, k int, m distance.Metric) ([]Match, error) {
	if k <= 0 {
		return []Match{}, nil
	}
	all, err := score(query, corpus, m)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].Similarity > all[b].Similarity })
	if len(all) > k {
		all = all[:k]
	}
	return all, nil
}

// AboveThreshold returns every corpus vector with similarity ≥ threshold,
// most similar first.
func AboveThreshold(query hypervector.Hypervector, corpus []hypervector.Hypervector, threshold float64, m distance.Metric) ([]Match, error) {
	all, err := score(query, corpus, m)
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, mt := range all {
		if mt.Similarity >= threshold {
			out = append(out, mt)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Similarity > out[b].Similarity })
	return out, nil
}

package hypervector

import "github.com/hupe1980/genohdc/internal/simd"

// checkComparable rejects mismatched and dimensionless operands; a
// similarity over zero bits is undefined.
func checkComparable(a, b Hypervector) error {
	if err := checkDims(a, b); err != nil {
		return err
	}
	if a.dim == 0 {
		return &ErrInvalidDimension{Dimension: 0}
	}
	return nil
}

// HammingDistance returns the number of differing bits.
func HammingDistance(a, b Hypervector) (int, error) {
	if err := checkComparable(a, b); err != nil {
		return 0, err
	}
	return simd.Hamming(a.data, b.data), nil
}

// HammingSimilarity returns the fraction of matching bits in [0, 1].
func HammingSimilarity(a, b Hypervector) (float64, error) {
	d, err := HammingDistance(a, b)
	if err != nil {
		return 0, err
	}
	return float64(a.dim-d) / float64(a.dim), nil
}

// CosineSimilarity maps bits to ±1 and returns (2*matching - D) / D in [-1, 1].
func CosineSimilarity(a, b Hypervector) (float64, error) {
	d, err := HammingDistance(a, b)
	if err != nil {
		return 0, err
	}
	matching := a.dim - d
	return float64(2*matching-a.dim) / float64(a.dim), nil
}

// NormalizedCosineSimilarity rescales cosine similarity to [0, 1].
// It is numerically equal to HammingSimilarity.
func NormalizedCosineSimilarity(a, b Hypervector) (float64, error) {
	c, err := CosineSimilarity(a, b)
	if err != nil {
		return 0, err
	}
	return (c + 1) / 2, nil
}

// JaccardSimilarity returns |a AND b| / |a OR b|, or 1.0 when both are all-zero.
func JaccardSimilarity(a, b Hypervector) (float64, error) {
	if err := checkComparable(a, b); err != nil {
		return 0, err
	}
	union := simd.OrCount(a.data, b.data)
	if union == 0 {
		return 1.0, nil
	}
	return float64(simd.AndCount(a.data, b.data)) / float64(union), nil
}

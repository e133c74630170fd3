package hypervector

import (
	"math"

	"github.com/hupe1980/genohdc/internal/simd"
)

// Bind returns a XOR b. Binding is commutative and self-inverse:
// Bind(Bind(a, b), b) == a.
func Bind(a, b Hypervector) (Hypervector, error) {
	if err := checkDims(a, b); err != nil {
		return Hypervector{}, err
	}
	out := make([]byte, len(a.data))
	simd.XorBytes(out, a.data, b.data)
	return Hypervector{dim: a.dim, data: out}, nil
}

// Bundle returns the per-bit majority of vs. A bit is set iff it is set in
// more than half of the inputs; exact ties resolve to 0. An empty input
// yields the canonical zero vector.
func Bundle(vs []Hypervector) (Hypervector, error) {
	return BundleWithDimension(vs, Dimension)
}

// BundleWithDimension is Bundle with an explicit dimension for the empty case.
// Non-empty inputs must all have dimension dim.
func BundleWithDimension(vs []Hypervector, dim int) (Hypervector, error) {
	if len(vs) == 0 {
		return New(dim)
	}
	dim = vs[0].dim
	if err := validateDimension(dim); err != nil {
		return Hypervector{}, err
	}

	counts := make([]uint32, dim)
	for _, v := range vs {
		if v.dim != dim {
			return Hypervector{}, &ErrDimensionMismatch{Expected: dim, Actual: v.dim}
		}
		simd.Accumulate(counts, v.data)
	}

	n := uint64(len(vs))
	out := make([]byte, dim/8)
	for i, c := range counts {
		if 2*uint64(c) > n {
			out[i>>3] |= 1 << (i & 7)
		}
	}
	return Hypervector{dim: dim, data: out}, nil
}

// Weighted pairs a vector with its bundle weight.
type Weighted struct {
	Vector Hypervector
	Weight float64
}

// WeightedBundle sets a bit iff the summed weight of inputs having that bit
// set exceeds half the total weight; ties resolve to 0. Weights must be
// finite and non-negative. An empty input yields the canonical zero vector.
func WeightedBundle(ws []Weighted) (Hypervector, error) {
	if len(ws) == 0 {
		return Zero(), nil
	}
	dim := ws[0].Vector.dim
	if err := validateDimension(dim); err != nil {
		return Hypervector{}, err
	}

	sums := make([]float64, dim)
	total := 0.0
	for i, w := range ws {
		if w.Vector.dim != dim {
			return Hypervector{}, &ErrDimensionMismatch{Expected: dim, Actual: w.Vector.dim}
		}
		if w.Weight < 0 || math.IsNaN(w.Weight) || math.IsInf(w.Weight, 0) {
			return Hypervector{}, &ErrInvalidWeight{Index: i, Weight: w.Weight}
		}
		total += w.Weight
		simd.AccumulateWeighted(sums, w.Vector.data, w.Weight)
	}

	half := total / 2
	out := make([]byte, dim/8)
	for i, s := range sums {
		if s > half {
			out[i>>3] |= 1 << (i & 7)
		}
	}
	return Hypervector{dim: dim, data: out}, nil
}

// Permute cyclically rotates v so that bit i moves to (i + shift) mod D.
// Negative shifts rotate the other way.
func Permute(v Hypervector, shift int) Hypervector {
	if v.dim == 0 {
		return v
	}
	s := shift % v.dim
	if s < 0 {
		s += v.dim
	}
	if s == 0 {
		return v.Clone()
	}
	out := make([]byte, len(v.data))
	simd.RotateBits(out, v.data, s)
	return Hypervector{dim: v.dim, data: out}
}

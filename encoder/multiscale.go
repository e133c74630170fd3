package encoder

import (
	"errors"
	"slices"

	"github.com/hupe1980/genohdc/codebook"
	"github.com/hupe1980/genohdc/hypervector"
)

// DefaultScales are the k values used when none are given: local (4),
// medium-range (6) and motif-length (8) patterns.
var DefaultScales = []int{4, 6, 8}

// ScaleResult is the encoding at one k.
type ScaleResult struct {
	K         int
	KmerCount int
	Vector    hypervector.Hypervector
}

// MultiScaleSequence is the result of multi-scale encoding.
type MultiScaleSequence struct {
	// Vector bundles the per-scale vectors.
	Vector         hypervector.Hypervector
	Scales         []ScaleResult
	SequenceLength int
}

// Similarity compares combined vectors by Hamming similarity.
func (m MultiScaleSequence) Similarity(other MultiScaleSequence) (float64, error) {
	return hypervector.HammingSimilarity(m.Vector, other.Vector)
}

// PerScaleSimilarity compares the vectors of every k present in both
// encodings. Combining them into a single score is left to the caller.
func (m MultiScaleSequence) PerScaleSimilarity(other MultiScaleSequence) (map[int]float64, error) {
	out := make(map[int]float64, len(m.Scales))
	for _, a := range m.Scales {
		for _, b := range other.Scales {
			if a.K != b.K {
				continue
			}
			s, err := hypervector.HammingSimilarity(a.Vector, b.Vector)
			if err != nil {
				return nil, err
			}
			out[a.K] = s
		}
	}
	return out, nil
}

// MultiScaleEncoder runs the DNA k-mer algorithm at several k.
type MultiScaleEncoder struct {
	encoders []*DNAEncoder
}

// NewMultiScaleEncoder creates one DNAEncoder per scale over a shared codebook.
// An empty scales list uses DefaultScales.
func NewMultiScaleEncoder(cb codebook.Codebook, scales []int, optFns ...DNAOption) (*MultiScaleEncoder, error) {
	if len(scales) == 0 {
		scales = DefaultScales
	}
	m := &MultiScaleEncoder{}
	for _, k := range scales {
		e, err := NewDNAEncoder(cb, k, optFns...)
		if err != nil {
			return nil, err
		}
		m.encoders = append(m.encoders, e)
	}
	return m, nil
}

// Scales returns the configured k values in order.
func (m *MultiScaleEncoder) Scales() []int {
	out := make([]int, len(m.encoders))
	for i, e := range m.encoders {
		out[i] = e.k
	}
	return out
}

// Encode encodes seq at every scale it is long enough for. If no scale fits
// the result is *ErrSequenceTooShort against the smallest scale.
func (m *MultiScaleEncoder) Encode(seq string) (MultiScaleSequence, error) {
	out := MultiScaleSequence{SequenceLength: len(seq)}
	vectors := make([]hypervector.Hypervector, 0, len(m.encoders))

	for _, e := range m.encoders {
		if len(seq) < e.k {
			continue
		}
		enc, err := e.Encode(seq)
		if err != nil {
			var tooShort *ErrSequenceTooShort
			if errors.As(err, &tooShort) {
				continue
			}
			return MultiScaleSequence{}, err
		}
		out.Scales = append(out.Scales, ScaleResult{K: e.k, KmerCount: enc.KmerCount, Vector: enc.Vector})
		vectors = append(vectors, enc.Vector)
	}

	if len(vectors) == 0 {
		return MultiScaleSequence{}, &ErrSequenceTooShort{Length: len(seq), K: slices.Min(m.Scales())}
	}

	v, err := hypervector.Bundle(vectors)
	if err != nil {
		return MultiScaleSequence{}, err
	}
	out.Vector = v
	return out, nil
}

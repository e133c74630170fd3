package vcf

import (
	"sort"

	"github.com/hupe1980/genohdc/codebook"
	"github.com/hupe1980/genohdc/encoder"
	"github.com/hupe1980/genohdc/hypervector"
)

// DefaultPositionWindow bounds the rotation applied by EncodePositional.
const DefaultPositionWindow = 1000

// Encoded is an encoded variant set.
type Encoded struct {
	Vector       hypervector.Hypervector
	VariantCount int      // variants bundled
	Skipped      int      // variants without a called genotype
	Chromosomes  []string // distinct chromosomes in first-seen order
}

// VariantEncoder encodes variant sets through a codebook.
type VariantEncoder struct {
	cb     codebook.Codebook
	window int
}

// EncoderOption configures a VariantEncoder.
type EncoderOption func(*VariantEncoder)

// WithPositionWindow sets the permutation window of EncodePositional.
func WithPositionWindow(n int) EncoderOption {
	return func(e *VariantEncoder) {
		e.window = n
	}
}

// NewVariantEncoder creates an encoder over cb.
func NewVariantEncoder(cb codebook.Codebook, optFns ...EncoderOption) *VariantEncoder {
	e := &VariantEncoder{cb: cb, window: DefaultPositionWindow}
	for _, fn := range optFns {
		fn(e)
	}
	if e.window <= 0 {
		e.window = DefaultPositionWindow
	}
	return e
}

// Encode bundles the item vectors of Variant.Key for every called variant.
// An empty set, or one with no called genotype, is encoder.ErrEmptyInput.
func (e *VariantEncoder) Encode(variants []Variant) (Encoded, error) {
	return e.encode(variants, func(_ int, v Variant) (hypervector.Hypervector, error) {
		return e.cb.Vector(v.Key())
	})
}

// EncodePositional bundles the item vectors of Variant.PositionalKey, each
// rotated by its index in variants modulo the position window.
func (e *VariantEncoder) EncodePositional(variants []Variant) (Encoded, error) {
	return e.encode(variants, func(i int, v Variant) (hypervector.Hypervector, error) {
		hv, err := e.cb.Vector(v.PositionalKey())
		if err != nil {
			return hypervector.Hypervector{}, err
		}
		return hypervector.Permute(hv, i%e.window), nil
	})
}

// EncodePanel encodes only the variants whose ID is in rsids.
func (e *VariantEncoder) EncodePanel(variants []Variant, rsids []string) (Encoded, error) {
	want := make(map[string]struct{}, len(rsids))
	for _, id := range rsids {
		want[id] = struct{}{}
	}
	filtered := make([]Variant, 0, len(rsids))
	for _, v := range variants {
		if _, ok := want[v.ID]; ok {
			filtered = append(filtered, v)
		}
	}
	return e.Encode(filtered)
}

func (e *VariantEncoder) encode(variants []Variant, item func(i int, v Variant) (hypervector.Hypervector, error)) (Encoded, error) {
	if len(variants) == 0 {
		return Encoded{}, encoder.ErrEmptyInput
	}

	var (
		out  Encoded
		vs   = make([]hypervector.Hypervector, 0, len(variants))
		seen = make(map[string]struct{})
	)
	for i, v := range variants {
		if !v.Called() {
			out.Skipped++
			continue
		}
		hv, err := item(i, v)
		if err != nil {
			return Encoded{}, err
		}
		vs = append(vs, hv)
		if _, ok := seen[v.Chrom]; !ok {
			seen[v.Chrom] = struct{}{}
			out.Chromosomes = append(out.Chromosomes, v.Chrom)
		}
	}
	if len(vs) == 0 {
		return Encoded{}, encoder.ErrEmptyInput
	}

	bundled, err := hypervector.BundleWithDimension(vs, e.cb.Dimension())
	if err != nil {
		return Encoded{}, err
	}
	out.Vector = bundled
	out.VariantCount = len(vs)
	return out, nil
}

// CountGenotypes tallies genotype classes over variants with a GT field.
func CountGenotypes(variants []Variant) map[Genotype]int {
	out := make(map[Genotype]int)
	for _, v := range variants {
		if v.HasGenotype {
			out[v.Genotype]++
		}
	}
	return out
}

// RSIDs returns the distinct non-"." IDs in variants, sorted.
func RSIDs(variants []Variant) []string {
	seen := make(map[string]struct{}, len(variants))
	for _, v := range variants {
		if v.ID != "" && v.ID != "." {
			seen[v.ID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

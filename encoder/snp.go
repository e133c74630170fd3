package encoder

import (
	"strconv"
	"strings"

	"github.com/hupe1980/genohdc/codebook"
	"github.com/hupe1980/genohdc/hypervector"
)

// SNP is one panel entry.
type SNP struct {
	RSID   string
	Allele string
}

// Token returns the codebook token "rsID:allele".
func (s SNP) Token() string { return s.RSID + ":" + s.Allele }

// ParseSNP parses "rsID:allele".
func ParseSNP(s string) (SNP, error) {
	i := strings.LastIndexByte(s, ':')
	if i < 0 {
		return SNP{}, &ErrInvalidToken{Token: s, Position: -1, Reason: "expected rsID:allele"}
	}
	snp := SNP{RSID: s[:i], Allele: strings.ToUpper(s[i+1:])}
	return snp, snp.validate()
}

func (s SNP) validate() error {
	if s.RSID == "" {
		return &ErrInvalidToken{Token: s.Token(), Position: -1, Reason: "empty rsID"}
	}
	if s.Allele == "" {
		return &ErrInvalidToken{Token: s.Token(), Position: -1, Reason: "empty allele"}
	}
	for i := 0; i < len(s.Allele); i++ {
		switch s.Allele[i] {
		case 'A', 'C', 'G', 'T', 'N', '-':
		default:
			return &ErrInvalidToken{Token: s.Token(), Position: i, Reason: "allele must use A, C, G, T, N or -"}
		}
	}
	return nil
}

// SNPEncoder encodes SNP panels.
type SNPEncoder struct {
	cb codebook.Codebook
}

// NewSNPEncoder creates an SNP panel encoder.
func NewSNPEncoder(cb codebook.Codebook) *SNPEncoder {
	return &SNPEncoder{cb: cb}
}

func (e *SNPEncoder) vectors(snps []SNP) ([]hypervector.Hypervector, error) {
	if len(snps) == 0 {
		return nil, ErrEmptyInput
	}
	out := make([]hypervector.Hypervector, len(snps))
	for i, s := range snps {
		if err := s.validate(); err != nil {
			return nil, err
		}
		v, err := e.cb.Vector(s.Token())
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// EncodePanel bundles the item vectors of snps.
func (e *SNPEncoder) EncodePanel(snps []SNP) (hypervector.Hypervector, error) {
	vs, err := e.vectors(snps)
	if err != nil {
		return hypervector.Hypervector{}, err
	}
	return hypervector.BundleWithDimension(vs, e.cb.Dimension())
}

// EncodeWeightedPanel bundles snps with per-SNP weights. When every weight
// is 1 the result equals EncodePanel.
func (e *SNPEncoder) EncodeWeightedPanel(snps []SNP, weights []float64) (hypervector.Hypervector, error) {
	if len(weights) != len(snps) {
		return hypervector.Hypervector{}, &ErrInvalidConfig{
			Parameter: "weights",
			Value:     strconv.Itoa(len(weights)),
			Reason:    "expected one weight per SNP (" + strconv.Itoa(len(snps)) + ")",
		}
	}
	vs, err := e.vectors(snps)
	if err != nil {
		return hypervector.Hypervector{}, err
	}

	uniform := true
	for _, w := range weights {
		if w != 1 {
			uniform = false
			break
		}
	}
	if uniform {
		return hypervector.BundleWithDimension(vs, e.cb.Dimension())
	}

	ws := make([]hypervector.Weighted, len(vs))
	for i, v := range vs {
		ws[i] = hypervector.Weighted{Vector: v, Weight: weights[i]}
	}
	return hypervector.WeightedBundle(ws)
}

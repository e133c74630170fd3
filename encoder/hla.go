package encoder

import (
	"sort"
	"strconv"

	"github.com/hupe1980/genohdc/codebook"
	"github.com/hupe1980/genohdc/hypervector"
)

// Loci are the HLA loci in typing order. A full typing lists two alleles
// per locus: A1, A2, B1, B2, C1, C2, DRB1-1, DRB1-2, DQB1-1, DQB1-2.
var Loci = [5]string{"A", "B", "C", "DRB1", "DQB1"}

// HLAMatch is one ranked donor.
type HLAMatch struct {
	DonorID string  `json:"donor_id"`
	Score   float64 `json:"score"`
}

// Donor is a candidate for matching.
type Donor struct {
	ID     string
	Typing []string
}

// rankDonors scores every donor that encodes and keeps the best topK,
// ordered by score then input order.
func rankDonors(donors []Donor, topK int, score func(typing []string) (float64, error)) []HLAMatch {
	matches := make([]HLAMatch, 0, len(donors))
	for _, d := range donors {
		s, err := score(d.Typing)
		if err != nil {
			continue
		}
		matches = append(matches, HLAMatch{DonorID: d.ID, Score: s})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK >= 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

func checkFullTyping(typing []string) error {
	if len(typing) != 10 {
		return &ErrInvalidConfig{
			Parameter: "hla_alleles",
			Value:     strconv.Itoa(len(typing)) + " alleles",
			Reason:    "expected exactly 10 HLA alleles (2 per locus for A, B, C, DRB1, DQB1)",
		}
	}
	return nil
}

// HLAEncoder bundles an unordered set of HLA types.
type HLAEncoder struct {
	cb codebook.Codebook
}

// NewHLAEncoder creates a set-based HLA encoder.
func NewHLAEncoder(cb codebook.Codebook) *HLAEncoder {
	return &HLAEncoder{cb: cb}
}

// EncodeTyping bundles the vectors of "HLA:<type>" for each type.
func (e *HLAEncoder) EncodeTyping(types []string) (hypervector.Hypervector, error) {
	if len(types) == 0 {
		return hypervector.Hypervector{}, ErrEmptyInput
	}
	vs := make([]hypervector.Hypervector, len(types))
	for i, t := range types {
		v, err := e.cb.Vector("HLA:" + t)
		if err != nil {
			return hypervector.Hypervector{}, err
		}
		vs[i] = v
	}
	return hypervector.BundleWithDimension(vs, e.cb.Dimension())
}

// MatchScore returns the normalized cosine similarity of two typings.
func (e *HLAEncoder) MatchScore(a, b []string) (float64, error) {
	va, err := e.EncodeTyping(a)
	if err != nil {
		return 0, err
	}
	vb, err := e.EncodeTyping(b)
	if err != nil {
		return 0, err
	}
	return hypervector.NormalizedCosineSimilarity(va, vb)
}

// FindBestMatches ranks donors against recipient. Donors whose typing does
// not encode are left out.
func (e *HLAEncoder) FindBestMatches(recipient []string, donors []Donor, topK int) ([]HLAMatch, error) {
	rv, err := e.EncodeTyping(recipient)
	if err != nil {
		return nil, err
	}
	return rankDonors(donors, topK, func(typing []string) (float64, error) {
		dv, err := e.EncodeTyping(typing)
		if err != nil {
			return 0, err
		}
		return hypervector.NormalizedCosineSimilarity(rv, dv)
	}), nil
}

// DefaultLocusWeights weight class II loci (DRB1, DQB1) twice class I.
var DefaultLocusWeights = [5]float64{1, 1, 1, 2, 2}

// LocusEncodedHLA holds one bundled vector per locus.
type LocusEncodedHLA struct {
	LocusVectors [5]hypervector.Hypervector
	Weights      [5]float64
}

// PerLocusSimilarity returns the normalized cosine similarity at each locus.
func (l LocusEncodedHLA) PerLocusSimilarity(other LocusEncodedHLA) ([5]float64, error) {
	var out [5]float64
	for i := range Loci {
		s, err := hypervector.NormalizedCosineSimilarity(l.LocusVectors[i], other.LocusVectors[i])
		if err != nil {
			return out, err
		}
		out[i] = s
	}
	return out, nil
}

// WeightedSimilarity averages per-locus similarity using l's weights.
func (l LocusEncodedHLA) WeightedSimilarity(other LocusEncodedHLA) (float64, error) {
	sims, err := l.PerLocusSimilarity(other)
	if err != nil {
		return 0, err
	}
	var sum, total float64
	for i, s := range sims {
		sum += s * l.Weights[i]
		total += l.Weights[i]
	}
	if total == 0 {
		return 0, nil
	}
	return sum / total, nil
}

// LocusWeightedHLAEncoder encodes each locus separately.
type LocusWeightedHLAEncoder struct {
	cb      codebook.Codebook
	weights [5]float64
}

// NewLocusWeightedHLAEncoder creates an encoder with DefaultLocusWeights.
func NewLocusWeightedHLAEncoder(cb codebook.Codebook) *LocusWeightedHLAEncoder {
	return &LocusWeightedHLAEncoder{cb: cb, weights: DefaultLocusWeights}
}

// WithWeights returns a copy of the encoder using custom locus weights.
func (e *LocusWeightedHLAEncoder) WithWeights(w [5]float64) *LocusWeightedHLAEncoder {
	return &LocusWeightedHLAEncoder{cb: e.cb, weights: w}
}

// EncodeTyping requires exactly 10 alleles and bundles
// "HLA-<locus>:<allele>" pairwise per locus.
func (e *LocusWeightedHLAEncoder) EncodeTyping(typing []string) (LocusEncodedHLA, error) {
	if err := checkFullTyping(typing); err != nil {
		return LocusEncodedHLA{}, err
	}
	out := LocusEncodedHLA{Weights: e.weights}
	for i, locus := range Loci {
		a, err := e.cb.Vector("HLA-" + locus + ":" + typing[2*i])
		if err != nil {
			return LocusEncodedHLA{}, err
		}
		b, err := e.cb.Vector("HLA-" + locus + ":" + typing[2*i+1])
		if err != nil {
			return LocusEncodedHLA{}, err
		}
		v, err := hypervector.Bundle([]hypervector.Hypervector{a, b})
		if err != nil {
			return LocusEncodedHLA{}, err
		}
		out.LocusVectors[i] = v
	}
	return out, nil
}

// MatchScore returns the weighted similarity of two typings.
func (e *LocusWeightedHLAEncoder) MatchScore(a, b []string) (float64, error) {
	ea, err := e.EncodeTyping(a)
	if err != nil {
		return 0, err
	}
	eb, err := e.EncodeTyping(b)
	if err != nil {
		return 0, err
	}
	return ea.WeightedSimilarity(eb)
}

// FindBestMatches ranks donors by weighted similarity.
func (e *LocusWeightedHLAEncoder) FindBestMatches(recipient []string, donors []Donor, topK int) ([]HLAMatch, error) {
	re, err := e.EncodeTyping(recipient)
	if err != nil {
		return nil, err
	}
	return rankDonors(donors, topK, func(typing []string) (float64, error) {
		de, err := e.EncodeTyping(typing)
		if err != nil {
			return 0, err
		}
		return re.WeightedSimilarity(de)
	}), nil
}

// DefaultAlleleWeights rank DRB1 highest, then DQB1, then class I with C lowest.
var DefaultAlleleWeights = [5]float64{1, 1, 0.5, 2, 1.5}

// AlleleEncodedHLA keeps one vector per allele.
type AlleleEncodedHLA struct {
	AlleleVectors [10]hypervector.Hypervector
	Weights       [5]float64
}

// MatchScore counts matched alleles per locus, pairing them in whichever
// order matches more, and returns the weighted fraction matched.
func (a AlleleEncodedHLA) MatchScore(other AlleleEncodedHLA) float64 {
	eq := func(i, j int) int {
		if a.AlleleVectors[i].Equal(other.AlleleVectors[j]) {
			return 1
		}
		return 0
	}

	var score, total float64
	for locus := range Loci {
		b := 2 * locus
		straight := eq(b, b) + eq(b+1, b+1)
		crossed := eq(b, b+1) + eq(b+1, b)
		matches := max(straight, crossed)

		score += float64(matches) / 2 * a.Weights[locus]
		total += a.Weights[locus]
	}
	if total == 0 {
		return 0
	}
	return score / total
}

// AlleleHLAEncoder encodes each allele separately for exact matching.
type AlleleHLAEncoder struct {
	cb      codebook.Codebook
	weights [5]float64
}

// NewAlleleHLAEncoder creates an encoder with DefaultAlleleWeights.
func NewAlleleHLAEncoder(cb codebook.Codebook) *AlleleHLAEncoder {
	return &AlleleHLAEncoder{cb: cb, weights: DefaultAlleleWeights}
}

// EncodeTyping requires exactly 10 alleles keyed "ALLELE:<locus>:<allele>".
func (e *AlleleHLAEncoder) EncodeTyping(typing []string) (AlleleEncodedHLA, error) {
	if err := checkFullTyping(typing); err != nil {
		return AlleleEncodedHLA{}, err
	}
	out := AlleleEncodedHLA{Weights: e.weights}
	for i, allele := range typing {
		v, err := e.cb.Vector("ALLELE:" + Loci[i/2] + ":" + allele)
		if err != nil {
			return AlleleEncodedHLA{}, err
		}
		out.AlleleVectors[i] = v
	}
	return out, nil
}

// FindBestMatches ranks donors by allele-level match score.
func (e *AlleleHLAEncoder) FindBestMatches(recipient []string, donors []Donor, topK int) ([]HLAMatch, error) {
	re, err := e.EncodeTyping(recipient)
	if err != nil {
		return nil, err
	}
	return rankDonors(donors, topK, func(typing []string) (float64, error) {
		de, err := e.EncodeTyping(typing)
		if err != nil {
			return 0, err
		}
		return re.MatchScore(de), nil
	}), nil
}

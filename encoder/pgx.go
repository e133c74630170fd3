package encoder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hupe1980/genohdc/codebook"
	"github.com/hupe1980/genohdc/hypervector"
)

// starAllelePattern accepts star alleles such as *1, *3A and *1xN.
var starAllelePattern = regexp.MustCompile(`^\*[0-9]+[A-Z]?(x[N0-9]+)?$`)

// DiplotypeInput names one gene's two alleles.
type DiplotypeInput struct {
	Gene    string `json:"gene"`
	Allele1 string `json:"allele1"`
	Allele2 string `json:"allele2"`
}

// ParseDiplotype parses "CYP2D6 *1/*4" or "CYP2D6:*1/*4".
func ParseDiplotype(s string) (DiplotypeInput, error) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " :")
	if i <= 0 {
		return DiplotypeInput{}, &ErrInvalidToken{Token: s, Position: -1, Reason: "expected GENE *a/*b"}
	}
	gene, rest := s[:i], strings.TrimSpace(s[i+1:])
	a1, a2, ok := strings.Cut(rest, "/")
	if !ok || a1 == "" || a2 == "" {
		return DiplotypeInput{}, &ErrInvalidToken{Token: s, Position: -1, Reason: "expected two alleles separated by /"}
	}
	return DiplotypeInput{Gene: strings.ToUpper(gene), Allele1: a1, Allele2: a2}, nil
}

// Diplotype is an encoded gene diplotype.
type Diplotype struct {
	Gene          string                  `json:"gene"`
	Allele1       string                  `json:"allele1"`
	Allele2       string                  `json:"allele2"`
	Vector        hypervector.Hypervector `json:"-"`
	ActivityScore float64                 `json:"activity_score"`
	Phenotype     MetabolizerPhenotype    `json:"phenotype"`
}

// Notation formats the diplotype as "GENE *a/*b".
func (d Diplotype) Notation() string {
	return d.Gene + " " + d.Allele1 + "/" + d.Allele2
}

// PGxProfile is a bundle of diplotypes.
type PGxProfile struct {
	Diplotypes []Diplotype
	Vector     hypervector.Hypervector
}

// Diplotype returns the entry for gene.
func (p PGxProfile) Diplotype(gene string) (Diplotype, bool) {
	for _, d := range p.Diplotypes {
		if d.Gene == gene {
			return d, true
		}
	}
	return Diplotype{}, false
}

// PoorMetabolizerGenes lists genes with a poor-metabolizer phenotype.
func (p PGxProfile) PoorMetabolizerGenes() []string {
	var out []string
	for _, d := range p.Diplotypes {
		if d.Phenotype == PhenotypePoor {
			out = append(out, d.Gene)
		}
	}
	return out
}

// Summary returns one line per diplotype.
func (p PGxProfile) Summary() []string {
	out := make([]string, len(p.Diplotypes))
	for i, d := range p.Diplotypes {
		out[i] = fmt.Sprintf("%s: %s (AS=%g)", d.Notation(), d.Phenotype, d.ActivityScore)
	}
	return out
}

// DrugInteraction is the predicted effect of a drug on a profile.
type DrugInteraction struct {
	Drug           string               `json:"drug"`
	Gene           string               `json:"gene"`
	Diplotype      string               `json:"diplotype"`
	ActivityScore  float64              `json:"activity_score"`
	Phenotype      MetabolizerPhenotype `json:"phenotype"`
	Recommendation DrugRecommendation   `json:"recommendation"`
}

// PGxEncoder encodes pharmacogenomic star-allele diplotypes.
type PGxEncoder struct {
	cb     codebook.Codebook
	table  ActivityTable
	strict bool
}

// PGxOption configures a PGxEncoder.
type PGxOption func(*PGxEncoder)

// WithStrictAlleles rejects alleles not listed for their gene.
func WithStrictAlleles(strict bool) PGxOption {
	return func(e *PGxEncoder) {
		e.strict = strict
	}
}

// WithActivityTable replaces the built-in CPIC table.
func WithActivityTable(t ActivityTable) PGxOption {
	return func(e *PGxEncoder) {
		e.table = t.Clone()
	}
}

// WithActivityScore adds or overrides one allele's activity value.
func WithActivityScore(gene, allele string, score float64) PGxOption {
	return func(e *PGxEncoder) {
		gene = strings.ToUpper(gene)
		if e.table[gene] == nil {
			e.table[gene] = make(map[string]float64)
		}
		e.table[gene][allele] = score
	}
}

// NewPGxEncoder creates an encoder over cb using the CPIC table.
func NewPGxEncoder(cb codebook.Codebook, optFns ...PGxOption) *PGxEncoder {
	e := &PGxEncoder{cb: cb, table: DefaultActivityTable()}
	for _, fn := range optFns {
		fn(e)
	}
	return e
}

// Genes returns the genes with activity tables.
func (e *PGxEncoder) Genes() []string { return e.table.Genes() }

func (e *PGxEncoder) gene(name string) (string, map[string]float64, error) {
	g := strings.ToUpper(strings.TrimSpace(name))
	alleles, ok := e.table[g]
	if !ok {
		return "", nil, &ErrUnknownGene{Gene: name, Suggestion: closestName(g, e.table.Genes())}
	}
	return g, alleles, nil
}

// ActivityScore returns the activity value of one allele. In lenient mode a
// well-formed star allele missing from the table scores 1.0.
func (e *PGxEncoder) ActivityScore(gene, allele string) (float64, error) {
	g, alleles, err := e.gene(gene)
	if err != nil {
		return 0, err
	}
	if s, ok := alleles[allele]; ok {
		return s, nil
	}
	if e.strict || !starAllelePattern.MatchString(allele) {
		return 0, &ErrInvalidStarAllele{Gene: g, Allele: allele, Valid: e.table.Alleles(g)}
	}
	return 1.0, nil
}

// EncodeAllele returns the vector of "STAR:<gene>:<allele>".
func (e *PGxEncoder) EncodeAllele(gene, allele string) (hypervector.Hypervector, error) {
	g, _, err := e.gene(gene)
	if err != nil {
		return hypervector.Hypervector{}, err
	}
	if _, err := e.ActivityScore(g, allele); err != nil {
		return hypervector.Hypervector{}, err
	}
	return e.cb.Vector("STAR:" + g + ":" + allele)
}

// EncodeDiplotype bundles both allele vectors and sums their activity.
func (e *PGxEncoder) EncodeDiplotype(gene, allele1, allele2 string) (Diplotype, error) {
	g, _, err := e.gene(gene)
	if err != nil {
		return Diplotype{}, err
	}
	s1, err := e.ActivityScore(g, allele1)
	if err != nil {
		return Diplotype{}, err
	}
	s2, err := e.ActivityScore(g, allele2)
	if err != nil {
		return Diplotype{}, err
	}
	v1, err := e.cb.Vector("STAR:" + g + ":" + allele1)
	if err != nil {
		return Diplotype{}, err
	}
	v2, err := e.cb.Vector("STAR:" + g + ":" + allele2)
	if err != nil {
		return Diplotype{}, err
	}
	v, err := hypervector.Bundle([]hypervector.Hypervector{v1, v2})
	if err != nil {
		return Diplotype{}, err
	}

	score := s1 + s2
	return Diplotype{
		Gene:          g,
		Allele1:       allele1,
		Allele2:       allele2,
		Vector:        v,
		ActivityScore: score,
		Phenotype:     PhenotypeFromActivity(g, score),
	}, nil
}

// EncodeProfile encodes each diplotype and bundles them. A gene may appear
// only once.
func (e *PGxEncoder) EncodeProfile(diplotypes []DiplotypeInput) (PGxProfile, error) {
	if len(diplotypes) == 0 {
		return PGxProfile{}, ErrEmptyInput
	}

	out := PGxProfile{Diplotypes: make([]Diplotype, 0, len(diplotypes))}
	vectors := make([]hypervector.Hypervector, 0, len(diplotypes))
	seen := make(map[string]struct{}, len(diplotypes))

	for _, in := range diplotypes {
		d, err := e.EncodeDiplotype(in.Gene, in.Allele1, in.Allele2)
		if err != nil {
			return PGxProfile{}, err
		}
		if _, dup := seen[d.Gene]; dup {
			return PGxProfile{}, &ErrInvalidConfig{Parameter: "diplotypes", Value: d.Gene, Reason: "gene listed more than once"}
		}
		seen[d.Gene] = struct{}{}
		out.Diplotypes = append(out.Diplotypes, d)
		vectors = append(vectors, d.Vector)
	}

	v, err := hypervector.Bundle(vectors)
	if err != nil {
		return PGxProfile{}, err
	}
	out.Vector = v
	return out, nil
}

// ProfileSimilarity compares profile vectors by normalized cosine.
func (e *PGxEncoder) ProfileSimilarity(a, b PGxProfile) (float64, error) {
	return hypervector.NormalizedCosineSimilarity(a.Vector, b.Vector)
}

// PerGeneSimilarity compares diplotypes of genes typed in both profiles.
func (e *PGxEncoder) PerGeneSimilarity(a, b PGxProfile) (map[string]float64, error) {
	out := make(map[string]float64)
	for _, da := range a.Diplotypes {
		db, ok := b.Diplotype(da.Gene)
		if !ok {
			continue
		}
		s, err := hypervector.NormalizedCosineSimilarity(da.Vector, db.Vector)
		if err != nil {
			return nil, err
		}
		out[da.Gene] = s
	}
	return out, nil
}

// SupportedDrugs returns the drug table in order.
func (e *PGxEncoder) SupportedDrugs() []DrugGene { return SupportedDrugs() }

// PredictDrugInteraction looks up the gene governing drug (case-insensitive)
// and returns the CPIC recommendation for the profile's phenotype.
func (e *PGxEncoder) PredictDrugInteraction(profile PGxProfile, drug string) (DrugInteraction, error) {
	gene, ok := drugGene(drug)
	if !ok {
		return DrugInteraction{}, &ErrUnsupportedDrug{Drug: drug, Supported: supportedDrugNames()}
	}
	d, ok := profile.Diplotype(gene)
	if !ok {
		return DrugInteraction{}, &ErrGeneNotInProfile{Gene: gene, Drug: drug}
	}
	return DrugInteraction{
		Drug:           strings.ToLower(strings.TrimSpace(drug)),
		Gene:           gene,
		Diplotype:      d.Notation(),
		ActivityScore:  d.ActivityScore,
		Phenotype:      d.Phenotype,
		Recommendation: RecommendationFor(gene, d.Phenotype),
	}, nil
}

package encoder

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed cpic.yaml
var cpicYAML []byte

// DrugGene associates a drug with the gene that governs its dosing.
type DrugGene struct {
	Drug string `yaml:"drug" json:"drug"`
	Gene string `yaml:"gene" json:"gene"`
}

// ActivityTable maps gene → allele → activity value.
type ActivityTable map[string]map[string]float64

// Clone returns a deep copy.
func (t ActivityTable) Clone() ActivityTable {
	out := make(ActivityTable, len(t))
	for gene, alleles := range t {
		m := make(map[string]float64, len(alleles))
		for a, s := range alleles {
			m[a] = s
		}
		out[gene] = m
	}
	return out
}

// Genes returns the table's genes, sorted.
func (t ActivityTable) Genes() []string {
	out := make([]string, 0, len(t))
	for g := range t {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Alleles returns the alleles listed for gene, sorted.
func (t ActivityTable) Alleles(gene string) []string {
	out := make([]string, 0, len(t[gene]))
	for a := range t[gene] {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

type cpicFile struct {
	Genes ActivityTable `yaml:"genes"`
	Drugs []DrugGene    `yaml:"drugs"`

	AlleleFrequencies  map[string]map[string]map[Ancestry]float64 `yaml:"allele_frequencies"`
	PhenotypePriors    phenotypePriors                            `yaml:"phenotype_priors"`
	AncestryConfidence map[Ancestry]float64                       `yaml:"ancestry_confidence"`
	AncestryNotes      []ancestryNote                             `yaml:"ancestry_notes"`
	DrugConsiderations []drugConsideration                        `yaml:"drug_considerations"`
}

type phenotypePriors struct {
	Defaults map[string]float64                         `yaml:"defaults"`
	Genes    map[string]map[string]map[Ancestry]float64 `yaml:"genes"`
}

type ancestryNote struct {
	Gene     string   `yaml:"gene"`
	Ancestry Ancestry `yaml:"ancestry"`
	Allele   string   `yaml:"allele"`
	Notes    []string `yaml:"notes"`
}

type drugConsideration struct {
	Drugs    []string `yaml:"drugs"`
	Gene     string   `yaml:"gene"`
	Ancestry Ancestry `yaml:"ancestry"`
	Notes    []string `yaml:"notes"`
}

var (
	cpicOnce sync.Once
	cpicData cpicFile
)

func loadCPIC() cpicFile {
	cpicOnce.Do(func() {
		if err := yaml.Unmarshal(cpicYAML, &cpicData); err != nil {
			panic(fmt.Sprintf("encoder: embedded CPIC table: %v", err))
		}
	})
	return cpicData
}

// DefaultActivityTable returns a copy of the built-in CPIC activity values.
func DefaultActivityTable() ActivityTable {
	return loadCPIC().Genes.Clone()
}

// SupportedDrugs returns every drug with a gene association, in table order.
func SupportedDrugs() []DrugGene {
	drugs := loadCPIC().Drugs
	out := make([]DrugGene, len(drugs))
	copy(out, drugs)
	return out
}

func drugGene(drug string) (string, bool) {
	d := strings.ToLower(strings.TrimSpace(drug))
	for _, dg := range loadCPIC().Drugs {
		if dg.Drug == d {
			return dg.Gene, true
		}
	}
	return "", false
}

func supportedDrugNames() []string {
	drugs := loadCPIC().Drugs
	out := make([]string, len(drugs))
	for i, dg := range drugs {
		out[i] = dg.Drug
	}
	return out
}

// MetabolizerPhenotype classifies a diplotype's activity.
type MetabolizerPhenotype int

const (
	PhenotypeIndeterminate MetabolizerPhenotype = iota
	PhenotypeUltrarapid
	PhenotypeRapidToNormal
	PhenotypeNormal
	PhenotypeIntermediate
	PhenotypePoor
)

// key is the phenotype's name in the prior tables.
func (p MetabolizerPhenotype) key() string {
	switch p {
	case PhenotypeUltrarapid:
		return "ultrarapid"
	case PhenotypeRapidToNormal:
		return "rapid_to_normal"
	case PhenotypeNormal:
		return "normal"
	case PhenotypeIntermediate:
		return "intermediate"
	case PhenotypePoor:
		return "poor"
	default:
		return "indeterminate"
	}
}

func (p MetabolizerPhenotype) String() string {
	switch p {
	case PhenotypeUltrarapid:
		return "Ultrarapid Metabolizer"
	case PhenotypeRapidToNormal:
		return "Rapid to Normal Metabolizer"
	case PhenotypeNormal:
		return "Normal Metabolizer"
	case PhenotypeIntermediate:
		return "Intermediate Metabolizer"
	case PhenotypePoor:
		return "Poor Metabolizer"
	default:
		return "Indeterminate"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p MetabolizerPhenotype) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// PhenotypeFromActivity maps a summed activity score to a phenotype.
// CYP2D6 and CYP2C19 have their own cut-offs; all other genes share
// Normal ≥ 1.5, Intermediate ≥ 0.5, else Poor.
func PhenotypeFromActivity(gene string, score float64) MetabolizerPhenotype {
	switch gene {
	case "CYP2D6":
		switch {
		case score > 2.0:
			return PhenotypeUltrarapid
		case score >= 1.25:
			return PhenotypeNormal
		case score >= 0.25:
			return PhenotypeIntermediate
		default:
			return PhenotypePoor
		}
	case "CYP2C19":
		switch {
		case score > 2.0:
			return PhenotypeUltrarapid
		case score >= 1.5:
			return PhenotypeRapidToNormal
		case score >= 1.0:
			return PhenotypeNormal
		case score > 0:
			return PhenotypeIntermediate
		default:
			return PhenotypePoor
		}
	default:
		switch {
		case score >= 1.5:
			return PhenotypeNormal
		case score >= 0.5:
			return PhenotypeIntermediate
		default:
			return PhenotypePoor
		}
	}
}

// DrugRecommendation is a dosing action.
type DrugRecommendation int

const (
	RecommendInsufficientEvidence DrugRecommendation = iota
	RecommendStandardDose
	RecommendConsiderAlternative
	RecommendReducedDose
	RecommendAvoid
	RecommendUseWithCaution
)

func (r DrugRecommendation) String() string {
	switch r {
	case RecommendStandardDose:
		return "Standard dose recommended"
	case RecommendConsiderAlternative:
		return "Consider alternative or increased dose"
	case RecommendReducedDose:
		return "Reduced dose recommended"
	case RecommendAvoid:
		return "Avoid - use alternative drug"
	case RecommendUseWithCaution:
		return "Use with caution"
	default:
		return "Insufficient evidence"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r DrugRecommendation) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// RecommendationFor returns the CPIC action for a gene and phenotype.
func RecommendationFor(gene string, p MetabolizerPhenotype) DrugRecommendation {
	switch gene {
	case "CYP2D6":
		switch p {
		case PhenotypeUltrarapid:
			return RecommendConsiderAlternative
		case PhenotypeNormal, PhenotypeRapidToNormal:
			return RecommendStandardDose
		case PhenotypeIntermediate:
			return RecommendUseWithCaution
		case PhenotypePoor:
			return RecommendAvoid
		}
	case "CYP2C19":
		switch p {
		case PhenotypeUltrarapid, PhenotypeRapidToNormal:
			return RecommendConsiderAlternative
		case PhenotypeNormal:
			return RecommendStandardDose
		case PhenotypeIntermediate:
			return RecommendUseWithCaution
		case PhenotypePoor:
			return RecommendAvoid
		}
	case "CYP2C9":
		switch p {
		case PhenotypeNormal, PhenotypeRapidToNormal:
			return RecommendStandardDose
		case PhenotypeIntermediate:
			return RecommendReducedDose
		case PhenotypePoor:
			return RecommendAvoid
		}
	case "TPMT", "NUDT15", "DPYD", "SLCO1B1", "UGT1A1":
		switch p {
		case PhenotypeNormal:
			return RecommendStandardDose
		case PhenotypeIntermediate:
			return RecommendReducedDose
		case PhenotypePoor:
			return RecommendAvoid
		}
	case "CYP3A5":
		// Expressers clear tacrolimus faster.
		switch p {
		case PhenotypeNormal:
			return RecommendConsiderAlternative
		case PhenotypeIntermediate:
			return RecommendUseWithCaution
		case PhenotypePoor:
			return RecommendStandardDose
		}
	case "CYP2B6":
		switch p {
		case PhenotypeNormal:
			return RecommendStandardDose
		case PhenotypeIntermediate, PhenotypePoor:
			return RecommendReducedDose
		case PhenotypeUltrarapid:
			return RecommendConsiderAlternative
		}
	case "VKORC1":
		switch p {
		case PhenotypeNormal:
			return RecommendStandardDose
		case PhenotypeIntermediate, PhenotypePoor:
			return RecommendReducedDose
		}
	}
	return RecommendInsufficientEvidence
}

// closestName returns the candidate nearest to name by edit distance, or ""
// when none is within two edits.
func closestName(name string, candidates []string) string {
	best, bestDist := "", 3
	for _, c := range candidates {
		if d := levenshtein(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func levenshtein(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

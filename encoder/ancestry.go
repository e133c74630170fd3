package encoder

import (
	"fmt"
	"slices"
	"strings"

	"github.com/hupe1980/genohdc/hypervector"
)

// Ancestry is a population group used to contextualize PGx predictions.
type Ancestry string

const (
	AncestryAfrican           Ancestry = "african"
	AncestryAmerican          Ancestry = "american"
	AncestryCentralSouthAsian Ancestry = "central_south_asian"
	AncestryEastAsian         Ancestry = "east_asian"
	AncestryEuropean          Ancestry = "european"
	AncestryLatino            Ancestry = "latino"
	AncestryNearEastern       Ancestry = "near_eastern"
	AncestryOceanian          Ancestry = "oceanian"
	AncestryMixed             Ancestry = "mixed"
	AncestryUnknown           Ancestry = "unknown"
)

var ancestryNames = map[Ancestry]string{
	AncestryAfrican:           "African",
	AncestryAmerican:          "American",
	AncestryCentralSouthAsian: "Central/South Asian",
	AncestryEastAsian:         "East Asian",
	AncestryEuropean:          "European",
	AncestryLatino:            "Latino",
	AncestryNearEastern:       "Near Eastern",
	AncestryOceanian:          "Oceanian",
	AncestryMixed:             "Mixed",
	AncestryUnknown:           "Unknown",
}

var ancestryAliases = map[string]Ancestry{
	"african_american":    AncestryAfrican,
	"afr":                 AncestryAfrican,
	"amr":                 AncestryLatino,
	"hispanic":            AncestryLatino,
	"south_asian":         AncestryCentralSouthAsian,
	"sas":                 AncestryCentralSouthAsian,
	"eas":                 AncestryEastAsian,
	"eur":                 AncestryEuropean,
	"caucasian":           AncestryEuropean,
	"middle_eastern":      AncestryNearEastern,
	"pacific_islander":    AncestryOceanian,
	"indigenous_american": AncestryAmerican,
}

// Ancestries returns every known ancestry group.
func Ancestries() []Ancestry {
	out := make([]Ancestry, 0, len(ancestryNames))
	for a := range ancestryNames {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// ParseAncestry accepts the canonical names, gnomAD codes and common aliases,
// case-insensitively. Spaces, hyphens and slashes read as underscores. The
// empty string is AncestryUnknown.
func ParseAncestry(s string) (Ancestry, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "" {
		return AncestryUnknown, nil
	}
	norm = strings.NewReplacer(" ", "_", "-", "_", "/", "_").Replace(norm)
	if _, ok := ancestryNames[Ancestry(norm)]; ok {
		return Ancestry(norm), nil
	}
	if a, ok := ancestryAliases[norm]; ok {
		return a, nil
	}
	return "", &ErrInvalidToken{Token: s, Position: -1, Reason: "unknown ancestry"}
}

// String returns the display name.
func (a Ancestry) String() string {
	if name, ok := ancestryNames[a]; ok {
		return name
	}
	return string(a)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Ancestry) UnmarshalText(text []byte) error {
	parsed, err := ParseAncestry(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// defaultDiplotypeFrequency is used when neither allele has population data.
const defaultDiplotypeFrequency = 0.01

// AlleleFrequency returns the frequency of allele in the ancestry group.
func AlleleFrequency(gene, allele string, ancestry Ancestry) (float64, bool) {
	f, ok := loadCPIC().AlleleFrequencies[strings.ToUpper(gene)][allele][ancestry]
	return f, ok
}

// DiplotypeFrequency estimates the diplotype's population frequency under
// Hardy-Weinberg equilibrium. With data for one allele only, that allele's
// frequency is returned.
func DiplotypeFrequency(gene, allele1, allele2 string, ancestry Ancestry) float64 {
	f1, ok1 := AlleleFrequency(gene, allele1, ancestry)
	f2, ok2 := AlleleFrequency(gene, allele2, ancestry)
	switch {
	case ok1 && ok2 && allele1 == allele2:
		return f1 * f1
	case ok1 && ok2:
		return 2 * f1 * f2
	case ok1:
		return f1
	case ok2:
		return f2
	default:
		return defaultDiplotypeFrequency
	}
}

// PhenotypePrior returns the prior probability of phenotype for gene in the
// ancestry group, falling back to population-agnostic defaults.
func PhenotypePrior(gene string, phenotype MetabolizerPhenotype, ancestry Ancestry) float64 {
	priors := loadCPIC().PhenotypePriors
	if p, ok := priors.Genes[strings.ToUpper(gene)][phenotype.key()][ancestry]; ok {
		return p
	}
	return priors.Defaults[phenotype.key()]
}

// AncestryConfidence rates how well the reference data covers ancestry.
func AncestryConfidence(ancestry Ancestry) float64 {
	conf := loadCPIC().AncestryConfidence
	if c, ok := conf[ancestry]; ok {
		return c
	}
	return conf[AncestryUnknown]
}

// carriesAllele matches allele exactly or as a copy-number variant of it
// ("*10" matches "*10x2").
func carriesAllele(allele, want string) bool {
	return allele == want || strings.HasPrefix(allele, want+"x")
}

func ancestryNotes(gene, allele1, allele2 string, ancestry Ancestry) []string {
	var out []string
	for _, n := range loadCPIC().AncestryNotes {
		if n.Gene != gene || n.Ancestry != ancestry {
			continue
		}
		if n.Allele != "" && !carriesAllele(allele1, n.Allele) && !carriesAllele(allele2, n.Allele) {
			continue
		}
		out = append(out, n.Notes...)
	}
	return out
}

func drugConsiderations(drug, gene string, ancestry Ancestry) []string {
	var out []string
	for _, c := range loadCPIC().DrugConsiderations {
		if c.Ancestry != ancestry || (c.Gene != "" && c.Gene != gene) || !slices.Contains(c.Drugs, drug) {
			continue
		}
		out = append(out, c.Notes...)
	}
	return out
}

// AncestryDiplotype is a diplotype with population context.
type AncestryDiplotype struct {
	Diplotype
	Ancestry           Ancestry `json:"ancestry"`
	DiplotypeFrequency float64  `json:"diplotype_frequency"`
	PhenotypePrior     float64  `json:"phenotype_prior"`
	Notes              []string `json:"notes,omitempty"`
}

// AncestryProfile is a PGx profile with population context. Notes holds the
// sorted, de-duplicated notes of all diplotypes.
type AncestryProfile struct {
	Ancestry   Ancestry                `json:"ancestry"`
	Diplotypes []AncestryDiplotype     `json:"diplotypes"`
	Vector     hypervector.Hypervector `json:"vector"`
	Notes      []string                `json:"notes,omitempty"`
}

// Profile drops the population context.
func (p AncestryProfile) Profile() PGxProfile {
	out := PGxProfile{Diplotypes: make([]Diplotype, len(p.Diplotypes)), Vector: p.Vector}
	for i, d := range p.Diplotypes {
		out.Diplotypes[i] = d.Diplotype
	}
	return out
}

func withAncestry(d Diplotype, ancestry Ancestry) AncestryDiplotype {
	return AncestryDiplotype{
		Diplotype:          d,
		Ancestry:           ancestry,
		DiplotypeFrequency: DiplotypeFrequency(d.Gene, d.Allele1, d.Allele2, ancestry),
		PhenotypePrior:     PhenotypePrior(d.Gene, d.Phenotype, ancestry),
		Notes:              ancestryNotes(d.Gene, d.Allele1, d.Allele2, ancestry),
	}
}

// EncodeDiplotypeWithAncestry encodes a diplotype and attaches its
// population frequency, phenotype prior and clinical notes. The vector is
// the plain diplotype vector.
func (e *PGxEncoder) EncodeDiplotypeWithAncestry(gene, allele1, allele2 string, ancestry Ancestry) (AncestryDiplotype, error) {
	d, err := e.EncodeDiplotype(gene, allele1, allele2)
	if err != nil {
		return AncestryDiplotype{}, err
	}
	return withAncestry(d, ancestry), nil
}

// EncodeProfileWithAncestry is EncodeProfile with population context.
func (e *PGxEncoder) EncodeProfileWithAncestry(diplotypes []DiplotypeInput, ancestry Ancestry) (AncestryProfile, error) {
	profile, err := e.EncodeProfile(diplotypes)
	if err != nil {
		return AncestryProfile{}, err
	}

	out := AncestryProfile{
		Ancestry:   ancestry,
		Diplotypes: make([]AncestryDiplotype, len(profile.Diplotypes)),
		Vector:     profile.Vector,
	}
	for i, d := range profile.Diplotypes {
		ad := withAncestry(d, ancestry)
		out.Diplotypes[i] = ad
		out.Notes = append(out.Notes, ad.Notes...)
	}
	slices.Sort(out.Notes)
	out.Notes = slices.Compact(out.Notes)
	return out, nil
}

// AncestryInteraction is a drug interaction with population context.
type AncestryInteraction struct {
	DrugInteraction
	Ancestry       Ancestry `json:"ancestry"`
	Confidence     float64  `json:"ancestry_confidence"`
	Considerations []string `json:"considerations,omitempty"`
}

// PredictDrugInteractionWithAncestry is PredictDrugInteraction plus the
// ancestry-specific considerations for the drug and a confidence reflecting
// the reference data available for the profile's ancestry.
func (e *PGxEncoder) PredictDrugInteractionWithAncestry(profile AncestryProfile, drug string) (AncestryInteraction, error) {
	in, err := e.PredictDrugInteraction(profile.Profile(), drug)
	if err != nil {
		return AncestryInteraction{}, err
	}
	return AncestryInteraction{
		DrugInteraction: in,
		Ancestry:        profile.Ancestry,
		Confidence:      AncestryConfidence(profile.Ancestry),
		Considerations:  drugConsiderations(in.Drug, in.Gene, profile.Ancestry),
	}, nil
}

// DoseAction is the direction of a dose adjustment.
type DoseAction int

const (
	DoseStandard DoseAction = iota
	DoseReduce
	DoseIncrease
	DoseContraindicated
	DoseCautionNeeded
)

func (a DoseAction) String() string {
	switch a {
	case DoseStandard:
		return "standard"
	case DoseReduce:
		return "reduce"
	case DoseIncrease:
		return "increase"
	case DoseContraindicated:
		return "contraindicated"
	default:
		return "caution_needed"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a DoseAction) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// DoseAdjustment is a dose change; Percent is set for DoseReduce and
// DoseIncrease.
type DoseAdjustment struct {
	Action  DoseAction `json:"action"`
	Percent int        `json:"percent,omitempty"`
}

func (d DoseAdjustment) String() string {
	switch d.Action {
	case DoseReduce:
		return fmt.Sprintf("reduce by %d%%", d.Percent)
	case DoseIncrease:
		return fmt.Sprintf("increase by %d%%", d.Percent)
	default:
		return d.Action.String()
	}
}

// DosingGuidance is the dosing advice for one drug.
type DosingGuidance struct {
	Drug           string         `json:"drug"`
	Gene           string         `json:"gene"`
	Adjustment     DoseAdjustment `json:"adjustment"`
	Reasoning      string         `json:"reasoning"`
	Confidence     float64        `json:"confidence"`
	Considerations []string       `json:"considerations,omitempty"`
}

// DosingGuidance turns the ancestry-aware prediction for drug into a dose
// adjustment.
func (e *PGxEncoder) DosingGuidance(profile AncestryProfile, drug string) (DosingGuidance, error) {
	in, err := e.PredictDrugInteractionWithAncestry(profile, drug)
	if err != nil {
		return DosingGuidance{}, err
	}
	adj, reasoning := doseAdjustment(in)
	return DosingGuidance{
		Drug:           in.Drug,
		Gene:           in.Gene,
		Adjustment:     adj,
		Reasoning:      reasoning,
		Confidence:     in.Confidence,
		Considerations: in.Considerations,
	}, nil
}

func doseAdjustment(in AncestryInteraction) (DoseAdjustment, string) {
	switch in.Recommendation {
	case RecommendAvoid:
		return DoseAdjustment{Action: DoseContraindicated}, "Alternative therapy recommended"
	case RecommendStandardDose:
		return DoseAdjustment{Action: DoseStandard}, "Standard dosing appropriate"
	case RecommendReducedDose:
		if in.Ancestry == AncestryEastAsian && in.Gene == "CYP2D6" {
			return DoseAdjustment{Action: DoseReduce, Percent: 50}, "Reduce dose by 50% (adjusted for East Asian CYP2D6*10 prevalence)"
		}
		return DoseAdjustment{Action: DoseReduce, Percent: 25}, "Reduce dose by 25%"
	case RecommendConsiderAlternative:
		if in.Ancestry == AncestryAfrican && in.Gene == "CYP3A5" {
			return DoseAdjustment{Action: DoseIncrease, Percent: 50}, "Increase dose by 50% (CYP3A5 expresser, common in African ancestry)"
		}
		if in.Phenotype == PhenotypeUltrarapid || in.Phenotype == PhenotypeRapidToNormal {
			return DoseAdjustment{Action: DoseIncrease, Percent: 25}, "Consider increased dose or alternative therapy"
		}
		return DoseAdjustment{Action: DoseCautionNeeded}, "Consider alternative therapy"
	case RecommendUseWithCaution:
		return DoseAdjustment{Action: DoseCautionNeeded}, "Use with caution - enhanced monitoring recommended"
	default:
		return DoseAdjustment{Action: DoseCautionNeeded}, "Clinical monitoring recommended - limited evidence"
	}
}

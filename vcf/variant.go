package vcf

import (
	"strconv"
	"strings"
)

// Genotype classifies a sample's GT call.
type Genotype uint8

// Genotype codes used in variant keys.
const (
	HomRef  Genotype = 0
	Het     Genotype = 1
	HomAlt  Genotype = 2
	Other   Genotype = 3
	Missing Genotype = 255
)

// Code returns the numeric code used in variant keys.
func (g Genotype) Code() uint8 { return uint8(g) }

func (g Genotype) String() string {
	switch g {
	case HomRef:
		return "hom_ref"
	case Het:
		return "het"
	case HomAlt:
		return "hom_alt"
	case Missing:
		return "missing"
	default:
		return "other"
	}
}

// ParseGenotype classifies a GT value such as "0/1" or "1|1". Only the part
// before the first ':' is considered. Biallelic diploid calls map to HomRef,
// Het and HomAlt, "./." to Missing, and every other well-formed call
// (multi-allelic, haploid, partially missing) to Other.
func ParseGenotype(gt string) (Genotype, bool) {
	if i := strings.IndexByte(gt, ':'); i >= 0 {
		gt = gt[:i]
	}
	switch gt {
	case "0/0", "0|0":
		return HomRef, true
	case "0/1", "1/0", "0|1", "1|0":
		return Het, true
	case "1/1", "1|1":
		return HomAlt, true
	case "./.", ".|.", ".":
		return Missing, true
	}
	if gt == "" {
		return 0, false
	}
	for _, a := range strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' }) {
		if a == "." {
			continue
		}
		if _, err := strconv.ParseUint(a, 10, 32); err != nil {
			return 0, false
		}
	}
	if strings.HasPrefix(gt, "/") || strings.HasPrefix(gt, "|") ||
		strings.HasSuffix(gt, "/") || strings.HasSuffix(gt, "|") ||
		strings.Contains(gt, "//") || strings.Contains(gt, "||") {
		return 0, false
	}
	return Other, true
}

// Variant is one parsed data line.
type Variant struct {
	Chrom  string
	Pos    uint64 // 1-based
	ID     string // "." when absent
	Ref    string
	Alt    []string
	Qual   *float64 // nil for "."
	Filter string
	Info   string

	GT          string // raw GT value of the selected sample
	Genotype    Genotype
	HasGenotype bool
}

// Key returns "chrom:pos:ref:alt1,alt2:code".
func (v Variant) Key() string {
	var b strings.Builder
	b.WriteString(v.Chrom)
	b.WriteByte(':')
	b.WriteString(strconv.FormatUint(v.Pos, 10))
	b.WriteByte(':')
	b.WriteString(v.Ref)
	b.WriteByte(':')
	b.WriteString(strings.Join(v.Alt, ","))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(int(v.Genotype.Code())))
	return b.String()
}

// PositionalKey returns "chrom:ref:alt1,alt2:code", leaving position to be
// encoded by permutation.
func (v Variant) PositionalKey() string {
	return v.Chrom + ":" + v.Ref + ":" + strings.Join(v.Alt, ",") + ":" + strconv.Itoa(int(v.Genotype.Code()))
}

// Called reports whether the variant has a non-missing genotype.
func (v Variant) Called() bool {
	return v.HasGenotype && v.Genotype != Missing
}

package vcf

import (
	"math"
	"strconv"
	"strings"
)

// Region is a closed interval on one chromosome. End 0 means to the end of
// the chromosome.
type Region struct {
	Chrom string
	Start uint64
	End   uint64
}

// ParseRegion parses "chr1", "chr1:100" or "chr1:100-200". Thousands
// separators in positions are accepted.
func ParseRegion(s string) (Region, error) {
	s = strings.TrimSpace(s)
	chrom, span, hasSpan := strings.Cut(s, ":")
	if chrom == "" {
		return Region{}, &ErrInvalidRegion{Value: s, Reason: "missing chromosome"}
	}
	r := Region{Chrom: chrom, Start: 1}
	if !hasSpan {
		return r, nil
	}

	startStr, endStr, hasEnd := strings.Cut(span, "-")
	start, err := parsePos(startStr)
	if err != nil {
		return Region{}, &ErrInvalidRegion{Value: s, Reason: "bad start: " + err.Error()}
	}
	r.Start = start
	if !hasEnd {
		return r, nil
	}
	end, err := parsePos(endStr)
	if err != nil {
		return Region{}, &ErrInvalidRegion{Value: s, Reason: "bad end: " + err.Error()}
	}
	if end < start {
		return Region{}, &ErrInvalidRegion{Value: s, Reason: "end before start"}
	}
	r.End = end
	return r, nil
}

func parsePos(s string) (uint64, error) {
	p, err := strconv.ParseUint(strings.ReplaceAll(s, ",", ""), 10, 64)
	if err != nil {
		return 0, err
	}
	if p == 0 {
		return 0, strconv.ErrRange
	}
	return p, nil
}

// Contains reports whether v lies in r. Chromosome names match with or
// without a "chr" prefix.
func (r Region) Contains(v Variant) bool {
	if normalizeChrom(r.Chrom) != normalizeChrom(v.Chrom) {
		return false
	}
	end := r.End
	if end == 0 {
		end = math.MaxUint64
	}
	return v.Pos >= r.Start && v.Pos <= end
}

func (r Region) String() string {
	switch {
	case r.End != 0:
		return r.Chrom + ":" + strconv.FormatUint(r.Start, 10) + "-" + strconv.FormatUint(r.End, 10)
	case r.Start > 1:
		return r.Chrom + ":" + strconv.FormatUint(r.Start, 10)
	default:
		return r.Chrom
	}
}

func normalizeChrom(c string) string {
	if len(c) > 3 && strings.EqualFold(c[:3], "chr") {
		return c[3:]
	}
	return c
}

package confidence

import (
	"math"
	"sort"
)

// BatchStats summarises many similarity scores.
type BatchStats struct {
	Comparisons         []Result `json:"comparisons"`
	Mean                float64  `json:"mean"`
	StdDev              float64  `json:"std_dev"`
	Min                 float64  `json:"min"`
	Max                 float64  `json:"max"`
	HighConfidenceCount int      `json:"high_confidence_count"`
	ClinicalGradeCount  int      `json:"clinical_grade_count"`
}

// NewBatchStats scores every similarity at the canonical dimension.
// The standard deviation is the population one. An empty input yields
// zero statistics.
func NewBatchStats(similarities []float64) BatchStats {
	var st BatchStats
	if len(similarities) == 0 {
		return st
	}

	st.Comparisons = make([]Result, len(similarities))
	st.Min, st.Max = math.Inf(1), math.Inf(-1)
	sum := 0.0
	for i, s := range similarities {
		r := Calculate(s)
		st.Comparisons[i] = r
		sum += s
		st.Min = math.Min(st.Min, s)
		st.Max = math.Max(st.Max, s)
		if r.Level >= High {
			st.HighConfidenceCount++
		}
		if r.IsClinicalGrade() {
			st.ClinicalGradeCount++
		}
	}

	n := float64(len(similarities))
	st.Mean = sum / n
	variance := 0.0
	for _, s := range similarities {
		variance += (s - st.Mean) * (s - st.Mean)
	}
	st.StdDev = math.Sqrt(variance / n)
	return st
}

// TopMatches returns the n highest-similarity results, ties in input order.
func (b BatchStats) TopMatches(n int) []Result {
	sorted := make([]Result, len(b.Comparisons))
	copy(sorted, b.Comparisons)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Similarity > sorted[j].Similarity })
	if n < len(sorted) {
		sorted = sorted[:max(n, 0)]
	}
	return sorted
}

package encoder

import "strings"

// Nucleotides is the DNA alphabet in codebook index order.
var Nucleotides = [4]byte{'A', 'C', 'G', 'T'}

func isNucleotide(c byte) bool {
	return c == 'A' || c == 'C' || c == 'G' || c == 'T'
}

// normalizeDNA upper-cases seq and rejects characters outside ACGT.
func normalizeDNA(seq string) (string, error) {
	s := strings.ToUpper(seq)
	for i := 0; i < len(s); i++ {
		if !isNucleotide(s[i]) {
			return "", &ErrInvalidToken{Token: string(s[i]), Position: i, Reason: "not a nucleotide (A, C, G, T)"}
		}
	}
	return s, nil
}

// MaxEnumerableK bounds AllKmers; 4^10 k-mers is about a million strings.
const MaxEnumerableK = 10

// AllKmers enumerates all 4^k k-mers. Index i is written in base 4, least
// significant digit first, mapping digits through Nucleotides. It returns
// nil when k is outside [1, MaxEnumerableK].
func AllKmers(k int) []string {
	if k <= 0 || k > MaxEnumerableK {
		return nil
	}
	total := 1 << (2 * k)
	out := make([]string, total)
	buf := make([]byte, k)
	for i := 0; i < total; i++ {
		val := i
		for j := 0; j < k; j++ {
			buf[j] = Nucleotides[val%4]
			val /= 4
		}
		out[i] = string(buf)
	}
	return out
}

// GCContent returns the fraction of G and C in seq (case-insensitive).
// An empty sequence has GC content 0.
func GCContent(seq string) float64 {
	if len(seq) == 0 {
		return 0
	}
	gc := 0
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'G', 'C', 'g', 'c':
			gc++
		}
	}
	return float64(gc) / float64(len(seq))
}

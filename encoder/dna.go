package encoder

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hupe1980/genohdc/codebook"
	"github.com/hupe1980/genohdc/hypervector"
)

// PositionMode selects how k-mer position is folded into the encoding.
type PositionMode int

const (
	// PositionPermute rotates each k-mer vector by its position (default).
	PositionPermute PositionMode = iota
	// PositionBind XORs each k-mer vector with a base position vector
	// rotated by its position.
	PositionBind
	// PositionNone bundles k-mers as an unordered bag.
	PositionNone
)

func (m PositionMode) String() string {
	switch m {
	case PositionPermute:
		return "permute"
	case PositionBind:
		return "bind"
	case PositionNone:
		return "none"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParsePositionMode resolves a mode name.
func ParsePositionMode(s string) (PositionMode, error) {
	switch s {
	case "permute", "":
		return PositionPermute, nil
	case "bind":
		return PositionBind, nil
	case "none":
		return PositionNone, nil
	default:
		return 0, &ErrInvalidConfig{Parameter: "position_mode", Value: s, Reason: "expected permute, bind or none"}
	}
}

// EncodedSequence is the result of encoding one DNA sequence.
type EncodedSequence struct {
	Vector         hypervector.Hypervector
	KmerCount      int // k-mers actually bundled
	KmerLength     int
	SequenceLength int
	Skipped        int // k-mers absent from a learned codebook
}

// DNAEncoder encodes DNA sequences through sliding k-mers.
type DNAEncoder struct {
	cb      codebook.Codebook
	k       int
	mode    PositionMode
	window  int
	posSeed hypervector.Seed
	posBase hypervector.Hypervector
}

// DNAOption configures a DNAEncoder.
type DNAOption func(*DNAEncoder)

// WithPositionMode sets the position mode.
func WithPositionMode(m PositionMode) DNAOption {
	return func(e *DNAEncoder) {
		e.mode = m
	}
}

// WithPositionWindow reduces positions modulo window. 0 uses absolute positions.
func WithPositionWindow(window int) DNAOption {
	return func(e *DNAEncoder) {
		e.window = window
	}
}

// WithPositionSeed sets the seed of the base position vector used by
// PositionBind. Seed-derived codebooks default to their own seed.
func WithPositionSeed(seed hypervector.Seed) DNAOption {
	return func(e *DNAEncoder) {
		e.posSeed = seed
	}
}

const positionToken = "POSITION"

// NewDNAEncoder creates an encoder for k-mers of length k.
// A learned codebook must have been trained for the same k.
func NewDNAEncoder(cb codebook.Codebook, k int, optFns ...DNAOption) (*DNAEncoder, error) {
	if k <= 0 {
		return nil, &ErrInvalidConfig{Parameter: "kmer_length", Value: strconv.Itoa(k), Reason: "must be positive"}
	}

	e := &DNAEncoder{cb: cb, k: k, posSeed: hypervector.SeedFromString(positionToken)}
	if r, ok := cb.(*codebook.Random); ok {
		e.posSeed = r.Seed()
	}
	for _, fn := range optFns {
		fn(e)
	}

	if l, ok := cb.(*codebook.Learned); ok && l.KmerLength() != k {
		return nil, &ErrInvalidConfig{
			Parameter: "kmer_length",
			Value:     strconv.Itoa(k),
			Reason:    fmt.Sprintf("learned codebook was trained for k=%d", l.KmerLength()),
		}
	}
	if e.window < 0 {
		return nil, &ErrInvalidConfig{Parameter: "position_window", Value: strconv.Itoa(e.window), Reason: "must be non-negative"}
	}
	if e.mode < PositionPermute || e.mode > PositionNone {
		return nil, &ErrInvalidConfig{Parameter: "position_mode", Value: e.mode.String(), Reason: "unsupported"}
	}

	if e.mode == PositionBind {
		base, err := hypervector.RandomWithDimension(e.posSeed, positionToken, cb.Dimension())
		if err != nil {
			return nil, err
		}
		e.posBase = base
	}
	return e, nil
}

// KmerLength returns k.
func (e *DNAEncoder) KmerLength() int { return e.k }

// Codebook returns the backing codebook.
func (e *DNAEncoder) Codebook() codebook.Codebook { return e.cb }

func (e *DNAEncoder) position(i int) int {
	if e.window > 0 {
		return i % e.window
	}
	return i
}

// Encode encodes seq. The sequence is upper-cased first; a sequence shorter
// than k fails with *ErrSequenceTooShort and any non-ACGT character with
// *ErrInvalidToken.
func (e *DNAEncoder) Encode(seq string) (EncodedSequence, error) {
	if len(seq) < e.k {
		return EncodedSequence{}, &ErrSequenceTooShort{Length: len(seq), K: e.k}
	}
	s, err := normalizeDNA(seq)
	if err != nil {
		return EncodedSequence{}, err
	}

	n := len(s) - e.k + 1
	vectors := make([]hypervector.Hypervector, 0, n)
	skipped := 0

	for i := 0; i < n; i++ {
		item, err := e.cb.Vector(s[i : i+e.k])
		if err != nil {
			if errors.Is(err, codebook.ErrTokenNotFound) {
				skipped++
				continue
			}
			return EncodedSequence{}, err
		}

		switch e.mode {
		case PositionPermute:
			item = hypervector.Permute(item, e.position(i))
		case PositionBind:
			item, err = hypervector.Bind(item, hypervector.Permute(e.posBase, e.position(i)))
			if err != nil {
				return EncodedSequence{}, err
			}
		}
		vectors = append(vectors, item)
	}

	if len(vectors) == 0 {
		return EncodedSequence{}, ErrEmptyInput
	}

	v, err := hypervector.BundleWithDimension(vectors, e.cb.Dimension())
	if err != nil {
		return EncodedSequence{}, err
	}

	return EncodedSequence{
		Vector:         v,
		KmerCount:      len(vectors),
		KmerLength:     e.k,
		SequenceLength: len(s),
		Skipped:        skipped,
	}, nil
}

package encoder

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyInput is returned when there is nothing to encode.
var ErrEmptyInput = errors.New("empty input")

// ErrSequenceTooShort indicates a sequence shorter than the k-mer length.
type ErrSequenceTooShort struct {
	Length int
	K      int
}

func (e *ErrSequenceTooShort) Error() string {
	return fmt.Sprintf("sequence too short: length %d < k-mer length %d", e.Length, e.K)
}

// ErrInvalidToken indicates a character or token outside the accepted alphabet.
type ErrInvalidToken struct {
	Token    string
	Position int // -1 when not applicable
	Reason   string
}

func (e *ErrInvalidToken) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("invalid token %q at position %d: %s", e.Token, e.Position, e.Reason)
	}
	return fmt.Sprintf("invalid token %q: %s", e.Token, e.Reason)
}

// ErrInvalidConfig indicates an invalid encoder parameter or input shape.
type ErrInvalidConfig struct {
	Parameter string
	Value     string
	Reason    string
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid %s (%s): %s", e.Parameter, e.Value, e.Reason)
}

// ErrUnknownGene indicates a gene without an activity table.
type ErrUnknownGene struct {
	Gene       string
	Suggestion string // closest known gene, may be empty
}

func (e *ErrUnknownGene) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown gene %q (did you mean %q?)", e.Gene, e.Suggestion)
	}
	return fmt.Sprintf("unknown gene %q", e.Gene)
}

// ErrInvalidStarAllele indicates a malformed allele, or an unlisted one in strict mode.
type ErrInvalidStarAllele struct {
	Gene   string
	Allele string
	Valid  []string
}

func (e *ErrInvalidStarAllele) Error() string {
	msg := fmt.Sprintf("invalid allele %q for %s", e.Allele, e.Gene)
	if len(e.Valid) > 0 {
		msg += "; valid alleles: " + strings.Join(e.Valid, ", ")
	}
	return msg
}

// ErrUnsupportedDrug indicates a drug without a gene association.
type ErrUnsupportedDrug struct {
	Drug      string
	Supported []string
}

func (e *ErrUnsupportedDrug) Error() string {
	return fmt.Sprintf("unsupported drug %q; supported: %s", e.Drug, strings.Join(e.Supported, ", "))
}

// ErrGeneNotInProfile indicates a drug whose gene was not typed in the profile.
type ErrGeneNotInProfile struct {
	Gene string
	Drug string
}

func (e *ErrGeneNotInProfile) Error() string {
	return fmt.Sprintf("profile has no diplotype for %s (required for %s)", e.Gene, e.Drug)
}

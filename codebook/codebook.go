package codebook

import (
	"errors"
	"fmt"

	"github.com/hupe1980/genohdc/hypervector"
)

// ErrTokenNotFound is returned by Learned for tokens absent from its table.
var ErrTokenNotFound = errors.New("token not in codebook")

// Codebook maps a token to its item vector.
type Codebook interface {
	// Vector returns the item vector for token.
	Vector(token string) (hypervector.Hypervector, error)
	// Dimension returns the dimension of every vector the codebook produces.
	Dimension() int
}

// ErrFormat indicates a malformed codebook table.
type ErrFormat struct {
	Reason string
	cause  error
}

func (e *ErrFormat) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("codebook format error: %s: %v", e.Reason, e.cause)
	}
	return "codebook format error: " + e.Reason
}

func (e *ErrFormat) Unwrap() error { return e.cause }

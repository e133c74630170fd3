package genohdc

import (
	"errors"
	"fmt"

	"github.com/hupe1980/genohdc/blobstore"
	"github.com/hupe1980/genohdc/distance"
	"github.com/hupe1980/genohdc/encoder"
	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/privacy"
	"github.com/hupe1980/genohdc/vcf"
)

var (
	// ErrInvalidK is returned when k is negative.
	ErrInvalidK = errors.New("k must not be negative")

	// ErrInvalidInput marks input that no encoder can accept.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound marks a missing blob, record or entry.
	ErrNotFound = errors.New("not found")

	// ErrBudgetExhausted marks a rejected privacy spend.
	ErrBudgetExhausted = errors.New("privacy budget exhausted")
)

// ErrDimensionMismatch indicates a vector/query dimensionality mismatch.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrUnknownMetric indicates a metric name outside cosine, hamming, jaccard.
type ErrUnknownMetric struct {
	Name  string
	cause error
}

func (e *ErrUnknownMetric) Error() string { return e.cause.Error() }

func (e *ErrUnknownMetric) Unwrap() error { return e.cause }

// ErrIO reports a failed read or write with the operation that failed.
type ErrIO struct {
	Op    string
	cause error
}

func (e *ErrIO) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.cause)
}

func (e *ErrIO) Unwrap() error { return e.cause }

// ErrPartialFailure reports a batch in which some queries failed. The
// per-query errors are on the results; First is the earliest by index.
type ErrPartialFailure struct {
	Succeeded int
	Failed    int
	First     error
}

func (e *ErrPartialFailure) Error() string {
	return fmt.Sprintf("%d of %d queries failed: %v", e.Failed, e.Succeeded+e.Failed, e.First)
}

func (e *ErrPartialFailure) Unwrap() error { return e.First }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Already translated per item.
	var pf *ErrPartialFailure
	if errors.As(err, &pf) {
		return err
	}

	var dm *hypervector.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	var um *distance.ErrUnknownMetric
	if errors.As(err, &um) {
		return &ErrUnknownMetric{Name: um.Name, cause: err}
	}

	var tooShort *encoder.ErrSequenceTooShort
	var badToken *encoder.ErrInvalidToken
	var badDim *hypervector.ErrInvalidDimension
	if errors.As(err, &tooShort) || errors.As(err, &badToken) || errors.As(err, &badDim) || errors.Is(err, encoder.ErrEmptyInput) {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	var exhausted *privacy.ErrBudgetExhausted
	if errors.As(err, &exhausted) {
		return fmt.Errorf("%w: %w", ErrBudgetExhausted, err)
	}

	if errors.Is(err, blobstore.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	var vio *vcf.ErrIO
	if errors.As(err, &vio) {
		return &ErrIO{Op: "vcf " + vio.Op, cause: err}
	}
	var bio *blobstore.ErrIO
	if errors.As(err, &bio) {
		return &ErrIO{Op: "blobstore " + bio.Op, cause: err}
	}

	return err
}

package hypervector

import (
	"fmt"
)

// ErrDimensionMismatch indicates two vectors of different dimensions were combined.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrInvalidDimension indicates a dimension that is not a positive multiple of 8.
type ErrInvalidDimension struct {
	Dimension int
}

func (e *ErrInvalidDimension) Error() string {
	return fmt.Sprintf("invalid dimension %d: must be a positive multiple of 8", e.Dimension)
}

// ErrInvalidLength indicates a byte buffer of the wrong size for the requested dimension.
type ErrInvalidLength struct {
	Expected int
	Actual   int
}

func (e *ErrInvalidLength) Error() string {
	return fmt.Sprintf("invalid vector length: expected %d bytes, got %d", e.Expected, e.Actual)
}

// ErrInvalidWeight indicates a negative or non-finite bundle weight.
type ErrInvalidWeight struct {
	Index  int
	Weight float64
}

func (e *ErrInvalidWeight) Error() string {
	return fmt.Sprintf("invalid weight %v at index %d: must be finite and non-negative", e.Weight, e.Index)
}

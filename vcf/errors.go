package vcf

import (
	"fmt"
)

// ErrFormat reports a malformed line.
type ErrFormat struct {
	Line   int // 1-based, 0 when unknown
	Reason string
}

func (e *ErrFormat) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("vcf format error at line %d: %s", e.Line, e.Reason)
	}
	return "vcf format error: " + e.Reason
}

// ErrInvalidRegion reports an unusable position or region string.
type ErrInvalidRegion struct {
	Line   int // 0 for region strings
	Value  string
	Reason string
}

func (e *ErrInvalidRegion) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("invalid position %q at line %d: %s", e.Value, e.Line, e.Reason)
	}
	return fmt.Sprintf("invalid region %q: %s", e.Value, e.Reason)
}

// ErrInvalidGenotype reports a GT value that cannot be parsed.
type ErrInvalidGenotype struct {
	Line int
	GT   string
}

func (e *ErrInvalidGenotype) Error() string {
	return fmt.Sprintf("invalid genotype %q at line %d", e.GT, e.Line)
}

// ErrIO wraps a read failure with the operation that failed.
type ErrIO struct {
	Op  string
	Err error
}

func (e *ErrIO) Error() string {
	return fmt.Sprintf("vcf %s: %v", e.Op, e.Err)
}

func (e *ErrIO) Unwrap() error { return e.Err }

package batch

import (
	"fmt"
)

// ErrPartialFailure reports a batch in which some items failed.
type ErrPartialFailure struct {
	Succeeded int
	Failed    int
	First     error // error of the lowest failed index
}

func (e *ErrPartialFailure) Error() string {
	return fmt.Sprintf("batch partially failed: %d succeeded, %d failed (first error: %v)", e.Succeeded, e.Failed, e.First)
}

func (e *ErrPartialFailure) Unwrap() error { return e.First }

package index

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyID is returned when adding an entry without an identifier.
	ErrEmptyID = errors.New("empty id")

	// ErrMemoryLimit is returned when the resource controller has no room
	// for another vector.
	ErrMemoryLimit = errors.New("memory limit exceeded")

	// ErrCorrupt indicates a snapshot that fails validation.
	ErrCorrupt = errors.New("corrupt snapshot")
)

// ErrOutOfBounds reports a position outside the index.
type ErrOutOfBounds struct {
	Index int
	Len   int
}

func (e *ErrOutOfBounds) Error() string {
	return fmt.Sprintf("index %d out of bounds (len %d)", e.Index, e.Len)
}

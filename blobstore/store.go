package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// ErrInvalidName is returned for names that are empty or escape the store root.
var ErrInvalidName = errors.New("invalid blob name")

// Store is a flat namespace of immutable blobs.
type Store interface {
	// Get returns the full content of a blob.
	Get(ctx context.Context, name string) ([]byte, error)
	// Put writes a blob atomically, replacing any previous content.
	Put(ctx context.Context, name string, data []byte) error
	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error
	// List returns the sorted names that start with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
	// Exists reports whether a blob exists.
	Exists(ctx context.Context, name string) (bool, error)
}

// ErrIO wraps a backend failure with the operation and blob name.
type ErrIO struct {
	Op   string
	Name string
	Err  error
}

func (e *ErrIO) Error() string {
	return fmt.Sprintf("blobstore %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *ErrIO) Unwrap() error { return e.Err }

// ValidateName rejects empty names, absolute paths and ".." segments.
func ValidateName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." || seg == "." {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}

// Write buffers everything fn writes and stores it as one blob. Nothing is
// stored when fn fails.
func Write(ctx context.Context, s Store, name string, fn func(w io.Writer) error) error {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		return err
	}
	return s.Put(ctx, name, buf.Bytes())
}

// Read fetches a blob and hands fn a reader over its content.
func Read(ctx context.Context, s Store, name string, fn func(r io.Reader) error) error {
	data, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	return fn(bytes.NewReader(data))
}

func hasPrefix(name, prefix string) bool {
	return prefix == "" || strings.HasPrefix(name, prefix)
}

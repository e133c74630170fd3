package blobstore

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	ifs "github.com/hupe1980/genohdc/internal/fs"
)

// LocalStore implements Store on a directory of the local file system.
// Names may contain "/" and map to subdirectories.
type LocalStore struct {
	root string
	fs   ifs.FileSystem
}

var _ Store = (*LocalStore)(nil)

// NewLocalStore creates a new LocalStore rooted at the given directory.
func NewLocalStore(root string) *LocalStore {
	return newLocalStore(root, ifs.Default)
}

func newLocalStore(root string, fsys ifs.FileSystem) *LocalStore {
	return &LocalStore{root: root, fs: fsys}
}

// Root returns the store directory.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(name)), nil
}

// Get reads a blob.
func (s *LocalStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := s.fs.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, &ErrIO{Op: "get", Name: name, Err: err}
	}
	return data, nil
}

// Put writes to a temporary file in the target directory, syncs it and
// renames it into place.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return &ErrIO{Op: "put", Name: name, Err: err}
	}

	f, err := s.fs.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return &ErrIO{Op: "put", Name: name, Err: err}
	}
	tmp := f.Name()
	defer func() { _ = s.fs.Remove(tmp) }()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return &ErrIO{Op: "put", Name: name, Err: err}
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return &ErrIO{Op: "put", Name: name, Err: err}
	}
	if err := f.Close(); err != nil {
		return &ErrIO{Op: "put", Name: name, Err: err}
	}
	if err := s.fs.Rename(tmp, p); err != nil {
		return &ErrIO{Op: "put", Name: name, Err: err}
	}
	return nil
}

// Delete removes a blob file.
func (s *LocalStore) Delete(_ context.Context, name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &ErrIO{Op: "delete", Name: name, Err: err}
	}
	return nil
}

// List walks the store directory. Temporary files from in-flight writes are
// skipped.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	names := []string{}
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == s.root {
				return fs.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if hasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, &ErrIO{Op: "list", Name: prefix, Err: err}
	}
	slices.Sort(names)
	return names, nil
}

// Exists reports whether the blob file exists.
func (s *LocalStore) Exists(_ context.Context, name string) (bool, error) {
	p, err := s.path(name)
	if err != nil {
		return false, err
	}
	_, err = s.fs.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, &ErrIO{Op: "exists", Name: name, Err: err}
	}
}

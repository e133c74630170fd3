// Package gcs provides a Google Cloud Storage implementation of
// blobstore.Store.
//
//	client, err := storage.NewClient(ctx)
//	if err != nil {
//	    return err
//	}
//	store := gcs.NewStore(client, "my-bucket", "genohdc/")
package gcs

import (
	"context"
	"errors"
	"io"
	"path"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/hupe1980/genohdc/blobstore"
	"github.com/hupe1980/genohdc/internal/hash"
)

// Store implements blobstore.Store on a GCS bucket.
type Store struct {
	client *storage.Client
	bucket string
	prefix string
}

var _ blobstore.Store = (*Store)(nil)

// NewStore creates a store; rootPrefix is prepended to every object name.
func NewStore(client *storage.Client, bucket, rootPrefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: rootPrefix}
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

func (s *Store) name(key string) string {
	return strings.TrimPrefix(strings.TrimPrefix(key, strings.TrimSuffix(s.prefix, "/")), "/")
}

func (s *Store) object(name string) *storage.ObjectHandle {
	return s.client.Bucket(s.bucket).Object(s.key(name))
}

// Get downloads a blob.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	r, err := s.object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, blobstore.ErrNotFound
		}
		return nil, &blobstore.ErrIO{Op: "get", Name: name, Err: err}
	}
	defer func() { _ = r.Close() }()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &blobstore.ErrIO{Op: "get", Name: name, Err: err}
	}
	return data, nil
}

// Put uploads a blob with a CRC32C checksum. The object becomes visible
// only when the writer closes successfully.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if err := blobstore.ValidateName(name); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.object(name).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	w.CRC32C = hash.CRC32C(data)
	w.SendCRC32C = true

	if _, err := w.Write(data); err != nil {
		cancel()
		_ = w.Close()
		return &blobstore.ErrIO{Op: "put", Name: name, Err: err}
	}
	if err := w.Close(); err != nil {
		return &blobstore.ErrIO{Op: "put", Name: name, Err: err}
	}
	return nil
}

// Delete removes a blob.
func (s *Store) Delete(ctx context.Context, name string) error {
	err := s.object(name).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return &blobstore.ErrIO{Op: "delete", Name: name, Err: err}
	}
	return nil
}

// List iterates the bucket under the store prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := s.key(prefix)
	if prefix == "" || strings.HasSuffix(prefix, "/") {
		fullPrefix = strings.TrimSuffix(fullPrefix, "/") + "/"
	}
	if fullPrefix == "/" {
		fullPrefix = ""
	}

	names := []string{}
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: fullPrefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, &blobstore.ErrIO{Op: "list", Name: prefix, Err: err}
		}
		if n := s.name(attrs.Name); n != "" {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Exists reads the object attributes.
func (s *Store) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.object(name).Attrs(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrObjectNotExist):
		return false, nil
	default:
		return false, &blobstore.ErrIO{Op: "exists", Name: name, Err: err}
	}
}

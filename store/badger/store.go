package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"

	"github.com/hupe1980/genohdc/codec"
	"github.com/hupe1980/genohdc/index"
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("record not found")

var recordPrefix = []byte("v/")

// Config holds configuration for a Store.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Useful for testing.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// Codec encodes records. Nil uses codec.Default.
	Codec codec.Codec

	// Logger receives BadgerDB's internal log lines. Nil disables them.
	Logger *slog.Logger
}

// DefaultConfig returns a durable on-disk configuration.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Store is a persistent id → record map.
type Store struct {
	db    *badger.DB
	codec codec.Codec
}

// Open opens or creates a store.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create store directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}

	c := cfg.Codec
	if c == nil {
		c = codec.Default
	}
	return &Store{db: db, codec: c}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func recordKey(id string) []byte {
	return append(bytes.Clone(recordPrefix), id...)
}

func (s *Store) encode(e index.Entry) ([]byte, error) {
	if e.ID == "" {
		return nil, index.ErrEmptyID
	}
	return s.codec.Marshal(index.NewRecord(e))
}

func (s *Store) decode(val []byte) (index.Entry, error) {
	var rec index.Record
	if err := s.codec.Unmarshal(val, &rec); err != nil {
		return index.Entry{}, fmt.Errorf("decode record: %w", err)
	}
	return rec.Entry()
}

// Put stores e, replacing any record with the same id.
func (s *Store) Put(ctx context.Context, e index.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := s.encode(e)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(e.ID), val)
	})
}

// PutBatch stores all entries through a write batch.
func (s *Store) PutBatch(ctx context.Context, entries []index.Entry) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		val, err := s.encode(e)
		if err != nil {
			return fmt.Errorf("record %q: %w", e.ID, err)
		}
		if err := wb.Set(recordKey(e.ID), val); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// Get returns the record for id.
func (s *Store) Get(ctx context.Context, id string) (index.Entry, error) {
	if err := ctx.Err(); err != nil {
		return index.Entry{}, err
	}
	var out index.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			out, err = s.decode(val)
			return err
		})
	})
	return out, err
}

// Delete removes id. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(id))
	})
}

// Iterate calls fn for every record in key order. Returning an error from fn
// stops the iteration.
func (s *Store) Iterate(ctx context.Context, fn func(index.Entry) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var e index.Entry
			err := it.Item().Value(func(val []byte) error {
				var err error
				e, err = s.decode(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Len counts stored records.
func (s *Store) Len(ctx context.Context) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// LoadInto adds every stored record to x and returns how many were added.
func (s *Store) LoadInto(ctx context.Context, x *index.Index) (int, error) {
	n := 0
	err := s.Iterate(ctx, func(e index.Entry) error {
		if err := x.AddEntry(e); err != nil {
			return fmt.Errorf("load %q: %w", e.ID, err)
		}
		n++
		return nil
	})
	return n, err
}

// SaveFrom writes every entry of x and returns how many were written.
func (s *Store) SaveFrom(ctx context.Context, x *index.Index) (int, error) {
	entries := x.Entries()
	if err := s.PutBatch(ctx, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// RunGC triggers one value-log garbage collection pass. It reports false
// when there was nothing to rewrite.
func (s *Store) RunGC(discardRatio float64) (bool, error) {
	err := s.db.RunValueLogGC(discardRatio)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrNoRewrite), errors.Is(err, badger.ErrGCInMemoryMode):
		return false, nil
	default:
		return false, err
	}
}

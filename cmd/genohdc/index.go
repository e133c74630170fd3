package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/genohdc/blobstore"
	"github.com/hupe1980/genohdc/index"
	"github.com/hupe1980/genohdc/store/badger"
)

// sampleInput is one sequence to index.
type sampleInput struct {
	ID       string         `json:"id"`
	Sequence string         `json:"sequence"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type indexSummary struct {
	Database string `json:"database"`
	Entries  int    `json:"entries"`
	Failed   int    `json:"failed,omitempty"`
}

func newIndexCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build and maintain reference databases",
	}
	cmd.AddCommand(
		newIndexBuildCmd(a),
		newIndexSnapshotCmd(a),
		newIndexRestoreCmd(a),
		newIndexExportCmd(a),
	)
	return cmd
}

func (a *app) writeDatabase(cmd *cobra.Command, name string, entries []index.Entry) error {
	name = a.databaseName(name)
	store, closeStore, err := openStore(cmd.Context(), a.cfg.Storage, a.rc)
	if err != nil {
		return err
	}
	defer closeStore()

	return blobstore.Write(cmd.Context(), store, name, func(w io.Writer) error {
		return index.WriteDatabase(w, a.engine.Codec(), entries)
	})
}

func (a *app) openBadger(dir string) (*badger.Store, error) {
	cfg := badger.DefaultConfig(dir)
	cfg.Codec = a.engine.Codec()
	cfg.Logger = a.logger.Logger
	return badger.Open(cfg)
}

func newIndexBuildCmd(a *app) *cobra.Command {
	var (
		db        string
		badgerDir string
		k         int
	)

	cmd := &cobra.Command{
		Use:   "build SAMPLES",
		Short: "Encode DNA samples into a database",
		Long: `Encode DNA samples into a database. SAMPLES is a JSON file (or - for
stdin) holding an array of {"id", "sequence", "tags", "metadata"} objects.
The database is written to the configured store and, with --badger, also
persisted to a BadgerDB directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var samples []sampleInput
			if err := a.decodeFile(cmd, args[0], &samples); err != nil {
				return err
			}
			if len(samples) == 0 {
				return errors.New("no samples")
			}

			seqs := make([]string, len(samples))
			for i, s := range samples {
				if s.ID == "" {
					return fmt.Errorf("sample %d: %w", i, index.ErrEmptyID)
				}
				seqs[i] = s.Sequence
			}

			bc := a.cfg.Batch
			if cmd.Flags().Changed("k") {
				bc.K = k
			}
			res, err := a.engine.EncodeDNABatch(cmd.Context(), seqs, bc)
			if err != nil && (res == nil || !bc.SkipInvalid) {
				return err
			}

			entries := make([]index.Entry, len(res.Items))
			for i, it := range res.Items {
				s := samples[res.Indices[i]]
				entries[i] = index.Entry{ID: s.ID, Vector: it.Vector, Tags: s.Tags, Metadata: s.Metadata}
			}
			for _, f := range res.Failed {
				a.logger.Warn("sample skipped", "id", samples[f.Index].ID, "error", f.Err)
			}

			if err := a.writeDatabase(cmd, db, entries); err != nil {
				return err
			}
			if badgerDir != "" {
				st, err := a.openBadger(badgerDir)
				if err != nil {
					return err
				}
				defer st.Close()
				if err := st.PutBatch(cmd.Context(), entries); err != nil {
					return err
				}
			}

			return a.print(cmd, indexSummary{Database: a.databaseName(db), Entries: len(entries), Failed: len(res.Failed)})
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "database blob name (default: server.database)")
	cmd.Flags().StringVar(&badgerDir, "badger", "", "also persist entries to this BadgerDB directory")
	cmd.Flags().IntVarP(&k, "k", "k", 6, "k-mer length (default: batch.k)")
	return cmd
}

func newIndexSnapshotCmd(a *app) *cobra.Command {
	var (
		db          string
		compression string
	)

	cmd := &cobra.Command{
		Use:   "snapshot NAME",
		Short: "Write a compressed binary snapshot of a database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := index.ParseCompression(compression)
			if err != nil {
				return err
			}
			entries, err := a.loadDatabase(cmd, db)
			if err != nil {
				return err
			}

			dim := a.engine.Dimension()
			if len(entries) > 0 {
				dim = entries[0].Vector.Dimension()
			}
			x, err := index.FromEntries(entries,
				index.WithDimension(dim),
				index.WithMetric(a.cfg.Metric()),
				index.WithResourceController(a.rc),
				index.WithLogger(a.logger.Logger),
			)
			if err != nil {
				return err
			}

			store, closeStore, err := openStore(cmd.Context(), a.cfg.Storage, a.rc)
			if err != nil {
				return err
			}
			defer closeStore()

			err = blobstore.Write(cmd.Context(), store, args[0], func(w io.Writer) error {
				return x.Save(cmd.Context(), w, index.WithCompression(c))
			})
			if err != nil {
				return err
			}
			return a.print(cmd, indexSummary{Database: args[0], Entries: x.Len()})
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "database blob name (default: server.database)")
	cmd.Flags().StringVar(&compression, "compression", "zstd", "none, lz4 or zstd")
	return cmd
}

func newIndexRestoreCmd(a *app) *cobra.Command {
	var db string

	cmd := &cobra.Command{
		Use:   "restore SNAPSHOT",
		Short: "Rebuild a JSON database from a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(cmd.Context(), a.cfg.Storage, a.rc)
			if err != nil {
				return err
			}
			defer closeStore()

			var x *index.Index
			err = blobstore.Read(cmd.Context(), store, args[0], func(r io.Reader) error {
				var err error
				x, err = index.Load(cmd.Context(), r, index.WithResourceController(a.rc), index.WithLogger(a.logger.Logger))
				return err
			})
			if err != nil {
				return err
			}

			entries := x.Entries()
			if err := a.writeDatabase(cmd, db, entries); err != nil {
				return err
			}
			return a.print(cmd, indexSummary{Database: a.databaseName(db), Entries: len(entries)})
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "database blob name (default: server.database)")
	return cmd
}

func newIndexExportCmd(a *app) *cobra.Command {
	var db string

	cmd := &cobra.Command{
		Use:   "export BADGER_DIR",
		Short: "Write the entries of a BadgerDB directory as a JSON database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openBadger(args[0])
			if err != nil {
				return err
			}
			defer st.Close()

			var entries []index.Entry
			err = st.Iterate(cmd.Context(), func(e index.Entry) error {
				entries = append(entries, e)
				return nil
			})
			if err != nil {
				return err
			}

			if err := a.writeDatabase(cmd, db, entries); err != nil {
				return err
			}
			return a.print(cmd, indexSummary{Database: a.databaseName(db), Entries: len(entries)})
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "database blob name (default: server.database)")
	return cmd
}

package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hupe1980/genohdc"
	"github.com/hupe1980/genohdc/blobstore"
	"github.com/hupe1980/genohdc/index"
)

// searchFlags are shared by search and batch.
type searchFlags struct {
	db        string
	topK      int
	threshold float64
	metric    string
	tags      []string
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.db, "db", "", "database blob name (default: server.database)")
	cmd.Flags().IntVar(&f.topK, "top-k", 0, "maximum results per query (default: search.top_k)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", 0, "minimum similarity")
	cmd.Flags().StringVar(&f.metric, "metric", "", "cosine, hamming or jaccard (default: search.metric)")
}

func (f *searchFlags) params(cmd *cobra.Command, a *app) genohdc.SearchParams {
	p := genohdc.SearchParams{
		TopK:      a.cfg.Search.TopK,
		Threshold: a.cfg.Search.Threshold,
		Metric:    a.cfg.Search.Metric,
		AllTags:   f.tags,
	}
	if cmd.Flags().Changed("top-k") {
		p.TopK = f.topK
	}
	if cmd.Flags().Changed("threshold") {
		th := f.threshold
		p.Threshold = &th
	}
	if f.metric != "" {
		p.Metric = f.metric
	}
	return p
}

// databaseName falls back to the configured server database.
func (a *app) databaseName(name string) string {
	if name == "" {
		return a.cfg.Server.Database
	}
	return name
}

// loadDatabase reads a JSON database from the configured store.
func (a *app) loadDatabase(cmd *cobra.Command, name string) ([]index.Entry, error) {
	name = a.databaseName(name)
	store, closeStore, err := openStore(cmd.Context(), a.cfg.Storage, a.rc)
	if err != nil {
		return nil, err
	}
	defer closeStore()

	var entries []index.Entry
	err = blobstore.Read(cmd.Context(), store, name, func(r io.Reader) error {
		var err error
		entries, err = index.ReadDatabase(r, a.engine.Codec())
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load database %q: %w", name, err)
	}
	return entries, nil
}

func newSimilarityCmd(a *app) *cobra.Command {
	var (
		metric     string
		confidence bool
	)

	cmd := &cobra.Command{
		Use:   "similarity HEX HEX",
		Short: "Compare two hypervectors",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v1, err := parseVector(args[0])
			if err != nil {
				return err
			}
			v2, err := parseVector(args[1])
			if err != nil {
				return err
			}
			if metric == "" {
				metric = a.cfg.Search.Metric
			}
			res, err := a.engine.Similarity(cmd.Context(), v1, v2, metric, confidence)
			if err != nil {
				return err
			}
			return a.print(cmd, res)
		},
	}
	cmd.Flags().StringVar(&metric, "metric", "", "cosine, hamming or jaccard (default: search.metric)")
	cmd.Flags().BoolVar(&confidence, "confidence", true, "report the confidence band and significance")
	return cmd
}

func newAnalyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze HEX",
		Short: "Report density and entropy of a hypervector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseVector(args[0])
			if err != nil {
				return err
			}
			return a.print(cmd, a.engine.Analyze(v))
		},
	}
}

func newSearchCmd(a *app) *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search HEX",
		Short: "Rank a database against a query vector",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseVector(args[0])
			if err != nil {
				return err
			}
			db, err := a.loadDatabase(cmd, f.db)
			if err != nil {
				return err
			}
			results, err := a.engine.Search(cmd.Context(), q, db, f.params(cmd, a))
			if err != nil {
				return err
			}
			if results == nil {
				results = []genohdc.SearchResult{}
			}
			return a.print(cmd, results)
		},
	}
	f.register(cmd)
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "only consider entries carrying every tag")
	return cmd
}

func newBatchCmd(a *app) *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "batch QUERIES",
		Short: "Rank a database against many query vectors",
		Long: `Rank a database against many query vectors. QUERIES is a JSON file
(or - for stdin) holding an array of {"id": ..., "vector": HEX} objects.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var queries []genohdc.Query
			if err := a.decodeFile(cmd, args[0], &queries); err != nil {
				return err
			}
			db, err := a.loadDatabase(cmd, f.db)
			if err != nil {
				return err
			}
			results, err := a.engine.Batch(cmd.Context(), queries, db, f.params(cmd, a))
			var partial *genohdc.ErrPartialFailure
			if err != nil && !errors.As(err, &partial) {
				return err
			}
			// Failed queries are reported inline; the exit status still
			// reflects them.
			return errors.Join(a.print(cmd, results), err)
		},
	}
	f.register(cmd)
	return cmd
}

func newMatrixCmd(a *app) *cobra.Command {
	var (
		metric    string
		threshold float64
	)

	cmd := &cobra.Command{
		Use:   "matrix VECTORS",
		Short: "Compare every pair of vectors",
		Long: `Compare every pair of vectors. VECTORS is a JSON file (or - for stdin)
holding an array of {"id": ..., "vector": HEX} objects. Pairs are listed
most similar first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var vectors []genohdc.Query
			if err := a.decodeFile(cmd, args[0], &vectors); err != nil {
				return err
			}
			if metric == "" {
				metric = a.cfg.Search.Metric
			}
			var th *float64
			if cmd.Flags().Changed("threshold") {
				th = &threshold
			}
			pairs, err := a.engine.Matrix(cmd.Context(), vectors, metric, th)
			if err != nil {
				return err
			}
			if pairs == nil {
				pairs = []genohdc.MatrixEntry{}
			}
			return a.print(cmd, pairs)
		},
	}
	cmd.Flags().StringVar(&metric, "metric", "", "cosine, hamming or jaccard (default: search.metric)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "only list pairs at or above this similarity")
	return cmd
}

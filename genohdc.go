package genohdc

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/genohdc/batch"
	"github.com/hupe1980/genohdc/codebook"
	"github.com/hupe1980/genohdc/codec"
	"github.com/hupe1980/genohdc/confidence"
	"github.com/hupe1980/genohdc/distance"
	"github.com/hupe1980/genohdc/encoder"
	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/index"
	"github.com/hupe1980/genohdc/privacy/randomized"
	"github.com/hupe1980/genohdc/resource"
)

// Engine answers similarity, search, batch and analysis requests over
// hypervectors encoded with one codebook. It is safe for concurrent use.
type Engine struct {
	opts options
	cb   codebook.Codebook

	mu  sync.Mutex
	dna map[int]*encoder.DNAEncoder
}

// New creates an Engine.
func New(optFns ...Option) (*Engine, error) {
	o := applyOptions(optFns)

	cb := o.codebook
	if cb == nil {
		r, err := codebook.NewRandom(o.seed, codebook.WithCache(codebook.NewCache(o.cacheBytes, o.rc)))
		if err != nil {
			return nil, translateError(err)
		}
		cb = r
	}

	return &Engine{
		opts: o,
		cb:   cb,
		dna:  make(map[int]*encoder.DNAEncoder),
	}, nil
}

// Codebook returns the item codebook.
func (e *Engine) Codebook() codebook.Codebook { return e.cb }

// Codec returns the codec used for database IO.
func (e *Engine) Codec() codec.Codec { return e.opts.codec }

// Logger returns the engine logger.
func (e *Engine) Logger() *Logger { return e.opts.logger }

// ResourceController returns the configured controller, possibly nil.
func (e *Engine) ResourceController() *resource.Controller { return e.opts.rc }

// Dimension returns the codebook dimension.
func (e *Engine) Dimension() int { return e.cb.Dimension() }

// ConfidenceResult is the statistical summary attached to a similarity.
type ConfidenceResult struct {
	Level           confidence.Level `json:"level"`
	BitsAboveRandom int              `json:"bits_above_random"`
	ZScore          float64          `json:"z_score"`
	PValue          float64          `json:"p_value"`
	IsSignificant   bool             `json:"is_significant"`
}

// SimilarityResult is the answer to Similarity.
type SimilarityResult struct {
	Similarity float64           `json:"similarity"`
	Metric     string            `json:"metric"`
	Confidence *ConfidenceResult `json:"confidence,omitempty"`
}

// Similarity compares a and b under the named metric (empty means cosine).
// With withConfidence the result carries the confidence band and
// significance of the score.
func (e *Engine) Similarity(ctx context.Context, a, b hypervector.Hypervector, metric string, withConfidence bool) (SimilarityResult, error) {
	start := time.Now()
	res, err := e.similarity(a, b, metric, withConfidence)
	err = translateError(err)
	e.opts.metricsCollector.RecordSimilarity(metric, time.Since(start), err)
	e.opts.logger.LogSimilarity(ctx, metric, res.Similarity, err)
	return res, err
}

// parseMetric resolves a metric name; the empty name selects cosine.
func parseMetric(name string) (distance.Metric, error) {
	if name == "" {
		return distance.MetricCosine, nil
	}
	return distance.ParseMetric(name)
}

func (e *Engine) similarity(a, b hypervector.Hypervector, metric string, withConfidence bool) (SimilarityResult, error) {
	m, err := parseMetric(metric)
	if err != nil {
		return SimilarityResult{}, err
	}
	s, err := distance.Provider(m)(a, b)
	if err != nil {
		return SimilarityResult{}, err
	}

	res := SimilarityResult{Similarity: s, Metric: m.String()}
	if withConfidence {
		c := e.opts.thresholds.Calculate(s, a.Dimension())
		res.Confidence = &ConfidenceResult{
			Level:           c.Level,
			BitsAboveRandom: c.BitsAboveRandom,
			ZScore:          c.ZScore,
			PValue:          c.PValue,
			IsSignificant:   c.IsSignificant(e.opts.alpha),
		}
	}
	return res, nil
}

// SearchParams controls Search and Batch.
type SearchParams struct {
	// TopK caps the result count; 0 returns every match.
	TopK int
	// Threshold drops results below it when set.
	Threshold *float64
	// Metric is "cosine", "hamming" or "jaccard". Empty means cosine.
	Metric string
	// AllTags restricts candidates to entries carrying every tag.
	AllTags []string
}

// SearchResult is one ranked database entry.
type SearchResult struct {
	ID         string         `json:"id"`
	Similarity float64        `json:"similarity"`
	Metric     string         `json:"metric"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Search ranks db against query: entries below the threshold are dropped,
// the rest sorted by descending similarity (ties by database order) and cut
// to TopK.
func (e *Engine) Search(ctx context.Context, query hypervector.Hypervector, db []index.Entry, p SearchParams) ([]SearchResult, error) {
	start := time.Now()
	out, err := e.search(ctx, query, db, p)
	err = translateError(err)
	e.opts.metricsCollector.RecordSearch(p.TopK, len(db), time.Since(start), err)
	e.opts.logger.LogSearch(ctx, p.TopK, len(db), len(out), err)
	return out, err
}

func (e *Engine) search(ctx context.Context, query hypervector.Hypervector, db []index.Entry, p SearchParams) ([]SearchResult, error) {
	if err := validateQuery(query, p); err != nil {
		return nil, err
	}
	idx, err := e.buildIndex(db, query.Dimension(), p.Metric)
	if err != nil {
		return nil, err
	}
	return e.searchIndex(ctx, idx, query, p)
}

func validateQuery(query hypervector.Hypervector, p SearchParams) error {
	if p.TopK < 0 {
		return ErrInvalidK
	}
	if query.IsZero() {
		return fmt.Errorf("%w: empty query vector", ErrInvalidInput)
	}
	return nil
}

func (e *Engine) buildIndex(db []index.Entry, dim int, metric string) (*index.Index, error) {
	m, err := parseMetric(metric)
	if err != nil {
		return nil, err
	}
	return index.FromEntries(db,
		index.WithDimension(dim),
		index.WithMetric(m),
		index.WithResourceController(e.opts.rc),
		index.WithLogger(e.opts.logger.Logger),
	)
}

func (e *Engine) searchIndex(ctx context.Context, idx *index.Index, query hypervector.Hypervector, p SearchParams) ([]SearchResult, error) {
	k := p.TopK
	if k == 0 {
		k = idx.Len()
	}

	var opts []index.SearchOption
	if p.Threshold != nil {
		opts = append(opts, index.WithThreshold(*p.Threshold))
	}
	if len(p.AllTags) > 0 {
		opts = append(opts, index.WithAllTags(p.AllTags...))
	}

	hits, err := idx.Search(ctx, query, k, opts...)
	if err != nil {
		return nil, err
	}

	metric := idx.Metric().String()
	out := make([]SearchResult, len(hits))
	for i, h := range hits {
		out[i] = SearchResult{ID: h.ID, Similarity: h.Similarity, Metric: metric, Metadata: h.Metadata}
	}
	return out, nil
}

// Query is a vector with an optional caller id.
type Query struct {
	ID     string                  `json:"id,omitempty"`
	Vector hypervector.Hypervector `json:"vector"`
}

// BatchResult holds the ranked matches of one query, or the error that
// query failed with.
type BatchResult struct {
	QueryIndex int            `json:"query_index"`
	QueryID    string         `json:"query_id,omitempty"`
	Results    []SearchResult `json:"results"`
	Error      string         `json:"error,omitempty"`
	Err        error          `json:"-"`
}

// Batch runs every query against db. The database is indexed once and the
// queries fan out over the resource controller's workers. Results are in
// query order.
//
// A failing query does not stop the others. Its BatchResult carries the
// error and Batch returns every result together with *ErrPartialFailure.
// Errors that affect all queries (negative k, unknown metric, a database
// that cannot be indexed, cancellation) are returned without results.
func (e *Engine) Batch(ctx context.Context, queries []Query, db []index.Entry, p SearchParams) ([]BatchResult, error) {
	start := time.Now()
	out, err := e.batch(ctx, queries, db, p)
	err = translateError(err)
	e.opts.metricsCollector.RecordBatch(len(queries), time.Since(start), err)
	e.opts.logger.LogBatch(ctx, len(queries), len(db), err)
	return out, err
}

func (e *Engine) batch(ctx context.Context, queries []Query, db []index.Entry, p SearchParams) ([]BatchResult, error) {
	out := make([]BatchResult, len(queries))
	if len(queries) == 0 {
		return out, nil
	}
	if p.TopK < 0 {
		return nil, ErrInvalidK
	}

	idx, err := e.buildIndex(db, batchDimension(queries, db, e.Dimension()), p.Metric)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.rc.Workers())

	for i, q := range queries {
		g.Go(func() error {
			out[i] = BatchResult{QueryIndex: i, QueryID: q.ID}
			if err := e.opts.rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer e.opts.rc.ReleaseWorker()

			res, err := e.batchQuery(gctx, idx, q.Vector, p)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				err = translateError(fmt.Errorf("query %d: %w", i, err))
				out[i].Err, out[i].Error = err, err.Error()
				return nil
			}
			out[i].Results = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pf := &ErrPartialFailure{}
	for _, r := range out {
		if r.Err == nil {
			pf.Succeeded++
			continue
		}
		if pf.Failed == 0 {
			pf.First = r.Err
		}
		pf.Failed++
	}
	if pf.Failed > 0 {
		return out, pf
	}
	return out, nil
}

func (e *Engine) batchQuery(ctx context.Context, idx *index.Index, query hypervector.Hypervector, p SearchParams) ([]SearchResult, error) {
	if err := validateQuery(query, p); err != nil {
		return nil, err
	}
	return e.searchIndex(ctx, idx, query, p)
}

// batchDimension picks the index dimension: the database's when it has
// entries, else the first non-empty query's, else the engine's.
func batchDimension(queries []Query, db []index.Entry, fallback int) int {
	if len(db) > 0 {
		return db[0].Vector.Dimension()
	}
	for _, q := range queries {
		if !q.Vector.IsZero() {
			return q.Vector.Dimension()
		}
	}
	return fallback
}

// MatrixEntry is one pair i < j of a similarity matrix.
type MatrixEntry struct {
	I          int     `json:"i"`
	J          int     `json:"j"`
	IDI        string  `json:"id_i,omitempty"`
	IDJ        string  `json:"id_j,omitempty"`
	Similarity float64 `json:"similarity"`
}

// Matrix compares every pair of vectors and returns the pairs at or above
// threshold (all pairs when nil), most similar first.
func (e *Engine) Matrix(ctx context.Context, vectors []Query, metric string, threshold *float64) ([]MatrixEntry, error) {
	start := time.Now()
	out, err := e.matrix(ctx, vectors, metric, threshold)
	err = translateError(err)
	e.opts.metricsCollector.RecordBatch(len(vectors), time.Since(start), err)
	e.opts.logger.LogBatch(ctx, len(vectors), len(vectors), err)
	return out, err
}

func (e *Engine) matrix(ctx context.Context, vectors []Query, metric string, threshold *float64) ([]MatrixEntry, error) {
	m, err := parseMetric(metric)
	if err != nil {
		return nil, err
	}

	vs := make([]hypervector.Hypervector, len(vectors))
	for i, q := range vectors {
		vs[i] = q.Vector
	}
	mx, err := batch.NewSimilarityMatrix(ctx, vs, m)
	if err != nil {
		return nil, err
	}

	t := math.Inf(-1)
	if threshold != nil {
		t = *threshold
	}
	pairs := mx.PairsAboveThreshold(t)

	out := make([]MatrixEntry, len(pairs))
	for n, p := range pairs {
		out[n] = MatrixEntry{
			I:          p.I,
			J:          p.J,
			IDI:        vectors[p.I].ID,
			IDJ:        vectors[p.J].ID,
			Similarity: p.Similarity,
		}
	}
	return out, nil
}

// Analysis describes the bit statistics of one vector.
type Analysis struct {
	Dimension       int     `json:"dimension"`
	Bytes           int     `json:"bytes"`
	Popcount        int     `json:"popcount"`
	Density         float64 `json:"density"`
	EntropyEstimate float64 `json:"entropy_estimate"`
	IsValid         bool    `json:"is_valid"`
}

// Analyze reports the density of v and its binary entropy. A random item
// vector sits near density 0.5 and entropy 1. IsValid reports whether v has
// the engine's dimension.
func (e *Engine) Analyze(v hypervector.Hypervector) Analysis {
	p := v.Density()
	entropy := 0.0
	if p > 0 && p < 1 {
		entropy = -p*math.Log2(p) - (1-p)*math.Log2(1-p)
	}
	return Analysis{
		Dimension:       v.Dimension(),
		Bytes:           v.Len(),
		Popcount:        v.Popcount(),
		Density:         p,
		EntropyEstimate: entropy,
		IsValid:         !v.IsZero() && v.Dimension() == e.cb.Dimension(),
	}
}

// DNAEncoder returns the position-permuted DNA encoder for k-mers of length
// k, creating it on first use.
func (e *Engine) DNAEncoder(k int) (*encoder.DNAEncoder, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if enc, ok := e.dna[k]; ok {
		return enc, nil
	}
	enc, err := encoder.NewDNAEncoder(e.cb, k)
	if err != nil {
		return nil, translateError(err)
	}
	e.dna[k] = enc
	return enc, nil
}

// EncodeDNA encodes seq with k-mers of length k.
func (e *Engine) EncodeDNA(ctx context.Context, seq string, k int) (encoder.EncodedSequence, error) {
	start := time.Now()
	res, err := e.encodeDNA(ctx, seq, k)
	err = translateError(err)
	e.opts.metricsCollector.RecordEncode("dna", time.Since(start), err)
	e.opts.logger.LogEncode(ctx, "dna", len(seq), err)
	return res, err
}

func (e *Engine) encodeDNA(ctx context.Context, seq string, k int) (encoder.EncodedSequence, error) {
	if err := ctx.Err(); err != nil {
		return encoder.EncodedSequence{}, err
	}
	enc, err := e.DNAEncoder(k)
	if err != nil {
		return encoder.EncodedSequence{}, err
	}
	return enc.Encode(seq)
}

// EncodeDNABatch encodes seqs with a batch encoder bound to the engine's
// codebook, resource controller and logger.
func (e *Engine) EncodeDNABatch(ctx context.Context, seqs []string, cfg batch.Config) (*batch.Result, error) {
	start := time.Now()
	enc, err := batch.NewEncoder(e.cb, cfg,
		batch.WithResourceController(e.opts.rc),
		batch.WithLogger(e.opts.logger.Logger),
	)
	if err != nil {
		err = translateError(err)
		e.opts.metricsCollector.RecordBatch(len(seqs), time.Since(start), err)
		return nil, err
	}

	res, err := enc.EncodeSequences(ctx, seqs)
	err = translateError(err)
	e.opts.metricsCollector.RecordBatch(len(seqs), time.Since(start), err)
	e.opts.logger.LogEncode(ctx, "dna-batch", len(seqs), err)
	return res, err
}

// Privatize releases a randomized-response copy of v at epsilon. When budget
// is non-nil the spend is charged only after v and epsilon are accepted, and
// a rejected spend returns ErrBudgetExhausted with no release.
func (e *Engine) Privatize(ctx context.Context, v hypervector.Hypervector, epsilon float64, budget *randomized.PrivacyBudget, optFns ...randomized.Option) (randomized.Vector, error) {
	params, err := randomized.NewParams(epsilon)
	if err != nil {
		return randomized.Vector{}, translateError(err)
	}

	opts := append([]randomized.Option{randomized.WithLogger(e.opts.logger.Logger)}, optFns...)
	out, err := randomized.Apply(ctx, v, params, opts...)
	if err != nil {
		return randomized.Vector{}, translateError(err)
	}

	if budget != nil {
		err := budget.Consume(epsilon)
		e.opts.metricsCollector.RecordPrivacySpend(epsilon, err)
		e.opts.logger.LogPrivacySpend(ctx, epsilon, budget.Remaining(), err)
		if err != nil {
			return randomized.Vector{}, translateError(err)
		}
	}
	return out, nil
}

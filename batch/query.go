package batch

import (
	"context"

	"github.com/hupe1980/genohdc/distance"
	"github.com/hupe1980/genohdc/hypervector"
)

// QueryBuilder encodes a query set and a corpus with the same encoder and
// compares them.
type QueryBuilder struct {
	enc     *Encoder
	metric  distance.Metric
	queries []string
	corpus  []string
}

// NewQueryBuilder creates a builder. Hamming similarity is used unless
// WithMetric says otherwise.
func NewQueryBuilder(enc *Encoder) *QueryBuilder {
	return &QueryBuilder{enc: enc, metric: distance.MetricHamming}
}

// WithMetric sets the comparison metric.
func (q *QueryBuilder) WithMetric(m distance.Metric) *QueryBuilder {
	q.metric = m
	return q
}

// AddQueries appends query sequences.
func (q *QueryBuilder) AddQueries(seqs ...string) *QueryBuilder {
	q.queries = append(q.queries, seqs...)
	return q
}

// AddCorpus appends corpus sequences.
func (q *QueryBuilder) AddCorpus(seqs ...string) *QueryBuilder {
	q.corpus = append(q.corpus, seqs...)
	return q
}

// FindTopK returns, per query, the k best corpus matches. Indices refer to
// the corpus as added.
func (q *QueryBuilder) FindTopK(ctx context.Context, k int) ([][]Match, error) {
	qv, err := q.enc.EncodeToVectors(ctx, q.queries)
	if err != nil {
		return nil, err
	}
	cv, err := q.enc.EncodeToVectors(ctx, q.corpus)
	if err != nil {
		return nil, err
	}
	out := make([][]Match, len(qv))
	for i, v := range qv {
		if out[i], err = TopK(v, cv, k, q.metric); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SimilarityMatrix returns the matrix over queries followed by corpus.
func (q *QueryBuilder) SimilarityMatrix(ctx context.Context) (*SimilarityMatrix, error) {
	seqs := make([]string, 0, len(q.queries)+len(q.corpus))
	seqs = append(append(seqs, q.queries...), q.corpus...)
	vs, err := q.enc.EncodeToVectors(ctx, seqs)
	if err != nil {
		return nil, err
	}
	return NewSimilarityMatrix(ctx, vs, q.metric)
}

// Vectors encodes the given sequences; a convenience for callers that keep
// the builder's encoder settings.
func (q *QueryBuilder) Vectors(ctx context.Context, seqs []string) ([]hypervector.Hypervector, error) {
	return q.enc.EncodeToVectors(ctx, seqs)
}

package genohdc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genohdc/batch"
	"github.com/hupe1980/genohdc/blobstore"
	"github.com/hupe1980/genohdc/confidence"
	"github.com/hupe1980/genohdc/distance"
	"github.com/hupe1980/genohdc/encoder"
	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/index"
	"github.com/hupe1980/genohdc/privacy"
	"github.com/hupe1980/genohdc/privacy/randomized"
	"github.com/hupe1980/genohdc/resource"
	"github.com/hupe1980/genohdc/vcf"
)

var testSeed = hypervector.SeedFromString("engine-test")

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	eng, err := New(append([]Option{WithSeed(testSeed)}, opts...)...)
	require.NoError(t, err)
	return eng
}

func vec(id string) hypervector.Hypervector {
	return hypervector.Random(testSeed, id)
}

func testDB() []index.Entry {
	return []index.Entry{
		{ID: "alpha", Vector: vec("alpha"), Metadata: map[string]any{"cohort": "a"}},
		{ID: "beta", Vector: vec("beta")},
		{ID: "gamma", Vector: vec("gamma")},
	}
}

func TestSimilarity(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	t.Run("self similarity with confidence", func(t *testing.T) {
		v := vec("x")
		res, err := eng.Similarity(ctx, v, v, "cosine", true)
		require.NoError(t, err)
		assert.Equal(t, 1.0, res.Similarity)
		assert.Equal(t, "cosine", res.Metric)
		require.NotNil(t, res.Confidence)
		assert.Equal(t, confidence.VeryHigh, res.Confidence.Level)
		assert.Equal(t, hypervector.Dimension/2, res.Confidence.BitsAboveRandom)
		assert.True(t, res.Confidence.IsSignificant)
	})

	t.Run("random pair is not significant", func(t *testing.T) {
		res, err := eng.Similarity(ctx, vec("x"), vec("y"), "hamming", true)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, res.Similarity, 0.1)
		require.NotNil(t, res.Confidence)
		assert.False(t, res.Confidence.Level.IsClinicalGrade())
	})

	t.Run("without confidence", func(t *testing.T) {
		res, err := eng.Similarity(ctx, vec("x"), vec("x"), "jaccard", false)
		require.NoError(t, err)
		assert.Equal(t, "jaccard", res.Metric)
		assert.Nil(t, res.Confidence)
	})

	t.Run("unknown metric", func(t *testing.T) {
		_, err := eng.Similarity(ctx, vec("x"), vec("x"), "euclidean", false)
		var um *ErrUnknownMetric
		require.ErrorAs(t, err, &um)
		assert.Equal(t, "euclidean", um.Name)

		var inner *distance.ErrUnknownMetric
		assert.ErrorAs(t, err, &inner)
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		short, err := hypervector.New(64)
		require.NoError(t, err)

		_, err = eng.Similarity(ctx, vec("x"), short, "cosine", false)
		var dm *ErrDimensionMismatch
		require.ErrorAs(t, err, &dm)
		assert.Equal(t, hypervector.Dimension, dm.Expected)
		assert.Equal(t, 64, dm.Actual)
	})

	t.Run("zero dimension", func(t *testing.T) {
		for _, metric := range []string{"cosine", "hamming", "jaccard"} {
			res, err := eng.Similarity(ctx, hypervector.Hypervector{}, hypervector.Hypervector{}, metric, true)
			assert.ErrorIs(t, err, ErrInvalidInput, metric)
			assert.Zero(t, res.Similarity, metric)
		}
	})
}

func TestSimilarity_DNAScenario(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	a, err := eng.EncodeDNA(ctx, "ACGTACGTACGT", 6)
	require.NoError(t, err)
	b, err := eng.EncodeDNA(ctx, "ACGTACGTACGT", 6)
	require.NoError(t, err)
	c, err := eng.EncodeDNA(ctx, "TGCATGCATGCA", 6)
	require.NoError(t, err)

	same, err := eng.Similarity(ctx, a.Vector, b.Vector, "cosine", false)
	require.NoError(t, err)
	diff, err := eng.Similarity(ctx, a.Vector, c.Vector, "cosine", false)
	require.NoError(t, err)

	assert.Greater(t, same.Similarity, 0.99)
	assert.Less(t, diff.Similarity, same.Similarity)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	db := testDB()

	t.Run("ranks the exact match first", func(t *testing.T) {
		res, err := eng.Search(ctx, vec("beta"), db, SearchParams{TopK: 2, Metric: "hamming"})
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, "beta", res[0].ID)
		assert.Equal(t, 1.0, res[0].Similarity)
		assert.Equal(t, "hamming", res[0].Metric)
	})

	t.Run("zero top k returns everything", func(t *testing.T) {
		res, err := eng.Search(ctx, vec("beta"), db, SearchParams{})
		require.NoError(t, err)
		assert.Len(t, res, len(db))
		assert.Equal(t, "cosine", res[0].Metric)
	})

	t.Run("threshold", func(t *testing.T) {
		th := 0.9
		res, err := eng.Search(ctx, vec("alpha"), db, SearchParams{TopK: 10, Threshold: &th})
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "alpha", res[0].ID)
		assert.Equal(t, "a", res[0].Metadata["cohort"])
	})

	t.Run("empty database", func(t *testing.T) {
		res, err := eng.Search(ctx, vec("alpha"), nil, SearchParams{TopK: 5})
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("negative top k", func(t *testing.T) {
		_, err := eng.Search(ctx, vec("alpha"), db, SearchParams{TopK: -1})
		assert.ErrorIs(t, err, ErrInvalidK)
	})

	t.Run("empty query", func(t *testing.T) {
		_, err := eng.Search(ctx, hypervector.Hypervector{}, db, SearchParams{TopK: 1})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unknown metric", func(t *testing.T) {
		_, err := eng.Search(ctx, vec("alpha"), db, SearchParams{TopK: 1, Metric: "l2"})
		var um *ErrUnknownMetric
		assert.ErrorAs(t, err, &um)
	})
}

func TestBatch(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t, WithResourceController(resource.NewController(resource.Config{MaxWorkers: 2})))
	db := testDB()

	queries := []Query{
		{ID: "q-gamma", Vector: vec("gamma")},
		{Vector: vec("alpha")},
		{ID: "q-beta", Vector: vec("beta")},
	}

	res, err := eng.Batch(ctx, queries, db, SearchParams{TopK: 1})
	require.NoError(t, err)
	require.Len(t, res, 3)

	want := []string{"gamma", "alpha", "beta"}
	for i, r := range res {
		assert.Equal(t, i, r.QueryIndex)
		assert.Equal(t, queries[i].ID, r.QueryID)
		require.Len(t, r.Results, 1)
		assert.Equal(t, want[i], r.Results[0].ID)
	}

	t.Run("empty", func(t *testing.T) {
		res, err := eng.Batch(ctx, nil, db, SearchParams{TopK: 1})
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("failed queries keep the others", func(t *testing.T) {
		short, err := hypervector.New(64)
		require.NoError(t, err)

		res, err := eng.Batch(ctx, []Query{
			{ID: "ok", Vector: vec("alpha")},
			{ID: "short", Vector: short},
			{ID: "empty"},
			{ID: "also-ok", Vector: vec("beta")},
		}, db, SearchParams{TopK: 1})

		var pf *ErrPartialFailure
		require.ErrorAs(t, err, &pf)
		assert.Equal(t, 2, pf.Succeeded)
		assert.Equal(t, 2, pf.Failed)
		var dm *ErrDimensionMismatch
		assert.ErrorAs(t, err, &dm, "first failure is the short query")

		require.Len(t, res, 4)
		require.NoError(t, res[0].Err)
		require.Len(t, res[0].Results, 1)
		assert.Equal(t, "alpha", res[0].Results[0].ID)

		assert.ErrorAs(t, res[1].Err, &dm)
		assert.NotEmpty(t, res[1].Error)
		assert.Empty(t, res[1].Results)

		assert.ErrorIs(t, res[2].Err, ErrInvalidInput)
		assert.Equal(t, "empty", res[2].QueryID)

		require.NoError(t, res[3].Err)
		assert.Equal(t, "beta", res[3].Results[0].ID)
	})

	t.Run("first query invalid", func(t *testing.T) {
		res, err := eng.Batch(ctx, []Query{{}, {Vector: vec("gamma")}}, db, SearchParams{TopK: 1})
		var pf *ErrPartialFailure
		require.ErrorAs(t, err, &pf)
		assert.Equal(t, 1, pf.Failed)
		require.Len(t, res, 2)
		assert.Equal(t, "gamma", res[1].Results[0].ID)
	})

	t.Run("negative top k", func(t *testing.T) {
		res, err := eng.Batch(ctx, queries, db, SearchParams{TopK: -1})
		assert.ErrorIs(t, err, ErrInvalidK)
		assert.Nil(t, res)
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := eng.Batch(cctx, queries, db, SearchParams{TopK: 1})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMatrix(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	vectors := []Query{
		{ID: "s0", Vector: vec("dup")},
		{ID: "s1", Vector: vec("other")},
		{ID: "s2", Vector: vec("dup")},
	}

	t.Run("all pairs", func(t *testing.T) {
		res, err := eng.Matrix(ctx, vectors, "cosine", nil)
		require.NoError(t, err)
		require.Len(t, res, 3)
		assert.Equal(t, MatrixEntry{I: 0, J: 2, IDI: "s0", IDJ: "s2", Similarity: 1}, res[0])
		for i := 1; i < len(res); i++ {
			assert.LessOrEqual(t, res[i].Similarity, res[i-1].Similarity)
			assert.Less(t, res[i].I, res[i].J)
		}
	})

	t.Run("threshold", func(t *testing.T) {
		th := 0.99
		res, err := eng.Matrix(ctx, vectors, "hamming", &th)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, 0, res[0].I)
		assert.Equal(t, 2, res[0].J)
	})

	t.Run("single vector", func(t *testing.T) {
		res, err := eng.Matrix(ctx, vectors[:1], "cosine", nil)
		require.NoError(t, err)
		assert.Empty(t, res)
	})
}

func TestAnalyze(t *testing.T) {
	eng := newEngine(t)

	t.Run("random vector", func(t *testing.T) {
		a := eng.Analyze(vec("r"))
		assert.Equal(t, hypervector.Dimension, a.Dimension)
		assert.Equal(t, hypervector.Bytes, a.Bytes)
		assert.InDelta(t, 0.5, a.Density, 0.05)
		assert.Greater(t, a.EntropyEstimate, 0.99)
		assert.True(t, a.IsValid)
	})

	t.Run("all zero", func(t *testing.T) {
		z, err := hypervector.New(hypervector.Dimension)
		require.NoError(t, err)
		a := eng.Analyze(z)
		assert.Equal(t, 0, a.Popcount)
		assert.Equal(t, 0.0, a.Density)
		assert.Equal(t, 0.0, a.EntropyEstimate)
		assert.True(t, a.IsValid)
	})

	t.Run("foreign dimension", func(t *testing.T) {
		v, err := hypervector.New(64)
		require.NoError(t, err)
		assert.False(t, eng.Analyze(v).IsValid)
	})
}

func TestEncodeDNA(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)

	t.Run("reuses encoders per k", func(t *testing.T) {
		e1, err := eng.DNAEncoder(4)
		require.NoError(t, err)
		e2, err := eng.DNAEncoder(4)
		require.NoError(t, err)
		assert.Same(t, e1, e2)
	})

	t.Run("invalid token", func(t *testing.T) {
		_, err := eng.EncodeDNA(ctx, "ACGTNACGT", 3)
		assert.ErrorIs(t, err, ErrInvalidInput)
		var bad *encoder.ErrInvalidToken
		assert.ErrorAs(t, err, &bad)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := eng.EncodeDNA(ctx, "ACG", 6)
		var short *encoder.ErrSequenceTooShort
		assert.ErrorAs(t, err, &short)
	})

	t.Run("invalid k", func(t *testing.T) {
		_, err := eng.EncodeDNA(ctx, "ACGT", 0)
		var cfg *encoder.ErrInvalidConfig
		assert.ErrorAs(t, err, &cfg)
	})

	t.Run("batch", func(t *testing.T) {
		cfg := batch.DefaultConfig()
		cfg.K = 4
		res, err := eng.EncodeDNABatch(ctx, []string{"ACGTACGT", "TTTTGGGG"}, cfg)
		require.NoError(t, err)
		assert.Equal(t, 2, res.SuccessCount())

		direct, err := eng.EncodeDNA(ctx, "ACGTACGT", 4)
		require.NoError(t, err)
		assert.True(t, direct.Vector.Equal(res.Items[0].Vector))
	})

	t.Run("batch with invalid sequence", func(t *testing.T) {
		cfg := batch.DefaultConfig()
		cfg.K = 4
		res, err := eng.EncodeDNABatch(ctx, []string{"ACGTACGT", "ACGTNNNN"}, cfg)
		assert.ErrorIs(t, err, ErrInvalidInput)
		var pf *batch.ErrPartialFailure
		assert.ErrorAs(t, err, &pf)
		require.NotNil(t, res)
		assert.Equal(t, []int{1}, res.FailedIndices())
	})
}

func TestPrivatize(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	eng := newEngine(t, WithMetricsCollector(metrics))

	budget, err := randomized.NewPrivacyBudget(1.0)
	require.NoError(t, err)

	v := vec("patient")
	noisy, err := eng.Privatize(ctx, v, 0.6, budget, randomized.WithSeed(42))
	require.NoError(t, err)
	assert.Equal(t, v.Dimension(), noisy.Vector.Dimension())
	assert.False(t, noisy.Vector.Equal(v))

	_, err = eng.Privatize(ctx, v, 0.6, budget, randomized.WithSeed(42))
	assert.ErrorIs(t, err, ErrBudgetExhausted)
	var exhausted *privacy.ErrBudgetExhausted
	assert.ErrorAs(t, err, &exhausted)
	assert.InDelta(t, 0.4, budget.Remaining(), 1e-9)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.PrivacySpends)
	assert.Equal(t, int64(1), stats.PrivacyRejected)
	assert.InDelta(t, 0.6, stats.PrivacyEpsilonSpent, 1e-6)

	t.Run("deterministic under seed", func(t *testing.T) {
		a, err := eng.Privatize(ctx, v, 2, nil, randomized.WithSeed(7))
		require.NoError(t, err)
		b, err := eng.Privatize(ctx, v, 2, nil, randomized.WithSeed(7))
		require.NoError(t, err)
		assert.True(t, a.Vector.Equal(b.Vector))
	})

	t.Run("invalid epsilon", func(t *testing.T) {
		_, err := eng.Privatize(ctx, v, 0, nil)
		var ip *privacy.ErrInvalidParameter
		assert.ErrorAs(t, err, &ip)
	})

	t.Run("rejected input keeps budget", func(t *testing.T) {
		fresh, err := randomized.NewPrivacyBudget(1.0)
		require.NoError(t, err)

		tests := []struct {
			name    string
			vector  hypervector.Hypervector
			epsilon float64
		}{
			{"empty vector", hypervector.Hypervector{}, 0.5},
			{"zero epsilon", v, 0},
			{"negative epsilon", v, -1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := eng.Privatize(ctx, tt.vector, tt.epsilon, fresh)
				require.Error(t, err)
				assert.InDelta(t, 1.0, fresh.Remaining(), 1e-12)
				assert.Equal(t, 0, fresh.QueryCount())
			})
		}

		_, err = eng.Privatize(ctx, hypervector.Hypervector{}, 0.5, fresh)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestMetricsCollector(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	eng := newEngine(t, WithMetricsCollector(metrics))

	_, _ = eng.Similarity(ctx, vec("a"), vec("b"), "cosine", false)
	_, _ = eng.Similarity(ctx, vec("a"), vec("b"), "bogus", false)
	_, _ = eng.Search(ctx, vec("a"), testDB(), SearchParams{TopK: 1})
	_, _ = eng.Batch(ctx, []Query{{Vector: vec("a")}}, testDB(), SearchParams{TopK: 1})
	_, _ = eng.EncodeDNA(ctx, "ACGTAC", 3)

	stats := metrics.GetStats()
	assert.Equal(t, int64(2), stats.SimilarityCount)
	assert.Equal(t, int64(1), stats.SimilarityErrors)
	assert.Equal(t, int64(1), stats.SearchCount)
	assert.Equal(t, int64(0), stats.SearchErrors)
	assert.Equal(t, int64(1), stats.BatchCount)
	assert.Equal(t, int64(1), stats.BatchQueries)
	assert.Equal(t, int64(1), stats.EncodeCount)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	eng := newEngine(t, WithLogger(logger.WithRequestID("req-1")))

	_, err := eng.Search(context.Background(), vec("a"), testDB(), SearchParams{TopK: 1})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"search completed"`)
	assert.Contains(t, out, `"request_id":"req-1"`)
	assert.Contains(t, out, `"results":1`)
}

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name  string
		in    error
		check func(t *testing.T, err error)
	}{
		{
			name: "nil",
			in:   nil,
			check: func(t *testing.T, err error) {
				assert.NoError(t, err)
			},
		},
		{
			name: "empty input",
			in:   encoder.ErrEmptyInput,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrInvalidInput)
				assert.ErrorIs(t, err, encoder.ErrEmptyInput)
			},
		},
		{
			name: "blob not found",
			in:   fmt.Errorf("get db.json: %w", blobstore.ErrNotFound),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNotFound)
			},
		},
		{
			name: "vcf io",
			in:   &vcf.ErrIO{Op: "read", Err: errors.New("disk gone")},
			check: func(t *testing.T, err error) {
				var e *ErrIO
				require.ErrorAs(t, err, &e)
				assert.Equal(t, "vcf read", e.Op)
			},
		},
		{
			name: "blobstore io",
			in:   &blobstore.ErrIO{Op: "put", Name: "x", Err: errors.New("denied")},
			check: func(t *testing.T, err error) {
				var e *ErrIO
				require.ErrorAs(t, err, &e)
				assert.Equal(t, "blobstore put", e.Op)
			},
		},
		{
			name: "passthrough",
			in:   errors.New("other"),
			check: func(t *testing.T, err error) {
				assert.EqualError(t, err, "other")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, translateError(tt.in))
		})
	}
}

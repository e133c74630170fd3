package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genohdc"
	"github.com/hupe1980/genohdc/blobstore"
	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/index"
	"github.com/hupe1980/genohdc/telemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var seed = hypervector.SeedFromString("server-test")

func newTestServer(t *testing.T, optFns ...Option) *Server {
	t.Helper()
	eng, err := genohdc.New()
	require.NoError(t, err)
	return New(eng, optFns...)
}

func testDatabase() []index.Entry {
	return []index.Entry{
		{ID: "a", Vector: hypervector.Random(seed, "a"), Tags: []string{"tumor"}},
		{ID: "b", Vector: hypervector.Random(seed, "b"), Tags: []string{"normal"}},
		{ID: "c", Vector: hypervector.Random(seed, "c"), Tags: []string{"tumor"}},
	}
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, WithDatabase(testDatabase()))

	w := do(t, s, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[HealthResponse](t, w)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, hypervector.Dimension, resp.Dimension)
	assert.Equal(t, 3, resp.Entries)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestRequestIDPropagation(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(requestIDHeader))
}

func TestSimilarity(t *testing.T) {
	s := newTestServer(t)
	a := hypervector.Random(seed, "a")
	b := hypervector.Random(seed, "b")

	t.Run("self", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/similarity", SimilarityRequest{Vector1: a, Vector2: a, Confidence: true})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode[genohdc.SimilarityResult](t, w)
		assert.InDelta(t, 1.0, resp.Similarity, 1e-12)
		assert.Equal(t, "cosine", resp.Metric)
		require.NotNil(t, resp.Confidence)
		assert.True(t, resp.Confidence.IsSignificant)
	})

	t.Run("random pair", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/similarity", SimilarityRequest{Vector1: a, Vector2: b, Metric: "hamming"})
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[genohdc.SimilarityResult](t, w)
		assert.InDelta(t, 0.5, resp.Similarity, 0.05)
		assert.Nil(t, resp.Confidence)
	})

	tests := []struct {
		name string
		body any
		code int
	}{
		{"missing vector", map[string]any{"vector1": a.Hex()}, http.StatusBadRequest},
		{"bad hex", map[string]any{"vector1": "zz", "vector2": a.Hex()}, http.StatusBadRequest},
		{"unknown metric", SimilarityRequest{Vector1: a, Vector2: b, Metric: "euclid"}, http.StatusBadRequest},
		{"dimension mismatch", map[string]any{"vector1": a.Hex(), "vector2": "ffff"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/v1/similarity", tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())

			resp := decode[ErrorResponse](t, w)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestSearch(t *testing.T) {
	db := testDatabase()
	s := newTestServer(t, WithDatabase(db), WithDefaultTopK(2))

	t.Run("served database", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/search", SearchRequest{Query: db[1].Vector})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode[SearchResponse](t, w)
		require.Len(t, resp.Results, 2)
		assert.Equal(t, "b", resp.Results[0].ID)
		assert.InDelta(t, 1.0, resp.Results[0].Similarity, 1e-12)
	})

	t.Run("tags", func(t *testing.T) {
		k := 10
		w := do(t, s, http.MethodPost, "/v1/search", SearchRequest{Query: db[1].Vector, TopK: &k, Tags: []string{"tumor"}})
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[SearchResponse](t, w)
		require.Len(t, resp.Results, 2)
		for _, r := range resp.Results {
			assert.NotEqual(t, "b", r.ID)
		}
	})

	t.Run("inline database", func(t *testing.T) {
		records := []index.Record{index.NewRecord(db[2])}
		w := do(t, s, http.MethodPost, "/v1/search", SearchRequest{Query: db[2].Vector, Database: records})
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[SearchResponse](t, w)
		require.Len(t, resp.Results, 1)
		assert.Equal(t, "c", resp.Results[0].ID)
	})

	t.Run("threshold filters everything", func(t *testing.T) {
		th := 0.99
		w := do(t, s, http.MethodPost, "/v1/search", SearchRequest{
			Query:     hypervector.Random(seed, "outsider"),
			Threshold: &th,
		})
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[SearchResponse](t, w)
		assert.NotNil(t, resp.Results)
		assert.Empty(t, resp.Results)
	})

	t.Run("negative k", func(t *testing.T) {
		k := -1
		w := do(t, s, http.MethodPost, "/v1/search", SearchRequest{Query: db[0].Vector, TopK: &k})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bad record", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/search", SearchRequest{
			Query:    db[0].Vector,
			Database: []index.Record{{ID: "x", Vector: "not-hex"}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBatch(t *testing.T) {
	db := testDatabase()
	s := newTestServer(t, WithDatabase(db))

	k := 1
	w := do(t, s, http.MethodPost, "/v1/batch", BatchRequest{
		Queries: []genohdc.Query{{ID: "q0", Vector: db[2].Vector}, {ID: "q1", Vector: db[0].Vector}},
		TopK:    &k,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[BatchResponse](t, w)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "q0", resp.Results[0].QueryID)
	assert.Equal(t, "c", resp.Results[0].Results[0].ID)
	assert.Equal(t, 1, resp.Results[1].QueryIndex)
	assert.Equal(t, "a", resp.Results[1].Results[0].ID)

	t.Run("failed query", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/batch", map[string]any{
			"queries": []map[string]any{
				{"id": "good", "vector": db[1].Vector.Hex()},
				{"id": "short", "vector": "ffff"},
			},
			"top_k": 1,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		resp := decode[BatchResponse](t, w)
		assert.Equal(t, 1, resp.Failed)
		require.Len(t, resp.Results, 2)
		require.Len(t, resp.Results[0].Results, 1)
		assert.Equal(t, "b", resp.Results[0].Results[0].ID)
		assert.Empty(t, resp.Results[0].Error)
		assert.Contains(t, resp.Results[1].Error, "dimension mismatch")
	})

	t.Run("empty queries", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/batch", BatchRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMatrix(t *testing.T) {
	s := newTestServer(t)
	a := hypervector.Random(seed, "a")

	w := do(t, s, http.MethodPost, "/v1/matrix", MatrixRequest{Vectors: []genohdc.Query{
		{ID: "x", Vector: a},
		{ID: "y", Vector: hypervector.Random(seed, "b")},
		{ID: "z", Vector: a},
	}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[MatrixResponse](t, w)
	require.Len(t, resp.Pairs, 3)
	assert.Equal(t, "x", resp.Pairs[0].IDI)
	assert.Equal(t, "z", resp.Pairs[0].IDJ)
	assert.InDelta(t, 1.0, resp.Pairs[0].Similarity, 1e-12)

	t.Run("single vector", func(t *testing.T) {
		w := do(t, s, http.MethodPost, "/v1/matrix", MatrixRequest{Vectors: []genohdc.Query{{Vector: a}}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestAnalyze(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/analyze", AnalyzeRequest{Vector: hypervector.Random(seed, "a")})
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[genohdc.Analysis](t, w)
	assert.Equal(t, hypervector.Dimension, resp.Dimension)
	assert.InDelta(t, 0.5, resp.Density, 0.05)
	assert.True(t, resp.IsValid)

	w = do(t, s, http.MethodPost, "/v1/analyze", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEncodeDNA(t *testing.T) {
	s := newTestServer(t)

	w := do(t, s, http.MethodPost, "/v1/encode/dna", EncodeDNARequest{Sequence: "ACGTACGTAC", K: 4})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[EncodeDNAResponse](t, w)
	assert.Equal(t, 7, resp.KmerCount)
	assert.Equal(t, 4, resp.KmerLength)
	assert.Equal(t, 10, resp.SequenceLength)
	assert.Equal(t, hypervector.Dimension, resp.Vector.Dimension())

	tests := []struct {
		name string
		req  EncodeDNARequest
	}{
		{"too short", EncodeDNARequest{Sequence: "ACG"}},
		{"invalid base", EncodeDNARequest{Sequence: "ACGTXXACGT", K: 3}},
		{"k too large", EncodeDNARequest{Sequence: "ACGTACGTAC", K: 33}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, "/v1/encode/dna", tt.req)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, WithRateLimit(0.001, 1))

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s, http.MethodGet, "/healthz", nil).Code)
}

func TestMaxBodyBytes(t *testing.T) {
	s := newTestServer(t, WithMaxBodyBytes(64))

	w := do(t, s, http.MethodPost, "/v1/analyze", AnalyzeRequest{Vector: hypervector.Random(seed, "a")})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := telemetry.NewPrometheusCollector(reg)
	require.NoError(t, err)

	s := newTestServer(t, WithMetrics(c, reg))
	require.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", nil).Code)

	w := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `route="/healthz"`), w.Body.String())
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	s := newTestServer(t, WithStore(store, "db.json"))

	_, err := s.Reload(ctx)
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	require.NoError(t, blobstore.Write(ctx, store, "db.json", func(w io.Writer) error {
		return index.WriteDatabase(w, nil, testDatabase())
	}))

	n, err := s.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	resp := decode[HealthResponse](t, do(t, s, http.MethodGet, "/healthz", nil))
	assert.Equal(t, 3, resp.Entries)

	t.Run("no store", func(t *testing.T) {
		n, err := newTestServer(t).Reload(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"invalid k", genohdc.ErrInvalidK, http.StatusBadRequest},
		{"invalid input", genohdc.ErrInvalidInput, http.StatusBadRequest},
		{"not found", genohdc.ErrNotFound, http.StatusNotFound},
		{"budget", genohdc.ErrBudgetExhausted, http.StatusForbidden},
		{"mismatch", &genohdc.ErrDimensionMismatch{Expected: 8, Actual: 16}, http.StatusBadRequest},
		{"other", io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, statusOf(tt.err))
		})
	}
}

package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/genohdc"
	"github.com/hupe1980/genohdc/encoder"
	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/index"
)

const defaultKmerLength = 6

var errZeroVector = errors.New("vector is required")

// badRequest marks errors caused by the request body itself.
type badRequest struct{ err error }

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

func statusOf(err error) int {
	var (
		br       *badRequest
		mismatch *genohdc.ErrDimensionMismatch
		metric   *genohdc.ErrUnknownMetric
		cfg      *encoder.ErrInvalidConfig
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &br),
		errors.As(err, &mismatch),
		errors.As(err, &metric),
		errors.As(err, &cfg),
		errors.Is(err, genohdc.ErrInvalidInput),
		errors.Is(err, genohdc.ErrInvalidK),
		errors.Is(err, index.ErrEmptyID):
		return http.StatusBadRequest
	case errors.Is(err, genohdc.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, genohdc.ErrBudgetExhausted):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	code := statusOf(err)
	if code >= http.StatusInternalServerError {
		requestLogger(c, s.logger).ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(code, ErrorResponse{Error: err.Error(), RequestID: c.GetString(requestIDKey)})
}

func (s *Server) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		s.fail(c, &badRequest{err: err})
		return false
	}
	return true
}

func requireVector(v hypervector.Hypervector) error {
	if v.IsZero() {
		return &badRequest{err: errZeroVector}
	}
	return nil
}

// entries resolves the request database, falling back to the served one.
func (s *Server) entries(records []index.Record) ([]index.Entry, error) {
	if records == nil {
		return s.database(), nil
	}
	out := make([]index.Entry, len(records))
	for i, r := range records {
		e, err := r.Entry()
		if err != nil {
			return nil, &badRequest{err: err}
		}
		out[i] = e
	}
	return out, nil
}

func (s *Server) params(topK *int, threshold *float64, metric string, tags []string) genohdc.SearchParams {
	p := genohdc.SearchParams{TopK: s.defaultK, Threshold: threshold, Metric: metric, AllTags: tags}
	if topK != nil {
		p.TopK = *topK
	}
	return p
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Dimension: s.engine.Dimension(),
		Entries:   len(s.database()),
	})
}

func (s *Server) handleSimilarity(c *gin.Context) {
	var req SimilarityRequest
	if !s.bind(c, &req) {
		return
	}
	if err := errors.Join(requireVector(req.Vector1), requireVector(req.Vector2)); err != nil {
		s.fail(c, &badRequest{err: err})
		return
	}

	res, err := s.engine.Similarity(c.Request.Context(), req.Vector1, req.Vector2, req.Metric, req.Confidence)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleSearch(c *gin.Context) {
	var req SearchRequest
	if !s.bind(c, &req) {
		return
	}
	if err := requireVector(req.Query); err != nil {
		s.fail(c, err)
		return
	}
	db, err := s.entries(req.Database)
	if err != nil {
		s.fail(c, err)
		return
	}

	results, err := s.engine.Search(c.Request.Context(), req.Query, db, s.params(req.TopK, req.Threshold, req.Metric, req.Tags))
	if err != nil {
		s.fail(c, err)
		return
	}
	if results == nil {
		results = []genohdc.SearchResult{}
	}
	c.JSON(http.StatusOK, SearchResponse{Results: results})
}

func (s *Server) handleBatch(c *gin.Context) {
	var req BatchRequest
	if !s.bind(c, &req) {
		return
	}
	for _, q := range req.Queries {
		if err := requireVector(q.Vector); err != nil {
			s.fail(c, err)
			return
		}
	}
	db, err := s.entries(req.Database)
	if err != nil {
		s.fail(c, err)
		return
	}

	results, err := s.engine.Batch(c.Request.Context(), req.Queries, db, s.params(req.TopK, req.Threshold, req.Metric, nil))
	var partial *genohdc.ErrPartialFailure
	if err != nil && !errors.As(err, &partial) {
		s.fail(c, err)
		return
	}
	resp := BatchResponse{Results: results}
	if partial != nil {
		resp.Failed = partial.Failed
		requestLogger(c, s.logger).Warn("batch partially failed", "failed", partial.Failed, "error", partial.First)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleMatrix(c *gin.Context) {
	var req MatrixRequest
	if !s.bind(c, &req) {
		return
	}
	for _, q := range req.Vectors {
		if err := requireVector(q.Vector); err != nil {
			s.fail(c, err)
			return
		}
	}

	pairs, err := s.engine.Matrix(c.Request.Context(), req.Vectors, req.Metric, req.Threshold)
	if err != nil {
		s.fail(c, err)
		return
	}
	if pairs == nil {
		pairs = []genohdc.MatrixEntry{}
	}
	c.JSON(http.StatusOK, MatrixResponse{Pairs: pairs})
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if !s.bind(c, &req) {
		return
	}
	if err := requireVector(req.Vector); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.engine.Analyze(req.Vector))
}

func (s *Server) handleEncodeDNA(c *gin.Context) {
	var req EncodeDNARequest
	if !s.bind(c, &req) {
		return
	}
	k := req.K
	if k == 0 {
		k = defaultKmerLength
	}

	res, err := s.engine.EncodeDNA(c.Request.Context(), req.Sequence, k)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, EncodeDNAResponse{
		Vector:         res.Vector,
		KmerCount:      res.KmerCount,
		KmerLength:     res.KmerLength,
		SequenceLength: res.SequenceLength,
		Skipped:        res.Skipped,
	})
}

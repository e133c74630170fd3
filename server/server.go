package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/hupe1980/genohdc"
	"github.com/hupe1980/genohdc/blobstore"
	"github.com/hupe1980/genohdc/index"
	"github.com/hupe1980/genohdc/telemetry"
)

// Server serves an Engine over HTTP.
type Server struct {
	engine *genohdc.Engine
	logger *genohdc.Logger

	store  blobstore.Store
	dbName string

	mu sync.RWMutex
	db []index.Entry

	limiter      *rate.Limiter
	metrics      *telemetry.PrometheusCollector
	gatherer     prometheus.Gatherer
	maxBodyBytes int64
	defaultK     int

	router *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithDatabase serves entries to requests that carry no database.
func WithDatabase(entries []index.Entry) Option {
	return func(s *Server) {
		s.db = entries
	}
}

// WithStore loads the served database from blob name in store. See Reload.
func WithStore(store blobstore.Store, name string) Option {
	return func(s *Server) {
		s.store = store
		s.dbName = name
	}
}

// WithRateLimit admits rps requests per second with the given burst.
// rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithMetrics records request metrics in c and serves g at /metrics.
func WithMetrics(c *telemetry.PrometheusCollector, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = c
		s.gatherer = g
	}
}

// WithLogger configures request logging. Pass nil to disable.
func WithLogger(l *genohdc.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMaxBodyBytes caps request bodies. 0 disables the cap.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.maxBodyBytes = n
	}
}

// WithDefaultTopK sets the result count used when a request omits top_k.
func WithDefaultTopK(k int) Option {
	return func(s *Server) {
		s.defaultK = k
	}
}

// New creates a Server around engine.
func New(engine *genohdc.Engine, optFns ...Option) *Server {
	s := &Server{
		engine:   engine,
		defaultK: 10,
	}
	for _, fn := range optFns {
		fn(s)
	}
	if s.logger == nil {
		s.logger = genohdc.NoopLogger()
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Reload reads the database blob from the configured store and swaps it in.
// Without a store it is a no-op.
func (s *Server) Reload(ctx context.Context) (int, error) {
	if s.store == nil {
		return 0, nil
	}

	var entries []index.Entry
	err := blobstore.Read(ctx, s.store, s.dbName, func(r io.Reader) error {
		var err error
		entries, err = index.ReadDatabase(r, s.engine.Codec())
		return err
	})
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	s.db = entries
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "database loaded", "name", s.dbName, "entries", len(entries))
	return len(entries), nil
}

func (s *Server) database() []index.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.observe(), s.rateLimit(), s.limitBody())

	r.GET("/healthz", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	{
		v1.POST("/similarity", s.handleSimilarity)
		v1.POST("/search", s.handleSearch)
		v1.POST("/batch", s.handleBatch)
		v1.POST("/matrix", s.handleMatrix)
		v1.POST("/analyze", s.handleAnalyze)
		v1.POST("/encode/dna", s.handleEncodeDNA)
	}
	return r
}

package genohdc

import (
	"log/slog"

	"github.com/hupe1980/genohdc/codebook"
	"github.com/hupe1980/genohdc/codec"
	"github.com/hupe1980/genohdc/confidence"
	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/resource"
)

// DefaultSeed seeds the codebook when neither WithSeed nor WithCodebook is
// given.
var DefaultSeed = hypervector.SeedFromString("genohdc")

// DefaultAlpha is the significance level reported by Similarity.
const DefaultAlpha = 0.05

type options struct {
	codec            codec.Codec
	codebook         codebook.Codebook
	seed             hypervector.Seed
	cacheBytes       int64
	thresholds       confidence.Thresholds
	alpha            float64
	rc               *resource.Controller
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Engine construction.
type Option func(*options)

// WithCodec configures the codec used for database and snapshot IO.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithSeed derives the item codebook from seed. Vectors from engines with
// different seeds are unrelated and must not be compared.
func WithSeed(seed hypervector.Seed) Option {
	return func(o *options) {
		o.seed = seed
	}
}

// WithCodebook uses cb instead of a seed-derived codebook, for example a
// learned codebook loaded with codebook.LoadLearned.
func WithCodebook(cb codebook.Codebook) Option {
	return func(o *options) {
		o.codebook = cb
	}
}

// WithCodebookCache bounds the memoized seed-derived item vectors to
// capacity bytes. 0 leaves the cache unbounded.
func WithCodebookCache(capacity int64) Option {
	return func(o *options) {
		o.cacheBytes = capacity
	}
}

// WithConfidenceThresholds overrides the similarity bands used when
// Similarity reports confidence.
func WithConfidenceThresholds(t confidence.Thresholds) Option {
	return func(o *options) {
		o.thresholds = t
	}
}

// WithSignificanceLevel sets the α against which IsSignificant is judged.
func WithSignificanceLevel(alpha float64) Option {
	return func(o *options) {
		o.alpha = alpha
	}
}

// WithResourceController bounds the worker fan-out of Batch and search and
// the memory held by the codebook cache.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &genohdc.BasicMetricsCollector{}
//	eng, _ := genohdc.New(genohdc.WithMetricsCollector(metrics))
//	// ... use eng ...
//	stats := metrics.GetStats()
//	fmt.Printf("Searches: %d, Avg latency: %dns\n", stats.SearchCount, stats.SearchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		seed:             DefaultSeed,
		thresholds:       confidence.DefaultThresholds,
		alpha:            DefaultAlpha,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

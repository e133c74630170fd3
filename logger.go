package genohdc

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with genohdc-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithMetric adds a metric field to the logger.
func (l *Logger) WithMetric(metric string) *Logger {
	return &Logger{
		Logger: l.Logger.With("metric", metric),
	}
}

// WithK adds a k (result count) field to the logger.
func (l *Logger) WithK(k int) *Logger {
	return &Logger{
		Logger: l.Logger.With("k", k),
	}
}

// WithRequestID tags every record with a request id.
func (l *Logger) WithRequestID(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("request_id", id),
	}
}

// LogSimilarity logs a pairwise comparison.
func (l *Logger) LogSimilarity(ctx context.Context, metric string, similarity float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "similarity failed",
			"metric", metric,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "similarity computed",
			"metric", metric,
			"similarity", similarity,
		)
	}
}

// LogSearch logs a search operation.
func (l *Logger) LogSearch(ctx context.Context, k, candidates, resultsFound int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "search failed",
			"k", k,
			"candidates", candidates,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "search completed",
			"k", k,
			"candidates", candidates,
			"results", resultsFound,
		)
	}
}

// LogBatch logs a batch of queries.
func (l *Logger) LogBatch(ctx context.Context, queries, candidates int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "batch search failed",
			"queries", queries,
			"candidates", candidates,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "batch search completed",
			"queries", queries,
			"candidates", candidates,
		)
	}
}

// LogEncode logs an encoding operation.
func (l *Logger) LogEncode(ctx context.Context, kind string, length int, err error) {
	if err != nil {
		l.WarnContext(ctx, "encode failed",
			"kind", kind,
			"length", length,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "encode completed",
			"kind", kind,
			"length", length,
		)
	}
}

// LogPrivacySpend logs a privacy budget charge.
func (l *Logger) LogPrivacySpend(ctx context.Context, epsilon, remaining float64, err error) {
	if err != nil {
		l.WarnContext(ctx, "privacy spend rejected",
			"epsilon", epsilon,
			"remaining", remaining,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "privacy budget charged",
			"epsilon", epsilon,
			"remaining", remaining,
		)
	}
}

// LogSnapshot logs a snapshot operation.
func (l *Logger) LogSnapshot(ctx context.Context, name string, entries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"name", name,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "snapshot saved",
			"name", name,
			"entries", entries,
		)
	}
}

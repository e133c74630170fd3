package genohdc

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// telemetry package ships a Prometheus implementation.
type MetricsCollector interface {
	// RecordSimilarity is called after each pairwise comparison.
	RecordSimilarity(metric string, duration time.Duration, err error)

	// RecordSearch is called after each search. k is the number of results
	// requested and candidates the size of the searched database.
	RecordSearch(k, candidates int, duration time.Duration, err error)

	// RecordBatch is called after each batch of queries.
	RecordBatch(queries int, duration time.Duration, err error)

	// RecordEncode is called after each encoding. kind names the encoder.
	RecordEncode(kind string, duration time.Duration, err error)

	// RecordPrivacySpend is called after each privacy budget charge.
	RecordPrivacySpend(epsilon float64, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSimilarity(string, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error)   {}
func (NoopMetricsCollector) RecordBatch(int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordEncode(string, time.Duration, error)     {}
func (NoopMetricsCollector) RecordPrivacySpend(float64, error)             {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SimilarityCount      atomic.Int64
	SimilarityErrors     atomic.Int64
	SimilarityTotalNanos atomic.Int64
	SearchCount          atomic.Int64
	SearchErrors         atomic.Int64
	SearchTotalNanos     atomic.Int64
	BatchCount           atomic.Int64
	BatchQueries         atomic.Int64
	BatchErrors          atomic.Int64
	EncodeCount          atomic.Int64
	EncodeErrors         atomic.Int64
	PrivacySpends        atomic.Int64
	PrivacyRejected      atomic.Int64
	// micro-epsilon so the total stays an integer counter
	PrivacyEpsilonMicros atomic.Int64
}

// RecordSimilarity implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSimilarity(_ string, duration time.Duration, err error) {
	b.SimilarityCount.Add(1)
	b.SimilarityTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SimilarityErrors.Add(1)
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_, _ int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatch(queries int, _ time.Duration, err error) {
	b.BatchCount.Add(1)
	b.BatchQueries.Add(int64(queries))
	if err != nil {
		b.BatchErrors.Add(1)
	}
}

// RecordEncode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEncode(_ string, _ time.Duration, err error) {
	b.EncodeCount.Add(1)
	if err != nil {
		b.EncodeErrors.Add(1)
	}
}

// RecordPrivacySpend implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPrivacySpend(epsilon float64, err error) {
	if err != nil {
		b.PrivacyRejected.Add(1)
		return
	}
	b.PrivacySpends.Add(1)
	b.PrivacyEpsilonMicros.Add(int64(epsilon * 1e6))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SimilarityCount:     b.SimilarityCount.Load(),
		SimilarityErrors:    b.SimilarityErrors.Load(),
		SimilarityAvgNanos:  avg(b.SimilarityTotalNanos.Load(), b.SimilarityCount.Load()),
		SearchCount:         b.SearchCount.Load(),
		SearchErrors:        b.SearchErrors.Load(),
		SearchAvgNanos:      avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		BatchCount:          b.BatchCount.Load(),
		BatchQueries:        b.BatchQueries.Load(),
		BatchErrors:         b.BatchErrors.Load(),
		EncodeCount:         b.EncodeCount.Load(),
		EncodeErrors:        b.EncodeErrors.Load(),
		PrivacySpends:       b.PrivacySpends.Load(),
		PrivacyRejected:     b.PrivacyRejected.Load(),
		PrivacyEpsilonSpent: float64(b.PrivacyEpsilonMicros.Load()) / 1e6,
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SimilarityCount     int64
	SimilarityErrors    int64
	SimilarityAvgNanos  int64
	SearchCount         int64
	SearchErrors        int64
	SearchAvgNanos      int64
	BatchCount          int64
	BatchQueries        int64
	BatchErrors         int64
	EncodeCount         int64
	EncodeErrors        int64
	PrivacySpends       int64
	PrivacyRejected     int64
	PrivacyEpsilonSpent float64
}

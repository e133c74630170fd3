// Package telemetry exports genohdc operation metrics to Prometheus.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/genohdc"
)

var _ genohdc.MetricsCollector = (*PrometheusCollector)(nil)

// PrometheusCollector implements genohdc.MetricsCollector.
type PrometheusCollector struct {
	opLatency     *prometheus.HistogramVec
	searchK       prometheus.Histogram
	candidates    prometheus.Histogram
	batchQueries  prometheus.Counter
	privacySpends *prometheus.CounterVec
	epsilonSpent  prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
}

// NewPrometheusCollector creates the collector and registers its metrics
// with reg. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "genohdc_operation_latency_seconds",
			Help:    "Latency of engine operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"op", "status"}),
		searchK: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "genohdc_search_k",
			Help:    "Requested result count per search",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 500},
		}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "genohdc_search_candidates",
			Help:    "Database size scanned per search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
		batchQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "genohdc_batch_queries_total",
			Help: "Queries processed by batch operations",
		}),
		privacySpends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genohdc_privacy_spends_total",
			Help: "Privacy budget charges",
		}, []string{"status"}),
		epsilonSpent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "genohdc_privacy_epsilon_spent_total",
			Help: "Epsilon charged against privacy budgets",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genohdc_http_requests_total",
			Help: "HTTP requests served",
		}, []string{"route", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "genohdc_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	for _, m := range []prometheus.Collector{
		c.opLatency,
		c.searchK,
		c.candidates,
		c.batchQueries,
		c.privacySpends,
		c.epsilonSpent,
		c.httpRequests,
		c.httpLatency,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordSimilarity implements genohdc.MetricsCollector.
func (c *PrometheusCollector) RecordSimilarity(_ string, d time.Duration, err error) {
	c.opLatency.WithLabelValues("similarity", status(err)).Observe(d.Seconds())
}

// RecordSearch implements genohdc.MetricsCollector.
func (c *PrometheusCollector) RecordSearch(k, candidates int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("search", status(err)).Observe(d.Seconds())
	c.searchK.Observe(float64(k))
	c.candidates.Observe(float64(candidates))
}

// RecordBatch implements genohdc.MetricsCollector.
func (c *PrometheusCollector) RecordBatch(queries int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("batch", status(err)).Observe(d.Seconds())
	c.batchQueries.Add(float64(queries))
}

// RecordEncode implements genohdc.MetricsCollector.
func (c *PrometheusCollector) RecordEncode(kind string, d time.Duration, err error) {
	c.opLatency.WithLabelValues("encode_"+kind, status(err)).Observe(d.Seconds())
}

// RecordPrivacySpend implements genohdc.MetricsCollector.
func (c *PrometheusCollector) RecordPrivacySpend(epsilon float64, err error) {
	if err != nil {
		c.privacySpends.WithLabelValues("rejected").Inc()
		return
	}
	c.privacySpends.WithLabelValues("charged").Inc()
	c.epsilonSpent.Add(epsilon)
}

// ObserveRequest records one served HTTP request.
func (c *PrometheusCollector) ObserveRequest(route, code string, d time.Duration) {
	c.httpRequests.WithLabelValues(route, code).Inc()
	c.httpLatency.WithLabelValues(route).Observe(d.Seconds())
}

// Package distance names the similarity metrics available for hypervectors.
//
// # Supported Metrics
//
//   - MetricCosine: normalized cosine similarity in [0, 1] (default)
//   - MetricHamming: fraction of matching bits
//   - MetricJaccard: |a AND b| / |a OR b|
//
// # Usage
//
//	m, err := distance.ParseMetric("hamming")
//	fn := distance.Provider(m)
//	s, err := fn(a, b)
package distance

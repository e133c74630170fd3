package distance

import (
	"fmt"
	"strings"

	"github.com/hupe1980/genohdc/hypervector"
)

// Metric represents the similarity metric used for vector comparison.
type Metric int

const (
	MetricCosine Metric = iota
	MetricHamming
	MetricJaccard
)

// Names lists the accepted metric names in display order.
var Names = []string{"cosine", "hamming", "jaccard"}

func (m Metric) String() string {
	switch m {
	case MetricCosine:
		return "cosine"
	case MetricHamming:
		return "hamming"
	case MetricJaccard:
		return "jaccard"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ErrUnknownMetric is returned for a metric name outside Names.
type ErrUnknownMetric struct {
	Name string
}

func (e *ErrUnknownMetric) Error() string {
	return fmt.Sprintf("unknown metric %q. Valid: %s", e.Name, strings.Join(Names, ", "))
}

// ParseMetric resolves a metric name case-insensitively.
func ParseMetric(name string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "cosine":
		return MetricCosine, nil
	case "hamming":
		return MetricHamming, nil
	case "jaccard":
		return MetricJaccard, nil
	default:
		return 0, &ErrUnknownMetric{Name: name}
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	if m < MetricCosine || m > MetricJaccard {
		return nil, fmt.Errorf("cannot marshal metric %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Func computes a similarity score between two hypervectors.
type Func func(a, b hypervector.Hypervector) (float64, error)

// Provider returns the similarity function for the given metric.
// Unknown metrics fall back to normalized cosine.
func Provider(m Metric) Func {
	switch m {
	case MetricHamming:
		return hypervector.HammingSimilarity
	case MetricJaccard:
		return hypervector.JaccardSimilarity
	default:
		return hypervector.NormalizedCosineSimilarity
	}
}

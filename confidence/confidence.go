package confidence

import (
	"fmt"
	"math"

	"github.com/hupe1980/genohdc/hypervector"
)

// Level is a coarse confidence band.
type Level int

const (
	VeryLow Level = iota
	Low
	Moderate
	High
	VeryHigh
)

func (l Level) String() string {
	switch l {
	case VeryHigh:
		return "very_high"
	case High:
		return "high"
	case Moderate:
		return "moderate"
	case Low:
		return "low"
	case VeryLow:
		return "very_low"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	for _, c := range []Level{VeryLow, Low, Moderate, High, VeryHigh} {
		if c.String() == string(text) {
			*l = c
			return nil
		}
	}
	return fmt.Errorf("confidence: unknown level %q", text)
}

// Description returns a human-readable summary of the band.
func (l Level) Description() string {
	switch l {
	case VeryHigh:
		return "Very high confidence - strong match"
	case High:
		return "High confidence - likely match"
	case Moderate:
		return "Moderate confidence - possible match"
	case Low:
		return "Low confidence - weak match"
	default:
		return "Very low confidence - likely unrelated"
	}
}

// Probability returns the empirical probability that a match in this band is
// correct.
func (l Level) Probability() float64 {
	switch l {
	case VeryHigh:
		return 0.97
	case High:
		return 0.90
	case Moderate:
		return 0.77
	case Low:
		return 0.60
	default:
		return 0.35
	}
}

// IsClinicalGrade reports whether the band is High or VeryHigh.
func (l Level) IsClinicalGrade() bool { return l >= High }

// Thresholds are the inclusive lower bounds of each band.
type Thresholds struct {
	VeryHigh float64 `json:"very_high" yaml:"very_high" validate:"gtfield=High,lte=1"`
	High     float64 `json:"high" yaml:"high" validate:"gtfield=Moderate"`
	Moderate float64 `json:"moderate" yaml:"moderate" validate:"gtfield=Low"`
	Low      float64 `json:"low" yaml:"low" validate:"gte=0"`
}

// DefaultThresholds are calibrated for D = 16384.
var DefaultThresholds = Thresholds{
	VeryHigh: 0.85,
	High:     0.70,
	Moderate: 0.58,
	Low:      0.52,
}

// Level returns the band of similarity s.
func (t Thresholds) Level(s float64) Level {
	switch {
	case s >= t.VeryHigh:
		return VeryHigh
	case s >= t.High:
		return High
	case s >= t.Moderate:
		return Moderate
	case s >= t.Low:
		return Low
	default:
		return VeryLow
	}
}

// FromSimilarity bands s using DefaultThresholds.
func FromSimilarity(s float64) Level {
	return DefaultThresholds.Level(s)
}

// Result is a similarity with its statistics.
type Result struct {
	Similarity      float64 `json:"similarity"`
	Level           Level   `json:"confidence"`
	ZScore          float64 `json:"z_score"`
	BitsAboveRandom int     `json:"bits_above_random"`
	PValue          float64 `json:"p_value"`
}

// IsSignificant reports whether PValue < alpha.
func (r Result) IsSignificant(alpha float64) bool { return r.PValue < alpha }

// IsClinicalGrade reports whether the band is High or VeryHigh.
func (r Result) IsClinicalGrade() bool { return r.Level.IsClinicalGrade() }

// Calculate scores s for the canonical dimension.
func Calculate(s float64) Result {
	return CalculateWithDimension(s, hypervector.Dimension)
}

// CalculateWithDimension scores s for dimension dim using DefaultThresholds.
func CalculateWithDimension(s float64, dim int) Result {
	return DefaultThresholds.Calculate(s, dim)
}

// Calculate scores s for dimension dim.
func (t Thresholds) Calculate(s float64, dim int) Result {
	d := float64(dim)
	z := (s - 0.5) / math.Sqrt(0.25/d)
	return Result{
		Similarity:      s,
		Level:           t.Level(s),
		ZScore:          z,
		BitsAboveRandom: int(math.Round(d*s) - math.Round(d*0.5)),
		PValue:          normalCDFComplement(z),
	}
}

// Compare scores the normalized cosine similarity of a and b.
func Compare(a, b hypervector.Hypervector) (Result, error) {
	s, err := hypervector.NormalizedCosineSimilarity(a, b)
	if err != nil {
		return Result{}, err
	}
	return CalculateWithDimension(s, a.Dimension()), nil
}

// normalCDFComplement returns P(Z > z) for a standard normal Z using
// Abramowitz and Stegun 26.2.17.
func normalCDFComplement(z float64) float64 {
	if z > 8 {
		return 0
	}
	if z < -8 {
		return 1
	}
	t := 1 / (1 + 0.2316419*math.Abs(z))
	d := 0.3989423 * math.Exp(-z*z/2)
	p := d * t * (0.3193815 + t*(-0.3565638+t*(1.781478+t*(-1.821256+t*1.330274))))
	if z > 0 {
		return p
	}
	return 1 - p
}

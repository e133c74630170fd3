package numeric

import (
	"context"
	"math"

	"github.com/hupe1980/genohdc/privacy"
)

// Laplace adds Laplace(0, Δ/ε) noise.
type Laplace struct {
	sensitivity float64
	epsilon     float64
	scale       float64
	rng         *lockedRand
}

// NewLaplace validates Δ and ε and returns the mechanism.
func NewLaplace(ctx context.Context, sensitivity, epsilon float64, optFns ...Option) (*Laplace, error) {
	o := applyOptions(optFns)
	if err := privacy.ValidateSensitivity(sensitivity); err != nil {
		return nil, err
	}
	if err := privacy.CheckEpsilon(ctx, o.logger, epsilon); err != nil {
		return nil, err
	}
	rng, err := newLockedRand(o.seed)
	if err != nil {
		return nil, err
	}
	return &Laplace{
		sensitivity: sensitivity,
		epsilon:     epsilon,
		scale:       sensitivity / epsilon,
		rng:         rng,
	}, nil
}

// Epsilon returns the mechanism's ε.
func (l *Laplace) Epsilon() float64 { return l.epsilon }

// Scale returns b = Δ/ε.
func (l *Laplace) Scale() float64 { return l.scale }

// Variance returns 2b².
func (l *Laplace) Variance() float64 { return 2 * l.scale * l.scale }

// StdDev returns sqrt(2)·b.
func (l *Laplace) StdDev() float64 { return math.Sqrt(l.Variance()) }

// ConfidenceInterval95 returns the half-width h with P(|noise| ≤ h) = 0.95.
func (l *Laplace) ConfidenceInterval95() float64 { return -l.scale * math.Log(0.05) }

// Sample draws one noise value by inverse-CDF sampling.
func (l *Laplace) Sample() float64 {
	return sampleLaplace(l.rng, l.scale)
}

// AddNoise returns value plus one noise sample.
func (l *Laplace) AddNoise(value float64) float64 {
	return value + l.Sample()
}

func sampleLaplace(rng *lockedRand, scale float64) float64 {
	// u is uniform on (-0.5, 0.5) excluding 0.
	var u float64
	for {
		u = rng.float64() - 0.5
		if math.Abs(u) > 1e-15 && u > -0.5 {
			break
		}
	}
	sign := 1.0
	if u < 0 {
		sign = -1
	}
	return -scale * sign * math.Log(1-2*math.Abs(u))
}

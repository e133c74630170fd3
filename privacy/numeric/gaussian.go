package numeric

import (
	"context"
	"math"

	"github.com/hupe1980/genohdc/privacy"
)

// Gaussian adds N(0, σ²) noise with σ = Δ·sqrt(2·ln(1.25/δ))/ε.
type Gaussian struct {
	epsilon float64
	delta   float64
	sigma   float64
	rng     *lockedRand
}

// NewGaussian validates Δ, ε and δ and returns the mechanism. δ must be
// positive.
func NewGaussian(ctx context.Context, sensitivity, epsilon, delta float64, optFns ...Option) (*Gaussian, error) {
	o := applyOptions(optFns)
	if err := privacy.ValidateSensitivity(sensitivity); err != nil {
		return nil, err
	}
	if err := privacy.CheckEpsilon(ctx, o.logger, epsilon); err != nil {
		return nil, err
	}
	if err := privacy.ValidateDelta(delta); err != nil {
		return nil, err
	}
	if delta == 0 {
		return nil, &privacy.ErrInvalidParameter{Parameter: "delta", Value: delta, Reason: "the Gaussian mechanism needs a positive delta"}
	}
	rng, err := newLockedRand(o.seed)
	if err != nil {
		return nil, err
	}
	return &Gaussian{
		epsilon: epsilon,
		delta:   delta,
		sigma:   Sigma(sensitivity, epsilon, delta),
		rng:     rng,
	}, nil
}

// Sigma returns Δ·sqrt(2·ln(1.25/δ))/ε without validation.
func Sigma(sensitivity, epsilon, delta float64) float64 {
	return sensitivity * math.Sqrt(2*math.Log(1.25/delta)) / epsilon
}

// Epsilon returns the mechanism's ε.
func (g *Gaussian) Epsilon() float64 { return g.epsilon }

// Delta returns the mechanism's δ.
func (g *Gaussian) Delta() float64 { return g.delta }

// Sigma returns the noise standard deviation.
func (g *Gaussian) Sigma() float64 { return g.sigma }

// Variance returns σ².
func (g *Gaussian) Variance() float64 { return g.sigma * g.sigma }

// ConfidenceInterval95 returns 1.96σ.
func (g *Gaussian) ConfidenceInterval95() float64 { return 1.96 * g.sigma }

// Sample draws one noise value.
func (g *Gaussian) Sample() float64 {
	return g.sigma * sampleStandardNormal(g.rng)
}

// AddNoise returns value plus one noise sample.
func (g *Gaussian) AddNoise(value float64) float64 {
	return value + g.Sample()
}

// sampleStandardNormal uses the Box-Muller transform.
func sampleStandardNormal(rng *lockedRand) float64 {
	u1 := math.Max(rng.float64(), 1e-15)
	u2 := math.Max(rng.float64(), 1e-15)
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

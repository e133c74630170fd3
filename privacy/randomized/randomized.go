package randomized

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/privacy"
)

// Params are the randomized-response parameters.
type Params struct {
	Epsilon float64  `json:"epsilon"`
	Delta   *float64 `json:"delta,omitempty"`
}

// NewParams returns pure ε-DP parameters.
func NewParams(epsilon float64) (Params, error) {
	if err := privacy.ValidateEpsilon(epsilon); err != nil {
		return Params{}, err
	}
	return Params{Epsilon: epsilon}, nil
}

// NewApproximateParams returns (ε, δ)-DP parameters.
func NewApproximateParams(epsilon, delta float64) (Params, error) {
	if err := privacy.ValidateEpsilon(epsilon); err != nil {
		return Params{}, err
	}
	if err := privacy.ValidateDelta(delta); err != nil {
		return Params{}, err
	}
	if delta == 0 {
		return Params{}, &privacy.ErrInvalidParameter{Parameter: "delta", Value: delta, Reason: "approximate DP needs a positive delta"}
	}
	return Params{Epsilon: epsilon, Delta: &delta}, nil
}

// FlipProbability returns 1/(1+e^ε).
func (p Params) FlipProbability() float64 {
	return 1 / (1 + math.Exp(p.Epsilon))
}

// Retention returns the expected bit agreement of two noised copies of the
// same vector, (1-p)²+p².
func (p Params) Retention() float64 {
	f := p.FlipProbability()
	return (1-f)*(1-f) + f*f
}

// IsHighPrivacy reports whether ε ≤ 1.
func (p Params) IsHighPrivacy() bool { return p.Epsilon <= 1 }

// Describe summarises the privacy and utility trade-off.
func (p Params) Describe() string {
	return fmt.Sprintf("ε=%.2f: flip_prob=%.1f%%, similarity_retention=%.1f%%",
		p.Epsilon, p.FlipProbability()*100, p.Retention()*100)
}

// Presets.
var (
	HighPrivacy     = Params{Epsilon: 0.1}
	StrongPrivacy   = Params{Epsilon: 0.5}
	ModeratePrivacy = Params{Epsilon: 1.0}
	StandardPrivacy = Params{Epsilon: 2.0}
	LowPrivacy      = Params{Epsilon: 5.0}
)

// Preset resolves a preset name: high, strong, moderate, standard or low.
func Preset(name string) (Params, error) {
	switch name {
	case "high":
		return HighPrivacy, nil
	case "strong":
		return StrongPrivacy, nil
	case "moderate":
		return ModeratePrivacy, nil
	case "standard":
		return StandardPrivacy, nil
	case "low":
		return LowPrivacy, nil
	default:
		return Params{}, fmt.Errorf("randomized: unknown preset %q", name)
	}
}

// Vector is a noised hypervector with its provenance.
type Vector struct {
	Vector hypervector.Hypervector `json:"vector"`
	Params Params                  `json:"params"`
	Seed   *uint64                 `json:"seed,omitempty"`
}

type options struct {
	seed   *uint64
	logger *slog.Logger
}

// Option configures Apply.
type Option func(*options)

// WithSeed makes the noise reproducible.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.seed = &seed
	}
}

// WithLogger sets the logger used for parameter warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Apply flips every bit of v with the parameters' flip probability. Without
// WithSeed the generator is keyed from crypto/rand.
func Apply(ctx context.Context, v hypervector.Hypervector, params Params, optFns ...Option) (Vector, error) {
	var o options
	for _, fn := range optFns {
		fn(&o)
	}
	if v.IsZero() {
		return Vector{}, &hypervector.ErrInvalidDimension{Dimension: 0}
	}
	if err := privacy.CheckEpsilon(ctx, o.logger, params.Epsilon); err != nil {
		return Vector{}, err
	}

	rng, err := privacy.NewRand(o.seed)
	if err != nil {
		return Vector{}, err
	}

	data := flipBits(v.Bytes(), params.FlipProbability(), rng)
	noisy, err := hypervector.FromBytesWithDimension(data, v.Dimension())
	if err != nil {
		return Vector{}, err
	}
	return Vector{Vector: noisy, Params: params, Seed: o.seed}, nil
}

func flipBits(data []byte, p float64, rng *rand.Rand) []byte {
	for i := range data {
		for bit := 0; bit < 8; bit++ {
			if rng.Float64() < p {
				data[i] ^= 1 << bit
			}
		}
	}
	return data
}

// Epsilon returns the ε spent producing v.
func (v Vector) Epsilon() float64 { return v.Params.Epsilon }

// IsHighPrivacy reports whether ε ≤ 1.
func (v Vector) IsHighPrivacy() bool { return v.Params.IsHighPrivacy() }

// Similarity returns the raw normalized cosine similarity.
func (v Vector) Similarity(other Vector) (float64, error) {
	return hypervector.NormalizedCosineSimilarity(v.Vector, other.Vector)
}

// CorrectedSimilarity estimates the similarity of the underlying vectors,
// clamped to [0, 1].
func (v Vector) CorrectedSimilarity(other Vector) (float64, error) {
	raw, err := v.Similarity(other)
	if err != nil {
		return 0, err
	}
	return Correct(raw, v.Params, other.Params), nil
}

// Correct inverts the expected degradation of raw for two independently
// noised vectors.
func Correct(raw float64, a, b Params) float64 {
	combined := a.Retention() * b.Retention()
	baseline := 0.5 * (1 - combined)
	corrected := (raw - baseline) / combined
	return math.Min(math.Max(corrected, 0), 1)
}

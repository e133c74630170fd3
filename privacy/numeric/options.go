package numeric

import (
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/hupe1980/genohdc/privacy"
)

type options struct {
	seed   *uint64
	logger *slog.Logger
}

// Option configures a mechanism.
type Option func(*options)

// WithSeed makes the mechanism's noise reproducible. Without it the
// generator is keyed from crypto/rand.
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

func applyOptions(optFns []Option) options {
	var o options
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// lockedRand serialises access to a *rand.Rand.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedRand(seed *uint64) (*lockedRand, error) {
	rng, err := privacy.NewRand(seed)
	if err != nil {
		return nil, err
	}
	return &lockedRand{rng: rng}, nil
}

func (r *lockedRand) float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

package privacy

import (
	"context"
	"fmt"
	"log/slog"
	"math"
)

const (
	// MaxEpsilon is the largest ε accepted without a warning.
	MaxEpsilon = 10.0
	// MaxDelta is the largest δ accepted at all.
	MaxDelta = 0.01
	// MinEpsilon is the smallest usable ε; below it the noise is unbounded.
	MinEpsilon = 1e-10
	// MinSensitivity is the smallest usable sensitivity.
	MinSensitivity = 1e-15
)

// ValidateEpsilon checks ε is finite and at least MinEpsilon.
func ValidateEpsilon(epsilon float64) error {
	switch {
	case math.IsNaN(epsilon) || math.IsInf(epsilon, 0):
		return &ErrInvalidParameter{Parameter: "epsilon", Value: epsilon, Reason: "must be a finite number"}
	case epsilon <= 0:
		return &ErrInvalidParameter{Parameter: "epsilon", Value: epsilon, Reason: "must be positive"}
	case epsilon < MinEpsilon:
		return &ErrInvalidParameter{Parameter: "epsilon", Value: epsilon, Reason: fmt.Sprintf("below %g adds effectively infinite noise", MinEpsilon)}
	}
	return nil
}

// CheckEpsilon validates ε and logs a warning when it exceeds MaxEpsilon,
// where the guarantee becomes negligible. A nil logger skips the warning.
func CheckEpsilon(ctx context.Context, logger *slog.Logger, epsilon float64) error {
	if err := ValidateEpsilon(epsilon); err != nil {
		return err
	}
	if epsilon > MaxEpsilon && logger != nil {
		logger.WarnContext(ctx, "epsilon provides negligible privacy", "epsilon", epsilon, "max", MaxEpsilon)
	}
	return nil
}

// ValidateDelta checks δ is finite, in [0, 1) and at most MaxDelta.
func ValidateDelta(delta float64) error {
	switch {
	case math.IsNaN(delta) || math.IsInf(delta, 0):
		return &ErrInvalidParameter{Parameter: "delta", Value: delta, Reason: "must be a finite number"}
	case delta < 0:
		return &ErrInvalidParameter{Parameter: "delta", Value: delta, Reason: "must be non-negative"}
	case delta >= 1:
		return &ErrInvalidParameter{Parameter: "delta", Value: delta, Reason: "must be less than 1"}
	case delta > MaxDelta:
		return &ErrInvalidParameter{Parameter: "delta", Value: delta, Reason: fmt.Sprintf("above %g the guarantee is too weak", MaxDelta)}
	}
	return nil
}

// ValidateSensitivity checks Δ is finite and at least MinSensitivity.
func ValidateSensitivity(sensitivity float64) error {
	switch {
	case math.IsNaN(sensitivity) || math.IsInf(sensitivity, 0):
		return &ErrInvalidParameter{Parameter: "sensitivity", Value: sensitivity, Reason: "must be a finite number"}
	case sensitivity <= 0:
		return &ErrInvalidParameter{Parameter: "sensitivity", Value: sensitivity, Reason: "must be positive"}
	case sensitivity < MinSensitivity:
		return &ErrInvalidParameter{Parameter: "sensitivity", Value: sensitivity, Reason: "too small, likely a computation error"}
	}
	return nil
}

// ValidateParameters checks ε, δ and Δ together.
func ValidateParameters(epsilon, delta, sensitivity float64) error {
	if err := ValidateEpsilon(epsilon); err != nil {
		return err
	}
	if err := ValidateDelta(delta); err != nil {
		return err
	}
	return ValidateSensitivity(sensitivity)
}

// ValidateDeltaForDataset requires δ < 1/n for a dataset of n records.
func ValidateDeltaForDataset(delta float64, n int) error {
	if n <= 0 {
		return &ErrInvalidParameter{Parameter: "dataset_size", Value: float64(n), Reason: "must be positive"}
	}
	limit := 1 / float64(n)
	if delta >= limit {
		return &ErrInvalidParameter{Parameter: "delta", Value: delta, Reason: fmt.Sprintf("must be below 1/n = %g for %d records", limit, n)}
	}
	return nil
}

// ValidateMinimumContributors requires at least minimum contributors.
func ValidateMinimumContributors(count, minimum int) error {
	if count < minimum {
		return fmt.Errorf("%w: have %d, need %d", ErrInsufficientContributors, count, minimum)
	}
	return nil
}

// Level is a named privacy strength.
type Level int

const (
	LevelVeryHigh Level = iota
	LevelHigh
	LevelMedium
	LevelLow
)

func (l Level) String() string {
	switch l {
	case LevelVeryHigh:
		return "very_high"
	case LevelHigh:
		return "high"
	case LevelMedium:
		return "medium"
	case LevelLow:
		return "low"
	default:
		return fmt.Sprintf("Level(%d)", int(l))
	}
}

// ParseLevel resolves a level name.
func ParseLevel(s string) (Level, error) {
	for _, l := range []Level{LevelVeryHigh, LevelHigh, LevelMedium, LevelLow} {
		if l.String() == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("privacy: unknown level %q", s)
}

// Parameters is a recommended (ε, δ) pair.
type Parameters struct {
	Epsilon     float64 `json:"epsilon"`
	Delta       float64 `json:"delta"`
	Description string  `json:"description"`
}

// RecommendedParameters returns the (ε, δ) pair for a level.
func RecommendedParameters(level Level) Parameters {
	switch level {
	case LevelVeryHigh:
		return Parameters{Epsilon: 0.1, Delta: 1e-9, Description: "Very high privacy: suitable for sensitive medical data"}
	case LevelHigh:
		return Parameters{Epsilon: 0.5, Delta: 1e-7, Description: "High privacy: suitable for most health analytics"}
	case LevelMedium:
		return Parameters{Epsilon: 1.0, Delta: 1e-6, Description: "Medium privacy: balance of utility and privacy"}
	default:
		return Parameters{Epsilon: 3.0, Delta: 1e-5, Description: "Lower privacy: higher utility, less noise"}
	}
}

package privacy

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter reports a privacy parameter outside its valid range.
type ErrInvalidParameter struct {
	Parameter string
	Value     float64
	Reason    string
}

func (e *ErrInvalidParameter) Error() string {
	return fmt.Sprintf("invalid %s %g: %s", e.Parameter, e.Value, e.Reason)
}

// ErrBudgetExhausted reports a spend that would exceed the remaining budget.
type ErrBudgetExhausted struct {
	Requested float64
	Remaining float64
}

func (e *ErrBudgetExhausted) Error() string {
	return fmt.Sprintf("privacy budget exhausted: requested %.4f, only %.4f remaining", e.Requested, e.Remaining)
}

// ErrInsufficientContributors reports an aggregate over too few contributors.
var ErrInsufficientContributors = errors.New("insufficient contributors")

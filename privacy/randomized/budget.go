package randomized

import (
	"sync"

	"github.com/hupe1980/genohdc/privacy"
)

// PrivacyBudget tracks ε spent under basic composition. It is safe for
// concurrent use.
type PrivacyBudget struct {
	mu       sync.Mutex
	total    float64
	consumed float64
	queries  int
}

// NewPrivacyBudget creates a budget of total ε.
func NewPrivacyBudget(total float64) (*PrivacyBudget, error) {
	if err := privacy.ValidateEpsilon(total); err != nil {
		return nil, err
	}
	return &PrivacyBudget{total: total}, nil
}

// Total returns the budget's ε.
func (b *PrivacyBudget) Total() float64 { return b.total }

// CanQuery reports whether epsilon fits in what remains.
func (b *PrivacyBudget) CanQuery(epsilon float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consumed+epsilon <= b.total
}

// Consume spends epsilon. A spend that does not fit returns
// *privacy.ErrBudgetExhausted and leaves the budget untouched.
func (b *PrivacyBudget) Consume(epsilon float64) error {
	if err := privacy.ValidateEpsilon(epsilon); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.consumed+epsilon > b.total {
		return &privacy.ErrBudgetExhausted{Requested: epsilon, Remaining: b.total - b.consumed}
	}
	b.consumed += epsilon
	b.queries++
	return nil
}

// Remaining returns the unspent ε.
func (b *PrivacyBudget) Remaining() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total - b.consumed
}

// Utilization returns the spent fraction of the budget.
func (b *PrivacyBudget) Utilization() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.consumed / b.total
}

// QueryCount returns the number of successful spends.
func (b *PrivacyBudget) QueryCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queries
}

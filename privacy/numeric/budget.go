package numeric

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/hupe1980/genohdc/codec"
	"github.com/hupe1980/genohdc/privacy"
)

// ErrDuplicateSpend is returned by a Ledger when a spend sequence number was
// already recorded, typically by a concurrent writer.
var ErrDuplicateSpend = errors.New("spend already recorded")

// Composition selects how per-query ε values add up.
type Composition int

const (
	// Basic composition sums ε.
	Basic Composition = iota
	// Advanced composition bounds k queries by
	// sqrt(2k·ln(1/δ′))·ε + k·ε·(e^ε − 1), using the RMS of the spent ε.
	Advanced
)

func (c Composition) String() string {
	if c == Advanced {
		return "advanced"
	}
	return "basic"
}

// BudgetAccount tracks ε and δ spent by numeric releases. It is safe for
// concurrent use.
type BudgetAccount struct {
	mu sync.Mutex

	id           string
	totalEpsilon float64
	totalDelta   float64
	composition  Composition
	deltaPrime   float64

	consumedEpsilon float64
	consumedDelta   float64
	history         []float64
	sequence        uint64

	ledger Ledger
	now    func() time.Time
}

// AccountOption configures a BudgetAccount.
type AccountOption func(*BudgetAccount)

// WithAdvancedComposition tracks a δ budget and composes ε with the advanced
// theorem at slack deltaPrime.
func WithAdvancedComposition(totalDelta, deltaPrime float64) AccountOption {
	return func(b *BudgetAccount) {
		b.composition = Advanced
		b.totalDelta = totalDelta
		b.deltaPrime = deltaPrime
	}
}

// WithDeltaBudget tracks a δ budget under basic composition.
func WithDeltaBudget(totalDelta float64) AccountOption {
	return func(b *BudgetAccount) {
		b.totalDelta = totalDelta
	}
}

// WithLedger records every successful spend in l before it takes effect.
func WithLedger(l Ledger) AccountOption {
	return func(b *BudgetAccount) {
		b.ledger = l
	}
}

// WithAccountID names the account in ledger entries.
func WithAccountID(id string) AccountOption {
	return func(b *BudgetAccount) {
		b.id = id
	}
}

// NewBudgetAccount creates an account with a total ε budget.
func NewBudgetAccount(totalEpsilon float64, optFns ...AccountOption) (*BudgetAccount, error) {
	b := &BudgetAccount{totalEpsilon: totalEpsilon, id: "default", now: time.Now}
	for _, fn := range optFns {
		fn(b)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *BudgetAccount) validate() error {
	if err := privacy.ValidateEpsilon(b.totalEpsilon); err != nil {
		return err
	}
	if b.totalDelta < 0 || b.totalDelta >= 1 || math.IsNaN(b.totalDelta) {
		return &privacy.ErrInvalidParameter{Parameter: "total_delta", Value: b.totalDelta, Reason: "must be in [0, 1)"}
	}
	if b.composition == Advanced && (b.deltaPrime <= 0 || b.deltaPrime >= 1) {
		return &privacy.ErrInvalidParameter{Parameter: "delta_prime", Value: b.deltaPrime, Reason: "must be in (0, 1)"}
	}
	return nil
}

// ID returns the account name.
func (b *BudgetAccount) ID() string { return b.id }

// TotalEpsilon returns the ε budget.
func (b *BudgetAccount) TotalEpsilon() float64 { return b.totalEpsilon }

// TotalDelta returns the δ budget.
func (b *BudgetAccount) TotalDelta() float64 { return b.totalDelta }

// Composition returns the composition theorem in use.
func (b *BudgetAccount) Composition() Composition { return b.composition }

func (b *BudgetAccount) effective(history []float64, consumed float64) float64 {
	if b.composition == Basic {
		return consumed
	}
	if len(history) == 0 {
		return 0
	}
	k := float64(len(history))
	sumSq := 0.0
	for _, e := range history {
		sumSq += e * e
	}
	return AdvancedComposition(math.Sqrt(sumSq/k), len(history), b.deltaPrime)
}

// EffectiveEpsilon returns the composed ε spent so far.
func (b *BudgetAccount) EffectiveEpsilon() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.effective(b.history, b.consumedEpsilon)
}

// RemainingEpsilon returns the unspent composed ε, never negative.
func (b *BudgetAccount) RemainingEpsilon() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remainingEpsilon()
}

func (b *BudgetAccount) remainingEpsilon() float64 {
	return math.Max(b.totalEpsilon-b.effective(b.history, b.consumedEpsilon), 0)
}

// RemainingDelta returns the unspent δ, never negative.
func (b *BudgetAccount) RemainingDelta() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return math.Max(b.totalDelta-b.consumedDelta, 0)
}

// QueryCount returns the number of spends since creation or the last Reset.
func (b *BudgetAccount) QueryCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.history)
}

// History returns the ε of every spend in order.
func (b *BudgetAccount) History() []float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]float64, len(b.history))
	copy(out, b.history)
	return out
}

// HasBudget reports whether a spend of (epsilon, delta) would fit.
func (b *BudgetAccount) HasBudget(epsilon, delta float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fits(epsilon, delta) == nil
}

func (b *BudgetAccount) fits(epsilon, delta float64) error {
	if b.consumedDelta+delta > b.totalDelta {
		return &privacy.ErrBudgetExhausted{Requested: delta, Remaining: math.Max(b.totalDelta-b.consumedDelta, 0)}
	}
	history := append(b.history[:len(b.history):len(b.history)], epsilon)
	if b.effective(history, b.consumedEpsilon+epsilon) > b.totalEpsilon {
		return &privacy.ErrBudgetExhausted{Requested: epsilon, Remaining: b.remainingEpsilon()}
	}
	return nil
}

// Spend charges a pure ε release.
func (b *BudgetAccount) Spend(ctx context.Context, epsilon float64) error {
	return b.SpendWithDelta(ctx, epsilon, 0)
}

// SpendWithDelta charges an (ε, δ) release. A spend that does not fit
// returns *privacy.ErrBudgetExhausted; a ledger failure is returned as is.
// Either way the account is left unchanged.
func (b *BudgetAccount) SpendWithDelta(ctx context.Context, epsilon, delta float64) error {
	if err := privacy.ValidateEpsilon(epsilon); err != nil {
		return err
	}
	if delta < 0 || math.IsNaN(delta) {
		return &privacy.ErrInvalidParameter{Parameter: "delta", Value: delta, Reason: "must be non-negative"}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.fits(epsilon, delta); err != nil {
		return err
	}

	if b.ledger != nil {
		s := Spend{Account: b.id, Sequence: b.sequence + 1, Epsilon: epsilon, Delta: delta, Time: b.now().UTC()}
		if err := b.ledger.Record(ctx, s); err != nil {
			return fmt.Errorf("record spend %d: %w", s.Sequence, err)
		}
	}

	b.sequence++
	b.history = append(b.history, epsilon)
	b.consumedEpsilon += epsilon
	b.consumedDelta += delta
	return nil
}

// Restore applies a spend read back from a ledger without recording it
// again. Spends at or below the current sequence number are ignored.
func (b *BudgetAccount) Restore(s Spend) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if s.Sequence <= b.sequence {
		return nil
	}
	if err := b.fits(s.Epsilon, s.Delta); err != nil {
		return err
	}
	b.sequence = s.Sequence
	b.history = append(b.history, s.Epsilon)
	b.consumedEpsilon += s.Epsilon
	b.consumedDelta += s.Delta
	return nil
}

// Reset clears all spends. Ledger sequence numbers keep increasing.
func (b *BudgetAccount) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consumedEpsilon = 0
	b.consumedDelta = 0
	b.history = nil
}

type accountState struct {
	ID              string    `json:"id"`
	TotalEpsilon    float64   `json:"total_epsilon"`
	TotalDelta      float64   `json:"total_delta"`
	Composition     string    `json:"composition"`
	DeltaPrime      float64   `json:"delta_prime,omitempty"`
	ConsumedEpsilon float64   `json:"consumed_epsilon"`
	ConsumedDelta   float64   `json:"consumed_delta"`
	History         []float64 `json:"epsilon_history"`
	Sequence        uint64    `json:"sequence"`
}

// Save writes the account state with c (nil uses codec.Default).
func (b *BudgetAccount) Save(w io.Writer, c codec.Codec) error {
	b.mu.Lock()
	st := accountState{
		ID:              b.id,
		TotalEpsilon:    b.totalEpsilon,
		TotalDelta:      b.totalDelta,
		Composition:     b.composition.String(),
		DeltaPrime:      b.deltaPrime,
		ConsumedEpsilon: b.consumedEpsilon,
		ConsumedDelta:   b.consumedDelta,
		History:         append([]float64(nil), b.history...),
		Sequence:        b.sequence,
	}
	b.mu.Unlock()
	return codec.Encode(c, w, st)
}

// LoadBudgetAccount restores an account written by Save. Options such as
// WithLedger apply on top of the restored state.
func LoadBudgetAccount(r io.Reader, c codec.Codec, optFns ...AccountOption) (*BudgetAccount, error) {
	var st accountState
	if err := codec.Decode(c, r, &st); err != nil {
		return nil, fmt.Errorf("decode budget account: %w", err)
	}
	b := &BudgetAccount{
		id:              st.ID,
		totalEpsilon:    st.TotalEpsilon,
		totalDelta:      st.TotalDelta,
		deltaPrime:      st.DeltaPrime,
		consumedEpsilon: st.ConsumedEpsilon,
		consumedDelta:   st.ConsumedDelta,
		history:         st.History,
		sequence:        st.Sequence,
		now:             time.Now,
	}
	if st.Composition == Advanced.String() {
		b.composition = Advanced
	}
	for _, fn := range optFns {
		fn(b)
	}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// BasicComposition returns the sum of epsilons.
func BasicComposition(epsilons []float64) float64 {
	sum := 0.0
	for _, e := range epsilons {
		sum += e
	}
	return sum
}

// AdvancedComposition bounds k releases of ε each at slack deltaPrime.
func AdvancedComposition(epsilon float64, k int, deltaPrime float64) float64 {
	kf := float64(k)
	return math.Sqrt(2*kf*math.Log(1/deltaPrime))*epsilon + kf*epsilon*(math.Exp(epsilon)-1)
}

// CompositionComparison contrasts basic and advanced composition.
type CompositionComparison struct {
	QueryCount      int     `json:"query_count"`
	PerQueryEpsilon float64 `json:"per_query_epsilon"`
	BasicTotal      float64 `json:"basic_total"`
	AdvancedTotal   float64 `json:"advanced_total"`
	SavingsRatio    float64 `json:"savings_ratio"`
}

// CompareCompositions evaluates both theorems for k releases of ε.
func CompareCompositions(epsilon float64, k int, deltaPrime float64) CompositionComparison {
	basic := epsilon * float64(k)
	advanced := AdvancedComposition(epsilon, k, deltaPrime)
	return CompositionComparison{
		QueryCount:      k,
		PerQueryEpsilon: epsilon,
		BasicTotal:      basic,
		AdvancedTotal:   advanced,
		SavingsRatio:    basic / advanced,
	}
}

package numeric

import (
	"context"
	"sync"
	"time"
)

// Spend is one successful budget charge.
type Spend struct {
	Account  string    `json:"account"`
	Sequence uint64    `json:"sequence"`
	Epsilon  float64   `json:"epsilon"`
	Delta    float64   `json:"delta"`
	Time     time.Time `json:"time"`
}

// Ledger durably records spends. Record must fail if a spend with the same
// account and sequence already exists.
type Ledger interface {
	Record(ctx context.Context, s Spend) error
}

// MemoryLedger keeps spends in memory.
type MemoryLedger struct {
	mu     sync.Mutex
	spends []Spend
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Record implements Ledger.
func (l *MemoryLedger) Record(_ context.Context, s Spend) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.spends {
		if e.Account == s.Account && e.Sequence == s.Sequence {
			return ErrDuplicateSpend
		}
	}
	l.spends = append(l.spends, s)
	return nil
}

// Spends returns a copy of the recorded spends in order.
func (l *MemoryLedger) Spends() []Spend {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Spend, len(l.spends))
	copy(out, l.spends)
	return out
}

package numeric

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genohdc/codec"
	"github.com/hupe1980/genohdc/privacy"
)

func TestLaplace(t *testing.T) {
	ctx := context.Background()

	l, err := NewLaplace(ctx, 1, 0.1, WithSeed(7))
	require.NoError(t, err)
	assert.InDelta(t, 10, l.Scale(), 1e-12)
	assert.InDelta(t, 200, l.Variance(), 1e-10)
	assert.InDelta(t, 10*math.Log(20), l.ConfidenceInterval95(), 1e-9)
	assert.False(t, math.IsInf(l.AddNoise(100), 0))

	_, err = NewLaplace(ctx, 0, 1)
	var pe *privacy.ErrInvalidParameter
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "sensitivity", pe.Parameter)

	_, err = NewLaplace(ctx, 1, -1)
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "epsilon", pe.Parameter)
}

func TestLaplaceDistribution(t *testing.T) {
	l, err := NewLaplace(context.Background(), 2, 1, WithSeed(1))
	require.NoError(t, err)

	const n = 20000
	samples := make([]float64, n)
	sum := 0.0
	for i := range samples {
		samples[i] = l.Sample()
		require.False(t, math.IsInf(samples[i], 0) || math.IsNaN(samples[i]))
		sum += samples[i]
	}
	mean := sum / n
	variance := 0.0
	for _, s := range samples {
		variance += (s - mean) * (s - mean)
	}
	variance /= n - 1

	assert.Less(t, math.Abs(mean), 4*l.StdDev()/math.Sqrt(n))
	assert.InEpsilon(t, l.Variance(), variance, 0.2)
}

func TestLaplaceSeeded(t *testing.T) {
	a, err := NewLaplace(context.Background(), 1, 1, WithSeed(3))
	require.NoError(t, err)
	b, err := NewLaplace(context.Background(), 1, 1, WithSeed(3))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Sample(), b.Sample())
	}
}

func TestGaussian(t *testing.T) {
	ctx := context.Background()

	g, err := NewGaussian(ctx, 1, 0.1, 1e-6, WithSeed(9))
	require.NoError(t, err)
	assert.Greater(t, g.Sigma(), 50.0)
	assert.Less(t, g.Sigma(), 60.0)
	assert.InDelta(t, g.Sigma()*g.Sigma(), g.Variance(), 1e-9)
	assert.InDelta(t, 1.96*g.Sigma(), g.ConfidenceInterval95(), 1e-9)
	assert.False(t, math.IsNaN(g.AddNoise(100)))

	_, err = NewGaussian(ctx, 1, 1, 0)
	assert.Error(t, err)
	_, err = NewGaussian(ctx, 1, 1, 0.5)
	assert.Error(t, err)
}

func TestStandardNormal(t *testing.T) {
	g, err := NewGaussian(context.Background(), 1, 1, 1e-6, WithSeed(11))
	require.NoError(t, err)

	const n = 20000
	sum, sumSq := 0.0, 0.0
	for i := 0; i < n; i++ {
		z := sampleStandardNormal(g.rng)
		sum += z
		sumSq += z * z
	}
	mean := sum / n
	variance := sumSq/n - mean*mean

	assert.Less(t, math.Abs(mean), 4/math.Sqrt(n))
	assert.InDelta(t, 1, variance, 0.1)
}

func TestBudgetAccount(t *testing.T) {
	ctx := context.Background()
	b, err := NewBudgetAccount(1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, b.RemainingEpsilon())

	require.NoError(t, b.Spend(ctx, 0.1))
	assert.Equal(t, 1, b.QueryCount())
	assert.InDelta(t, 0.9, b.RemainingEpsilon(), 1e-10)

	require.NoError(t, b.Spend(ctx, 0.2))
	assert.InDelta(t, 0.7, b.RemainingEpsilon(), 1e-10)
	assert.Equal(t, []float64{0.1, 0.2}, b.History())
}

func TestBudgetAccountExhaustion(t *testing.T) {
	ctx := context.Background()
	b, err := NewBudgetAccount(0.5)
	require.NoError(t, err)

	require.NoError(t, b.Spend(ctx, 0.3))
	require.NoError(t, b.Spend(ctx, 0.15))

	err = b.Spend(ctx, 0.1)
	var be *privacy.ErrBudgetExhausted
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 0.1, be.Requested)
	assert.Equal(t, 2, b.QueryCount())
	assert.InDelta(t, 0.05, b.RemainingEpsilon(), 1e-10)
}

func TestBudgetAccountMonotonic(t *testing.T) {
	ctx := context.Background()
	b, err := NewBudgetAccount(10)
	require.NoError(t, err)

	prev := b.RemainingEpsilon()
	for i := 0; i < 150; i++ {
		if b.Spend(ctx, 0.1) == nil {
			cur := b.RemainingEpsilon()
			assert.LessOrEqual(t, cur, prev)
			prev = cur
		}
		assert.GreaterOrEqual(t, b.RemainingEpsilon(), 0.0)
	}
}

func TestBudgetAccountDelta(t *testing.T) {
	ctx := context.Background()
	b, err := NewBudgetAccount(5, WithDeltaBudget(1e-5))
	require.NoError(t, err)

	require.NoError(t, b.SpendWithDelta(ctx, 0.5, 6e-6))
	err = b.SpendWithDelta(ctx, 0.5, 6e-6)
	var be *privacy.ErrBudgetExhausted
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 6e-6, be.Requested)
	assert.InDelta(t, 4e-6, b.RemainingDelta(), 1e-15)

	assert.Error(t, b.SpendWithDelta(ctx, 0.5, -1))
}

func TestAdvancedComposition(t *testing.T) {
	ctx := context.Background()
	b, err := NewBudgetAccount(5, WithAdvancedComposition(1e-5, 1e-6))
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		require.NoError(t, b.Spend(ctx, 0.1))
	}
	assert.Greater(t, b.RemainingEpsilon(), 0.0)
	assert.True(t, b.HasBudget(0.1, 0))
	assert.Less(t, b.EffectiveEpsilon(), 5.0)
	assert.Equal(t, Advanced, b.Composition())

	_, err = NewBudgetAccount(5, WithAdvancedComposition(1e-5, 0))
	assert.Error(t, err)
}

func TestCompareCompositions(t *testing.T) {
	c := CompareCompositions(0.1, 100, 1e-6)
	assert.Equal(t, 100, c.QueryCount)
	assert.Equal(t, 0.1, c.PerQueryEpsilon)
	assert.InDelta(t, 10, c.BasicTotal, 1e-10)
	assert.Less(t, c.AdvancedTotal, 8.0)
	assert.Greater(t, c.SavingsRatio, 1.3)

	assert.InDelta(t, 0.6, BasicComposition([]float64{0.1, 0.2, 0.3}), 1e-10)
}

func TestBudgetAccountReset(t *testing.T) {
	ctx := context.Background()
	b, err := NewBudgetAccount(1)
	require.NoError(t, err)
	require.NoError(t, b.Spend(ctx, 0.5))
	require.NoError(t, b.Spend(ctx, 0.3))

	b.Reset()
	assert.Equal(t, 1.0, b.RemainingEpsilon())
	assert.Equal(t, 0, b.QueryCount())
}

func TestBudgetAccountPersistence(t *testing.T) {
	ctx := context.Background()
	for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			b, err := NewBudgetAccount(5, WithAdvancedComposition(1e-5, 1e-6), WithAccountID("cohort-a"))
			require.NoError(t, err)
			require.NoError(t, b.Spend(ctx, 0.5))
			require.NoError(t, b.Spend(ctx, 0.3))

			var buf bytes.Buffer
			require.NoError(t, b.Save(&buf, c))

			restored, err := LoadBudgetAccount(&buf, c)
			require.NoError(t, err)
			assert.Equal(t, "cohort-a", restored.ID())
			assert.Equal(t, b.TotalEpsilon(), restored.TotalEpsilon())
			assert.Equal(t, b.QueryCount(), restored.QueryCount())
			assert.Equal(t, Advanced, restored.Composition())
			assert.InDelta(t, b.RemainingEpsilon(), restored.RemainingEpsilon(), 1e-10)
		})
	}

	_, err := LoadBudgetAccount(bytes.NewBufferString("{"), nil)
	assert.Error(t, err)
}

func TestBudgetAccountLedger(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	b, err := NewBudgetAccount(1, WithLedger(ledger), WithAccountID("acct"))
	require.NoError(t, err)

	require.NoError(t, b.Spend(ctx, 0.25))
	require.NoError(t, b.SpendWithDelta(ctx, 0.25, 0))
	require.Error(t, b.Spend(ctx, 0.75))

	spends := ledger.Spends()
	require.Len(t, spends, 2)
	assert.Equal(t, "acct", spends[0].Account)
	assert.Equal(t, uint64(1), spends[0].Sequence)
	assert.Equal(t, uint64(2), spends[1].Sequence)

	b.Reset()
	require.NoError(t, b.Spend(ctx, 0.1))
	assert.Equal(t, uint64(3), ledger.Spends()[2].Sequence)
}

type failingLedger struct{}

func (failingLedger) Record(context.Context, Spend) error { return errors.New("unavailable") }

func TestBudgetAccountLedgerFailure(t *testing.T) {
	b, err := NewBudgetAccount(1, WithLedger(failingLedger{}))
	require.NoError(t, err)

	assert.Error(t, b.Spend(context.Background(), 0.1))
	assert.Equal(t, 0, b.QueryCount())
	assert.Equal(t, 1.0, b.RemainingEpsilon())
}

func TestMemoryLedgerDuplicate(t *testing.T) {
	l := NewMemoryLedger()
	require.NoError(t, l.Record(context.Background(), Spend{Account: "a", Sequence: 1}))
	assert.ErrorIs(t, l.Record(context.Background(), Spend{Account: "a", Sequence: 1}), ErrDuplicateSpend)
	assert.NoError(t, l.Record(context.Background(), Spend{Account: "b", Sequence: 1}))
}

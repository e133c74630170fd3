package randomized

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/privacy"
)

var testVector = hypervector.Random(hypervector.SeedFromString("test"), "item")

func TestFlipProbability(t *testing.T) {
	high, err := NewParams(0.1)
	require.NoError(t, err)
	low, err := NewParams(10)
	require.NoError(t, err)

	assert.Greater(t, high.FlipProbability(), 0.4)
	assert.Less(t, low.FlipProbability(), 0.001)
	assert.Greater(t, high.FlipProbability(), low.FlipProbability())
	assert.Less(t, HighPrivacy.Retention(), LowPrivacy.Retention())
}

func TestParamsValidation(t *testing.T) {
	_, err := NewParams(0)
	var pe *privacy.ErrInvalidParameter
	assert.ErrorAs(t, err, &pe)

	p, err := NewApproximateParams(1, 1e-6)
	require.NoError(t, err)
	require.NotNil(t, p.Delta)
	assert.Equal(t, 1e-6, *p.Delta)

	_, err = NewApproximateParams(1, 0)
	assert.Error(t, err)
	_, err = NewApproximateParams(1, 0.5)
	assert.Error(t, err)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "ε=1.00: flip_prob=26.9%, similarity_retention=60.7%", ModeratePrivacy.Describe())
	assert.True(t, ModeratePrivacy.IsHighPrivacy())
	assert.False(t, StandardPrivacy.IsHighPrivacy())
}

func TestPreset(t *testing.T) {
	p, err := Preset("strong")
	require.NoError(t, err)
	assert.Equal(t, 0.5, p.Epsilon)
	_, err = Preset("paranoid")
	assert.Error(t, err)
}

func TestApplyPreservesDimension(t *testing.T) {
	dp, err := Apply(context.Background(), testVector, ModeratePrivacy, WithSeed(42))
	require.NoError(t, err)
	assert.Equal(t, testVector.Dimension(), dp.Vector.Dimension())
	assert.Equal(t, testVector.Len(), dp.Vector.Len())
	require.NotNil(t, dp.Seed)
	assert.Equal(t, uint64(42), *dp.Seed)
	assert.Equal(t, 1.0, dp.Epsilon())
}

func TestApplyDeterministicWithSeed(t *testing.T) {
	a, err := Apply(context.Background(), testVector, ModeratePrivacy, WithSeed(42))
	require.NoError(t, err)
	b, err := Apply(context.Background(), testVector, ModeratePrivacy, WithSeed(42))
	require.NoError(t, err)
	assert.True(t, a.Vector.Equal(b.Vector))

	c, err := Apply(context.Background(), testVector, ModeratePrivacy, WithSeed(43))
	require.NoError(t, err)
	assert.False(t, a.Vector.Equal(c.Vector))
}

func TestApplyAddsNoise(t *testing.T) {
	dp, err := Apply(context.Background(), testVector, HighPrivacy, WithSeed(42))
	require.NoError(t, err)

	s, err := hypervector.NormalizedCosineSimilarity(testVector, dp.Vector)
	require.NoError(t, err)
	assert.Less(t, s, 0.7)
	assert.Greater(t, s, 0.3)
}

func TestApplySecureRandom(t *testing.T) {
	dp, err := Apply(context.Background(), testVector, LowPrivacy)
	require.NoError(t, err)
	assert.Nil(t, dp.Seed)

	s, err := hypervector.HammingSimilarity(testVector, dp.Vector)
	require.NoError(t, err)
	assert.Greater(t, s, 0.97)
}

func TestApplyRejectsInvalidEpsilon(t *testing.T) {
	_, err := Apply(context.Background(), testVector, Params{Epsilon: -1})
	var pe *privacy.ErrInvalidParameter
	assert.ErrorAs(t, err, &pe)
}

func TestApplyRejectsEmptyVector(t *testing.T) {
	params, err := NewParams(1)
	require.NoError(t, err)
	_, err = Apply(context.Background(), hypervector.Hypervector{}, params)
	var de *hypervector.ErrInvalidDimension
	assert.ErrorAs(t, err, &de)
}

func TestCorrectedSimilarity(t *testing.T) {
	a, err := Apply(context.Background(), testVector, StandardPrivacy, WithSeed(1))
	require.NoError(t, err)
	b, err := Apply(context.Background(), testVector, StandardPrivacy, WithSeed(2))
	require.NoError(t, err)

	raw, err := a.Similarity(b)
	require.NoError(t, err)
	corrected, err := a.CorrectedSimilarity(b)
	require.NoError(t, err)

	assert.Greater(t, corrected, raw)
	assert.Greater(t, corrected, 0.9)
}

func TestCorrectClamps(t *testing.T) {
	assert.Equal(t, 0.0, Correct(0, ModeratePrivacy, ModeratePrivacy))
	assert.Equal(t, 1.0, Correct(1, ModeratePrivacy, ModeratePrivacy))
	assert.InDelta(t, 0.5, Correct(0.5, ModeratePrivacy, ModeratePrivacy), 1e-12)
}

func TestPrivacyBudget(t *testing.T) {
	b, err := NewPrivacyBudget(5)
	require.NoError(t, err)

	assert.True(t, b.CanQuery(1))
	require.NoError(t, b.Consume(1))
	assert.Equal(t, 4.0, b.Remaining())

	require.NoError(t, b.Consume(2))
	require.NoError(t, b.Consume(1.5))
	assert.False(t, b.CanQuery(1))

	err = b.Consume(1)
	var be *privacy.ErrBudgetExhausted
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 1.0, be.Requested)
	assert.InDelta(t, 0.5, be.Remaining, 1e-12)

	// Rejection leaves state untouched.
	assert.InDelta(t, 0.5, b.Remaining(), 1e-12)
	assert.Equal(t, 3, b.QueryCount())
	assert.InDelta(t, 0.9, b.Utilization(), 1e-12)

	assert.Error(t, b.Consume(-1))
	_, err = NewPrivacyBudget(0)
	assert.Error(t, err)
}

func TestPrivacyBudgetConcurrent(t *testing.T) {
	b, err := NewPrivacyBudget(10)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Consume(0.125)
		}()
	}
	wg.Wait()

	assert.Equal(t, 80, b.QueryCount())
	assert.InDelta(t, 0, b.Remaining(), 1e-12)
}

package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genohdc/hypervector"
)

func TestFromSimilarity(t *testing.T) {
	tests := []struct {
		s    float64
		want Level
	}{
		{0.90, VeryHigh},
		{0.85, VeryHigh},
		{0.75, High},
		{0.70, High},
		{0.60, Moderate},
		{0.53, Low},
		{0.52, Low},
		{0.50, VeryLow},
		{0.0, VeryLow},
	}
	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, FromSimilarity(tt.s))
		})
	}
}

func TestCustomThresholds(t *testing.T) {
	th := Thresholds{VeryHigh: 0.95, High: 0.9, Moderate: 0.8, Low: 0.6}
	assert.Equal(t, Moderate, th.Level(0.85))
	assert.Equal(t, VeryLow, th.Level(0.55))
}

func TestCalculate(t *testing.T) {
	r := Calculate(0.75)
	assert.Equal(t, High, r.Level)
	assert.Greater(t, r.ZScore, 40.0)
	assert.Equal(t, 4096, r.BitsAboveRandom)
	assert.Less(t, r.PValue, 0.001)
	assert.True(t, r.IsClinicalGrade())
	assert.True(t, r.IsSignificant(0.05))
}

func TestCalculateRandomBaseline(t *testing.T) {
	r := Calculate(0.5)
	assert.Equal(t, VeryLow, r.Level)
	assert.InDelta(t, 0, r.ZScore, 1e-12)
	assert.Equal(t, 0, r.BitsAboveRandom)
	assert.InDelta(t, 0.5, r.PValue, 1e-6)
	assert.False(t, r.IsSignificant(0.05))
	assert.False(t, r.IsClinicalGrade())
}

func TestCalculateWithDimension(t *testing.T) {
	r := CalculateWithDimension(0.6, 100)
	// sqrt(0.25/100) = 0.05
	assert.InDelta(t, 2.0, r.ZScore, 1e-9)
	assert.Equal(t, 10, r.BitsAboveRandom)
	assert.InDelta(t, 0.02275, r.PValue, 1e-4)
}

func TestNormalCDFComplement(t *testing.T) {
	assert.Equal(t, 0.0, normalCDFComplement(8.5))
	assert.Equal(t, 1.0, normalCDFComplement(-8.5))
	assert.InDelta(t, 0.15866, normalCDFComplement(1), 1e-4)
	assert.InDelta(t, 0.84134, normalCDFComplement(-1), 1e-4)
}

func TestCompare(t *testing.T) {
	seed := hypervector.SeedFromString("test")
	hv := hypervector.Random(seed, "item")

	r, err := Compare(hv, hv)
	require.NoError(t, err)
	assert.Equal(t, VeryHigh, r.Level)
	assert.InDelta(t, 1.0, r.Similarity, 1e-3)

	small, err := hypervector.New(64)
	require.NoError(t, err)
	_, err = Compare(hv, small)
	var dm *hypervector.ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)
}

func TestLevelText(t *testing.T) {
	for _, l := range []Level{VeryLow, Low, Moderate, High, VeryHigh} {
		b, err := l.MarshalText()
		require.NoError(t, err)
		var got Level
		require.NoError(t, got.UnmarshalText(b))
		assert.Equal(t, l, got)
	}
	var l Level
	assert.Error(t, l.UnmarshalText([]byte("certain")))

	assert.Equal(t, "High confidence - likely match", High.Description())
	assert.Equal(t, 0.35, VeryLow.Probability())
}

func TestBatchStats(t *testing.T) {
	st := NewBatchStats([]float64{0.50, 0.55, 0.60, 0.70, 0.80, 0.90})
	assert.Greater(t, st.Mean, 0.65)
	assert.Less(t, st.Mean, 0.70)
	assert.Equal(t, 0.50, st.Min)
	assert.Equal(t, 0.90, st.Max)
	assert.Equal(t, 3, st.HighConfidenceCount)
	assert.Equal(t, 3, st.ClinicalGradeCount)

	top := st.TopMatches(2)
	require.Len(t, top, 2)
	assert.Equal(t, 0.90, top[0].Similarity)
	assert.Equal(t, 0.80, top[1].Similarity)
	assert.Len(t, st.TopMatches(10), 6)

	empty := NewBatchStats(nil)
	assert.Zero(t, empty.Mean)
	assert.Empty(t, empty.TopMatches(3))
}

func TestBatchStatsStdDev(t *testing.T) {
	st := NewBatchStats([]float64{0.4, 0.6})
	assert.InDelta(t, 0.5, st.Mean, 1e-12)
	assert.InDelta(t, 0.1, st.StdDev, 1e-12)
}

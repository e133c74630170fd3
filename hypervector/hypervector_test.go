package hypervector

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genohdc/internal/simd"
)

var testSeed = SeedFromString("genohdc-test")

func TestRandom(t *testing.T) {
	t.Run("Deterministic", func(t *testing.T) {
		a := Random(testSeed, "ACGTAC")
		b := Random(testSeed, "ACGTAC")
		assert.True(t, a.Equal(b))
		assert.Equal(t, Dimension, a.Dimension())
		assert.Equal(t, Bytes, a.Len())
	})

	t.Run("FirstBlockIsSeedIdCounter", func(t *testing.T) {
		v := Random(testSeed, "x")
		h := sha256.New()
		h.Write(testSeed[:])
		h.Write([]byte("x"))
		var ctr [8]byte
		binary.LittleEndian.PutUint64(ctr[:], 0)
		h.Write(ctr[:])
		assert.Equal(t, h.Sum(nil), v.Bytes()[:32])
	})

	t.Run("DifferentIDs", func(t *testing.T) {
		a := Random(testSeed, "A")
		b := Random(testSeed, "B")
		assert.False(t, a.Equal(b))
	})

	t.Run("DifferentSeeds", func(t *testing.T) {
		a := Random(SeedFromString("one"), "A")
		b := Random(SeedFromString("two"), "A")
		assert.False(t, a.Equal(b))
	})

	t.Run("NonCanonicalDimension", func(t *testing.T) {
		v, err := RandomWithDimension(testSeed, "A", 1000)
		require.NoError(t, err)
		assert.Equal(t, 125, v.Len())

		_, err = RandomWithDimension(testSeed, "A", 1001)
		var de *ErrInvalidDimension
		assert.ErrorAs(t, err, &de)
	})
}

func TestFromBytes(t *testing.T) {
	_, err := FromBytes(make([]byte, 100))
	var le *ErrInvalidLength
	require.ErrorAs(t, err, &le)
	assert.Equal(t, Bytes, le.Expected)
	assert.Equal(t, 100, le.Actual)

	src := make([]byte, Bytes)
	v, err := FromBytes(src)
	require.NoError(t, err)
	src[0] = 0xFF
	assert.False(t, v.Bit(0), "FromBytes must copy its input")
}

func TestHexRoundTrip(t *testing.T) {
	v := Random(testSeed, "hex")
	parsed, err := ParseHex(v.Hex())
	require.NoError(t, err)
	assert.True(t, v.Equal(parsed))

	data, err := json.Marshal(struct {
		V Hypervector `json:"v"`
	}{V: v})
	require.NoError(t, err)
	var out struct {
		V Hypervector `json:"v"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, v.Equal(out.V))

	_, err = ParseHex("zz")
	assert.Error(t, err)
}

func TestBind(t *testing.T) {
	a := Random(testSeed, "a")
	b := Random(testSeed, "b")

	ab, err := Bind(a, b)
	require.NoError(t, err)
	back, err := Bind(ab, b)
	require.NoError(t, err)
	assert.True(t, back.Equal(a), "bind must be self-inverse")

	ba, err := Bind(b, a)
	require.NoError(t, err)
	assert.True(t, ab.Equal(ba))

	small, err := New(64)
	require.NoError(t, err)
	_, err = Bind(a, small)
	var dm *ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)
}

func TestBundle(t *testing.T) {
	t.Run("Majority", func(t *testing.T) {
		mk := func(b byte) Hypervector {
			v, err := FromBytesWithDimension([]byte{b}, 8)
			require.NoError(t, err)
			return v
		}
		out, err := Bundle([]Hypervector{mk(0b0000_0111), mk(0b0000_0011), mk(0b0000_0001)})
		require.NoError(t, err)
		assert.Equal(t, []byte{0b0000_0011}, out.Bytes())
	})

	t.Run("TieIsZero", func(t *testing.T) {
		a, _ := FromBytesWithDimension([]byte{0xFF}, 8)
		b, _ := FromBytesWithDimension([]byte{0x00}, 8)
		out, err := Bundle([]Hypervector{a, b})
		require.NoError(t, err)
		assert.Equal(t, []byte{0x00}, out.Bytes())
	})

	t.Run("Empty", func(t *testing.T) {
		out, err := Bundle(nil)
		require.NoError(t, err)
		assert.Equal(t, Dimension, out.Dimension())
		assert.Equal(t, 0, out.Popcount())
	})

	t.Run("Single", func(t *testing.T) {
		a := Random(testSeed, "single")
		out, err := Bundle([]Hypervector{a})
		require.NoError(t, err)
		assert.True(t, out.Equal(a))
	})

	t.Run("SimilarToMembers", func(t *testing.T) {
		a := Random(testSeed, "m1")
		b := Random(testSeed, "m2")
		c := Random(testSeed, "m3")
		out, err := Bundle([]Hypervector{a, b, c})
		require.NoError(t, err)
		s, err := HammingSimilarity(out, a)
		require.NoError(t, err)
		assert.Greater(t, s, 0.7)
	})

	t.Run("Mismatch", func(t *testing.T) {
		small, _ := New(64)
		_, err := Bundle([]Hypervector{Random(testSeed, "a"), small})
		var dm *ErrDimensionMismatch
		assert.ErrorAs(t, err, &dm)
	})
}

func TestWeightedBundle(t *testing.T) {
	a, _ := FromBytesWithDimension([]byte{0xF0}, 8)
	b, _ := FromBytesWithDimension([]byte{0x0F}, 8)

	out, err := WeightedBundle([]Weighted{{a, 3}, {b, 1}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xF0}, out.Bytes())

	out, err = WeightedBundle([]Weighted{{a, 1}, {b, 1}})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00}, out.Bytes(), "equal weights tie to zero")

	_, err = WeightedBundle([]Weighted{{a, -1}})
	var we *ErrInvalidWeight
	assert.ErrorAs(t, err, &we)
}

func TestPermute(t *testing.T) {
	v := Random(testSeed, "perm")

	assert.True(t, Permute(v, 0).Equal(v))
	assert.True(t, Permute(v, Dimension).Equal(v))
	assert.True(t, Permute(Permute(v, 5), -5).Equal(v))
	assert.True(t, Permute(Permute(v, 100), 200).Equal(Permute(v, 300)))
	assert.False(t, Permute(v, 1).Equal(v))

	one, _ := FromBytesWithDimension([]byte{0x01, 0x00}, 16)
	assert.True(t, Permute(one, 3).Bit(3))
	assert.True(t, Permute(one, -1).Bit(15))
}

func TestSimilarity(t *testing.T) {
	a := Random(testSeed, "a")
	b := Random(testSeed, "b")

	t.Run("Self", func(t *testing.T) {
		for name, fn := range metricFuncs() {
			s, err := fn(a, a)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, s, 1e-12, name)
		}
	})

	t.Run("RandomBaseline", func(t *testing.T) {
		s, err := HammingSimilarity(a, b)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s, 0.4)
		assert.LessOrEqual(t, s, 0.6)

		c, err := CosineSimilarity(a, b)
		require.NoError(t, err)
		assert.InDelta(t, 0, c, 0.2)

		n, err := NormalizedCosineSimilarity(a, b)
		require.NoError(t, err)
		assert.InDelta(t, s, n, 1e-12)
	})

	t.Run("JaccardZero", func(t *testing.T) {
		z := Zero()
		s, err := JaccardSimilarity(z, z)
		require.NoError(t, err)
		assert.Equal(t, 1.0, s)
	})

	t.Run("Mismatch", func(t *testing.T) {
		small, _ := New(64)
		for name, fn := range metricFuncs() {
			_, err := fn(a, small)
			var dm *ErrDimensionMismatch
			assert.ErrorAs(t, err, &dm, name)
		}
	})

	t.Run("ZeroDimension", func(t *testing.T) {
		var empty Hypervector
		for name, fn := range metricFuncs() {
			s, err := fn(empty, empty)
			var de *ErrInvalidDimension
			require.ErrorAs(t, err, &de, name)
			assert.Equal(t, 0, de.Dimension, name)
			assert.Zero(t, s, name)
		}
		_, err := HammingDistance(empty, empty)
		assert.Error(t, err)
	})
}

func metricFuncs() map[string]func(a, b Hypervector) (float64, error) {
	return map[string]func(a, b Hypervector) (float64, error){
		"hamming":           HammingSimilarity,
		"cosine":            CosineSimilarity,
		"normalized_cosine": NormalizedCosineSimilarity,
		"jaccard":           JaccardSimilarity,
	}
}

func TestKernelSetsAgree(t *testing.T) {
	type result struct {
		bound, bundled, permuted Hypervector
		ham                      float64
	}
	run := func() result {
		var vs []Hypervector
		for i := 0; i < 5; i++ {
			vs = append(vs, Random(testSeed, fmt.Sprintf("v%d", i)))
		}
		bound, err := Bind(vs[0], vs[1])
		require.NoError(t, err)
		bundled, err := Bundle(vs)
		require.NoError(t, err)
		ham, err := HammingSimilarity(vs[2], vs[3])
		require.NoError(t, err)
		return result{bound, bundled, Permute(vs[4], 4097), ham}
	}

	accelerated := run()
	restore, ok := simd.ForceISA(simd.Generic)
	require.True(t, ok)
	defer restore()
	generic := run()

	assert.True(t, accelerated.bound.Equal(generic.bound))
	assert.True(t, accelerated.bundled.Equal(generic.bundled))
	assert.True(t, accelerated.permuted.Equal(generic.permuted))
	assert.Equal(t, accelerated.ham, generic.ham)
}

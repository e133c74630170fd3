package index

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/genohdc/codec"
	"github.com/hupe1980/genohdc/distance"
	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/resource"
	"github.com/hupe1980/genohdc/testutil"
)

var testSeed = hypervector.SeedFromString("index-test")

func vec(id string) hypervector.Hypervector {
	return hypervector.Random(testSeed, id)
}

func buildIndex(t *testing.T, n int, optFns ...Option) *Index {
	t.Helper()
	x, err := New(optFns...)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("v%03d", i)
		tags := []string{fmt.Sprintf("mod%d", i%3)}
		if i%2 == 0 {
			tags = append(tags, "even")
		}
		require.NoError(t, x.AddEntry(Entry{
			ID:       id,
			Vector:   vec(id),
			Metadata: map[string]any{"n": float64(i)},
			Tags:     tags,
		}))
	}
	return x
}

func TestAddAndGet(t *testing.T) {
	x := buildIndex(t, 5)
	assert.Equal(t, 5, x.Len())
	assert.Equal(t, []string{"v000", "v001", "v002", "v003", "v004"}, x.IDs())

	e, ok := x.Get("v002")
	require.True(t, ok)
	assert.True(t, e.Vector.Equal(vec("v002")))
	assert.Equal(t, float64(2), e.Metadata["n"])

	_, ok = x.Get("nope")
	assert.False(t, ok)

	at, err := x.At(4)
	require.NoError(t, err)
	assert.Equal(t, "v004", at.ID)

	_, err = x.At(5)
	var oob *ErrOutOfBounds
	require.ErrorAs(t, err, &oob)
	assert.Equal(t, 5, oob.Len)
	_, err = x.At(-1)
	assert.ErrorAs(t, err, &oob)
}

func TestAddValidation(t *testing.T) {
	x, err := New()
	require.NoError(t, err)

	assert.ErrorIs(t, x.Add("", vec("a")), ErrEmptyID)

	small, err := hypervector.RandomWithDimension(testSeed, "s", 64)
	require.NoError(t, err)
	var dm *hypervector.ErrDimensionMismatch
	assert.ErrorAs(t, x.Add("s", small), &dm)

	_, err = New(WithDimension(7))
	assert.Error(t, err)
}

func TestAddStoresCopy(t *testing.T) {
	x, err := New()
	require.NoError(t, err)
	meta := map[string]any{"k": "v"}
	require.NoError(t, x.AddEntry(Entry{ID: "a", Vector: vec("a"), Metadata: meta}))
	meta["k"] = "changed"

	e, _ := x.Get("a")
	assert.Equal(t, "v", e.Metadata["k"])
}

func TestDuplicateKeepsRank(t *testing.T) {
	x, err := New()
	require.NoError(t, err)
	q := vec("q")
	require.NoError(t, x.Add("a", q))
	require.NoError(t, x.Add("b", q))
	require.NoError(t, x.Add("c", vec("c")))

	// Overwrite "a" with the same vector; it must stay ahead of "b".
	require.NoError(t, x.Add("a", q))
	assert.Equal(t, 3, x.Len())

	res, err := x.Search(context.Background(), q, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "a", res[0].ID)
	assert.Equal(t, "b", res[1].ID)

	// Overwrite "a" with something else; "b" now wins.
	require.NoError(t, x.Add("a", vec("other")))
	res, err = x.Search(context.Background(), q, 1)
	require.NoError(t, err)
	assert.Equal(t, "b", res[0].ID)
	assert.Equal(t, []string{"a", "b", "c"}, x.IDs())
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	x := buildIndex(t, 50)

	res, err := x.Search(ctx, vec("v017"), 5)
	require.NoError(t, err)
	require.Len(t, res, 5)
	assert.Equal(t, "v017", res[0].ID)
	assert.InDelta(t, 1.0, res[0].Similarity, 1e-12)
	assert.Equal(t, float64(17), res[0].Metadata["n"])
	for i := 1; i < len(res); i++ {
		assert.GreaterOrEqual(t, res[i-1].Similarity, res[i].Similarity)
	}

	res, err = x.Search(ctx, vec("v017"), 500)
	require.NoError(t, err)
	assert.Len(t, res, 50)

	res, err = x.Search(ctx, vec("v017"), 0)
	require.NoError(t, err)
	assert.Empty(t, res)

	small, err := hypervector.RandomWithDimension(testSeed, "s", 64)
	require.NoError(t, err)
	_, err = x.Search(ctx, small, 1)
	var dm *hypervector.ErrDimensionMismatch
	assert.ErrorAs(t, err, &dm)
}

func TestSearchThreshold(t *testing.T) {
	x := buildIndex(t, 20)
	res, err := x.SearchThreshold(context.Background(), vec("v003"), 10, 0.9)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "v003", res[0].ID)

	res, err = x.SearchThreshold(context.Background(), vec("v003"), 10, 0)
	require.NoError(t, err)
	assert.Len(t, res, 10)
}

func TestSearchMetrics(t *testing.T) {
	for _, m := range []distance.Metric{distance.MetricCosine, distance.MetricHamming, distance.MetricJaccard} {
		t.Run(m.String(), func(t *testing.T) {
			x := buildIndex(t, 10, WithMetric(m))
			res, err := x.Search(context.Background(), vec("v004"), 1)
			require.NoError(t, err)
			assert.Equal(t, "v004", res[0].ID)
			assert.InDelta(t, 1.0, res[0].Similarity, 1e-12)
		})
	}
}

func TestSearchTags(t *testing.T) {
	ctx := context.Background()
	x := buildIndex(t, 30)
	q := vec("v004")

	res, err := x.Search(ctx, q, 30, WithAllTags("even"))
	require.NoError(t, err)
	assert.Len(t, res, 15)

	res, err = x.Search(ctx, q, 30, WithAllTags("even", "mod0"))
	require.NoError(t, err)
	assert.Len(t, res, 5)
	for _, r := range res {
		n := int(r.Metadata["n"].(float64))
		assert.Zero(t, n%6)
	}

	res, err = x.Search(ctx, q, 30, WithAnyTag("mod1", "mod2"))
	require.NoError(t, err)
	assert.Len(t, res, 20)

	res, err = x.Search(ctx, q, 30, WithAllTags("missing"))
	require.NoError(t, err)
	assert.Empty(t, res)

	assert.Equal(t, []string{"even", "mod0", "mod1", "mod2"}, x.Tags())
}

func TestParallelMatchesLinear(t *testing.T) {
	ctx := context.Background()
	linear := buildIndex(t, 300)
	parallel := buildIndex(t, 300, WithParallelism(4), WithShardSize(16))

	// Duplicate vectors force ties that must break by insertion order.
	for _, x := range []*Index{linear, parallel} {
		require.NoError(t, x.Add("dup-a", vec("v100")))
		require.NoError(t, x.Add("dup-b", vec("v100")))
	}

	for _, q := range []string{"v000", "v100", "v299", "unrelated"} {
		for _, k := range []int{1, 3, 10, 302} {
			t.Run(fmt.Sprintf("%s/k=%d", q, k), func(t *testing.T) {
				want, err := linear.Search(ctx, vec(q), k)
				require.NoError(t, err)
				got, err := parallel.Search(ctx, vec(q), k)
				require.NoError(t, err)
				assert.Equal(t, want, got)
			})
		}
	}

	res, err := parallel.Search(ctx, vec("v100"), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"v100", "dup-a", "dup-b"}, []string{res[0].ID, res[1].ID, res[2].ID})
}

func TestSearchCanceled(t *testing.T) {
	x := buildIndex(t, 10, WithParallelism(2), WithShardSize(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := x.Search(ctx, vec("v001"), 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemove(t *testing.T) {
	x := buildIndex(t, 10)
	assert.True(t, x.Remove("v003"))
	assert.False(t, x.Remove("v003"))
	assert.Equal(t, 9, x.Len())

	_, ok := x.Get("v003")
	assert.False(t, ok)

	at, err := x.At(3)
	require.NoError(t, err)
	assert.Equal(t, "v004", at.ID)

	res, err := x.Search(context.Background(), vec("v003"), 10)
	require.NoError(t, err)
	for _, r := range res {
		assert.NotEqual(t, "v003", r.ID)
	}
}

func TestRemoveCompacts(t *testing.T) {
	x := buildIndex(t, 200)
	for i := 0; i < 150; i++ {
		require.True(t, x.Remove(fmt.Sprintf("v%03d", i)))
	}
	assert.Equal(t, 50, x.Len())
	assert.Equal(t, "v150", x.IDs()[0])

	res, err := x.Search(context.Background(), vec("v160"), 1, WithAllTags("even"))
	require.NoError(t, err)
	assert.Equal(t, "v160", res[0].ID)

	require.NoError(t, x.Add("new", vec("new")))
	assert.Equal(t, "new", x.IDs()[50])
}

func TestMemoryLimit(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 2 * hypervector.Bytes})
	x, err := New(WithResourceController(rc))
	require.NoError(t, err)

	require.NoError(t, x.Add("a", vec("a")))
	require.NoError(t, x.Add("b", vec("b")))
	assert.ErrorIs(t, x.Add("c", vec("c")), ErrMemoryLimit)

	// Overwriting needs no new memory.
	require.NoError(t, x.Add("a", vec("a2")))

	x.Remove("b")
	require.NoError(t, x.Add("c", vec("c")))

	x.Clear()
	assert.Zero(t, rc.MemoryUsage())
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()
	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(c.String(), func(t *testing.T) {
			x := buildIndex(t, 40, WithMetric(distance.MetricHamming))
			x.Remove("v010")

			var buf bytes.Buffer
			require.NoError(t, x.Save(ctx, &buf, WithCompression(c)))

			loaded, err := Load(ctx, &buf)
			require.NoError(t, err)
			assert.Equal(t, distance.MetricHamming, loaded.Metric())
			assert.Equal(t, x.IDs(), loaded.IDs())
			assert.Equal(t, x.Tags(), loaded.Tags())

			e, ok := loaded.Get("v020")
			require.True(t, ok)
			assert.True(t, e.Vector.Equal(vec("v020")))
			assert.Equal(t, float64(20), e.Metadata["n"])

			want, err := x.Search(ctx, vec("v005"), 5)
			require.NoError(t, err)
			got, err := loaded.Search(ctx, vec("v005"), 5)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestSnapshotCorrupt(t *testing.T) {
	ctx := context.Background()
	x := buildIndex(t, 5)
	var buf bytes.Buffer
	require.NoError(t, x.Save(ctx, &buf))
	data := buf.Bytes()

	flipped := bytes.Clone(data)
	flipped[headerSize+3] ^= 0xff
	_, err := Load(ctx, bytes.NewReader(flipped))
	assert.ErrorIs(t, err, ErrCorrupt)

	badMagic := bytes.Clone(data)
	badMagic[0] = 'X'
	_, err = Load(ctx, bytes.NewReader(badMagic))
	assert.ErrorIs(t, err, ErrCorrupt)

	_, err = Load(ctx, bytes.NewReader(data[:len(data)-10]))
	assert.Error(t, err)
}

func TestSnapshotRateLimited(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 30})
	x := buildIndex(t, 5, WithResourceController(rc))

	var buf bytes.Buffer
	require.NoError(t, x.Save(ctx, &buf))
	loaded, err := Load(ctx, &buf, WithResourceController(rc))
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.Len())
}

func TestDatabase(t *testing.T) {
	for _, c := range []codec.Codec{codec.JSON{}, codec.GoJSON{}} {
		t.Run(c.Name(), func(t *testing.T) {
			x := buildIndex(t, 4)
			var buf bytes.Buffer
			require.NoError(t, x.Export(&buf, c))
			assert.Contains(t, buf.String(), `"id":"v000"`)
			assert.Contains(t, buf.String(), vec("v000").Hex())

			y, err := New()
			require.NoError(t, err)
			n, err := y.Import(&buf, c)
			require.NoError(t, err)
			assert.Equal(t, 4, n)
			assert.Equal(t, x.IDs(), y.IDs())
			assert.Equal(t, x.Tags(), y.Tags())
		})
	}
}

func TestReadDatabaseErrors(t *testing.T) {
	_, err := ReadDatabase(bytes.NewBufferString(`[{"id":"a","vector":"zz"}]`), nil)
	assert.Error(t, err)

	_, err = ReadDatabase(bytes.NewBufferString(`[{"id":"","vector":"00"}]`), nil)
	assert.ErrorIs(t, err, ErrEmptyID)

	_, err = ReadDatabase(bytes.NewBufferString(`{`), nil)
	assert.Error(t, err)
}

func TestFromEntries(t *testing.T) {
	entries := []Entry{{ID: "a", Vector: vec("a")}, {ID: "b", Vector: vec("b")}}
	x, err := FromEntries(entries, WithParallelism(2))
	require.NoError(t, err)
	assert.Equal(t, 2, x.Len())

	_, err = FromEntries([]Entry{{ID: "", Vector: vec("a")}})
	assert.ErrorIs(t, err, ErrEmptyID)
}

func TestTopK(t *testing.T) {
	h := newTopK(3)
	for i, s := range []float64{0.5, 0.9, 0.1, 0.9, 0.7, 0.2} {
		h.push(candidate{pos: uint32(i), score: s})
	}
	got := h.sorted()
	require.Len(t, got, 3)
	assert.Equal(t, candidate{pos: 1, score: 0.9}, got[0])
	assert.Equal(t, candidate{pos: 3, score: 0.9}, got[1])
	assert.Equal(t, candidate{pos: 4, score: 0.7}, got[2])
}

func TestSearchMatchesExact(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(2026)
	corpus, centroids := rng.ClusteredVectors(200, 2048, 8, 0.1)

	for _, m := range []distance.Metric{distance.MetricCosine, distance.MetricHamming, distance.MetricJaccard} {
		t.Run(m.String(), func(t *testing.T) {
			x, err := New(WithDimension(2048), WithMetric(m), WithParallelism(3), WithShardSize(32))
			require.NoError(t, err)
			for i, v := range corpus {
				require.NoError(t, x.Add(fmt.Sprintf("c%03d", i), v))
			}

			for _, q := range centroids {
				want, err := testutil.ExactTopK(q, corpus, 10, m)
				require.NoError(t, err)

				got, err := x.Search(ctx, q, 10)
				require.NoError(t, err)
				require.Len(t, got, len(want))

				approx := make([]testutil.SearchResult, len(got))
				for i, r := range got {
					var pos int
					_, err := fmt.Sscanf(r.ID, "c%03d", &pos)
					require.NoError(t, err)
					approx[i] = testutil.SearchResult{Index: pos, Similarity: r.Similarity}
				}
				assert.Equal(t, want, approx)
				assert.Equal(t, 1.0, testutil.ComputeRecall(want, approx))
			}
		})
	}
}

package index

import (
	"context"
	"maps"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/genohdc/hypervector"
)

// Result is one search hit.
type Result struct {
	ID         string         `json:"id"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type searchOptions struct {
	threshold    float64
	hasThreshold bool
	allTags      []string
	anyTags      []string
}

// SearchOption configures one query.
type SearchOption func(*searchOptions)

// WithThreshold drops results with similarity below t.
func WithThreshold(t float64) SearchOption {
	return func(o *searchOptions) {
		o.threshold = t
		o.hasThreshold = true
	}
}

// WithAllTags restricts the query to entries carrying every tag.
func WithAllTags(tags ...string) SearchOption {
	return func(o *searchOptions) {
		o.allTags = append(o.allTags, tags...)
	}
}

// WithAnyTag restricts the query to entries carrying at least one tag.
func WithAnyTag(tags ...string) SearchOption {
	return func(o *searchOptions) {
		o.anyTags = append(o.anyTags, tags...)
	}
}

// candidate is a scored slot. Ordering is by similarity, then slot.
type candidate struct {
	pos   uint32
	score float64
}

// better reports whether a ranks before b.
func better(a, b candidate) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	return a.pos < b.pos
}

// topK keeps the k best candidates in a heap whose root is the worst.
type topK struct {
	k     int
	items []candidate
}

func newTopK(k int) *topK {
	return &topK{k: k, items: make([]candidate, 0, k)}
}

func (h *topK) push(c candidate) {
	if len(h.items) < h.k {
		h.items = append(h.items, c)
		h.up(len(h.items) - 1)
		return
	}
	if better(c, h.items[0]) {
		h.items[0] = c
		h.down(0)
	}
}

func (h *topK) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !better(h.items[parent], h.items[i]) {
			return
		}
		h.items[parent], h.items[i] = h.items[i], h.items[parent]
		i = parent
	}
}

func (h *topK) down(i int) {
	n := len(h.items)
	for {
		worst := i
		l, r := 2*i+1, 2*i+2
		if l < n && better(h.items[worst], h.items[l]) {
			worst = l
		}
		if r < n && better(h.items[worst], h.items[r]) {
			worst = r
		}
		if worst == i {
			return
		}
		h.items[i], h.items[worst] = h.items[worst], h.items[i]
		i = worst
	}
}

func (h *topK) sorted() []candidate {
	out := slices.Clone(h.items)
	slices.SortFunc(out, func(a, b candidate) int {
		if better(a, b) {
			return -1
		}
		if better(b, a) {
			return 1
		}
		return 0
	})
	return out
}

// Search returns the k entries most similar to query.
func (x *Index) Search(ctx context.Context, query hypervector.Hypervector, k int, optFns ...SearchOption) ([]Result, error) {
	var o searchOptions
	for _, fn := range optFns {
		fn(&o)
	}
	if query.Dimension() != x.opts.dim {
		return nil, &hypervector.ErrDimensionMismatch{Expected: x.opts.dim, Actual: query.Dimension()}
	}
	if k <= 0 {
		return []Result{}, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	cands := x.candidates(o).ToArray()

	var (
		best []candidate
		err  error
	)
	shards := x.shardCount(len(cands))
	if shards <= 1 {
		best, err = x.scan(ctx, query, cands, k, o)
	} else {
		best, err = x.scanParallel(ctx, query, cands, k, o, shards)
	}
	if err != nil {
		return nil, err
	}

	out := make([]Result, len(best))
	for i, c := range best {
		e := x.slots[c.pos].entry
		out[i] = Result{ID: e.ID, Similarity: c.score, Metadata: maps.Clone(e.Metadata)}
	}
	return out, nil
}

// SearchThreshold returns up to k entries with similarity at least
// threshold.
func (x *Index) SearchThreshold(ctx context.Context, query hypervector.Hypervector, k int, threshold float64, optFns ...SearchOption) ([]Result, error) {
	return x.Search(ctx, query, k, append(optFns, WithThreshold(threshold))...)
}

func (x *Index) candidates(o searchOptions) *roaring.Bitmap {
	bm := x.live.Clone()
	for _, t := range o.allTags {
		tb, ok := x.tags[t]
		if !ok {
			return roaring.New()
		}
		bm.And(tb)
	}
	if len(o.anyTags) > 0 {
		union := roaring.New()
		for _, t := range o.anyTags {
			if tb, ok := x.tags[t]; ok {
				union.Or(tb)
			}
		}
		bm.And(union)
	}
	return bm
}

func (x *Index) shardCount(n int) int {
	p := x.opts.parallelism
	if p <= 1 {
		return 1
	}
	return max(1, min(p, n/x.opts.shardSize))
}

func (x *Index) scan(ctx context.Context, query hypervector.Hypervector, cands []uint32, k int, o searchOptions) ([]candidate, error) {
	h := newTopK(min(k, len(cands)))
	for i, pos := range cands {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		s, err := x.sim(query, x.slots[pos].entry.Vector)
		if err != nil {
			return nil, err
		}
		if o.hasThreshold && s < o.threshold {
			continue
		}
		h.push(candidate{pos: pos, score: s})
	}
	return h.sorted(), nil
}

func (x *Index) scanParallel(ctx context.Context, query hypervector.Hypervector, cands []uint32, k int, o searchOptions, shards int) ([]candidate, error) {
	parts := make([][]candidate, shards)
	size := (len(cands) + shards - 1) / shards

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < shards; i++ {
		lo := i * size
		hi := min(lo+size, len(cands))
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			if err := x.opts.rc.AcquireWorker(gctx); err != nil {
				return err
			}
			defer x.opts.rc.ReleaseWorker()

			best, err := x.scan(gctx, query, cands[lo:hi], k, o)
			if err != nil {
				return err
			}
			parts[i] = best
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	h := newTopK(k)
	for _, part := range parts {
		for _, c := range part {
			h.push(c)
		}
	}
	return h.sorted(), nil
}

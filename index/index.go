package index

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/genohdc/distance"
	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/resource"
)

// Entry is one stored vector.
type Entry struct {
	ID       string
	Vector   hypervector.Hypervector
	Metadata map[string]any
	Tags     []string
}

func (e Entry) clone() Entry {
	return Entry{
		ID:       e.ID,
		Vector:   e.Vector.Clone(),
		Metadata: maps.Clone(e.Metadata),
		Tags:     slices.Clone(e.Tags),
	}
}

type options struct {
	dim         int
	metric      distance.Metric
	parallelism int
	shardSize   int
	rc          *resource.Controller
	logger      *slog.Logger
}

// Option configures an Index.
type Option func(*options)

// WithDimension sets the vector dimension. The default is
// hypervector.Dimension.
func WithDimension(dim int) Option {
	return func(o *options) {
		o.dim = dim
	}
}

// WithMetric sets the similarity metric. The default is normalized cosine.
func WithMetric(m distance.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

// WithParallelism scans with up to n goroutines. n <= 1 keeps the linear
// scan.
func WithParallelism(n int) Option {
	return func(o *options) {
		o.parallelism = n
	}
}

// WithShardSize sets the minimum number of candidates per parallel shard.
func WithShardSize(n int) Option {
	return func(o *options) {
		o.shardSize = n
	}
}

// WithResourceController accounts stored vectors against rc's memory limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

type slot struct {
	entry Entry
	live  bool
}

// Index is an in-memory vector store. It is safe for concurrent use;
// searches share a read lock and writes are serialized.
type Index struct {
	mu sync.RWMutex

	opts options
	sim  distance.Func

	slots []slot
	ids   map[string]uint32
	live  *roaring.Bitmap
	tags  map[string]*roaring.Bitmap
}

// New creates an empty index.
func New(optFns ...Option) (*Index, error) {
	o := options{
		dim:       hypervector.Dimension,
		metric:    distance.MetricCosine,
		shardSize: 1024,
	}
	for _, fn := range optFns {
		fn(&o)
	}
	if _, err := hypervector.New(o.dim); err != nil {
		return nil, err
	}
	if o.shardSize <= 0 {
		o.shardSize = 1
	}
	if o.logger == nil {
		o.logger = slog.New(slog.DiscardHandler)
	}
	return &Index{
		opts: o,
		sim:  distance.Provider(o.metric),
		ids:  make(map[string]uint32),
		live: roaring.New(),
		tags: make(map[string]*roaring.Bitmap),
	}, nil
}

// Dimension returns the vector dimension.
func (x *Index) Dimension() int { return x.opts.dim }

// Metric returns the similarity metric.
func (x *Index) Metric() distance.Metric { return x.opts.metric }

// Len returns the number of stored entries.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return int(x.live.GetCardinality())
}

// Add stores v under id, replacing any previous vector for id.
func (x *Index) Add(id string, v hypervector.Hypervector) error {
	return x.AddEntry(Entry{ID: id, Vector: v})
}

// AddEntry stores a copy of e. A replaced entry keeps its position in the
// insertion order.
func (x *Index) AddEntry(e Entry) error {
	if e.ID == "" {
		return ErrEmptyID
	}
	if e.Vector.Dimension() != x.opts.dim {
		return &hypervector.ErrDimensionMismatch{Expected: x.opts.dim, Actual: e.Vector.Dimension()}
	}
	e = e.clone()

	x.mu.Lock()
	defer x.mu.Unlock()

	if pos, ok := x.ids[e.ID]; ok {
		x.untag(pos)
		x.slots[pos].entry = e
		x.tag(pos)
		return nil
	}

	if !x.opts.rc.TryAcquireMemory(int64(e.Vector.Len())) {
		return ErrMemoryLimit
	}
	pos := uint32(len(x.slots))
	x.slots = append(x.slots, slot{entry: e, live: true})
	x.ids[e.ID] = pos
	x.live.Add(pos)
	x.tag(pos)
	return nil
}

func (x *Index) tag(pos uint32) {
	for _, t := range x.slots[pos].entry.Tags {
		bm, ok := x.tags[t]
		if !ok {
			bm = roaring.New()
			x.tags[t] = bm
		}
		bm.Add(pos)
	}
}

func (x *Index) untag(pos uint32) {
	for _, t := range x.slots[pos].entry.Tags {
		if bm, ok := x.tags[t]; ok {
			bm.Remove(pos)
			if bm.IsEmpty() {
				delete(x.tags, t)
			}
		}
	}
}

// Remove deletes id and reports whether it was present.
func (x *Index) Remove(id string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()

	pos, ok := x.ids[id]
	if !ok {
		return false
	}
	x.untag(pos)
	x.opts.rc.ReleaseMemory(int64(x.slots[pos].entry.Vector.Len()))
	x.slots[pos] = slot{}
	x.live.Remove(pos)
	delete(x.ids, id)

	// Reclaim tombstones once they dominate.
	if len(x.slots) > 64 && int(x.live.GetCardinality()) < len(x.slots)/2 {
		x.compact()
	}
	return true
}

func (x *Index) compact() {
	slots := make([]slot, 0, x.live.GetCardinality())
	x.live.Clear()
	clear(x.tags)
	for _, s := range x.slots {
		if !s.live {
			continue
		}
		pos := uint32(len(slots))
		slots = append(slots, s)
		x.ids[s.entry.ID] = pos
		x.live.Add(pos)
	}
	x.slots = slots
	for pos := range x.slots {
		x.tag(uint32(pos))
	}
	x.opts.logger.Debug("index compacted", "entries", len(x.slots))
}

// Get returns a copy of the entry stored under id.
func (x *Index) Get(id string) (Entry, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	pos, ok := x.ids[id]
	if !ok {
		return Entry{}, false
	}
	return x.slots[pos].entry.clone(), true
}

// At returns a copy of the i-th entry in insertion order.
func (x *Index) At(i int) (Entry, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	n := int(x.live.GetCardinality())
	if i < 0 || i >= n {
		return Entry{}, &ErrOutOfBounds{Index: i, Len: n}
	}
	pos, err := x.live.Select(uint32(i))
	if err != nil {
		return Entry{}, &ErrOutOfBounds{Index: i, Len: n}
	}
	return x.slots[pos].entry.clone(), nil
}

// IDs returns the stored identifiers in insertion order.
func (x *Index) IDs() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]string, 0, x.live.GetCardinality())
	it := x.live.Iterator()
	for it.HasNext() {
		out = append(out, x.slots[it.Next()].entry.ID)
	}
	return out
}

// Entries returns copies of all entries in insertion order.
func (x *Index) Entries() []Entry {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.entries()
}

func (x *Index) entries() []Entry {
	out := make([]Entry, 0, x.live.GetCardinality())
	it := x.live.Iterator()
	for it.HasNext() {
		out = append(out, x.slots[it.Next()].entry.clone())
	}
	return out
}

// Tags returns every tag in use, sorted.
func (x *Index) Tags() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return slices.Sorted(maps.Keys(x.tags))
}

// Clear removes all entries.
func (x *Index) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	for _, s := range x.slots {
		if s.live {
			x.opts.rc.ReleaseMemory(int64(s.entry.Vector.Len()))
		}
	}
	x.slots = nil
	clear(x.ids)
	x.live.Clear()
	clear(x.tags)
}

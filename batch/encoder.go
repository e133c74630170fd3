package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/genohdc/codebook"
	"github.com/hupe1980/genohdc/encoder"
	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/resource"
)

// Config controls batch encoding.
type Config struct {
	K           int  `yaml:"k" json:"k" validate:"gte=1,lte=32"`
	Parallel    bool `yaml:"parallel" json:"parallel"`
	ChunkSize   int  `yaml:"chunk_size" json:"chunk_size" validate:"gte=1"`
	SkipInvalid bool `yaml:"skip_invalid" json:"skip_invalid"`
}

// DefaultConfig returns k=6, parallel, chunks of 100, failing on invalid
// input.
func DefaultConfig() Config {
	return Config{K: 6, Parallel: true, ChunkSize: 100}
}

// Failure records one item that could not be encoded.
type Failure struct {
	Index int
	Err   error
}

// Stats describes one batch run.
type Stats struct {
	Duration     time.Duration
	Chunks       int
	AvgPerItem   time.Duration
	WorkersLimit int
}

// Result holds the encoded items in input order. Indices[i] is the input
// position of Items[i].
type Result struct {
	JobID   string
	Items   []encoder.EncodedSequence
	Indices []int
	Failed  []Failure
	Stats   Stats
}

// SuccessCount returns the number of encoded items.
func (r *Result) SuccessCount() int { return len(r.Items) }

// TotalCount returns the number of input items.
func (r *Result) TotalCount() int { return len(r.Items) + len(r.Failed) }

// SuccessRate returns the encoded fraction, 0 for an empty batch.
func (r *Result) SuccessRate() float64 {
	if r.TotalCount() == 0 {
		return 0
	}
	return float64(len(r.Items)) / float64(r.TotalCount())
}

// FailedIndices returns the input positions that failed.
func (r *Result) FailedIndices() []int {
	out := make([]int, len(r.Failed))
	for i, f := range r.Failed {
		out[i] = f.Index
	}
	return out
}

// Vectors returns the encoded vectors.
func (r *Result) Vectors() []hypervector.Hypervector {
	out := make([]hypervector.Hypervector, len(r.Items))
	for i, it := range r.Items {
		out[i] = it.Vector
	}
	return out
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithResourceController bounds concurrent chunks by rc's worker count.
func WithResourceController(rc *resource.Controller) Option {
	return func(e *Encoder) {
		e.rc = rc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Encoder) {
		e.logger = l
	}
}

// WithDNAOptions passes options to the underlying DNA encoder.
func WithDNAOptions(opts ...encoder.DNAOption) Option {
	return func(e *Encoder) {
		e.dnaOpts = append(e.dnaOpts, opts...)
	}
}

// Encoder encodes batches of DNA sequences.
type Encoder struct {
	cfg     Config
	dna     *encoder.DNAEncoder
	dnaOpts []encoder.DNAOption
	rc      *resource.Controller
	logger  *slog.Logger
}

// NewEncoder creates a batch encoder over cb.
func NewEncoder(cb codebook.Codebook, cfg Config, optFns ...Option) (*Encoder, error) {
	if cfg.ChunkSize <= 0 {
		return nil, &encoder.ErrInvalidConfig{Parameter: "chunk_size", Value: "0", Reason: "must be positive"}
	}
	e := &Encoder{cfg: cfg}
	for _, fn := range optFns {
		fn(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	dna, err := encoder.NewDNAEncoder(cb, cfg.K, e.dnaOpts...)
	if err != nil {
		return nil, err
	}
	e.dna = dna
	return e, nil
}

// Config returns the encoder configuration.
func (e *Encoder) Config() Config { return e.cfg }

// Codebook returns the codebook the encoder reads from.
func (e *Encoder) Codebook() codebook.Codebook { return e.dna.Codebook() }

// EncodeSequences encodes every sequence. Items that fail are reported in
// Result.Failed; unless SkipInvalid is set the result is then accompanied by
// *ErrPartialFailure. Context cancellation aborts the batch.
func (e *Encoder) EncodeSequences(ctx context.Context, seqs []string) (*Result, error) {
	start := time.Now()

	encoded := make([]encoder.EncodedSequence, len(seqs))
	errs := make([]error, len(seqs))

	chunks := (len(seqs) + e.cfg.ChunkSize - 1) / e.cfg.ChunkSize
	runChunk := func(c int) error {
		lo := c * e.cfg.ChunkSize
		hi := min(lo+e.cfg.ChunkSize, len(seqs))
		for i := lo; i < hi; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			encoded[i], errs[i] = e.dna.Encode(seqs[i])
		}
		return nil
	}

	workers := 1
	if e.cfg.Parallel {
		workers = e.rc.Workers()
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for c := 0; c < chunks; c++ {
			g.Go(func() error {
				if err := e.rc.AcquireWorker(gctx); err != nil {
					return err
				}
				defer e.rc.ReleaseWorker()
				return runChunk(c)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for c := 0; c < chunks; c++ {
			if err := runChunk(c); err != nil {
				return nil, err
			}
		}
	}

	res := &Result{
		JobID:   uuid.NewString(),
		Items:   make([]encoder.EncodedSequence, 0, len(seqs)),
		Indices: make([]int, 0, len(seqs)),
	}
	for i := range seqs {
		if errs[i] != nil {
			res.Failed = append(res.Failed, Failure{Index: i, Err: errs[i]})
			continue
		}
		res.Items = append(res.Items, encoded[i])
		res.Indices = append(res.Indices, i)
	}

	elapsed := time.Since(start)
	res.Stats = Stats{Duration: elapsed, Chunks: chunks, WorkersLimit: workers}
	if len(res.Items) > 0 {
		res.Stats.AvgPerItem = elapsed / time.Duration(len(res.Items))
	}

	e.logger.DebugContext(ctx, "batch encoded",
		"job_id", res.JobID,
		"items", len(seqs),
		"failed", len(res.Failed),
		"chunks", chunks,
		"duration", elapsed,
	)

	if len(res.Failed) > 0 && !e.cfg.SkipInvalid {
		return res, &ErrPartialFailure{Succeeded: len(res.Items), Failed: len(res.Failed), First: res.Failed[0].Err}
	}
	return res, nil
}

// EncodeToVectors encodes seqs and returns only the vectors.
func (e *Encoder) EncodeToVectors(ctx context.Context, seqs []string) ([]hypervector.Hypervector, error) {
	res, err := e.EncodeSequences(ctx, seqs)
	if err != nil {
		return nil, err
	}
	return res.Vectors(), nil
}

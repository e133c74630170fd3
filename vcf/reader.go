package vcf

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strconv"
	"strings"
)

const maxLineSize = 64 << 20

type options struct {
	lenient bool
	sample  string
	region  *Region
	logger  *slog.Logger
}

// Option configures a Reader.
type Option func(*options)

// WithLenient skips malformed data lines instead of failing.
func WithLenient() Option {
	return func(o *options) {
		o.lenient = true
	}
}

// WithSample selects the sample column by header name. The default is the
// first sample.
func WithSample(name string) Option {
	return func(o *options) {
		o.sample = name
	}
}

// WithRegion drops variants outside r.
func WithRegion(r Region) Option {
	return func(o *options) {
		o.region = &r
	}
}

// WithLogger sets the logger used for skipped lines.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Stats counts what a Reader has seen so far.
type Stats struct {
	DataLines int `json:"data_lines"`
	Variants  int `json:"variants"`
	Skipped   int `json:"skipped"`  // malformed lines dropped in lenient mode
	Filtered  int `json:"filtered"` // lines outside the region
}

// Reader streams variants from VCF text. It is not safe for concurrent use.
type Reader struct {
	sc   *bufio.Scanner
	opts options
	line int

	meta      []string
	samples   []string
	sampleIdx int

	pending    string
	hasPending bool

	stats Stats
}

// NewReader reads the header from r and returns a Reader positioned at the
// first data line.
func NewReader(r io.Reader, optFns ...Option) (*Reader, error) {
	var o options
	for _, fn := range optFns {
		fn(&o)
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	vr := &Reader{sc: sc, opts: o}
	if err := vr.readHeader(); err != nil {
		return nil, err
	}
	return vr, nil
}

func (r *Reader) readHeader() error {
	for r.sc.Scan() {
		r.line++
		text := strings.TrimRight(r.sc.Text(), "\r")
		switch {
		case strings.HasPrefix(text, "##"):
			r.meta = append(r.meta, text)
		case strings.HasPrefix(text, "#CHROM"):
			cols := strings.Split(text, "\t")
			if len(cols) > 9 {
				r.samples = cols[9:]
			}
			return r.selectSample()
		case strings.TrimSpace(text) == "":
		default:
			// Data before any column header.
			r.pending, r.hasPending = text, true
			return r.selectSample()
		}
	}
	if err := r.sc.Err(); err != nil {
		return &ErrIO{Op: "read header", Err: err}
	}
	return r.selectSample()
}

func (r *Reader) selectSample() error {
	if r.opts.sample == "" {
		return nil
	}
	for i, s := range r.samples {
		if s == r.opts.sample {
			r.sampleIdx = i
			return nil
		}
	}
	return &ErrFormat{Reason: fmt.Sprintf("sample %q not in header", r.opts.sample)}
}

// Meta returns the "##" header lines.
func (r *Reader) Meta() []string { return r.meta }

// Samples returns the sample names from the column header.
func (r *Reader) Samples() []string { return r.samples }

// Sample returns the name of the sample whose genotypes are read, or "" when
// the header names none.
func (r *Reader) Sample() string {
	if r.sampleIdx < len(r.samples) {
		return r.samples[r.sampleIdx]
	}
	return ""
}

// Stats returns the counters accumulated so far.
func (r *Reader) Stats() Stats { return r.stats }

func (r *Reader) nextLine() (string, bool) {
	if r.hasPending {
		r.hasPending = false
		return r.pending, true
	}
	if !r.sc.Scan() {
		return "", false
	}
	r.line++
	return strings.TrimRight(r.sc.Text(), "\r"), true
}

// Next returns the next variant, or io.EOF after the last one. The context
// is checked before every line.
func (r *Reader) Next(ctx context.Context) (Variant, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Variant{}, err
		}

		text, ok := r.nextLine()
		if !ok {
			if err := r.sc.Err(); err != nil {
				return Variant{}, &ErrIO{Op: "read", Err: err}
			}
			return Variant{}, io.EOF
		}
		if strings.TrimSpace(text) == "" || text[0] == '#' {
			continue
		}
		r.stats.DataLines++

		v, err := r.parse(text)
		if err != nil {
			if !r.opts.lenient {
				return Variant{}, err
			}
			r.stats.Skipped++
			if r.opts.logger != nil {
				r.opts.logger.DebugContext(ctx, "skipping vcf line", "line", r.line, "error", err)
			}
			continue
		}

		if r.opts.region != nil && !r.opts.region.Contains(v) {
			r.stats.Filtered++
			continue
		}
		r.stats.Variants++
		return v, nil
	}
}

// All iterates over the remaining variants. Iteration stops after the first
// error.
func (r *Reader) All(ctx context.Context) iter.Seq2[Variant, error] {
	return func(yield func(Variant, error) bool) {
		for {
			v, err := r.Next(ctx)
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// ReadAll reads the remaining variants.
func (r *Reader) ReadAll(ctx context.Context) ([]Variant, error) {
	var out []Variant
	for v, err := range r.All(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (r *Reader) parse(text string) (Variant, error) {
	cols := strings.Split(text, "\t")
	if len(cols) < 8 {
		return Variant{}, &ErrFormat{Line: r.line, Reason: fmt.Sprintf("expected at least 8 tab-separated columns, got %d", len(cols))}
	}
	if cols[0] == "" {
		return Variant{}, &ErrFormat{Line: r.line, Reason: "empty CHROM"}
	}

	pos, err := strconv.ParseUint(cols[1], 10, 64)
	if err != nil || pos == 0 {
		return Variant{}, &ErrInvalidRegion{Line: r.line, Value: cols[1], Reason: "POS must be a positive integer"}
	}
	if cols[3] == "" || cols[3] == "." {
		return Variant{}, &ErrFormat{Line: r.line, Reason: "empty REF"}
	}

	v := Variant{
		Chrom:  cols[0],
		Pos:    pos,
		ID:     cols[2],
		Ref:    cols[3],
		Alt:    strings.Split(cols[4], ","),
		Filter: cols[6],
		Info:   cols[7],
	}

	if cols[5] != "." {
		q, err := strconv.ParseFloat(cols[5], 64)
		if err != nil {
			return Variant{}, &ErrFormat{Line: r.line, Reason: fmt.Sprintf("bad QUAL %q", cols[5])}
		}
		v.Qual = &q
	}

	col := 9 + r.sampleIdx
	if len(cols) <= col {
		return v, nil
	}
	gtIdx := -1
	for i, key := range strings.Split(cols[8], ":") {
		if key == "GT" {
			gtIdx = i
			break
		}
	}
	if gtIdx < 0 {
		return v, nil
	}

	fields := strings.Split(cols[col], ":")
	v.HasGenotype = true
	if gtIdx >= len(fields) {
		// Trailing fields may be dropped; a dropped GT is missing.
		v.GT, v.Genotype = ".", Missing
		return v, nil
	}
	v.GT = fields[gtIdx]
	g, ok := ParseGenotype(v.GT)
	if !ok {
		return Variant{}, &ErrInvalidGenotype{Line: r.line, GT: v.GT}
	}
	v.Genotype = g
	return v, nil
}

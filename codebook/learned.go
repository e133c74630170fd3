package codebook

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/hupe1980/genohdc/codec"
	"github.com/hupe1980/genohdc/hypervector"
)

// learnedFile is the on-disk table. Float embeddings are binarized on load;
// packed vectors (hex) are used verbatim.
type learnedFile struct {
	KmerLength int                  `json:"kmer_length"`
	Dimension  int                  `json:"dimension"`
	Embeddings map[string][]float32 `json:"embeddings,omitempty"`
	Vectors    map[string]string    `json:"vectors,omitempty"`
}

// Learned serves pre-trained item vectors.
type Learned struct {
	vectors   map[string]hypervector.Hypervector
	k         int
	sourceDim int
	dim       int
}

// LearnedOption configures loading.
type LearnedOption func(*learnedOptions)

type learnedOptions struct {
	dim   int
	codec codec.Codec
}

// WithTargetDimension sets the dimension float embeddings are binarized to.
func WithTargetDimension(dim int) LearnedOption {
	return func(o *learnedOptions) {
		o.dim = dim
	}
}

// WithCodec sets the codec used to read and write the table.
func WithCodec(c codec.Codec) LearnedOption {
	return func(o *learnedOptions) {
		o.codec = c
	}
}

func applyLearnedOptions(optFns []LearnedOption) learnedOptions {
	o := learnedOptions{dim: hypervector.Dimension, codec: codec.Default}
	for _, fn := range optFns {
		fn(&o)
	}
	return o
}

// NewLearned builds a codebook from float embeddings. Each vector is
// binarized with threshold 0 (>= 0 becomes 1), cycling through the source
// values when the target dimension is larger.
func NewLearned(k int, embeddings map[string][]float32, optFns ...LearnedOption) (*Learned, error) {
	o := applyLearnedOptions(optFns)
	if _, err := hypervector.New(o.dim); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, &ErrFormat{Reason: fmt.Sprintf("invalid kmer_length %d", k)}
	}

	l := &Learned{
		vectors: make(map[string]hypervector.Hypervector, len(embeddings)),
		k:       k,
		dim:     o.dim,
	}
	for token, floats := range embeddings {
		hv, err := binarize(floats, o.dim)
		if err != nil {
			return nil, &ErrFormat{Reason: fmt.Sprintf("embedding for %q", token), cause: err}
		}
		l.vectors[token] = hv
		l.sourceDim = len(floats)
	}
	return l, nil
}

func binarize(floats []float32, dim int) (hypervector.Hypervector, error) {
	if len(floats) == 0 {
		return hypervector.Hypervector{}, fmt.Errorf("empty embedding")
	}
	out := make([]byte, dim/8)
	for i := 0; i < dim; i++ {
		if floats[i%len(floats)] >= 0 {
			out[i>>3] |= 1 << (i & 7)
		}
	}
	return hypervector.FromBytesWithDimension(out, dim)
}

// LoadLearned decodes a table from r.
func LoadLearned(r io.Reader, optFns ...LearnedOption) (*Learned, error) {
	o := applyLearnedOptions(optFns)

	var f learnedFile
	if err := codec.Decode(o.codec, r, &f); err != nil {
		return nil, &ErrFormat{Reason: "decode", cause: err}
	}

	l, err := NewLearned(f.KmerLength, f.Embeddings, optFns...)
	if err != nil {
		return nil, err
	}
	if f.Dimension > 0 {
		l.sourceDim = f.Dimension
	}

	for token, h := range f.Vectors {
		hv, err := hypervector.ParseHex(h)
		if err != nil {
			return nil, &ErrFormat{Reason: fmt.Sprintf("vector for %q", token), cause: err}
		}
		if hv.Dimension() != l.dim {
			return nil, &ErrFormat{
				Reason: fmt.Sprintf("vector for %q", token),
				cause:  &hypervector.ErrDimensionMismatch{Expected: l.dim, Actual: hv.Dimension()},
			}
		}
		l.vectors[token] = hv
	}
	return l, nil
}

// LoadLearnedFile opens path and decodes it.
func LoadLearnedFile(path string, optFns ...LearnedOption) (*Learned, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open codebook: %w", err)
	}
	defer f.Close()
	return LoadLearned(f, optFns...)
}

// Save writes the table with packed vectors so it reloads byte-identically.
func (l *Learned) Save(w io.Writer, c codec.Codec) error {
	f := learnedFile{
		KmerLength: l.k,
		Dimension:  l.sourceDim,
		Vectors:    make(map[string]string, len(l.vectors)),
	}
	for token, hv := range l.vectors {
		f.Vectors[token] = hv.Hex()
	}
	return codec.Encode(c, w, f)
}

// Vector implements Codebook.
func (l *Learned) Vector(token string) (hypervector.Hypervector, error) {
	v, ok := l.vectors[token]
	if !ok {
		return hypervector.Hypervector{}, fmt.Errorf("%w: %q", ErrTokenNotFound, token)
	}
	return v, nil
}

// Contains reports whether token has a vector.
func (l *Learned) Contains(token string) bool {
	_, ok := l.vectors[token]
	return ok
}

// Dimension implements Codebook.
func (l *Learned) Dimension() int { return l.dim }

// KmerLength returns the k the table was trained for.
func (l *Learned) KmerLength() int { return l.k }

// SourceDimension returns the embedding width before binarization.
func (l *Learned) SourceDimension() int { return l.sourceDim }

// Len returns the number of tokens.
func (l *Learned) Len() int { return len(l.vectors) }

// Tokens returns the tokens in sorted order.
func (l *Learned) Tokens() []string {
	return slices.Sorted(maps.Keys(l.vectors))
}

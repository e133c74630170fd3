package hypervector

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/hupe1980/genohdc/internal/simd"
)

const (
	// Dimension is the canonical number of bits in a hypervector.
	Dimension = 16384
	// Bytes is the canonical packed size of a hypervector.
	Bytes = Dimension / 8
)

// Seed is a 256-bit value from which item vectors are derived.
type Seed [32]byte

// SeedFromString derives a seed as SHA-256 of the UTF-8 bytes of s.
func SeedFromString(s string) Seed {
	return Seed(sha256.Sum256([]byte(s)))
}

// SeedFromBytes uses b verbatim as the seed.
func SeedFromBytes(b [32]byte) Seed {
	return Seed(b)
}

// String returns the seed as lower-case hex.
func (s Seed) String() string {
	return hex.EncodeToString(s[:])
}

// Hypervector is an immutable bit-packed binary vector.
// The zero value is an empty vector with dimension 0 and is not valid input
// for any operation.
type Hypervector struct {
	dim  int
	data []byte
}

func validateDimension(dim int) error {
	if dim <= 0 || dim%8 != 0 {
		return &ErrInvalidDimension{Dimension: dim}
	}
	return nil
}

// Zero returns the all-zero vector of canonical dimension.
func Zero() Hypervector {
	return Hypervector{dim: Dimension, data: make([]byte, Bytes)}
}

// New returns the all-zero vector of the given dimension.
func New(dim int) (Hypervector, error) {
	if err := validateDimension(dim); err != nil {
		return Hypervector{}, err
	}
	return Hypervector{dim: dim, data: make([]byte, dim/8)}, nil
}

// FromBytes copies a canonical-length buffer into a new vector.
func FromBytes(b []byte) (Hypervector, error) {
	return FromBytesWithDimension(b, Dimension)
}

// FromBytesWithDimension copies b into a vector of dimension dim.
// len(b) must equal dim/8.
func FromBytesWithDimension(b []byte, dim int) (Hypervector, error) {
	if err := validateDimension(dim); err != nil {
		return Hypervector{}, err
	}
	if len(b) != dim/8 {
		return Hypervector{}, &ErrInvalidLength{Expected: dim / 8, Actual: len(b)}
	}
	return Hypervector{dim: dim, data: bytes.Clone(b)}, nil
}

// FromPacked infers the dimension from the buffer length (8 bits per byte).
func FromPacked(b []byte) (Hypervector, error) {
	return FromBytesWithDimension(b, len(b)*8)
}

// Random derives the canonical-dimension item vector for id under seed.
func Random(seed Seed, id string) Hypervector {
	return Hypervector{dim: Dimension, data: itemBytes(seed, []byte(id), Bytes)}
}

// RandomWithDimension derives an item vector of dimension dim.
func RandomWithDimension(seed Seed, id string, dim int) (Hypervector, error) {
	if err := validateDimension(dim); err != nil {
		return Hypervector{}, err
	}
	return Hypervector{dim: dim, data: itemBytes(seed, []byte(id), dim/8)}, nil
}

// itemBytes concatenates SHA-256(seed || id || counter) blocks, counter
// encoded as a little-endian uint64 starting at 0, and truncates to n bytes.
func itemBytes(seed Seed, id []byte, n int) []byte {
	out := make([]byte, 0, n+sha256.Size)
	var ctr [8]byte
	for counter := uint64(0); len(out) < n; counter++ {
		binary.LittleEndian.PutUint64(ctr[:], counter)
		h := sha256.New()
		h.Write(seed[:])
		h.Write(id)
		h.Write(ctr[:])
		out = h.Sum(out)
	}
	return out[:n:n]
}

// Dimension returns the number of bits.
func (v Hypervector) Dimension() int { return v.dim }

// Len returns the packed size in bytes.
func (v Hypervector) Len() int { return len(v.data) }

// Bytes returns a copy of the packed bits.
func (v Hypervector) Bytes() []byte { return bytes.Clone(v.data) }

// AppendBytes appends the packed bits to dst.
func (v Hypervector) AppendBytes(dst []byte) []byte { return append(dst, v.data...) }

// Bit reports whether bit i is set. It panics if i is out of range.
func (v Hypervector) Bit(i int) bool {
	if i < 0 || i >= v.dim {
		panic(fmt.Sprintf("hypervector: bit index %d out of range [0,%d)", i, v.dim))
	}
	return v.data[i>>3]&(1<<(i&7)) != 0
}

// Clone returns an independent copy.
func (v Hypervector) Clone() Hypervector {
	return Hypervector{dim: v.dim, data: bytes.Clone(v.data)}
}

// Equal reports exact equality of dimension and bits.
func (v Hypervector) Equal(o Hypervector) bool {
	return v.dim == o.dim && bytes.Equal(v.data, o.data)
}

// IsZero reports whether the vector has no dimension.
func (v Hypervector) IsZero() bool { return v.dim == 0 }

// Popcount returns the number of set bits.
func (v Hypervector) Popcount() int { return simd.Popcount(v.data) }

// Density returns the fraction of set bits.
func (v Hypervector) Density() float64 {
	if v.dim == 0 {
		return 0
	}
	return float64(v.Popcount()) / float64(v.dim)
}

// Hex returns the canonical lower-case hex form.
func (v Hypervector) Hex() string { return hex.EncodeToString(v.data) }

// String returns a short human-readable form.
func (v Hypervector) String() string {
	h := v.Hex()
	if len(h) > 16 {
		h = h[:16] + "..."
	}
	return fmt.Sprintf("Hypervector(d=%d, %s)", v.dim, h)
}

// ParseHex decodes the canonical hex form; the dimension is 4 bits per digit.
func ParseHex(s string) (Hypervector, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hypervector{}, fmt.Errorf("parse hypervector hex: %w", err)
	}
	return FromPacked(b)
}

// MarshalText implements encoding.TextMarshaler using the hex form.
func (v Hypervector) MarshalText() ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(v.data)))
	hex.Encode(out, v.data)
	return out, nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Hypervector) UnmarshalText(text []byte) error {
	b := make([]byte, hex.DecodedLen(len(text)))
	if _, err := hex.Decode(b, text); err != nil {
		return fmt.Errorf("parse hypervector hex: %w", err)
	}
	hv, err := FromPacked(b)
	if err != nil {
		return err
	}
	*v = hv
	return nil
}

func checkDims(a, b Hypervector) error {
	if a.dim != b.dim {
		return &ErrDimensionMismatch{Expected: a.dim, Actual: b.dim}
	}
	return nil
}

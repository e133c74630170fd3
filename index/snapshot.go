package index

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/genohdc/codec"
	"github.com/hupe1980/genohdc/distance"
	"github.com/hupe1980/genohdc/hypervector"
	"github.com/hupe1980/genohdc/internal/hash"
	"github.com/hupe1980/genohdc/resource"
)

// Compression selects the snapshot payload codec.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = 0
	// CompressionLZ4 favours speed.
	CompressionLZ4 Compression = 1
	// CompressionZstd favours ratio. It is the default.
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression resolves "none", "lz4" or "zstd".
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd", "":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q. Valid: none, lz4, zstd", s)
	}
}

// Snapshot layout, little endian:
//
//	Magic "GHIX" (4 bytes)
//	Version (1 byte)
//	Compression (1 byte)
//	Metric (1 byte)
//	Reserved (1 byte)
//	Dimension (4 bytes)
//	Count (4 bytes)
//	RawLength (4 bytes)
//	PayloadLength (4 bytes)
//	Payload
//	Checksum (4 bytes) - CRC32C of payload
//
// Each raw payload record is
//
//	IDLen (uvarint), ID, Vector (Dimension/8 bytes),
//	MetaLen (uvarint), Meta (JSON), TagCount (uvarint), {TagLen (uvarint), Tag}...
const (
	snapshotMagic   = "GHIX"
	snapshotVersion = 1
	headerSize      = 4 + 4 + 4*4
	maxPayload      = 1 << 31
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

type snapshotOptions struct {
	compression Compression
}

// SnapshotOption configures Save.
type SnapshotOption func(*snapshotOptions)

// WithCompression selects the payload compression.
func WithCompression(c Compression) SnapshotOption {
	return func(o *snapshotOptions) {
		o.compression = c
	}
}

// Save writes a snapshot of the index to w. Writes are throttled by the
// resource controller's IO limit, if any.
func (x *Index) Save(ctx context.Context, w io.Writer, optFns ...SnapshotOption) error {
	o := snapshotOptions{compression: CompressionZstd}
	for _, fn := range optFns {
		fn(&o)
	}

	x.mu.RLock()
	entries := x.entries()
	x.mu.RUnlock()

	raw, err := encodeEntries(entries)
	if err != nil {
		return err
	}
	payload, comp, err := compress(raw, o.compression)
	if err != nil {
		return err
	}
	if len(payload) >= maxPayload {
		return fmt.Errorf("snapshot too large: %d bytes", len(payload))
	}

	buf := make([]byte, 0, headerSize+len(payload)+4)
	buf = append(buf, snapshotMagic...)
	buf = append(buf, snapshotVersion, byte(comp), byte(x.opts.metric), 0)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(x.opts.dim))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(entries)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(raw)))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	buf = append(buf, payload...)
	buf = binary.LittleEndian.AppendUint32(buf, hash.CRC32C(payload))

	if x.opts.rc != nil {
		w = resource.NewRateLimitedWriter(ctx, w, x.opts.rc)
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	x.opts.logger.DebugContext(ctx, "index snapshot written",
		"entries", len(entries), "bytes", len(buf), "compression", comp.String())
	return nil
}

// Load reads a snapshot written by Save. Dimension and metric come from the
// snapshot; other options apply as for New.
func Load(ctx context.Context, r io.Reader, optFns ...Option) (*Index, error) {
	var probe options
	for _, fn := range optFns {
		fn(&probe)
	}
	if probe.rc != nil {
		r = resource.NewRateLimitedReader(ctx, r, probe.rc)
	}

	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read snapshot header: %w", err)
	}
	if string(header[:4]) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	if header[4] != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, header[4])
	}
	comp := Compression(header[5])
	metric := distance.Metric(header[6])
	dim := int(binary.LittleEndian.Uint32(header[8:]))
	count := int(binary.LittleEndian.Uint32(header[12:]))
	rawLen := binary.LittleEndian.Uint32(header[16:])
	payloadLen := binary.LittleEndian.Uint32(header[20:])
	if payloadLen >= maxPayload || rawLen >= maxPayload {
		return nil, fmt.Errorf("%w: payload length %d", ErrCorrupt, payloadLen)
	}

	body := make([]byte, int(payloadLen)+4)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("read snapshot payload: %w", err)
	}
	payload := body[:payloadLen]
	if hash.CRC32C(payload) != binary.LittleEndian.Uint32(body[payloadLen:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	raw, err := decompress(payload, comp, int(rawLen))
	if err != nil {
		return nil, err
	}

	x, err := New(append(optFns, WithDimension(dim), WithMetric(metric))...)
	if err != nil {
		return nil, err
	}
	if err := decodeEntries(raw, dim, count, x.AddEntry); err != nil {
		return nil, err
	}
	x.opts.logger.DebugContext(ctx, "index snapshot loaded", "entries", count, "compression", comp.String())
	return x, nil
}

func encodeEntries(entries []Entry) ([]byte, error) {
	var buf []byte
	for _, e := range entries {
		buf = appendString(buf, e.ID)
		buf = e.Vector.AppendBytes(buf)

		var meta []byte
		if len(e.Metadata) > 0 {
			m, err := codec.Default.Marshal(e.Metadata)
			if err != nil {
				return nil, fmt.Errorf("encode metadata of %q: %w", e.ID, err)
			}
			meta = m
		}
		buf = binary.AppendUvarint(buf, uint64(len(meta)))
		buf = append(buf, meta...)

		buf = binary.AppendUvarint(buf, uint64(len(e.Tags)))
		for _, t := range e.Tags {
			buf = appendString(buf, t)
		}
	}
	return buf, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

type payloadReader struct {
	buf []byte
	off int
}

func (p *payloadReader) uvarint() (int, error) {
	v, n := binary.Uvarint(p.buf[p.off:])
	if n <= 0 || v > uint64(len(p.buf)) {
		return 0, fmt.Errorf("%w: bad length at offset %d", ErrCorrupt, p.off)
	}
	p.off += n
	return int(v), nil
}

func (p *payloadReader) bytes(n int) ([]byte, error) {
	if p.off+n > len(p.buf) {
		return nil, fmt.Errorf("%w: truncated payload", ErrCorrupt)
	}
	b := p.buf[p.off : p.off+n]
	p.off += n
	return b, nil
}

func (p *payloadReader) string() (string, error) {
	n, err := p.uvarint()
	if err != nil {
		return "", err
	}
	b, err := p.bytes(n)
	return string(b), err
}

func decodeEntries(raw []byte, dim, count int, add func(Entry) error) error {
	p := &payloadReader{buf: raw}
	for i := 0; i < count; i++ {
		var e Entry
		var err error
		if e.ID, err = p.string(); err != nil {
			return err
		}
		vb, err := p.bytes(dim / 8)
		if err != nil {
			return err
		}
		if e.Vector, err = hypervector.FromBytesWithDimension(vb, dim); err != nil {
			return err
		}

		metaLen, err := p.uvarint()
		if err != nil {
			return err
		}
		if metaLen > 0 {
			mb, err := p.bytes(metaLen)
			if err != nil {
				return err
			}
			if err := codec.Default.Unmarshal(mb, &e.Metadata); err != nil {
				return fmt.Errorf("%w: metadata of %q: %v", ErrCorrupt, e.ID, err)
			}
		}

		tagCount, err := p.uvarint()
		if err != nil {
			return err
		}
		for j := 0; j < tagCount; j++ {
			t, err := p.string()
			if err != nil {
				return err
			}
			e.Tags = append(e.Tags, t)
		}

		if err := add(e); err != nil {
			return err
		}
	}
	if p.off != len(raw) {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(raw)-p.off)
	}
	return nil
}

func compress(raw []byte, c Compression) ([]byte, Compression, error) {
	switch c {
	case CompressionNone:
		return raw, CompressionNone, nil
	case CompressionLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, dst, nil)
		if err != nil {
			return nil, 0, err
		}
		if n == 0 {
			// Incompressible.
			return raw, CompressionNone, nil
		}
		return dst[:n], CompressionLZ4, nil
	case CompressionZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, 0, err
		}
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(raw, nil), CompressionZstd, nil
	default:
		return nil, 0, fmt.Errorf("unknown compression %d", uint8(c))
	}
}

func decompress(payload []byte, c Compression, rawLen int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(payload) != rawLen {
			return nil, fmt.Errorf("%w: length mismatch", ErrCorrupt)
		}
		return payload, nil
	case CompressionLZ4:
		out := make([]byte, rawLen)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if n != rawLen {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	case CompressionZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(payload, make([]byte, 0, rawLen))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if len(out) != rawLen {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, uint8(c))
	}
}

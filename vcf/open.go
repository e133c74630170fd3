package vcf

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

var gzipMagic = []byte{0x1f, 0x8b}

// File is a Reader over an opened file.
type File struct {
	*Reader
	closers []io.Closer
}

// Close releases the decompressor and the file.
func (f *File) Close() error {
	var first error
	for i := len(f.closers) - 1; i >= 0; i-- {
		if err := f.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	f.closers = nil
	return first
}

// Open opens path for reading, or stdin when path is "-". Gzip and bgzip
// input is detected from its magic bytes.
func Open(path string, optFns ...Option) (*File, error) {
	var (
		src     io.Reader
		closers []io.Closer
	)
	if path == "-" {
		src = os.Stdin
	} else {
		fh, err := os.Open(path)
		if err != nil {
			return nil, &ErrIO{Op: "open", Err: err}
		}
		src = fh
		closers = append(closers, fh)
	}

	f := &File{closers: closers}
	r, err := NewDecompressingReader(src)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if c, ok := r.(io.Closer); ok {
		f.closers = append(f.closers, c)
	}

	vr, err := NewReader(r, optFns...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	f.Reader = vr
	return f, nil
}

// NewDecompressingReader returns r unchanged for plain text and a gzip
// reader when r starts with the gzip magic bytes. Concatenated members, as
// written by bgzip, are read as one stream.
func NewDecompressingReader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(gzipMagic))
	if err != nil && err != io.EOF {
		return nil, &ErrIO{Op: "detect compression", Err: err}
	}
	if !bytes.Equal(head, gzipMagic) {
		return br, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, &ErrIO{Op: "open gzip", Err: err}
	}
	return zr, nil
}

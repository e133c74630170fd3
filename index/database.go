package index

import (
	"fmt"
	"io"

	"github.com/hupe1980/genohdc/codec"
	"github.com/hupe1980/genohdc/hypervector"
)

// Record is the interchange form of an entry.
type Record struct {
	ID       string         `json:"id"`
	Vector   string         `json:"vector"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
}

// NewRecord converts e to its interchange form.
func NewRecord(e Entry) Record {
	return Record{ID: e.ID, Vector: e.Vector.Hex(), Metadata: e.Metadata, Tags: e.Tags}
}

// Entry parses the record's vector.
func (r Record) Entry() (Entry, error) {
	if r.ID == "" {
		return Entry{}, ErrEmptyID
	}
	v, err := hypervector.ParseHex(r.Vector)
	if err != nil {
		return Entry{}, fmt.Errorf("record %q: %w", r.ID, err)
	}
	return Entry{ID: r.ID, Vector: v, Metadata: r.Metadata, Tags: r.Tags}, nil
}

// ReadDatabase decodes a JSON array of records with c (nil uses
// codec.Default).
func ReadDatabase(r io.Reader, c codec.Codec) ([]Entry, error) {
	var records []Record
	if err := codec.Decode(c, r, &records); err != nil {
		return nil, fmt.Errorf("decode database: %w", err)
	}
	out := make([]Entry, len(records))
	for i, rec := range records {
		e, err := rec.Entry()
		if err != nil {
			return nil, fmt.Errorf("database record %d: %w", i, err)
		}
		out[i] = e
	}
	return out, nil
}

// WriteDatabase encodes entries as a JSON array of records.
func WriteDatabase(w io.Writer, c codec.Codec, entries []Entry) error {
	records := make([]Record, len(entries))
	for i, e := range entries {
		records[i] = NewRecord(e)
	}
	return codec.Encode(c, w, records)
}

// FromEntries builds an index holding entries in order.
func FromEntries(entries []Entry, optFns ...Option) (*Index, error) {
	x, err := New(optFns...)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if err := x.AddEntry(e); err != nil {
			return nil, fmt.Errorf("add %q: %w", e.ID, err)
		}
	}
	return x, nil
}

// Import reads a database and adds its entries.
func (x *Index) Import(r io.Reader, c codec.Codec) (int, error) {
	entries, err := ReadDatabase(r, c)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if err := x.AddEntry(e); err != nil {
			return 0, fmt.Errorf("add %q: %w", e.ID, err)
		}
	}
	return len(entries), nil
}

// Export writes all entries as a database.
func (x *Index) Export(w io.Writer, c codec.Codec) error {
	return WriteDatabase(w, c, x.Entries())
}

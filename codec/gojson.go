package codec

import (
	"io"

	gojson "github.com/goccy/go-json"
)

// GoJSON is a JSON codec backed by github.com/goccy/go-json.
type GoJSON struct{}

// Marshal encodes the value to JSON.
func (GoJSON) Marshal(v any) ([]byte, error) { return gojson.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (GoJSON) Unmarshal(data []byte, v any) error { return gojson.Unmarshal(data, v) }

// Name returns the unique name of the codec ("go-json").
func (GoJSON) Name() string { return "go-json" }

// Encode writes v to w as JSON.
func (GoJSON) Encode(w io.Writer, v any) error { return gojson.NewEncoder(w).Encode(v) }

// Decode reads one JSON value from r.
func (GoJSON) Decode(r io.Reader, v any) error { return gojson.NewDecoder(r).Decode(v) }

package bucketry

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
)

// Codec serializes object payloads.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, v any) error
	ContentType() string
}

// JSONCodec implements Codec using JSON encoding.
type JSONCodec struct{}

// Encode serializes a value to JSON bytes.
func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode deserializes JSON bytes into a value.
func (JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// ContentType returns the JSON MIME type.
func (JSONCodec) ContentType() string {
	return "application/json"
}

// GobCodec implements Codec using encoding/gob.
type GobCodec struct{}

// Encode serializes a value with gob.
func (GobCodec) Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes gob bytes into a value.
func (GobCodec) Decode(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

// ContentType returns the gob MIME type.
func (GobCodec) ContentType() string {
	return "application/x-gob"
}

// Ensure codecs implement Codec.
var (
	_ Codec = JSONCodec{}
	_ Codec = GobCodec{}
)

// Package codec converts event payloads to and from bytes for adapters,
// stores and exports.
package codec

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrDecode wraps every payload that a codec could not decode.
var ErrDecode = errors.New("codec: decode")

// api matches encoding/json output: sorted map keys, escaped HTML.
var api = sonic.ConfigStd

// Marshal encodes v as JSON.
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalIndent encodes v as JSON, one field per line.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal decodes JSON data into v. Numbers in untyped targets become
// float64.
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// Codec converts payloads of type T to and from bytes.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSON returns the JSON codec for T. Decode failures wrap ErrDecode.
func JSON[T any]() Codec[T] {
	return jsonCodec[T]{}
}

type jsonCodec[T any] struct{}

func (jsonCodec[T]) Encode(v T) ([]byte, error) {
	return Marshal(v)
}

func (jsonCodec[T]) Decode(data []byte) (T, error) {
	var v T
	if err := Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w %T: %v", ErrDecode, v, err)
	}
	return v, nil
}

// Text returns a codec that stores strings as their raw bytes.
func Text() Codec[string] {
	return textCodec{}
}

type textCodec struct{}

func (textCodec) Encode(v string) ([]byte, error) { return []byte(v), nil }

func (textCodec) Decode(data []byte) (string, error) { return string(data), nil }

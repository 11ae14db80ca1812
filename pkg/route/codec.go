package route

import (
	"encoding/json"
	"fmt"
)

// Codec converts state payloads to and from the string form stored in a
// navigation history entry.
type Codec[T any] interface {
	Encode(state T) (string, error)
	Decode(s string) (T, error)
}

// JSONCodec encodes state as JSON text.
type JSONCodec[T any] struct{}

// Encode implements Codec.
func (JSONCodec[T]) Encode(state T) (string, error) {
	b, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("route: encode state: %w", err)
	}
	return string(b), nil
}

// Decode implements Codec.
func (JSONCodec[T]) Decode(s string) (T, error) {
	var state T
	if err := json.Unmarshal([]byte(s), &state); err != nil {
		var zero T
		return zero, fmt.Errorf("route: decode state: %w", err)
	}
	return state, nil
}

// CodecFuncs adapts a pair of functions to Codec.
type CodecFuncs[T any] struct {
	EncodeFunc func(T) (string, error)
	DecodeFunc func(string) (T, error)
}

// Encode implements Codec.
func (c CodecFuncs[T]) Encode(state T) (string, error) {
	return c.EncodeFunc(state)
}

// Decode implements Codec.
func (c CodecFuncs[T]) Decode(s string) (T, error) {
	return c.DecodeFunc(s)
}

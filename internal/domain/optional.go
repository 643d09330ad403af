package domain

import (
	"bytes"
	"encoding/json"
)

// Optional distinguishes an omitted field from one that was supplied.
// When T is a pointer, a present nil value is an explicit null.
type Optional[T any] struct {
	Present bool
	Value   T
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Present: true, Value: v}
}

// None returns an omitted Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Or returns the held value when present, fallback otherwise.
func (o Optional[T]) Or(fallback T) T {
	if o.Present {
		return o.Value
	}
	return fallback
}

// UnmarshalJSON marks the field present, including for a literal null.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Present = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// MarshalJSON encodes the held value, or null when omitted.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.Present {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

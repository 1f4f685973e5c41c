package models

import (
	"bytes"
	"encoding/json"
)

// Optional holds a value that may be absent. Unknown is distinct from the
// zero value of T, so a missing confidence never reads as 0.
type Optional[T any] struct {
	value T
	known bool
}

// Known wraps a present value.
func Known[T any](v T) Optional[T] {
	return Optional[T]{value: v, known: true}
}

// Unknown returns the absent value.
func Unknown[T any]() Optional[T] {
	return Optional[T]{}
}

// FromPtr maps nil to Unknown.
func FromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return Unknown[T]()
	}
	return Known(*p)
}

// Get returns the value and whether it is known.
func (o Optional[T]) Get() (T, bool) { return o.value, o.known }

// IsKnown reports whether a value is present.
func (o Optional[T]) IsKnown() bool { return o.known }

// OrElse returns the value or def when unknown.
func (o Optional[T]) OrElse(def T) T {
	if !o.known {
		return def
	}
	return o.value
}

// MarshalJSON encodes Unknown as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.known {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON decodes null as Unknown.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*o = Unknown[T]()
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*o = Known(v)
	return nil
}

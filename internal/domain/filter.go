package domain

import "encoding/json/v2"

// Optional holds a value together with an explicit presence bit.
// The zero Optional is unset, which is distinct from a set zero value.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// None returns an unset Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

// Get returns the value and whether it is set.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value is present.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// IsZero reports whether the Optional is unset. Used by omitzero.
func (o Optional[T]) IsZero() bool {
	return !o.set
}

// MarshalJSON encodes an unset Optional as null.
func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.set {
		return []byte("null"), nil
	}
	return json.Marshal(o.value)
}

// UnmarshalJSON treats null as unset and anything else as set.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Optional[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// FilterSpec narrows an event collection. Every unset field imposes no constraint.
// Date is kept raw so that a malformed value can be ignored rather than rejected.
type FilterSpec struct {
	Text      Optional[string]  `json:"text,omitzero"`
	Category  Optional[string]  `json:"category,omitzero"`
	Date      Optional[string]  `json:"date,omitzero"`
	Location  Optional[string]  `json:"location,omitzero"`
	MinRating Optional[float64] `json:"min_rating,omitzero"`
}

// IsEmpty reports whether no field is set.
func (s FilterSpec) IsEmpty() bool {
	return !s.Text.IsSet() && !s.Category.IsSet() && !s.Date.IsSet() &&
		!s.Location.IsSet() && !s.MinRating.IsSet()
}

package stream

import "fmt"

// Event is an immutable envelope around a single payload.
type Event[T any] struct {
	data T
}

// NewEvent wraps v.
func NewEvent[T any](v T) Event[T] {
	return Event[T]{data: v}
}

// Value returns the payload.
func (e Event[T]) Value() T {
	return e.data
}

func (e Event[T]) String() string {
	return fmt.Sprintf("Event[data=%v]", e.data)
}

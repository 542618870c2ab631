package stream

import "context"

// SliceSource emits a fixed list of values, then completes.
type SliceSource[T any] struct {
	*Engine[T]
	values []T
}

var _ Source[int] = (*SliceSource[int])(nil)

// NewSliceSource creates a source over a copy of values.
func NewSliceSource[T any](values []T, opts ...Option) *SliceSource[T] {
	return &SliceSource[T]{
		Engine: NewEngine[T](opts...),
		values: append([]T(nil), values...),
	}
}

// Start emits every value in order. It stops early when ctx is done or a
// subscriber fails.
func (s *SliceSource[T]) Start(ctx context.Context) error {
	for _, v := range s.values {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Emit(ctx, NewEvent(v)); err != nil {
			return err
		}
	}
	s.Complete()
	return nil
}

// RangeSource emits count consecutive integers starting at start, then
// completes.
type RangeSource struct {
	*Engine[int]
	start int
	count int
}

var _ Source[int] = (*RangeSource)(nil)

// NewRangeSource creates a source emitting start, start+1, ..., start+count-1.
func NewRangeSource(start, count int, opts ...Option) *RangeSource {
	if count < 0 {
		count = 0
	}
	return &RangeSource{
		Engine: NewEngine[int](opts...),
		start:  start,
		count:  count,
	}
}

// Start emits the range in order.
func (s *RangeSource) Start(ctx context.Context) error {
	for i := 0; i < s.count; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.Emit(ctx, NewEvent(s.start+i)); err != nil {
			return err
		}
	}
	s.Complete()
	return nil
}

// GenerateFunc produces the events of a FuncSource by calling emit.
type GenerateFunc[T any] func(ctx context.Context, emit func(T) error) error

// FuncSource emits whatever its generator function produces.
type FuncSource[T any] struct {
	*Engine[T]
	generate GenerateFunc[T]
}

var _ Source[int] = (*FuncSource[int])(nil)

// NewFuncSource creates a source driven by fn. It panics if fn is nil.
func NewFuncSource[T any](fn GenerateFunc[T], opts ...Option) *FuncSource[T] {
	if fn == nil {
		panic("stream: nil generator")
	}
	return &FuncSource[T]{
		Engine:   NewEngine[T](opts...),
		generate: fn,
	}
}

// Start runs the generator and completes when it returns nil.
func (s *FuncSource[T]) Start(ctx context.Context) error {
	err := s.generate(ctx, func(v T) error {
		return s.Emit(ctx, NewEvent(v))
	})
	if err != nil {
		return err
	}
	s.Complete()
	return nil
}

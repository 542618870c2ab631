package stream

import (
	"context"
	"sync"
)

// CollectSink stores every payload it receives.
//
// A CollectSink may be subscribed to several publishers; Completed reports
// true once all of them completed.
type CollectSink[T any] struct {
	initial int64

	mu        sync.Mutex
	subs      []Subscription
	values    []T
	err       error
	completed int
}

var _ Subscriber[int] = (*CollectSink[int])(nil)

// NewCollectSink creates a sink that requests Unbounded demand.
func NewCollectSink[T any]() *CollectSink[T] {
	return &CollectSink[T]{initial: Unbounded}
}

// NewBoundedCollectSink creates a sink that requests n events on subscribe.
// With n == 0 it requests nothing until Request is called.
func NewBoundedCollectSink[T any](n int64) *CollectSink[T] {
	return &CollectSink[T]{initial: n}
}

func (c *CollectSink[T]) OnSubscribe(s Subscription) {
	c.mu.Lock()
	c.subs = append(c.subs, s)
	c.mu.Unlock()
	if c.initial > 0 {
		s.Request(c.initial)
	}
}

func (c *CollectSink[T]) OnNext(_ context.Context, e Event[T]) error {
	c.mu.Lock()
	c.values = append(c.values, e.Value())
	c.mu.Unlock()
	return nil
}

// OnError keeps the first failure.
func (c *CollectSink[T]) OnError(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

func (c *CollectSink[T]) OnComplete() {
	c.mu.Lock()
	c.completed++
	c.mu.Unlock()
}

// Request grants n more events on every subscription.
func (c *CollectSink[T]) Request(n int64) {
	for _, s := range c.subscriptions() {
		s.Request(n)
	}
}

// Cancel cancels every subscription.
func (c *CollectSink[T]) Cancel() {
	for _, s := range c.subscriptions() {
		s.Cancel()
	}
}

func (c *CollectSink[T]) subscriptions() []Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Subscription(nil), c.subs...)
}

// Values returns a copy of the received payloads in arrival order.
func (c *CollectSink[T]) Values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T(nil), c.values...)
}

// Len returns the number of received payloads.
func (c *CollectSink[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.values)
}

// Err returns the first failure signalled by an upstream.
func (c *CollectSink[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Completed reports whether every upstream completed.
func (c *CollectSink[T]) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs) > 0 && c.completed >= len(c.subs)
}

// FuncSink calls a function for every payload. It requests Unbounded demand.
type FuncSink[T any] struct {
	fn      func(ctx context.Context, v T) error
	onError func(error)

	mu  sync.Mutex
	err error
}

var _ Subscriber[int] = (*FuncSink[int])(nil)

// NewFuncSink creates a sink around fn. Errors from fn are returned to the
// emitter. It panics if fn is nil.
func NewFuncSink[T any](fn func(ctx context.Context, v T) error) *FuncSink[T] {
	if fn == nil {
		panic("stream: nil sink function")
	}
	return &FuncSink[T]{fn: fn}
}

// OnFailure registers a handler for upstream failures and returns s.
func (s *FuncSink[T]) OnFailure(fn func(error)) *FuncSink[T] {
	s.onError = fn
	return s
}

func (s *FuncSink[T]) OnSubscribe(sub Subscription) {
	sub.Request(Unbounded)
}

func (s *FuncSink[T]) OnNext(ctx context.Context, e Event[T]) error {
	return s.fn(ctx, e.Value())
}

func (s *FuncSink[T]) OnError(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	if s.onError != nil {
		s.onError(err)
	}
}

func (s *FuncSink[T]) OnComplete() {}

// Err returns the first failure signalled by an upstream.
func (s *FuncSink[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

package sqlite

import (
	"context"
	"fmt"
	"sync"

	"github.com/csadilek/epn/pkg/epn/codec"
	"github.com/csadilek/epn/pkg/epn/stream"
)

// Sink stores every event it receives in a Store. It requests unbounded
// demand. A failed write is returned from OnNext, so it reaches the caller
// that started the source.
type Sink[T any] struct {
	store   *Store
	network string
	node    string
	codec   codec.Codec[T]

	mu        sync.Mutex
	sub       stream.Subscription
	err       error
	completed bool
	written   int
}

var _ stream.Subscriber[int] = (*Sink[int])(nil)

// SinkOption configures a Sink.
type SinkOption[T any] func(*Sink[T])

// WithCodec sets the payload codec. Default: codec.JSON[T]().
func WithCodec[T any](c codec.Codec[T]) SinkOption[T] {
	return func(s *Sink[T]) {
		if c != nil {
			s.codec = c
		}
	}
}

// NewSink creates a sink writing rows for (network, node) into store.
// It panics if store is nil.
func NewSink[T any](store *Store, network, node string, opts ...SinkOption[T]) *Sink[T] {
	if store == nil {
		panic("sqlite: nil store")
	}
	s := &Sink[T]{
		store:   store,
		network: network,
		node:    node,
		codec:   codec.JSON[T](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink[T]) OnSubscribe(sub stream.Subscription) {
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	sub.Request(stream.Unbounded)
}

func (s *Sink[T]) OnNext(ctx context.Context, e stream.Event[T]) error {
	payload, err := s.codec.Encode(e.Value())
	if err != nil {
		return fmt.Errorf("sqlite sink %s: encode: %w", s.node, err)
	}
	if _, err := s.store.Append(ctx, s.network, s.node, payload); err != nil {
		return fmt.Errorf("sqlite sink %s: %w", s.node, err)
	}

	s.mu.Lock()
	s.written++
	s.mu.Unlock()
	return nil
}

// OnError keeps the first failure.
func (s *Sink[T]) OnError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

func (s *Sink[T]) OnComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = true
}

// Cancel cancels the subscription, if any.
func (s *Sink[T]) Cancel() {
	s.mu.Lock()
	sub := s.sub
	s.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// Err returns the first failure signalled by the upstream.
func (s *Sink[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Completed reports whether the upstream completed.
func (s *Sink[T]) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Written returns the number of events stored by this sink.
func (s *Sink[T]) Written() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.written
}

// Events returns the stored rows of this sink's (network, node).
func (s *Sink[T]) Events(ctx context.Context) ([]Record, error) {
	return s.store.Events(ctx, s.network, s.node)
}

// Values decodes the stored payloads of this sink's (network, node).
func (s *Sink[T]) Values(ctx context.Context) ([]T, error) {
	records, err := s.Events(ctx)
	if err != nil {
		return nil, err
	}
	values := make([]T, 0, len(records))
	for _, r := range records {
		v, err := s.codec.Decode(r.Payload)
		if err != nil {
			return nil, fmt.Errorf("decode event %d: %w", r.Seq, err)
		}
		values = append(values, v)
	}
	return values, nil
}

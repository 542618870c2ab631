package watermill

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/csadilek/epn/pkg/epn/codec"
	"github.com/csadilek/epn/pkg/epn/retry"
	"github.com/csadilek/epn/pkg/epn/stream"
)

// Sink publishes every event it receives to one topic. It requests
// unbounded demand. A publish that still fails after the configured
// retries is returned from OnNext.
type Sink[T any] struct {
	pub     message.Publisher
	topic   string
	codec   codec.Codec[T]
	network string
	node    string
	retry   retry.Config
	logger  *slog.Logger

	mu        sync.Mutex
	sub       stream.Subscription
	published int
	err       error
	completed bool
}

var _ stream.Subscriber[int] = (*Sink[int])(nil)

// NewSink creates a sink for topic. It panics if pub is nil.
func NewSink[T any](pub message.Publisher, topic string, opts ...Option) *Sink[T] {
	if pub == nil {
		panic("watermill: nil publisher")
	}
	o := newOptions(opts)
	return &Sink[T]{
		pub:     pub,
		topic:   topic,
		codec:   codec.JSON[T](),
		network: o.network,
		node:    o.node,
		retry:   o.retry,
		logger:  o.logger,
	}
}

// WithCodec replaces the payload codec and returns s.
func (s *Sink[T]) WithCodec(c codec.Codec[T]) *Sink[T] {
	if c != nil {
		s.codec = c
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
		return fmt.Errorf("encode for %s: %w", s.topic, err)
	}

	msg := message.NewMessage(NewID(), payload)
	msg.SetContext(ctx)
	if s.network != "" {
		msg.Metadata.Set(MetadataNetwork, s.network)
	}
	if s.node != "" {
		msg.Metadata.Set(MetadataNode, s.node)
	}
	cfg := s.retry
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
		s.logger.Warn("publish failed, retrying",
			slog.String("topic", s.topic),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}
	if _, err := retry.Do(ctx, cfg, func(context.Context) error {
		return s.pub.Publish(s.topic, msg)
	}); err != nil {
		return fmt.Errorf("publish to %s: %w", s.topic, err)
	}

	s.mu.Lock()
	s.published++
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

// Published returns the number of messages published.
func (s *Sink[T]) Published() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published
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

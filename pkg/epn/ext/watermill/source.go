package watermill

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/csadilek/epn/pkg/epn/codec"
	"github.com/csadilek/epn/pkg/epn/stream"
)

// Source emits the decoded payloads of the messages of one topic.
//
// Start subscribes and runs until the limit is reached or the subscription
// closes, then completes; it returns ctx.Err() when ctx ends first. A message
// is acked once its event was emitted, and nacked when decoding or emission
// fails, which also stops Start with that error.
type Source[T any] struct {
	*stream.Engine[T]
	sub    message.Subscriber
	topic  string
	codec  codec.Codec[T]
	limit  int
	logger *slog.Logger
}

var _ stream.Source[int] = (*Source[int])(nil)

// NewSource creates a source for topic. It panics if sub is nil.
func NewSource[T any](sub message.Subscriber, topic string, opts ...Option) *Source[T] {
	if sub == nil {
		panic("watermill: nil subscriber")
	}
	o := newOptions(opts)
	return &Source[T]{
		Engine: stream.NewEngine[T](o.stream...),
		sub:    sub,
		topic:  topic,
		codec:  codec.JSON[T](),
		limit:  o.limit,
		logger: o.logger,
	}
}

// WithCodec replaces the payload codec and returns s.
func (s *Source[T]) WithCodec(c codec.Codec[T]) *Source[T] {
	if c != nil {
		s.codec = c
	}
	return s
}

// Topic returns the subscribed topic.
func (s *Source[T]) Topic() string {
	return s.topic
}

// Start consumes the topic.
func (s *Source[T]) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	msgs, err := s.sub.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}

	received := 0
	for s.limit <= 0 || received < s.limit {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				s.Complete()
				return nil
			}
			if err := s.handle(ctx, msg); err != nil {
				return err
			}
			received++
		}
	}
	s.Complete()
	return nil
}

func (s *Source[T]) handle(ctx context.Context, msg *message.Message) error {
	v, err := s.codec.Decode(msg.Payload)
	if err != nil {
		msg.Nack()
		return fmt.Errorf("decode message %s: %w", msg.UUID, err)
	}
	if err := s.Emit(ctx, stream.NewEvent(v)); err != nil {
		msg.Nack()
		return err
	}
	msg.Ack()
	s.logger.Debug("message consumed",
		slog.String("topic", s.topic),
		slog.String("uuid", msg.UUID),
	)
	return nil
}

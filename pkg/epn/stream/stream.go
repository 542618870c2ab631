package stream

import (
	"context"
	"math"
)

// Unbounded is the demand that never runs out. Requests saturate at this value.
const Unbounded int64 = math.MaxInt64

// Subscription is the handle a subscriber uses to control delivery.
type Subscription interface {
	// Request grants n more events. Request(0) is a no-op; a negative n
	// cancels the subscription and signals ErrNegativeDemand.
	Request(n int64)

	// Cancel removes the subscription. No further events are delivered.
	Cancel()
}

// Subscriber consumes events from a Publisher.
type Subscriber[T any] interface {
	// OnSubscribe is called once per Subscribe with the new subscription.
	OnSubscribe(s Subscription)

	// OnNext receives one event. A returned error stops the current
	// emission and is returned to the emitter.
	OnNext(ctx context.Context, e Event[T]) error

	// OnError receives an upstream failure signal.
	OnError(err error)

	// OnComplete is called once the upstream will emit nothing more.
	OnComplete()
}

// Publisher emits events to its subscribers.
type Publisher[T any] interface {
	Subscribe(s Subscriber[T])
}

// Processor is both a Subscriber of I and a Publisher of O.
type Processor[I, O any] interface {
	Subscriber[I]
	Publisher[O]
}

// Source is a Publisher that produces events when started.
type Source[T any] interface {
	Publisher[T]

	// Start emits the source's events synchronously and returns when done.
	Start(ctx context.Context) error
}

// Failer is implemented by publishers that can signal a failure downstream.
type Failer interface {
	Fail(err error)
}

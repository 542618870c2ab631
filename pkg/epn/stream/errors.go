package stream

import "errors"

// Protocol errors.
var (
	// ErrNegativeDemand is signalled to a subscriber that requested a
	// negative amount. The subscription is cancelled.
	ErrNegativeDemand = errors.New("stream: negative demand requested")

	// ErrTerminated is returned by Emit after the engine completed or failed.
	ErrTerminated = errors.New("stream: emit after terminal signal")

	// ErrAlreadySubscribed is signalled to an upstream that subscribes a
	// single-input operator a second time.
	ErrAlreadySubscribed = errors.New("stream: operator already has an upstream")
)

// ErrUnknownOutlet is returned when a selector yields an undefined Outlet.
var ErrUnknownOutlet = errors.New("stream: selector returned unknown outlet")

// Package stream implements the demand-tracking publish/subscribe engine that
// every node of an event processing network is built on, together with the
// standard operators, sources and sinks.
//
// # Protocol
//
// A Publisher delivers Events to registered Subscribers. On Subscribe the
// publisher hands the subscriber a Subscription through OnSubscribe; the
// subscriber grants demand with Subscription.Request and withdraws with
// Subscription.Cancel. Each delivered event consumes one unit of demand.
//
// # Delivery policy
//
// By default an Engine drops an event for every subscriber whose demand is
// zero at emission time (DropOnNoDemand). The event is neither buffered nor
// retried. BufferOnNoDemand queues such events per subscription and delivers
// them as demand arrives.
//
// # Operators
//
// Filter, Transform and FanOut pull one event at a time from upstream:
// they request 1 on subscribe and 1 more after handling each event. FanIn
// pairs the events of two inputs positionally.
//
//	src := stream.NewRangeSource(0, 100)
//	evens := stream.NewFilter(func(i int) bool { return i%2 == 0 })
//	sink := stream.NewCollectSink[int]()
//	src.Subscribe(evens)
//	evens.Subscribe(sink)
//	_ = src.Start(ctx)
//
// # Failures
//
// Errors returned from OnNext propagate synchronously to the caller of
// Emit and, ultimately, to the caller of a source's Start. Upstream failure
// signals (OnError) are forwarded downstream by every operator unless
// WithIgnoreFailures is set.
package stream

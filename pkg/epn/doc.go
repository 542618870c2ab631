// Package epn builds and runs in-process event processing networks.
//
// A Network is a static DAG of nodes connected through the demand-tracking
// publish/subscribe protocol of package stream. The builder wires every
// subscription at construction time and records parent edges for
// introspection; Start drives every root source, which pushes events
// synchronously through the chain to the sinks.
//
// # Building
//
//	n := epn.Named("numbers")
//	evens := stream.NewCollectSink[int]()
//	epn.FromSource(n, stream.NewRangeSource(0, 100)).
//	    Filter(func(i int) bool { return i%2 == 0 }).
//	    Filter(func(i int) bool { return i < 12 }).
//	    ConsumedBy(evens)
//
//	if err := n.Start(ctx); err != nil {
//	    return err
//	}
//	// evens.Values() == [0 2 4 6 8 10]
//
// Type-preserving steps are methods on Flow; steps that change the element
// type are functions: Transform, Map, TryMap, ProcessedBy, Join, JoinWith.
//
// # Fan-out and fan-in
//
// Split, SplitBy and SplitWith create a fan-out with two branches. The
// branches are taken in order, Top then Bottom; each either ends in
// ConsumedBy or stays open to be merged again with Join or JoinWith:
//
//	s := epn.FromSource(n, src).SplitBy(isEven)
//	s.Top().Filter(small).ConsumedBy(a)
//	s.Bottom().Filter(large).ConsumedBy(b)
//
//	j := epn.FromSource(n, src2).Split()
//	j.Top().Filter(small)
//	j.Bottom().Filter(large)
//	j.JoinWith(sum).ConsumedBy(c)
//
// The order of continuations is checked while building. Misuse (a second
// Top, Bottom before Top, joining a consumed branch, joining flows of two
// networks, continuing the same flow twice) is recorded on the Network and
// makes the affected flow inert. Validate reports recorded misuse together
// with every outlet that nothing consumes; Start refuses to run an invalid
// network.
//
// # Failures
//
// Errors returned by user functions reach the caller of Start, wrapped in a
// *RootError naming the root that was being driven; panics are recovered
// into a *PanicError. Under the default PropagateFailures policy the failed
// root also signals the error downstream, so sinks observe it through
// OnError. IgnoreFailures keeps the graph untouched.
//
// # Introspection
//
// Roots, Sinks, Nodes, Walk and Graph expose the parent-edge graph for
// renderers such as package visualize.
package epn

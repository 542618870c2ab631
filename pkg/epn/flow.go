package epn

import (
	"github.com/csadilek/epn/pkg/epn/stream"
)

// Stage is the construction state of a flow.
type Stage int

const (
	// StageSource is a linear chain from a root, outside any split.
	StageSource Stage = iota
	// StageTopBranch is inside the top branch of a split.
	StageTopBranch
	// StageBottomBranch is inside the bottom branch of a split.
	StageBottomBranch
	// StageJoined follows a join.
	StageJoined
	// StageTerminal is a flow consumed by a sink.
	StageTerminal
)

func (s Stage) String() string {
	switch s {
	case StageSource:
		return "source"
	case StageTopBranch:
		return "top"
	case StageBottomBranch:
		return "bottom"
	case StageJoined:
		return "joined"
	case StageTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Flow is the open end of a chain of T events under construction.
//
// Every builder call continues a flow exactly once and returns the next
// flow. A flow that was already continued, or that carries a recorded
// error, is inert: further calls build nothing and return inert flows, so a
// chain never panics on misuse. Validate and Start report the error.
type Flow[T any] struct {
	net    *Network
	node   *Node
	port   Port
	pub    stream.Publisher[T]
	stage  Stage
	branch *branch
	used   bool
	err    error
}

// FromSource registers src as a root of n and returns the flow of its events.
// It panics if n or src is nil.
func FromSource[T any](n *Network, src stream.Source[T], opts ...NodeOption) *Flow[T] {
	if n == nil {
		panic("epn: nil network")
	}
	if src == nil {
		panic("epn: nil source")
	}

	nc := newNodeConfig(opts)
	if nc.name == "" {
		if named, ok := src.(interface{ Name() string }); ok {
			nc.name = named.Name()
		}
	}
	node := n.addNode(KindSource, nc)

	r := &root{node: node, start: src.Start}
	if f, ok := src.(stream.Failer); ok {
		r.fail = f.Fail
	}
	n.addRoot(r)

	return &Flow[T]{net: n, node: node, port: PortOut, pub: src, stage: StageSource}
}

// Network returns the network the flow belongs to.
func (f *Flow[T]) Network() *Network { return f.net }

// Stage returns the construction state.
func (f *Flow[T]) Stage() Stage { return f.stage }

// Node returns the node whose outlet this flow continues, nil for an inert
// flow that never had one.
func (f *Flow[T]) Node() *Node { return f.node }

// Err returns the error that made the flow inert, or nil.
func (f *Flow[T]) Err() error { return f.err }

// Filter continues with the events satisfying pred.
// It panics if pred is nil.
func (f *Flow[T]) Filter(pred func(T) bool, opts ...NodeOption) *Flow[T] {
	if pred == nil {
		panic("epn: nil filter predicate")
	}
	return attach(f, "filter", KindFilter, opts, func(so []stream.Option) stream.Processor[T, T] {
		return stream.NewFilter(pred, so...)
	})
}

// ConsumedBy terminates the flow with sink and returns the network.
// It panics if sink is nil.
func (f *Flow[T]) ConsumedBy(sink stream.Subscriber[T], opts ...NodeOption) *Network {
	if sink == nil {
		panic("epn: nil sink")
	}
	if !f.claim("consumedBy") {
		return f.net
	}

	node := f.net.addNode(KindSink, newNodeConfig(opts), edge{node: f.node.id, port: f.port})
	f.pub.Subscribe(sink)
	f.net.addSink(node)
	f.stage = StageTerminal
	f.branch.close()
	return f.net
}

// Split enters a broadcast fan-out: both branches see every event.
func (f *Flow[T]) Split(opts ...NodeOption) *Split[T] {
	return newSplit(f, nil, opts)
}

// SplitBy enters a routing fan-out: events satisfying pred go to the top
// branch, the others to the bottom branch. It panics if pred is nil.
func (f *Flow[T]) SplitBy(pred func(T) bool, opts ...NodeOption) *Split[T] {
	if pred == nil {
		panic("epn: nil split predicate")
	}
	return newSplit(f, stream.PredicateSelector(pred), opts)
}

// SplitWith enters a routing fan-out driven by sel. It panics if sel is nil.
func (f *Flow[T]) SplitWith(sel stream.Selector[T], opts ...NodeOption) *Split[T] {
	if sel == nil {
		panic("epn: nil split selector")
	}
	return newSplit(f, sel, opts)
}

// Transform continues with fn applied to every event.
// It panics if f or fn is nil.
func Transform[I, O any](f *Flow[I], fn func(stream.Event[I]) stream.Event[O], opts ...NodeOption) *Flow[O] {
	if fn == nil {
		panic("epn: nil transform function")
	}
	return attach(f, "transform", KindTransform, opts, func(so []stream.Option) stream.Processor[I, O] {
		return stream.NewTransform(fn, so...)
	})
}

// Map continues with fn applied to every payload.
// It panics if f or fn is nil.
func Map[I, O any](f *Flow[I], fn func(I) O, opts ...NodeOption) *Flow[O] {
	if fn == nil {
		panic("epn: nil transform function")
	}
	return attach(f, "transform", KindTransform, opts, func(so []stream.Option) stream.Processor[I, O] {
		return stream.NewMap(fn, so...)
	})
}

// TryMap continues with fn applied to every payload. An error from fn stops
// the root that emitted the event; Start returns it.
func TryMap[I, O any](f *Flow[I], fn func(I) (O, error), opts ...NodeOption) *Flow[O] {
	if fn == nil {
		panic("epn: nil transform function")
	}
	return attach(f, "transform", KindTransform, opts, func(so []stream.Option) stream.Processor[I, O] {
		return stream.NewTryMap(fn, so...)
	})
}

// ProcessedBy continues through a user-supplied processor.
// It panics if f or p is nil.
func ProcessedBy[I, O any](f *Flow[I], p stream.Processor[I, O], opts ...NodeOption) *Flow[O] {
	if p == nil {
		panic("epn: nil processor")
	}
	return attach(f, "processedBy", KindProcessor, opts, func([]stream.Option) stream.Processor[I, O] {
		return p
	})
}

// Join merges two flows of the same network by pairing their events
// positionally and emitting both elements of each pair, top first.
// The result continues top's branch.
func Join[T any](top, bottom *Flow[T], opts ...NodeOption) *Flow[T] {
	return join(top, bottom, nil, opts)
}

// JoinWith merges two flows of the same network and emits fn(top, bottom)
// for every positional pair. It panics if fn is nil.
func JoinWith[T any](top, bottom *Flow[T], fn func(top, bottom T) T, opts ...NodeOption) *Flow[T] {
	if fn == nil {
		panic("epn: nil combiner")
	}
	return join(top, bottom, fn, opts)
}

func join[T any](top, bottom *Flow[T], fn func(T, T) T, opts []NodeOption) *Flow[T] {
	if top == nil || bottom == nil {
		panic("epn: nil flow")
	}
	if top.net != bottom.net {
		err := &NodeError{Op: "join", Err: ErrForeignNode}
		top.net.record(err)
		bottom.net.record(err)
		return inert[T](top.net, top.stage, err)
	}
	if top == bottom {
		err := &NodeError{Op: "join", Err: ErrStageReused}
		top.net.record(err)
		return inert[T](top.net, top.stage, err)
	}
	if err := firstErr(top.err, bottom.err); err != nil {
		return inert[T](top.net, top.stage, err)
	}
	if !top.claim("join") || !bottom.claim("join") {
		return inert[T](top.net, top.stage, ErrStageReused)
	}

	n := top.net
	nc := newNodeConfig(opts)
	node := n.addNode(KindJoin, nc,
		edge{node: top.node.id, port: top.port},
		edge{node: bottom.node.id, port: bottom.port},
	)

	var fanIn *stream.FanIn[T]
	if fn != nil {
		fanIn = stream.NewCombiner(fn, n.streamOptions(node, nc)...)
	} else {
		fanIn = stream.NewJoin[T](n.streamOptions(node, nc)...)
	}
	top.pub.Subscribe(fanIn.TopInput())
	bottom.pub.Subscribe(fanIn.BottomInput())

	next := &Flow[T]{
		net:    n,
		node:   node,
		port:   PortOut,
		pub:    fanIn,
		stage:  StageJoined,
		branch: top.branch,
	}
	if bottom.branch != top.branch {
		bottom.branch.close()
	}
	top.branch.advance(next)
	return next
}

// attach continues f through the processor returned by build.
func attach[I, O any](f *Flow[I], op string, kind Kind, opts []NodeOption, build func([]stream.Option) stream.Processor[I, O]) *Flow[O] {
	if f == nil {
		panic("epn: nil flow")
	}
	if !f.claim(op) {
		return inert[O](f.net, f.stage, f.errOr(ErrStageReused))
	}

	nc := newNodeConfig(opts)
	node := f.net.addNode(kind, nc, edge{node: f.node.id, port: f.port})
	p := build(f.net.streamOptions(node, nc))
	f.pub.Subscribe(p)

	next := &Flow[O]{
		net:    f.net,
		node:   node,
		port:   PortOut,
		pub:    p,
		stage:  f.stage,
		branch: f.branch,
	}
	f.branch.advance(next)
	return next
}

// claim marks f as continued. It returns false, recording ErrStageReused if
// needed, when f cannot be continued.
func (f *Flow[T]) claim(op string) bool {
	if f.err != nil {
		return false
	}
	if f.used {
		f.net.record(&NodeError{Node: f.node.Label(), Op: op, Err: ErrStageReused})
		return false
	}
	f.used = true
	return true
}

func (f *Flow[T]) errOr(fallback error) error {
	if f.err != nil {
		return f.err
	}
	return fallback
}

func inert[T any](n *Network, stage Stage, err error) *Flow[T] {
	return &Flow[T]{net: n, stage: stage, err: err}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

package epn

import (
	"fmt"

	"github.com/csadilek/epn/pkg/epn/stream"
)

// branch tracks the open tail of one split branch, so that the branch can
// later be joined back. tail holds a *Flow of the branch's current element
// type, or nil once the branch was consumed or ends in a nested split.
type branch struct {
	tail   any
	closed bool
}

func (b *branch) advance(tail any) {
	if b == nil {
		return
	}
	b.tail = tail
	b.closed = tail == nil
}

func (b *branch) close() {
	b.advance(nil)
}

type splitState int

const (
	splitOpen splitState = iota
	splitTopTaken
	splitBottomTaken
	splitJoined
)

// Split is a fan-out under construction. Its continuations must be taken in
// order: Top, then Bottom, then optionally Join or JoinWith to merge the two
// open branch tails back into one flow.
//
//	s := epn.FromSource(n, src).SplitBy(isEven)
//	s.Top().Filter(small).ConsumedBy(evens)
//	s.Bottom().Filter(large).ConsumedBy(odds)
type Split[T any] struct {
	net    *Network
	node   *Node
	fan    *stream.FanOut[T]
	parent *branch
	stage  Stage
	top    *branch
	bottom *branch
	state  splitState
	err    error
}

func newSplit[T any](f *Flow[T], sel stream.Selector[T], opts []NodeOption) *Split[T] {
	if f == nil {
		panic("epn: nil flow")
	}
	if !f.claim("split") {
		return &Split[T]{net: f.net, stage: f.stage, err: f.errOr(ErrStageReused)}
	}

	nc := newNodeConfig(opts)
	node := f.net.addNode(KindSplit, nc, edge{node: f.node.id, port: f.port})
	so := f.net.streamOptions(node, nc)

	var fan *stream.FanOut[T]
	if sel == nil {
		fan = stream.NewBroadcast[T](so...)
	} else {
		fan = stream.NewRouter(sel, so...)
	}
	f.pub.Subscribe(fan)
	f.branch.advance(nil)

	return &Split[T]{
		net:    f.net,
		node:   node,
		fan:    fan,
		parent: f.branch,
		stage:  f.stage,
		top:    &branch{},
		bottom: &branch{},
	}
}

// Node returns the split node, nil for an inert split.
func (s *Split[T]) Node() *Node { return s.node }

// Err returns the error that made the split inert, or nil.
func (s *Split[T]) Err() error { return s.err }

// Top returns the flow of the top outlet. It must be the first continuation
// taken.
func (s *Split[T]) Top() *Flow[T] {
	if s.err != nil {
		return inert[T](s.net, StageTopBranch, s.err)
	}
	if s.state != splitOpen {
		return s.invalid("top", StageTopBranch, "top branch already taken")
	}
	s.state = splitTopTaken

	f := &Flow[T]{
		net:    s.net,
		node:   s.node,
		port:   PortTop,
		pub:    s.fan.Top(),
		stage:  StageTopBranch,
		branch: s.top,
	}
	s.top.advance(f)
	return f
}

// Bottom returns the flow of the bottom outlet. It is available once Top
// was taken.
func (s *Split[T]) Bottom() *Flow[T] {
	if s.err != nil {
		return inert[T](s.net, StageBottomBranch, s.err)
	}
	switch s.state {
	case splitOpen:
		return s.invalid("bottom", StageBottomBranch, "bottom taken before top")
	case splitTopTaken:
	default:
		return s.invalid("bottom", StageBottomBranch, "bottom branch already taken")
	}
	s.state = splitBottomTaken

	f := &Flow[T]{
		net:    s.net,
		node:   s.node,
		port:   PortBottom,
		pub:    s.fan.Bottom(),
		stage:  StageBottomBranch,
		branch: s.bottom,
	}
	s.bottom.advance(f)
	return f
}

// Join merges the open tails of both branches, emitting both elements of
// every positional pair, top first. The result continues the flow that was
// split.
func (s *Split[T]) Join(opts ...NodeOption) *Flow[T] {
	return s.join(nil, opts)
}

// JoinWith merges the open tails of both branches and emits fn(top, bottom)
// for every positional pair. It panics if fn is nil.
func (s *Split[T]) JoinWith(fn func(top, bottom T) T, opts ...NodeOption) *Flow[T] {
	if fn == nil {
		panic("epn: nil combiner")
	}
	return s.join(fn, opts)
}

func (s *Split[T]) join(fn func(T, T) T, opts []NodeOption) *Flow[T] {
	if s.err != nil {
		return inert[T](s.net, StageJoined, s.err)
	}
	if s.state != splitBottomTaken {
		return s.invalid("join", StageJoined, "join requires both branches")
	}

	top, err := s.tail(s.top, "top")
	if err != nil {
		return s.fail(err)
	}
	bottom, err := s.tail(s.bottom, "bottom")
	if err != nil {
		return s.fail(err)
	}
	s.state = splitJoined

	next := join(top, bottom, fn, opts)
	if next.err != nil {
		return next
	}
	s.top.close()
	next.branch = s.parent
	s.parent.advance(next)
	return next
}

// tail returns the open end of b as a *Flow[T].
func (s *Split[T]) tail(b *branch, side string) (*Flow[T], error) {
	if b.closed || b.tail == nil {
		return nil, &NodeError{Node: s.node.Label(), Op: "join",
			Err: fmt.Errorf("%w: %s branch has no open tail", ErrBranchConsumed, side)}
	}
	f, ok := b.tail.(*Flow[T])
	if !ok {
		return nil, &NodeError{Node: s.node.Label(), Op: "join",
			Err: fmt.Errorf("%w: %s branch carries %T, want %T", ErrBranchType, side, b.tail, f)}
	}
	return f, nil
}

func (s *Split[T]) invalid(op string, stage Stage, detail string) *Flow[T] {
	err := &NodeError{Node: s.node.Label(), Op: op,
		Err: fmt.Errorf("%w: %s", ErrInvalidTransition, detail)}
	s.net.record(err)
	return inert[T](s.net, stage, err)
}

func (s *Split[T]) fail(err error) *Flow[T] {
	s.net.record(err)
	return inert[T](s.net, StageJoined, err)
}

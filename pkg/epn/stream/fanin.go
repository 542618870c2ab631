package stream

import (
	"context"
	"sync"
	"sync/atomic"
)

type side int

const (
	sideTop side = iota
	sideBottom
)

// FanIn merges two inputs by pairing their events positionally: the n-th
// event received on the top input is paired with the n-th event received on
// the bottom input, regardless of timing. A join emits each pair as two
// events, top first; a combiner emits the combined value.
//
// Each input pulls one event at a time and queues its payload without
// bound until the other side catches up.
type FanIn[T any] struct {
	*Engine[T]
	combine func(top, bottom T) T

	topIn    *joinInput[T]
	bottomIn *joinInput[T]

	mu        sync.Mutex
	topQ      []T
	bottomQ   []T
	completed int

	failed atomic.Bool
}

// NewJoin creates a fan-in that emits both elements of every pair.
func NewJoin[T any](opts ...Option) *FanIn[T] {
	return newFanIn[T](nil, opts)
}

// NewCombiner creates a fan-in that emits fn(top, bottom) for every pair.
// It panics if fn is nil.
func NewCombiner[T any](fn func(top, bottom T) T, opts ...Option) *FanIn[T] {
	if fn == nil {
		panic("stream: nil combiner")
	}
	return newFanIn(fn, opts)
}

func newFanIn[T any](fn func(T, T) T, opts []Option) *FanIn[T] {
	j := &FanIn[T]{
		Engine:  NewEngine[T](opts...),
		combine: fn,
	}
	j.topIn = &joinInput[T]{join: j, side: sideTop}
	j.bottomIn = &joinInput[T]{join: j, side: sideBottom}
	return j
}

// TopInput returns the subscriber for the top branch.
func (j *FanIn[T]) TopInput() Subscriber[T] { return j.topIn }

// BottomInput returns the subscriber for the bottom branch.
func (j *FanIn[T]) BottomInput() Subscriber[T] { return j.bottomIn }

// Combining reports whether j was created with a combiner.
func (j *FanIn[T]) Combining() bool { return j.combine != nil }

// Pending returns the number of unpaired payloads queued on each side.
func (j *FanIn[T]) Pending() (top, bottom int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.topQ), len(j.bottomQ)
}

// enqueue queues v and emits every pair that became complete, in pair order.
// The queues stay locked while pairs are emitted so that concurrent inputs
// cannot reorder the output.
func (j *FanIn[T]) enqueue(ctx context.Context, s side, v T) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if s == sideTop {
		j.topQ = append(j.topQ, v)
	} else {
		j.bottomQ = append(j.bottomQ, v)
	}

	for len(j.topQ) > 0 && len(j.bottomQ) > 0 {
		top, bottom := j.topQ[0], j.bottomQ[0]
		var zero T
		j.topQ[0], j.bottomQ[0] = zero, zero
		j.topQ, j.bottomQ = j.topQ[1:], j.bottomQ[1:]

		if j.combine != nil {
			if err := j.Emit(ctx, NewEvent(j.combine(top, bottom))); err != nil {
				return err
			}
			continue
		}
		if err := j.Emit(ctx, NewEvent(top)); err != nil {
			return err
		}
		if err := j.Emit(ctx, NewEvent(bottom)); err != nil {
			return err
		}
	}
	return nil
}

// inputCompleted completes the output once both inputs completed.
func (j *FanIn[T]) inputCompleted() {
	j.mu.Lock()
	j.completed++
	both := j.completed == 2
	j.mu.Unlock()

	if both {
		j.Complete()
	}
}

// inputFailed forwards the first failure of either input.
func (j *FanIn[T]) inputFailed(err error) {
	if !j.failed.CompareAndSwap(false, true) {
		return
	}
	j.upstreamFailed(err)
}

// Cancel detaches both inputs from their upstreams.
func (j *FanIn[T]) Cancel() {
	j.topIn.in.cancel()
	j.bottomIn.in.cancel()
}

// joinInput is one side of a FanIn.
type joinInput[T any] struct {
	join *FanIn[T]
	side side
	in   inlet
	done atomic.Bool
}

func (p *joinInput[T]) OnSubscribe(s Subscription) {
	p.in.attach(s, p.join.cfg.logger, p.join.cfg.name)
}

func (p *joinInput[T]) OnNext(ctx context.Context, e Event[T]) error {
	if err := p.join.enqueue(ctx, p.side, e.Value()); err != nil {
		return err
	}
	p.in.next()
	return nil
}

func (p *joinInput[T]) OnError(err error) {
	p.join.inputFailed(err)
}

func (p *joinInput[T]) OnComplete() {
	if p.done.CompareAndSwap(false, true) {
		p.join.inputCompleted()
	}
}

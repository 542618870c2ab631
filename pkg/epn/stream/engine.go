package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/csadilek/epn/pkg/epn/observability"
)

// Engine registers subscribers and delivers events subject to their demand.
//
// Engine is safe for concurrent use: Subscribe, Emit, Complete, Fail and the
// Request/Cancel calls of its subscriptions may run on any goroutine. An
// Emit iterates a snapshot of the registry; subscriptions added during the
// iteration are not visited and subscriptions cancelled during it are skipped.
type Engine[T any] struct {
	cfg config

	mu       sync.RWMutex
	subs     []*subscription[T] // copy-on-remove; append-only otherwise
	terminal bool
	failure  error

	delivered atomic.Int64
	dropped   atomic.Int64
}

// NewEngine creates an engine with no subscribers.
func NewEngine[T any](opts ...Option) *Engine[T] {
	return newEngine[T](newConfig(opts))
}

func newEngine[T any](cfg config) *Engine[T] {
	return &Engine[T]{cfg: cfg}
}

// Name returns the node name given with WithName.
func (e *Engine[T]) Name() string {
	return e.cfg.name
}

// Policy returns the no-demand delivery policy.
func (e *Engine[T]) Policy() Policy {
	return e.cfg.policy
}

// Subscribe registers s with zero demand and calls s.OnSubscribe.
// Every call creates a new subscription, even for a subscriber that is
// already registered. Subscribing to a terminated engine immediately
// delivers the terminal signal after OnSubscribe.
func (e *Engine[T]) Subscribe(s Subscriber[T]) {
	if s == nil {
		panic("stream: nil subscriber")
	}
	sub := &subscription[T]{engine: e, subscriber: s}

	e.mu.Lock()
	terminal, failure := e.terminal, e.failure
	if !terminal {
		e.subs = append(e.subs, sub)
	}
	e.mu.Unlock()

	s.OnSubscribe(sub)
	if terminal {
		sub.signal(failure)
	}
}

// Subscribers returns the number of registered subscriptions.
func (e *Engine[T]) Subscribers() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subs)
}

// Delivered returns the number of events handed to subscribers.
func (e *Engine[T]) Delivered() int64 {
	return e.delivered.Load()
}

// Dropped returns the number of (event, subscriber) deliveries skipped for
// lack of demand.
func (e *Engine[T]) Dropped() int64 {
	return e.dropped.Load()
}

// Emit offers ev to every registered subscriber. A subscriber with demand
// receives it and loses one unit of demand; one without demand has the event
// dropped or queued depending on the policy.
//
// The first error returned by a subscriber's OnNext stops the emission and
// is returned unchanged.
func (e *Engine[T]) Emit(ctx context.Context, ev Event[T]) error {
	e.mu.RLock()
	if e.terminal {
		e.mu.RUnlock()
		return ErrTerminated
	}
	subs := e.subs
	e.mu.RUnlock()

	for _, s := range subs {
		if s.cancelled.Load() {
			continue
		}
		if e.cfg.policy == BufferOnNoDemand {
			if err := s.enqueue(ctx, ev); err != nil {
				return err
			}
			continue
		}
		if !s.take() {
			e.drop(ctx, ev)
			continue
		}
		if err := e.deliver(ctx, s, ev); err != nil {
			return err
		}
	}
	return nil
}

// Complete signals OnComplete to every subscriber and detaches them.
// Later calls to Complete or Fail are ignored.
func (e *Engine[T]) Complete() {
	e.terminate(nil)
}

// Fail signals err to every subscriber and detaches them.
// A nil err is ignored.
func (e *Engine[T]) Fail(err error) {
	if err == nil {
		return
	}
	e.terminate(err)
}

func (e *Engine[T]) terminate(err error) {
	e.mu.Lock()
	if e.terminal {
		e.mu.Unlock()
		return
	}
	e.terminal = true
	e.failure = err
	subs := e.subs
	e.subs = nil
	e.mu.Unlock()

	for _, s := range subs {
		s.signal(err)
	}
}

// upstreamFailed applies the failure policy of an operator built on e.
func (e *Engine[T]) upstreamFailed(err error) {
	observability.LogFailure(e.cfg.logger, e.cfg.name, err)
	if e.cfg.ignoreFailures {
		return
	}
	e.Fail(err)
}

func (e *Engine[T]) deliver(ctx context.Context, s *subscription[T], ev Event[T]) error {
	e.delivered.Add(1)
	e.cfg.metrics.RecordDelivery(ctx, e.cfg.name)
	return s.subscriber.OnNext(ctx, ev)
}

func (e *Engine[T]) drop(ctx context.Context, ev Event[T]) {
	e.dropped.Add(1)
	e.cfg.metrics.RecordDrop(ctx, e.cfg.name)
	observability.LogDrop(e.cfg.logger, e.cfg.name, ev.Value())
	if e.cfg.onDrop != nil {
		e.cfg.onDrop(e.cfg.name, ev.Value())
	}
}

func (e *Engine[T]) remove(target *subscription[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := make([]*subscription[T], 0, len(e.subs))
	for _, s := range e.subs {
		if s != target {
			kept = append(kept, s)
		}
	}
	e.subs = kept
}

// pending is an event queued under BufferOnNoDemand.
type pending[T any] struct {
	ctx   context.Context
	event Event[T]
}

// subscription is the per-(engine, subscriber) demand record.
type subscription[T any] struct {
	engine     *Engine[T]
	subscriber Subscriber[T]

	demand    atomic.Int64
	cancelled atomic.Bool
	done      atomic.Bool // terminal signal delivered

	mu         sync.Mutex
	queue      []pending[T]
	completing bool
	draining   bool
}

func (s *subscription[T]) Request(n int64) {
	if n == 0 {
		return
	}
	if n < 0 {
		s.fault(fmt.Errorf("%w: %d", ErrNegativeDemand, n))
		return
	}
	if s.cancelled.Load() {
		return
	}
	for {
		d := s.demand.Load()
		next := d + n
		if next < d || d == Unbounded {
			next = Unbounded
		}
		if s.demand.CompareAndSwap(d, next) {
			break
		}
	}
	if s.engine.cfg.policy == BufferOnNoDemand {
		if err := s.drain(); err != nil {
			s.fault(err)
		}
	}
}

func (s *subscription[T]) Cancel() {
	if !s.cancelled.CompareAndSwap(false, true) {
		return
	}
	s.engine.remove(s)

	s.mu.Lock()
	s.queue = nil
	s.mu.Unlock()
}

// take consumes one unit of demand. Unbounded demand is never consumed.
func (s *subscription[T]) take() bool {
	for {
		d := s.demand.Load()
		if d <= 0 {
			return false
		}
		if d == Unbounded {
			return true
		}
		if s.demand.CompareAndSwap(d, d-1) {
			return true
		}
	}
}

func (s *subscription[T]) enqueue(ctx context.Context, ev Event[T]) error {
	s.mu.Lock()
	s.queue = append(s.queue, pending[T]{ctx: ctx, event: ev})
	s.mu.Unlock()
	return s.drain()
}

// drain delivers queued events while demand lasts, then a pending completion
// once the queue is empty. Only one goroutine drains at a time; a call that
// finds a drain in progress returns and leaves the work to it.
func (s *subscription[T]) drain() error {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return nil
	}
	s.draining = true

	// Subscriber callbacks run unlocked; a panic escaping one must not leave
	// the subscription marked as draining.
	defer func() {
		if v := recover(); v != nil {
			s.mu.Lock()
			s.draining = false
			s.mu.Unlock()
			panic(v)
		}
	}()

	var err error
	for err == nil {
		if s.cancelled.Load() {
			s.queue = nil
			break
		}
		if len(s.queue) == 0 {
			if s.completing {
				s.completing = false
				s.mu.Unlock()
				s.finish(nil)
				s.mu.Lock()
			}
			break
		}
		if !s.take() {
			break
		}
		next := s.queue[0]
		s.queue[0] = pending[T]{}
		s.queue = s.queue[1:]

		s.mu.Unlock()
		err = s.engine.deliver(next.ctx, s, next.event)
		s.mu.Lock()
	}
	s.draining = false
	s.mu.Unlock()
	return err
}

// signal delivers a terminal signal. Completion waits for queued events;
// failure discards them.
func (s *subscription[T]) signal(err error) {
	if err != nil {
		s.mu.Lock()
		s.queue = nil
		s.mu.Unlock()
		s.finish(err)
		return
	}

	s.mu.Lock()
	s.completing = true
	s.mu.Unlock()
	if drainErr := s.drain(); drainErr != nil {
		s.fault(drainErr)
	}
}

func (s *subscription[T]) finish(err error) {
	if s.cancelled.Load() || !s.done.CompareAndSwap(false, true) {
		return
	}
	if err != nil {
		s.subscriber.OnError(err)
		return
	}
	s.subscriber.OnComplete()
}

// fault cancels the subscription and reports err to its subscriber.
func (s *subscription[T]) fault(err error) {
	s.Cancel()
	if !s.done.CompareAndSwap(false, true) {
		return
	}
	s.engine.cfg.logger.Warn("subscription cancelled",
		slog.String("node", s.engine.cfg.name),
		slog.String("error", err.Error()),
	)
	s.subscriber.OnError(err)
}

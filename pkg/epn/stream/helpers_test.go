package stream

import (
	"context"
	"sync"
)

// probe is a subscriber whose demand is driven by the test.
type probe[T any] struct {
	mu        sync.Mutex
	sub       Subscription
	values    []T
	errs      []error
	completes int
	onNext    func(p *probe[T], v T) error
}

func (p *probe[T]) OnSubscribe(s Subscription) {
	p.mu.Lock()
	p.sub = s
	p.mu.Unlock()
}

func (p *probe[T]) OnNext(_ context.Context, e Event[T]) error {
	p.mu.Lock()
	p.values = append(p.values, e.Value())
	hook := p.onNext
	p.mu.Unlock()
	if hook != nil {
		return hook(p, e.Value())
	}
	return nil
}

func (p *probe[T]) OnError(err error) {
	p.mu.Lock()
	p.errs = append(p.errs, err)
	p.mu.Unlock()
}

func (p *probe[T]) OnComplete() {
	p.mu.Lock()
	p.completes++
	p.mu.Unlock()
}

func (p *probe[T]) request(n int64) {
	p.mu.Lock()
	s := p.sub
	p.mu.Unlock()
	s.Request(n)
}

func (p *probe[T]) cancel() {
	p.mu.Lock()
	s := p.sub
	p.mu.Unlock()
	s.Cancel()
}

func (p *probe[T]) got() []T {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]T(nil), p.values...)
}

func (p *probe[T]) failures() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]error(nil), p.errs...)
}

func (p *probe[T]) completed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.completes
}

// demandMeter wraps an engine subscription and records the largest
// outstanding demand a downstream operator held at once.
type demandMeter struct {
	Subscription
	mu          sync.Mutex
	outstanding int64
	max         int64
}

func (m *demandMeter) Request(n int64) {
	m.mu.Lock()
	m.outstanding += n
	if m.outstanding > m.max {
		m.max = m.outstanding
	}
	m.mu.Unlock()
	m.Subscription.Request(n)
}

func (m *demandMeter) delivered() {
	m.mu.Lock()
	m.outstanding--
	m.mu.Unlock()
}

// metered sits between a publisher and a subscriber and counts demand.
type metered[T any] struct {
	next  Subscriber[T]
	meter *demandMeter
}

func (m *metered[T]) OnSubscribe(s Subscription) {
	m.meter = &demandMeter{Subscription: s}
	m.next.OnSubscribe(m.meter)
}

func (m *metered[T]) OnNext(ctx context.Context, e Event[T]) error {
	m.meter.delivered()
	return m.next.OnNext(ctx, e)
}

func (m *metered[T]) OnError(err error) { m.next.OnError(err) }

func (m *metered[T]) OnComplete() { m.next.OnComplete() }

func ints(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

package stream

import "context"

// Filter forwards the events that satisfy a predicate.
//
// Downstream demand is not consulted before emitting; the engine's
// no-demand policy applies to each subscriber.
type Filter[T any] struct {
	*Engine[T]
	in   inlet
	pred func(T) bool
}

var _ Processor[int, int] = (*Filter[int])(nil)

// NewFilter creates a filter. It panics if pred is nil.
func NewFilter[T any](pred func(T) bool, opts ...Option) *Filter[T] {
	if pred == nil {
		panic("stream: nil filter predicate")
	}
	return &Filter[T]{
		Engine: NewEngine[T](opts...),
		pred:   pred,
	}
}

func (f *Filter[T]) OnSubscribe(s Subscription) {
	f.in.attach(s, f.cfg.logger, f.cfg.name)
}

func (f *Filter[T]) OnNext(ctx context.Context, e Event[T]) error {
	if f.pred(e.Value()) {
		if err := f.Emit(ctx, e); err != nil {
			return err
		}
	}
	f.in.next()
	return nil
}

func (f *Filter[T]) OnError(err error) {
	f.upstreamFailed(err)
}

func (f *Filter[T]) OnComplete() {
	f.Complete()
}

// Cancel detaches the filter from its upstream.
func (f *Filter[T]) Cancel() {
	f.in.cancel()
}

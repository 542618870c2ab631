package stream

import "context"

// Transform applies a function to every event and emits the result.
type Transform[I, O any] struct {
	*Engine[O]
	in    inlet
	apply func(Event[I]) (Event[O], error)
}

var _ Processor[int, string] = (*Transform[int, string])(nil)

// NewTransform creates a transform over whole events. It panics if fn is nil.
func NewTransform[I, O any](fn func(Event[I]) Event[O], opts ...Option) *Transform[I, O] {
	if fn == nil {
		panic("stream: nil transform function")
	}
	return newTransform(func(e Event[I]) (Event[O], error) {
		return fn(e), nil
	}, opts)
}

// NewMap creates a transform over payloads. It panics if fn is nil.
func NewMap[I, O any](fn func(I) O, opts ...Option) *Transform[I, O] {
	if fn == nil {
		panic("stream: nil map function")
	}
	return newTransform(func(e Event[I]) (Event[O], error) {
		return NewEvent(fn(e.Value())), nil
	}, opts)
}

// NewTryMap creates a transform whose function may fail. A returned error
// is returned from OnNext and so reaches the caller that started the source.
func NewTryMap[I, O any](fn func(I) (O, error), opts ...Option) *Transform[I, O] {
	if fn == nil {
		panic("stream: nil map function")
	}
	return newTransform(func(e Event[I]) (Event[O], error) {
		v, err := fn(e.Value())
		if err != nil {
			return Event[O]{}, err
		}
		return NewEvent(v), nil
	}, opts)
}

func newTransform[I, O any](apply func(Event[I]) (Event[O], error), opts []Option) *Transform[I, O] {
	return &Transform[I, O]{
		Engine: NewEngine[O](opts...),
		apply:  apply,
	}
}

func (t *Transform[I, O]) OnSubscribe(s Subscription) {
	t.in.attach(s, t.cfg.logger, t.cfg.name)
}

func (t *Transform[I, O]) OnNext(ctx context.Context, e Event[I]) error {
	out, err := t.apply(e)
	if err != nil {
		return err
	}
	if err := t.Emit(ctx, out); err != nil {
		return err
	}
	t.in.next()
	return nil
}

func (t *Transform[I, O]) OnError(err error) {
	t.upstreamFailed(err)
}

func (t *Transform[I, O]) OnComplete() {
	t.Complete()
}

// Cancel detaches the transform from its upstream.
func (t *Transform[I, O]) Cancel() {
	t.in.cancel()
}

package stream

import (
	"context"
	"fmt"
)

// Outlet names the output(s) of a FanOut that receive an event.
type Outlet int

const (
	OutletTop Outlet = iota + 1
	OutletBottom
	OutletBoth
)

func (o Outlet) String() string {
	switch o {
	case OutletTop:
		return "top"
	case OutletBottom:
		return "bottom"
	case OutletBoth:
		return "both"
	default:
		return fmt.Sprintf("outlet(%d)", int(o))
	}
}

// Selector routes a payload to an outlet.
type Selector[T any] func(T) Outlet

// PredicateSelector routes payloads satisfying pred to the top outlet and
// all others to the bottom outlet.
func PredicateSelector[T any](pred func(T) bool) Selector[T] {
	if pred == nil {
		panic("stream: nil split predicate")
	}
	return func(v T) Outlet {
		if pred(v) {
			return OutletTop
		}
		return OutletBottom
	}
}

// FanOut consumes one upstream and publishes on two independent engines,
// top and bottom. A broadcast fan-out emits every event on both; a router
// emits each event on the outlet chosen by its selector.
type FanOut[T any] struct {
	cfg      config
	in       inlet
	top      *Engine[T]
	bottom   *Engine[T]
	selector Selector[T]
}

var _ Subscriber[int] = (*FanOut[int])(nil)

// NewBroadcast creates a fan-out that emits every event on both outlets.
func NewBroadcast[T any](opts ...Option) *FanOut[T] {
	return newFanOut[T](nil, opts)
}

// NewRouter creates a fan-out that emits each event on the outlet chosen by
// sel. It panics if sel is nil.
func NewRouter[T any](sel Selector[T], opts ...Option) *FanOut[T] {
	if sel == nil {
		panic("stream: nil split selector")
	}
	return newFanOut(sel, opts)
}

func newFanOut[T any](sel Selector[T], opts []Option) *FanOut[T] {
	cfg := newConfig(opts)
	topCfg, bottomCfg := cfg, cfg
	topCfg.name = cfg.name + "/top"
	bottomCfg.name = cfg.name + "/bottom"
	return &FanOut[T]{
		cfg:      cfg,
		top:      newEngine[T](topCfg),
		bottom:   newEngine[T](bottomCfg),
		selector: sel,
	}
}

// Top returns the top outlet.
func (f *FanOut[T]) Top() *Engine[T] { return f.top }

// Bottom returns the bottom outlet.
func (f *FanOut[T]) Bottom() *Engine[T] { return f.bottom }

// Broadcasting reports whether f emits every event on both outlets.
func (f *FanOut[T]) Broadcasting() bool { return f.selector == nil }

// Name returns the node name given with WithName.
func (f *FanOut[T]) Name() string { return f.cfg.name }

func (f *FanOut[T]) OnSubscribe(s Subscription) {
	f.in.attach(s, f.cfg.logger, f.cfg.name)
}

func (f *FanOut[T]) OnNext(ctx context.Context, e Event[T]) error {
	outlet := OutletBoth
	if f.selector != nil {
		outlet = f.selector(e.Value())
	}

	switch outlet {
	case OutletTop:
		if err := f.top.Emit(ctx, e); err != nil {
			return err
		}
	case OutletBottom:
		if err := f.bottom.Emit(ctx, e); err != nil {
			return err
		}
	case OutletBoth:
		if err := f.top.Emit(ctx, e); err != nil {
			return err
		}
		if err := f.bottom.Emit(ctx, e); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %v", ErrUnknownOutlet, outlet)
	}

	f.in.next()
	return nil
}

func (f *FanOut[T]) OnError(err error) {
	f.top.upstreamFailed(err)
	f.bottom.upstreamFailed(err)
}

func (f *FanOut[T]) OnComplete() {
	f.Complete()
}

// Complete completes both outlets.
func (f *FanOut[T]) Complete() {
	f.top.Complete()
	f.bottom.Complete()
}

// Fail signals err on both outlets.
func (f *FanOut[T]) Fail(err error) {
	f.top.Fail(err)
	f.bottom.Fail(err)
}

// Cancel detaches the fan-out from its upstream.
func (f *FanOut[T]) Cancel() {
	f.in.cancel()
}

package benchmarks

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/csadilek/epn/pkg/epn/stream"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// BenchmarkEmit_1 emits to one subscriber with unbounded demand.
func BenchmarkEmit_1(b *testing.B) {
	benchmarkEmit(b, 1)
}

// BenchmarkEmit_10 emits to ten subscribers with unbounded demand.
func BenchmarkEmit_10(b *testing.B) {
	benchmarkEmit(b, 10)
}

// BenchmarkEmit_100 emits to a hundred subscribers with unbounded demand.
func BenchmarkEmit_100(b *testing.B) {
	benchmarkEmit(b, 100)
}

// BenchmarkEmit_NoDemand measures the drop path.
func BenchmarkEmit_NoDemand(b *testing.B) {
	e := stream.NewEngine[int](stream.WithLogger(discard))
	e.Subscribe(stream.NewBoundedCollectSink[int](0))
	ctx := context.Background()
	ev := stream.NewEvent(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Emit(ctx, ev)
	}
}

// BenchmarkEmit_Buffered measures queueing with demand granted one at a time.
func BenchmarkEmit_Buffered(b *testing.B) {
	e := stream.NewEngine[int](stream.WithPolicy(stream.BufferOnNoDemand), stream.WithLogger(discard))
	sink := &countingSink{}
	e.Subscribe(sink)
	ctx := context.Background()
	ev := stream.NewEvent(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Emit(ctx, ev)
		sink.sub.Request(1)
	}
}

// BenchmarkRequest_Concurrent measures demand accounting under contention.
func BenchmarkRequest_Concurrent(b *testing.B) {
	e := stream.NewEngine[int](stream.WithLogger(discard))
	sink := &countingSink{}
	e.Subscribe(sink)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			sink.sub.Request(1)
		}
	})
}

func benchmarkEmit(b *testing.B, subscribers int) {
	e := stream.NewEngine[int](stream.WithLogger(discard))
	for j := 0; j < subscribers; j++ {
		s := &countingSink{}
		e.Subscribe(s)
		s.sub.Request(stream.Unbounded)
	}
	ctx := context.Background()
	ev := stream.NewEvent(1)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.Emit(ctx, ev)
	}
}

// countingSink counts events and leaves demand to the benchmark.
type countingSink struct {
	sub stream.Subscription
	n   int
}

func (s *countingSink) OnSubscribe(sub stream.Subscription) { s.sub = sub }

func (s *countingSink) OnNext(context.Context, stream.Event[int]) error {
	s.n++
	return nil
}

func (s *countingSink) OnError(error) {}

func (s *countingSink) OnComplete() {}

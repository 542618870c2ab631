package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

var _ MetricsRecorder = NoopMetrics{}

func (NoopMetrics) RecordDelivery(context.Context, string) {}

func (NoopMetrics) RecordDrop(context.Context, string) {}

func (NoopMetrics) RecordRootRun(context.Context, string, string, time.Duration, error) {}

func (NoopMetrics) RecordNetworkRun(context.Context, string, bool, time.Duration) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartNetworkSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartNetworkSpan(ctx context.Context, _ string, _ int) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartRootSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartRootSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(trace.Span, error) {}

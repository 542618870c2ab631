package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("epn")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartNetworkSpan starts a span covering one network start.
	StartNetworkSpan(ctx context.Context, network string, roots int) (context.Context, trace.Span)

	// StartRootSpan starts a child span for driving a single root.
	StartRootSpan(ctx context.Context, root string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager backed by the global OTel tracer provider.
func NewSpanManager() SpanManager {
	return otelSpanManager{}
}

func (otelSpanManager) StartNetworkSpan(ctx context.Context, network string, roots int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "epn.network",
		trace.WithAttributes(
			attribute.String("network.name", network),
			attribute.Int("network.roots", roots),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (otelSpanManager) StartRootSpan(ctx context.Context, root string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "epn.root."+root,
		trace.WithAttributes(
			attribute.String("root.name", root),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

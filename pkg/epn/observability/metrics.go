package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records network metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDelivery records one event handed to a subscriber.
	RecordDelivery(ctx context.Context, node string)

	// RecordDrop records one event discarded for lack of demand.
	RecordDrop(ctx context.Context, node string)

	// RecordRootRun records a root source run with its duration and error status.
	RecordRootRun(ctx context.Context, network, root string, duration time.Duration, err error)

	// RecordNetworkRun records a completed network start.
	RecordNetworkRun(ctx context.Context, network string, success bool, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	deliveries     metric.Int64Counter
	drops          metric.Int64Counter
	rootRuns       metric.Int64Counter
	rootLatency    metric.Float64Histogram
	rootErrors     metric.Int64Counter
	networkRuns    metric.Int64Counter
	networkLatency metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the shared OTel instruments.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("epn")

	deliveries, err := meter.Int64Counter("epn.events.delivered",
		metric.WithDescription("Number of events delivered to subscribers"),
	)
	if err != nil {
		return nil, err
	}

	drops, err := meter.Int64Counter("epn.events.dropped",
		metric.WithDescription("Number of events dropped for lack of demand"),
	)
	if err != nil {
		return nil, err
	}

	rootRuns, err := meter.Int64Counter("epn.root.runs",
		metric.WithDescription("Number of root source runs"),
	)
	if err != nil {
		return nil, err
	}

	rootLatency, err := meter.Float64Histogram("epn.root.latency_ms",
		metric.WithDescription("Root source run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	rootErrors, err := meter.Int64Counter("epn.root.errors",
		metric.WithDescription("Number of failed root source runs"),
	)
	if err != nil {
		return nil, err
	}

	networkRuns, err := meter.Int64Counter("epn.network.runs",
		metric.WithDescription("Number of network starts"),
	)
	if err != nil {
		return nil, err
	}

	networkLatency, err := meter.Float64Histogram("epn.network.latency_ms",
		metric.WithDescription("Network start latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		deliveries:     deliveries,
		drops:          drops,
		rootRuns:       rootRuns,
		rootLatency:    rootLatency,
		rootErrors:     rootErrors,
		networkRuns:    networkRuns,
		networkLatency: networkLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordDelivery(ctx context.Context, node string) {
	m.deliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("node", node)))
}

func (m *otelMetrics) RecordDrop(ctx context.Context, node string) {
	m.drops.Add(ctx, 1, metric.WithAttributes(attribute.String("node", node)))
}

func (m *otelMetrics) RecordRootRun(ctx context.Context, network, root string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("network", network),
		attribute.String("root", root),
	)
	m.rootRuns.Add(ctx, 1, attrs)
	m.rootLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	if err != nil {
		m.rootErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordNetworkRun(ctx context.Context, network string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("network", network),
		attribute.Bool("success", success),
	)
	m.networkRuns.Add(ctx, 1, attrs)
	m.networkLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

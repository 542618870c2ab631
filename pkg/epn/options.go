package epn

import (
	"log/slog"

	"github.com/csadilek/epn/pkg/epn/observability"
	"github.com/csadilek/epn/pkg/epn/stream"
)

// ErrorPolicy decides what happens to root failures and upstream failure
// signals.
type ErrorPolicy int

const (
	// PropagateFailures signals a failed root's error downstream (OnError)
	// and lets operators forward it, so sinks decide what to do.
	PropagateFailures ErrorPolicy = iota

	// IgnoreFailures keeps failures away from the graph: roots are not
	// failed and operators swallow upstream failure signals. Start still
	// returns the error.
	IgnoreFailures
)

func (p ErrorPolicy) String() string {
	if p == IgnoreFailures {
		return "ignore"
	}
	return "propagate"
}

// Option configures a Network.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	policy      stream.Policy
	errorPolicy ErrorPolicy
	concurrent  bool
	limit       int
	metrics     observability.MetricsRecorder
	spans       observability.SpanManager
	onDrop      func(node string, value any)
}

func defaultOptions() options {
	return options{
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// WithLogger sets the logger for the network and the nodes it builds.
// Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPolicy sets the no-demand policy of every operator the builder
// creates. Default: stream.DropOnNoDemand.
func WithPolicy(p stream.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithErrorPolicy sets the failure policy. Default: PropagateFailures.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(o *options) {
		o.errorPolicy = p
	}
}

// WithConcurrentStart drives roots on separate goroutines. A limit > 0
// bounds how many run at once. Default: roots run one after another in
// registration order.
func WithConcurrentStart(limit int) Option {
	return func(o *options) {
		o.concurrent = true
		o.limit = limit
	}
}

// WithMetrics enables OpenTelemetry metrics using the global meter provider.
func WithMetrics() Option {
	return func(o *options) {
		o.metrics = observability.NewMetricsRecorder()
	}
}

// WithMetricsRecorder uses m for metrics.
func WithMetricsRecorder(m observability.MetricsRecorder) Option {
	return func(o *options) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans for Start using the global tracer
// provider.
func WithTracing() Option {
	return func(o *options) {
		o.spans = observability.NewSpanManager()
	}
}

// WithOnDrop registers a hook called for every event an operator drops.
func WithOnDrop(fn func(node string, value any)) Option {
	return func(o *options) {
		o.onDrop = fn
	}
}

// NodeOption configures a single node created by the builder.
type NodeOption func(*nodeConfig)

type nodeConfig struct {
	name      string
	policy    stream.Policy
	hasPolicy bool
}

func newNodeConfig(opts []NodeOption) nodeConfig {
	var nc nodeConfig
	for _, opt := range opts {
		opt(&nc)
	}
	return nc
}

// As names the node. The name is its display label.
func As(name string) NodeOption {
	return func(c *nodeConfig) {
		c.name = name
	}
}

// Buffered makes the node queue events for subscribers without demand,
// overriding the network policy.
func Buffered() NodeOption {
	return func(c *nodeConfig) {
		c.policy = stream.BufferOnNoDemand
		c.hasPolicy = true
	}
}

package stream

import (
	"log/slog"

	"github.com/csadilek/epn/pkg/epn/observability"
)

// Policy selects what an Engine does with an event for a subscriber
// without demand.
type Policy int

const (
	// DropOnNoDemand discards the event for that subscriber.
	DropOnNoDemand Policy = iota

	// BufferOnNoDemand queues the event until the subscriber requests more.
	BufferOnNoDemand
)

func (p Policy) String() string {
	switch p {
	case DropOnNoDemand:
		return "drop"
	case BufferOnNoDemand:
		return "buffer"
	default:
		return "unknown"
	}
}

// ParsePolicy maps "drop" and "buffer" to their Policy.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "drop", "":
		return DropOnNoDemand, true
	case "buffer":
		return BufferOnNoDemand, true
	default:
		return DropOnNoDemand, false
	}
}

// Option configures an Engine and the operators built on it.
type Option func(*config)

type config struct {
	name           string
	policy         Policy
	onDrop         func(node string, value any)
	metrics        observability.MetricsRecorder
	logger         *slog.Logger
	ignoreFailures bool
}

func defaultConfig() config {
	return config{
		metrics: observability.NoopMetrics{},
		logger:  slog.Default(),
	}
}

func newConfig(opts []Option) config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithName sets the node name used in logs and metrics.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithPolicy sets the no-demand delivery policy.
// Default: DropOnNoDemand.
func WithPolicy(p Policy) Option {
	return func(c *config) {
		c.policy = p
	}
}

// WithOnDrop registers a hook called for every dropped event.
func WithOnDrop(fn func(node string, value any)) Option {
	return func(c *config) {
		c.onDrop = fn
	}
}

// WithMetrics records deliveries and drops.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *config) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIgnoreFailures makes operators swallow upstream failure signals
// instead of forwarding them downstream.
func WithIgnoreFailures() Option {
	return func(c *config) {
		c.ignoreFailures = true
	}
}

package watermill

import (
	"crypto/rand"
	"log/slog"
	"sync"
	"time"

	wm "github.com/ThreeDotsLabs/watermill"
	"github.com/oklog/ulid/v2"

	"github.com/csadilek/epn/pkg/epn/retry"
	"github.com/csadilek/epn/pkg/epn/stream"
)

// Metadata keys set on published messages.
const (
	MetadataNode    = "epn_node"
	MetadataNetwork = "epn_network"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewID returns a time-sortable ULID used as message UUID.
func NewID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

var logLevelMapping = map[slog.Level]slog.Level{
	slog.LevelDebug: slog.LevelDebug,
	slog.LevelInfo:  slog.LevelInfo,
	slog.LevelWarn:  slog.LevelWarn,
	slog.LevelError: slog.LevelError,
}

// NewLogger adapts logger for watermill components. A nil logger uses
// slog.Default().
func NewLogger(logger *slog.Logger) wm.LoggerAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return wm.NewSlogLoggerWithLevelMapping(logger, logLevelMapping)
}

// Option configures a Source or a Sink.
type Option func(*options)

type options struct {
	limit   int
	network string
	node    string
	stream  []stream.Option
	logger  *slog.Logger
	retry   retry.Config
}

func newOptions(opts []Option) options {
	o := options{logger: slog.Default(), retry: retry.None}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLimit makes a Source complete after n messages. Default: 0, no limit.
func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = n
	}
}

// WithNode sets the network and node names a Sink stamps into message
// metadata.
func WithNode(network, node string) Option {
	return func(o *options) {
		o.network = network
		o.node = node
	}
}

// WithStreamOptions configures the engine of a Source.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(o *options) {
		o.stream = append(o.stream, opts...)
	}
}

// WithRetry makes a Sink retry failed publishes. Default: retry.None.
func WithRetry(cfg retry.Config) Option {
	return func(o *options) {
		o.retry = cfg
	}
}

// WithLogger sets the logger used for acks, nacks and publish retries.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

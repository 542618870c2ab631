// Package observability provides logging, metrics and tracing helpers for
// event processing networks.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds network context to a logger.
// Returns a new logger with network and node fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "orders", "filter-2")
//	enriched.Info("dropping event") // includes network, node
func EnrichLogger(logger *slog.Logger, network, node string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("network", network),
		slog.String("node", node),
	)
}

// LogNetworkStart logs the start of a network run.
func LogNetworkStart(logger *slog.Logger, network string, roots int) {
	if logger == nil {
		return
	}
	logger.Info("network starting",
		slog.String("network", network),
		slog.Int("roots", roots),
	)
}

// LogNetworkComplete logs a network run in which every root finished.
func LogNetworkComplete(logger *slog.Logger, network string, durationMs float64, roots int) {
	if logger == nil {
		return
	}
	logger.Info("network completed",
		slog.String("network", network),
		slog.Float64("duration_ms", durationMs),
		slog.Int("roots_started", roots),
	)
}

// LogNetworkError logs a network run in which at least one root failed.
func LogNetworkError(logger *slog.Logger, network string, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Error("network failed",
		slog.String("network", network),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogRootStart logs a root source being driven.
func LogRootStart(logger *slog.Logger, root string) {
	if logger == nil {
		return
	}
	logger.Debug("root starting",
		slog.String("root", root),
	)
}

// LogRootComplete logs a root source that returned without error.
func LogRootComplete(logger *slog.Logger, root string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("root completed",
		slog.String("root", root),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogRootError logs a root source failure.
func LogRootError(logger *slog.Logger, root string, err error) {
	if logger == nil {
		return
	}
	logger.Error("root failed",
		slog.String("root", root),
		slog.String("error", err.Error()),
	)
}

// LogDrop logs an event discarded because its subscriber had no demand.
func LogDrop(logger *slog.Logger, node string, value any) {
	if logger == nil {
		return
	}
	logger.Debug("event dropped",
		slog.String("node", node),
		slog.Any("value", value),
	)
}

// LogFailure logs an upstream failure signal received by a node.
func LogFailure(logger *slog.Logger, node string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("upstream failure",
		slog.String("node", node),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	durationMs := done()
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}

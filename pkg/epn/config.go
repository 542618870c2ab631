package epn

import (
	"fmt"

	"github.com/csadilek/epn/pkg/epn/config"
	"github.com/csadilek/epn/pkg/epn/stream"
)

// OptionsFromConfig translates a configuration section into network options.
//
// Recognized keys:
//
//	policy: drop | buffer
//	errors: propagate | ignore
//	concurrent: bool
//	concurrency_limit: int
//	observability:
//	  metrics: bool
//	  tracing: bool
//
// From the environment (config.FromEnv) sections are joined with "__", e.g.
// EPN_OBSERVABILITY__METRICS=true.
func OptionsFromConfig(cfg config.Config) ([]Option, error) {
	var opts []Option

	policy, ok := stream.ParsePolicy(cfg.String("policy", "drop"))
	if !ok {
		return nil, fmt.Errorf("config: unknown policy %q", cfg.String("policy", ""))
	}
	opts = append(opts, WithPolicy(policy))

	switch mode := cfg.String("errors", "propagate"); mode {
	case "propagate":
	case "ignore":
		opts = append(opts, WithErrorPolicy(IgnoreFailures))
	default:
		return nil, fmt.Errorf("config: unknown error policy %q", mode)
	}

	if cfg.Bool("concurrent", false) {
		opts = append(opts, WithConcurrentStart(cfg.Int("concurrency_limit", 0)))
	}

	obs := cfg.Sub("observability")
	if obs.Bool("metrics", false) {
		opts = append(opts, WithMetrics())
	}
	if obs.Bool("tracing", false) {
		opts = append(opts, WithTracing())
	}
	return opts, nil
}

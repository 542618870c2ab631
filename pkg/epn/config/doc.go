/*
Package config provides typed access to loosely structured configuration
read from YAML, JSON or the environment.

# Basic Usage

	cfg, err := config.FromFile("epn.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	policy := cfg.String("policy", "drop")        // "buffer"
	limit := cfg.Int("concurrency_limit", 0)      // 4
	level := cfg.LogLevel("log_level", slog.LevelInfo)
	metrics := cfg.Sub("observability").Bool("metrics", false)

Every accessor returns its default when the key is missing or the value has
the wrong type.

# Environment

FromEnv reads variables with a prefix, lower-cases the remainder and uses it
as the key; "__" separates nested sections. Overlay merges two configs, the
second winning:

	cfg = cfg.Overlay(config.FromEnv("EPN_", os.Environ()))
	// EPN_POLICY=buffer overrides "policy"
	// EPN_OBSERVABILITY__METRICS=true overrides "metrics" in "observability"

Config is safe for concurrent reads. It is never modified after creation.
*/
package config

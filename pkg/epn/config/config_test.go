package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csadilek/epn/pkg/epn/config"
)

// TestNew verifies Config creation from maps.
func TestNew(t *testing.T) {
	assert.NotNil(t, config.New(nil).Raw())
	assert.Equal(t, []string{"a", "b"}, config.New(map[string]any{"b": 1, "a": 2}).Keys())
}

// TestString verifies string extraction with defaults and formatting.
func TestString(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want string
	}{
		{"string", map[string]any{"k": "drop"}, "drop"},
		{"int", map[string]any{"k": 4}, "4"},
		{"float", map[string]any{"k": 1.5}, "1.5"},
		{"bool", map[string]any{"k": true}, "true"},
		{"missing", nil, "default"},
		{"slice", map[string]any{"k": []any{"a"}}, "default"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, config.New(tt.data).String("k", "default"))
		})
	}
}

// TestBool verifies booleans and boolean strings.
func TestBool(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want bool
	}{
		{"bool", true, true},
		{"string true", "true", true},
		{"string 1", "1", true},
		{"string false", "false", false},
		{"garbage", "maybe", true},
		{"int", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, config.New(map[string]any{"k": tt.val}).Bool("k", true))
		})
	}
}

// TestInt verifies integer conversion rules.
func TestInt(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want int
	}{
		{"int", 3, 3},
		{"int64", int64(4), 4},
		{"whole float", 5.0, 5},
		{"fractional float", 5.5, -1},
		{"numeric string", "6", 6},
		{"text", "six", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, config.New(map[string]any{"k": tt.val}).Int("k", -1))
		})
	}
}

// TestDuration verifies duration parsing.
func TestDuration(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want time.Duration
	}{
		{"string", "150ms", 150 * time.Millisecond},
		{"int seconds", 2, 2 * time.Second},
		{"float seconds", 0.5, 500 * time.Millisecond},
		{"duration", time.Minute, time.Minute},
		{"invalid", "soon", time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, config.New(map[string]any{"k": tt.val}).Duration("k", time.Hour))
		})
	}
}

func TestLogLevel(t *testing.T) {
	cfg := config.New(map[string]any{"debug": "debug", "warn": "WARN", "bad": "loud", "num": 3})

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel("debug", slog.LevelInfo))
	assert.Equal(t, slog.LevelWarn, cfg.LogLevel("warn", slog.LevelInfo))
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel("bad", slog.LevelInfo))
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel("num", slog.LevelInfo))
	assert.Equal(t, slog.LevelError, cfg.LogLevel("missing", slog.LevelError))
}

func TestSub(t *testing.T) {
	cfg := config.New(map[string]any{
		"observability": map[string]any{"metrics": true},
		"flat":          "x",
	})

	assert.True(t, cfg.Sub("observability").Bool("metrics", false))
	assert.False(t, cfg.Sub("flat").Has("metrics"))
	assert.False(t, cfg.Sub("missing").Has("metrics"))
}

func TestOverlay(t *testing.T) {
	base := config.New(map[string]any{
		"policy": "drop",
		"limit":  2,
		"observability": map[string]any{
			"metrics": false,
			"tracing": true,
		},
	})
	over := config.New(map[string]any{
		"policy":        "buffer",
		"observability": map[string]any{"metrics": true},
	})

	merged := base.Overlay(over)

	assert.Equal(t, "buffer", merged.String("policy", ""))
	assert.Equal(t, 2, merged.Int("limit", 0))
	assert.True(t, merged.Sub("observability").Bool("metrics", false))
	assert.True(t, merged.Sub("observability").Bool("tracing", false))
	assert.Equal(t, "drop", base.String("policy", ""), "base is unchanged")
}

func TestFromEnv(t *testing.T) {
	cfg := config.FromEnv("EPN_", []string{
		"EPN_POLICY=buffer",
		"EPN_CONCURRENT=true",
		"EPN_=ignored",
		"HOME=/root",
		"malformed",
	})

	assert.Equal(t, []string{"concurrent", "policy"}, cfg.Keys())
	assert.Equal(t, "buffer", cfg.String("policy", ""))
	assert.True(t, cfg.Bool("concurrent", false))
}

func TestFromEnv_Sections(t *testing.T) {
	cfg := config.FromEnv("EPN_", []string{
		"EPN_OBSERVABILITY__METRICS=true",
		"EPN_OBSERVABILITY__TRACING=false",
		"EPN_CONCURRENCY_LIMIT=4",
		"EPN_A__B__C=deep",
		"EPN_X=plain",
		"EPN_X__Y=nested",
		"EPN_S__T=first",
		"EPN_S=ignored",
		"EPN_BAD__=skipped",
		"EPN___LEAD=skipped",
	})

	assert.Equal(t, []string{"a", "concurrency_limit", "observability", "s", "x"}, cfg.Keys())
	obs := cfg.Sub("observability")
	assert.True(t, obs.Bool("metrics", false))
	assert.False(t, obs.Bool("tracing", true))
	assert.Equal(t, 4, cfg.Int("concurrency_limit", 0))
	assert.Equal(t, "deep", cfg.Sub("a").Sub("b").String("c", ""))
	assert.Equal(t, "nested", cfg.Sub("x").String("y", ""))
	assert.Equal(t, "first", cfg.Sub("s").String("t", ""))

	base := config.New(map[string]any{"observability": map[string]any{"tracing": true}})
	merged := base.Overlay(cfg)
	assert.True(t, merged.Sub("observability").Bool("metrics", false))
	assert.False(t, merged.Sub("observability").Bool("tracing", true))
}

// TestFromFile verifies loading by extension.
func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "epn.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("policy: buffer\nobservability:\n  metrics: true\n"), 0o600))
	cfg, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "buffer", cfg.String("policy", ""))
	assert.True(t, cfg.Sub("observability").Bool("metrics", false))

	jsonPath := filepath.Join(dir, "epn.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"concurrency_limit": 4}`), 0o600))
	cfg, err = config.FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Int("concurrency_limit", 0))

	_, err = config.FromFile(filepath.Join(dir, "epn.toml"))
	assert.Error(t, err)

	badPath := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(badPath, []byte("x"), 0o600))
	_, err = config.FromFile(badPath)
	assert.ErrorContains(t, err, `unsupported file extension ".toml"`)

	_, err = config.FromFile(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = config.FromYAML([]byte("policy: [unclosed"))
	assert.ErrorContains(t, err, "parse yaml")
	_, err = config.FromJSON([]byte("{"))
	assert.ErrorContains(t, err, "parse json")
}

func TestParse(t *testing.T) {
	f, err := config.FormatOf("conf/EPN.YML")
	require.NoError(t, err)
	assert.Equal(t, config.YAML, f)

	for _, format := range []config.Format{config.YAML, config.JSON} {
		cfg, err := config.Parse(format, []byte("  \n"))
		require.NoError(t, err, format)
		assert.Empty(t, cfg.Keys(), format)
	}

	_, err = config.Parse(config.YAML, []byte("- a\n- b\n"))
	assert.Error(t, err, "a list is not a mapping")

	_, err = config.Parse("toml", []byte("x = 1"))
	assert.ErrorContains(t, err, `unknown format "toml"`)
}

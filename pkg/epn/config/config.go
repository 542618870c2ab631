package config

import (
	"log/slog"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Config wraps a map[string]any for typed value extraction.
type Config struct {
	data map[string]any
}

// New creates a Config from the given map.
// If data is nil, an empty Config is returned.
func New(data map[string]any) Config {
	if data == nil {
		data = make(map[string]any)
	}
	return Config{data: data}
}

// String returns the value for key as a string, or defaultVal.
// Numbers and booleans are formatted.
func (c Config) String(key, defaultVal string) string {
	switch v := c.data[key].(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return defaultVal
}

// Bool returns the boolean value for key, or defaultVal.
// Strings accepted by strconv.ParseBool are converted.
func (c Config) Bool(key string, defaultVal bool) bool {
	switch v := c.data[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

// Int returns the integer value for key, or defaultVal.
//
// Accepts:
//   - int, int64: used directly
//   - float64: only if it has no fractional part
//   - string: parsed with strconv.Atoi
func (c Config) Int(key string, defaultVal int) int {
	switch v := c.data[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	case string:
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// Duration returns the duration value for key, or defaultVal.
// Strings are parsed with time.ParseDuration; numbers are seconds.
func (c Config) Duration(key string, defaultVal time.Duration) time.Duration {
	switch v := c.data[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case time.Duration:
		return v
	}
	return defaultVal
}

// LogLevel returns the slog level named by key ("debug", "info", "warn",
// "error"), or defaultVal.
func (c Config) LogLevel(key string, defaultVal slog.Level) slog.Level {
	s, ok := c.data[key].(string)
	if !ok {
		return defaultVal
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return defaultVal
	}
	return level
}

// Sub returns the nested section under key. A missing or non-map value
// yields an empty Config.
func (c Config) Sub(key string) Config {
	if m, ok := c.data[key].(map[string]any); ok {
		return New(m)
	}
	return New(nil)
}

// Has returns true if the key exists in the config.
func (c Config) Has(key string) bool {
	_, ok := c.data[key]
	return ok
}

// Keys returns the top-level keys in sorted order.
func (c Config) Keys() []string {
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Overlay returns a new Config with the entries of other replacing those of
// c. Nested sections are merged recursively.
func (c Config) Overlay(other Config) Config {
	return New(merge(c.data, other.data))
}

// Raw returns the underlying map.
// The returned map should not be modified.
func (c Config) Raw() map[string]any {
	return c.data
}

func merge(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range over {
		if sub, ok := v.(map[string]any); ok {
			if prev, ok := out[k].(map[string]any); ok {
				out[k] = merge(prev, sub)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// FromEnv collects the entries of environ ("KEY=value") whose key starts with
// prefix. The remainder is lower-cased and becomes the config key; a double
// underscore descends into a section, so EPN_OBSERVABILITY__METRICS=true sets
// "metrics" in the "observability" section. Values stay strings. A section
// replaces a plain value of the same name.
func FromEnv(prefix string, environ []string) Config {
	data := make(map[string]any)
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		path := strings.Split(strings.ToLower(strings.TrimPrefix(key, prefix)), "__")
		if slices.Contains(path, "") {
			continue
		}
		setPath(data, path, value)
	}
	return New(data)
}

func setPath(m map[string]any, path []string, value string) {
	for _, name := range path[:len(path)-1] {
		sub, ok := m[name].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			m[name] = sub
		}
		m = sub
	}
	last := path[len(path)-1]
	if _, isSection := m[last].(map[string]any); isSection {
		return
	}
	m[last] = value
}

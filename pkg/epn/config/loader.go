package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/csadilek/epn/pkg/epn/codec"
)

// Format is a configuration file syntax.
type Format string

// Supported formats.
const (
	YAML Format = "yaml"
	JSON Format = "json"
)

var extensions = map[string]Format{
	".yaml": YAML,
	".yml":  YAML,
	".json": JSON,
}

// FormatOf returns the format implied by the extension of path.
func FormatOf(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("config: unsupported file extension %q", ext)
}

// Parse decodes a document in format f. The document must be a mapping; an
// empty document yields an empty Config.
func Parse(f Format, data []byte) (Config, error) {
	var (
		m   map[string]any
		err error
	)
	switch f {
	case YAML:
		err = yaml.Unmarshal(data, &m)
	case JSON:
		if strings.TrimSpace(string(data)) == "" {
			break
		}
		err = codec.Unmarshal(data, &m)
	default:
		return Config{}, fmt.Errorf("config: unknown format %q", f)
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", f, err)
	}
	return New(m), nil
}

// FromFile reads path and parses it in the format named by its extension.
func FromFile(path string) (Config, error) {
	f, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(f, data)
}

// FromYAML parses a YAML mapping.
func FromYAML(data []byte) (Config, error) { return Parse(YAML, data) }

// FromJSON parses a JSON object.
func FromJSON(data []byte) (Config, error) { return Parse(JSON, data) }

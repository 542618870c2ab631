package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/csadilek/epn/pkg/epn/visualize"
)

const evensYAML = `
name: evens
flows:
  - source: {type: range, name: numbers, count: 10}
    steps:
      - filter: value % 2 == 0
      - sink: {type: collect, name: out}
`

// execute runs a fresh command tree with args and captures its output.
func execute(args ...string) (stdout, stderr string, err error) {
	root := NewRootCmd("test")
	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "want *ExitError, got %v", err)
	return exitErr.Code
}

func TestRun(t *testing.T) {
	path := writeFile(t, "evens.yaml", evensYAML)

	t.Run("text", func(t *testing.T) {
		stdout, _, err := execute("run", path)
		require.NoError(t, err)
		assert.Equal(t, "out: [0 2 4 6 8]\n", stdout)
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute("run", path, "--format", "json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"out": [0, 2, 4, 6, 8]}`, stdout)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := execute("run", path, "--format", "xml")
		assert.Equal(t, exitValidation, exitCode(t, err))
	})

	t.Run("stdout sink", func(t *testing.T) {
		path := writeFile(t, "print.yaml", `
flows:
  - source: {type: values, values: [a, b]}
    steps:
      - sink: {type: stdout, prefix: "- "}
`)
		stdout, _, err := execute("run", path)
		require.NoError(t, err)
		assert.Equal(t, "- a\n- b\n", stdout)
	})

	t.Run("runtime failure", func(t *testing.T) {
		path := writeFile(t, "fail.yaml", `
flows:
  - source: {type: range, count: 3}
    steps:
      - map: value / 0
      - sink: {type: collect, name: out}
`)
		stdout, _, err := execute("run", path)
		assert.Equal(t, exitRuntime, exitCode(t, err))
		assert.Contains(t, err.Error(), "division by zero")
		assert.Equal(t, "out: []\n", stdout)
	})
}

func TestRun_Config(t *testing.T) {
	path := writeFile(t, "evens.yaml", evensYAML)

	t.Run("file", func(t *testing.T) {
		cfg := writeFile(t, "options.yaml", "policy: buffer\nconcurrent: true\n")
		stdout, _, err := execute("run", path, "--config", cfg)
		require.NoError(t, err)
		assert.Equal(t, "out: [0 2 4 6 8]\n", stdout)
	})

	t.Run("invalid file", func(t *testing.T) {
		cfg := writeFile(t, "options.toml", "policy = 1\n")
		_, _, err := execute("run", path, "--config", cfg)
		assert.Equal(t, exitConfig, exitCode(t, err))
	})

	t.Run("invalid option", func(t *testing.T) {
		cfg := writeFile(t, "options.json", `{"policy": "sometimes"}`)
		_, _, err := execute("run", path, "--config", cfg)
		assert.Equal(t, exitValidation, exitCode(t, err))
		assert.Contains(t, err.Error(), `unknown policy "sometimes"`)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(EnvPrefix+"ERRORS", "bogus")
		_, _, err := execute("run", path)
		assert.Equal(t, exitValidation, exitCode(t, err))
		assert.Contains(t, err.Error(), `unknown error policy "bogus"`)
	})
}

func TestRun_Vars(t *testing.T) {
	path := writeFile(t, "vars.yaml", `
flows:
  - source:
      type: range
      count: ${COUNT:-2}
    steps:
      - sink:
          type: collect
          name: ${SINK}
`)

	t.Run("set", func(t *testing.T) {
		stdout, _, err := execute("run", path, "--set", "SINK=numbers", "--set", "COUNT=3")
		require.NoError(t, err)
		assert.Equal(t, "numbers: [0 1 2]\n", stdout)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("SINK", "from-env")
		stdout, _, err := execute("run", path)
		require.NoError(t, err)
		assert.Equal(t, "from-env: [0 1]\n", stdout)
	})

	t.Run("set wins over environment", func(t *testing.T) {
		t.Setenv("SINK", "from-env")
		stdout, _, err := execute("run", path, "--set", "SINK=flag")
		require.NoError(t, err)
		assert.Equal(t, "flag: [0 1]\n", stdout)
	})

	t.Run("undefined", func(t *testing.T) {
		_, _, err := execute("validate", path)
		assert.Equal(t, exitValidation, exitCode(t, err))
		assert.Contains(t, err.Error(), "undefined variable: SINK")
	})

	t.Run("malformed set", func(t *testing.T) {
		_, _, err := execute("validate", path, "--set", "SINK")
		assert.Equal(t, exitConfig, exitCode(t, err))
	})
}

func TestRun_Verbose(t *testing.T) {
	path := writeFile(t, "evens.yaml", evensYAML)
	_, stderr, err := execute("run", path, "--verbose")
	require.NoError(t, err)
	assert.Contains(t, stderr, "level=DEBUG")
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		path := writeFile(t, "evens.yaml", evensYAML)
		stdout, _, err := execute("validate", path)
		require.NoError(t, err)
		assert.Equal(t, "valid: evens (3 nodes, 1 roots, 1 sinks)\n", stdout)
	})

	t.Run("unterminated", func(t *testing.T) {
		path := writeFile(t, "open.yaml", "flows:\n  - source: {type: range}\n    steps:\n      - filter: value\n")
		_, _, err := execute("validate", path)
		assert.Equal(t, exitValidation, exitCode(t, err))
		assert.Contains(t, err.Error(), "has no consumer")
	})

	t.Run("malformed", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "flows: [\n")
		_, _, err := execute("validate", path)
		assert.Equal(t, exitValidation, exitCode(t, err))
	})

	t.Run("missing file", func(t *testing.T) {
		_, _, err := execute("validate", filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Equal(t, exitFileNotFound, exitCode(t, err))
	})

	t.Run("args", func(t *testing.T) {
		_, _, err := execute("validate")
		assert.Error(t, err)
	})
}

func TestRender(t *testing.T) {
	path := writeFile(t, "evens.yaml", evensYAML)

	t.Run("dot", func(t *testing.T) {
		stdout, _, err := execute("render", path)
		require.NoError(t, err)
		assert.Contains(t, stdout, `digraph "evens" {`)
		assert.Contains(t, stdout, `label="numbers"`)
	})

	t.Run("json", func(t *testing.T) {
		stdout, _, err := execute("render", path, "--format", "json")
		require.NoError(t, err)
		assert.Contains(t, stdout, `"name": "evens"`)
	})

	t.Run("out dir", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "view")
		stdout, _, err := execute("render", path, "--out", dir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, visualize.HTMLFile)+"\n", stdout)
		assert.FileExists(t, filepath.Join(dir, visualize.HTMLFile))
		assert.FileExists(t, filepath.Join(dir, visualize.JSONFile))
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := execute("render", path, "--format", "svg")
		assert.Equal(t, exitValidation, exitCode(t, err))
	})
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute("--version")
	require.NoError(t, err)
	assert.Equal(t, "epn version test\n", stdout)
}

// Package cli implements the epn command line: run, validate and render
// network definitions.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/csadilek/epn/pkg/epn/config"
	"github.com/csadilek/epn/pkg/epn/definition"
)

// Exit codes.
const (
	exitSuccess      = 0
	exitValidation   = 1
	exitRuntime      = 2
	exitFileNotFound = 3
	exitConfig       = 4
)

// EnvPrefix selects the environment variables that override network
// options, e.g. EPN_POLICY=buffer or EPN_OBSERVABILITY__TRACING=true.
const EnvPrefix = "EPN_"

// ExitError is an error that carries a process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func exitError(code int, format string, args ...any) *ExitError {
	return &ExitError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// NewRootCmd creates the epn command with all subcommands.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "epn",
		Short: "Event processing networks",
		Long:  "epn builds, validates, runs and renders event processing networks described in YAML.",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
	}

	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	root.PersistentFlags().String("config", "", "YAML or JSON file of network options")
	root.PersistentFlags().StringArray("set", nil, "Set a definition variable (key=value), repeatable")

	root.Version = version
	root.SetVersionTemplate(fmt.Sprintf("epn version %s\n", version))

	root.AddCommand(NewRunCmd())
	root.AddCommand(NewValidateCmd())
	root.AddCommand(NewRenderCmd())
	return root
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// vars returns the definition variables: the environment overlaid with
// the --set flags.
func vars(cmd *cobra.Command) (map[string]any, error) {
	out := map[string]any{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	sets, _ := cmd.Flags().GetStringArray("set")
	for _, kv := range sets {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, exitError(exitConfig, "invalid --set %q, want key=value", kv)
		}
		out[k] = v
	}
	return out, nil
}

// load reads the definition at path, expanding variables, and applies the
// --config file and the environment on top of its options.
func load(cmd *cobra.Command, path string) (*definition.Definition, error) {
	values, err := vars(cmd)
	if err != nil {
		return nil, err
	}
	def, err := definition.LoadFile(path, definition.WithVars(values))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, exitError(exitFileNotFound, "file not found: %s", path)
		}
		return nil, exitError(exitValidation, "%v", err)
	}

	opts := config.New(def.Options)
	if file, _ := cmd.Flags().GetString("config"); file != "" {
		cfg, err := config.FromFile(file)
		if err != nil {
			return nil, exitError(exitConfig, "config: %v", err)
		}
		opts = opts.Overlay(cfg)
	}
	opts = opts.Overlay(config.FromEnv(EnvPrefix, os.Environ()))
	def.Options = opts.Raw()
	return def, nil
}

// build loads and builds the definition at path. Sinks write to out.
func build(cmd *cobra.Command, path string, out io.Writer) (*definition.Built, error) {
	def, err := load(cmd, path)
	if err != nil {
		return nil, err
	}
	built, err := definition.Build(def, nil,
		definition.WithLogger(newLogger(cmd)),
		definition.WithOutput(out),
	)
	if err != nil {
		return nil, exitError(exitValidation, "%v", err)
	}
	return built, nil
}

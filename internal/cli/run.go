package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/csadilek/epn/pkg/epn/codec"
	"github.com/csadilek/epn/pkg/epn/definition"
)

// NewRunCmd creates the "run" subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Build and start a network, then print its collect sinks",
		Args:  cobra.ExactArgs(1),
		RunE:  runRun,
	}

	cmd.Flags().String("format", "text", "Output format: text | json")
	cmd.Flags().Duration("timeout", 0, "Cancel the run after this duration (0 = none)")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) (err error) {
	format, _ := cmd.Flags().GetString("format")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if format != "text" && format != "json" {
		return exitError(exitValidation, "unknown output format %q", format)
	}
	out := cmd.OutOrStdout()

	built, err := build(cmd, args[0], out)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := built.Close(); cerr != nil && err == nil {
			err = exitError(exitRuntime, "close: %v", cerr)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	runErr := built.Start(ctx)
	if err := printCollected(out, built, format); err != nil {
		return err
	}
	if runErr != nil {
		return exitError(exitRuntime, "run failed: %v", runErr)
	}
	return nil
}

func printCollected(w io.Writer, built *definition.Built, format string) error {
	names := built.Collectors()
	if format == "json" {
		values := make(map[string][]any, len(names))
		for _, name := range names {
			values[name] = built.Collected(name)
		}
		data, err := codec.MarshalIndent(values, "", "  ")
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s: %v\n", name, built.Collected(name)); err != nil {
			return err
		}
	}
	return nil
}

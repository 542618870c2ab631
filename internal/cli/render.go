package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/csadilek/epn/pkg/epn/visualize"
)

// NewRenderCmd creates the "render" subcommand.
func NewRenderCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render the graph of a network",
		Long: "Render the graph of a network to stdout as dot, json or html. " +
			"With --out the html viewer and the json graph are written to that directory instead.",
		Args: cobra.ExactArgs(1),
		RunE: runRender,
	}

	cmd.Flags().String("format", "dot", "Output format: dot | json | html")
	cmd.Flags().String("out", "", "Directory to write "+visualize.HTMLFile+" and "+visualize.JSONFile+" into")

	return cmd
}

func runRender(cmd *cobra.Command, args []string) error {
	formatName, _ := cmd.Flags().GetString("format")
	dir, _ := cmd.Flags().GetString("out")

	format, err := visualize.ParseFormat(formatName)
	if err != nil {
		return exitError(exitValidation, "%v", err)
	}

	built, err := build(cmd, args[0], io.Discard)
	if err != nil {
		return err
	}
	defer built.Close()

	g := built.Network.Graph()
	if dir == "" {
		return visualize.Render(cmd.OutOrStdout(), g, format)
	}

	dir, err = visualize.WriteDir(dir, g)
	if err != nil {
		return exitError(exitRuntime, "%v", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(dir, visualize.HTMLFile))
	return nil
}

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewValidateCmd creates the "validate" subcommand.
func NewValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Build and validate a network without starting it",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	built, err := build(cmd, args[0], io.Discard)
	if err != nil {
		return err
	}
	defer built.Close()

	n := built.Network
	fmt.Fprintf(cmd.OutOrStdout(), "valid: %s (%d nodes, %d roots, %d sinks)\n",
		n.Name(), len(n.Nodes()), len(n.Roots()), len(n.Sinks()))
	return nil
}

package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/opgraph/internal/nodeid"
	"github.com/vk/opgraph/internal/registry"
)

func newInspectCommand(flags *globalFlags, modules []registry.Module) *cobra.Command {
	var rawID string

	cmd := &cobra.Command{
		Use:   "inspect GRAPH_PATH... --node ID",
		Short: "Show what feeds a node and what consumes it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := nodeid.Parse(rawID)
			if err != nil {
				return &ExitError{Code: ExitUsage, Message: err.Error()}
			}
			a, err := newApp(cmd, flags, args, modules, nil)
			if err != nil {
				return err
			}
			in, err := a.Inspect(cmd.Context(), id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "node:        %s (%s)\n", in.Node.ID, in.Node.Operator)
			fmt.Fprintf(out, "ancestors:   %s\n", join(in.Ancestors))
			fmt.Fprintf(out, "descendants: %s\n", join(in.Descendants))
			for i, level := range in.Levels {
				fmt.Fprintf(out, "level %d:     %s\n", i, join(level))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rawID, "node", "", "Id of the node to inspect.")
	_ = cmd.MarkFlagRequired("node")
	return cmd
}

func join(ids []nodeid.ID) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(nodeid.Strings(ids), " ")
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vk/opgraph/internal/node"
	"github.com/vk/opgraph/internal/registry"
)

func newValidateCommand(flags *globalFlags, modules []registry.Module) *cobra.Command {
	return &cobra.Command{
		Use:   "validate GRAPH_PATH...",
		Short: "Check node configuration without evaluating",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags, args, modules, nil)
			if err != nil {
				return err
			}
			v, err := a.Validate(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, id := range v.Graph.IDs() {
				r := v.Results[id]
				fmt.Fprintf(out, "%-10s %s\n", r.Status, id)
				for _, p := range r.Problems {
					fmt.Fprintf(out, "           - %s\n", p)
				}
			}
			if n := v.Count(node.Error); n > 0 {
				return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("%d node(s) failed validation", n)}
			}
			return nil
		},
	}
}

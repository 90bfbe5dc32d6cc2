package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/vk/opgraph/internal/app"
	"github.com/vk/opgraph/internal/registry"
	"github.com/vk/opgraph/internal/scheduler"
)

func newRunCommand(flags *globalFlags, modules []registry.Module) *cobra.Command {
	var failOnError, skipInvalid bool

	cmd := &cobra.Command{
		Use:   "run GRAPH_PATH...",
		Short: "Evaluate a graph to completion",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, flags, args, modules, func(c *app.Config) {
				c.FailOnError = failOnError
				c.SkipInvalid = skipInvalid
			})
			if err != nil {
				return err
			}

			res, err := a.Run(cmd.Context())
			if res != nil && res.Report != nil {
				printReport(cmd, res.Report)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&failOnError, "fail-on-error", true, "Exit non-zero when any node is left without an artifact.")
	cmd.Flags().BoolVar(&skipInvalid, "skip-invalid", true, "Do not evaluate nodes that failed validation.")
	return cmd
}

func printReport(cmd *cobra.Command, r *scheduler.Report) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s: %d computed, %d failed, %d skipped, %d blocked in %d passes\n",
		r.RunID, len(r.Computed), len(r.Failed), len(r.Skipped), len(r.Blocked), r.Passes)
	if err := r.Err(); err != nil {
		fmt.Fprintf(out, "failures:\n%s\n", err)
	}
	for _, id := range r.Skipped {
		fmt.Fprintf(out, "skipped: %s\n", id)
	}
	for _, id := range r.Blocked {
		fmt.Fprintf(out, "blocked: %s\n", id)
	}
}

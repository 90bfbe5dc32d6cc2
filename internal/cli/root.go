package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/opgraph/internal/app"
	"github.com/vk/opgraph/internal/registry"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	logLevel        string
	logFormat       string
	workers         int
	healthcheckPort int
}

// NewRootCommand builds the command tree. Output, logs included, goes to
// outW. modules override the built-in operator bundle when given.
func NewRootCommand(outW io.Writer, modules ...registry.Module) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "opgraph",
		Short: "Evaluate graphs of chained data-processing operators",
		Long: `opgraph loads a graph of operator nodes from HCL or YAML files and
evaluates it: every node runs once all the nodes it sources from have
produced an artifact.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(outW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&flags.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.IntVar(&flags.workers, "workers", 10, "Number of concurrent node evaluations.")
	pf.IntVar(&flags.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")

	root.AddCommand(
		newRunCommand(flags, modules),
		newValidateCommand(flags, modules),
		newInspectCommand(flags, modules),
	)
	return root
}

// Execute runs the command tree with args. Usage problems are reported as an
// ExitError with ExitUsage, other failures with ExitFailure.
func Execute(ctx context.Context, outW io.Writer, args []string, modules ...registry.Module) error {
	root := NewRootCommand(outW, modules...)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if isUsageError(err) {
		return &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return &ExitError{Code: ExitFailure, Message: err.Error()}
}

// isUsageError recognises cobra's argument and command lookup errors, which
// it does not type.
func isUsageError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") ||
		strings.HasPrefix(msg, "accepts ") ||
		strings.HasPrefix(msg, "requires at least") ||
		strings.HasPrefix(msg, "required flag")
}

// newApp validates the flags and builds the application.
func newApp(cmd *cobra.Command, flags *globalFlags, paths []string, modules []registry.Module, mutate func(*app.Config)) (*app.App, error) {
	raw := app.Config{
		GraphPaths:      paths,
		LogFormat:       strings.ToLower(flags.logFormat),
		LogLevel:        strings.ToLower(flags.logLevel),
		HealthcheckPort: flags.healthcheckPort,
		WorkerCount:     flags.workers,
	}
	if mutate != nil {
		mutate(&raw)
	}
	cfg, err := app.NewConfig(raw)
	if err != nil {
		return nil, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	return app.NewApp(cmd.OutOrStdout(), cfg, modules...), nil
}

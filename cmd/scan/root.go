package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// newRootCmd builds the root command: a single positional <model-file>
// shared by every subcommand.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scan <model-file>",
		Short:         "SCAN (StoChastic ANalyzer): a statistical model checker for channel systems",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newValidateCmd())
	root.AddCommand(newExecuteCmd())
	root.AddCommand(newVerifyCmd())
	return root
}

func logStart(subcommand, modelPath string) {
	slog.Info("scan starting up", slog.String("command", subcommand), slog.String("model", modelPath))
}

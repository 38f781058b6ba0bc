package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/keb77/scan/internal/sim"
)

// newValidateCmd implements the validate subcommand: "parse
// the model, build its CS, emit a human-readable dump; exit 0 on
// success, non-zero with a parser/builder error otherwise."
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <model-file>",
		Short: "Parse and validate model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modelPath := args[0]
			logStart("validate", modelPath)

			slog.Debug("parsing model")
			m, err := sim.Load(modelPath)
			if err != nil {
				return err
			}
			slog.Debug("building CS representation")

			fmt.Fprintln(cmd.OutOrStdout(), sim.Dump(m))
			fmt.Fprintln(cmd.OutOrStdout(), "Model successfully validated")
			return nil
		},
	}
}

package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/keb77/scan/internal/sim"
)

// newExecuteCmd implements the execute subcommand: "simulate
// until no transition is enabled; print each chosen (pg-name, action,
// to-location); exit 0 when the model reaches a deadlock, non-zero on
// runtime failure."
func newExecuteCmd() *cobra.Command {
	var seed int64

	cmd := &cobra.Command{
		Use:   "execute <model-file>",
		Short: "Execute model once",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modelPath := args[0]
			logStart("execute", modelPath)

			slog.Debug("parsing model")
			m, err := sim.Load(modelPath)
			if err != nil {
				return err
			}
			slog.Debug("building CS representation")

			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Executing model")
			trace, err := sim.Execute(m, seed)
			if err != nil {
				return err
			}
			for _, step := range trace.Steps {
				fmt.Fprintln(cmd.OutOrStdout(), step.Format())
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Model run to termination")
			return nil
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed for move selection (0 picks one from the current time)")
	return cmd
}

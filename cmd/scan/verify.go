package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/keb77/scan/internal/sim"
)

// newVerifyCmd implements the verify subcommand: "run N
// independent simulations (intended for statistical checking; property
// engine is outside the core)."
func newVerifyCmd() *cobra.Command {
	var runs int
	var seed int64

	cmd := &cobra.Command{
		Use:   "verify <model-file>",
		Short: "Verify model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modelPath := args[0]
			logStart("verify", modelPath)

			slog.Debug("parsing model")
			m, err := sim.Load(modelPath)
			if err != nil {
				return err
			}
			slog.Debug("building CS representation")

			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Verifying model over %d run(s)\n", runs)
			result, err := sim.Verify(m, runs, seed)
			if err != nil {
				return err
			}
			for _, r := range result.Runs {
				slog.Debug("verify run complete",
					slog.Int("run", r.Run), slog.Int("steps", r.Steps), slog.Bool("deadlocked", r.Deadlocked))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d/%d run(s) reached a deadlock\n", result.Deadlocked, len(result.Runs))
			return nil
		},
	}

	cmd.Flags().IntVarP(&runs, "runs", "r", 1, "number of independent simulation runs")
	cmd.Flags().Int64Var(&seed, "seed", 0, "RNG seed for move selection (0 picks one from the current time)")
	return cmd
}

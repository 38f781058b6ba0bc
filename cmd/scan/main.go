// Command scan is SCAN's CLI: validate, execute or statistically verify
// a channel-system model described by an SCXML/Convince document or a
// JANI document.
package main

import (
	"errors"
	"log/slog"
	"os"

	"github.com/keb77/scan/internal/sim"
)

func main() {
	os.Exit(run())
}

// run builds and executes the root command, translating any error into
// the exit-code discipline: 0 success, 1 parser error,
// 2 builder/type error, 3 runtime error.
func run() int {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	root := newRootCmd()
	if err := root.Execute(); err != nil {
		code := exitCodeFor(err)
		slog.Error("scan terminating", slog.Any("err", err), slog.Int("exit", code))
		return code
	}
	return 0
}

// exitCodeFor classifies an error returned from a subcommand into
// the exit codes. A *sim.LoadError names which phase (parse or
// build) it failed in; anything else reaching this far happened after a
// model was successfully loaded, i.e. during simulation, so it is a
// runtime error.
func exitCodeFor(err error) int {
	var loadErr *sim.LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Phase == sim.PhaseBuild {
			return 2
		}
		return 1
	}
	return 3
}

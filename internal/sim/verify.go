package sim

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RunResult summarizes one independent simulation within a Verify batch.
type RunResult struct {
	Run        int
	Steps      int
	Deadlocked bool
}

// VerifyResult aggregates Verify's N independent runs (// "run N independent simulations (intended for statistical checking;
// property engine is outside the core)").
type VerifyResult struct {
	Runs       []RunResult
	Deadlocked int
}

// Verify runs n independent simulations of m.System concurrently, each
// from its own seed (seed+i) and its own cloned Configuration — each
// driver instance owns its own CS configuration — fanned
// out over a bounded ants pool and collected via errgroup. The first
// runtime error from any run is returned to the caller (a runtime error
// is fatal, not a per-run statistic to tally); the other runs are not
// cancelled and run to completion.
func Verify(m *Model, n int, seed int64) (*VerifyResult, error) {
	if n <= 0 {
		return &VerifyResult{}, nil
	}

	poolSize := runtime.GOMAXPROCS(0)
	if n < poolSize {
		poolSize = n
	}
	pool, release, err := NewAntsPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("creating run pool: %w", err)
	}
	defer release()

	results := make([]RunResult, n)
	var g errgroup.Group
	futures := make([]*future[*Trace], n)
	for i := 0; i < n; i++ {
		i := i
		futures[i] = runFuture(pool, func() (*Trace, error) {
			return Execute(m, seed+int64(i))
		})
	}
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			trace, err := futures[i].Get()
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			results[i] = RunResult{Run: i, Steps: len(trace.Steps), Deadlocked: trace.Deadlocked}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	vr := &VerifyResult{Runs: results}
	for _, r := range results {
		if r.Deadlocked {
			vr.Deadlocked++
		}
	}
	return vr, nil
}

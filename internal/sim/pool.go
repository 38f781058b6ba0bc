package sim

import "github.com/panjf2000/ants/v2"

// Pool is the common interface Verify's fan-out drives work through:
// any goroutine-pool implementation that can accept a bare func() task
// satisfies it. SCAN wires exactly one backing (ants) rather than
// carrying a full set of interchangeable adapters, since there is a
// single call site (the `verify --runs N` runner).
type Pool interface {
	Go(f func())
}

type antsPool struct{ p *ants.Pool }

// NewAntsPool creates a Pool backed by a bounded panjf2000/ants worker
// pool of the given size.
func NewAntsPool(size int) (Pool, func(), error) {
	p, err := ants.NewPool(size)
	if err != nil {
		return nil, nil, err
	}
	return antsPool{p: p}, p.Release, nil
}

func (a antsPool) Go(f func()) {
	// Submit only fails if the pool is closed or overloaded with a
	// non-blocking queue; neither applies to Verify's bounded,
	// known-in-advance run count. If it fails anyway, the task runs on a
	// goroutine of its own instead of being silently dropped.
	if err := a.p.Submit(f); err != nil {
		go f()
	}
}

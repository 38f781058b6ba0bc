package sim

import "sync"

// future is a minimal asynchronous result cell: a task submitted to a
// Pool, whose result is read once via Get. SCAN only needs the subset
// Verify's fan-out exercises (submit, block for result); cancellation/
// timeout/context variants have no caller in a driver that always runs
// every submitted simulation to completion.
type future[V any] struct {
	done  chan struct{}
	once  sync.Once
	value V
	err   error
}

// runFuture submits task to pool and returns a handle whose Get blocks
// until task has run.
func runFuture[V any](pool Pool, task func() (V, error)) *future[V] {
	f := &future[V]{done: make(chan struct{})}
	pool.Go(func() {
		v, err := task()
		f.once.Do(func() {
			f.value, f.err = v, err
			close(f.done)
		})
	})
	return f
}

// Get blocks until the future completes and returns its result.
func (f *future[V]) Get() (V, error) {
	<-f.done
	return f.value, f.err
}

package sim

import "math/rand/v2"

// selector picks uniformly among enabled moves from a seeded source, so
// a simulation run is reproducible given its seed. It is a small type
// rather than a package-level function because Verify needs one
// independent source per concurrent run, not one shared global one.
type selector struct {
	rng *rand.Rand
}

func newSelector(seed int64) *selector {
	return &selector{rng: rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))}
}

// choose returns a random index in [0, n). It panics if n <= 0.
func (s *selector) choose(n int) int {
	if n <= 0 {
		panic("sim: choose called with n <= 0")
	}
	return s.rng.IntN(n)
}

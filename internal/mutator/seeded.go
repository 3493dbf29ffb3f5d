package mutator

import "math/rand"

// seededRand is the production Rand backed by math/rand, seeded explicitly
// rather than drawing from the package-level global so a run can be
// reproduced end to end from a single int64.
type seededRand struct {
	r *rand.Rand
}

// NewSeededRand returns a Rand seeded with seed.
func NewSeededRand(seed int64) Rand {
	return &seededRand{r: rand.New(rand.NewSource(seed))}
}

func (s *seededRand) Next(n int) int {
	if n <= 1 {
		return 0
	}
	return s.r.Intn(n)
}

func (s *seededRand) Uint32() uint32 {
	return s.r.Uint32()
}

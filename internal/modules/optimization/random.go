package optimization

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/mathext/prng"
)

// RandomSource is an injected source of uniform randomness in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it; tests substitute scripted sources.
type RandomSource interface {
	Float64() float64
}

// NewSeededSource returns a reproducible uniform source backed by a 64-bit Mersenne Twister.
func NewSeededSource(seed uint64) *rand.Rand {
	src := prng.NewMT19937_64()
	src.Seed(seed)
	return rand.New(src)
}

// NewBatchSource returns the independent source used by batch b of a partitioned run.
// The batch index is folded into the generator key, so every (seed, batch) pair owns
// its own sub-sequence regardless of which worker executes it.
func NewBatchSource(seed uint64, batch int) *rand.Rand {
	src := prng.NewMT19937_64()
	src.SeedFromKeys([]uint64{seed, uint64(batch)})
	return rand.New(src)
}

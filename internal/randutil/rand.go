// Package randutil derives reproducible random sources from user-facing
// integer seeds.
package randutil

import "golang.org/x/exp/rand"

const goldenRatio64 = 0x9e3779b97f4a7c15

// NewSource returns a rand.Source seeded deterministically from seed. Nearby
// seeds are spread across the state space so episode seeds 1, 2, 3 do not
// produce correlated streams.
func NewSource(seed int64) rand.Source {
	return rand.NewSource(mix(uint64(seed) + goldenRatio64))
}

// New wraps NewSource in a *rand.Rand.
func New(seed int64) *rand.Rand {
	return rand.New(NewSource(seed))
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

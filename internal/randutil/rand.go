package randutil

import (
	rand "math/rand/v2"

	"github.com/dchest/siphash"
)

const (
	goldenRatio64 = 0x9e3779b97f4a7c15
)

// New returns a *rand.Rand seeded deterministically from the provided int64.
// The helper centralises how we derive the two 64-bit seeds required by rand/v2
// so that all call sites get reproducible sequences.
func New(seed int64) *rand.Rand {
	u := uint64(seed)
	return rand.New(rand.NewPCG(mix(u), mix(u+goldenRatio64)))
}

// FromBytes returns a *rand.Rand derived from arbitrary seed bytes such as a
// block hash. The label separates independent streams drawn from the same
// seed. Identical (label, seed) pairs always yield identical sequences.
func FromBytes(label string, seed []byte) *rand.Rand {
	k0, k1 := labelKeys(label)
	lo, hi := siphash.Hash128(k0, k1, seed)
	return rand.New(rand.NewPCG(mix(lo), mix(hi^goldenRatio64)))
}

func labelKeys(label string) (uint64, uint64) {
	h := siphash.Hash(0, goldenRatio64, []byte(label))
	return h, mix(h)
}

func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

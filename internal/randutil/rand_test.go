package randutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsDeterministic(t *testing.T) {
	t.Parallel()

	a, b := New(42), New(42)
	for i := 0; i < 32; i++ {
		require.Equal(t, a.Uint64(), b.Uint64(), "draw %d", i)
	}
}

func TestFromBytesIsDeterministic(t *testing.T) {
	t.Parallel()

	seed := []byte("block-hash-0001")
	a, b := FromBytes("deal", seed), FromBytes("deal", seed)
	for i := 0; i < 32; i++ {
		require.Equal(t, a.IntN(13), b.IntN(13), "draw %d", i)
	}
}

func TestFromBytesSeparatesLabelsAndSeeds(t *testing.T) {
	t.Parallel()

	seed := []byte("block-hash-0001")
	first := func(label string, seed []byte) []uint64 {
		r := FromBytes(label, seed)
		out := make([]uint64, 4)
		for i := range out {
			out[i] = r.Uint64()
		}
		return out
	}

	assert.NotEqual(t, first("deal", seed), first("hit", seed))
	assert.NotEqual(t, first("deal", seed), first("deal", []byte("block-hash-0002")))
}

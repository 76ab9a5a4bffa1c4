/*
Package rand defines methods of obtaining random number generators requiring or not requiring
cryptographically secure randomness, and exposing them behind the familiar math/rand API.

One is expected to use randomness from this package only:

	import "github.com/byzantron-research/aibyz-dataset/crypto/rand"
	randGen := rand.NewGenerator()
	num := randGen.Intn(32)

The simulator, which must be reproducible under a fixed seed, relies on NewSeededGenerator.
*/
package rand

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
)

type source struct{}

var lock sync.RWMutex

// Seed does nothing when crypto/rand is used as source.
func (_ *source) Seed(_ int64) {}

// Int63 returns uniformly-distributed random (as in CSPRNG) int64 value within [0, 1<<63) range.
// Panics if random generator reader cannot return data.
func (s *source) Int63() int64 {
	return int64(s.Uint64() & ^uint64(1<<63))
}

// Uint64 returns uniformly-distributed random (as in CSPRNG) uint64 value within [0, 1<<64) range.
// Panics if random generator reader cannot return data.
func (_ *source) Uint64() (val uint64) {
	lock.RLock()
	defer lock.RUnlock()
	if err := binary.Read(rand.Reader, binary.BigEndian, &val); err != nil {
		panic(err)
	}
	return
}

// NewGenerator returns a new generator that uses random values from crypto/rand as a source
// (cryptographically secure random number generator).
// Panics if crypto/rand input cannot be read.
// Use it for everything where crypto secure non-deterministic randomness is required. Performance
// takes a hit, so use sparingly.
func NewGenerator() *mrand.Rand {
	return mrand.New(&source{}) // #nosec G404 -- excluded
}

// NewDeterministicGenerator returns a random generator which is only seeded with a constant value.
// This generator is not cryptographically secure and must be used only in tests.
func NewDeterministicGenerator() *mrand.Rand {
	return mrand.New(mrand.NewSource(33)) // #nosec G404 -- excluded
}

// NewSeededGenerator returns a random generator seeded with the given value. Two generators with
// the same seed produce identical sequences, which keeps synthetic datasets reproducible.
// Not cryptographically secure.
func NewSeededGenerator(seed int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed)) // #nosec G404 -- excluded
}

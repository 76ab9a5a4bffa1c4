package hash

import (
	"encoding/hex"
	"testing"

	"github.com/byzantron-research/aibyz-dataset/testing/assert"
)

func TestHash(t *testing.T) {
	hashOf0 := [32]byte{110, 52, 11, 156, 255, 179, 122, 152, 156, 165, 68, 230, 187, 120, 10, 44, 120, 144, 29, 63, 179, 55, 56, 118, 133, 17, 163, 6, 23, 175, 160, 29}
	h := Hash([]byte{0})
	assert.Equal(t, hashOf0, h)

	hashOf1 := [32]byte{75, 245, 18, 47, 52, 69, 84, 197, 59, 222, 46, 187, 140, 210, 183, 227, 209, 96, 10, 214, 49, 195, 133, 165, 215, 204, 226, 60, 119, 133, 69, 154}
	h = Hash([]byte{1})
	assert.Equal(t, hashOf1, h)
	assert.Equal(t, false, hashOf0 == hashOf1)
}

func TestFastSum64_Stable(t *testing.T) {
	a := FastSum64([]byte("v-1|2024-01-01T00:00:00Z|real"))
	b := FastSum64([]byte("v-1|2024-01-01T00:00:00Z|real"))
	c := FastSum64([]byte("v-1|2024-01-01T00:00:00Z|synthetic"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestBlake2b_HexIdentity(t *testing.T) {
	d := Blake2b([]byte("seed-0"))
	assert.Equal(t, 64, len(hex.EncodeToString(d[:])))
	assert.DeepEqual(t, d, Blake2b([]byte("seed-0")))
	assert.Equal(t, false, d == Blake2b([]byte("seed-1")))
}

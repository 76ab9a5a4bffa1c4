// Package hash includes all hashing utilities used across the dataset
// pipeline: sha256 checksums for exported files, highwayhash fingerprints
// for record dedup, and blake2b digests for synthetic identities.
package hash

import (
	"hash"
	"sync"

	"github.com/minio/highwayhash"
	"github.com/minio/sha256-simd"
	"golang.org/x/crypto/blake2b"
)

var sha256Pool = sync.Pool{New: func() interface{} {
	return sha256.New()
}}

// Hash defines a function that returns the sha256 checksum of the data passed in.
func Hash(data []byte) [32]byte {
	h, ok := sha256Pool.Get().(hash.Hash)
	if !ok {
		h = sha256.New()
	}
	defer sha256Pool.Put(h)
	h.Reset()

	var b [32]byte

	// The hash interface never returns an error, for that reason
	// we are not handling the error below. For reference, it is
	// stated here https://golang.org/pkg/hash/#Hash

	// #nosec G104
	h.Write(data)
	h.Sum(b[:0])

	return b
}

var fastSumHashKey = to32([]byte("record_fast_sum64_key"))

// FastSum64 returns a hash sum of the input data using highwayhash. This method is not secure, but
// may be used as a quick identifier for objects where collisions are acceptable.
func FastSum64(data []byte) uint64 {
	return highwayhash.Sum64(data, fastSumHashKey[:])
}

// Blake2b returns a blake2b-512 digest truncated to 32 bytes. Synthetic
// validator identities are minted from these digests so they resemble the
// hex-encoded keys of real networks.
func Blake2b(data []byte) [32]byte {
	var out [32]byte
	h := blake2b.Sum512(data)
	copy(out[:], h[:32])
	return out
}

func to32(b []byte) [32]byte {
	var key [32]byte
	copy(key[:], b)
	return key
}

package kv

import (
	"encoding/binary"
)

// The schema will define how to store and retrieve data in the db. Raw
// buckets are keyed by chain-scoped composite keys so that per-chain scans
// are prefix scans.
var (
	rawBlocksBucket       = []byte("raw-blocks")
	rawValidatorsBucket   = []byte("raw-validators")
	rawAttestationsBucket = []byte("raw-attestations")
	rawPenaltiesBucket    = []byte("raw-penalties")
	rawPerformanceBucket  = []byte("raw-performance")
	syntheticRowsBucket   = []byte("synthetic-rows")
	enrichedRecordsBucket = []byte("enriched-records")
	progressBucket        = []byte("collection-progress")
	manifestsBucket       = []byte("export-manifests")
)

// chainKey builds a composite key <chain>:<suffix>.
func chainKey(chainID string, suffix []byte) []byte {
	key := make([]byte, 0, len(chainID)+1+len(suffix))
	key = append(key, chainID...)
	key = append(key, ':')
	return append(key, suffix...)
}

// chainPrefix is the prefix shared by every key of one chain.
func chainPrefix(chainID string) []byte {
	return []byte(chainID + ":")
}

func uint64Key(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

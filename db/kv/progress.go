package kv

import (
	"context"
	"encoding/binary"

	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// ProgressMark returns the collection high-water mark for a chain and table.
// The second return value reports whether a mark exists at all.
func (s *Store) ProgressMark(ctx context.Context, chainID, table string) (uint64, bool, error) {
	_, span := trace.StartSpan(ctx, "dbKV.ProgressMark")
	defer span.End()
	var mark uint64
	var exists bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(progressBucket).Get(chainKey(chainID, []byte(table)))
		if len(v) == 8 {
			mark = binary.BigEndian.Uint64(v)
			exists = true
		}
		return nil
	})
	return mark, exists, err
}

// SaveProgressMark records the collection high-water mark for a chain and
// table. Marks only move forward; a lower mark is ignored.
func (s *Store) SaveProgressMark(ctx context.Context, chainID, table string, mark uint64) error {
	_, span := trace.StartSpan(ctx, "dbKV.SaveProgressMark")
	defer span.End()
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(progressBucket)
		key := chainKey(chainID, []byte(table))
		if v := bkt.Get(key); len(v) == 8 && binary.BigEndian.Uint64(v) >= mark {
			return nil
		}
		return bkt.Put(key, uint64Key(mark))
	})
}

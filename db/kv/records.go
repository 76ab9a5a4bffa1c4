package kv

import (
	"context"
	"fmt"

	"github.com/byzantron-research/aibyz-dataset/dataset"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// SaveSyntheticRows persists simulator output rows.
func (s *Store) SaveSyntheticRows(ctx context.Context, rows []*dataset.SyntheticEpochRow) error {
	_, span := trace.StartSpan(ctx, "dbKV.SaveSyntheticRows")
	defer span.End()
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(syntheticRowsBucket)
		for _, row := range rows {
			key := []byte(fmt.Sprintf("%s:%020d", row.ValidatorID, row.Epoch))
			if err := putCompressed(bkt, key, row); err != nil {
				return err
			}
		}
		return nil
	})
}

// SyntheticRows returns every stored simulator row.
func (s *Store) SyntheticRows(ctx context.Context) ([]*dataset.SyntheticEpochRow, error) {
	_, span := trace.StartSpan(ctx, "dbKV.SyntheticRows")
	defer span.End()
	rows := make([]*dataset.SyntheticEpochRow, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(syntheticRowsBucket).ForEach(func(_, v []byte) error {
			row := &dataset.SyntheticEpochRow{}
			if err := decodeCompressed(v, row); err != nil {
				return err
			}
			rows = append(rows, row)
			return nil
		})
	})
	return rows, err
}

// SaveEnrichedRecords persists unified validator records keyed by their
// dedup fingerprint. Saving the same observation twice is a no-op overwrite.
func (s *Store) SaveEnrichedRecords(ctx context.Context, records []*dataset.ValidatorRecord) error {
	_, span := trace.StartSpan(ctx, "dbKV.SaveEnrichedRecords")
	defer span.End()
	if err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(enrichedRecordsBucket)
		for _, rec := range records {
			if err := putCompressed(bkt, uint64Key(rec.Fingerprint()), rec); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return err
	}
	for _, rec := range records {
		s.recordCache.Set(rec.Fingerprint(), rec, 1)
	}
	return nil
}

// EnrichedRecord returns a single record by fingerprint, consulting the
// ristretto cache before hitting bolt.
func (s *Store) EnrichedRecord(ctx context.Context, fingerprint uint64) (*dataset.ValidatorRecord, error) {
	_, span := trace.StartSpan(ctx, "dbKV.EnrichedRecord")
	defer span.End()
	if cached, ok := s.recordCache.Get(fingerprint); ok {
		if rec, ok := cached.(*dataset.ValidatorRecord); ok {
			return rec, nil
		}
	}
	var rec *dataset.ValidatorRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(enrichedRecordsBucket).Get(uint64Key(fingerprint))
		if v == nil {
			return nil
		}
		rec = &dataset.ValidatorRecord{}
		return decodeCompressed(v, rec)
	})
	if rec != nil {
		s.recordCache.Set(fingerprint, rec, 1)
	}
	return rec, err
}

// EnrichedRecords returns every stored validator record.
func (s *Store) EnrichedRecords(ctx context.Context) ([]*dataset.ValidatorRecord, error) {
	_, span := trace.StartSpan(ctx, "dbKV.EnrichedRecords")
	defer span.End()
	records := make([]*dataset.ValidatorRecord, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(enrichedRecordsBucket).ForEach(func(_, v []byte) error {
			rec := &dataset.ValidatorRecord{}
			if err := decodeCompressed(v, rec); err != nil {
				return err
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}

// SaveManifest stores the manifest of a finished export run.
func (s *Store) SaveManifest(ctx context.Context, runID string, manifest []byte) error {
	_, span := trace.StartSpan(ctx, "dbKV.SaveManifest")
	defer span.End()
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(manifestsBucket).Put([]byte(runID), manifest)
	})
}

// Manifest returns a stored export manifest by run ID, or nil when unknown.
func (s *Store) Manifest(ctx context.Context, runID string) ([]byte, error) {
	_, span := trace.StartSpan(ctx, "dbKV.Manifest")
	defer span.End()
	var manifest []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(manifestsBucket).Get([]byte(runID))
		if v != nil {
			manifest = append(manifest, v...)
		}
		return nil
	})
	return manifest, err
}

package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/byzantron-research/aibyz-dataset/dataset"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
	"go.opencensus.io/trace"
)

// SaveRawBatch persists every row of a collected batch. Rows are upserts:
// re-collecting a window overwrites identical keys instead of duplicating.
func (s *Store) SaveRawBatch(ctx context.Context, batch *dataset.RawBatch) error {
	_, span := trace.StartSpan(ctx, "dbKV.SaveRawBatch")
	defer span.End()
	return s.db.Update(func(tx *bolt.Tx) error {
		for _, row := range batch.Blocks {
			key := chainKey(batch.ChainID, uint64Key(row.Slot))
			if err := putCompressed(tx.Bucket(rawBlocksBucket), key, row); err != nil {
				return err
			}
		}
		for _, row := range batch.Validators {
			key := chainKey(batch.ChainID, []byte(row.Index))
			if err := putCompressed(tx.Bucket(rawValidatorsBucket), key, row); err != nil {
				return err
			}
		}
		for _, row := range batch.Attestations {
			suffix := append(uint64Key(row.Slot), uint64Key(row.CommitteeIndex)...)
			key := chainKey(batch.ChainID, suffix)
			if err := putCompressed(tx.Bucket(rawAttestationsBucket), key, row); err != nil {
				return err
			}
		}
		for _, row := range batch.Penalties {
			suffix := []byte(fmt.Sprintf("%020d:%s:%s", row.Slot, row.Kind, row.ValidatorID))
			key := chainKey(batch.ChainID, suffix)
			if err := putCompressed(tx.Bucket(rawPenaltiesBucket), key, row); err != nil {
				return err
			}
		}
		for _, row := range batch.Performance {
			key := chainKey(batch.ChainID, uint64Key(row.ValidatorIndex))
			if err := putCompressed(tx.Bucket(rawPerformanceBucket), key, row); err != nil {
				return err
			}
		}
		return nil
	})
}

// BlockRows returns all collected blocks for a chain.
func (s *Store) BlockRows(ctx context.Context, chainID string) ([]*dataset.BlockRow, error) {
	_, span := trace.StartSpan(ctx, "dbKV.BlockRows")
	defer span.End()
	rows := make([]*dataset.BlockRow, 0)
	err := scanChain(s.db, rawBlocksBucket, chainID, func(v []byte) error {
		row := &dataset.BlockRow{}
		if err := decodeCompressed(v, row); err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

// ValidatorRows returns the stored validator set snapshot for a chain.
func (s *Store) ValidatorRows(ctx context.Context, chainID string) ([]*dataset.ValidatorRow, error) {
	_, span := trace.StartSpan(ctx, "dbKV.ValidatorRows")
	defer span.End()
	rows := make([]*dataset.ValidatorRow, 0)
	err := scanChain(s.db, rawValidatorsBucket, chainID, func(v []byte) error {
		row := &dataset.ValidatorRow{}
		if err := decodeCompressed(v, row); err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

// AttestationRows returns all collected attestations for a chain.
func (s *Store) AttestationRows(ctx context.Context, chainID string) ([]*dataset.AttestationRow, error) {
	_, span := trace.StartSpan(ctx, "dbKV.AttestationRows")
	defer span.End()
	rows := make([]*dataset.AttestationRow, 0)
	err := scanChain(s.db, rawAttestationsBucket, chainID, func(v []byte) error {
		row := &dataset.AttestationRow{}
		if err := decodeCompressed(v, row); err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

// PenaltyRows returns all collected penalties for a chain.
func (s *Store) PenaltyRows(ctx context.Context, chainID string) ([]*dataset.PenaltyRow, error) {
	_, span := trace.StartSpan(ctx, "dbKV.PenaltyRows")
	defer span.End()
	rows := make([]*dataset.PenaltyRow, 0)
	err := scanChain(s.db, rawPenaltiesBucket, chainID, func(v []byte) error {
		row := &dataset.PenaltyRow{}
		if err := decodeCompressed(v, row); err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

// PerformanceRows returns all stored explorer performance rows for a chain.
func (s *Store) PerformanceRows(ctx context.Context, chainID string) ([]*dataset.PerformanceRow, error) {
	_, span := trace.StartSpan(ctx, "dbKV.PerformanceRows")
	defer span.End()
	rows := make([]*dataset.PerformanceRow, 0)
	err := scanChain(s.db, rawPerformanceBucket, chainID, func(v []byte) error {
		row := &dataset.PerformanceRow{}
		if err := decodeCompressed(v, row); err != nil {
			return err
		}
		rows = append(rows, row)
		return nil
	})
	return rows, err
}

func putCompressed(bkt *bolt.Bucket, key []byte, v interface{}) error {
	enc, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "could not marshal row")
	}
	return bkt.Put(key, snappy.Encode(nil, enc))
}

func decodeCompressed(data []byte, v interface{}) error {
	dec, err := snappy.Decode(nil, data)
	if err != nil {
		return errors.Wrap(err, "could not decompress row")
	}
	return json.Unmarshal(dec, v)
}

func scanChain(db *bolt.DB, bucket []byte, chainID string, fn func(v []byte) error) error {
	prefix := chainPrefix(chainID)
	return db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if err := fn(v); err != nil {
				return err
			}
		}
		return nil
	})
}

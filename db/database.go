// Package db defines the persistence interface between pipeline stages. The
// only implementation is the bbolt-backed store in db/kv.
package db

import (
	"context"
	"io"

	"github.com/byzantron-research/aibyz-dataset/dataset"
)

// Database is the intermediate store every stage reads from and writes to.
type Database interface {
	io.Closer
	DatabasePath() string
	ClearDB() error
	Size() (int64, error)

	// Raw layer (collector).
	SaveRawBatch(ctx context.Context, batch *dataset.RawBatch) error
	BlockRows(ctx context.Context, chainID string) ([]*dataset.BlockRow, error)
	ValidatorRows(ctx context.Context, chainID string) ([]*dataset.ValidatorRow, error)
	AttestationRows(ctx context.Context, chainID string) ([]*dataset.AttestationRow, error)
	PenaltyRows(ctx context.Context, chainID string) ([]*dataset.PenaltyRow, error)
	PerformanceRows(ctx context.Context, chainID string) ([]*dataset.PerformanceRow, error)

	// Collection progress high-water marks, per chain and table.
	ProgressMark(ctx context.Context, chainID, table string) (uint64, bool, error)
	SaveProgressMark(ctx context.Context, chainID, table string, mark uint64) error

	// Synthetic rows (simulator).
	SaveSyntheticRows(ctx context.Context, rows []*dataset.SyntheticEpochRow) error
	SyntheticRows(ctx context.Context) ([]*dataset.SyntheticEpochRow, error)

	// Enriched records (enricher output, finalizer input).
	SaveEnrichedRecords(ctx context.Context, records []*dataset.ValidatorRecord) error
	EnrichedRecords(ctx context.Context) ([]*dataset.ValidatorRecord, error)

	// Export manifest history.
	SaveManifest(ctx context.Context, runID string, manifest []byte) error
	Manifest(ctx context.Context, runID string) ([]byte, error)
}

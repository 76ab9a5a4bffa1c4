package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/byzantron-research/aibyz-dataset/dataset"
	"github.com/byzantron-research/aibyz-dataset/testing/assert"
	"github.com/byzantron-research/aibyz-dataset/testing/require"
)

func setupDB(t testing.TB) *Store {
	store, err := NewKVStore(filepath.Join(t.TempDir(), "data"), &Config{})
	require.NoError(t, err, "Failed to instantiate DB")
	t.Cleanup(func() {
		require.NoError(t, store.Close(), "Failed to close database")
	})
	return store
}

func TestSaveRawBatchRoundtrip(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	batch := &dataset.RawBatch{
		ChainID: "eth2",
		Network: "mainnet",
		Blocks: []*dataset.BlockRow{
			{ChainID: "eth2", Network: "mainnet", Slot: 101, Proposer: "7"},
			{ChainID: "eth2", Network: "mainnet", Slot: 100, Proposer: "3"},
		},
		Validators: []*dataset.ValidatorRow{
			{ChainID: "eth2", Network: "mainnet", Index: "3", Balance: 32000000000, Status: "active_ongoing"},
		},
		Attestations: []*dataset.AttestationRow{
			{ChainID: "eth2", Network: "mainnet", Slot: 100, CommitteeIndex: 2, AggregationBits: 64},
		},
		Penalties: []*dataset.PenaltyRow{
			{ChainID: "eth2", Network: "mainnet", Slot: 100, ValidatorID: "9", Kind: dataset.PenaltyProposerSlashing},
		},
	}
	require.NoError(t, db.SaveRawBatch(ctx, batch))

	blocks, err := db.BlockRows(ctx, "eth2")
	require.NoError(t, err)
	require.Equal(t, 2, len(blocks))
	// Big-endian keys keep slot order.
	assert.Equal(t, uint64(100), blocks[0].Slot)
	assert.Equal(t, uint64(101), blocks[1].Slot)

	validators, err := db.ValidatorRows(ctx, "eth2")
	require.NoError(t, err)
	require.Equal(t, 1, len(validators))
	assert.Equal(t, uint64(32000000000), validators[0].Balance)

	atts, err := db.AttestationRows(ctx, "eth2")
	require.NoError(t, err)
	require.Equal(t, 1, len(atts))

	penalties, err := db.PenaltyRows(ctx, "eth2")
	require.NoError(t, err)
	require.Equal(t, 1, len(penalties))
	assert.Equal(t, dataset.PenaltyProposerSlashing, penalties[0].Kind)

	// Other chains see nothing.
	other, err := db.BlockRows(ctx, "cosmos")
	require.NoError(t, err)
	assert.Equal(t, 0, len(other))
}

func TestSaveRawBatchIsUpsert(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	row := &dataset.BlockRow{ChainID: "eth2", Network: "mainnet", Slot: 55, Proposer: "1"}
	batch := &dataset.RawBatch{ChainID: "eth2", Network: "mainnet", Blocks: []*dataset.BlockRow{row}}
	require.NoError(t, db.SaveRawBatch(ctx, batch))
	require.NoError(t, db.SaveRawBatch(ctx, batch))
	blocks, err := db.BlockRows(ctx, "eth2")
	require.NoError(t, err)
	assert.Equal(t, 1, len(blocks))
}

func TestProgressMarkMovesForwardOnly(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_, exists, err := db.ProgressMark(ctx, "eth2", dataset.TableBlocks)
	require.NoError(t, err)
	assert.Equal(t, false, exists)

	require.NoError(t, db.SaveProgressMark(ctx, "eth2", dataset.TableBlocks, 500))
	require.NoError(t, db.SaveProgressMark(ctx, "eth2", dataset.TableBlocks, 400))

	mark, exists, err := db.ProgressMark(ctx, "eth2", dataset.TableBlocks)
	require.NoError(t, err)
	assert.Equal(t, true, exists)
	assert.Equal(t, uint64(500), mark)
}

func TestEnrichedRecordsRoundtrip(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	rec := &dataset.ValidatorRecord{
		ValidatorID: "42", Timestamp: "2026-08-01T00:00:00Z", Uptime: 0.97,
		StakeAmount: 32, TrustScore: 0.582, MessageEntropy: 1.2, PeerFeedback: 0.5,
		BehaviorLabel: dataset.LabelHonest, Source: dataset.SourceReal,
	}
	require.NoError(t, db.SaveEnrichedRecords(ctx, []*dataset.ValidatorRecord{rec}))

	got, err := db.EnrichedRecord(ctx, rec.Fingerprint())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.DeepEqual(t, rec, got)

	all, err := db.EnrichedRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, len(all))

	missing, err := db.EnrichedRecord(ctx, 0xdeadbeef)
	require.NoError(t, err)
	assert.Equal(t, (*dataset.ValidatorRecord)(nil), missing)
}

func TestSyntheticRowsRoundtrip(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	rows := []*dataset.SyntheticEpochRow{
		{ValidatorID: "0xabc", Profile: dataset.LabelHonest, Epoch: 3, PeerFeedback: 0.9, StakeAmount: 32},
		{ValidatorID: "0xabc", Profile: dataset.LabelHonest, Epoch: 4, PeerFeedback: 0.92, StakeAmount: 32},
	}
	require.NoError(t, db.SaveSyntheticRows(ctx, rows))
	got, err := db.SyntheticRows(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, len(got))
	assert.Equal(t, uint64(3), got[0].Epoch)
}

func TestManifestRoundtrip(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	require.NoError(t, db.SaveManifest(ctx, "run-1", []byte(`{"dataset":"aibyz"}`)))
	got, err := db.Manifest(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, `{"dataset":"aibyz"}`, string(got))

	none, err := db.Manifest(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, 0, len(none))
}

func TestSecondStoreToleratesRegisteredBoltMetrics(t *testing.T) {
	// The bolt collector is registered once per process; a second store must
	// still open cleanly when registration reports a duplicate.
	first := setupDB(t)
	second := setupDB(t)
	require.NotNil(t, first)
	require.NotNil(t, second)
	_, err := second.Size()
	require.NoError(t, err)
}

func TestClearDB(t *testing.T) {
	store, err := NewKVStore(filepath.Join(t.TempDir(), "data"), &Config{})
	require.NoError(t, err)
	path := store.DatabasePath()
	require.NoError(t, store.Close())
	require.NoError(t, store.ClearDB())
	_, err = store.Size()
	assert.NotNil(t, err, "Size should fail after the datafile is removed")
	assert.Equal(t, path, store.DatabasePath())
}

package enricher_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/dataset"
	"github.com/byzantron-research/aibyz-dataset/db/kv"
	"github.com/byzantron-research/aibyz-dataset/enricher"
	"github.com/byzantron-research/aibyz-dataset/io/file"
	"github.com/byzantron-research/aibyz-dataset/simulator"
	"github.com/byzantron-research/aibyz-dataset/testing/assert"
	"github.com/byzantron-research/aibyz-dataset/testing/require"
	"github.com/prysmaticlabs/go-bitfield"
)

func setupDB(t testing.TB) *kv.Store {
	store, err := kv.NewKVStore(filepath.Join(t.TempDir(), "data"), &kv.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func seedRealChain(t *testing.T, store *kv.Store) {
	batch := &dataset.RawBatch{
		ChainID: "eth2",
		Network: "mainnet",
		Blocks: []*dataset.BlockRow{
			{ChainID: "eth2", Network: "mainnet", Slot: 100, Proposer: "1"},
			{ChainID: "eth2", Network: "mainnet", Slot: 101, Proposer: "2"},
		},
		Validators: []*dataset.ValidatorRow{
			{ChainID: "eth2", Network: "mainnet", Index: "1", Balance: 32000000000, EffectiveBalance: 32000000000, Status: "active_ongoing"},
			{ChainID: "eth2", Network: "mainnet", Index: "2", Balance: 31000000000, EffectiveBalance: 31000000000, Status: "active_ongoing", Slashed: true},
		},
		Penalties: []*dataset.PenaltyRow{
			{ChainID: "eth2", Network: "mainnet", Slot: 100, ValidatorID: "2", Kind: dataset.PenaltyProposerSlashing},
		},
		Performance: []*dataset.PerformanceRow{
			{ChainID: "eth2", Network: "mainnet", ValidatorIndex: 1, Balance7d: 1500000},
		},
	}
	require.NoError(t, store.SaveRawBatch(context.Background(), batch))
}

func TestEnrichRealChain(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	store := setupDB(t)
	seedRealChain(t, store)

	e := enricher.New(store, "", []enricher.Chain{{ID: "eth2", Network: "mainnet"}})
	records, err := e.Enrich(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, len(records))

	byID := map[string]*dataset.ValidatorRecord{}
	for _, r := range records {
		byID[r.ValidatorID] = r
		assert.Equal(t, dataset.SourceReal, r.Source)
		assert.Equal(t, true, r.TrustScore >= 0 && r.TrustScore <= 1)
	}
	// Validator 1: healthy but trust tops out at 0.6, below the honest
	// threshold; positive 7d performance lifts feedback.
	assert.Equal(t, dataset.LabelUnstable, byID["1"].BehaviorLabel)
	assert.Equal(t, 0.6, byID["1"].TrustScore)
	assert.Equal(t, 0.75, byID["1"].PeerFeedback)
	assert.Equal(t, 32.0, byID["1"].StakeAmount)
	// Validator 2: slashed, labeled byzantine, neutral feedback.
	assert.Equal(t, dataset.LabelByzantine, byID["2"].BehaviorLabel)
	assert.Equal(t, uint64(1), byID["2"].SlashingEvents)
	assert.Equal(t, 0.5, byID["2"].PeerFeedback)
}

func TestEnrichSyntheticKeepsGroundTruthLabels(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	store := setupDB(t)

	p := simulator.DefaultParams()
	p.NumValidators = 20
	p.NumEpochs = 4
	sim, err := simulator.New(store, p)
	require.NoError(t, err)
	_, err = sim.Generate(context.Background(), "")
	require.NoError(t, err)

	e := enricher.New(store, "", nil)
	records, err := e.Enrich(context.Background())
	require.NoError(t, err)
	require.Equal(t, 20, len(records), "4 epochs share one synthetic day per validator")

	labels := map[string]bool{}
	for _, r := range records {
		assert.Equal(t, dataset.SourceSynthetic, r.Source)
		assert.Equal(t, true, dataset.ValidLabel(r.BehaviorLabel))
		labels[r.BehaviorLabel] = true
	}
	assert.Equal(t, true, labels[dataset.LabelHonest])
	assert.Equal(t, true, labels[dataset.LabelOffline])
}

func TestEnrichDedupsExactDuplicates(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	store := setupDB(t)
	seedRealChain(t, store)

	// The same chain twice produces identical (validator, timestamp, source)
	// fingerprints; the duplicates must be dropped.
	chains := []enricher.Chain{
		{ID: "eth2", Network: "mainnet"},
		{ID: "eth2", Network: "mainnet"},
	}
	e := enricher.New(store, "", chains)
	records, err := e.Enrich(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, len(records))
}

func TestEnrichWritesAggregatePartitions(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	store := setupDB(t)
	seedRealChain(t, store)
	root := t.TempDir()

	e := enricher.New(store, root, []enricher.Chain{{ID: "eth2", Network: "mainnet"}})
	_, err := e.Enrich(context.Background())
	require.NoError(t, err)

	stats, err := filepath.Glob(filepath.Join(root, "features", enricher.TableValidatorStatsDaily, "chain_id=eth2", "network=mainnet", "date=*", "part-0000.csv"))
	require.NoError(t, err)
	require.Equal(t, 1, len(stats))
	signals, err := filepath.Glob(filepath.Join(root, "features", enricher.TableTrustSignalsDaily, "chain_id=eth2", "network=mainnet", "date=*", "part-0000.csv"))
	require.NoError(t, err)
	require.Equal(t, 1, len(signals))
	assert.Equal(t, true, file.FileExists(stats[0]))
}

func TestUptimeFromSyntheticDutyBits(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	store := setupDB(t)

	bits := bitfield.NewBitlist(8)
	for i := uint64(0); i < 4; i++ {
		bits.SetBitAt(i, true)
	}
	rows := []*dataset.SyntheticEpochRow{{
		ValidatorID: "0xaa",
		Profile:     dataset.LabelUnstable,
		Epoch:       0,
		Timestamp:   "2020-12-01T12:00:23Z",
		DutyBits:    bits,
		Gossip:      map[string]uint64{"attestation": 4},
	}}
	require.NoError(t, store.SaveSyntheticRows(context.Background(), rows))

	e := enricher.New(store, "", nil)
	records, err := e.Enrich(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, len(records))
	assert.Equal(t, 0.5, records[0].Uptime, "4 of 8 duty bits set")
	assert.Equal(t, uint64(4), records[0].MissedAttestations)
	assert.Equal(t, dataset.LabelUnstable, records[0].BehaviorLabel)
}

package collector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/dataset"
	"github.com/byzantron-research/aibyz-dataset/db/kv"
	"github.com/byzantron-research/aibyz-dataset/testing/assert"
	"github.com/byzantron-research/aibyz-dataset/testing/require"
)

type fakeChain struct {
	mu       sync.Mutex
	head     uint64
	lookback uint64
	units    []uint64
	snapshot []string
}

func (f *fakeChain) ChainID() string  { return "fake" }
func (f *fakeChain) Network() string  { return "testnet" }
func (f *fakeChain) Lookback() uint64 { return f.lookback }

func (f *fakeChain) Head(_ context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeChain) Unit(_ context.Context, unit uint64) (*dataset.RawBatch, error) {
	f.mu.Lock()
	f.units = append(f.units, unit)
	f.mu.Unlock()
	return &dataset.RawBatch{
		ChainID: "fake",
		Network: "testnet",
		Blocks: []*dataset.BlockRow{
			{ChainID: "fake", Network: "testnet", Slot: unit, Proposer: fmt.Sprintf("%d", unit%4)},
		},
	}, nil
}

func (f *fakeChain) Snapshot(_ context.Context, tracked []string) (*dataset.RawBatch, error) {
	f.mu.Lock()
	f.snapshot = tracked
	f.mu.Unlock()
	return &dataset.RawBatch{
		ChainID: "fake",
		Network: "testnet",
		Validators: []*dataset.ValidatorRow{
			{ChainID: "fake", Network: "testnet", Index: "0", Balance: 100, Status: "active_ongoing"},
		},
	}, nil
}

func setupDB(t testing.TB) *kv.Store {
	store, err := kv.NewKVStore(filepath.Join(t.TempDir(), "data"), &kv.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})
	return store
}

func TestCollectWalksWindowFromLookback(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	store := setupDB(t)
	chain := &fakeChain{head: 10, lookback: 5}

	srv, err := NewService(context.Background(), &Config{
		Database:        store,
		Chains:          []Chain{chain},
		DisableProgress: true,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Collect(context.Background()))

	blocks, err := store.BlockRows(context.Background(), "fake")
	require.NoError(t, err)
	require.Equal(t, 5, len(blocks), "units 6..10")
	assert.Equal(t, uint64(6), blocks[0].Slot)
	assert.Equal(t, uint64(10), blocks[4].Slot)

	mark, ok, err := store.ProgressMark(context.Background(), "fake", dataset.TableBlocks)
	require.NoError(t, err)
	require.Equal(t, true, ok)
	assert.Equal(t, uint64(10), mark)
}

func TestCollectResumesFromProgressMark(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	store := setupDB(t)
	chain := &fakeChain{head: 10, lookback: 5}

	srv, err := NewService(context.Background(), &Config{
		Database:        store,
		Chains:          []Chain{chain},
		DisableProgress: true,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Collect(context.Background()))
	fetched := len(chain.units)

	// Head advances by two; only the new units are fetched.
	chain.head = 12
	require.NoError(t, srv.Collect(context.Background()))
	assert.Equal(t, fetched+2, len(chain.units))

	blocks, err := store.BlockRows(context.Background(), "fake")
	require.NoError(t, err)
	assert.Equal(t, 7, len(blocks))
}

func TestCollectPassesTrackedValidatorsToSnapshot(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	store := setupDB(t)
	allowlist := filepath.Join(t.TempDir(), "tracked.txt")
	require.NoError(t, os.WriteFile(allowlist, []byte("# team validators\n7\n42\n"), 0600))
	chain := &fakeChain{head: 3, lookback: 2}

	srv, err := NewService(context.Background(), &Config{
		Database:        store,
		Chains:          []Chain{chain},
		TrackedFile:     allowlist,
		DisableProgress: true,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Collect(context.Background()))
	assert.DeepEqual(t, []string{"7", "42"}, chain.snapshot)
}

func TestCollectWritesRawPartitions(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	store := setupDB(t)
	root := t.TempDir()
	chain := &fakeChain{head: 4, lookback: 3}

	srv, err := NewService(context.Background(), &Config{
		Database:        store,
		Chains:          []Chain{chain},
		DatasetRoot:     root,
		DisableProgress: true,
	})
	require.NoError(t, err)
	require.NoError(t, srv.Collect(context.Background()))

	parts, err := filepath.Glob(filepath.Join(root, "raw", dataset.TableBlocks, "chain_id=fake", "network=testnet", "date=*", "part-0000.json"))
	require.NoError(t, err)
	require.Equal(t, 1, len(parts))
	// No attestations were collected, so that partition holds the sentinel.
	sentinels, err := filepath.Glob(filepath.Join(root, "raw", dataset.TableAttestations, "chain_id=fake", "*", "*", dataset.EmptySentinel))
	require.NoError(t, err)
	assert.Equal(t, 1, len(sentinels))
}

func TestTrackerLoadsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracked.txt")
	require.NoError(t, os.WriteFile(path, []byte("1\n# comment\n\n2\n"), 0600))
	tracker, err := NewTracker(path)
	require.NoError(t, err)
	assert.DeepEqual(t, []string{"1", "2"}, tracker.Tracked())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// Watch returns with the watcher in place, so a write landing right
	// after this line is observed.
	require.NoError(t, tracker.Watch(ctx))

	require.NoError(t, os.WriteFile(path, []byte("3\n"), 0600))
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		ids := tracker.Tracked()
		if len(ids) == 1 && ids[0] == "3" {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	assert.DeepEqual(t, []string{"3"}, tracker.Tracked())
}

func TestTrackerEmptyPathTracksEverything(t *testing.T) {
	tracker, err := NewTracker("")
	require.NoError(t, err)
	assert.Equal(t, 0, len(tracker.Tracked()))
}

package cosmos

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/dataset"
	"github.com/byzantron-research/aibyz-dataset/testing/assert"
	"github.com/byzantron-research/aibyz-dataset/testing/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, "cosmos", "cosmoshub-4")
	require.NoError(t, err)
	return c
}

func TestHead(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, latestBlockPath, r.URL.Path)
		fmt.Fprint(w, `{"block": {"header": {"height": "17000000", "time": "2026-08-27T10:00:00Z", "proposer_address": "AABB"}}}`)
	}))
	head, err := c.Head(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(17000000), head)
}

func TestUnitParsesBlock(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, fmt.Sprintf(blockPathFmt, 42), r.URL.Path)
		fmt.Fprint(w, `{"block": {
          "header": {"height": "42", "time": "2026-08-27T10:00:05Z", "proposer_address": "CCDD"},
          "data": {"txs": ["dHgx", "dHgy"]}
        }}`)
	}))
	batch, err := c.Unit(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, 1, len(batch.Blocks))
	assert.Equal(t, uint64(42), batch.Blocks[0].Slot)
	assert.Equal(t, "CCDD", batch.Blocks[0].Proposer)
	assert.Equal(t, uint64(2), batch.Blocks[0].NumTxs)
	assert.Equal(t, "2026-08-27T10:00:05Z", batch.Blocks[0].Time)
}

func TestSnapshotFollowsPagination(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case validatorsPath:
			require.Equal(t, bondedStatus, r.URL.Query().Get("status"))
			if r.URL.Query().Get("pagination.key") == "" {
				fmt.Fprint(w, `{"validators": [
                  {"operator_address": "cosmosvaloper1aaa", "status": "BOND_STATUS_BONDED", "tokens": "1000000", "jailed": false, "description": {"moniker": "alpha"}}
                ], "pagination": {"next_key": "page2", "total": "2"}}`)
				return
			}
			require.Equal(t, "page2", r.URL.Query().Get("pagination.key"))
			fmt.Fprint(w, `{"validators": [
              {"operator_address": "cosmosvaloper1bbb", "status": "BOND_STATUS_BONDED", "tokens": "2000000", "jailed": true, "description": {"moniker": "beta"}}
            ], "pagination": {"next_key": "", "total": "2"}}`)
		case signingInfosPath:
			fmt.Fprint(w, `{"info": [
              {"address": "cosmosvalcons1ccc", "missed_blocks_counter": "12", "tombstoned": false, "jailed_until": "1970-01-01T00:00:00Z"},
              {"address": "cosmosvalcons1ddd", "missed_blocks_counter": "0", "tombstoned": true, "jailed_until": "2026-01-01T00:00:00Z"}
            ], "pagination": {"next_key": "", "total": "2"}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	batch, err := c.Snapshot(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 2, len(batch.Validators))
	assert.Equal(t, "cosmosvaloper1aaa", batch.Validators[0].Index)
	assert.Equal(t, "alpha", batch.Validators[0].Moniker)
	assert.Equal(t, uint64(1000000), batch.Validators[0].Balance)
	assert.Equal(t, true, batch.Validators[1].Slashed, "jailed maps to slashed")

	require.Equal(t, 2, len(batch.Penalties))
	byAddr := map[string]*dataset.PenaltyRow{}
	for _, p := range batch.Penalties {
		byAddr[p.ValidatorID] = p
	}
	assert.Equal(t, dataset.PenaltyMissedBlocks, byAddr["cosmosvalcons1ccc"].Kind)
	assert.Equal(t, uint64(12), byAddr["cosmosvalcons1ccc"].Value)
	assert.Equal(t, dataset.PenaltyTombstoned, byAddr["cosmosvalcons1ddd"].Kind)
}

func TestSnapshotFiltersTracked(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case validatorsPath:
			fmt.Fprint(w, `{"validators": [
              {"operator_address": "cosmosvaloper1aaa", "status": "BOND_STATUS_BONDED", "tokens": "1", "jailed": false, "description": {"moniker": "a"}},
              {"operator_address": "cosmosvaloper1bbb", "status": "BOND_STATUS_BONDED", "tokens": "2", "jailed": false, "description": {"moniker": "b"}}
            ], "pagination": {"next_key": ""}}`)
		case signingInfosPath:
			fmt.Fprint(w, `{"info": [], "pagination": {"next_key": ""}}`)
		}
	}))
	batch, err := c.Snapshot(context.Background(), []string{"cosmosvaloper1bbb"})
	require.NoError(t, err)
	require.Equal(t, 1, len(batch.Validators))
	assert.Equal(t, "cosmosvaloper1bbb", batch.Validators[0].Index)
}

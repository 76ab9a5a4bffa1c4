package beaconchain

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/testing/assert"
	"github.com/byzantron-research/aibyz-dataset/testing/require"
)

func newTestClient(t *testing.T, apiKey string, handler http.Handler) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, "mainnet", apiKey)
	require.NoError(t, err)
	return c
}

func TestPerformance(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	c := newTestClient(t, "secret", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, fmt.Sprintf(performancePathFmt, 999), r.URL.Path)
		require.Equal(t, "secret", r.URL.Query().Get("apikey"))
		fmt.Fprint(w, `{"status": "OK", "data": {
          "validatorindex": 999, "performance1d": 2500, "performance7d": -1200,
          "performance31d": 80000, "rank7d": 4821
        }}`)
	}))
	row, err := c.Performance(context.Background(), 999)
	require.NoError(t, err)
	assert.Equal(t, uint64(999), row.ValidatorIndex)
	assert.Equal(t, int64(2500), row.Balance1d)
	assert.Equal(t, int64(-1200), row.Balance7d)
	assert.Equal(t, int64(80000), row.Balance31d)
	assert.Equal(t, uint64(4821), row.Rank)
}

func TestPerformanceArrayEnvelope(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	c := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "", r.URL.Query().Get("apikey"))
		fmt.Fprint(w, `{"status": "OK", "data": [{"validatorindex": 7, "performance7d": 42}]}`)
	}))
	row, err := c.Performance(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), row.ValidatorIndex)
	assert.Equal(t, int64(42), row.Balance7d)
}

func TestValidator(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	c := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "OK", "data": {
          "validatorindex": 123, "pubkey": "0xabc", "balance": 32100000000,
          "effectivebalance": 32000000000, "status": "active_online", "slashed": false
        }}`)
	}))
	row, err := c.Validator(context.Background(), 123)
	require.NoError(t, err)
	assert.Equal(t, "123", row.Index)
	assert.Equal(t, uint64(32100000000), row.Balance)
	assert.Equal(t, uint64(32000000000), row.EffectiveBalance)
	assert.Equal(t, "active_online", row.Status)
}

func TestErrorStatusEnvelope(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMinimalConfig()
	c := newTestClient(t, "", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ERROR: validator not found", "data": null}`)
	}))
	_, err := c.Performance(context.Background(), 1)
	require.ErrorContains(t, "explorer returned status", err)
}

// Package beaconchain collects per-validator performance snapshots from the
// beaconcha.in explorer API. The free tier is heavily rate limited, so the
// client rides a leaky bucket tuned to one request per configured interval.
package beaconchain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/byzantron-research/aibyz-dataset/api/client"
	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/dataset"
	"github.com/pkg/errors"
)

const (
	validatorPathFmt   = "/api/v1/validator/%d"
	performancePathFmt = "/api/v1/validator/%d/performance"

	statusOK = "OK"
)

// Client talks to the beaconcha.in explorer API.
type Client struct {
	*client.Client
	chainID string
	network string
	apiKey  string
}

// NewClient wires an explorer client. The API key is optional; without one
// the anonymous rate limits apply.
func NewClient(host, network, apiKey string, opts ...client.ClientOpt) (*Client, error) {
	interval := params.DatasetSpec().BeaconchainRequestInterval
	defaults := []client.ClientOpt{
		client.WithRateLimit(1.0/interval.Seconds(), 1),
	}
	c, err := client.NewClient(host, append(defaults, opts...)...)
	if err != nil {
		return nil, err
	}
	return &Client{Client: c, chainID: "eth2", network: network, apiKey: apiKey}, nil
}

// ChainID identifies the chain the snapshots belong to.
func (c *Client) ChainID() string { return c.chainID }

// Network returns the explorer's network name.
func (c *Client) Network() string { return c.network }

// Performance fetches the balance-delta snapshot for one validator index.
func (c *Client) Performance(ctx context.Context, index uint64) (*dataset.PerformanceRow, error) {
	data, err := c.getData(ctx, fmt.Sprintf(performancePathFmt, index))
	if err != nil {
		return nil, errors.Wrapf(err, "could not fetch performance for validator %d", index)
	}
	perf := &performanceData{}
	if err := json.Unmarshal(data, perf); err != nil {
		// Some deployments wrap the object in a one-element array.
		var many []*performanceData
		if err2 := json.Unmarshal(data, &many); err2 != nil || len(many) == 0 {
			return nil, errors.Wrap(err, "malformed performance data")
		}
		perf = many[0]
	}
	return &dataset.PerformanceRow{
		ChainID:        c.chainID,
		Network:        c.network,
		ValidatorIndex: perf.ValidatorIndex,
		Balance1d:      perf.Performance1d,
		Balance7d:      perf.Performance7d,
		Balance31d:     perf.Performance31d,
		Rank:           perf.Rank7d,
	}, nil
}

// Validator fetches the explorer's view of one validator.
func (c *Client) Validator(ctx context.Context, index uint64) (*dataset.ValidatorRow, error) {
	data, err := c.getData(ctx, fmt.Sprintf(validatorPathFmt, index))
	if err != nil {
		return nil, errors.Wrapf(err, "could not fetch validator %d", index)
	}
	v := &validatorData{}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, errors.Wrap(err, "malformed validator data")
	}
	return &dataset.ValidatorRow{
		ChainID:          c.chainID,
		Network:          c.network,
		Index:            fmt.Sprintf("%d", v.ValidatorIndex),
		Pubkey:           v.Pubkey,
		Balance:          v.Balance,
		EffectiveBalance: v.EffectiveBalance,
		Status:           v.Status,
		Slashed:          v.Slashed,
	}, nil
}

// getData unwraps the explorer's {status, data} envelope.
func (c *Client) getData(ctx context.Context, path string) (json.RawMessage, error) {
	var opts []client.ReqOption
	if c.apiKey != "" {
		opts = append(opts, client.WithQuery("apikey", c.apiKey))
	}
	body, err := c.Get(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	envelope := &responseEnvelope{}
	if err := json.Unmarshal(body, envelope); err != nil {
		return nil, errors.Wrap(err, "malformed response envelope")
	}
	if envelope.Status != statusOK {
		return nil, errors.Errorf("explorer returned status %q", envelope.Status)
	}
	return envelope.Data, nil
}

type responseEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type performanceData struct {
	ValidatorIndex uint64 `json:"validatorindex"`
	Performance1d  int64  `json:"performance1d"`
	Performance7d  int64  `json:"performance7d"`
	Performance31d int64  `json:"performance31d"`
	Rank7d         uint64 `json:"rank7d"`
}

type validatorData struct {
	ValidatorIndex   uint64 `json:"validatorindex"`
	Pubkey           string `json:"pubkey"`
	Balance          uint64 `json:"balance"`
	EffectiveBalance uint64 `json:"effectivebalance"`
	Status           string `json:"status"`
	Slashed          bool   `json:"slashed"`
}

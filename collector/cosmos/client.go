// Package cosmos collects validator telemetry from a Cosmos SDK REST
// endpoint. Heights map onto the shared slot column and signing infos land
// in the penalties table.
package cosmos

import (
	"context"
	"fmt"
	"strconv"

	"github.com/byzantron-research/aibyz-dataset/api/client"
	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/dataset"
	"github.com/pkg/errors"
)

const (
	latestBlockPath  = "/blocks/latest"
	blockPathFmt     = "/blocks/%d"
	validatorsPath   = "/cosmos/staking/v1beta1/validators"
	signingInfosPath = "/cosmos/slashing/v1beta1/signing_infos"

	bondedStatus = "BOND_STATUS_BONDED"
)

// Client talks to one Cosmos SDK REST endpoint.
type Client struct {
	*client.Client
	chainID string
	network string
}

// NewClient wires a Cosmos REST client for the given chain and network name.
func NewClient(host, chainID, network string, opts ...client.ClientOpt) (*Client, error) {
	c, err := client.NewClient(host, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{Client: c, chainID: chainID, network: network}, nil
}

// ChainID identifies the chain within the raw store.
func (c *Client) ChainID() string { return c.chainID }

// Network returns the collected network name.
func (c *Client) Network() string { return c.network }

// Lookback returns the default collection window in blocks.
func (c *Client) Lookback() uint64 {
	return params.DatasetSpec().CosmosLookbackBlocks
}

// Head returns the latest block height.
func (c *Client) Head(ctx context.Context) (uint64, error) {
	resp := &blockResponse{}
	if err := c.GetJSON(ctx, latestBlockPath, resp); err != nil {
		return 0, errors.Wrap(err, "could not fetch latest block")
	}
	height, err := strconv.ParseUint(resp.Block.Header.Height, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "malformed block height")
	}
	return height, nil
}

// Unit collects one block height.
func (c *Client) Unit(ctx context.Context, height uint64) (*dataset.RawBatch, error) {
	resp := &blockResponse{}
	if err := c.GetJSON(ctx, fmt.Sprintf(blockPathFmt, height), resp); err != nil {
		return nil, errors.Wrapf(err, "could not fetch block %d", height)
	}
	h, err := strconv.ParseUint(resp.Block.Header.Height, 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "malformed block height")
	}
	return &dataset.RawBatch{
		ChainID: c.chainID,
		Network: c.network,
		Blocks: []*dataset.BlockRow{{
			ChainID:  c.chainID,
			Network:  c.network,
			Slot:     h,
			Proposer: resp.Block.Header.ProposerAddress,
			NumTxs:   uint64(len(resp.Block.Data.Txs)),
			Time:     resp.Block.Header.Time,
		}},
	}, nil
}

// Snapshot collects the bonded validator set and every signing info,
// following the pagination key until the server stops returning one.
func (c *Client) Snapshot(ctx context.Context, tracked []string) (*dataset.RawBatch, error) {
	validators, err := c.bondedValidators(ctx)
	if err != nil {
		return nil, err
	}
	penalties, err := c.signingInfos(ctx)
	if err != nil {
		return nil, err
	}
	if len(tracked) > 0 {
		allow := make(map[string]bool, len(tracked))
		for _, id := range tracked {
			allow[id] = true
		}
		kept := validators[:0]
		for _, v := range validators {
			if allow[v.Index] {
				kept = append(kept, v)
			}
		}
		validators = kept
		keptPenalties := penalties[:0]
		for _, p := range penalties {
			if allow[p.ValidatorID] {
				keptPenalties = append(keptPenalties, p)
			}
		}
		penalties = keptPenalties
	}
	return &dataset.RawBatch{
		ChainID:    c.chainID,
		Network:    c.network,
		Validators: validators,
		Penalties:  penalties,
	}, nil
}

func (c *Client) bondedValidators(ctx context.Context) ([]*dataset.ValidatorRow, error) {
	limit := strconv.FormatUint(params.DatasetSpec().PaginationLimit, 10)
	rows := make([]*dataset.ValidatorRow, 0)
	nextKey := ""
	for {
		opts := []client.ReqOption{
			client.WithQuery("status", bondedStatus),
			client.WithQuery("pagination.limit", limit),
		}
		if nextKey != "" {
			opts = append(opts, client.WithQuery("pagination.key", nextKey))
		}
		resp := &validatorsResponse{}
		if err := c.GetJSON(ctx, validatorsPath, resp, opts...); err != nil {
			return nil, errors.Wrap(err, "could not fetch validators page")
		}
		for _, v := range resp.Validators {
			tokens, err := strconv.ParseUint(v.Tokens, 10, 64)
			if err != nil {
				tokens = 0
			}
			rows = append(rows, &dataset.ValidatorRow{
				ChainID: c.chainID,
				Network: c.network,
				Index:   v.OperatorAddress,
				Balance: tokens,
				Status:  v.Status,
				Slashed: v.Jailed,
				Moniker: v.Description.Moniker,
			})
		}
		if resp.Pagination.NextKey == "" {
			return rows, nil
		}
		nextKey = resp.Pagination.NextKey
	}
}

func (c *Client) signingInfos(ctx context.Context) ([]*dataset.PenaltyRow, error) {
	limit := strconv.FormatUint(params.DatasetSpec().PaginationLimit, 10)
	rows := make([]*dataset.PenaltyRow, 0)
	nextKey := ""
	for {
		opts := []client.ReqOption{client.WithQuery("pagination.limit", limit)}
		if nextKey != "" {
			opts = append(opts, client.WithQuery("pagination.key", nextKey))
		}
		resp := &signingInfosResponse{}
		if err := c.GetJSON(ctx, signingInfosPath, resp, opts...); err != nil {
			return nil, errors.Wrap(err, "could not fetch signing infos page")
		}
		for _, info := range resp.Info {
			missed, err := strconv.ParseUint(info.MissedBlocksCounter, 10, 64)
			if err != nil {
				missed = 0
			}
			if missed > 0 {
				rows = append(rows, &dataset.PenaltyRow{
					ChainID:     c.chainID,
					Network:     c.network,
					ValidatorID: info.Address,
					Kind:        dataset.PenaltyMissedBlocks,
					Value:       missed,
					Time:        info.JailedUntil,
				})
			}
			if info.Tombstoned {
				rows = append(rows, &dataset.PenaltyRow{
					ChainID:     c.chainID,
					Network:     c.network,
					ValidatorID: info.Address,
					Kind:        dataset.PenaltyTombstoned,
					Time:        info.JailedUntil,
				})
			}
		}
		if resp.Pagination.NextKey == "" {
			return rows, nil
		}
		nextKey = resp.Pagination.NextKey
	}
}

type blockResponse struct {
	Block struct {
		Header struct {
			Height          string `json:"height"`
			Time            string `json:"time"`
			ProposerAddress string `json:"proposer_address"`
		} `json:"header"`
		Data struct {
			Txs []string `json:"txs"`
		} `json:"data"`
	} `json:"block"`
}

type validatorsResponse struct {
	Validators []struct {
		OperatorAddress string `json:"operator_address"`
		Status          string `json:"status"`
		Tokens          string `json:"tokens"`
		Jailed          bool   `json:"jailed"`
		Description     struct {
			Moniker string `json:"moniker"`
		} `json:"description"`
	} `json:"validators"`
	Pagination pagination `json:"pagination"`
}

type signingInfosResponse struct {
	Info []struct {
		Address             string `json:"address"`
		MissedBlocksCounter string `json:"missed_blocks_counter"`
		Tombstoned          bool   `json:"tombstoned"`
		JailedUntil         string `json:"jailed_until"`
	} `json:"info"`
	Pagination pagination `json:"pagination"`
}

type pagination struct {
	NextKey string `json:"next_key"`
	Total   string `json:"total"`
}

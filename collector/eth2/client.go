// Package eth2 collects raw validator telemetry from an Ethereum consensus
// node through the standard Beacon API.
package eth2

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/byzantron-research/aibyz-dataset/api/client"
	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/dataset"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/prysmaticlabs/go-bitfield"
	"github.com/r3labs/sse"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "eth2")

const (
	headHeaderPath = "/eth/v1/beacon/headers/head"
	blockPathFmt   = "/eth/v2/beacon/blocks/%d"
	validatorsPath = "/eth/v1/beacon/states/head/validators"
	eventsPath     = "/eth/v1/events"

	headTopic          = "head"
	validatorsCacheKey = "validators"
)

// Client talks to one Beacon API endpoint.
type Client struct {
	*client.Client
	chainID string
	network string
	cache   *gocache.Cache
}

// NewClient wires a Beacon API client for the given network name.
func NewClient(host, network string, opts ...client.ClientOpt) (*Client, error) {
	c, err := client.NewClient(host, opts...)
	if err != nil {
		return nil, err
	}
	ttl := params.DatasetSpec().ValidatorsCacheTTL
	return &Client{
		Client:  c,
		chainID: "eth2",
		network: network,
		cache:   gocache.New(ttl, 2*ttl),
	}, nil
}

// ChainID identifies the chain within the raw store.
func (c *Client) ChainID() string { return c.chainID }

// Network returns the collected network name.
func (c *Client) Network() string { return c.network }

// Lookback returns the default collection window in slots.
func (c *Client) Lookback() uint64 {
	return params.DatasetSpec().Eth2LookbackSlots
}

// Head returns the current head slot.
func (c *Client) Head(ctx context.Context) (uint64, error) {
	resp := &headerResponse{}
	if err := c.GetJSON(ctx, headHeaderPath, resp); err != nil {
		return 0, errors.Wrap(err, "could not fetch head header")
	}
	slot, err := resp.Data.Header.Message.Slot.Uint64()
	if err != nil {
		return 0, errors.Wrap(err, "malformed head slot")
	}
	return slot, nil
}

// Unit collects one slot. An empty slot (no block proposed) yields an empty
// batch, which the Beacon API signals with a 404.
func (c *Client) Unit(ctx context.Context, slot uint64) (*dataset.RawBatch, error) {
	resp := &blockResponse{}
	err := c.GetJSON(ctx, fmt.Sprintf(blockPathFmt, slot), resp)
	if errors.Is(err, client.ErrNotFound) {
		return &dataset.RawBatch{ChainID: c.chainID, Network: c.network}, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not fetch block at slot %d", slot)
	}
	return c.batchFromBlock(resp)
}

func (c *Client) batchFromBlock(resp *blockResponse) (*dataset.RawBatch, error) {
	msg := resp.Data.Message
	slot, err := msg.Slot.Uint64()
	if err != nil {
		return nil, errors.Wrap(err, "malformed block slot")
	}
	proposer := msg.ProposerIndex.String()
	batch := &dataset.RawBatch{ChainID: c.chainID, Network: c.network}
	batch.Blocks = append(batch.Blocks, &dataset.BlockRow{
		ChainID:  c.chainID,
		Network:  c.network,
		Slot:     slot,
		Proposer: proposer,
		Graffiti: decodeGraffiti(msg.Body.Graffiti),
	})

	for _, att := range msg.Body.Attestations {
		attSlot, err := att.Data.Slot.Uint64()
		if err != nil {
			continue
		}
		committee, err := att.Data.Index.Uint64()
		if err != nil {
			continue
		}
		batch.Attestations = append(batch.Attestations, &dataset.AttestationRow{
			ChainID:         c.chainID,
			Network:         c.network,
			Slot:            attSlot,
			CommitteeIndex:  committee,
			AggregationBits: countAggregationBits(att.AggregationBits),
		})
	}

	for _, s := range msg.Body.ProposerSlashings {
		batch.Penalties = append(batch.Penalties, &dataset.PenaltyRow{
			ChainID:     c.chainID,
			Network:     c.network,
			Slot:        slot,
			ValidatorID: s.SignedHeader1.Message.ProposerIndex.String(),
			Kind:        dataset.PenaltyProposerSlashing,
		})
	}
	for _, s := range msg.Body.AttesterSlashings {
		for _, idx := range slashedIndices(s) {
			batch.Penalties = append(batch.Penalties, &dataset.PenaltyRow{
				ChainID:     c.chainID,
				Network:     c.network,
				Slot:        slot,
				ValidatorID: idx,
				Kind:        dataset.PenaltyAttesterSlashing,
			})
		}
	}
	for _, e := range msg.Body.VoluntaryExits {
		batch.Penalties = append(batch.Penalties, &dataset.PenaltyRow{
			ChainID:     c.chainID,
			Network:     c.network,
			Slot:        slot,
			ValidatorID: e.Message.ValidatorIndex.String(),
			Kind:        dataset.PenaltyVoluntaryExit,
		})
	}
	return batch, nil
}

// Snapshot fetches the current validator set. Responses are cached for the
// configured TTL since the full set is expensive to serve. When tracked is
// non-empty only those validators are returned.
func (c *Client) Snapshot(ctx context.Context, tracked []string) (*dataset.RawBatch, error) {
	rows, err := c.validators(ctx)
	if err != nil {
		return nil, err
	}
	if len(tracked) > 0 {
		allow := make(map[string]bool, len(tracked))
		for _, id := range tracked {
			allow[id] = true
		}
		filtered := make([]*dataset.ValidatorRow, 0, len(tracked))
		for _, row := range rows {
			if allow[row.Index] || allow[row.Pubkey] {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}
	return &dataset.RawBatch{ChainID: c.chainID, Network: c.network, Validators: rows}, nil
}

func (c *Client) validators(ctx context.Context) ([]*dataset.ValidatorRow, error) {
	if cached, ok := c.cache.Get(validatorsCacheKey); ok {
		return cached.([]*dataset.ValidatorRow), nil
	}
	resp := &validatorsResponse{}
	if err := c.GetJSON(ctx, validatorsPath, resp); err != nil {
		return nil, errors.Wrap(err, "could not fetch validator set")
	}
	rows := make([]*dataset.ValidatorRow, 0, len(resp.Data))
	for _, v := range resp.Data {
		balance, err := v.Balance.Uint64()
		if err != nil {
			continue
		}
		effective, err := v.Validator.EffectiveBalance.Uint64()
		if err != nil {
			effective = 0
		}
		rows = append(rows, &dataset.ValidatorRow{
			ChainID:          c.chainID,
			Network:          c.network,
			Index:            v.Index.String(),
			Pubkey:           v.Validator.Pubkey,
			Balance:          balance,
			EffectiveBalance: effective,
			Status:           v.Status,
			Slashed:          v.Validator.Slashed,
		})
	}
	c.cache.SetDefault(validatorsCacheKey, rows)
	return rows, nil
}

// StreamHeads subscribes to the Beacon API head event stream and forwards
// head slots until the context is canceled.
func (c *Client) StreamHeads(ctx context.Context, heads chan<- uint64) error {
	u := *c.BaseURL()
	u.Path = eventsPath
	u.RawQuery = "topics=" + headTopic
	sub := sse.NewClient(u.String())
	if c.Token() != "" {
		sub.Headers["Authorization"] = "Bearer " + c.Token()
	}
	events := make(chan *sse.Event)
	if err := sub.SubscribeChanRawWithContext(ctx, events); err != nil {
		return errors.Wrap(err, "could not subscribe to head events")
	}
	defer sub.Unsubscribe(events)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if string(ev.Event) != headTopic && len(ev.Event) > 0 {
				continue
			}
			head := &headEvent{}
			if err := unmarshalEvent(ev.Data, head); err != nil {
				log.WithError(err).Debug("Dropping malformed head event")
				continue
			}
			slot, err := head.Slot.Uint64()
			if err != nil {
				continue
			}
			select {
			case heads <- slot:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// decodeGraffiti turns the 32-byte hex graffiti into its printable prefix.
func decodeGraffiti(g string) string {
	raw, err := hex.DecodeString(strings.TrimPrefix(g, "0x"))
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(raw), "\x00")
}

// countAggregationBits counts participants in an aggregate's hex bitlist.
func countAggregationBits(hexBits string) uint64 {
	raw, err := hex.DecodeString(strings.TrimPrefix(hexBits, "0x"))
	if err != nil || len(raw) == 0 {
		return 0
	}
	bits := bitfield.Bitlist(raw)
	// The final bit is the length marker, already excluded by Count on a
	// well-formed bitlist.
	return bits.Count()
}

// slashedIndices returns validators present in both conflicting attestations.
func slashedIndices(s *attesterSlashing) []string {
	first := make(map[string]bool, len(s.Attestation1.AttestingIndices))
	for _, idx := range s.Attestation1.AttestingIndices {
		first[idx] = true
	}
	out := make([]string, 0)
	for _, idx := range s.Attestation2.AttestingIndices {
		if first[idx] {
			out = append(out, idx)
		}
	}
	return out
}

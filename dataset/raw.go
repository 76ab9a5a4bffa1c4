package dataset

import (
	"github.com/prysmaticlabs/go-bitfield"
)

// Raw-layer table names shared by every chain. Cosmos maps its equivalents
// onto the same names (signing infos land in the penalties table).
const (
	TableBlocks       = "blocks"
	TableValidators   = "validators"
	TableAttestations = "attestations"
	TablePenalties    = "penalties"
	TablePerformance  = "performance"
)

// Penalty kinds observed across the supported chains.
const (
	PenaltyProposerSlashing = "proposer_slashing"
	PenaltyAttesterSlashing = "attester_slashing"
	PenaltyVoluntaryExit    = "voluntary_exit"
	PenaltyMissedBlocks     = "missed_blocks"
	PenaltyTombstoned       = "tombstoned"
)

// BlockRow is one collected block. Slot doubles as the block height on
// chains without slots.
type BlockRow struct {
	ChainID  string `json:"chain_id"`
	Network  string `json:"network"`
	Slot     uint64 `json:"slot"`
	Proposer string `json:"proposer"`
	Graffiti string `json:"graffiti,omitempty"`
	NumTxs   uint64 `json:"num_txs,omitempty"`
	Time     string `json:"time,omitempty"`
}

// ValidatorRow is one entry of a chain's validator set snapshot. Balances
// stay in the chain's base unit (gwei, uatom); conversion to display units
// happens during enrichment.
type ValidatorRow struct {
	ChainID          string `json:"chain_id"`
	Network          string `json:"network"`
	Index            string `json:"index"`
	Pubkey           string `json:"pubkey,omitempty"`
	Balance          uint64 `json:"balance"`
	EffectiveBalance uint64 `json:"effective_balance,omitempty"`
	Status           string `json:"status"`
	Slashed          bool   `json:"slashed"`
	Moniker          string `json:"moniker,omitempty"`
}

// AttestationRow is one aggregate attestation observed in a block.
type AttestationRow struct {
	ChainID         string `json:"chain_id"`
	Network         string `json:"network"`
	Slot            uint64 `json:"slot"`
	CommitteeIndex  uint64 `json:"committee_index"`
	AggregationBits uint64 `json:"aggregation_bits"`
}

// PenaltyRow is one observed penalty or penalty-adjacent event.
type PenaltyRow struct {
	ChainID     string `json:"chain_id"`
	Network     string `json:"network"`
	Slot        uint64 `json:"slot"`
	ValidatorID string `json:"validator_id"`
	Kind        string `json:"kind"`
	Value       uint64 `json:"value,omitempty"`
	Time        string `json:"time,omitempty"`
}

// PerformanceRow is a per-validator performance snapshot from the
// beaconcha.in explorer.
type PerformanceRow struct {
	ChainID        string `json:"chain_id"`
	Network        string `json:"network"`
	ValidatorIndex uint64 `json:"validator_index"`
	Balance1d      int64  `json:"performance_1d"`
	Balance7d      int64  `json:"performance_7d"`
	Balance31d     int64  `json:"performance_31d"`
	Rank           uint64 `json:"rank"`
}

// RawBatch groups the rows one collection pass produced for a single chain.
type RawBatch struct {
	ChainID      string
	Network      string
	Blocks       []*BlockRow
	Validators   []*ValidatorRow
	Attestations []*AttestationRow
	Penalties    []*PenaltyRow
	Performance  []*PerformanceRow
}

// Rows returns the total row count across all tables in the batch.
func (b *RawBatch) Rows() int {
	return len(b.Blocks) + len(b.Validators) + len(b.Attestations) + len(b.Penalties) + len(b.Performance)
}

// SyntheticEpochRow is the simulator's per-agent, per-epoch output. The duty
// bitlist has one bit per attestation duty in the epoch; gossip counts feed
// the entropy feature downstream.
type SyntheticEpochRow struct {
	ValidatorID       string            `json:"validator_id"`
	Profile           string            `json:"profile"`
	Epoch             uint64            `json:"epoch"`
	Timestamp         string            `json:"timestamp"`
	DutyBits          bitfield.Bitlist  `json:"duty_bits"`
	AssignedProposals uint64            `json:"assigned_proposals"`
	MissedProposals   uint64            `json:"missed_proposals"`
	Slashings         uint64            `json:"slashings"`
	Gossip            map[string]uint64 `json:"gossip"`
	PeerFeedback      float64           `json:"peer_feedback"`
	StakeAmount       float64           `json:"stake_amount"`
}

// Package dataset defines the schema of the validator behavior dataset: the
// unified record emitted by enrichment, the raw rows produced by collection
// and simulation, and the partition layout shared by every output layer.
package dataset

import (
	"strconv"

	"github.com/byzantron-research/aibyz-dataset/crypto/hash"
)

// Behavior labels. Real records are labeled from thresholds over their
// derived features; synthetic records keep the generating agent's profile.
const (
	LabelHonest    = "honest"
	LabelUnstable  = "unstable"
	LabelOffline   = "offline"
	LabelByzantine = "byzantine"
)

// Record sources.
const (
	SourceReal      = "real"
	SourceSynthetic = "synthetic"
)

// ValidatorRecord is the unit row of the dataset: one validator over one UTC
// day (real sources) or one simulated epoch span (synthetic source).
type ValidatorRecord struct {
	ValidatorID        string  `json:"validator_id" validate:"required"`
	Timestamp          string  `json:"timestamp" validate:"required"`
	Uptime             float64 `json:"uptime" validate:"gte=0,lte=1"`
	MissedAttestations uint64  `json:"missed_attestations"`
	MissedProposals    uint64  `json:"missed_proposals"`
	SlashingEvents     uint64  `json:"slashing_events"`
	StakeAmount        float64 `json:"stake_amount" validate:"gte=0"`
	TrustScore         float64 `json:"trust_score" validate:"gte=0,lte=1"`
	MessageEntropy     float64 `json:"message_entropy" validate:"gte=0"`
	PeerFeedback       float64 `json:"peer_feedback" validate:"gte=0,lte=1"`
	BehaviorLabel      string  `json:"behavior_label" validate:"oneof=honest unstable offline byzantine"`
	Source             string  `json:"source" validate:"oneof=real synthetic"`
}

// RecordCSVHeader is the fixed column order of every CSV export.
var RecordCSVHeader = []string{
	"validator_id",
	"timestamp",
	"uptime",
	"missed_attestations",
	"missed_proposals",
	"slashing_events",
	"stake_amount",
	"trust_score",
	"message_entropy",
	"peer_feedback",
	"behavior_label",
	"source",
}

// CSVRecord renders the record in RecordCSVHeader order. Scores carry four
// decimal places, counts are plain integers.
func (r *ValidatorRecord) CSVRecord() []string {
	return []string{
		r.ValidatorID,
		r.Timestamp,
		formatScore(r.Uptime),
		strconv.FormatUint(r.MissedAttestations, 10),
		strconv.FormatUint(r.MissedProposals, 10),
		strconv.FormatUint(r.SlashingEvents, 10),
		strconv.FormatFloat(r.StakeAmount, 'f', -1, 64),
		formatScore(r.TrustScore),
		formatScore(r.MessageEntropy),
		formatScore(r.PeerFeedback),
		r.BehaviorLabel,
		r.Source,
	}
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// Fingerprint identifies a record for dedup purposes. Two records with the
// same validator, timestamp and source are considered the same observation.
func (r *ValidatorRecord) Fingerprint() uint64 {
	return hash.FastSum64([]byte(r.ValidatorID + "|" + r.Timestamp + "|" + r.Source))
}

// ValidLabel reports whether l is one of the defined behavior labels.
func ValidLabel(l string) bool {
	switch l {
	case LabelHonest, LabelUnstable, LabelOffline, LabelByzantine:
		return true
	default:
		return false
	}
}

package simulator

import (
	"encoding/hex"
	"fmt"
	"math"
	mrand "math/rand"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/crypto/hash"
	"github.com/byzantron-research/aibyz-dataset/dataset"
	"github.com/prysmaticlabs/go-bitfield"
)

// Gossip message kinds tallied per agent and epoch. The histogram feeds the
// message entropy feature downstream.
var gossipKinds = []string{"block", "attestation", "aggregate", "sync_committee", "exit"}

// agent is one simulated validator with a fixed behavior profile.
type agent struct {
	id      string
	profile string
	// phase shifts the unstable profile's availability oscillation so
	// unstable agents do not fail in lockstep.
	phase float64
	// feedbackMean is the center of the peer feedback distribution for
	// this agent.
	feedbackMean float64
	stake        float64
}

// newAgent mints a deterministic agent. The identity is a blake2b digest of
// seed and index, hex encoded to resemble the keys of real networks.
func newAgent(seed int64, index uint64, profile string, rng *mrand.Rand) *agent {
	digest := hash.Blake2b([]byte(fmt.Sprintf("%d:%d", seed, index)))
	return &agent{
		id:           "0x" + hex.EncodeToString(digest[:20]),
		profile:      profile,
		phase:        rng.Float64() * 2 * math.Pi,
		feedbackMean: feedbackMeanFor(profile),
		stake:        32 + rng.Float64()*0.5,
	}
}

func feedbackMeanFor(profile string) float64 {
	switch profile {
	case dataset.LabelUnstable:
		return 0.55
	case dataset.LabelOffline:
		return 0.3
	case dataset.LabelByzantine:
		return 0.45
	default:
		return 0.9
	}
}

// attestProbability returns how likely the agent attests a given duty during
// the given epoch.
func (a *agent) attestProbability(epoch uint64) float64 {
	switch a.profile {
	case dataset.LabelUnstable:
		// Sinusoidal availability: good days and bad days.
		return 0.5 + 0.45*math.Sin(2*math.Pi*float64(epoch)/8+a.phase)
	case dataset.LabelOffline:
		return 0.3
	case dataset.LabelByzantine:
		// Near-honest uptime keeps byzantine agents hard to spot from
		// participation alone.
		return 0.98
	default:
		return 0.99
	}
}

// missProposalProbability returns how likely the agent misses an assigned
// proposal.
func (a *agent) missProposalProbability() float64 {
	switch a.profile {
	case dataset.LabelUnstable:
		return 0.2
	case dataset.LabelOffline:
		return 0.7
	case dataset.LabelByzantine:
		return 0.01
	default:
		return 0.005
	}
}

// epochOutcome rolls one epoch of duties for the agent.
func (a *agent) epochOutcome(p *Parameters, epoch uint64, proposals uint64, rng *mrand.Rand) *dataset.SyntheticEpochRow {
	slotsPerEpoch := params.DatasetSpec().SlotsPerEpoch
	duties := bitfield.NewBitlist(slotsPerEpoch)

	// Offline agents go fully dark for whole epochs at a time.
	dark := a.profile == dataset.LabelOffline && rng.Float64() < 0.25
	attestProb := a.attestProbability(epoch)
	for i := uint64(0); i < slotsPerEpoch; i++ {
		if !dark && rng.Float64() < attestProb {
			duties.SetBitAt(i, true)
		}
	}

	var missedProposals uint64
	for i := uint64(0); i < proposals; i++ {
		if rng.Float64() < a.missProposalProbability() {
			missedProposals++
		}
	}

	var slashings uint64
	if a.profile == dataset.LabelByzantine {
		// Probability-gated double proposals and double votes.
		for i := uint64(0); i < proposals; i++ {
			if rng.Float64() < p.ProposerSlashingProbab {
				slashings++
			}
		}
		if rng.Float64() < p.AttesterSlashingProbab {
			slashings++
		}
	}

	row := &dataset.SyntheticEpochRow{
		ValidatorID:       a.id,
		Profile:           a.profile,
		Epoch:             epoch,
		DutyBits:          duties,
		AssignedProposals: proposals,
		MissedProposals:   missedProposals,
		Slashings:         slashings,
		Gossip:            a.gossipHistogram(duties.Count(), proposals-missedProposals, slashings, rng),
		PeerFeedback:      clamp01(a.feedbackMean + (rng.Float64()-0.5)*0.1),
		StakeAmount:       a.stake,
	}
	return row
}

// gossipHistogram models what the agent broadcast during the epoch. Honest
// mixes track actual duty activity; byzantine agents skew hard towards
// duplicate attestation traffic.
func (a *agent) gossipHistogram(attested, proposed, slashings uint64, rng *mrand.Rand) map[string]uint64 {
	h := map[string]uint64{
		"block":          proposed,
		"attestation":    attested,
		"aggregate":      attested / 4,
		"sync_committee": uint64(rng.Intn(3)),
		"exit":           0,
	}
	if a.profile == dataset.LabelByzantine {
		h["attestation"] += attested * 3
		h["aggregate"] = 0
	}
	if slashings > 0 {
		h["exit"] = slashings
	}
	return h
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

package enricher

import (
	"math"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/dataset"
)

// TrustScore computes the composite reliability score:
//
//	clamp01(wP*participation - wM*missRate - wS*slashed)
//
// rounded to four decimal places. Weights come from the active config.
func TrustScore(participation, missRate float64, slashed bool) float64 {
	cfg := params.DatasetSpec()
	s := 0.0
	if slashed {
		s = 1.0
	}
	v := cfg.TrustWeightParticipation*participation -
		cfg.TrustWeightMissRate*missRate -
		cfg.TrustWeightSlashed*s
	return Round4(clamp01(v))
}

// MessageEntropy computes the Shannon entropy (log2, in bits) of an event
// histogram, rounded to four decimal places. An empty histogram has zero
// entropy.
func MessageEntropy(hist map[string]uint64) float64 {
	var total uint64
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return 0
	}
	var entropy float64
	for _, c := range hist {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	// -0 guards against the single-bucket case producing a negative zero.
	return Round4(math.Abs(entropy))
}

// BehaviorLabel assigns the threshold-based label for a real record.
// Slashing dominates, then low uptime, then low trust.
func BehaviorLabel(uptime, trustScore float64, slashingEvents uint64) string {
	cfg := params.DatasetSpec()
	switch {
	case slashingEvents > 0:
		return dataset.LabelByzantine
	case uptime < cfg.OfflineUptimeThreshold:
		return dataset.LabelOffline
	case trustScore < cfg.UnstableTrustThreshold:
		return dataset.LabelUnstable
	default:
		return dataset.LabelHonest
	}
}

// Round4 rounds half away from zero to four decimal places.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

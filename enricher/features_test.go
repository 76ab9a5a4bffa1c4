package enricher

import (
	"math"
	"testing"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/dataset"
	"github.com/byzantron-research/aibyz-dataset/testing/assert"
	fuzz "github.com/google/gofuzz"
)

func TestTrustScoreKnownValues(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMainnetConfig()
	tests := []struct {
		name          string
		participation float64
		missRate      float64
		slashed       bool
		want          float64
	}{
		{name: "perfect validator", participation: 1, missRate: 0, slashed: false, want: 0.6},
		{name: "all misses", participation: 0, missRate: 1, slashed: false, want: 0},
		{name: "slashed perfect", participation: 1, missRate: 0, slashed: true, want: 0.55},
		{name: "mixed", participation: 0.9, missRate: 0.1, slashed: false, want: 0.505},
		{name: "negative raw score clamps", participation: 0.1, missRate: 0.9, slashed: true, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TrustScore(tt.participation, tt.missRate, tt.slashed))
		})
	}
}

func TestTrustScoreBoundsFuzz(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMainnetConfig()
	f := fuzz.New()
	for i := 0; i < 1000; i++ {
		var participation, missRate float64
		var slashed bool
		f.Fuzz(&participation)
		f.Fuzz(&missRate)
		f.Fuzz(&slashed)
		if math.IsNaN(participation) || math.IsNaN(missRate) {
			continue
		}
		score := TrustScore(participation, missRate, slashed)
		if score < 0 || score > 1 || math.IsNaN(score) {
			t.Fatalf("trust score out of bounds: %v (participation=%v missRate=%v slashed=%v)",
				score, participation, missRate, slashed)
		}
	}
}

func TestMessageEntropy(t *testing.T) {
	// Zero events yields entropy 0.
	assert.Equal(t, 0.0, MessageEntropy(map[string]uint64{}))
	assert.Equal(t, 0.0, MessageEntropy(map[string]uint64{"attestation": 0}))
	// A single event kind carries no information.
	assert.Equal(t, 0.0, MessageEntropy(map[string]uint64{"attestation": 500}))
	// Uniform histogram over 4 kinds is exactly 2 bits.
	assert.Equal(t, 2.0, MessageEntropy(map[string]uint64{"a": 5, "b": 5, "c": 5, "d": 5}))
	// Uniform over 2 kinds is 1 bit.
	assert.Equal(t, 1.0, MessageEntropy(map[string]uint64{"hit": 7, "miss": 7}))
}

func TestMessageEntropyNeverNegativeFuzz(t *testing.T) {
	f := fuzz.New().NilChance(0).NumElements(0, 8)
	for i := 0; i < 500; i++ {
		hist := map[string]uint64{}
		f.Fuzz(&hist)
		entropy := MessageEntropy(hist)
		if entropy < 0 || math.IsNaN(entropy) {
			t.Fatalf("entropy invalid: %v for %v", entropy, hist)
		}
	}
}

func TestBehaviorLabelThresholds(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMainnetConfig()
	// Slashing dominates everything else.
	assert.Equal(t, dataset.LabelByzantine, BehaviorLabel(1, 1, 2))
	// Low uptime beats low trust.
	assert.Equal(t, dataset.LabelOffline, BehaviorLabel(0.3, 0.1, 0))
	assert.Equal(t, dataset.LabelUnstable, BehaviorLabel(0.9, 0.79, 0))
	assert.Equal(t, dataset.LabelHonest, BehaviorLabel(0.99, 0.8, 0))
}

func TestRound4HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 0.1235, Round4(0.12345))
	assert.Equal(t, 0.1234, Round4(0.12344))
	assert.Equal(t, 1.0, Round4(0.99995))
}

package dataset

import (
	"testing"

	"github.com/byzantron-research/aibyz-dataset/testing/assert"
	"github.com/byzantron-research/aibyz-dataset/testing/require"
)

func TestCSVRecordMatchesHeaderOrder(t *testing.T) {
	rec := &ValidatorRecord{
		ValidatorID:        "42",
		Timestamp:          "2026-08-01T00:00:00Z",
		Uptime:             0.98765,
		MissedAttestations: 3,
		MissedProposals:    1,
		SlashingEvents:     0,
		StakeAmount:        32.5,
		TrustScore:         0.5932,
		MessageEntropy:     1.5,
		PeerFeedback:       0.5,
		BehaviorLabel:      LabelHonest,
		Source:             SourceReal,
	}
	row := rec.CSVRecord()
	require.Equal(t, len(RecordCSVHeader), len(row))
	assert.Equal(t, "42", row[0])
	assert.Equal(t, "0.9877", row[2], "uptime should carry four decimals")
	assert.Equal(t, "3", row[3])
	assert.Equal(t, "32.5", row[6])
	assert.Equal(t, "0.5932", row[7])
	assert.Equal(t, "honest", row[10])
	assert.Equal(t, "real", row[11])
}

func TestFingerprintIdentity(t *testing.T) {
	a := &ValidatorRecord{ValidatorID: "7", Timestamp: "2026-08-01T00:00:00Z", Source: SourceReal}
	b := &ValidatorRecord{ValidatorID: "7", Timestamp: "2026-08-01T00:00:00Z", Source: SourceReal, TrustScore: 0.9}
	c := &ValidatorRecord{ValidatorID: "7", Timestamp: "2026-08-01T00:00:00Z", Source: SourceSynthetic}
	// Feature values do not participate in record identity.
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestValidLabel(t *testing.T) {
	for _, l := range []string{LabelHonest, LabelUnstable, LabelOffline, LabelByzantine} {
		assert.Equal(t, true, ValidLabel(l))
	}
	assert.Equal(t, false, ValidLabel("slasher"))
	assert.Equal(t, false, ValidLabel(""))
}

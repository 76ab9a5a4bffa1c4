package epochs

import (
	"testing"
	"time"

	"github.com/byzantron-research/aibyz-dataset/config/params"
	"github.com/byzantron-research/aibyz-dataset/testing/assert"
	"github.com/stretchr/testify/require"
)

var _ Ticker = (*EpochTicker)(nil)

func TestEpochTicker(t *testing.T) {
	ticker := &EpochTicker{
		c:    make(chan uint64),
		done: make(chan struct{}),
	}
	defer ticker.Done()

	var sinceDuration time.Duration
	since := func(time.Time) time.Duration {
		return sinceDuration
	}
	var untilDuration time.Duration
	until := func(time.Time) time.Duration {
		return untilDuration
	}
	var tick chan time.Time
	after := func(time.Duration) <-chan time.Time {
		return tick
	}

	genesisTime := time.Date(2020, 12, 1, 12, 0, 23, 0, time.UTC)
	secondsPerEpoch := uint64(384)

	sinceDuration = 1 * time.Second
	untilDuration = 383 * time.Second
	// Buffered to prevent a deadlock since the other goroutine calls a
	// function in this goroutine.
	tick = make(chan time.Time, 2)
	ticker.start(genesisTime, secondsPerEpoch, since, until, after)

	tick <- time.Now()
	require.Equal(t, uint64(0), <-ticker.C())
	tick <- time.Now()
	require.Equal(t, uint64(1), <-ticker.C())
	tick <- time.Now()
	require.Equal(t, uint64(2), <-ticker.C())
}

func TestEpochMath(t *testing.T) {
	params.SetupTestConfigCleanup(t)
	params.UseMainnetConfig()
	assert.Equal(t, uint64(0), ToEpoch(31))
	assert.Equal(t, uint64(1), ToEpoch(32))
	assert.Equal(t, uint64(64), StartSlot(2))
	assert.Equal(t, uint64(0), SinceGenesis(time.Now().Add(time.Hour)))
}

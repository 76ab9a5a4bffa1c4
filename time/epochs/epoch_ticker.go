// Package epochs provides epoch arithmetic and the ticker that drives
// watch-mode collection and simulation.
package epochs

import (
	"time"

	"github.com/byzantron-research/aibyz-dataset/config/params"
)

// ToEpoch returns the epoch a slot belongs to.
func ToEpoch(slot uint64) uint64 {
	return slot / params.DatasetSpec().SlotsPerEpoch
}

// StartSlot returns the first slot of an epoch.
func StartSlot(epoch uint64) uint64 {
	return epoch * params.DatasetSpec().SlotsPerEpoch
}

// SinceGenesis returns the number of whole epochs elapsed since genesis, or
// zero when genesis lies in the future.
func SinceGenesis(genesis time.Time) uint64 {
	if genesis.After(time.Now()) {
		return 0
	}
	elapsed := uint64(time.Since(genesis).Seconds())
	return elapsed / params.DatasetSpec().SecondsPerEpoch()
}

// Ticker is a convenience wrapper around the epoch ticker channel.
type Ticker interface {
	C() <-chan uint64
	Done()
}

// EpochTicker is a special ticker for the dataset pipeline to perform epoch
// based rendezvous. It fires on every epoch boundary relative to genesis.
type EpochTicker struct {
	c    chan uint64
	done chan struct{}
}

// C returns the ticker channel. Call Cancel afterwards to ensure no leaked goroutines.
func (t *EpochTicker) C() <-chan uint64 {
	return t.c
}

// Done should be called to clean up the ticker.
func (t *EpochTicker) Done() {
	go func() {
		t.done <- struct{}{}
	}()
}

// NewEpochTicker starts and returns a new EpochTicker instance.
func NewEpochTicker(genesisTime time.Time, secondsPerEpoch uint64) *EpochTicker {
	ticker := &EpochTicker{
		c:    make(chan uint64),
		done: make(chan struct{}),
	}
	ticker.start(genesisTime, secondsPerEpoch, time.Since, time.Until, time.After)
	return ticker
}

func (t *EpochTicker) start(
	genesisTime time.Time,
	secondsPerEpoch uint64,
	since, until func(time.Time) time.Duration,
	after func(time.Duration) <-chan time.Time,
) {
	d := time.Duration(secondsPerEpoch) * time.Second
	go func() {
		sinceGenesis := since(genesisTime)
		var nextTickTime time.Time
		var epoch uint64
		if sinceGenesis < d {
			// Handle when the current time is before the genesis time.
			nextTickTime = genesisTime
			epoch = 0
		} else {
			nextTick := sinceGenesis.Truncate(d) + d
			nextTickTime = genesisTime.Add(nextTick)
			epoch = uint64(nextTick / d)
		}

		for {
			waitTime := until(nextTickTime)
			select {
			case <-after(waitTime):
				t.c <- epoch
				epoch++
				nextTickTime = nextTickTime.Add(d)
			case <-t.done:
				return
			}
		}
	}()
}

package params

import "time"

// MinimalConfig returns a shrunk config for tests: short windows, no retry
// backoff waits worth mentioning, and a small worker pool so httptest
// fixtures stay deterministic.
func MinimalConfig() *DatasetConfig {
	minimal := mainnetDatasetConfig.Copy()
	minimal.ConfigName = "minimal"
	minimal.SecondsPerSlot = 6
	minimal.SlotsPerEpoch = 8
	minimal.Eth2LookbackSlots = 16
	minimal.CosmosLookbackBlocks = 16
	minimal.HTTPTimeout = 5 * time.Second
	minimal.MaxRetries = 2
	minimal.RetryBaseDelay = time.Millisecond
	minimal.RetryMaxDelay = 5 * time.Millisecond
	minimal.PaginationLimit = 2
	minimal.ValidatorsCacheTTL = time.Second
	minimal.BeaconchainRequestInterval = time.Millisecond
	minimal.MaxWorkers = 2
	return minimal
}

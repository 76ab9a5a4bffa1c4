package params

import "time"

// mainnetDatasetConfig holds the defaults used for real collection runs.
var mainnetDatasetConfig = &DatasetConfig{
	ConfigName: "mainnet",

	SecondsPerSlot: 12,
	SlotsPerEpoch:  32,
	GweiPerEth:     1000000000,

	Eth2LookbackSlots:    512,
	CosmosLookbackBlocks: 2000,

	HTTPTimeout:        30 * time.Second,
	MaxRetries:         5,
	RetryBaseDelay:     500 * time.Millisecond,
	RetryMaxDelay:      8 * time.Second,
	PaginationLimit:    200,
	ValidatorsCacheTTL: 5 * time.Minute,

	BeaconchainRequestInterval: 6200 * time.Millisecond,

	TrustWeightParticipation: 0.6,
	TrustWeightMissRate:      0.35,
	TrustWeightSlashed:       0.05,

	OfflineUptimeThreshold: 0.5,
	UnstableTrustThreshold: 0.8,

	NeutralPeerFeedback: 0.5,

	SchemaVersion:  "0.1.0",
	DatasetName:    "aibyz-validator-behavior",
	DatasetVersion: "0.1.0",
	License:        "CC-BY-4.0",

	MaxWorkers: 8,
}

// MainnetConfig returns the default dataset config.
func MainnetConfig() *DatasetConfig {
	return mainnetDatasetConfig
}

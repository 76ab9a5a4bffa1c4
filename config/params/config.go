// Package params defines the constants that steer the dataset pipeline:
// chain timing, collection lookbacks, HTTP retry policy, and the feature
// formulas applied during enrichment.
package params

import (
	"time"
)

// DatasetConfig contains the tunable parameters of a dataset build. A single
// active config governs the whole process; tests override it through
// OverrideDatasetConfig.
type DatasetConfig struct {
	ConfigName string `yaml:"CONFIG_NAME" spec:"true"`

	// Chain timing.
	SecondsPerSlot uint64 `yaml:"SECONDS_PER_SLOT" spec:"true"`
	SlotsPerEpoch  uint64 `yaml:"SLOTS_PER_EPOCH" spec:"true"`
	GweiPerEth     uint64

	// Collection windows. When no explicit range is requested the collector
	// walks this many slots (or blocks) back from the observed head.
	Eth2LookbackSlots    uint64 `yaml:"ETH2_LOOKBACK_SLOTS" spec:"true"`
	CosmosLookbackBlocks uint64 `yaml:"COSMOS_LOOKBACK_BLOCKS" spec:"true"`

	// HTTP behavior shared by every collector client.
	HTTPTimeout        time.Duration
	MaxRetries         uint64        `yaml:"MAX_RETRIES" spec:"true"`
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration
	PaginationLimit    uint64        `yaml:"PAGINATION_LIMIT" spec:"true"`
	ValidatorsCacheTTL time.Duration

	// beaconcha.in free tier allows roughly ten requests per minute, so the
	// client is throttled to one request per interval.
	BeaconchainRequestInterval time.Duration

	// Trust score weights: trust = clamp01(wP*participation - wM*missRate - wS*slashed).
	TrustWeightParticipation float64 `yaml:"TRUST_WEIGHT_PARTICIPATION" spec:"true"`
	TrustWeightMissRate      float64 `yaml:"TRUST_WEIGHT_MISS_RATE" spec:"true"`
	TrustWeightSlashed       float64 `yaml:"TRUST_WEIGHT_SLASHED" spec:"true"`

	// Behavior label thresholds.
	OfflineUptimeThreshold float64 `yaml:"OFFLINE_UPTIME_THRESHOLD" spec:"true"`
	UnstableTrustThreshold float64 `yaml:"UNSTABLE_TRUST_THRESHOLD" spec:"true"`

	// Neutral peer feedback assigned to real records with no upstream signal.
	NeutralPeerFeedback float64 `yaml:"NEUTRAL_PEER_FEEDBACK" spec:"true"`

	// Export identity.
	SchemaVersion  string `yaml:"SCHEMA_VERSION" spec:"true"`
	DatasetName    string `yaml:"DATASET_NAME" spec:"true"`
	DatasetVersion string `yaml:"DATASET_VERSION" spec:"true"`
	License        string `yaml:"LICENSE" spec:"true"`

	// Worker pool bound for windowed collection.
	MaxWorkers uint64 `yaml:"MAX_WORKERS" spec:"true"`
}

// SecondsPerEpoch returns the wall-clock length of one epoch.
func (c *DatasetConfig) SecondsPerEpoch() uint64 {
	return c.SecondsPerSlot * c.SlotsPerEpoch
}

package params

import (
	"github.com/mohae/deepcopy"
)

var datasetConfig = MainnetConfig()

// DatasetSpec retrieves the dataset config in use by the process.
func DatasetSpec() *DatasetConfig {
	return datasetConfig
}

// OverrideDatasetConfig by replacing the config. The preferred pattern is to
// call DatasetSpec(), change the specific parameters, and then call
// OverrideDatasetConfig(c). Any subsequent calls to params.DatasetSpec() will
// return this new configuration.
func OverrideDatasetConfig(c *DatasetConfig) {
	datasetConfig = c
}

// Copy returns a deep copy of the config, so callers can mutate parameters
// without touching the active config.
func (c *DatasetConfig) Copy() *DatasetConfig {
	config, ok := deepcopy.Copy(*c).(DatasetConfig)
	if !ok {
		config = *datasetConfig
	}
	return &config
}

// UseMinimalConfig for tests.
func UseMinimalConfig() {
	datasetConfig = MinimalConfig()
}

// UseMainnetConfig for dataset builds against live networks.
func UseMainnetConfig() {
	datasetConfig = MainnetConfig()
}

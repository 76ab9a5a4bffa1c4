package params

import (
	"testing"
)

// SetupTestConfigCleanup preserves the active config and restores it when the
// test (and all of its subtests) complete.
func SetupTestConfigCleanup(t testing.TB) {
	prevConfig := DatasetSpec().Copy()
	t.Cleanup(func() {
		OverrideDatasetConfig(prevConfig)
	})
}

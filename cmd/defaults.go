package cmd

import (
	"path/filepath"
	"runtime"

	"github.com/byzantron-research/aibyz-dataset/io/file"
)

// DefaultDataDir is the default directory for the intermediate database.
func DefaultDataDir() string {
	home := file.HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Aibyz")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Local", "Aibyz")
		} else {
			return filepath.Join(home, ".aibyz")
		}
	}
	// As we cannot guess a stable location, return empty and handle later.
	return ""
}

// DefaultDatasetDir is the default root for the partitioned dataset output.
func DefaultDatasetDir() string {
	base := DefaultDataDir()
	if base == "" {
		return ""
	}
	return filepath.Join(base, "dataset")
}

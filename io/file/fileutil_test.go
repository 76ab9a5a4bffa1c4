package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/byzantron-research/aibyz-dataset/io/file"
	"github.com/byzantron-research/aibyz-dataset/testing/assert"
	"github.com/byzantron-research/aibyz-dataset/testing/require"
)

func TestMkdirAllCreatesOwnerOnlyDir(t *testing.T) {
	// The parent created by the test harness is looser than 0700; only the
	// directory MkdirAll itself creates must be owner-only.
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, file.MkdirAll(dir))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())

	// Idempotent on a dir it created itself.
	require.NoError(t, file.MkdirAll(dir))
}

func TestMkdirAllRejectsLoosePermissions(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.Mkdir(dir, 0755))
	err := file.MkdirAll(dir)
	require.ErrorContains(t, "without proper 0700 permissions", err)
}

func TestWriteFileOwnerOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, file.WriteFile(path, []byte(`{}`)))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

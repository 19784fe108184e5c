package furgfs3_test

/*
 These test the exported surface of the engine against real temporary
 volume files.
*/

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/furgfs/go-furgfs/backend/file"
	"github.com/furgfs/go-furgfs/filesystem/furgfs3"
)

const testVolumeMB = 1

func newVolume(t *testing.T) (*furgfs3.FileSystem, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vol.fs")
	size := int64(testVolumeMB) * 1024 * 1024
	b, err := file.CreateFromPath(path, size)
	require.NoError(t, err)
	fs, err := furgfs3.Create(b, size, furgfs3.DefaultBlockSize)
	require.NoError(t, err)
	return fs, path
}

func reopen(t *testing.T, path string) *furgfs3.FileSystem {
	t.Helper()
	b, err := file.OpenFromPath(path, false)
	require.NoError(t, err)
	fs, err := furgfs3.Read(b)
	require.NoError(t, err)
	return fs
}

package furgfs_test

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	furgfs "github.com/furgfs/go-furgfs"
	"github.com/furgfs/go-furgfs/filesystem/furgfs3"
)

func TestCreateRejectsBadSizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vol.fs")
	_, err := furgfs.Create(path, 0)
	assert.ErrorIs(t, err, furgfs3.ErrInvalidSize)
	_, err = furgfs.Create(path, 10001)
	assert.ErrorIs(t, err, furgfs3.ErrInvalidSize)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := furgfs.Open(filepath.Join(t.TempDir(), "nope.fs"))
	assert.Error(t, err)
}

// the round-trip law: copy-in then copy-out preserves every byte
func TestCopyRoundTrip(t *testing.T) {
	tmp := t.TempDir()
	fs, err := furgfs.Create(filepath.Join(tmp, "vol.fs"), 1)
	require.NoError(t, err)
	defer fs.Close()

	content := make([]byte, 5000)
	_, err = rand.Read(content)
	require.NoError(t, err)
	src := filepath.Join(tmp, "src.bin")
	require.NoError(t, os.WriteFile(src, content, 0o644))

	require.NoError(t, fs.CopyIn(src, ""))

	// the stored digest matches the source
	sum := md5.Sum(content)
	digest, size, err := fs.VerifyIntegrity("src.bin")
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(sum[:]), digest)
	assert.EqualValues(t, len(content), size)

	// copy-out to an explicit path
	dst := filepath.Join(tmp, "out.bin")
	require.NoError(t, fs.CopyOut("src.bin", dst))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// copy-out to an existing directory appends the source name
	outDir := filepath.Join(tmp, "outdir")
	require.NoError(t, os.Mkdir(outDir, 0o755))
	require.NoError(t, fs.CopyOut("src.bin", outDir))
	got, err = os.ReadFile(filepath.Join(outDir, "src.bin"))
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestCopyInTimestampFromHost(t *testing.T) {
	tmp := t.TempDir()
	fs, err := furgfs.Create(filepath.Join(tmp, "vol.fs"), 1)
	require.NoError(t, err)
	defer fs.Close()

	src := filepath.Join(tmp, "old.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello\n"), 0o644))
	stamp := time.Unix(1600000000, 0)
	require.NoError(t, os.Chtimes(src, stamp, stamp))

	require.NoError(t, fs.CopyIn(src, "renamed.txt"))
	entries, err := fs.List(false)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "renamed.txt", entries[0].Name)
	assert.EqualValues(t, 6, entries[0].Size)
	assert.Equal(t, stamp.Unix(), entries[0].ModTime.Unix(), "entry records the host file's mtime")
}

func TestCopyInDuplicateName(t *testing.T) {
	tmp := t.TempDir()
	fs, err := furgfs.Create(filepath.Join(tmp, "vol.fs"), 1)
	require.NoError(t, err)
	defer fs.Close()

	src := filepath.Join(tmp, "f.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	require.NoError(t, fs.CopyIn(src, ""))
	assert.ErrorIs(t, fs.CopyIn(src, ""), furgfs3.ErrAlreadyExists)
}

// Package furgfs implements methods for creating and manipulating FURGfs3
// volumes: self-contained filesystems stored inside one host-level file.
//
// It does not mount anything through the operating system. Instead it
// manipulates the bytes of the backing file directly.
//
// Some examples:
//
// 1. Create a 10 MB volume and import a host file into it.
//
//	import furgfs "github.com/furgfs/go-furgfs"
//
//	fs, err := furgfs.Create("/tmp/vol.fs", 10)
//	err = fs.CopyIn("/etc/hosts", "")
//	err = fs.Close()
//
// 2. Open an existing volume and list the root directory.
//
//	fs, err := furgfs.Open("/tmp/vol.fs")
//	entries, err := fs.List(true)
package furgfs

import (
	"fmt"
	"os"

	"github.com/furgfs/go-furgfs/backend/file"
	"github.com/furgfs/go-furgfs/filesystem/furgfs3"
)

// Create makes a new volume file of sizeMB megabytes at path and formats
// it with the default block size. The file must not already exist.
func Create(path string, sizeMB int64) (*furgfs3.FileSystem, error) {
	return CreateWithBlockSize(path, sizeMB, furgfs3.DefaultBlockSize)
}

// CreateWithBlockSize is Create with an explicit block size.
func CreateWithBlockSize(path string, sizeMB, blockSize int64) (*furgfs3.FileSystem, error) {
	if sizeMB < furgfs3.MinSizeMB || sizeMB > furgfs3.MaxSizeMB {
		return nil, furgfs3.ErrInvalidSize
	}
	size := sizeMB * 1024 * 1024
	b, err := file.CreateFromPath(path, size)
	if err != nil {
		return nil, err
	}
	return furgfs3.Create(b, size, blockSize)
}

// Open mounts an existing volume file read-write.
func Open(path string) (*furgfs3.FileSystem, error) {
	b, err := file.OpenFromPath(path, false)
	if err != nil {
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			return nil, fmt.Errorf("%w: %v", furgfs3.ErrInvalidVolume, err)
		}
		return nil, err
	}
	return furgfs3.Read(b)
}

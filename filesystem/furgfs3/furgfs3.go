// Package furgfs3 implements the FURGfs3 filesystem: a single-file,
// block-structured volume with a FAT-style chain table, a fixed 128-byte
// superblock and 64-byte directory entries.
//
// A volume is created with Create and opened with Read. All operations work
// relative to a current directory maintained on the FileSystem, the way the
// original interactive tool navigated the tree.
package furgfs3

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/furgfs/go-furgfs/backend"
)

const (
	// DefaultBlockSize is the block size volumes are formatted with
	// unless a caller overrides it.
	DefaultBlockSize = 1024

	// MinSizeMB and MaxSizeMB bound the size of a new volume.
	MinSizeMB = 1
	MaxSizeMB = 10000

	mb = 1024 * 1024

	zeroFillChunk = 64 * 1024
)

// FileSystem implements the FURGfs3 volume engine. It owns the backing
// file handle and the in-memory chain table exclusively; it is not safe
// for concurrent use.
type FileSystem struct {
	sb      *superblock
	table   *table
	backend backend.Storage

	// navigation state: block of the current directory plus the path
	// components leading to it, starting with "/".
	currentDir uint32
	path       []string
}

// Create formats a new FURGfs3 volume on the given storage. size is the
// total volume size in bytes and must lie within [1 MB, 10000 MB]. A
// blockSize of 0 selects DefaultBlockSize.
//
// The storage is overwritten entirely: superblock, zeroed chain table with
// block 0 reserved, zeroed root directory block and a zero-filled data
// region.
func Create(b backend.Storage, size, blockSize int64) (*FileSystem, error) {
	if blockSize == 0 {
		blockSize = DefaultBlockSize
	}
	if blockSize < superblockSize {
		return nil, fmt.Errorf("block size %d is smaller than the %d-byte superblock", blockSize, superblockSize)
	}
	if size < MinSizeMB*mb || size > MaxSizeMB*mb {
		return nil, ErrInvalidSize
	}

	sb := newSuperblock(uint64(size), uint64(blockSize))
	tab := newTable(sb.totalBlocks)

	w, err := b.Writable()
	if err != nil {
		return nil, ErrReadonlyVolume
	}

	if _, err := w.WriteAt(sb.toBytes(), 0); err != nil {
		return nil, fmt.Errorf("unable to write superblock: %w", err)
	}
	if _, err := w.WriteAt(tab.bytes(), int64(sb.tableStart)); err != nil {
		return nil, fmt.Errorf("unable to write chain table: %w", err)
	}

	// zero-fill everything past the chain table, root block included
	zeroes := make([]byte, zeroFillChunk)
	offset := int64(sb.tableStart) + int64(len(tab.entries)*chainEntrySize)
	for offset < size {
		chunk := size - offset
		if chunk > zeroFillChunk {
			chunk = zeroFillChunk
		}
		if _, err := w.WriteAt(zeroes[:chunk], offset); err != nil {
			return nil, fmt.Errorf("unable to zero-fill volume: %w", err)
		}
		offset += chunk
	}
	if err := w.Sync(); err != nil {
		return nil, fmt.Errorf("unable to flush volume: %w", err)
	}

	log.Debugf("formatted volume: %d blocks of %d bytes, data region at %d", sb.totalBlocks, sb.blockSize, sb.dataStart)

	return &FileSystem{
		sb:         sb,
		table:      tab,
		backend:    b,
		currentDir: rootBlock,
		path:       []string{"/"},
	}, nil
}

// Read mounts an existing FURGfs3 volume: it validates the superblock and
// loads the chain table into memory. A mismatch between the recorded total
// size and the real file length is logged as a warning, not treated as
// fatal.
func Read(b backend.Storage) (*FileSystem, error) {
	info, err := b.Stat()
	if err != nil {
		return nil, fmt.Errorf("unable to stat volume file: %w", err)
	}
	if info.Size() < superblockSize {
		return nil, fmt.Errorf("%w: file is only %d bytes", ErrInvalidVolume, info.Size())
	}

	raw := make([]byte, superblockSize)
	if _, err := b.ReadAt(raw, 0); err != nil {
		return nil, fmt.Errorf("unable to read superblock: %w", err)
	}
	sb, err := superblockFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVolume, err)
	}

	if int64(sb.totalSize) != info.Size() {
		log.Warnf("volume header records %d bytes but the file is %d bytes", sb.totalSize, info.Size())
	}

	tableBytes := make([]byte, sb.totalBlocks*chainEntrySize)
	if _, err := b.ReadAt(tableBytes, int64(sb.tableStart)); err != nil {
		return nil, fmt.Errorf("unable to read chain table: %w", err)
	}

	return &FileSystem{
		sb:         sb,
		table:      tableFromBytes(tableBytes),
		backend:    b,
		currentDir: rootBlock,
		path:       []string{"/"},
	}, nil
}

// Close releases the backing file handle. There is no unmount bookkeeping:
// every mutation flushes as it happens.
func (fs *FileSystem) Close() error {
	return fs.backend.Close()
}

// BlockSize returns the volume's block size in bytes.
func (fs *FileSystem) BlockSize() int64 {
	return int64(fs.sb.blockSize)
}

// TotalBlocks returns the number of blocks covered by the chain table.
func (fs *FileSystem) TotalBlocks() int64 {
	return int64(fs.sb.totalBlocks)
}

// CurrentPath returns the current directory as an absolute path.
func (fs *FileSystem) CurrentPath() string {
	if len(fs.path) <= 1 {
		return "/"
	}
	return "/" + strings.Join(fs.path[1:], "/")
}

// SpaceInfo reports free bytes and total data-region bytes. Free space is
// computed from the chain table; the superblock's free-block field is not
// consulted.
func (fs *FileSystem) SpaceInfo() (free, total int64) {
	metadataBlocks := fs.sb.tableBlocks() + (superblockSize+fs.sb.blockSize-1)/fs.sb.blockSize + 1
	dataBlocks := fs.sb.totalBlocks - metadataBlocks
	return int64(fs.table.countFree() * fs.sb.blockSize), int64(dataBlocks * fs.sb.blockSize)
}

// writeTable rewrites the full on-disk chain table and flushes. Called
// after every allocator change.
func (fs *FileSystem) writeTable() error {
	w, err := fs.backend.Writable()
	if err != nil {
		return ErrReadonlyVolume
	}
	if _, err := w.WriteAt(fs.table.bytes(), int64(fs.sb.tableStart)); err != nil {
		return fmt.Errorf("unable to write chain table: %w", err)
	}
	if err := w.Sync(); err != nil {
		return fmt.Errorf("unable to flush chain table: %w", err)
	}
	return nil
}

// dataBlockPosition maps chain index k (k >= 1) to its byte offset. The
// root directory sits in its own block just before the data region, so the
// first data-region block is chain index 1.
func (fs *FileSystem) dataBlockPosition(block uint32) int64 {
	return int64(fs.sb.dataStart) + int64(block-1)*int64(fs.sb.blockSize)
}

// directoryBlockPosition maps a directory block number to its byte offset:
// block 0 is the dedicated root directory block.
func (fs *FileSystem) directoryBlockPosition(block uint32) int64 {
	if block == rootBlock {
		return int64(fs.sb.rootStart)
	}
	return fs.dataBlockPosition(block)
}

// writeDataBlock writes one block's worth of data at chain index block,
// zero-padding short buffers to a full block.
func (fs *FileSystem) writeDataBlock(block uint32, p []byte) error {
	w, err := fs.backend.Writable()
	if err != nil {
		return ErrReadonlyVolume
	}
	buf := p
	if int64(len(buf)) < int64(fs.sb.blockSize) {
		buf = make([]byte, fs.sb.blockSize)
		copy(buf, p)
	}
	if _, err := w.WriteAt(buf[:fs.sb.blockSize], fs.dataBlockPosition(block)); err != nil {
		return fmt.Errorf("unable to write block %d: %w", block, err)
	}
	return nil
}

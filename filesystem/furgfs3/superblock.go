package furgfs3

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// signature marks a FURGfs3 volume. It occupies the first seven bytes of the
// 32-byte signature field at offset 64 of the superblock.
var signature = []byte("FURGfs3")

const (
	superblockSize    = 128
	signatureOffset   = 64
	signatureFieldLen = 32
)

// superblock is the fixed 128-byte record at offset 0 of the volume. It
// locates the chain table, the root directory block and the data region.
// All fields are little-endian 64-bit on disk.
type superblock struct {
	headerSize  uint64
	blockSize   uint64
	totalSize   uint64
	tableStart  uint64
	rootStart   uint64
	dataStart   uint64
	totalBlocks uint64
	// freeBlocks is written as zero at format time and never maintained;
	// free space is computed from the chain table.
	freeBlocks uint64
}

func (sb *superblock) equal(a *superblock) bool {
	if (sb == nil && a != nil) || (sb != nil && a == nil) {
		return false
	}
	if sb == nil && a == nil {
		return true
	}
	return *sb == *a
}

// newSuperblock computes the on-volume layout for a volume of totalSize
// bytes with the given block size.
func newSuperblock(totalSize, blockSize uint64) *superblock {
	totalBlocks := (totalSize - superblockSize) / blockSize
	tableStart := uint64(superblockSize)
	tableBlocks := (totalBlocks*chainEntrySize + blockSize - 1) / blockSize
	rootStart := tableStart + tableBlocks*blockSize
	dataStart := rootStart + blockSize

	return &superblock{
		headerSize:  superblockSize,
		blockSize:   blockSize,
		totalSize:   totalSize,
		tableStart:  tableStart,
		rootStart:   rootStart,
		dataStart:   dataStart,
		totalBlocks: totalBlocks,
		freeBlocks:  0,
	}
}

// tableBlocks reports how many whole blocks the chain table occupies.
func (sb *superblock) tableBlocks() uint64 {
	return (sb.totalBlocks*chainEntrySize + sb.blockSize - 1) / sb.blockSize
}

func superblockFromBytes(b []byte) (*superblock, error) {
	if len(b) < superblockSize {
		return nil, fmt.Errorf("superblock was %d bytes instead of expected %d", len(b), superblockSize)
	}
	if !bytes.HasPrefix(b[signatureOffset:signatureOffset+signatureFieldLen], signature) {
		return nil, fmt.Errorf("invalid signature %v", b[signatureOffset:signatureOffset+len(signature)])
	}
	sb := superblock{
		headerSize:  binary.LittleEndian.Uint64(b[0:8]),
		blockSize:   binary.LittleEndian.Uint64(b[8:16]),
		totalSize:   binary.LittleEndian.Uint64(b[16:24]),
		tableStart:  binary.LittleEndian.Uint64(b[24:32]),
		rootStart:   binary.LittleEndian.Uint64(b[32:40]),
		dataStart:   binary.LittleEndian.Uint64(b[40:48]),
		totalBlocks: binary.LittleEndian.Uint64(b[48:56]),
		freeBlocks:  binary.LittleEndian.Uint64(b[56:64]),
	}
	if sb.headerSize != superblockSize {
		return nil, fmt.Errorf("header size was %d instead of expected %d", sb.headerSize, superblockSize)
	}
	if sb.blockSize == 0 || sb.totalBlocks == 0 {
		return nil, fmt.Errorf("superblock describes an empty volume")
	}
	return &sb, nil
}

// toBytes returns the superblock ready to be written at offset 0.
func (sb *superblock) toBytes() []byte {
	b := make([]byte, superblockSize)
	binary.LittleEndian.PutUint64(b[0:8], sb.headerSize)
	binary.LittleEndian.PutUint64(b[8:16], sb.blockSize)
	binary.LittleEndian.PutUint64(b[16:24], sb.totalSize)
	binary.LittleEndian.PutUint64(b[24:32], sb.tableStart)
	binary.LittleEndian.PutUint64(b[32:40], sb.rootStart)
	binary.LittleEndian.PutUint64(b[40:48], sb.dataStart)
	binary.LittleEndian.PutUint64(b[48:56], sb.totalBlocks)
	binary.LittleEndian.PutUint64(b[56:64], sb.freeBlocks)
	copy(b[signatureOffset:], signature)
	return b
}

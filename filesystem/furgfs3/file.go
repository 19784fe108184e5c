package furgfs3

import (
	"crypto/md5" //nolint:gosec // round-trip verification only, not a security boundary
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/djherbis/times.v1"
)

// contentDigest returns the hex MD5 of a buffer. The digest is used only
// to verify copy round-trips; it is never persisted in the volume.
func contentDigest(content []byte) string {
	sum := md5.Sum(content) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// WriteFile creates a file in the current directory from a byte buffer.
// The content is spread over a freshly allocated chain; a zero-byte file
// still occupies one block, which keeps the read path uniform.
func (fs *FileSystem) WriteFile(name string, content []byte) error {
	return fs.createFile(name, content, uint32(time.Now().Unix()))
}

func (fs *FileSystem) createFile(name string, content []byte, timestamp uint32) error {
	if err := checkName(name); err != nil {
		return err
	}
	entries, err := fs.readDirectory(fs.currentDir, false)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.name == name {
			return ErrAlreadyExists
		}
	}

	blockSize := int(fs.sb.blockSize)
	numBlocks := (len(content) + blockSize - 1) / blockSize
	if numBlocks < 1 {
		numBlocks = 1
	}
	blocks := fs.table.allocateChain(numBlocks)
	if blocks == nil {
		return ErrNoSpace
	}

	rollback := func() {
		fs.table.freeChain(blocks[0])
	}

	offset := 0
	for _, block := range blocks {
		end := offset + blockSize
		if end > len(content) {
			end = len(content)
		}
		if err := fs.writeDataBlock(block, content[offset:end]); err != nil {
			rollback()
			return err
		}
		offset += blockSize
	}

	entry := &directoryEntry{
		name:       name,
		size:       uint32(len(content)),
		startBlock: blocks[0],
		timestamp:  timestamp,
		entryType:  entryTypeFile,
	}
	if err := fs.writeEntry(fs.currentDir, entry); err != nil {
		rollback()
		return err
	}
	return fs.writeTable()
}

// ReadFile returns the full content of the named file in the current
// directory. The walk consumes at most the recorded size, so the zero
// padding of the final block never leaks into the result.
func (fs *FileSystem) ReadFile(name string) ([]byte, error) {
	entry, err := fs.findEntry(name, int(entryTypeFile))
	if err != nil {
		return nil, err
	}
	return fs.readFileEntry(entry)
}

func (fs *FileSystem) readFileEntry(entry *directoryEntry) ([]byte, error) {
	content := make([]byte, 0, entry.size)
	current := entry.startBlock
	remaining := int64(entry.size)
	blockSize := int64(fs.sb.blockSize)

	// current is a block index, never compared against the chain-table
	// sentinels: block index 1 is the allocator's first pick and perfectly
	// valid, even though 1 is also the end-of-chain value.
	for remaining > 0 {
		if current == 0 || uint64(current) >= fs.sb.totalBlocks {
			return nil, fmt.Errorf("corrupt block chain for %q at block %d", entry.name, current)
		}
		chunk := blockSize
		if chunk > remaining {
			chunk = remaining
		}
		buf := make([]byte, chunk)
		if _, err := fs.backend.ReadAt(buf, fs.dataBlockPosition(current)); err != nil {
			return nil, fmt.Errorf("unable to read block %d: %w", current, err)
		}
		content = append(content, buf...)
		remaining -= chunk

		next := fs.table.entries[current]
		if next == blockEndOfChain || next == blockFree {
			break
		}
		current = next
	}
	return content, nil
}

// RemoveFile deletes an unprotected file from the current directory,
// freeing its chain and zeroing its entry.
func (fs *FileSystem) RemoveFile(name string) error {
	entry, err := fs.findEntry(name, int(entryTypeFile))
	if err != nil {
		return err
	}
	if entry.isProtected {
		return ErrProtected
	}

	fs.table.freeChain(entry.startBlock)
	if err := fs.clearEntry(fs.currentDir, entry.slot); err != nil {
		return err
	}
	return fs.writeTable()
}

// CopyIn imports a host file into the current directory and verifies the
// stored copy byte-for-byte via MD5. On a digest mismatch the just-written
// file is removed again. An empty destName takes the host file's base
// name. The entry timestamp records the host file's modification time.
func (fs *FileSystem) CopyIn(hostPath, destName string) error {
	content, err := os.ReadFile(hostPath)
	if err != nil {
		return fmt.Errorf("unable to read source file: %w", err)
	}
	if destName == "" {
		destName = filepath.Base(hostPath)
	}

	timestamp := uint32(time.Now().Unix())
	if ts, err := times.Stat(hostPath); err == nil {
		timestamp = uint32(ts.ModTime().Unix())
	}

	sourceDigest := contentDigest(content)
	if err := fs.createFile(destName, content, timestamp); err != nil {
		return err
	}

	stored, err := fs.ReadFile(destName)
	if err != nil {
		return err
	}
	if contentDigest(stored) != sourceDigest {
		log.Errorf("stored copy of %q does not match its source, removing it", destName)
		if rmErr := fs.RemoveFile(destName); rmErr != nil {
			return fmt.Errorf("%w (and removing the corrupt copy failed: %v)", ErrIntegrityMismatch, rmErr)
		}
		return ErrIntegrityMismatch
	}
	return nil
}

// CopyOut exports a file from the current directory to the host and
// verifies the written host file via MD5, deleting it on mismatch. A
// hostPath naming an existing directory gets the source name appended.
func (fs *FileSystem) CopyOut(name, hostPath string) error {
	content, err := fs.ReadFile(name)
	if err != nil {
		return err
	}
	if info, err := os.Stat(hostPath); err == nil && info.IsDir() {
		hostPath = filepath.Join(hostPath, name)
	}

	sourceDigest := contentDigest(content)

	if parent := filepath.Dir(hostPath); parent != "" && parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return fmt.Errorf("unable to create destination directory: %w", err)
		}
	}
	if err := os.WriteFile(hostPath, content, 0o644); err != nil {
		return fmt.Errorf("unable to write destination file: %w", err)
	}

	written, err := os.ReadFile(hostPath)
	if err != nil {
		return fmt.Errorf("unable to re-read destination file: %w", err)
	}
	if contentDigest(written) != sourceDigest {
		log.Errorf("host copy of %q does not match the volume, removing it", name)
		_ = os.Remove(hostPath)
		return ErrIntegrityMismatch
	}
	return nil
}

// VerifyIntegrity reads the named file and reports its MD5 digest and
// size. Advisory only: no digest is stored in the volume to compare
// against.
func (fs *FileSystem) VerifyIntegrity(name string) (digest string, size int64, err error) {
	content, err := fs.ReadFile(name)
	if err != nil {
		return "", 0, err
	}
	return contentDigest(content), int64(len(content)), nil
}

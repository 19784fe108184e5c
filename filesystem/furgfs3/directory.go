package furgfs3

import (
	"fmt"
	"time"
)

// rootBlock is the directory block number of the root directory. Its
// chain-table entry is permanently blockEndOfChain.
const rootBlock = uint32(0)

// entriesPerBlock reports how many 64-byte records fit in one directory
// block.
func (fs *FileSystem) entriesPerBlock() int {
	return int(fs.sb.blockSize) / entrySize
}

// readDirectory decodes the occupied slots of a directory block. Slots
// whose records fail validation are skipped. When computeSizes is set,
// every subdirectory entry gets its recursive content size attached.
func (fs *FileSystem) readDirectory(block uint32, computeSizes bool) ([]*directoryEntry, error) {
	raw := make([]byte, fs.sb.blockSize)
	if _, err := fs.backend.ReadAt(raw, fs.directoryBlockPosition(block)); err != nil {
		return nil, fmt.Errorf("unable to read directory block %d: %w", block, err)
	}

	var entries []*directoryEntry
	for slot := 0; slot < fs.entriesPerBlock(); slot++ {
		record := raw[slot*entrySize : (slot+1)*entrySize]
		entry := entryFromBytes(record, fs.sb.totalBlocks)
		if entry == nil {
			continue
		}
		entry.slot = slot
		if computeSizes && entry.isDir() {
			size, err := fs.directorySize(entry.startBlock)
			if err != nil {
				size = 0
			}
			entry.calculatedSize = size
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// directorySize sums the file sizes under a directory block recursively.
func (fs *FileSystem) directorySize(block uint32) (int64, error) {
	entries, err := fs.readDirectory(block, false)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, entry := range entries {
		if entry.isDir() {
			sub, err := fs.directorySize(entry.startBlock)
			if err != nil {
				return 0, err
			}
			total += sub
		} else {
			total += int64(entry.size)
		}
	}
	return total, nil
}

// writeEntryAt writes one 64-byte record into the given slot of a
// directory block.
func (fs *FileSystem) writeEntryAt(block uint32, slot int, entry *directoryEntry) error {
	w, err := fs.backend.Writable()
	if err != nil {
		return ErrReadonlyVolume
	}
	pos := fs.directoryBlockPosition(block) + int64(slot)*entrySize
	if _, err := w.WriteAt(entry.toBytes(), pos); err != nil {
		return fmt.Errorf("unable to write directory entry: %w", err)
	}
	if err := w.Sync(); err != nil {
		return fmt.Errorf("unable to flush directory entry: %w", err)
	}
	return nil
}

// writeEntry places an entry into the first unused slot of a directory
// block. An unused slot is one whose first byte is zero.
func (fs *FileSystem) writeEntry(block uint32, entry *directoryEntry) error {
	raw := make([]byte, fs.sb.blockSize)
	if _, err := fs.backend.ReadAt(raw, fs.directoryBlockPosition(block)); err != nil {
		return fmt.Errorf("unable to read directory block %d: %w", block, err)
	}
	slot := -1
	for i := 0; i < fs.entriesPerBlock(); i++ {
		if raw[i*entrySize] == 0 {
			slot = i
			break
		}
	}
	if slot == -1 {
		return ErrDirectoryFull
	}
	entry.slot = slot
	return fs.writeEntryAt(block, slot, entry)
}

// clearEntry zeroes the 64-byte record in the given slot.
func (fs *FileSystem) clearEntry(block uint32, slot int) error {
	w, err := fs.backend.Writable()
	if err != nil {
		return ErrReadonlyVolume
	}
	pos := fs.directoryBlockPosition(block) + int64(slot)*entrySize
	if _, err := w.WriteAt(make([]byte, entrySize), pos); err != nil {
		return fmt.Errorf("unable to clear directory entry: %w", err)
	}
	return nil
}

// findEntry looks up a name in the current directory. When wantType is
// negative any type matches; otherwise a name present with the other type
// reports ErrWrongType.
func (fs *FileSystem) findEntry(name string, wantType int) (*directoryEntry, error) {
	entries, err := fs.readDirectory(fs.currentDir, false)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.name != name {
			continue
		}
		if wantType >= 0 && entry.entryType != uint16(wantType) {
			return nil, ErrWrongType
		}
		return entry, nil
	}
	return nil, ErrNotFound
}

// checkName validates a new entry name: non-empty and at most 31 bytes.
func checkName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrNotFound)
	}
	if len(name) >= maxFilenameBytes {
		return ErrNameTooLong
	}
	return nil
}

// List enumerates the current directory. With recursiveSizes set, each
// subdirectory row carries the summed size of everything beneath it.
func (fs *FileSystem) List(recursiveSizes bool) ([]*Entry, error) {
	entries, err := fs.readDirectory(fs.currentDir, recursiveSizes)
	if err != nil {
		return nil, err
	}
	out := make([]*Entry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, newEntry(entry))
	}
	return out, nil
}

// Mkdir creates a subdirectory in the current directory. A directory
// occupies exactly one zeroed block.
func (fs *FileSystem) Mkdir(name string) error {
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

	blocks := fs.table.allocateChain(1)
	if blocks == nil {
		return ErrNoSpace
	}
	if err := fs.writeDataBlock(blocks[0], nil); err != nil {
		fs.table.freeChain(blocks[0])
		return err
	}
	entry := &directoryEntry{
		name:       name,
		size:       0,
		startBlock: blocks[0],
		timestamp:  uint32(time.Now().Unix()),
		entryType:  entryTypeDirectory,
	}
	if err := fs.writeEntry(fs.currentDir, entry); err != nil {
		fs.table.freeChain(blocks[0])
		return err
	}
	return fs.writeTable()
}

// ChangeDirectory descends into the named subdirectory, or pops one level
// for "..". Directory blocks carry no parent pointer, so ".." re-walks the
// path from the root to find the new current block.
func (fs *FileSystem) ChangeDirectory(name string) error {
	if name == ".." {
		if len(fs.path) <= 1 {
			return fmt.Errorf("already at the root directory")
		}
		parent := fs.path[1 : len(fs.path)-1]
		block, err := fs.walk(parent)
		if err != nil {
			return err
		}
		fs.path = fs.path[:len(fs.path)-1]
		fs.currentDir = block
		return nil
	}

	entry, err := fs.findEntry(name, int(entryTypeDirectory))
	if err != nil {
		return err
	}
	fs.currentDir = entry.startBlock
	fs.path = append(fs.path, name)
	return nil
}

// walk resolves a sequence of directory names starting at the root and
// returns the block of the last one.
func (fs *FileSystem) walk(components []string) (uint32, error) {
	block := rootBlock
	for _, component := range components {
		entries, err := fs.readDirectory(block, false)
		if err != nil {
			return 0, err
		}
		found := false
		for _, entry := range entries {
			if entry.name == component && entry.isDir() {
				block = entry.startBlock
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: %s", ErrNotFound, component)
		}
	}
	return block, nil
}

// RemoveDirectory deletes an empty, unprotected subdirectory of the
// current directory and frees its block.
func (fs *FileSystem) RemoveDirectory(name string) error {
	entry, err := fs.findEntry(name, int(entryTypeDirectory))
	if err != nil {
		return err
	}
	if entry.isProtected {
		return ErrProtected
	}
	children, err := fs.readDirectory(entry.startBlock, false)
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return ErrNotEmpty
	}

	fs.table.freeChain(entry.startBlock)
	if err := fs.clearEntry(fs.currentDir, entry.slot); err != nil {
		return err
	}
	return fs.writeTable()
}

// RenameFile renames a file in the current directory.
func (fs *FileSystem) RenameFile(oldName, newName string) error {
	return fs.renameEntry(oldName, newName, entryTypeFile)
}

// RenameDirectory renames a subdirectory of the current directory.
// Descendants are addressed by block, not by path, so nothing below the
// renamed entry needs rewriting.
func (fs *FileSystem) RenameDirectory(oldName, newName string) error {
	return fs.renameEntry(oldName, newName, entryTypeDirectory)
}

func (fs *FileSystem) renameEntry(oldName, newName string, entryType uint16) error {
	if err := checkName(newName); err != nil {
		return err
	}
	entries, err := fs.readDirectory(fs.currentDir, false)
	if err != nil {
		return err
	}
	var target *directoryEntry
	for _, entry := range entries {
		if entry.name == newName {
			return ErrAlreadyExists
		}
		if entry.name == oldName && entry.entryType == entryType {
			target = entry
		}
	}
	if target == nil {
		return ErrNotFound
	}
	if target.isProtected {
		return ErrProtected
	}
	target.name = newName
	return fs.writeEntryAt(fs.currentDir, target.slot, target)
}

// ToggleProtection flips the protected bit of the named entry, file or
// directory. A protected entry refuses rename and remove until cleared.
func (fs *FileSystem) ToggleProtection(name string) error {
	entry, err := fs.findEntry(name, -1)
	if err != nil {
		return err
	}
	entry.isProtected = !entry.isProtected
	return fs.writeEntryAt(fs.currentDir, entry.slot, entry)
}

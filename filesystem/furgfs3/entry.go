package furgfs3

import "time"

// Entry is the externally visible form of a directory record.
type Entry struct {
	Name      string
	Size      int64
	IsDir     bool
	Protected bool
	ModTime   time.Time
}

// newEntry converts an on-volume record to its external form. Directory
// rows report the recursive content size when the listing computed one.
func newEntry(de *directoryEntry) *Entry {
	size := int64(de.size)
	if de.isDir() {
		size = de.calculatedSize
	}
	return &Entry{
		Name:      de.name,
		Size:      size,
		IsDir:     de.isDir(),
		Protected: de.isProtected,
		ModTime:   time.Unix(int64(de.timestamp), 0),
	}
}

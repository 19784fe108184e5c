package furgfs3

import "errors"

var (
	// ErrInvalidSize is returned when creating a volume outside the 1 MB - 10000 MB range
	ErrInvalidSize = errors.New("volume size must be between 1 MB and 10000 MB")
	// ErrInvalidVolume is returned when the backing file is missing, too short, or carries the wrong signature
	ErrInvalidVolume = errors.New("not a valid FURGfs3 volume")
	// ErrNotFound is returned when the named entry does not exist in its directory
	ErrNotFound = errors.New("no such file or directory")
	// ErrAlreadyExists is returned on a name collision during create or rename
	ErrAlreadyExists = errors.New("name already exists")
	// ErrWrongType is returned when a file was expected and a directory given, or vice versa
	ErrWrongType = errors.New("entry is not of the expected type")
	// ErrNotEmpty is returned when removing a directory that still has entries
	ErrNotEmpty = errors.New("directory not empty")
	// ErrProtected is returned when removing or renaming an entry whose protected bit is set
	ErrProtected = errors.New("entry is protected")
	// ErrNoSpace is returned when the allocator cannot satisfy a request
	ErrNoSpace = errors.New("no space left on volume")
	// ErrNameTooLong is returned for names of 32 bytes or more
	ErrNameTooLong = errors.New("name too long")
	// ErrDirectoryFull is returned when all entry slots of a directory block are occupied
	ErrDirectoryFull = errors.New("directory full")
	// ErrIntegrityMismatch is returned when a digest after a copy round-trip does not match the source
	ErrIntegrityMismatch = errors.New("integrity check failed after copy")
	// ErrReadonlyVolume is returned when mutating a volume whose backing file is not writable
	ErrReadonlyVolume = errors.New("read-only volume")
)

package gocfb

import (
	"os"
	"time"
)

// FileInfo returns the os.FileInfo of a directory entry.
func (e DirectoryEntry) FileInfo() os.FileInfo {
	return entryFileInfo{entry: e, isRoot: e.Type == TypeRoot}
}

type entryFileInfo struct {
	entry  DirectoryEntry
	isRoot bool
}

func (e entryFileInfo) Name() string {
	if e.isRoot {
		return "."
	}
	return e.entry.Name
}

// Size of a stream. Directories have no size, even the root entry which holds the mini stream.
// Entries of unknown type have no content either.
func (e entryFileInfo) Size() int64 {
	if e.IsDir() || e.entry.Type != TypeStream {
		return 0
	}
	if e.entry.StreamSize > 1<<63-1 {
		return 1<<63 - 1
	}
	return int64(e.entry.StreamSize)
}

func (e entryFileInfo) Mode() os.FileMode {
	if e.IsDir() {
		return os.ModeDir | 0555
	}
	return 0444
}

// ModTime returns the modification time, or the creation time if only that was recorded.
// Streams usually have neither, then time.Time{} is returned.
func (e entryFileInfo) ModTime() time.Time {
	if !e.entry.Modified.IsZero() {
		return e.entry.Modified
	}
	return e.entry.Created
}

func (e entryFileInfo) IsDir() bool {
	return e.isRoot || e.entry.Type == TypeStorage || e.entry.Type == TypeRoot
}

func (e entryFileInfo) Sys() interface{} {
	return e.entry
}

package gocfb

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/aligator/gocfb/checkpoint"
	"github.com/spf13/afero"
)

// These errors may occur while processing a file.
var (
	ErrReadFile = errors.New("could not read file completely")
	ErrSeekFile = errors.New("could not seek inside of the file")
	ErrReadDir  = errors.New("could not read the directory")
	ErrReadOnly = errors.New("compound files are read-only")
)

// streamSource provides all methods needed from a compound file for File.
// It mainly exists to be able to mock the Fs in tests.
// Generated mock using mockgen:
//  mockgen -source=file.go -destination=file_mock.go -package gocfb
type streamSource interface {
	readStreamAt(entry DirectoryEntry, offset int64, readSize int64) ([]byte, error)
	readRoot() ([]DirectoryEntry, error)
}

// File is an open stream, storage or the root directory of a compound file.
type File struct {
	fs   streamSource
	path string

	isDirectory bool

	entry  DirectoryEntry
	stat   os.FileInfo
	offset int64
}

func (f *File) Close() error {
	f.fs = nil
	f.path = ""
	f.isDirectory = false
	f.entry = DirectoryEntry{}
	f.stat = nil
	f.offset = 0

	return nil
}

// Read reads from the current offset and moves it by the number of bytes read.
func (f *File) Read(p []byte) (n int, err error) {
	n, err = f.ReadAt(p, f.offset)
	f.offset += int64(n)

	// A partial read is not the end yet, the next call reports it.
	if err == io.EOF && n > 0 {
		return n, nil
	}
	return n, err
}

// ReadAt reads len(p) bytes of the stream starting at off. Less bytes are only returned together
// with an error, which is io.EOF if the stream ends.
// A negative off returns an afero.ErrOutOfRange error.
func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, &os.PathError{Op: "readat", Path: f.path, Err: checkpoint.Wrap(afero.ErrOutOfRange, ErrReadFile)}
	}
	if p == nil {
		return 0, nil
	}
	if off >= f.stat.Size() {
		return 0, io.EOF
	}

	data, err := f.fs.readStreamAt(f.entry, off, int64(len(p)))
	n = copy(p, data)
	if err != nil {
		return n, checkpoint.Wrap(err, ErrReadFile)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek jumps to a specific offset in the file. This affects all Read operation except ReadAt.
// May return a syscall.EINVAL error if the whence value is invalid.
// May return an afero.ErrOutOfRange error if the offset is out of range.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset = f.offset + offset
	case io.SeekEnd:
		offset = f.stat.Size() + offset
	default:
		return 0, checkpoint.Wrap(ErrSeekFile, fmt.Errorf("%w, offset: %v, whence: %v", syscall.EINVAL, offset, whence))
	}

	if offset < 0 || offset > f.stat.Size() {
		return 0, checkpoint.Wrap(afero.ErrOutOfRange, fmt.Errorf("%w, offset: %v, whence: %v", ErrSeekFile, offset, whence))
	}

	f.offset = offset
	return offset, nil
}

func (f *File) Write(p []byte) (n int, err error) {
	return 0, readOnly("write", f.path)
}

func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	return 0, readOnly("write", f.path)
}

func (f *File) Name() string {
	return f.stat.Name()
}

// children returns the entries listed in the directory. Only the root directory has content,
// storages are always empty as the namespace is flat.
func (f *File) children() ([]DirectoryEntry, error) {
	if !f.isDirectory {
		return nil, checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}
	if f.path != "" {
		return nil, nil
	}

	entries, err := f.fs.readRoot()
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}
	return entries, nil
}

// Readdir reads the contents of a directory like os.File.Readdir: with count > 0 at most count
// entries are returned and io.EOF only once nothing is left, otherwise everything left is returned.
// May return syscall.ENOTDIR if the current File is no directory.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	entries, err := f.children()
	if err != nil {
		return nil, err
	}

	if f.offset > int64(len(entries)) {
		f.offset = int64(len(entries))
	}
	left := entries[f.offset:]

	if count > 0 {
		if len(left) == 0 {
			return nil, io.EOF
		}
		if count < len(left) {
			left = left[:count]
		}
	}
	f.offset += int64(len(left))

	infos := make([]os.FileInfo, 0, len(left))
	for _, e := range left {
		infos = append(infos, entryFileInfo{entry: e})
	}
	return infos, nil
}

func (f *File) Readdirnames(count int) ([]string, error) {
	content, err := f.Readdir(count)
	if err != nil && err != io.EOF {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	names := make([]string, len(content))
	for i, entry := range content {
		names[i] = entry.Name()
	}

	return names, err
}

func (f *File) Stat() (os.FileInfo, error) {
	return f.stat, nil
}

func (f *File) Sync() error {
	return nil
}

func (f *File) Truncate(size int64) error {
	return readOnly("truncate", f.path)
}

func (f *File) WriteString(s string) (ret int, err error) {
	return f.Write([]byte(s))
}

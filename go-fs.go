package gocfb

import (
	"errors"
	"io/fs"
	"syscall"
)

// GoDirEntry is a directory entry as returned by GoFile.ReadDir.
type GoDirEntry struct {
	fs.FileInfo
}

func (g GoDirEntry) Type() fs.FileMode {
	return g.Mode().Type()
}

func (g GoDirEntry) Info() (fs.FileInfo, error) {
	return g.FileInfo, nil
}

// GoFile adapts File to fs.File and fs.ReadDirFile.
type GoFile struct {
	*File
}

func (g GoFile) Stat() (fs.FileInfo, error) {
	return g.File.Stat()
}

func (g GoFile) Read(p []byte) (int, error) {
	return g.File.Read(p)
}

func (g GoFile) Close() error {
	return g.File.Close()
}

func (g GoFile) ReadDir(n int) ([]fs.DirEntry, error) {
	infos, err := g.File.Readdir(n)

	entries := make([]fs.DirEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, GoDirEntry{info})
	}
	return entries, err
}

// GoFs wraps Fs to be compatible with fs.FS.
// Besides Open it implements fs.StatFS and fs.ReadFileFS, which resolves a stream in one go.
type GoFs struct {
	Fs
}

// NewGoFS opens a compound file from the given source as fs.FS compatible filesystem.
func NewGoFS(src ByteSource, opts ...Option) (*GoFs, error) {
	cfb, err := New(src, opts...)
	if err != nil {
		return nil, err
	}
	return &GoFs{*cfb}, nil
}

// NewGoFSSkipChecks works like NewGoFS but parses with ParseSkipChecks, which may allow
// opening damaged files. Use with caution!
func NewGoFSSkipChecks(src ByteSource, opts ...Option) (*GoFs, error) {
	cfb, err := NewSkipChecks(src, opts...)
	if err != nil {
		return nil, err
	}
	return &GoFs{*cfb}, nil
}

func (g GoFs) open(op, name string) (*File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrInvalid}
	}

	file, err := g.Fs.Open(name)
	if err != nil {
		return nil, err
	}

	f, ok := file.(*File)
	if !ok {
		return nil, errors.New("invalid File implementation")
	}
	return f, nil
}

func (g GoFs) Open(name string) (fs.File, error) {
	f, err := g.open("open", name)
	if err != nil {
		return nil, err
	}
	return GoFile{f}, nil
}

func (g GoFs) Stat(name string) (fs.FileInfo, error) {
	f, err := g.open("stat", name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Stat()
}

// ReadFile returns the whole content of a stream.
// If the stream is damaged, the readable part is returned together with the error.
func (g GoFs) ReadFile(name string) ([]byte, error) {
	f, err := g.open("readfile", name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if f.isDirectory {
		return nil, &fs.PathError{Op: "readfile", Path: name, Err: syscall.EISDIR}
	}

	data, err := g.container.Resolve(f.entry)
	if err != nil {
		return data, &fs.PathError{Op: "readfile", Path: name, Err: err}
	}
	return data, nil
}

package gocfb

import (
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/aligator/gocfb/checkpoint"
	"github.com/spf13/afero"
)

// fsCacheSize is the number of streams New keeps resolved, as File reads resolve the stream on every call.
const fsCacheSize = 16

// Fs is a read-only afero.Fs view of a Container.
// All entries appear flat in the root directory, just like they are found by Container.Lookup.
// Storages are shown as empty directories.
type Fs struct {
	container *Container
}

// New opens a compound file from the given source as afero.Fs.
func New(src ByteSource, opts ...Option) (*Fs, error) {
	c, err := Parse(src, append([]Option{WithCache(fsCacheSize)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return NewFs(c), nil
}

// NewSkipChecks opens a compound file just like New but it uses ParseSkipChecks.
// Use with caution!
func NewSkipChecks(src ByteSource, opts ...Option) (*Fs, error) {
	c, err := ParseSkipChecks(src, append([]Option{WithCache(fsCacheSize)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return NewFs(c), nil
}

// NewFs creates the afero.Fs view of an already parsed Container.
func NewFs(c *Container) *Fs {
	return &Fs{container: c}
}

// Container returns the parsed file behind the view.
func (fs *Fs) Container() *Container {
	return fs.container
}

// readStreamAt returns readSize bytes of the stream starting at offset.
// If the stream ends before, the remaining bytes are returned together with io.EOF.
func (fs *Fs) readStreamAt(entry DirectoryEntry, offset int64, readSize int64) ([]byte, error) {
	data, err := fs.container.Resolve(entry)
	if err != nil {
		return nil, err
	}

	if offset < 0 {
		return nil, afero.ErrOutOfRange
	}
	if offset >= int64(len(data)) {
		return nil, io.EOF
	}

	end := offset + readSize
	if end > int64(len(data)) {
		return data[offset:], io.EOF
	}
	return data[offset:end], nil
}

// readRoot lists all entries except the root entry itself.
func (fs *Fs) readRoot() ([]DirectoryEntry, error) {
	var result []DirectoryEntry
	for _, e := range fs.container.entries {
		if e.Type == TypeRoot {
			continue
		}
		result = append(result, e)
	}
	return result, nil
}

// cleanPath removes leading and trailing slashes. The root is "".
func cleanPath(name string) string {
	name = strings.Trim(name, "/")
	if name == "." {
		return ""
	}
	return name
}

func (fs *Fs) rootEntry() DirectoryEntry {
	if root, ok := fs.container.Root(); ok {
		return root.DirectoryEntry
	}
	// Damaged files opened by NewSkipChecks may have no root entry.
	return DirectoryEntry{Name: "Root Entry", Type: TypeRoot}
}

func (fs *Fs) Open(name string) (afero.File, error) {
	p := cleanPath(name)

	if p == "" {
		root := fs.rootEntry()
		return &File{
			fs:          fs,
			path:        "",
			isDirectory: true,
			entry:       root,
			stat:        entryFileInfo{entry: root, isRoot: true},
		}, nil
	}

	entry, ok := fs.container.Lookup(p)
	if !ok || entry.Type == TypeRoot {
		return nil, &os.PathError{Op: "open", Path: name, Err: checkpoint.Wrap(os.ErrNotExist, ErrNotFound)}
	}

	return &File{
		fs:          fs,
		path:        p,
		isDirectory: entry.Type == TypeStorage,
		entry:       entry.DirectoryEntry,
		stat:        entryFileInfo{entry: entry.DirectoryEntry},
	}, nil
}

func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_CREATE|os.O_TRUNC|os.O_APPEND) != 0 {
		return nil, readOnly("open", name)
	}
	return fs.Open(name)
}

func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	file, err := fs.Open(name)
	if err != nil {
		return nil, err
	}
	return file.Stat()
}

func (fs *Fs) Name() string {
	return "gocfb"
}

func readOnly(op, name string) error {
	return &os.PathError{Op: op, Path: name, Err: checkpoint.Wrap(syscall.EROFS, ErrReadOnly)}
}

func (fs *Fs) Create(name string) (afero.File, error) {
	return nil, readOnly("create", name)
}

func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	return readOnly("mkdir", name)
}

func (fs *Fs) MkdirAll(path string, perm os.FileMode) error {
	return readOnly("mkdir", path)
}

func (fs *Fs) Remove(name string) error {
	return readOnly("remove", name)
}

func (fs *Fs) RemoveAll(path string) error {
	return readOnly("remove", path)
}

func (fs *Fs) Rename(oldname, newname string) error {
	return readOnly("rename", oldname)
}

func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	return readOnly("chmod", name)
}

func (fs *Fs) Chown(name string, uid, gid int) error {
	return readOnly("chown", name)
}

func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return readOnly("chtimes", name)
}

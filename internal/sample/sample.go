// Package sample opens input files for cfbdump. Samples are often stored compressed,
// so gzip, zstd and xz files are decompressed transparently.
package sample

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aligator/gocfb/checkpoint"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"
	"golang.org/x/exp/mmap"
)

// ErrTooLarge is returned if a compressed sample expands to more than the allowed size.
var ErrTooLarge = errors.New("sample too large")

// Compression of a sample file.
const (
	Plain = "plain"
	Gzip  = "gzip"
	Zstd  = "zstd"
	XZ    = "xz"
)

var magics = []struct {
	compression string
	magic       []byte
}{
	{Gzip, []byte{0x1F, 0x8B}},
	{Zstd, []byte{0x28, 0xB5, 0x2F, 0xFD}},
	{XZ, []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}},
}

type readerAtCloser interface {
	io.ReaderAt
	io.Closer
}

// Sample is an opened input file. It can be passed to gocfb.Parse directly.
type Sample struct {
	src  readerAtCloser
	size int64

	// Compression the file was stored with.
	Compression string
	// Mapped is set if the file is memory-mapped instead of read through the file system.
	Mapped bool
}

// Open opens the sample at path. Compressed samples are read into memory but never more than
// maxSize bytes. Plain files on the OS file system are memory-mapped.
func Open(fs afero.Fs, path string, maxSize int64) (*Sample, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, checkpoint.From(err)
	}
	if stat.IsDir() {
		f.Close()
		return nil, &os.PathError{Op: "open", Path: path, Err: errors.New("is a directory")}
	}

	compression, err := sniff(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	if compression != Plain {
		defer f.Close()

		data, err := decompress(f, compression, maxSize)
		if err != nil {
			return nil, checkpoint.Wrapf(err, "could not decompress %s sample %q", compression, path)
		}
		return &Sample{
			src:         nopCloser{bytes.NewReader(data)},
			size:        int64(len(data)),
			Compression: compression,
		}, nil
	}

	if _, ok := fs.(*afero.OsFs); ok {
		f.Close()

		m, err := mmap.Open(path)
		if err != nil {
			return nil, checkpoint.From(err)
		}
		return &Sample{
			src:         m,
			size:        int64(m.Len()),
			Compression: Plain,
			Mapped:      true,
		}, nil
	}

	return &Sample{
		src:         f,
		size:        stat.Size(),
		Compression: Plain,
	}, nil
}

// sniff detects the compression by the magic number at the start of the file.
func sniff(f io.ReaderAt) (string, error) {
	head := make([]byte, 6)
	n, err := f.ReadAt(head, 0)
	if err != nil && err != io.EOF {
		return "", checkpoint.From(err)
	}
	head = head[:n]

	for _, m := range magics {
		if bytes.HasPrefix(head, m.magic) {
			return m.compression, nil
		}
	}
	return Plain, nil
}

func decompress(r io.Reader, compression string, maxSize int64) ([]byte, error) {
	var reader io.Reader
	switch compression {
	case Gzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, checkpoint.From(err)
		}
		defer gz.Close()
		reader = gz
	case Zstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, checkpoint.From(err)
		}
		defer zr.Close()
		reader = zr
	case XZ:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, checkpoint.From(err)
		}
		reader = xr
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxSize+1))
	if err != nil {
		return nil, checkpoint.From(err)
	}
	if int64(len(data)) > maxSize {
		return nil, checkpoint.Wrap(fmt.Errorf("more than %d bytes", maxSize), ErrTooLarge)
	}
	return data, nil
}

func (s *Sample) ReadAt(p []byte, off int64) (int, error) {
	return s.src.ReadAt(p, off)
}

// Size of the (decompressed) sample.
func (s *Sample) Size() int64 {
	return s.size
}

func (s *Sample) Close() error {
	return s.src.Close()
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error {
	return nil
}

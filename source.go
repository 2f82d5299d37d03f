package gocfb

import (
	"errors"
	"fmt"
	"io"

	"github.com/aligator/gocfb/checkpoint"
)

// ByteSource is the immutable backing store of a compound file.
// *bytes.Reader, *strings.Reader and *io.SectionReader satisfy it.
//
// Generated mock using mockgen:
//  mockgen -source=source.go -destination=source_mock.go -package gocfb
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// NewSource adapts any io.ReaderAt with a known size.
func NewSource(r io.ReaderAt, size int64) ByteSource {
	return io.NewSectionReader(r, 0, size)
}

// readAt reads length bytes at offset. If the source ends first the bytes which could be
// read are returned together with ErrTruncated. They are never padded.
func readAt(src ByteSource, offset int64, length int) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, checkpoint.Wrap(fmt.Errorf("invalid read at %d, length %d", offset, length), ErrTruncated)
	}

	available := src.Size() - offset
	if available <= 0 {
		return nil, checkpoint.Wrap(fmt.Errorf("read at %d is past the end (%d)", offset, src.Size()), ErrTruncated)
	}

	short := false
	if int64(length) > available {
		length = int(available)
		short = true
	}

	buf := make([]byte, length)
	n, err := src.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return buf[:n], checkpoint.From(err)
	}
	if n < length || short {
		return buf[:n], checkpoint.Wrap(fmt.Errorf("short read at %d: got %d bytes", offset, n), ErrTruncated)
	}

	return buf, nil
}

// Package checkpoint provides a way to decorate errors by some additional caller information
// which results in something similar to a stacktrace.
// Each error added to a checkpoint can be checked by errors.Is and retrieved by errors.As.
package checkpoint

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/multierr"
)

// passThrough reports errors which are returned unchanged instead of getting a checkpoint.
// io.EOF must be returned as io.EOF directly, see https://github.com/golang/go/issues/39155
func passThrough(err error) bool {
	return err == nil || err == io.EOF
}

// From just wraps an error by a new checkpoint which adds some caller information to the error.
// It returns nil, if err == nil.
func From(err error) error {
	if passThrough(err) || err == io.ErrUnexpectedEOF {
		return err
	}
	return newCheckpoint(err, nil)
}

// Wrap adds a checkpoint with some caller information from an error and accepts
// also another error which can further describe the checkpoint.
// Returns nil if prev == nil.
// This allows for example to predefine some errors and use them later:
//  var(
//  	ErrTruncated = errors.New("structure extends past the end of the source")
//  )
//  func readSector(sector uint32) error {
//  	_, err := src.ReadAt(buf, offset)
//  	return checkpoint.Wrap(err, ErrTruncated)
//  }
//
//  err := readSector(5)
// If used that way, you can still check with errors.Is() for ErrTruncated
//  if errors.Is(err, ErrTruncated) {
//  	fmt.Println("The file is cut off")
//  }
// but also for the error returned by ReadAt (if you know what error it is).
func Wrap(prev, err error) error {
	if passThrough(prev) {
		return prev
	}
	return newCheckpoint(err, prev)
}

// Wrapf works like Wrap but describes the checkpoint with a formatted message.
// The message may wrap another error using %w.
func Wrapf(prev error, format string, args ...interface{}) error {
	if passThrough(prev) {
		return prev
	}
	return newCheckpoint(fmt.Errorf(format, args...), prev)
}

// Errors returns the single errors of an error created by multierr (for example several problems
// found while reading a damaged file). Any other error is returned as the only element.
func Errors(err error) []error {
	return multierr.Errors(err)
}

// newCheckpoint has to be called directly by the exported functions so that the caller is found.
func newCheckpoint(err, prev error) error {
	c := &checkpoint{err: err, prev: prev}
	if _, file, line, ok := runtime.Caller(2); ok {
		c.location = fmt.Sprintf("%s:%d", filepath.Base(file), line)
	}
	return c
}

type checkpoint struct {
	err  error
	prev error

	// location is file:line of the caller, empty if it is unknown.
	location string
}

// frame formats one step of the trace.
func frame(location string, err error) string {
	if location == "" {
		location = "unknown"
	}
	return "File: " + location + "\n\t" + strings.ReplaceAll(fmt.Sprint(err), "\n", "\n\t")
}

func (e *checkpoint) Error() string {
	msg := frame(e.location, e.err)
	if e.prev == nil {
		return msg
	}

	// A previous checkpoint already formats itself as frames.
	if _, ok := e.prev.(*checkpoint); ok {
		return msg + "\n" + e.prev.Error()
	}
	return msg + "\n" + frame("", e.prev)
}

func (e *checkpoint) Unwrap() error {
	return e.prev
}

func (e *checkpoint) Is(target error) bool {
	return errors.Is(e.err, target)
}

func (e *checkpoint) As(target interface{}) bool {
	return errors.As(e.err, target)
}

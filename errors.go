package gocfb

import (
	"errors"
	"fmt"
)

// These errors may occur while parsing a compound file or resolving its streams.
var (
	ErrInvalidFormat = errors.New("not a compound file")
	ErrTruncated     = errors.New("structure extends past the end of the source")
	ErrCorruptTable  = errors.New("corrupt allocation table")
	ErrCorruptChain  = errors.New("corrupt sector chain")
	ErrNotFound      = errors.New("entry not found")
)

// ChainError describes where a sector chain went wrong.
// It matches ErrCorruptChain when checked with errors.Is.
type ChainError struct {
	// Start is the first id of the chain.
	Start uint32
	// At is the last valid id before the fault. It equals Start if the start itself is invalid.
	At uint32
	// Next is the offending id.
	Next   uint32
	Mini   bool
	Reason string
}

func (e *ChainError) Error() string {
	kind := "sector"
	if e.Mini {
		kind = "mini sector"
	}
	return fmt.Sprintf("%s chain starting at %d: %s (at %d, next %#x)", kind, e.Start, e.Reason, e.At, e.Next)
}

func (e *ChainError) Unwrap() error {
	return ErrCorruptChain
}

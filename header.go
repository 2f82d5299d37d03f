package gocfb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/aligator/gocfb/checkpoint"
	"github.com/google/uuid"
)

// Header contains the values of the compound file header which are needed to read the file.
type Header struct {
	CLSID              uuid.UUID
	MinorVersion       uint16
	MajorVersion       uint16
	SectorShift        uint16
	MiniSectorShift    uint16
	NumDirSectors      uint32
	NumFATSectors      uint32
	FirstDirSector     uint32
	MiniStreamCutoff   uint32
	FirstMiniFATSector uint32
	NumMiniFATSectors  uint32
	FirstDIFATSector   uint32
	NumDIFATSectors    uint32
	DIFAT              [numHeaderDIFAT]uint32
}

// Geometry contains the sizes derived from the header and the source.
type Geometry struct {
	SectorSize       uint32
	MiniSectorSize   uint32
	MiniStreamCutoff uint32
	// TotalSectors is the number of (possibly partial) sectors the source holds after the header.
	TotalSectors uint32
}

// ReadHeader reads and validates the header at the beginning of src.
// The signature is always checked. If skipChecks is set, only the checks which are needed to
// read the file safely are done, which may allow opening not perfectly standard files.
func ReadHeader(src ByteSource, skipChecks bool) (Header, error) {
	buf, err := readAt(src, 0, headerSize)
	if err != nil {
		// Even a few bytes are enough to tell if it is a compound file at all.
		if len(buf) < len(Signature) || !bytes.Equal(buf[:len(Signature)], Signature[:]) {
			return Header{}, checkpoint.Wrap(err, ErrInvalidFormat)
		}
		return Header{}, err
	}

	raw := rawHeader{}
	err = binary.Read(bytes.NewReader(buf), binary.LittleEndian, &raw)
	if err != nil {
		return Header{}, checkpoint.From(err)
	}

	if raw.Signature != Signature {
		return Header{}, checkpoint.Wrap(fmt.Errorf("signature %x", raw.Signature), ErrInvalidFormat)
	}

	// Without these the sector offsets cannot be calculated at all.
	if raw.SectorShift < 7 || raw.SectorShift > 16 {
		return Header{}, checkpoint.Wrap(fmt.Errorf("sector shift %d", raw.SectorShift), ErrInvalidFormat)
	}
	if raw.MiniSectorShift >= raw.SectorShift {
		return Header{}, checkpoint.Wrap(fmt.Errorf("mini sector shift %d is not smaller than sector shift %d", raw.MiniSectorShift, raw.SectorShift), ErrInvalidFormat)
	}

	if !skipChecks {
		if err := raw.validate(); err != nil {
			return Header{}, checkpoint.Wrap(err, ErrInvalidFormat)
		}
	}

	return Header{
		CLSID:              guidFromBytes(raw.CLSID),
		MinorVersion:       raw.MinorVersion,
		MajorVersion:       raw.MajorVersion,
		SectorShift:        raw.SectorShift,
		MiniSectorShift:    raw.MiniSectorShift,
		NumDirSectors:      raw.NumDirSectors,
		NumFATSectors:      raw.NumFATSectors,
		FirstDirSector:     raw.FirstDirSector,
		MiniStreamCutoff:   raw.MiniStreamCutoff,
		FirstMiniFATSector: raw.FirstMiniFATSector,
		NumMiniFATSectors:  raw.NumMiniFATSectors,
		FirstDIFATSector:   raw.FirstDIFATSector,
		NumDIFATSectors:    raw.NumDIFATSectors,
		DIFAT:              raw.DIFAT,
	}, nil
}

// validate does the checks which a conforming writer always satisfies.
func (h *rawHeader) validate() error {
	if h.ByteOrder != byteOrderMark {
		return fmt.Errorf("invalid byte order mark %#x", h.ByteOrder)
	}

	// Version 3 uses 512 byte sectors, version 4 uses 4096 byte sectors.
	switch {
	case h.MajorVersion == 3 && h.SectorShift == 9:
	case h.MajorVersion == 4 && h.SectorShift == 12:
	default:
		return fmt.Errorf("invalid sector shift %d for major version %d", h.SectorShift, h.MajorVersion)
	}

	if h.MiniSectorShift != 6 {
		return fmt.Errorf("invalid mini sector shift %d", h.MiniSectorShift)
	}

	if h.MiniStreamCutoff != defaultMiniCutoff {
		return fmt.Errorf("invalid mini stream cutoff %d", h.MiniStreamCutoff)
	}

	if h.MajorVersion == 3 && h.NumDirSectors != 0 {
		return errors.New("number of directory sectors must be 0 for version 3")
	}

	return nil
}

// Geometry calculates the sizes of the file for a source of the given size.
func (h Header) Geometry(sourceSize int64) Geometry {
	sectorSize := uint32(1) << h.SectorShift

	var total uint32
	if data := sourceSize - int64(sectorSize); data > 0 {
		sectors := (data + int64(sectorSize) - 1) / int64(sectorSize)
		// Ids above MaxRegSect are reserved, so no file can address more sectors.
		if sectors > int64(MaxRegSect) {
			sectors = int64(MaxRegSect)
		}
		total = uint32(sectors)
	}

	return Geometry{
		SectorSize:       sectorSize,
		MiniSectorSize:   uint32(1) << h.MiniSectorShift,
		MiniStreamCutoff: h.MiniStreamCutoff,
		TotalSectors:     total,
	}
}

// SectorOffset returns the position of a sector in the source.
// Sector 0 starts directly after the header, which always takes a whole sector.
func (g Geometry) SectorOffset(sector uint32) int64 {
	return (int64(sector) + 1) * int64(g.SectorSize)
}

// guidFromBytes converts a GUID as stored on disk (first three groups little endian)
// to the RFC 4122 byte order used by uuid.UUID.
func guidFromBytes(b [16]byte) uuid.UUID {
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:], b[8:])
	return u
}

package gocfb

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/aligator/gocfb/checkpoint"
	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
)

// DirectoryEntry is one decoded record of the directory stream.
type DirectoryEntry struct {
	// ID is the index of the record in the directory stream.
	ID   uint32
	Name string
	Type ObjectType

	// The red-black tree links are kept as they are, they are not needed to find entries by name.
	Color        uint8
	LeftSibling  uint32
	RightSibling uint32
	Child        uint32

	CLSID     uuid.UUID
	StateBits uint32
	Created   time.Time
	Modified  time.Time

	StartingSector uint32
	StreamSize     uint64
}

// nameDecoder keeps a leading byte order mark as part of the name.
var nameDecoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// readDirectory reads the whole directory stream through the FAT.
// If the chain is broken or the source ends, the sectors read so far are returned with the error.
func readDirectory(src ByteSource, h Header, g Geometry, fat []uint32) ([]byte, error) {
	chain, chainErr := walkChain(h.FirstDirSector, fat, g.TotalSectors, 0)

	data := make([]byte, 0, len(chain)*int(g.SectorSize))
	for _, sector := range chain {
		buf, err := readAt(src, g.SectorOffset(sector), int(g.SectorSize))
		data = append(data, buf...)
		if err != nil {
			return data, checkpoint.Wrapf(err, "could not read directory sector %d", sector)
		}
	}

	if chainErr != nil {
		return data, checkpoint.Wrap(chainErr, fmt.Errorf("could not follow the directory chain"))
	}
	return data, nil
}

// parseDirectory decodes all used records of the directory stream.
// Unused records (name length 0) are skipped, later records are still read.
// A trailing incomplete record is ignored.
func parseDirectory(data []byte, g Geometry) ([]DirectoryEntry, error) {
	var entries []DirectoryEntry

	for offset := 0; offset+dirEntrySize <= len(data); offset += dirEntrySize {
		raw := rawDirEntry{}
		err := binary.Read(bytes.NewReader(data[offset:offset+dirEntrySize]), binary.LittleEndian, &raw)
		if err != nil {
			return entries, checkpoint.From(err)
		}

		if raw.NameLength == 0 {
			continue
		}

		name, err := decodeName(raw.Name, raw.NameLength)
		if err != nil {
			return entries, checkpoint.Wrapf(err, "could not decode name of directory entry %d", offset/dirEntrySize)
		}

		size := uint64(raw.StreamSizeHigh)<<32 | uint64(raw.StreamSizeLow)
		if g.SectorSize == 512 {
			// Files with 512 byte sectors cannot have streams > 2GB. Old writers leave garbage in the high part.
			size = uint64(raw.StreamSizeLow)
		}

		entries = append(entries, DirectoryEntry{
			ID:             uint32(offset / dirEntrySize),
			Name:           name,
			Type:           objectTypeFromByte(raw.ObjectType),
			Color:          raw.Color,
			LeftSibling:    raw.LeftSibling,
			RightSibling:   raw.RightSibling,
			Child:          raw.Child,
			CLSID:          guidFromBytes(raw.CLSID),
			StateBits:      raw.StateBits,
			Created:        ParseFiletime(raw.CreationTime),
			Modified:       ParseFiletime(raw.ModifiedTime),
			StartingSector: raw.StartingSector,
			StreamSize:     size,
		})
	}

	return entries, nil
}

// decodeName decodes the UTF-16LE name. The length is in bytes and includes the terminating null.
func decodeName(units [32]uint16, length uint16) (string, error) {
	if length > maxNameLength {
		length = maxNameLength
	}

	count := 0
	if length >= 2 {
		count = int(length-2) / 2
	}

	raw := make([]byte, count*2)
	for i := 0; i < count; i++ {
		binary.LittleEndian.PutUint16(raw[i*2:], units[i])
	}

	name, err := nameDecoder.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(name), nil
}

package gocfb

import (
	"encoding/binary"
	"fmt"

	"github.com/aligator/gocfb/checkpoint"
)

// fatSectors collects the sectors which hold the FAT. These are listed by the DIFAT which starts
// with the 109 entries in the header and continues in a chain of DIFAT sectors.
// Only the first NumFATSectors used slots count, some writers fill the remaining slots with 0
// instead of FREESECT. A header without a count relies on the sentinels alone.
func fatSectors(src ByteSource, h Header, g Geometry) ([]uint32, error) {
	var sectors []uint32

	add := func(sector uint32) error {
		if sector > MaxRegSect {
			// Unused slot.
			return nil
		}
		if h.NumFATSectors > 0 && uint32(len(sectors)) >= h.NumFATSectors {
			return nil
		}
		if sector >= g.TotalSectors {
			return checkpoint.Wrap(fmt.Errorf("FAT sector %d out of range (%d sectors)", sector, g.TotalSectors), ErrCorruptTable)
		}
		if uint32(len(sectors)) >= g.TotalSectors {
			return checkpoint.Wrap(fmt.Errorf("more FAT sectors than sectors in the file (%d)", g.TotalSectors), ErrCorruptTable)
		}
		sectors = append(sectors, sector)
		return nil
	}

	for _, sector := range h.DIFAT {
		if err := add(sector); err != nil {
			return sectors, err
		}
	}

	if h.NumDIFATSectors == 0 {
		return sectors, nil
	}

	// A corrupt file may declare a huge count, it can never be more than there are sectors.
	maxDIFAT := h.NumDIFATSectors
	if maxDIFAT > g.TotalSectors {
		maxDIFAT = g.TotalSectors
	}

	entriesPerSector := int(g.SectorSize / 4)
	visited := make(map[uint32]struct{})
	current := h.FirstDIFATSector
	for count := uint32(0); current != EndOfChain && current != FreeSect; count++ {
		if count >= maxDIFAT {
			return sectors, checkpoint.Wrap(fmt.Errorf("DIFAT chain longer than %d sectors", maxDIFAT), ErrCorruptTable)
		}
		if current >= g.TotalSectors {
			return sectors, checkpoint.Wrap(fmt.Errorf("DIFAT sector %d out of range (%d sectors)", current, g.TotalSectors), ErrCorruptTable)
		}
		if _, ok := visited[current]; ok {
			return sectors, checkpoint.Wrap(fmt.Errorf("DIFAT sector %d visited twice", current), ErrCorruptTable)
		}
		visited[current] = struct{}{}

		buf, err := readAt(src, g.SectorOffset(current), int(g.SectorSize))
		if err != nil {
			return sectors, checkpoint.Wrapf(err, "could not read DIFAT sector %d", current)
		}

		// The last entry is the pointer to the next DIFAT sector.
		for i := 0; i < entriesPerSector-1; i++ {
			if err := add(binary.LittleEndian.Uint32(buf[i*4:])); err != nil {
				return sectors, err
			}
		}
		current = binary.LittleEndian.Uint32(buf[(entriesPerSector-1)*4:])
	}

	return sectors, nil
}

// buildFAT reads all FAT sectors into one flat table, indexed by sector number.
// On error the entries read so far are returned.
func buildFAT(src ByteSource, h Header, g Geometry) ([]uint32, error) {
	sectors, err := fatSectors(src, h, g)

	fat := make([]uint32, 0, len(sectors)*int(g.SectorSize/4))
	for _, sector := range sectors {
		buf, readErr := readAt(src, g.SectorOffset(sector), int(g.SectorSize))
		fat = appendEntries(fat, buf)
		if readErr != nil {
			return fat, checkpoint.Wrapf(readErr, "could not read FAT sector %d", sector)
		}
	}

	return fat, err
}

// appendEntries decodes all complete little endian uint32 values of buf.
func appendEntries(table []uint32, buf []byte) []uint32 {
	for i := 0; i+4 <= len(buf); i += 4 {
		table = append(table, binary.LittleEndian.Uint32(buf[i:]))
	}
	return table
}

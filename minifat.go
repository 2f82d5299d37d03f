package gocfb

import (
	"fmt"

	"github.com/aligator/gocfb/checkpoint"
)

// buildMiniFAT reads the MiniFAT, which is stored as an ordinary sector chain.
// On error the entries read so far are returned.
func buildMiniFAT(src ByteSource, h Header, g Geometry, fat []uint32) ([]uint32, error) {
	chain, chainErr := walkChain(h.FirstMiniFATSector, fat, g.TotalSectors, 0)

	miniFAT := make([]uint32, 0, len(chain)*int(g.SectorSize/4))
	for _, sector := range chain {
		buf, err := readAt(src, g.SectorOffset(sector), int(g.SectorSize))
		miniFAT = appendEntries(miniFAT, buf)
		if err != nil {
			return miniFAT, checkpoint.Wrapf(err, "could not read MiniFAT sector %d", sector)
		}
	}

	if chainErr != nil {
		return miniFAT, checkpoint.Wrap(chainErr, fmt.Errorf("could not follow the MiniFAT chain"))
	}
	return miniFAT, nil
}

// miniSectorLimit returns how many mini sectors can actually be addressed.
// Both the MiniFAT and the mini stream have to cover a mini sector.
func miniSectorLimit(miniFAT []uint32, miniStream []byte, g Geometry) uint32 {
	inStream := (uint64(len(miniStream)) + uint64(g.MiniSectorSize) - 1) / uint64(g.MiniSectorSize)
	if inStream < uint64(len(miniFAT)) {
		return uint32(inStream)
	}
	return uint32(len(miniFAT))
}

// needsMiniStream reports if any entry is stored in the mini stream.
func needsMiniStream(entries []DirectoryEntry, g Geometry) bool {
	for _, e := range entries {
		if e.Type == TypeStream && e.StreamSize > 0 && e.StreamSize < uint64(g.MiniStreamCutoff) {
			return true
		}
	}
	return false
}

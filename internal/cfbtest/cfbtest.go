// Package cfbtest writes small compound files for tests.
//
// The files are laid out in a fixed order: directory, MiniFAT, mini stream, regular streams,
// FAT and DIFAT sectors. Layout tells where everything ended up, so that tests can damage
// specific structures afterwards.
package cfbtest

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/encoding/unicode"
)

const (
	freeSect   uint32 = 0xFFFFFFFF
	endOfChain uint32 = 0xFFFFFFFE
	fatSect    uint32 = 0xFFFFFFFD
	difSect    uint32 = 0xFFFFFFFC
	noStream   uint32 = 0xFFFFFFFF

	headerDIFAT    = 109
	dirEntrySize   = 128
	miniSectorSize = 64
)

var signature = [8]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

var nameEncoder = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Entry is a stream or storage below the root entry.
type Entry struct {
	Name    string
	Data    []byte
	Storage bool
	// Unused writes an empty directory slot at this position instead of an entry.
	Unused   bool
	Modified time.Time
}

// Spec describes the file to build.
type Spec struct {
	// SectorShift is 9 (512 byte sectors, version 3) by default or 12 (4096 byte sectors, version 4).
	SectorShift uint16
	// MiniStreamCutoff defaults to 4096.
	MiniStreamCutoff uint32
	// DIFATOnly lists all FAT sectors in DIFAT sectors instead of the header.
	DIFATOnly bool
	Entries   []Entry
}

// Layout describes where the parts of a built file are.
type Layout struct {
	SectorSize     uint32
	TotalSectors   uint32
	DirSectors     []uint32
	MiniFATSectors []uint32
	MiniStream     []uint32
	FATSectors     []uint32
	DIFATSectors   []uint32

	// Chains holds the sectors of every stream in the main FAT, MiniChains the mini sectors
	// of every stream in the mini stream.
	Chains     map[string][]uint32
	MiniChains map[string][]uint32
}

type header struct {
	Signature            [8]byte
	CLSID                [16]byte
	MinorVersion         uint16
	MajorVersion         uint16
	ByteOrder            uint16
	SectorShift          uint16
	MiniSectorShift      uint16
	Reserved             [6]byte
	NumDirSectors        uint32
	NumFATSectors        uint32
	FirstDirSector       uint32
	TransactionSignature uint32
	MiniStreamCutoff     uint32
	FirstMiniFATSector   uint32
	NumMiniFATSectors    uint32
	FirstDIFATSector     uint32
	NumDIFATSectors      uint32
	DIFAT                [headerDIFAT]uint32
}

type dirEntry struct {
	Name           [64]byte
	NameLength     uint16
	ObjectType     uint8
	Color          uint8
	LeftSibling    uint32
	RightSibling   uint32
	Child          uint32
	CLSID          [16]byte
	StateBits      uint32
	CreationTime   uint64
	ModifiedTime   uint64
	StartingSector uint32
	StreamSizeLow  uint32
	StreamSizeHigh uint32
}

// allocator hands out consecutive sectors and records them as chains in the FAT.
type allocator struct {
	next uint32
	fat  map[uint32]uint32
}

func (a *allocator) chain(count int) []uint32 {
	sectors := make([]uint32, count)
	for i := range sectors {
		sectors[i] = a.next
		a.next++
	}
	for i, s := range sectors {
		if i+1 < len(sectors) {
			a.fat[s] = sectors[i+1]
		} else {
			a.fat[s] = endOfChain
		}
	}
	return sectors
}

func (a *allocator) mark(count int, value uint32) []uint32 {
	sectors := make([]uint32, count)
	for i := range sectors {
		sectors[i] = a.next
		a.fat[a.next] = value
		a.next++
	}
	return sectors
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Build writes the compound file described by spec.
func Build(spec Spec) ([]byte, Layout, error) {
	shift := spec.SectorShift
	if shift == 0 {
		shift = 9
	}
	if shift != 9 && shift != 12 {
		return nil, Layout{}, fmt.Errorf("unsupported sector shift %d", shift)
	}
	cutoff := spec.MiniStreamCutoff
	if cutoff == 0 {
		cutoff = 4096
	}
	headerSlots := headerDIFAT
	if spec.DIFATOnly {
		headerSlots = 0
	}

	sectorSize := 1 << shift
	perSector := sectorSize / 4

	layout := Layout{
		SectorSize: uint32(sectorSize),
		Chains:     map[string][]uint32{},
		MiniChains: map[string][]uint32{},
	}

	// Mini stream content and MiniFAT.
	var miniStream []byte
	var miniFAT []uint32
	miniStarts := map[int]uint32{}
	for i, e := range spec.Entries {
		if e.Unused || e.Storage || len(e.Data) == 0 || uint32(len(e.Data)) >= cutoff {
			continue
		}
		count := ceilDiv(len(e.Data), miniSectorSize)
		start := uint32(len(miniFAT))
		chain := make([]uint32, count)
		for j := 0; j < count; j++ {
			chain[j] = start + uint32(j)
			if j+1 < count {
				miniFAT = append(miniFAT, start+uint32(j)+1)
			} else {
				miniFAT = append(miniFAT, endOfChain)
			}
		}
		padded := make([]byte, count*miniSectorSize)
		copy(padded, e.Data)
		miniStream = append(miniStream, padded...)
		miniStarts[i] = start
		layout.MiniChains[e.Name] = chain
	}

	alloc := &allocator{fat: map[uint32]uint32{}}

	layout.DirSectors = alloc.chain(ceilDiv((len(spec.Entries)+1)*dirEntrySize, sectorSize))
	layout.MiniFATSectors = alloc.chain(ceilDiv(len(miniFAT)*4, sectorSize))
	layout.MiniStream = alloc.chain(ceilDiv(len(miniStream), sectorSize))

	mainChains := map[int][]uint32{}
	for i, e := range spec.Entries {
		if e.Unused || e.Storage || uint32(len(e.Data)) < cutoff {
			continue
		}
		chain := alloc.chain(ceilDiv(len(e.Data), sectorSize))
		mainChains[i] = chain
		layout.Chains[e.Name] = chain
	}

	// The FAT has to cover itself and the DIFAT.
	data := int(alloc.next)
	fatCount, difatCount := 1, 0
	for {
		newFAT := ceilDiv(data+fatCount+difatCount, perSector)
		newDIFAT := 0
		if spill := newFAT - headerSlots; spill > 0 {
			newDIFAT = ceilDiv(spill, perSector-1)
		}
		if newFAT == fatCount && newDIFAT == difatCount {
			break
		}
		fatCount, difatCount = newFAT, newDIFAT
	}

	layout.FATSectors = alloc.mark(fatCount, fatSect)
	layout.DIFATSectors = alloc.mark(difatCount, difSect)
	layout.TotalSectors = alloc.next

	file := make([]byte, (int(layout.TotalSectors)+1)*sectorSize)
	sectorAt := func(sector uint32) []byte {
		offset := (int(sector) + 1) * sectorSize
		return file[offset : offset+sectorSize]
	}
	writeChain := func(chain []uint32, content []byte) {
		for i, sector := range chain {
			start := i * sectorSize
			end := start + sectorSize
			if end > len(content) {
				end = len(content)
			}
			copy(sectorAt(sector), content[start:end])
		}
	}

	// FAT
	fat := make([]byte, fatCount*sectorSize)
	for i := 0; i < fatCount*perSector; i++ {
		value, ok := alloc.fat[uint32(i)]
		if !ok {
			value = freeSect
		}
		binary.LittleEndian.PutUint32(fat[i*4:], value)
	}
	writeChain(layout.FATSectors, fat)

	// DIFAT sectors
	spilled := layout.FATSectors
	if len(spilled) > headerSlots {
		spilled = spilled[headerSlots:]
	} else {
		spilled = nil
	}
	for i, sector := range layout.DIFATSectors {
		buf := sectorAt(sector)
		for j := 0; j < perSector-1; j++ {
			value := freeSect
			if k := i*(perSector-1) + j; k < len(spilled) {
				value = spilled[k]
			}
			binary.LittleEndian.PutUint32(buf[j*4:], value)
		}
		next := endOfChain
		if i+1 < len(layout.DIFATSectors) {
			next = layout.DIFATSectors[i+1]
		}
		binary.LittleEndian.PutUint32(buf[(perSector-1)*4:], next)
	}

	// MiniFAT and mini stream
	miniFATBytes := make([]byte, len(miniFAT)*4)
	for i, value := range miniFAT {
		binary.LittleEndian.PutUint32(miniFATBytes[i*4:], value)
	}
	writeChain(layout.MiniFATSectors, miniFATBytes)
	writeChain(layout.MiniStream, miniStream)

	for i, chain := range mainChains {
		writeChain(chain, spec.Entries[i].Data)
	}

	// Directory
	dir := &bytes.Buffer{}
	root := dirEntry{
		ObjectType:     5,
		Color:          1,
		LeftSibling:    noStream,
		RightSibling:   noStream,
		Child:          noStream,
		StartingSector: endOfChain,
		StreamSizeLow:  uint32(len(miniStream)),
	}
	if len(layout.MiniStream) > 0 {
		root.StartingSector = layout.MiniStream[0]
	}
	if len(spec.Entries) > 0 {
		root.Child = 1
	}
	if err := setName(&root, "Root Entry"); err != nil {
		return nil, Layout{}, err
	}
	if err := binary.Write(dir, binary.LittleEndian, root); err != nil {
		return nil, Layout{}, err
	}

	for i, e := range spec.Entries {
		if e.Unused {
			dir.Write(make([]byte, dirEntrySize))
			continue
		}

		entry := dirEntry{
			ObjectType:     2,
			Color:          1,
			LeftSibling:    noStream,
			RightSibling:   noStream,
			Child:          noStream,
			StartingSector: endOfChain,
			StreamSizeLow:  uint32(len(e.Data)),
			StreamSizeHigh: uint32(uint64(len(e.Data)) >> 32),
			ModifiedTime:   Filetime(e.Modified),
		}
		if i+1 < len(spec.Entries) {
			entry.RightSibling = uint32(i + 2)
		}
		if e.Storage {
			entry.ObjectType = 1
			entry.StreamSizeLow = 0
			entry.StreamSizeHigh = 0
		} else if start, ok := miniStarts[i]; ok {
			entry.StartingSector = start
		} else if chain, ok := mainChains[i]; ok {
			entry.StartingSector = chain[0]
		}
		if err := setName(&entry, e.Name); err != nil {
			return nil, Layout{}, err
		}
		if err := binary.Write(dir, binary.LittleEndian, entry); err != nil {
			return nil, Layout{}, err
		}
	}
	writeChain(layout.DirSectors, dir.Bytes())

	// Header
	h := header{
		Signature:          signature,
		MinorVersion:       0x3E,
		MajorVersion:       3,
		ByteOrder:          0xFFFE,
		SectorShift:        shift,
		MiniSectorShift:    6,
		NumFATSectors:      uint32(fatCount),
		FirstDirSector:     layout.DirSectors[0],
		MiniStreamCutoff:   cutoff,
		FirstMiniFATSector: endOfChain,
		NumMiniFATSectors:  uint32(len(layout.MiniFATSectors)),
		FirstDIFATSector:   endOfChain,
		NumDIFATSectors:    uint32(difatCount),
	}
	if shift == 12 {
		h.MajorVersion = 4
		h.NumDirSectors = uint32(len(layout.DirSectors))
	}
	if len(layout.MiniFATSectors) > 0 {
		h.FirstMiniFATSector = layout.MiniFATSectors[0]
	}
	if difatCount > 0 {
		h.FirstDIFATSector = layout.DIFATSectors[0]
	}
	for i := range h.DIFAT {
		h.DIFAT[i] = freeSect
		if i < headerSlots && i < len(layout.FATSectors) {
			h.DIFAT[i] = layout.FATSectors[i]
		}
	}

	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, h); err != nil {
		return nil, Layout{}, err
	}
	copy(file, buf.Bytes())

	return file, layout, nil
}

func setName(e *dirEntry, name string) error {
	encoded, err := nameEncoder.NewEncoder().Bytes([]byte(name))
	if err != nil {
		return err
	}
	// 31 code units plus the terminating null.
	if len(encoded) > 62 {
		return errors.New("name too long: " + name)
	}
	copy(e.Name[:], encoded)
	e.NameLength = uint16(len(encoded) + 2)
	return nil
}

// Filetime converts t to a Windows FILETIME. It returns 0 for the zero time and for times before 1601.
func Filetime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}

	ticks := t.Unix()*10000000 + int64(t.Nanosecond()/100) + 116444736000000000
	if ticks < 0 {
		return 0
	}
	return uint64(ticks)
}

// FATEntryOffset returns the position of the FAT entry of sector in the file.
func (l Layout) FATEntryOffset(sector uint32) int {
	perSector := l.SectorSize / 4
	fatSector := l.FATSectors[sector/perSector]
	return int(fatSector+1)*int(l.SectorSize) + int(sector%perSector)*4
}

// SetFAT overwrites the FAT entry of sector in file.
func (l Layout) SetFAT(file []byte, sector, value uint32) {
	binary.LittleEndian.PutUint32(file[l.FATEntryOffset(sector):], value)
}

// SectorOffset returns the position of sector in the file.
func (l Layout) SectorOffset(sector uint32) int {
	return int(sector+1) * int(l.SectorSize)
}

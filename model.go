// File model contains the structs which match the direct structures of a compound file.

package gocfb

// Special values of FAT and MiniFAT entries.
const (
	MaxRegSect uint32 = 0xFFFFFFFA
	DIFSect    uint32 = 0xFFFFFFFC
	FATSect    uint32 = 0xFFFFFFFD
	EndOfChain uint32 = 0xFFFFFFFE
	FreeSect   uint32 = 0xFFFFFFFF

	// NoStream marks an empty sibling or child link in a directory entry.
	NoStream uint32 = 0xFFFFFFFF
)

const (
	headerSize        = 512
	dirEntrySize      = 128
	numHeaderDIFAT    = 109
	maxNameLength     = 64
	byteOrderMark     = 0xFFFE
	defaultMiniCutoff = 4096
)

// Signature is the magic number every compound file starts with.
var Signature = [8]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// ObjectType is the type of a directory entry.
type ObjectType uint8

const (
	TypeUnknown ObjectType = 0
	TypeStorage ObjectType = 1
	TypeStream  ObjectType = 2
	TypeRoot    ObjectType = 5
)

func objectTypeFromByte(b uint8) ObjectType {
	switch ObjectType(b) {
	case TypeStorage, TypeStream, TypeRoot:
		return ObjectType(b)
	default:
		return TypeUnknown
	}
}

func (t ObjectType) String() string {
	switch t {
	case TypeStorage:
		return "storage"
	case TypeStream:
		return "stream"
	case TypeRoot:
		return "root"
	default:
		return "unknown"
	}
}

// rawHeader is the fixed 512 byte header at the beginning of the file.
type rawHeader struct {
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
	DIFAT                [numHeaderDIFAT]uint32
}

// rawDirEntry is a single 128 byte record of the directory stream.
type rawDirEntry struct {
	Name           [32]uint16
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

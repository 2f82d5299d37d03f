package cfbtest

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"
	"time"

	"github.com/aligator/gocfb"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		want Layout
	}{
		{
			name: "empty",
			spec: Spec{},
			want: Layout{
				SectorSize:   512,
				TotalSectors: 2,
				DirSectors:   []uint32{0},
				FATSectors:   []uint32{1},
				Chains:       map[string][]uint32{},
				MiniChains:   map[string][]uint32{},
			},
		},
		{
			name: "mini and main stream",
			spec: Spec{Entries: []Entry{
				{Name: "Small", Data: make([]byte, 100)},
				{Name: "Big", Data: make([]byte, 5000)},
			}},
			want: Layout{
				SectorSize:     512,
				TotalSectors:   14,
				DirSectors:     []uint32{0},
				MiniFATSectors: []uint32{1},
				MiniStream:     []uint32{2},
				FATSectors:     []uint32{13},
				Chains:         map[string][]uint32{"Big": {3, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
				MiniChains:     map[string][]uint32{"Small": {0, 1}},
			},
		},
		{
			name: "4096 byte sectors",
			spec: Spec{SectorShift: 12, Entries: []Entry{
				{Name: "Big", Data: make([]byte, 5000)},
			}},
			want: Layout{
				SectorSize:   4096,
				TotalSectors: 4,
				DirSectors:   []uint32{0},
				FATSectors:   []uint32{3},
				Chains:       map[string][]uint32{"Big": {1, 2}},
				MiniChains:   map[string][]uint32{},
			},
		},
		{
			name: "DIFAT only",
			spec: Spec{DIFATOnly: true},
			want: Layout{
				SectorSize:   512,
				TotalSectors: 3,
				DirSectors:   []uint32{0},
				FATSectors:   []uint32{1},
				DIFATSectors: []uint32{2},
				Chains:       map[string][]uint32{},
				MiniChains:   map[string][]uint32{},
			},
		},
		{
			name: "storage and unused slot take no sectors",
			spec: Spec{Entries: []Entry{
				{Name: "Storage", Storage: true},
				{Unused: true},
			}},
			want: Layout{
				SectorSize:   512,
				TotalSectors: 2,
				DirSectors:   []uint32{0},
				FATSectors:   []uint32{1},
				Chains:       map[string][]uint32{},
				MiniChains:   map[string][]uint32{},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, layout, err := Build(tt.spec)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, layout, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Build() layout mismatch (-want +got):\n%s", diff)
			}

			sectorSize := int(layout.SectorSize)
			if len(file) != (int(layout.TotalSectors)+1)*sectorSize {
				t.Errorf("Build() file size = %d, want %d", len(file), (int(layout.TotalSectors)+1)*sectorSize)
			}
			if !bytes.Equal(file[:8], signature[:]) {
				t.Errorf("Build() file does not start with the signature")
			}

			// Every FAT sector is marked as such in the FAT.
			for _, sector := range layout.FATSectors {
				if got := binary.LittleEndian.Uint32(file[layout.FATEntryOffset(sector):]); got != fatSect {
					t.Errorf("FAT entry of FAT sector %d = %#x", sector, got)
				}
			}
			for _, sector := range layout.DIFATSectors {
				if got := binary.LittleEndian.Uint32(file[layout.FATEntryOffset(sector):]); got != difSect {
					t.Errorf("FAT entry of DIFAT sector %d = %#x", sector, got)
				}
			}
		})
	}
}

func TestBuild_headerDIFAT(t *testing.T) {
	file, layout, err := Build(Spec{})
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(file[76:]); got != layout.FATSectors[0] {
		t.Errorf("first header DIFAT slot = %d, want %d", got, layout.FATSectors[0])
	}

	file, layout, err = Build(Spec{DIFATOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := binary.LittleEndian.Uint32(file[76:]); got != freeSect {
		t.Errorf("first header DIFAT slot = %#x, want free", got)
	}
	difat := file[layout.SectorOffset(layout.DIFATSectors[0]):]
	if got := binary.LittleEndian.Uint32(difat); got != layout.FATSectors[0] {
		t.Errorf("first DIFAT sector slot = %d, want %d", got, layout.FATSectors[0])
	}
	if got := binary.LittleEndian.Uint32(difat[508:]); got != endOfChain {
		t.Errorf("next DIFAT sector = %#x, want end of chain", got)
	}
}

func TestBuild_errors(t *testing.T) {
	if _, _, err := Build(Spec{SectorShift: 10}); err == nil {
		t.Errorf("Build() with sector shift 10 did not fail")
	}

	long := strings.Repeat("x", 32)
	if _, _, err := Build(Spec{Entries: []Entry{{Name: long}}}); err == nil {
		t.Errorf("Build() with a name of 32 characters did not fail")
	}
}

func TestLayout_SetFAT(t *testing.T) {
	file, layout, err := Build(Spec{Entries: []Entry{{Name: "Big", Data: make([]byte, 5000)}}})
	if err != nil {
		t.Fatal(err)
	}
	chain := layout.Chains["Big"]
	if len(chain) < 2 {
		t.Fatalf("Big uses %d regular sectors, want at least 2", len(chain))
	}

	if got := binary.LittleEndian.Uint32(file[layout.FATEntryOffset(chain[0]):]); got != chain[1] {
		t.Errorf("FAT entry of %d = %d, want %d", chain[0], got, chain[1])
	}

	layout.SetFAT(file, chain[0], chain[0])
	if got := binary.LittleEndian.Uint32(file[layout.FATEntryOffset(chain[0]):]); got != chain[0] {
		t.Errorf("FAT entry of %d after SetFAT = %d, want %d", chain[0], got, chain[0])
	}
}

func TestFiletime(t *testing.T) {
	tests := []struct {
		name  string
		input time.Time
		want  uint64
	}{
		{name: "zero time", input: time.Time{}, want: 0},
		{name: "unix epoch", input: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC), want: 116444736000000000},
		{name: "before 1601", input: time.Date(1500, 1, 1, 0, 0, 0, 0, time.UTC), want: 0},
		{name: "other time zone", input: time.Date(1970, 1, 1, 1, 0, 0, 0, time.FixedZone("CET", 3600)), want: 116444736000000000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filetime(tt.input); got != tt.want {
				t.Errorf("Filetime() = %v, want %v", got, tt.want)
			}
		})
	}

	now := time.Date(2024, 7, 1, 12, 30, 15, 987654300, time.UTC)
	if got := gocfb.ParseFiletime(Filetime(now)); !got.Equal(now) {
		t.Errorf("ParseFiletime(Filetime()) = %v, want %v", got, now)
	}
}

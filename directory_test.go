package gocfb

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/aligator/gocfb/internal/cfbtest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

// testingDirEntry encodes a single directory record.
func testingDirEntry(t *testing.T, raw rawDirEntry) []byte {
	t.Helper()

	buf := &bytes.Buffer{}
	if err := binary.Write(buf, binary.LittleEndian, raw); err != nil {
		t.Fatalf("could not encode directory entry: %v", err)
	}
	return buf.Bytes()
}

func testingName(name string) ([32]uint16, uint16) {
	var units [32]uint16
	for i, r := range name {
		units[i] = uint16(r)
	}
	return units, uint16(len(name)*2 + 2)
}

func Test_parseDirectory(t *testing.T) {
	rootName, rootLength := testingName("Root Entry")
	fooName, fooLength := testingName("Foo")
	barName, barLength := testingName("Bar")

	modified := time.Date(2021, 3, 4, 5, 6, 7, 800, time.UTC)

	root := rawDirEntry{Name: rootName, NameLength: rootLength, ObjectType: 5, LeftSibling: NoStream, RightSibling: NoStream, Child: 1, StartingSector: 3, StreamSizeLow: 128}
	foo := rawDirEntry{Name: fooName, NameLength: fooLength, ObjectType: 2, LeftSibling: NoStream, RightSibling: 3, Child: NoStream, StartingSector: 0, StreamSizeLow: 100, StreamSizeHigh: 1, ModifiedTime: cfbtest.Filetime(modified)}
	bar := rawDirEntry{Name: barName, NameLength: barLength, ObjectType: 1, LeftSibling: NoStream, RightSibling: NoStream, Child: NoStream, StartingSector: 0}

	type args struct {
		records  [][]byte
		geometry Geometry
	}
	tests := []struct {
		name string
		args args
		want []DirectoryEntry
	}{
		{
			name: "entries with an unused slot in between",
			args: args{
				records: [][]byte{
					testingDirEntry(t, root),
					testingDirEntry(t, foo),
					make([]byte, dirEntrySize),
					testingDirEntry(t, bar),
				},
				geometry: Geometry{SectorSize: 512},
			},
			want: []DirectoryEntry{
				{ID: 0, Name: "Root Entry", Type: TypeRoot, LeftSibling: NoStream, RightSibling: NoStream, Child: 1, StartingSector: 3, StreamSize: 128},
				{ID: 1, Name: "Foo", Type: TypeStream, LeftSibling: NoStream, RightSibling: 3, Child: NoStream, StartingSector: 0, StreamSize: 100, Modified: modified},
				{ID: 3, Name: "Bar", Type: TypeStorage, LeftSibling: NoStream, RightSibling: NoStream, Child: NoStream, StartingSector: 0},
			},
		},
		{
			name: "high size half is used for 4096 byte sectors",
			args: args{
				records:  [][]byte{testingDirEntry(t, foo)},
				geometry: Geometry{SectorSize: 4096},
			},
			want: []DirectoryEntry{
				{ID: 0, Name: "Foo", Type: TypeStream, LeftSibling: NoStream, RightSibling: 3, Child: NoStream, StartingSector: 0, StreamSize: 1<<32 + 100, Modified: modified},
			},
		},
		{
			name: "incomplete trailing record",
			args: args{
				records:  [][]byte{testingDirEntry(t, bar), testingDirEntry(t, foo)[:60]},
				geometry: Geometry{SectorSize: 512},
			},
			want: []DirectoryEntry{
				{ID: 0, Name: "Bar", Type: TypeStorage, LeftSibling: NoStream, RightSibling: NoStream, Child: NoStream, StartingSector: 0},
			},
		},
		{
			name: "no records",
			args: args{
				records:  nil,
				geometry: Geometry{SectorSize: 512},
			},
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDirectory(bytes.Join(tt.args.records, nil), tt.args.geometry)
			if err != nil {
				t.Fatalf("parseDirectory() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parseDirectory() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func Test_parseDirectory_unknownType(t *testing.T) {
	name, length := testingName("Odd")
	data := testingDirEntry(t, rawDirEntry{Name: name, NameLength: length, ObjectType: 7})

	got, err := parseDirectory(data, Geometry{SectorSize: 512})
	if err != nil {
		t.Fatalf("parseDirectory() error = %v", err)
	}
	if len(got) != 1 || got[0].Type != TypeUnknown {
		t.Errorf("parseDirectory() = %+v, want one entry of type %v", got, TypeUnknown)
	}
}

func Test_parseDirectory_CLSID(t *testing.T) {
	name, length := testingName("Storage")
	raw := rawDirEntry{Name: name, NameLength: length, ObjectType: 1}
	copy(raw.CLSID[:], []byte{0x06, 0x09, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46})

	got, err := parseDirectory(testingDirEntry(t, raw), Geometry{SectorSize: 512})
	if err != nil {
		t.Fatalf("parseDirectory() error = %v", err)
	}

	want := uuid.MustParse("00020906-0000-0000-c000-000000000046")
	if len(got) != 1 || got[0].CLSID != want {
		t.Errorf("parseDirectory() = %+v, want CLSID %v", got, want)
	}
}

func Test_decodeName(t *testing.T) {
	full := [32]uint16{}
	for i := range full {
		full[i] = 'a'
	}

	type args struct {
		units  [32]uint16
		length uint16
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{
			name: "simple name",
			args: args{units: [32]uint16{'F', 'o', 'o'}, length: 8},
			want: "Foo",
		},
		{
			name: "control character prefix",
			args: args{units: [32]uint16{5, 'S', 'u', 'm'}, length: 10},
			want: "\x05Sum",
		},
		{
			name: "only the terminator",
			args: args{units: [32]uint16{}, length: 2},
			want: "",
		},
		{
			name: "odd length",
			args: args{units: [32]uint16{'A', 'B'}, length: 5},
			want: "A",
		},
		{
			name: "length over the maximum is clamped",
			args: args{units: full, length: 1000},
			want: string(bytes.Repeat([]byte{'a'}, 31)),
		},
		{
			name: "non ASCII",
			args: args{units: [32]uint16{0x00DC, 'b', 'e', 'r'}, length: 10},
			want: "Über",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeName(tt.args.units, tt.args.length)
			if err != nil {
				t.Fatalf("decodeName() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("decodeName() = %q, want %q", got, tt.want)
			}
		})
	}
}

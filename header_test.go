package gocfb

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/aligator/gocfb/internal/cfbtest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

// Offsets of some header fields used to damage built files.
const (
	offsetCLSID           = 8
	offsetMajorVersion    = 26
	offsetByteOrder       = 28
	offsetSectorShift     = 30
	offsetMiniSectorShift = 32
	offsetNumDirSectors   = 40
	offsetNumFATSectors   = 44
	offsetMiniCutoff      = 56
	offsetDIFAT           = 76
)

func putUint16(data []byte, offset int, value uint16) []byte {
	binary.LittleEndian.PutUint16(data[offset:], value)
	return data
}

func putUint32(data []byte, offset int, value uint32) []byte {
	binary.LittleEndian.PutUint32(data[offset:], value)
	return data
}

func TestReadHeader(t *testing.T) {
	valid, layout := testingBuild(t, cfbtest.Spec{
		Entries: []cfbtest.Entry{{Name: "Foo", Data: []byte("foo")}},
	})

	type args struct {
		data       []byte
		skipChecks bool
	}
	tests := []struct {
		name    string
		args    args
		wantErr error
	}{
		{
			name:    "valid file",
			args:    args{data: valid},
			wantErr: nil,
		},
		{
			name:    "no compound file",
			args:    args{data: []byte("This is no CFB file, but it is long enough to have a signature")},
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "empty source",
			args:    args{data: []byte{}},
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "cut off header",
			args:    args{data: clone(valid)[:100]},
			wantErr: ErrTruncated,
		},
		{
			name:    "cut off signature",
			args:    args{data: clone(valid)[:4]},
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "invalid byte order",
			args:    args{data: putUint16(clone(valid), offsetByteOrder, 0xFEFF)},
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "invalid byte order skipping checks",
			args:    args{data: putUint16(clone(valid), offsetByteOrder, 0xFEFF), skipChecks: true},
			wantErr: nil,
		},
		{
			name:    "version 4 with 512 byte sectors",
			args:    args{data: putUint16(clone(valid), offsetMajorVersion, 4)},
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "version 4 with 512 byte sectors skipping checks",
			args:    args{data: putUint16(clone(valid), offsetMajorVersion, 4), skipChecks: true},
			wantErr: nil,
		},
		{
			name:    "unusual mini stream cutoff",
			args:    args{data: putUint32(clone(valid), offsetMiniCutoff, 2048)},
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "directory sector count in version 3",
			args:    args{data: putUint32(clone(valid), offsetNumDirSectors, 1)},
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "huge sector shift",
			args:    args{data: putUint16(clone(valid), offsetSectorShift, 40), skipChecks: true},
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "mini sectors as big as sectors",
			args:    args{data: putUint16(clone(valid), offsetMiniSectorShift, 9), skipChecks: true},
			wantErr: ErrInvalidFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadHeader(bytes.NewReader(tt.args.data), tt.args.skipChecks)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ReadHeader() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("ReadHeader() error = %v", err)
			}
			if got.SectorShift != 9 || got.MiniSectorShift != 6 || got.MiniStreamCutoff != 4096 {
				t.Errorf("ReadHeader() = %+v, want the values of the built file", got)
			}
			if got.FirstDirSector != layout.DirSectors[0] {
				t.Errorf("ReadHeader() FirstDirSector = %v, want %v", got.FirstDirSector, layout.DirSectors[0])
			}
			if got.DIFAT[0] != layout.FATSectors[0] || got.DIFAT[1] != FreeSect {
				t.Errorf("ReadHeader() DIFAT starts with %v, want [%v %v]", got.DIFAT[:2], layout.FATSectors[0], FreeSect)
			}
		})
	}
}

func TestReadHeader_CLSID(t *testing.T) {
	data, _ := testingBuild(t, cfbtest.Spec{})
	// {00020906-0000-0000-C000-000000000046} as stored on disk.
	copy(data[offsetCLSID:], []byte{0x06, 0x09, 0x02, 0x00, 0x00, 0x00, 0x00, 0x00, 0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46})

	got, err := ReadHeader(bytes.NewReader(data), false)
	if err != nil {
		t.Fatalf("ReadHeader() error = %v", err)
	}

	want := uuid.MustParse("00020906-0000-0000-c000-000000000046")
	if got.CLSID != want {
		t.Errorf("ReadHeader() CLSID = %v, want %v", got.CLSID, want)
	}
}

func TestHeader_Geometry(t *testing.T) {
	type args struct {
		header     Header
		sourceSize int64
	}
	tests := []struct {
		name string
		args args
		want Geometry
	}{
		{
			name: "version 3",
			args: args{
				header:     Header{SectorShift: 9, MiniSectorShift: 6, MiniStreamCutoff: 4096},
				sourceSize: 512 * 4,
			},
			want: Geometry{SectorSize: 512, MiniSectorSize: 64, MiniStreamCutoff: 4096, TotalSectors: 3},
		},
		{
			name: "version 4",
			args: args{
				header:     Header{SectorShift: 12, MiniSectorShift: 6, MiniStreamCutoff: 4096},
				sourceSize: 4096 * 3,
			},
			want: Geometry{SectorSize: 4096, MiniSectorSize: 64, MiniStreamCutoff: 4096, TotalSectors: 2},
		},
		{
			name: "partial last sector",
			args: args{
				header:     Header{SectorShift: 9, MiniSectorShift: 6, MiniStreamCutoff: 4096},
				sourceSize: 512*3 + 10,
			},
			want: Geometry{SectorSize: 512, MiniSectorSize: 64, MiniStreamCutoff: 4096, TotalSectors: 3},
		},
		{
			name: "header only",
			args: args{
				header:     Header{SectorShift: 9, MiniSectorShift: 6, MiniStreamCutoff: 4096},
				sourceSize: 512,
			},
			want: Geometry{SectorSize: 512, MiniSectorSize: 64, MiniStreamCutoff: 4096, TotalSectors: 0},
		},
		{
			name: "version 4 header with partial first sector",
			args: args{
				header:     Header{SectorShift: 12, MiniSectorShift: 6, MiniStreamCutoff: 4096},
				sourceSize: 1000,
			},
			want: Geometry{SectorSize: 4096, MiniSectorSize: 64, MiniStreamCutoff: 4096, TotalSectors: 0},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.args.header.Geometry(tt.args.sourceSize)); diff != "" {
				t.Errorf("Header.Geometry() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGeometry_SectorOffset(t *testing.T) {
	tests := []struct {
		name     string
		geometry Geometry
		sector   uint32
		want     int64
	}{
		{name: "first sector", geometry: Geometry{SectorSize: 512}, sector: 0, want: 512},
		{name: "version 3", geometry: Geometry{SectorSize: 512}, sector: 5, want: 3072},
		{name: "version 4", geometry: Geometry{SectorSize: 4096}, sector: 2, want: 12288},
		{name: "largest regular sector", geometry: Geometry{SectorSize: 4096}, sector: MaxRegSect, want: (int64(MaxRegSect) + 1) * 4096},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.geometry.SectorOffset(tt.sector); got != tt.want {
				t.Errorf("Geometry.SectorOffset() = %v, want %v", got, tt.want)
			}
		})
	}
}

func Test_readAt(t *testing.T) {
	src := strings.NewReader("0123456789")

	tests := []struct {
		name    string
		offset  int64
		length  int
		want    []byte
		wantErr error
	}{
		{name: "inside", offset: 2, length: 3, want: []byte("234")},
		{name: "until the end", offset: 5, length: 5, want: []byte("56789")},
		{name: "over the end", offset: 8, length: 5, want: []byte("89"), wantErr: ErrTruncated},
		{name: "past the end", offset: 10, length: 1, want: nil, wantErr: ErrTruncated},
		{name: "negative offset", offset: -1, length: 1, want: nil, wantErr: ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readAt(src, tt.offset, tt.length)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("readAt() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("readAt() = %q, want %q", got, tt.want)
			}
		})
	}
}

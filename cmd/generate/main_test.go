package main

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/aligator/gocfb"
	"github.com/aligator/gocfb/internal/sample"
	"github.com/spf13/afero"
)

func Test_generate(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := generate(fs, "testdata"); err != nil {
		t.Fatalf("generate() error = %v", err)
	}

	for _, f := range fixtures {
		t.Run(f.name, func(t *testing.T) {
			s, err := sample.Open(fs, filepath.Join("testdata", f.name), 1<<20)
			if err != nil {
				t.Fatalf("sample.Open() error = %v", err)
			}
			defer s.Close()

			if wantGzip := s.Compression == sample.Gzip; wantGzip != f.gzip {
				t.Errorf("compression = %v, gzip %v", s.Compression, f.gzip)
			}

			c, err := gocfb.Parse(s)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}

			for _, e := range f.spec.Entries {
				got, err := c.Open(e.Name)
				if f.damage != nil && e.Name == "Looping" {
					if !errors.Is(err, gocfb.ErrCorruptChain) {
						t.Errorf("Open(%q) error = %v, want %v", e.Name, err, gocfb.ErrCorruptChain)
					}
					continue
				}
				if err != nil {
					t.Fatalf("Open(%q) error = %v", e.Name, err)
				}
				if string(got) != string(e.Data) {
					t.Errorf("Open(%q) returned %d bytes, want %d", e.Name, len(got), len(e.Data))
				}
			}
		})
	}
}

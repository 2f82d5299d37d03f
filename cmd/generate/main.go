package main

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aligator/gocfb/internal/cfbtest"
	"github.com/klauspost/compress/gzip"
	"github.com/spf13/afero"
)

type fixture struct {
	name string
	spec cfbtest.Spec
	// damage may break the built file.
	damage func(file []byte, layout cfbtest.Layout)
	gzip   bool
}

var modified = time.Date(2021, 2, 25, 13, 37, 0, 0, time.UTC)

var fixtures = []fixture{
	{
		name: "simple.doc",
		spec: cfbtest.Spec{Entries: []cfbtest.Entry{
			{Name: "WordDocument", Data: bytes.Repeat([]byte("GoCFB "), 1000), Modified: modified},
			{Name: "\x05SummaryInformation", Data: []byte("summary"), Modified: modified},
			{Name: "ObjectPool", Storage: true},
		}},
	},
	{
		name: "v4.doc",
		spec: cfbtest.Spec{SectorShift: 12, Entries: []cfbtest.Entry{
			{Name: "Workbook", Data: bytes.Repeat([]byte{0xAB}, 10000)},
			{Name: "small", Data: []byte("mini stream in a version 4 file")},
		}},
	},
	{
		name: "difat.doc",
		spec: cfbtest.Spec{DIFATOnly: true, Entries: []cfbtest.Entry{
			{Name: "Contents", Data: bytes.Repeat([]byte("difat"), 2000)},
		}},
	},
	{
		name: "loop.doc",
		spec: cfbtest.Spec{Entries: []cfbtest.Entry{
			{Name: "Looping", Data: bytes.Repeat([]byte("loop"), 2000)},
			{Name: "Intact", Data: []byte("still readable")},
		}},
		damage: func(file []byte, layout cfbtest.Layout) {
			chain := layout.Chains["Looping"]
			layout.SetFAT(file, chain[3], chain[1])
		},
	},
	{
		name: "simple.doc.gz",
		spec: cfbtest.Spec{Entries: []cfbtest.Entry{
			{Name: "WordDocument", Data: bytes.Repeat([]byte("compressed "), 1000)},
		}},
		gzip: true,
	},
}

// main writes the test files. Can be executed using 'go generate' from the project root.
func main() {
	if err := generate(afero.NewOsFs(), "testdata"); err != nil {
		panic(err)
	}
}

func generate(fs afero.Fs, dest string) error {
	if err := fs.MkdirAll(dest, 0755); err != nil {
		return err
	}

	for _, f := range fixtures {
		file, layout, err := cfbtest.Build(f.spec)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		if f.damage != nil {
			f.damage(file, layout)
		}

		if f.gzip {
			buf := &bytes.Buffer{}
			w := gzip.NewWriter(buf)
			if _, err := w.Write(file); err != nil {
				return fmt.Errorf("%s: %w", f.name, err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("%s: %w", f.name, err)
			}
			file = buf.Bytes()
		}

		if err := afero.WriteFile(fs, filepath.Join(dest, f.name), file, 0644); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}

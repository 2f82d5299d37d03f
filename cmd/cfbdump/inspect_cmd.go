package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aligator/gocfb"
	"github.com/aligator/gocfb/internal/logger"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output format command flags
var (
	outputFormat string = "text" // Output format for the inspection results
	prettyJSON   bool   = false  // Pretty-print JSON output
)

// Summary is the result of inspecting a compound file.
type Summary struct {
	File        string         `json:"file" yaml:"file"`
	Size        int64          `json:"size" yaml:"size"`
	Compression string         `json:"compression" yaml:"compression"`
	Header      HeaderSummary  `json:"header" yaml:"header"`
	Geometry    gocfb.Geometry `json:"geometry" yaml:"geometry"`
	Entries     []EntrySummary `json:"entries" yaml:"entries"`
	Diagnostics []string       `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

type HeaderSummary struct {
	CLSID            string `json:"clsid,omitempty" yaml:"clsid,omitempty"`
	MajorVersion     uint16 `json:"major_version" yaml:"major_version"`
	MinorVersion     uint16 `json:"minor_version" yaml:"minor_version"`
	NumFATSectors    uint32 `json:"fat_sectors" yaml:"fat_sectors"`
	NumDIFATSectors  uint32 `json:"difat_sectors" yaml:"difat_sectors"`
	NumMiniFATSector uint32 `json:"minifat_sectors" yaml:"minifat_sectors"`
	FirstDirSector   uint32 `json:"first_directory_sector" yaml:"first_directory_sector"`
}

type EntrySummary struct {
	ID       uint32 `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	Size     uint64 `json:"size" yaml:"size"`
	Mini     bool   `json:"mini,omitempty" yaml:"mini,omitempty"`
	CLSID    string `json:"clsid,omitempty" yaml:"clsid,omitempty"`
	Created  string `json:"created,omitempty" yaml:"created,omitempty"`
	Modified string `json:"modified,omitempty" yaml:"modified,omitempty"`
	// Error is set if the stream cannot be read completely.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// createInspectCommand creates the inspect subcommand
func createInspectCommand() *cobra.Command {
	inspectCmd := &cobra.Command{
		Use:   "inspect [flags] FILE",
		Short: "inspects the structure of a compound file",
		Long: `Inspect prints the header, the sector geometry and all directory entries
of a compound file. Every stream is resolved once to report damaged chains.
Combine it with --skip-checks to see all problems of a damaged file.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			switch outputFormat {
			case "text", "json", "yaml":
				return nil
			default:
				return fmt.Errorf("unsupported --format %q (supported: text, json, yaml)", outputFormat)
			}
		},
		RunE: executeInspect,
	}

	inspectCmd.Flags().StringVar(&outputFormat, "format", "text",
		"Specify the output format for the inspection results")
	inspectCmd.Flags().BoolVar(&prettyJSON, "pretty", false,
		"Pretty-print JSON output (only for --format json)")

	return inspectCmd
}

func executeInspect(cmd *cobra.Command, args []string) error {
	log := logger.Logger()
	log.Infof("Inspecting compound file: %s", args[0])

	c, src, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	summary, err := inspect(cmd, c)
	if err != nil {
		return err
	}
	summary.File = args[0]
	summary.Size = src.Size()
	summary.Compression = src.Compression

	return writeSummary(cmd.OutOrStdout(), summary, outputFormat, prettyJSON)
}

func inspect(cmd *cobra.Command, c *gocfb.Container) (*Summary, error) {
	h := c.Header()
	summary := &Summary{
		Header: HeaderSummary{
			CLSID:            formatCLSID(h.CLSID),
			MajorVersion:     h.MajorVersion,
			MinorVersion:     h.MinorVersion,
			NumFATSectors:    h.NumFATSectors,
			NumDIFATSectors:  h.NumDIFATSectors,
			NumMiniFATSector: h.NumMiniFATSectors,
			FirstDirSector:   h.FirstDirSector,
		},
		Geometry: c.Geometry(),
	}

	for _, d := range c.Diagnostics() {
		summary.Diagnostics = append(summary.Diagnostics, d.Error())
	}

	results, err := c.ResolveAll(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("inspection canceled: %w", err)
	}
	streamErrors := make(map[uint32]error, len(results))
	for _, r := range results {
		if r.Err != nil {
			streamErrors[r.Entry.ID] = r.Err
		}
	}

	for _, e := range c.List() {
		entry := EntrySummary{
			ID:       e.ID,
			Name:     e.Name,
			Type:     e.Type.String(),
			Size:     e.StreamSize,
			Mini:     e.IsMini(),
			CLSID:    formatCLSID(e.CLSID),
			Created:  formatTime(e.Created),
			Modified: formatTime(e.Modified),
		}
		if err := streamErrors[e.ID]; err != nil {
			entry.Error = err.Error()
		}
		summary.Entries = append(summary.Entries, entry)
	}

	return summary, nil
}

func formatCLSID(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func writeSummary(out io.Writer, summary *Summary, format string, pretty bool) error {
	switch format {
	case "text":
		printSummary(out, summary)
		return nil

	case "json":
		var (
			b   []byte
			err error
		)
		if pretty {
			b, err = json.MarshalIndent(summary, "", "  ")
		} else {
			b, err = json.Marshal(summary)
		}
		if err != nil {
			return fmt.Errorf("marshal json: %w", err)
		}
		_, _ = fmt.Fprintln(out, string(b))
		return nil

	case "yaml":
		b, err := yaml.Marshal(summary)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, _ = fmt.Fprint(out, string(b))
		return nil

	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func printSummary(out io.Writer, s *Summary) {
	_, _ = fmt.Fprintf(out, "File:         %s (%s, %s)\n", s.File, humanize.IBytes(uint64(s.Size)), s.Compression)
	_, _ = fmt.Fprintf(out, "Version:      %d.%d\n", s.Header.MajorVersion, s.Header.MinorVersion)
	if s.Header.CLSID != "" {
		_, _ = fmt.Fprintf(out, "CLSID:        %s\n", s.Header.CLSID)
	}
	_, _ = fmt.Fprintf(out, "Sectors:      %d x %d bytes (mini %d bytes, cutoff %d)\n",
		s.Geometry.TotalSectors, s.Geometry.SectorSize, s.Geometry.MiniSectorSize, s.Geometry.MiniStreamCutoff)
	_, _ = fmt.Fprintf(out, "FAT:          %d sectors, %d DIFAT sectors, %d MiniFAT sectors\n",
		s.Header.NumFATSectors, s.Header.NumDIFATSectors, s.Header.NumMiniFATSector)

	_, _ = fmt.Fprintf(out, "\nEntries (%d):\n", len(s.Entries))
	for _, e := range s.Entries {
		size := humanize.IBytes(e.Size)
		if e.Mini {
			size += " mini"
		}
		_, _ = fmt.Fprintf(out, "  %4d  %-7s  %-14s  %q\n", e.ID, e.Type, size, e.Name)
		if e.Modified != "" {
			_, _ = fmt.Fprintf(out, "        modified %s\n", e.Modified)
		}
		if e.Error != "" {
			_, _ = fmt.Fprintf(out, "        DAMAGED: %s\n", e.Error)
		}
	}

	if len(s.Diagnostics) > 0 {
		_, _ = fmt.Fprintf(out, "\nDiagnostics (%d):\n", len(s.Diagnostics))
		for _, d := range s.Diagnostics {
			_, _ = fmt.Fprintf(out, "  - %s\n", d)
		}
	}
}

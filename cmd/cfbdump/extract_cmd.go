package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aligator/gocfb/checkpoint"
	"github.com/aligator/gocfb/internal/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var quiet bool // Hide the progress bar

// outputFs creates dir and returns a file system rooted in it.
func outputFs(dir string) (afero.Fs, error) {
	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return afero.NewBasePathFs(osFs, dir), nil
}

// createExtractCommand creates the extract subcommand
func createExtractCommand() *cobra.Command {
	extractCmd := &cobra.Command{
		Use:   "extract [flags] FILE DIR",
		Short: "writes all streams of a compound file into a directory",
		Long: `Extract resolves all streams and writes each one into its own file in DIR.
Control characters and path separators in names are replaced, so "\x05SummaryInformation"
becomes "_05SummaryInformation". Streams with the same name get their entry id appended.
The readable part of a damaged stream is still written and reported afterwards.`,
		Args: cobra.ExactArgs(2),
		RunE: executeExtract,
	}

	extractCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not show a progress bar")

	return extractCmd
}

func executeExtract(cmd *cobra.Command, args []string) error {
	log := logger.Logger()

	c, src, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := outputFs(args[1])
	if err != nil {
		return fmt.Errorf("could not create output directory %s: %w", args[1], err)
	}

	results, err := c.ResolveAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("extraction canceled: %w", err)
	}

	var barOut io.Writer = cmd.ErrOrStderr()
	if quiet {
		barOut = io.Discard
	}
	bar := progressbar.NewOptions(len(results),
		progressbar.OptionSetWriter(barOut),
		progressbar.OptionSetWidth(30),
		progressbar.OptionShowCount(),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)

	used := make(map[string]bool)
	var damaged error
	for _, r := range results {
		name := sanitizeName(r.Entry.Name, r.Entry.ID)
		if used[name] {
			name = fmt.Sprintf("%s.%d", name, r.Entry.ID)
		}
		used[name] = true

		bar.Describe(name)

		if r.Err != nil {
			log.Warnf("stream %q is damaged, writing %d of %d bytes", r.Entry.Name, len(r.Data), r.Entry.StreamSize)
			damaged = multierr.Append(damaged, fmt.Errorf("%q: %w", r.Entry.Name, r.Err))
		}

		if err := afero.WriteFile(out, name, r.Data, 0644); err != nil {
			return fmt.Errorf("could not write %s: %w", name, err)
		}
		log.Debugf("extracted %q to %s", r.Entry.Name, name)

		if err := bar.Add(1); err != nil {
			log.Errorf("failed to add to progress bar: %v", err)
		}
	}
	_ = bar.Finish()

	if damaged != nil {
		return fmt.Errorf("%d damaged streams were written partially: %w", len(checkpoint.Errors(damaged)), damaged)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "extracted %d streams to %s\n", len(results), args[1])
	return nil
}

// sanitizeName makes a stream name usable as file name.
func sanitizeName(name string, id uint32) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7F:
			fmt.Fprintf(&b, "_%02x", r)
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	result := b.String()
	if result == "" || result == "." || result == ".." {
		return fmt.Sprintf("entry-%d", id)
	}
	return result
}

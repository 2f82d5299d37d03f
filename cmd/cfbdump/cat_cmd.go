package main

import (
	"errors"
	"fmt"

	"github.com/aligator/gocfb"
	"github.com/aligator/gocfb/internal/logger"
	"github.com/spf13/cobra"
)

// createCatCommand creates the cat subcommand
func createCatCommand() *cobra.Command {
	catCmd := &cobra.Command{
		Use:   "cat [flags] FILE NAME",
		Short: "writes the content of a stream to stdout",
		Long: `Cat writes the raw content of the first entry with exactly the given name.
Escape control characters in the name like $'\x05SummaryInformation'.
With --skip-checks the readable part of a damaged stream is still written.`,
		Args: cobra.ExactArgs(2),
		RunE: executeCat,
	}

	return catCmd
}

func executeCat(cmd *cobra.Command, args []string) error {
	c, src, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	name := args[1]
	data, err := c.Open(name)
	if errors.Is(err, gocfb.ErrNotFound) {
		return fmt.Errorf("no entry %q in %s", name, args[0])
	}
	if err != nil && !cfg.Parse.SkipChecks {
		return fmt.Errorf("could not read %q: %w", name, err)
	}
	if err != nil {
		logger.Logger().Warnf("writing %d readable bytes of damaged stream %q: %v", len(data), name, err)
	}

	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		return fmt.Errorf("could not write %q: %w", name, err)
	}
	return nil
}

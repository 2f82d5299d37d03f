package main

import (
	"fmt"
	"io"

	"github.com/aligator/gocfb"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listExact bool // Print exact sizes in bytes

// createListCommand creates the list subcommand
func createListCommand() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list [flags] FILE",
		Short: "lists the directory entries of a compound file",
		Long: `List prints every used directory entry with its id, type, size and name.
Names are quoted, as many of them start with control characters like "\x05".`,
		Args: cobra.ExactArgs(1),
		RunE: executeList,
	}

	listCmd.Flags().BoolVar(&listExact, "bytes", false, "Print sizes in bytes instead of human readable")

	return listCmd
}

func executeList(cmd *cobra.Command, args []string) error {
	c, src, err := openContainer(args[0])
	if err != nil {
		return err
	}
	defer src.Close()

	printEntries(cmd.OutOrStdout(), c.List(), listExact)
	return nil
}

func printEntries(out io.Writer, entries []*gocfb.Entry, exact bool) {
	for _, e := range entries {
		size := humanize.IBytes(e.StreamSize)
		if exact {
			size = fmt.Sprintf("%d", e.StreamSize)
		}
		if e.Type == gocfb.TypeStorage {
			size = "-"
		}

		location := ""
		if e.IsMini() {
			location = " (mini)"
		}

		_, _ = fmt.Fprintf(out, "%4d  %-7s  %10s  %q%s\n", e.ID, e.Type, size, e.Name, location)
	}
}

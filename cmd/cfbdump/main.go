// cfbdump lists, extracts and inspects the streams of Compound File Binary (OLE2) files
// like .doc, .xls or .msg files.
package main

import (
	"fmt"
	"os"

	"github.com/aligator/gocfb"
	"github.com/aligator/gocfb/internal/config"
	"github.com/aligator/gocfb/internal/logger"
	"github.com/aligator/gocfb/internal/sample"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Global command flags
var (
	configFile string
	logLevel   string
	skipChecks bool
)

// cfg is loaded before any subcommand runs.
var cfg = config.Default()

func main() {
	err := createRootCommand().Execute()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cfbdump",
		Short: "inspects Compound File Binary files",
		Long: `cfbdump reads Compound File Binary (OLE2) containers such as .doc, .xls,
.ppt or .msg files. It lists the directory, prints or extracts single streams
and reports damaged structures. Input files may be compressed with gzip, zstd or xz.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}

	addGlobalFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(createListCommand())
	rootCmd.AddCommand(createCatCommand())
	rootCmd.AddCommand(createExtractCommand())
	rootCmd.AddCommand(createInspectCommand())

	return rootCmd
}

func addGlobalFlags(flags *pflag.FlagSet) {
	flags.StringVar(&configFile, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides the configuration")
	flags.BoolVar(&skipChecks, "skip-checks", false, "Continue reading damaged files as far as possible")
}

// setup loads the configuration and initializes the logger. Flags take precedence over the configuration file.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(afero.NewOsFs(), configFile)
	if err != nil {
		return fmt.Errorf("loading configuration failed: %w", err)
	}

	if cmd.Flags().Changed("log-level") {
		loaded.Log.Level = logLevel
	}
	if cmd.Flags().Changed("skip-checks") {
		loaded.Parse.SkipChecks = skipChecks
	}

	if err := logger.Init(loaded.Log.Level, loaded.Log.Format); err != nil {
		return fmt.Errorf("initializing logger failed: %w", err)
	}

	cfg = loaded
	return nil
}

// openContainer opens and parses the file at path. The returned sample has to be closed
// after the container is not used anymore.
func openContainer(path string) (*gocfb.Container, *sample.Sample, error) {
	log := logger.Logger()

	src, err := sample.Open(afero.NewOsFs(), path, int64(cfg.Limits.MaxInputSize))
	if err != nil {
		return nil, nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	log.Debugw("opened input", "path", path, "size", src.Size(), "compression", src.Compression, "mapped", src.Mapped)

	opts := []gocfb.Option{
		gocfb.WithLogger(logger.Base()),
		gocfb.WithCache(cfg.Limits.CacheEntries),
		gocfb.WithConcurrency(cfg.Limits.Workers),
	}

	parse := gocfb.Parse
	if cfg.Parse.SkipChecks {
		parse = gocfb.ParseSkipChecks
	}

	c, err := parse(src, opts...)
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("could not parse %s: %w", path, err)
	}

	for _, d := range c.Diagnostics() {
		log.Warnf("damaged structure: %v", d)
	}

	return c, src, nil
}

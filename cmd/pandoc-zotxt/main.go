// Package main provides the pandoc-zotxt filter entry point.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/matsen/pandoc-zotxt/internal/artifact"
	"github.com/matsen/pandoc-zotxt/internal/config"
	"github.com/matsen/pandoc-zotxt/internal/logging"
	"github.com/matsen/pandoc-zotxt/internal/pandoc"
	"github.com/matsen/pandoc-zotxt/internal/resolve"
	"github.com/matsen/pandoc-zotxt/internal/zotxt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// Flag overrides for the loaded configuration.
var (
	flagZotxtURL    string
	flagTimeout     string
	flagWorkers     int
	flagArtifactDir string
	flagLogLevel    string
	flagLogFile     string
)

// errConfig marks configuration failures so they map to ExitConfigError.
var errConfig = errors.New("configuration error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "pandoc-zotxt: %s\n", err)
		os.Exit(exitCodeFor(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "pandoc-zotxt [format]",
	Short: "Pandoc filter that fetches citations from Zotero via zotxt",
	Long: `pandoc-zotxt is a pandoc JSON filter. It collects the citation keys of a
document, looks each one up in Zotero through the zotxt extension, writes the
matching CSL-JSON records to a temporary file and sets the document's
bibliography metadata to that file.

Usage with pandoc:
  pandoc --filter pandoc-zotxt --citeproc paper.md -o paper.pdf

Keys are tried as zotxt easykeys first, then as Better BibTeX keys.
Keys that match neither are left out of the bibliography.

The bibliography file is not removed after the run; pandoc reads it once the
filter has exited.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runFilter,
}

func init() {
	// Load .env file if present (for ZOTXT_* overrides)
	_ = godotenv.Load()

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	flags.StringVar(&flagZotxtURL, "zotxt-url", "", "zotxt base URL (default "+zotxt.DefaultBaseURL+")")
	flags.StringVar(&flagTimeout, "timeout", "", "Per-lookup timeout, e.g. 10s")
	flags.IntVar(&flagWorkers, "workers", 0, "Number of concurrent lookups")
	flags.StringVar(&flagArtifactDir, "artifact-dir", "", "Directory for bibliography files (default system temp dir)")
	flags.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&flagLogFile, "log-file", "", "Also write JSON logs to this file")
	rootCmd.Version = Version
}

// loadConfig loads configuration, applies command-line overrides and
// validates the result. Flags win over the environment and the config file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loaded, err := config.LoadMerged()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errConfig, err)
	}
	cfg := *loaded

	var o config.Overrides
	flags := cmd.Flags()
	if flags.Changed("zotxt-url") {
		o.ZotxtURL = &flagZotxtURL
	}
	if flags.Changed("timeout") {
		o.Timeout = &flagTimeout
	}
	if flags.Changed("workers") {
		o.Workers = &flagWorkers
	}
	if flags.Changed("artifact-dir") {
		o.ArtifactDir = &flagArtifactDir
	}
	if flags.Changed("log-level") {
		o.LogLevel = &flagLogLevel
	}
	if flags.Changed("log-file") {
		o.LogFile = &flagLogFile
	}
	cfg.ApplyOverrides(o)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errConfig, err)
	}
	return &cfg, nil
}

// newLogger builds the logger for cfg.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errConfig, err)
	}
	return logger, nil
}

// newClient builds a zotxt client for cfg. cfg must have been validated.
func newClient(cfg *config.Config, logger *zap.Logger) *zotxt.Client {
	timeout, _ := cfg.TimeoutDuration()
	return zotxt.NewClient(
		zotxt.WithBaseURL(cfg.ZotxtURL),
		zotxt.WithTimeout(timeout),
		zotxt.WithRateLimit(cfg.RateLimit),
		zotxt.WithLogger(logger),
	)
}

// newResolver builds a resolver for cfg. cfg must have been validated.
func newResolver(cfg *config.Config, client resolve.Lookuper, logger *zap.Logger) *resolve.Resolver {
	strategies, _ := cfg.Strategies()
	return resolve.New(client,
		resolve.WithStrategies(strategies...),
		resolve.WithWorkers(cfg.Workers),
		resolve.WithLogger(logger),
	)
}

// exitCodeFor maps an error returned by a command to a process exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errConfig):
		return ExitConfigError
	case errors.Is(err, pandoc.ErrMalformed):
		return ExitDataError
	case errors.Is(err, artifact.ErrWrite):
		return ExitArtifactError
	case errors.As(err, &lookupNotFoundError{}):
		return ExitLookupNotFound
	default:
		return ExitError
	}
}

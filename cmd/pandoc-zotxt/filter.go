package main

import (
	"github.com/matsen/pandoc-zotxt/internal/artifact"
	"github.com/matsen/pandoc-zotxt/internal/filter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runFilter reads a pandoc JSON document from stdin and writes the filtered
// document to stdout. pandoc passes the target format as the only argument.
func runFilter(cmd *cobra.Command, args []string) error {
	format := ""
	if len(args) > 0 {
		format = args[0]
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client := newClient(cfg, logger)
	f := filter.New(
		newResolver(cfg, client, logger),
		artifact.Writer{Dir: cfg.ArtifactDir},
		logger,
	)

	report, err := f.Run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), format)
	if err != nil {
		logger.Error("filter failed", zap.Error(err))
		return err
	}

	logger.Info("bibliography written",
		zap.String("format", report.Format),
		zap.Int("keys", len(report.Keys)),
		zap.Int("resolved", report.Resolved),
		zap.String("artifact", report.Artifact),
	)
	return nil
}

package main

import (
	"fmt"

	"github.com/matsen/pandoc-zotxt/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func init() {
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Show the configuration after the config file, .env, ZOTXT_* environment
variables and command-line flags have been applied.

Config file: $XDG_CONFIG_HOME/pandoc-zotxt/config.yml

Keys:
  zotxt_url     zotxt base URL (default http://localhost:23119/zotxt)
  timeout       Per-lookup timeout (default 10s)
  rate_limit    Maximum lookups per second (default 20, negative for no limit)
  workers       Concurrent lookups (default 4)
  key_types     Lookup order (default [easykey, betterbibtexkey])
  artifact_dir  Directory for bibliography files (default system temp dir)
  log_level     debug, info, warn or error (default warn)
  log_file      Optional JSON log file, rotated`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if humanOutput {
		fmt.Fprintf(out, "# %s\n", config.GlobalConfigPath())
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encoding config: %w", err)
		}
		return enc.Close()
	}
	return outputJSON(out, cfg)
}

package main

import (
	"fmt"

	"github.com/matsen/pandoc-zotxt/internal/zotxt"
	"github.com/spf13/cobra"
)

var lookupKeyType string

func init() {
	rootCmd.AddCommand(lookupCmd)
	lookupCmd.Flags().StringVar(&lookupKeyType, "key-type", "", "Query a single key type (easykey, betterbibtexkey, key) instead of the configured fallback order")
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <citekey>...",
	Short: "Look up citation keys in Zotero",
	Long: `Look up citation keys through zotxt and print the CSL-JSON records.

Without --key-type, keys are resolved the same way the filter resolves them:
each configured key type is tried in order until one matches. With
--key-type, only that scheme is queried and errors are reported per key.

Examples:
  pandoc-zotxt lookup doe:2005first
  pandoc-zotxt lookup Doe2005 --key-type betterbibtexkey
  pandoc-zotxt lookup doe:2005first Doe2005 --human`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLookup,
}

func runLookup(cmd *cobra.Command, args []string) error {
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
	ctx := cmd.Context()

	var results []LookupResult
	if lookupKeyType != "" {
		kt, err := zotxt.ParseKeyType(lookupKeyType)
		if err != nil {
			return fmt.Errorf("%w: %v", errConfig, err)
		}
		for _, key := range args {
			r := LookupResult{Key: key}
			rec, err := client.Fetch(ctx, kt, key)
			if err != nil {
				if !zotxt.IsNotFound(err) {
					r.Error = err.Error()
				}
			} else {
				r.Found = true
				r.KeyType = string(kt)
				r.Record = rec.WithID(key)
			}
			results = append(results, r)
		}
	} else {
		res := newResolver(cfg, client, logger).ResolveAll(ctx, args)
		for _, rr := range res.Resolutions {
			results = append(results, LookupResult{
				Key:     rr.Key,
				Found:   rr.Resolved(),
				KeyType: string(rr.Strategy),
				Record:  rr.Record,
			})
		}
	}

	out := cmd.OutOrStdout()
	if humanOutput {
		printLookupHuman(out, results)
	} else if err := outputJSON(out, results); err != nil {
		return err
	}

	for _, r := range results {
		if !r.Found {
			return lookupNotFoundError{}
		}
	}
	return nil
}

// lookupNotFoundError is returned when at least one key did not match.
type lookupNotFoundError struct{}

func (lookupNotFoundError) Error() string {
	return "one or more keys were not found"
}

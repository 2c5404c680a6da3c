package main

import (
	"fmt"
	"io"
	"os"

	"github.com/matsen/pandoc-zotxt/internal/cite"
	"github.com/matsen/pandoc-zotxt/internal/pandoc"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(extractCmd)
}

var extractCmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "List the citation keys of a pandoc JSON document",
	Long: `List the distinct citation keys of a pandoc JSON document, in order of
first appearance. Reads standard input when no file is given. Nothing is
looked up.

Examples:
  pandoc -t json paper.md | pandoc-zotxt extract
  pandoc-zotxt extract paper.json --human`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening document: %w", err)
		}
		defer f.Close()
		in = f
	}

	doc, err := pandoc.Decode(in)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}
	keys := cite.Collect(doc, "").Keys()

	out := cmd.OutOrStdout()
	if humanOutput {
		for _, k := range keys {
			fmt.Fprintln(out, k)
		}
		return nil
	}
	return outputJSON(out, ExtractResponse{Count: len(keys), Keys: keys})
}

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/matsen/pandoc-zotxt/internal/zotxt"
)

// TitleMaxLen is the title truncation length in human-readable output.
const TitleMaxLen = 70

// outputJSON writes a value as formatted JSON.
func outputJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// LookupResult is the JSON output of the lookup command for one key.
type LookupResult struct {
	Key     string       `json:"key"`
	Found   bool         `json:"found"`
	KeyType string       `json:"key_type,omitempty"`
	Record  zotxt.Record `json:"record,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// ExtractResponse is the JSON output of the extract command.
type ExtractResponse struct {
	Count int      `json:"count"`
	Keys  []string `json:"keys"`
}

// printLookupHuman prints lookup results one per line.
func printLookupHuman(w io.Writer, results []LookupResult) {
	for _, r := range results {
		if !r.Found {
			if r.Error != "" {
				fmt.Fprintf(w, "%s: not found (%s)\n", r.Key, r.Error)
			} else {
				fmt.Fprintf(w, "%s: not found\n", r.Key)
			}
			continue
		}
		fmt.Fprintf(w, "%s [%s]\n", r.Key, r.KeyType)
		if title, ok := r.Record["title"].(string); ok {
			fmt.Fprintf(w, "  %s\n", truncateString(title, TitleMaxLen))
		}
		if authors := formatAuthors(r.Record["author"]); authors != "" {
			fmt.Fprintf(w, "  %s\n", authors)
		}
	}
}

// truncateString truncates a string to maxLen runes, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// formatAuthors formats a CSL author list as "Family, Family, ...".
// Literal names are used as given.
func formatAuthors(v any) string {
	list, ok := v.([]any)
	if !ok {
		return ""
	}
	var names []string
	for _, a := range list {
		m, ok := a.(map[string]any)
		if !ok {
			continue
		}
		if family, ok := m["family"].(string); ok && family != "" {
			names = append(names, family)
		} else if literal, ok := m["literal"].(string); ok {
			names = append(names, literal)
		}
	}
	return strings.Join(names, ", ")
}

// Package artifact writes the resolved bibliography to a CSL-JSON file that
// pandoc's citeproc reads after this filter has exited.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/pandoc-zotxt/internal/zotxt"
)

// DefaultPattern is the os.CreateTemp pattern for artifact files.
const DefaultPattern = "pandoc-zotxt-*.json"

// ErrWrite wraps every failure to produce an artifact.
var ErrWrite = errors.New("writing bibliography artifact")

// Writer creates bibliography artifacts.
//
// Files are never removed by this package: the path is handed to the
// renderer through the document metadata and must outlive this process.
// Deleting them is left to the caller or the OS temp cleanup.
type Writer struct {
	Dir     string // directory for new files; os.TempDir() if empty
	Pattern string // os.CreateTemp pattern; DefaultPattern if empty
}

// Write stores records as an indented JSON array in a new, uniquely named
// file and returns its absolute path. An empty list is written as [].
func (w Writer) Write(records []zotxt.Record) (string, error) {
	dir := w.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	pattern := w.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	if records == nil {
		records = []zotxt.Record{}
	}

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", fmt.Errorf("%w: creating file: %v", ErrWrite, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		discard(f)
		return "", fmt.Errorf("%w: encoding records: %v", ErrWrite, err)
	}
	if err := f.Sync(); err != nil {
		discard(f)
		return "", fmt.Errorf("%w: syncing %s: %v", ErrWrite, f.Name(), err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("%w: closing %s: %v", ErrWrite, f.Name(), err)
	}

	path, err := filepath.Abs(f.Name())
	if err != nil {
		return "", fmt.Errorf("%w: resolving path: %v", ErrWrite, err)
	}
	return path, nil
}

// discard closes and removes a partially written file.
func discard(f *os.File) {
	f.Close()
	os.Remove(f.Name())
}

// Read loads an artifact file.
func Read(path string) ([]zotxt.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening artifact: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var records []zotxt.Record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("parsing artifact %s: %w", path, err)
	}
	return records, nil
}

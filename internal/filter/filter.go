// Package filter implements the pandoc-zotxt document transform: collect the
// citation keys of a document, resolve them through zotxt, write the records
// to a bibliography file and point the document's metadata at it.
package filter

import (
	"context"
	"fmt"
	"io"

	"github.com/matsen/pandoc-zotxt/internal/cite"
	"github.com/matsen/pandoc-zotxt/internal/pandoc"
	"github.com/matsen/pandoc-zotxt/internal/resolve"
	"github.com/matsen/pandoc-zotxt/internal/zotxt"
	"go.uber.org/zap"
)

// BibliographyField is the metadata field pandoc's citeproc reads.
const BibliographyField = "bibliography"

// Stage names the steps of a filter run, in order.
type Stage string

const (
	StageCollect         Stage = "collect"
	StageResolve         Stage = "resolve"
	StageWriteArtifact   Stage = "write_artifact"
	StageRewriteMetadata Stage = "rewrite_metadata"
	StageDone            Stage = "done"
)

// Resolver resolves citation keys.
type Resolver interface {
	ResolveAll(ctx context.Context, keys []string) resolve.Result
}

// ArtifactWriter persists resolved records and returns the file path.
type ArtifactWriter interface {
	Write(records []zotxt.Record) (string, error)
}

// Report summarises one filter run.
type Report struct {
	Format     string   `json:"format"`
	Keys       []string `json:"keys"`
	Resolved   int      `json:"resolved"`
	Unresolved []string `json:"unresolved,omitempty"`
	Artifact   string   `json:"artifact"`
}

// Filter runs the transform.
type Filter struct {
	resolver Resolver
	writer   ArtifactWriter
	logger   *zap.Logger
}

// New creates a Filter. A nil logger disables logging.
func New(resolver Resolver, writer ArtifactWriter, logger *zap.Logger) *Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Filter{resolver: resolver, writer: writer, logger: logger}
}

// Apply transforms doc in place. It fails if ctx is done before every key
// has been looked up or if the bibliography file cannot be written.
// Unresolved keys are simply left out.
func (f *Filter) Apply(ctx context.Context, doc *pandoc.Document, format string) (Report, error) {
	report := Report{Format: format}

	f.stage(StageCollect)
	keys := cite.Collect(doc, format).Keys()
	report.Keys = keys

	f.stage(StageResolve, zap.Int("keys", len(keys)))
	result := f.resolver.ResolveAll(ctx, keys)
	if err := ctx.Err(); err != nil {
		// Lookups cut short by cancellation look like misses.
		return report, fmt.Errorf("resolving citations: %w", err)
	}
	records := result.Records()
	report.Resolved = len(records)
	report.Unresolved = result.Unresolved()

	f.stage(StageWriteArtifact, zap.Int("records", len(records)))
	path, err := f.writer.Write(records)
	if err != nil {
		return report, err
	}
	report.Artifact = path

	f.stage(StageRewriteMetadata, zap.String("artifact", path))
	SetBibliography(doc, path)

	f.stage(StageDone)
	if len(report.Unresolved) > 0 {
		f.logger.Info("citation keys not found in Zotero", zap.Strings("keys", report.Unresolved))
	}
	return report, nil
}

// Run reads a pandoc JSON document from r, applies the filter and writes the
// result to w.
func (f *Filter) Run(ctx context.Context, r io.Reader, w io.Writer, format string) (Report, error) {
	doc, err := pandoc.Decode(r)
	if err != nil {
		return Report{Format: format}, fmt.Errorf("reading document: %w", err)
	}

	report, err := f.Apply(ctx, doc, format)
	if err != nil {
		return report, err
	}

	if err := doc.Encode(w); err != nil {
		return report, fmt.Errorf("writing document: %w", err)
	}
	return report, nil
}

func (f *Filter) stage(s Stage, fields ...zap.Field) {
	f.logger.Debug("stage", append([]zap.Field{zap.String("stage", string(s))}, fields...)...)
}

// SetBibliography points the document's bibliography metadata at path.
// No other metadata field is read or changed.
func SetBibliography(doc *pandoc.Document, path string) {
	doc.SetMeta(BibliographyField, pandoc.MetaInlines(pandoc.Str(path)))
}

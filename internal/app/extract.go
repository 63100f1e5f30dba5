package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/pflag"

	"github.com/sha1n/mcp-apidoc-server/internal/apidoc"
	"github.com/sha1n/mcp-apidoc-server/internal/config"
	"github.com/sha1n/mcp-apidoc-server/internal/domain"
	"github.com/sha1n/mcp-apidoc-server/internal/export"
	"github.com/sha1n/mcp-apidoc-server/internal/ingest"
	"github.com/sha1n/mcp-apidoc-server/internal/knowledge"
)

// ErrNoDocument is returned by extract when no document source is configured.
var ErrNoDocument = errors.New("no document configured (use --document or APIDOC_MCP_DOCUMENT_SOURCE)")

// ExtractParams contains dependencies for the extract command
type ExtractParams struct {
	LoadSettings  func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings func(*config.Settings) error
	Now           func() time.Time
}

// DefaultExtractParams returns production dependencies
func DefaultExtractParams() ExtractParams {
	return ExtractParams{
		LoadSettings:  config.LoadSettingsWithFlags,
		ValidSettings: config.ValidateSettings,
		Now:           time.Now,
	}
}

// ExtractSummary describes one extract run.
type ExtractSummary struct {
	Source    string
	Endpoints int
	Skipped   int
	Records   int
	Quality   domain.QualityReport
	Files     []string
}

// RunExtract loads the configured document, extracts its endpoints and
// knowledge tables and writes them in every configured output format.
func RunExtract(ctx context.Context, params ExtractParams, flags *pflag.FlagSet, out io.Writer) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging()
	config.Log(settings)

	summary, err := Extract(ctx, settings, params.Now())
	if err != nil {
		return err
	}

	printSummary(out, summary)
	return nil
}

// Extract runs the batch pipeline for settings.Document.Source.
func Extract(ctx context.Context, settings *config.Settings, now time.Time) (*ExtractSummary, error) {
	if settings.Document.Source == "" {
		return nil, ErrNoDocument
	}

	doc, err := ingest.LoadFile(settings.Document.Source, settings.Document.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	slog.Info("Document loaded", "source", doc.Name, "format", doc.Format, "pages", doc.Pages, "bytes", doc.Size)

	result := apidoc.NewParser(settings.ParserOptions()).Parse(doc.Text)
	for _, perr := range result.Errors {
		slog.Warn("Endpoint skipped", "method", perr.Method, "path", perr.Path, "error", perr.Err)
	}

	manifest := export.BuildManifest(result.Endpoints, settings.ManifestOptions(), now)
	if err := export.ValidateManifest(manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	var tables []domain.Table
	if settings.Output.KnowledgeBases {
		tables = knowledge.Build(doc.Text, result.Endpoints)
	}

	writer, err := export.NewWriter(settings.Output.Dir, settings.Output.Formats)
	if err != nil {
		return nil, err
	}
	files, err := writer.Write(ctx, &export.Bundle{
		Source:      doc.Name,
		Endpoints:   result.Endpoints,
		Quality:     result.Quality,
		Manifest:    manifest,
		Tables:      tables,
		Errors:      result.ErrorMessages(),
		GeneratedAt: now,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Extraction complete",
		"endpoints", len(result.Endpoints),
		"skipped", len(result.Errors),
		"quality", result.Quality.QualityLabel,
		"files", len(files))

	return &ExtractSummary{
		Source:    doc.Name,
		Endpoints: len(result.Endpoints),
		Skipped:   len(result.Errors),
		Records:   knowledge.TotalRecords(tables),
		Quality:   result.Quality,
		Files:     files,
	}, nil
}

func printSummary(out io.Writer, s *ExtractSummary) {
	_, _ = fmt.Fprintf(out, "Extracted %d endpoints from %s (%d skipped)\n", s.Endpoints, s.Source, s.Skipped)
	_, _ = fmt.Fprintf(out, "Quality: %s (readiness %.1f%%, data completeness %.1f%%)\n",
		s.Quality.QualityLabel, s.Quality.ReadinessScore, s.Quality.DataCompleteness)
	if s.Records > 0 {
		_, _ = fmt.Fprintf(out, "Knowledge base records: %d\n", s.Records)
	}
	for _, rec := range s.Quality.Recommendations {
		_, _ = fmt.Fprintf(out, "  - %s\n", rec)
	}
	_, _ = fmt.Fprintf(out, "Wrote %d files:\n", len(s.Files))
	for _, f := range s.Files {
		_, _ = fmt.Fprintf(out, "  %s\n", f)
	}
}

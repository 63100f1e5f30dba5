// Package export writes extraction results to disk.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"
	"github.com/sha1n/mcp-apidoc-server/internal/knowledge"
)

// Output formats.
const (
	FormatJSON   = "json"
	FormatCSV    = "csv"
	FormatYAML   = "yaml"
	FormatSQLite = "sqlite"
)

// Formats lists every supported output format.
var Formats = []string{FormatJSON, FormatCSV, FormatYAML, FormatSQLite}

// Output file names.
const (
	EndpointsFile     = "endpoints"
	QualityReportFile = "quality_report.json"
	ManifestFile      = "manifest"
	ErrorsFile        = "extraction_errors.json"
	MasterFile        = "master.json"
	DatabaseFile      = "apidoc.db"
)

// Bundle is everything produced for one document.
type Bundle struct {
	Source      string
	Endpoints   []domain.Endpoint
	Quality     domain.QualityReport
	Manifest    *Manifest
	Tables      []domain.Table
	Errors      []string
	GeneratedAt time.Time
}

// MasterEntry describes one knowledge-base table in the master index.
type MasterEntry struct {
	File        string `json:"file"`
	Count       int    `json:"count"`
	Description string `json:"description"`
}

// Master indexes the knowledge-base files of a run.
type Master struct {
	APIName        string                 `json:"api_name"`
	Version        string                 `json:"version"`
	GeneratedAt    time.Time              `json:"generated_at"`
	TotalRecords   int                    `json:"total_records"`
	KnowledgeBases map[string]MasterEntry `json:"knowledge_bases"`
}

// NewMaster builds the master index of the given tables.
func NewMaster(source string, tables []domain.Table, now time.Time) Master {
	name := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if name == "" || name == "." {
		name = "api"
	}
	m := Master{
		APIName:        name,
		Version:        "v1",
		GeneratedAt:    now.UTC(),
		TotalRecords:   knowledge.TotalRecords(tables),
		KnowledgeBases: make(map[string]MasterEntry, len(tables)),
	}
	for _, t := range tables {
		m.KnowledgeBases[t.Name] = MasterEntry{
			File:        t.Name + ".json",
			Count:       len(t.Records),
			Description: t.Description,
		}
	}
	return m
}

// Writer writes bundles to an output directory.
type Writer struct {
	dir     string
	formats []string
}

// NewWriter creates a writer for the given formats.
func NewWriter(dir string, formats []string) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if len(formats) == 0 {
		formats = []string{FormatJSON}
	}
	for _, f := range formats {
		if !slices.Contains(Formats, f) {
			return nil, fmt.Errorf("unsupported output format %q", f)
		}
	}
	return &Writer{dir: dir, formats: formats}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write writes b in every configured format and returns the written paths
// in write order.
func (w *Writer) Write(ctx context.Context, b *Bundle) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	for _, format := range w.formats {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		var (
			files []string
			err   error
		)
		switch format {
		case FormatJSON:
			files, err = w.writeJSON(b)
		case FormatCSV:
			files, err = w.writeCSV(b)
		case FormatYAML:
			files, err = w.writeYAML(b)
		case FormatSQLite:
			files, err = w.writeSQLite(ctx, b)
		}
		written = append(written, files...)
		if err != nil {
			return written, fmt.Errorf("failed to write %s output: %w", format, err)
		}
	}
	return written, nil
}

type namedValue struct {
	name  string
	value any
}

func (w *Writer) writeJSON(b *Bundle) ([]string, error) {
	errs := b.Errors
	if errs == nil {
		errs = []string{}
	}
	endpoints := b.Endpoints
	if endpoints == nil {
		endpoints = []domain.Endpoint{}
	}

	outputs := []namedValue{
		{EndpointsFile + ".json", endpoints},
		{QualityReportFile, b.Quality},
		{ErrorsFile, errs},
	}
	if b.Manifest != nil {
		outputs = append(outputs, namedValue{ManifestFile + ".json", b.Manifest})
	}

	var written []string
	for _, o := range outputs {
		path, err := w.writeValue(o.name, o.value)
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}

	if len(b.Tables) == 0 {
		return written, nil
	}
	for _, t := range b.Tables {
		path, err := w.writeValue(t.Name+".json", t.Maps())
		if err != nil {
			return written, err
		}
		written = append(written, path)
	}
	path, err := w.writeValue(MasterFile, NewMaster(b.Source, b.Tables, b.GeneratedAt))
	if err != nil {
		return written, err
	}
	return append(written, path), nil
}

func (w *Writer) writeValue(name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	path := filepath.Join(w.dir, name)
	return path, writeFileAtomic(path, data)
}

// endpointColumns is the flattened CSV layout of an endpoint.
var endpointColumns = []string{
	"operation_id", "method", "path", "summary", "description", "description_source",
	"category", "confidence", "headers", "parameters", "request_body", "responses", "quality_score",
}

func endpointRow(e domain.Endpoint) ([]string, error) {
	headers, err := json.Marshal(e.Headers)
	if err != nil {
		return nil, err
	}
	params, err := json.Marshal(e.Parameters)
	if err != nil {
		return nil, err
	}
	return []string{
		e.OperationID, e.Method, e.Path, e.Summary, e.Description, e.DescriptionSource,
		e.Category, e.CategoryInfo.Confidence, string(headers), string(params),
		e.RequestBody.String(), strconv.Itoa(len(e.Responses)),
		strconv.FormatFloat(e.QualityScore, 'f', -1, 64),
	}, nil
}

func (w *Writer) writeCSV(b *Bundle) ([]string, error) {
	rows := make([][]string, 0, len(b.Endpoints)+1)
	rows = append(rows, endpointColumns)
	for _, e := range b.Endpoints {
		row, err := endpointRow(e)
		if err != nil {
			return nil, fmt.Errorf("failed to flatten endpoint %s: %w", e.OperationID, err)
		}
		rows = append(rows, row)
	}

	var written []string
	path := filepath.Join(w.dir, EndpointsFile+".csv")
	if err := writeCSVFile(path, rows); err != nil {
		return written, err
	}
	written = append(written, path)

	for _, t := range b.Tables {
		rows := make([][]string, 0, len(t.Records)+1)
		rows = append(rows, t.Header())
		for _, r := range t.Records {
			rows = append(rows, t.Row(r))
		}
		path := filepath.Join(w.dir, t.Name+".csv")
		if err := writeCSVFile(path, rows); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeCSVFile(path string, rows [][]string) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, buf.Bytes())
}

func (w *Writer) writeYAML(b *Bundle) ([]string, error) {
	if b.Manifest == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(b.Manifest); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}
	path := filepath.Join(w.dir, ManifestFile+".yaml")
	return []string{path}, writeFileAtomic(path, buf.Bytes())
}

// writeFileAtomic writes data to a temp file and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

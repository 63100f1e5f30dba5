// Package web serves the document upload form.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sha1n/mcp-apidoc-server/internal/apidoc"
	"github.com/sha1n/mcp-apidoc-server/internal/config"
	"github.com/sha1n/mcp-apidoc-server/internal/domain"
	"github.com/sha1n/mcp-apidoc-server/internal/export"
	"github.com/sha1n/mcp-apidoc-server/internal/ingest"
)

// UploadPath is the route of the upload form.
const UploadPath = "/upload"

// formFile is the multipart field carrying the document.
const formFile = "file"

// multipartOverhead is allowed on top of the document limit for boundaries and headers.
const multipartOverhead = 1 << 20

var allowedExtensions = []string{".pdf", ".txt"}

// UploadResponse is the extraction result returned for an uploaded document.
type UploadResponse struct {
	Source    string               `json:"source"`
	Format    string               `json:"format"`
	Pages     int                  `json:"pages,omitempty"`
	Endpoints []domain.Endpoint    `json:"endpoints"`
	Quality   domain.QualityReport `json:"quality"`
	Manifest  *export.Manifest     `json:"manifest"`
	Errors    []string             `json:"errors"`
}

// Handler extracts endpoints from uploaded documents. Nothing is persisted.
type Handler struct {
	parser   *apidoc.Parser
	manifest export.ManifestOptions
	maxBytes int64
	now      func() time.Time
}

// NewHandler creates an upload handler with the extraction and manifest settings.
func NewHandler(settings *config.Settings) *Handler {
	return &Handler{
		parser:   apidoc.NewParser(settings.ParserOptions()),
		manifest: settings.ManifestOptions(),
		maxBytes: settings.Upload.MaxBytes,
		now:      time.Now,
	}
}

// Routes mounts the form and the upload endpoint.
func (h *Handler) Routes(r chi.Router) {
	r.Get(UploadPath, h.handleForm)
	r.Post(UploadPath, h.handleUpload)
}

var formTmpl = template.Must(template.New("upload").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>API document upload</title></head>
<body>
<h1>API document upload</h1>
<p>Upload a PDF or text API reference (max {{.MaxMB}} MiB). The extracted endpoints are returned as JSON.</p>
<form method="post" enctype="multipart/form-data">
<input type="file" name="file" accept=".pdf,.txt" required>
<button type="submit">Extract</button>
</form>
</body>
</html>
`))

func (h *Handler) handleForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct{ MaxMB int64 }{MaxMB: h.maxBytes >> 20}
	if err := formTmpl.Execute(w, data); err != nil {
		slog.Error("Failed to render upload form", "error", err)
	}
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonErr(w, "document exceeds size limit", http.StatusRequestEntityTooLarge)
			return
		}
		jsonErr(w, fmt.Sprintf("parse form: %v", err), http.StatusBadRequest)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(formFile)
	if err != nil {
		jsonErr(w, fmt.Sprintf("missing file field: %v", err), http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	name := filepath.Base(header.Filename)
	if !allowedExtension(name) {
		jsonErr(w, fmt.Sprintf("unsupported file type: %s (expected .pdf or .txt)", name), http.StatusUnsupportedMediaType)
		return
	}

	doc, err := ingest.Load(name, file, h.maxBytes)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrTooLarge):
			jsonErr(w, err.Error(), http.StatusRequestEntityTooLarge)
		case errors.Is(err, ingest.ErrUnsupported):
			jsonErr(w, err.Error(), http.StatusUnsupportedMediaType)
		default:
			jsonErr(w, err.Error(), http.StatusUnprocessableEntity)
		}
		return
	}

	resp, err := h.extract(doc)
	if err != nil {
		slog.Error("Upload extraction failed", "name", name, "error", err)
		jsonErr(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("Document uploaded",
		"name", name,
		"format", doc.Format,
		"endpoints", len(resp.Endpoints),
		"skipped", len(resp.Errors))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write upload response", "error", err)
	}
}

// extract parses the document and builds its manifest.
func (h *Handler) extract(doc *ingest.Document) (*UploadResponse, error) {
	result := h.parser.Parse(doc.Text)

	manifest := export.BuildManifest(result.Endpoints, h.manifest, h.now())
	if err := export.ValidateManifest(manifest); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	endpoints := result.Endpoints
	if endpoints == nil {
		endpoints = []domain.Endpoint{}
	}

	return &UploadResponse{
		Source:    doc.Name,
		Format:    string(doc.Format),
		Pages:     doc.Pages,
		Endpoints: endpoints,
		Quality:   result.Quality,
		Manifest:  manifest,
		Errors:    result.ErrorMessages(),
	}, nil
}

func allowedExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

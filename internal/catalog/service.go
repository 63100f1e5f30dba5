// Package catalog serves the endpoints of one API reference document to MCP
// clients. It parses the document in memory, keeps a Bleve index of the
// endpoints on disk and coordinates index rebuilds between server instances
// with a file lock.
package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/sha1n/mcp-apidoc-server/internal/apidoc"
	"github.com/sha1n/mcp-apidoc-server/internal/config"
	"github.com/sha1n/mcp-apidoc-server/internal/domain"
	"github.com/sha1n/mcp-apidoc-server/internal/ingest"
)

// LockFilename is the name of the index lock file
const LockFilename = "index.lock"

// ErrNotReady is returned by lookups before Initialize has loaded a document.
var ErrNotReady = errors.New("catalog is not ready")

var nonIDChars = regexp.MustCompile(`[^a-z0-9]+`)

// Service loads a document, indexes its endpoints and answers queries over them.
type Service struct {
	settings *config.Settings
	parser   *apidoc.Parser
	indexer  *Indexer
	state    *RunState
	lock     *FileLock
	now      func() time.Time

	doc    *ingest.Document
	result *apidoc.Result
	byID   map[string]int
	paths  []string
	index  bleve.Index
	ready  bool
	mu     sync.RWMutex
}

// NewService creates a catalog service.
func NewService(settings *config.Settings) (*Service, error) {
	if settings == nil {
		return nil, fmt.Errorf("settings cannot be nil")
	}
	if settings.Document.Source == "" {
		return nil, fmt.Errorf("document source is required")
	}

	indexesDir := filepath.Join(settings.Index.BaseDir, "indexes")
	if err := os.MkdirAll(indexesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create indexes directory: %w", err)
	}

	state, err := LoadRunState(filepath.Join(settings.Index.BaseDir, StateFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to load run state: %w", err)
	}

	return &Service{
		settings: settings,
		parser:   apidoc.NewParser(settings.ParserOptions()),
		indexer:  NewIndexer(settings.Index.BaseDir),
		state:    state,
		lock:     NewFileLock(filepath.Join(settings.Index.BaseDir, LockFilename)),
		now:      time.Now,
	}, nil
}

// DocumentID derives the index id of a source path from its file name.
func DocumentID(source string) string {
	id := nonIDChars.ReplaceAllString(strings.ToLower(filepath.Base(source)), "_")
	id = strings.Trim(id, "_")
	if id == "" {
		return "document"
	}
	return id
}

// optionsFingerprint identifies the extraction options an index was built with.
func optionsFingerprint(opts apidoc.Options) string {
	sum := sha256.Sum256([]byte(strings.Join(opts.Methods, ",") + "|" + opts.PathPrefix + "|" + strconv.FormatBool(opts.StrictBoundary)))
	return hex.EncodeToString(sum[:8])
}

// Initialize loads and parses the document, then rebuilds the index when this
// instance wins the lock and the stored run state is stale. Instances that
// lose the lock wait for the winner and reuse its index.
func (s *Service) Initialize(ctx context.Context) error {
	doc, err := ingest.LoadFile(s.settings.Document.Source, s.settings.Document.MaxBytes)
	if err != nil {
		return fmt.Errorf("failed to load document: %w", err)
	}
	result := s.parser.Parse(doc.Text)
	for _, perr := range result.Errors {
		slog.Warn("Endpoint skipped", "method", perr.Method, "path", perr.Path, "error", perr.Err)
	}
	slog.Info("Document parsed",
		"source", doc.Name,
		"endpoints", len(result.Endpoints),
		"skipped", len(result.Errors),
		"quality", result.Quality.QualityLabel)

	s.setDocument(doc, result)
	docID := DocumentID(doc.Name)

	acquired, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if acquired {
		slog.Info("Acquired index leader lock")
		if err := s.reloadState(); err != nil {
			slog.Warn("Failed to reload run state", "error", err)
		}
		if err := s.syncIndex(ctx, docID); err != nil {
			slog.Error("Indexing failed", "document", docID, "error", err)
			s.state.SetError(docID, err.Error())
		}
		if err := s.saveState(); err != nil {
			slog.Error("Failed to save run state", "error", err)
		}
		if err := s.lock.Unlock(); err != nil {
			slog.Error("Failed to unlock", "error", err)
		}
	} else {
		slog.Info("Another instance is indexing, waiting for completion")
		if err := s.lock.LockWithContext(ctx, s.settings.Index.LockTimeout); err != nil {
			slog.Warn("Timeout waiting for indexing, using existing index", "error", err)
		} else if err := s.lock.Unlock(); err != nil {
			slog.Error("Failed to unlock", "error", err)
		}
	}

	return s.openIndex(docID)
}

// syncIndex rebuilds the index of docID if the run state does not match the
// loaded document, and drops indexes of documents no longer served.
func (s *Service) syncIndex(ctx context.Context, docID string) error {
	for _, stale := range s.state.RemoveStale(docID) {
		slog.Info("Removing stale index", "document", stale)
		if err := s.indexer.DeleteIndex(stale); err != nil {
			slog.Error("Failed to delete stale index", "document", stale, "error", err)
		}
	}

	s.mu.RLock()
	doc, result := s.doc, s.result
	s.mu.RUnlock()

	options := optionsFingerprint(s.settings.ParserOptions())
	if !s.state.NeedsReindex(docID, doc.Checksum, options) && s.indexer.IndexExists(docID) {
		slog.Info("Index already up to date", "document", docID)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	slog.Info("Indexing document", "document", docID)
	count, err := s.indexer.Rebuild(docID, result.Endpoints)
	if err != nil {
		return err
	}

	s.state.Set(docID, DocumentState{
		Source:       doc.Name,
		Checksum:     doc.Checksum,
		Options:      options,
		IndexedAt:    s.now().UTC(),
		Endpoints:    count,
		Skipped:      len(result.Errors),
		QualityLabel: result.Quality.QualityLabel,
	})
	slog.Info("Index complete", "document", docID, "endpoints", count)
	return nil
}

func (s *Service) setDocument(doc *ingest.Document, result *apidoc.Result) {
	byID := make(map[string]int, len(result.Endpoints))
	var paths []string
	seen := make(map[string]bool)
	for i, e := range result.Endpoints {
		byID[e.OperationID] = i
		if !seen[e.Path] {
			seen[e.Path] = true
			paths = append(paths, e.Path)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc
	s.result = result
	s.byID = byID
	s.paths = paths
}

// openIndex opens the document index read-only and marks the service ready.
// Lookups work without an index; only Search needs it.
func (s *Service) openIndex(docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ready = true
	if !s.indexer.IndexExists(docID) {
		slog.Warn("No index available, search disabled", "document", docID)
		return nil
	}

	index, err := s.indexer.OpenForRead(docID)
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	s.index = index
	slog.Info("Index ready", "document", docID)
	return nil
}

// reloadState rereads the run state so a leader sees the work of the
// previous lock holder.
func (s *Service) reloadState() error {
	state, err := LoadRunState(filepath.Join(s.settings.Index.BaseDir, StateFilename))
	if err != nil {
		return err
	}
	s.state = state
	return nil
}

func (s *Service) saveState() error {
	return s.state.Save(filepath.Join(s.settings.Index.BaseDir, StateFilename))
}

// IsReady returns true once a document has been loaded.
func (s *Service) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// SearchReady returns true if the endpoint index is open.
func (s *Service) SearchReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready && s.index != nil
}

// Settings returns the service settings.
func (s *Service) Settings() *config.Settings {
	return s.settings
}

// Document returns the loaded document.
func (s *Service) Document() (*ingest.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.doc == nil {
		return nil, ErrNotReady
	}
	return s.doc, nil
}

// Endpoints returns every endpoint in source order.
func (s *Service) Endpoints() ([]domain.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil, ErrNotReady
	}
	return s.result.Endpoints, nil
}

// Endpoint returns the endpoint with the given operation id.
func (s *Service) Endpoint(operationID string) (domain.Endpoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[operationID]
	if !ok {
		return domain.Endpoint{}, false
	}
	return s.result.Endpoints[i], true
}

// FindEndpoint returns the endpoint documented for method and path.
func (s *Service) FindEndpoint(method, path string) (domain.Endpoint, bool) {
	return s.Endpoint(apidoc.OperationID(strings.ToUpper(method), path))
}

// ListEndpoints returns the endpoints of a category, or all endpoints when
// category is empty, in source order.
func (s *Service) ListEndpoints(category string) ([]domain.Endpoint, error) {
	all, err := s.Endpoints()
	if err != nil {
		return nil, err
	}
	if category == "" {
		return all, nil
	}
	var out []domain.Endpoint
	for _, e := range all {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out, nil
}

// Paths returns the distinct documented paths in order of first appearance.
func (s *Service) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.paths
}

// EndpointsAtPath returns the endpoints documented for a path.
func (s *Service) EndpointsAtPath(path string) []domain.Endpoint {
	all, err := s.Endpoints()
	if err != nil {
		return nil
	}
	var out []domain.Endpoint
	for _, e := range all {
		if e.Path == path {
			out = append(out, e)
		}
	}
	return out
}

// Quality returns the quality report of the loaded document.
func (s *Service) Quality() (domain.QualityReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return domain.QualityReport{}, ErrNotReady
	}
	return s.result.Quality, nil
}

// SkippedEndpoints returns the messages of endpoints that could not be extracted.
func (s *Service) SkippedEndpoints() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.result == nil {
		return nil
	}
	return s.result.ErrorMessages()
}

// Close releases the index.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index != nil {
		if err := s.index.Close(); err != nil {
			return fmt.Errorf("failed to close index: %w", err)
		}
		s.index = nil
	}

	s.ready = false
	return nil
}

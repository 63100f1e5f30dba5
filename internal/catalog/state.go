package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

const (
	// StateVersion is the current schema version of the run-state file
	StateVersion = 1

	// StateFilename is the run-state file name inside the index directory
	StateFilename = "state.json"
)

// RunState records, per indexed document, what the index was built from.
type RunState struct {
	Version   int                      `json:"version"`
	Documents map[string]DocumentState `json:"documents"`
	mu        sync.RWMutex
}

// DocumentState is the indexing record of one source document.
type DocumentState struct {
	Source       string    `json:"source"`
	Checksum     string    `json:"checksum"`
	Options      string    `json:"options"`
	IndexedAt    time.Time `json:"indexed_at"`
	Endpoints    int       `json:"endpoints"`
	Skipped      int       `json:"skipped"`
	QualityLabel string    `json:"quality_label"`
	Error        string    `json:"error,omitempty"`
}

// NewRunState creates an empty run state.
func NewRunState() *RunState {
	return &RunState{
		Version:   StateVersion,
		Documents: make(map[string]DocumentState),
	}
}

// LoadRunState reads the run state from path. A missing file yields an empty state.
func LoadRunState(path string) (*RunState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewRunState(), nil
		}
		return nil, fmt.Errorf("failed to read run state: %w", err)
	}

	var state RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse run state: %w", err)
	}
	if state.Documents == nil {
		state.Documents = make(map[string]DocumentState)
	}
	return &state, nil
}

// Save writes the run state to path through a temp file and rename.
func (s *RunState) Save(path string) error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create run state directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write run state temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename run state file: %w", err)
	}
	return nil
}

// Get returns the record of a document.
func (s *RunState) Get(docID string) (DocumentState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.Documents[docID]
	return d, ok
}

// Set replaces the record of a document.
func (s *RunState) Set(docID string, d DocumentState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Documents[docID] = d
}

// SetError records a failed indexing attempt, keeping the rest of the record.
func (s *RunState) SetError(docID, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.Documents[docID]
	d.Error = msg
	s.Documents[docID] = d
}

// NeedsReindex reports whether the index of docID is missing or was built
// from different content or extraction options.
func (s *RunState) NeedsReindex(docID, checksum, options string) bool {
	d, ok := s.Get(docID)
	if !ok || d.IndexedAt.IsZero() || d.Error != "" {
		return true
	}
	return d.Checksum != checksum || d.Options != options
}

// RemoveStale drops every document not in keep and returns the removed ids, sorted.
func (s *RunState) RemoveStale(keep ...string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for id := range s.Documents {
		if !slices.Contains(keep, id) {
			removed = append(removed, id)
		}
	}
	slices.Sort(removed)
	for _, id := range removed {
		delete(s.Documents, id)
	}
	return removed
}

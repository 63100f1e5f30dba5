package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"
)

const (
	// IndexSuffix is the suffix for index directories
	IndexSuffix = ".bleve"

	// MaxBatchSize is the maximum number of documents per batch
	MaxBatchSize = 100
)

// Indexer manages one Bleve index per source document.
type Indexer struct {
	baseDir string
}

// NewIndexer creates an indexer rooted at baseDir.
func NewIndexer(baseDir string) *Indexer {
	return &Indexer{baseDir: baseDir}
}

// indexPath returns the path of the index for a document id.
func (i *Indexer) indexPath(docID string) string {
	return filepath.Join(i.baseDir, "indexes", docID+IndexSuffix)
}

// CreateIndexMapping creates the Bleve index mapping for endpoint documents.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Free text - analyzed, summary and description stored for highlighting
	for _, name := range []string{domain.EndpointFieldSummary, domain.EndpointFieldDescription} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = standard.Name
		f.Store = true
		f.IncludeTermVectors = true
		docMapping.AddFieldMappingsAt(name, f)
	}

	// Fields - analyzed, not stored
	fieldsField := bleve.NewTextFieldMapping()
	fieldsField.Analyzer = standard.Name
	fieldsField.Store = false
	docMapping.AddFieldMappingsAt(domain.EndpointFieldFields, fieldsField)

	// Path - analyzed so that segments match words, stored for retrieval
	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = standard.Name
	pathField.Store = true
	docMapping.AddFieldMappingsAt(domain.EndpointFieldPath, pathField)

	// Method and category - keyword filters, stored
	for _, name := range []string{domain.EndpointFieldMethod, domain.EndpointFieldCategory} {
		f := bleve.NewTextFieldMapping()
		f.Analyzer = keyword.Name
		f.Store = true
		docMapping.AddFieldMappingsAt(name, f)
	}

	// ID - stored but not indexed (we use the document ID)
	idField := bleve.NewTextFieldMapping()
	idField.Index = false
	idField.Store = true
	docMapping.AddFieldMappingsAt(domain.EndpointFieldID, idField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// OpenForRead opens an existing index read-only. Any number of readers may
// hold the same index open, across processes.
func (i *Indexer) OpenForRead(docID string) (bleve.Index, error) {
	index, err := bleve.OpenUsing(i.indexPath(docID), map[string]interface{}{"read_only": true})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return index, nil
}

// IndexExists checks if an index exists for the given document id.
func (i *Indexer) IndexExists(docID string) bool {
	_, err := os.Stat(i.indexPath(docID))
	return err == nil
}

// Rebuild replaces the index of a document with the given endpoints and
// returns the number of indexed documents. The previous index is removed
// first since a parse always yields the complete endpoint set.
func (i *Indexer) Rebuild(docID string, endpoints []domain.Endpoint) (count int, err error) {
	if err := i.DeleteIndex(docID); err != nil {
		return 0, fmt.Errorf("failed to remove previous index: %w", err)
	}

	index, err := bleve.New(i.indexPath(docID), CreateIndexMapping())
	if err != nil {
		return 0, fmt.Errorf("failed to create index: %w", err)
	}
	defer func() {
		if cerr := index.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	batch := index.NewBatch()
	for _, e := range endpoints {
		doc := domain.NewEndpointDocument(e)
		if err := batch.Index(doc.ID, doc); err != nil {
			return count, fmt.Errorf("failed to index %s: %w", doc.ID, err)
		}
		if batch.Size() >= MaxBatchSize {
			if err := index.Batch(batch); err != nil {
				return count, fmt.Errorf("batch index failed: %w", err)
			}
			count += batch.Size()
			batch.Reset()
		}
	}

	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return count, fmt.Errorf("final batch index failed: %w", err)
		}
		count += batch.Size()
	}

	return count, nil
}

// DeleteIndex removes an index from disk.
func (i *Indexer) DeleteIndex(docID string) error {
	return os.RemoveAll(i.indexPath(docID))
}

// GetDocumentCount returns the number of documents in an index.
func (i *Indexer) GetDocumentCount(docID string) (count uint64, err error) {
	index, err := i.OpenForRead(docID)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := index.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return index.DocCount()
}

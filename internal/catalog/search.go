package catalog

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"
)

// SearchQuery describes an endpoint search.
type SearchQuery struct {
	Text     string
	Category string
	Method   string
	Size     int
}

// Hit is one ranked search result.
type Hit struct {
	OperationID string
	Method      string
	Path        string
	Summary     string
	Category    string
	Score       float64
	Fragments   []string
}

// SearchResult is a page of hits and the total number of matches.
type SearchResult struct {
	Total uint64
	Hits  []Hit
}

// Search runs a full-text query over the endpoint index.
func (s *Service) Search(q SearchQuery) (*SearchResult, error) {
	s.mu.RLock()
	index := s.index
	s.mu.RUnlock()
	if index == nil {
		return nil, ErrNotReady
	}

	size := q.Size
	if size <= 0 {
		size = s.settings.Index.MaxResults
	}

	req := bleve.NewSearchRequest(buildQuery(q))
	req.Size = size
	req.Fields = []string{
		domain.EndpointFieldMethod,
		domain.EndpointFieldPath,
		domain.EndpointFieldSummary,
		domain.EndpointFieldCategory,
	}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField(domain.EndpointFieldDescription)

	res, err := index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	out := &SearchResult{Total: res.Total, Hits: make([]Hit, 0, len(res.Hits))}
	for _, h := range res.Hits {
		out.Hits = append(out.Hits, Hit{
			OperationID: h.ID,
			Method:      stringField(h.Fields, domain.EndpointFieldMethod),
			Path:        stringField(h.Fields, domain.EndpointFieldPath),
			Summary:     stringField(h.Fields, domain.EndpointFieldSummary),
			Category:    stringField(h.Fields, domain.EndpointFieldCategory),
			Score:       h.Score,
			Fragments:   h.Fragments[domain.EndpointFieldDescription],
		})
	}
	return out, nil
}

// buildQuery matches the text against summary, path, description and field
// names, boosted in that order, and filters by category and method.
func buildQuery(q SearchQuery) query.Query {
	summary := bleve.NewMatchQuery(q.Text)
	summary.SetField(domain.EndpointFieldSummary)
	summary.SetBoost(3.0)

	path := bleve.NewMatchQuery(q.Text)
	path.SetField(domain.EndpointFieldPath)
	path.SetBoost(2.0)

	description := bleve.NewMatchQuery(q.Text)
	description.SetField(domain.EndpointFieldDescription)

	fields := bleve.NewMatchQuery(q.Text)
	fields.SetField(domain.EndpointFieldFields)
	fields.SetBoost(0.5)

	text := bleve.NewDisjunctionQuery(summary, path, description, fields)

	if q.Category == "" && q.Method == "" {
		return text
	}

	must := []query.Query{text}
	if q.Category != "" {
		category := bleve.NewTermQuery(q.Category)
		category.SetField(domain.EndpointFieldCategory)
		must = append(must, category)
	}
	if q.Method != "" {
		method := bleve.NewTermQuery(strings.ToUpper(q.Method))
		method.SetField(domain.EndpointFieldMethod)
		must = append(must, method)
	}
	return bleve.NewConjunctionQuery(must...)
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

package export

import (
	"net/url"
	"slices"
	"time"

	"github.com/sha1n/mcp-apidoc-server/internal/domain"
)

const (
	// ManifestVersion is the current manifest schema version.
	ManifestVersion = "1"

	// DefaultToolPrefix prefixes every generated tool name.
	DefaultToolPrefix = "apidoc"

	// DefaultURIScheme is the scheme of generated resource URIs.
	DefaultURIScheme = "apidoc"

	resourceMimeType = "application/json"
)

// Property is one input property of a tool.
type Property struct {
	Type        string `json:"type" yaml:"type"`
	Description string `json:"description" yaml:"description"`
}

// InputSchema is the JSON Schema of a tool's arguments.
type InputSchema struct {
	Type       string              `json:"type" yaml:"type"`
	Properties map[string]Property `json:"properties" yaml:"properties"`
	Required   []string            `json:"required" yaml:"required"`
}

// ToolMetadata links a tool back to its endpoint.
type ToolMetadata struct {
	Category     string  `json:"category" yaml:"category"`
	Method       string  `json:"method" yaml:"method"`
	Path         string  `json:"path" yaml:"path"`
	QualityScore float64 `json:"quality_score" yaml:"quality_score"`
	Priority     string  `json:"priority" yaml:"priority"`
}

// Tool describes one endpoint as a callable tool.
type Tool struct {
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
	InputSchema InputSchema  `json:"inputSchema" yaml:"inputSchema"`
	Metadata    ToolMetadata `json:"metadata" yaml:"metadata"`
}

// ResourceMetadata is the category classification of a resource.
type ResourceMetadata struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Priority    string `json:"priority" yaml:"priority"`
	Confidence  string `json:"confidence" yaml:"confidence"`
	MatchedBy   string `json:"matched_by" yaml:"matched_by"`
}

// Resource describes one endpoint as a readable resource.
type Resource struct {
	URI         string           `json:"uri" yaml:"uri"`
	Name        string           `json:"name" yaml:"name"`
	Description string           `json:"description" yaml:"description"`
	MimeType    string           `json:"mimeType" yaml:"mimeType"`
	Metadata    ResourceMetadata `json:"metadata" yaml:"metadata"`
}

// ManifestInfo summarizes a manifest.
type ManifestInfo struct {
	Version        string    `json:"version" yaml:"version"`
	TotalTools     int       `json:"total_tools" yaml:"total_tools"`
	TotalResources int       `json:"total_resources" yaml:"total_resources"`
	Categories     []string  `json:"categories" yaml:"categories"`
	GeneratedAt    time.Time `json:"generated_at" yaml:"generated_at"`
}

// Manifest is the tool/resource descriptor set of a document.
type Manifest struct {
	Tools     []Tool       `json:"tools" yaml:"tools"`
	Resources []Resource   `json:"resources" yaml:"resources"`
	Metadata  ManifestInfo `json:"metadata" yaml:"metadata"`
}

// ManifestOptions controls generated names.
type ManifestOptions struct {
	ToolPrefix string
	URIScheme  string
}

// resourceHost is the authority of every resource URI.
const resourceHost = "api"

// ResourceURI returns the resource URI of an endpoint path. Path characters
// outside the URI path grammar are percent-encoded.
func ResourceURI(scheme, path string) string {
	if scheme == "" {
		scheme = DefaultURIScheme
	}
	return (&url.URL{Scheme: scheme, Host: resourceHost, Path: path}).String()
}

// ResourcePath returns the endpoint path of a resource URI of the given scheme.
func ResourcePath(scheme, uri string) (string, bool) {
	if scheme == "" {
		scheme = DefaultURIScheme
	}
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != scheme || u.Host != resourceHost || u.Path == "" {
		return "", false
	}
	return u.Path, true
}

// BuildManifest pairs every endpoint with a tool and a resource.
// Headers come before parameters in the input schema; a later duplicate
// name overwrites the earlier property.
func BuildManifest(endpoints []domain.Endpoint, opts ManifestOptions, now time.Time) *Manifest {
	prefix := opts.ToolPrefix
	if prefix == "" {
		prefix = DefaultToolPrefix
	}

	m := &Manifest{
		Tools:     make([]Tool, 0, len(endpoints)),
		Resources: make([]Resource, 0, len(endpoints)),
	}
	categories := make([]string, 0)

	for _, e := range endpoints {
		schema := InputSchema{
			Type:       "object",
			Properties: make(map[string]Property),
			Required:   []string{},
		}
		fields := make([]domain.Field, 0, len(e.Headers)+len(e.Parameters))
		for _, h := range e.Headers {
			fields = append(fields, h.Field)
		}
		for _, p := range e.Parameters {
			fields = append(fields, p.Field)
		}
		for _, f := range fields {
			schema.Properties[f.Name] = Property{Type: f.DataType, Description: f.Description}
			if f.Required && !slices.Contains(schema.Required, f.Name) {
				schema.Required = append(schema.Required, f.Name)
			}
		}

		m.Tools = append(m.Tools, Tool{
			Name:        prefix + "_" + e.OperationID,
			Description: e.Description,
			InputSchema: schema,
			Metadata: ToolMetadata{
				Category:     e.Category,
				Method:       e.Method,
				Path:         e.Path,
				QualityScore: e.QualityScore,
				Priority:     e.CategoryInfo.Priority,
			},
		})
		m.Resources = append(m.Resources, Resource{
			URI:         ResourceURI(opts.URIScheme, e.Path),
			Name:        e.Summary,
			Description: e.Description,
			MimeType:    resourceMimeType,
			Metadata:    ResourceMetadata(e.CategoryInfo),
		})

		if !slices.Contains(categories, e.Category) {
			categories = append(categories, e.Category)
		}
	}
	slices.Sort(categories)

	m.Metadata = ManifestInfo{
		Version:        ManifestVersion,
		TotalTools:     len(m.Tools),
		TotalResources: len(m.Resources),
		Categories:     categories,
		GeneratedAt:    now.UTC(),
	}
	return m
}

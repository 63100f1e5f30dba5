package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/mcp-apidoc-server/internal/export"
)

const resourceMIMEType = "application/json"

// ResourceHandler serves one MCP resource per documented path.
type ResourceHandler struct {
	service *Service
	scheme  string
}

// NewResourceHandler creates a resource handler for the service's URI scheme.
func NewResourceHandler(service *Service) *ResourceHandler {
	scheme := service.Settings().Output.URIScheme
	if scheme == "" {
		scheme = export.DefaultURIScheme
	}
	return &ResourceHandler{service: service, scheme: scheme}
}

// URI returns the resource URI of a path.
func (h *ResourceHandler) URI(path string) string {
	return export.ResourceURI(h.scheme, path)
}

// PathOf returns the documented path a resource URI refers to.
func (h *ResourceHandler) PathOf(uri string) (string, bool) {
	return export.ResourcePath(h.scheme, uri)
}

// Resources returns the resource definitions in path order. Paths whose URI
// does not parse are skipped.
func (h *ResourceHandler) Resources() []*mcp.Resource {
	paths := h.service.Paths()
	resources := make([]*mcp.Resource, 0, len(paths))
	for _, path := range paths {
		uri := h.URI(path)
		if _, err := url.Parse(uri); err != nil {
			slog.Warn("Skipping resource with invalid URI", "path", path, "error", err)
			continue
		}
		endpoints := h.service.EndpointsAtPath(path)
		methods := make([]string, 0, len(endpoints))
		summaries := make([]string, 0, len(endpoints))
		for _, e := range endpoints {
			methods = append(methods, e.Method)
			summaries = append(summaries, e.Summary)
		}
		resources = append(resources, &mcp.Resource{
			URI:         uri,
			Name:        path,
			Title:       strings.Join(summaries, "; "),
			Description: fmt.Sprintf("%s %s", strings.Join(methods, ", "), path),
			MIMEType:    resourceMIMEType,
		})
	}
	return resources
}

// Handle returns the endpoints documented at the requested path as a JSON array.
func (h *ResourceHandler) Handle(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	path, ok := h.PathOf(uri)
	if !ok {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	endpoints := h.service.EndpointsAtPath(path)
	if len(endpoints) == 0 {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	data, err := json.MarshalIndent(endpoints, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode endpoints: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: resourceMIMEType, Text: string(data)},
		},
	}, nil
}

// RegisterResources registers one resource per documented path.
func RegisterResources(server *mcp.Server, service *Service) {
	handler := NewResourceHandler(service)
	resources := handler.Resources()
	for _, r := range resources {
		server.AddResource(r, handler.Handle)
	}
	slog.Info("Registered endpoint resources", "count", len(resources))
}

// RegisterTools registers every catalog tool and resource with an MCP server.
func RegisterTools(server *mcp.Server, service *Service) {
	RegisterSearchTool(server, service)
	RegisterEndpointTools(server, service)
	RegisterResources(server, service)
}

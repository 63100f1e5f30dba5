package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/mcp-apidoc-server/internal/apidoc"
)

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query    string `json:"query" jsonschema_description:"Search query matched against endpoint titles, paths, descriptions and field names"`
	Category string `json:"category,omitempty" jsonschema_description:"Filter by category name (e.g., vehicles, drivers)"`
	Method   string `json:"method,omitempty" jsonschema_description:"Filter by HTTP method (e.g., GET, POST)"`
}

// SearchHandler handles the search_endpoints MCP tool.
type SearchHandler struct {
	service *Service
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(service *Service) *SearchHandler {
	return &SearchHandler{service: service}
}

// Handle executes the search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.SearchReady() {
		return errorResult("Search is not available. The API document is still being indexed. Please try again later."), nil, nil
	}

	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	method := strings.ToUpper(strings.TrimSpace(args.Method))
	if method != "" && !slices.Contains(apidoc.DefaultMethods, method) && method != "PATCH" {
		return errorResult(fmt.Sprintf("Unsupported method: %s", args.Method)), nil, nil
	}

	results, err := h.service.Search(SearchQuery{
		Text:     args.Query,
		Category: strings.TrimSpace(args.Category),
		Method:   method,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	return textResult(formatSearchResults(results, args.Query)), nil, nil
}

// formatSearchResults renders hits as a markdown list.
func formatSearchResults(results *SearchResult, queryStr string) string {
	if results.Total == 0 {
		return fmt.Sprintf("No endpoints found for query: %s", queryStr)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d endpoints for '%s':\n\n", results.Total, queryStr)

	for i, hit := range results.Hits {
		fmt.Fprintf(&sb, "### %d. %s %s\n", i+1, hit.Method, hit.Path)
		fmt.Fprintf(&sb, "**Summary**: %s\n", hit.Summary)
		fmt.Fprintf(&sb, "**Category**: %s\n", hit.Category)
		fmt.Fprintf(&sb, "**Operation**: %s\n", hit.OperationID)
		fmt.Fprintf(&sb, "**Score**: %.4f\n", hit.Score)
		for _, fragment := range hit.Fragments {
			fmt.Fprintf(&sb, "> %s\n", fragment)
		}
		sb.WriteString("\n")
	}

	if results.Total > uint64(len(results.Hits)) {
		fmt.Fprintf(&sb, "... and %d more results\n", results.Total-uint64(len(results.Hits)))
	}

	return sb.String()
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_endpoints",
		Description: "Search the documented API endpoints using full-text search, optionally filtered by category and HTTP method",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, service *Service) {
	handler := NewSearchHandler(service)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

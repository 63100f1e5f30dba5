package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// GetEndpointArgument identifies one endpoint, by operation id or by method and path.
type GetEndpointArgument struct {
	OperationID string `json:"operation_id,omitempty" jsonschema_description:"Operation id (e.g., get__api_v1_vehicles)"`
	Method      string `json:"method,omitempty" jsonschema_description:"HTTP method, used together with path"`
	Path        string `json:"path,omitempty" jsonschema_description:"Endpoint path (e.g., /api/v1/vehicles/{vehicleId})"`
}

// ListEndpointsArgument defines list parameters.
type ListEndpointsArgument struct {
	Category string `json:"category,omitempty" jsonschema_description:"Only list endpoints of this category"`
}

// QualityReportArgument takes no parameters.
type QualityReportArgument struct{}

// EndpointHandler serves the endpoint lookup tools.
type EndpointHandler struct {
	service *Service
}

// NewEndpointHandler creates a new endpoint handler.
func NewEndpointHandler(service *Service) *EndpointHandler {
	return &EndpointHandler{service: service}
}

// notReady is the result of every lookup before the document is loaded.
func notReady() *mcp.CallToolResult {
	return errorResult("The API document is not loaded yet. Please try again later.")
}

// HandleGet returns the full record of one endpoint as JSON.
func (h *EndpointHandler) HandleGet(ctx context.Context, req *mcp.CallToolRequest, args GetEndpointArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.IsReady() {
		return notReady(), nil, nil
	}

	id := strings.TrimSpace(args.OperationID)
	method := strings.TrimSpace(args.Method)
	path := strings.TrimSpace(args.Path)

	switch {
	case id != "":
		if e, ok := h.service.Endpoint(id); ok {
			return jsonResult(e)
		}
		return errorResult(fmt.Sprintf("Endpoint not found: %s", id)), nil, nil
	case method != "" && path != "":
		if e, ok := h.service.FindEndpoint(method, path); ok {
			return jsonResult(e)
		}
		return errorResult(fmt.Sprintf("Endpoint not found: %s %s", strings.ToUpper(method), path)), nil, nil
	default:
		return errorResult("Either operation_id or both method and path are required"), nil, nil
	}
}

// HandleList returns a compact listing of endpoints in source order.
func (h *EndpointHandler) HandleList(ctx context.Context, req *mcp.CallToolRequest, args ListEndpointsArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.IsReady() {
		return notReady(), nil, nil
	}

	category := strings.TrimSpace(args.Category)
	endpoints, err := h.service.ListEndpoints(category)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to list endpoints: %s", err)), nil, nil
	}
	if len(endpoints) == 0 {
		if category != "" {
			return textResult(fmt.Sprintf("No endpoints in category: %s", category)), nil, nil
		}
		return textResult("No endpoints were found in the document"), nil, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d endpoints:\n\n", len(endpoints))
	for _, e := range endpoints {
		fmt.Fprintf(&sb, "- `%s %s` %s [%s] (%s)\n", e.Method, e.Path, e.Summary, e.Category, e.OperationID)
	}
	return textResult(sb.String()), nil, nil
}

// HandleQuality returns the quality report as JSON.
func (h *EndpointHandler) HandleQuality(ctx context.Context, req *mcp.CallToolRequest, args QualityReportArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.IsReady() {
		return notReady(), nil, nil
	}

	report, err := h.service.Quality()
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to compute quality report: %s", err)), nil, nil
	}
	return jsonResult(report)
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to encode result: %s", err)), nil, nil
	}
	return textResult(string(data)), nil, nil
}

// RegisterEndpointTools registers get_endpoint, list_endpoints and quality_report.
func RegisterEndpointTools(server *mcp.Server, service *Service) {
	handler := NewEndpointHandler(service)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_endpoint",
		Description: "Get the full extracted record of an API endpoint (headers, parameters, request body, response examples) by operation id or by method and path",
	}, handler.HandleGet)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_endpoints",
		Description: "List the documented API endpoints in document order, optionally restricted to one category",
	}, handler.HandleList)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "quality_report",
		Description: "Get the extraction quality report of the API document: coverage, readiness score and label",
	}, handler.HandleQuality)
}

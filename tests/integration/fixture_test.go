package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/mcp-apidoc-server/internal/apidoc"
	"github.com/sha1n/mcp-apidoc-server/internal/catalog"
	"github.com/sha1n/mcp-apidoc-server/internal/config"
	"github.com/sha1n/mcp-apidoc-server/internal/export"
)

// fleetDoc is a small reference document with four endpoints over three paths.
const fleetDoc = `Fleethand API Reference
=== Page 1 ===
Authentication
All requests require an apiKey header. Use Bearer token for partner integrations.

Vehicles
Get vehicles list
Method
URL
GET
/api/v1/vehicles
Returns all vehicles for a company.
Request headers
Key
Data type
Required
Description
apiKey
String
Yes
The partner API key.
Request parameters
Parameter
Data type
Required
Description
limit
Integer
No
Maximum number of items.
Response example
Status
200
Response
{"status":"OK","payload":[{"id":1,"vin":"WVW123"}]}

=== Page 2 ===
Get vehicle
Method
URL
GET
/api/v1/vehicles/{vehicleId}
Returns one vehicle with its attached devices.
Response example
{"status":"OK","payload":{"id":1}}

Drivers
Create driver
Method
URL
POST
/api/v1/drivers
This method creates a new driver in the company.
Request body
{"name": "John", "cardNumber": "123"}
Response example
Status
201
Response
{"status": "OK"}

Delete driver
Method
URL
DELETE
/api/v1/drivers
Removes a driver card from the company.
Response example
{"status": "OK"}
`

// newSettings returns valid settings for source with all state under dir.
func newSettings(dir, source string) *config.Settings {
	return &config.Settings{
		Transport: "stdio",
		Auth:      config.AuthSettings{Type: config.AuthTypeNone},
		Document:  config.DocumentSettings{Source: source, MaxBytes: 10 << 20},
		Extract:   config.ExtractSettings{Methods: apidoc.DefaultMethods},
		Quality:   apidoc.DefaultThresholds(),
		Index: config.IndexSettings{
			BaseDir:     filepath.Join(dir, "index"),
			MaxResults:  20,
			LockTimeout: 30 * time.Second,
		},
		Output: config.OutputSettings{
			Dir:            filepath.Join(dir, "out"),
			Formats:        []string{export.FormatJSON},
			ToolPrefix:     export.DefaultToolPrefix,
			URIScheme:      export.DefaultURIScheme,
			KnowledgeBases: true,
		},
		Upload: config.UploadSettings{Enabled: true, MaxBytes: 10 << 20},
	}
}

// writeDocument writes text to dir/name and returns the path.
func writeDocument(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}
	return path
}

// setupTestService creates and initializes a catalog service over fleetDoc.
func setupTestService(t *testing.T, dir string) *catalog.Service {
	t.Helper()
	settings := newSettings(dir, writeDocument(t, dir, "fleethand.txt", fleetDoc))

	svc, err := catalog.NewService(settings)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if err := svc.Initialize(context.Background()); err != nil {
		_ = svc.Close()
		t.Fatalf("Initialize failed: %v", err)
	}
	return svc
}

// closeService closes the service and reports any errors
func closeService(t *testing.T, svc *catalog.Service) {
	t.Helper()
	if err := svc.Close(); err != nil {
		t.Errorf("Failed to close service: %v", err)
	}
}

// extractTextContent extracts text from an MCP result
func extractTextContent(result *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

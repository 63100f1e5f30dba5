package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/mcp-apidoc-server/internal/apidoc"
	"github.com/sha1n/mcp-apidoc-server/internal/config"
)

// sampleDoc is the text rendering of a three-endpoint reference document.
const sampleDoc = `Fleethand API
=== Page 1 ===
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
{"status":"OK","payload":123}

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

Update driver
Method
URL
PUT
/api/v1/drivers
Updates the card number of an existing driver.
Response example
{"status": "OK"}
`

// testSettings returns valid settings serving source with an index under dir.
func testSettings(dir, source string) *config.Settings {
	return &config.Settings{
		Transport: "stdio",
		Document:  config.DocumentSettings{Source: source, MaxBytes: 1 << 20},
		Extract:   config.ExtractSettings{Methods: apidoc.DefaultMethods},
		Quality:   apidoc.DefaultThresholds(),
		Index: config.IndexSettings{
			BaseDir:     filepath.Join(dir, "index"),
			MaxResults:  20,
			LockTimeout: 5 * time.Second,
		},
		Output: config.OutputSettings{ToolPrefix: "apidoc", URIScheme: "apidoc"},
	}
}

// writeDoc writes a document into dir and returns its path.
func writeDoc(t *testing.T, dir, name, text string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}
	return path
}

// setupService creates and initializes a service over sampleDoc.
func setupService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	svc, err := NewService(testSettings(dir, writeDoc(t, dir, "api.txt", sampleDoc)))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(func() { closeService(t, svc) })
	return svc
}

// closeService closes the service and reports any errors
func closeService(t *testing.T, svc *Service) {
	t.Helper()
	if err := svc.Close(); err != nil {
		t.Errorf("Failed to close service: %v", err)
	}
}

// resultText extracts text from an MCP result
func resultText(result *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

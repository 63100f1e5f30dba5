package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sha1n/mcp-apidoc-server/internal/apidoc"
	"github.com/sha1n/mcp-apidoc-server/internal/config"
	"github.com/sha1n/mcp-apidoc-server/internal/export"
)

const sampleDoc = `Fleethand API
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
{"status": "OK"}
`

// testSettings returns valid settings serving source with state under dir.
func testSettings(dir, source string) *config.Settings {
	return &config.Settings{
		Transport: "stdio",
		Auth:      config.AuthSettings{Type: config.AuthTypeNone},
		Document:  config.DocumentSettings{Source: source, MaxBytes: 1 << 20},
		Extract:   config.ExtractSettings{Methods: apidoc.DefaultMethods},
		Quality:   apidoc.DefaultThresholds(),
		Index: config.IndexSettings{
			BaseDir:     filepath.Join(dir, "index"),
			MaxResults:  20,
			LockTimeout: 5 * time.Second,
		},
		Output: config.OutputSettings{
			Dir:            filepath.Join(dir, "out"),
			Formats:        []string{export.FormatJSON},
			ToolPrefix:     "apidoc",
			URIScheme:      "apidoc",
			KnowledgeBases: true,
		},
		Upload: config.UploadSettings{Enabled: true, MaxBytes: 1 << 20},
	}
}

// writeDoc writes sampleDoc to dir and returns its path.
func writeDoc(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "fleethand.txt")
	if err := os.WriteFile(path, []byte(sampleDoc), 0644); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}
	return path
}

package mcp

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/mcp-apidoc-server/internal/apidoc"
	"github.com/sha1n/mcp-apidoc-server/internal/catalog"
	"github.com/sha1n/mcp-apidoc-server/internal/config"
)

const testDoc = `Vehicles
Get vehicles list
Method
URL
GET
/api/v1/vehicles
Returns all vehicles for a company.
Response example
{"status":"OK"}
`

// newCatalog creates an initialized catalog service over testDoc.
func newCatalog(t *testing.T) *catalog.Service {
	t.Helper()
	dir := t.TempDir()
	source := filepath.Join(dir, "api.txt")
	if err := os.WriteFile(source, []byte(testDoc), 0644); err != nil {
		t.Fatalf("Failed to write document: %v", err)
	}

	svc, err := catalog.NewService(&config.Settings{
		Document: config.DocumentSettings{Source: source, MaxBytes: 1 << 20},
		Extract:  config.ExtractSettings{Methods: apidoc.DefaultMethods},
		Quality:  apidoc.DefaultThresholds(),
		Index: config.IndexSettings{
			BaseDir:     filepath.Join(dir, "index"),
			MaxResults:  20,
			LockTimeout: 5 * time.Second,
		},
		Output: config.OutputSettings{URIScheme: "apidoc"},
	})
	if err != nil {
		t.Fatalf("Failed to create catalog service: %v", err)
	}
	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Errorf("Failed to close service: %v", err)
		}
	})
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Failed to initialize catalog service: %v", err)
	}
	return svc
}

// connect runs the server over an in-memory transport and returns a client session.
func connect(t *testing.T, server *mcp.Server) *mcp.ClientSession {
	t.Helper()
	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = server.Run(ctx, serverT) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.1.0"}, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestCreateServer(t *testing.T) {
	cfg := ServerConfig{
		Name:    "test-server",
		Version: "1.0.0",
	}

	server := CreateServer(cfg)
	if server == nil {
		t.Fatal("Expected server to be created")
	}
}

func TestCreateServer_EmptyConfig(t *testing.T) {
	server := CreateServer(ServerConfig{})
	if server == nil {
		t.Fatal("Expected server to be created even with empty config")
	}
}

func TestCreateServer_WithoutCatalog(t *testing.T) {
	session := connect(t, CreateServer(ServerConfig{Name: "test-server", Version: "1.0.0"}))

	tools, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	if len(tools.Tools) != 0 {
		t.Errorf("Tools = %d, want 0", len(tools.Tools))
	}
}

func TestCreateServer_ToolsRegistered(t *testing.T) {
	session := connect(t, CreateServer(ServerConfig{
		Name:    "test-server",
		Version: "1.0.0",
		Catalog: newCatalog(t),
	}))

	tools, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}

	var names []string
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	for _, want := range []string{"search_endpoints", "get_endpoint", "list_endpoints", "quality_report"} {
		if !slices.Contains(names, want) {
			t.Errorf("Expected tool %q in %v", want, names)
		}
	}
}

func TestCreateServer_CallTool(t *testing.T) {
	session := connect(t, CreateServer(ServerConfig{
		Name:    "test-server",
		Version: "1.0.0",
		Catalog: newCatalog(t),
	}))

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "search_endpoints",
		Arguments: map[string]any{"query": "vehicles"},
	})
	if err != nil {
		t.Fatalf("CallTool failed: %v", err)
	}
	if result.IsError {
		t.Fatal("Unexpected tool error")
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatal("Expected TextContent")
	}
	if !strings.Contains(tc.Text, "GET /api/v1/vehicles") {
		t.Errorf("Unexpected search result:\n%s", tc.Text)
	}
}

func TestCreateServer_Resources(t *testing.T) {
	session := connect(t, CreateServer(ServerConfig{
		Name:    "test-server",
		Version: "1.0.0",
		Catalog: newCatalog(t),
	}))
	ctx := context.Background()

	resources, err := session.ListResources(ctx, nil)
	if err != nil {
		t.Fatalf("ListResources failed: %v", err)
	}
	if len(resources.Resources) != 1 {
		t.Fatalf("Resources = %d, want 1", len(resources.Resources))
	}
	uri := resources.Resources[0].URI
	if uri != "apidoc://api/api/v1/vehicles" {
		t.Errorf("URI = %q", uri)
	}

	read, err := session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		t.Fatalf("ReadResource failed: %v", err)
	}
	if len(read.Contents) != 1 || !strings.Contains(read.Contents[0].Text, `"get__api_v1_vehicles"`) {
		t.Errorf("Unexpected resource contents: %+v", read.Contents)
	}
}

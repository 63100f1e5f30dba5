package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/mcp-apidoc-server/internal/catalog"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// Catalog serves the endpoint tools and resources. Nil creates a server without them.
	Catalog *catalog.Service
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Catalog != nil {
		catalog.RegisterTools(s, cfg.Catalog)
	}

	return s
}

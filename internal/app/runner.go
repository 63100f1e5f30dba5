package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	"github.com/sha1n/mcp-apidoc-server/internal/catalog"
	"github.com/sha1n/mcp-apidoc-server/internal/config"
	mcputil "github.com/sha1n/mcp-apidoc-server/internal/mcp"
)

// ServerName is the MCP implementation name.
const ServerName = "apidoc-mcp"

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(*mcp.Server, *config.Settings) error
	CreateServer      func(*config.Settings, string) (*mcp.Server, func(), error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
	}
}

// setupLogging installs the default logger. Always stderr: stdout carries the
// stdio transport.
func setupLogging() {
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	// Load settings
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings for conflicting configurations
	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging()

	slog.Info("Starting apidoc MCP server", "version", version)
	config.Log(settings)

	mcpServer, cleanup, err := params.CreateServer(settings, version)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	// Start server
	if settings.Transport == "stdio" {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	slog.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
	return params.StartSSEServer(mcpServer, settings)
}

// CreateMCPServer creates the MCP server and, when a document is configured,
// the catalog service behind its tools.
func CreateMCPServer(settings *config.Settings, version string) (*mcp.Server, func(), error) {
	var catalogSvc *catalog.Service
	var cleanup func()

	if settings.Document.Source == "" {
		slog.Warn("No document configured, endpoint tools disabled")
	} else {
		svc, err := catalog.NewService(settings)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create catalog service: %w", err)
		}
		catalogSvc = svc

		// Initialize in background context (not tied to request context)
		if err := svc.Initialize(context.Background()); err != nil {
			slog.Error("Catalog initialization failed", "error", err)
			// Close service on initialization failure and continue without it
			if closeErr := svc.Close(); closeErr != nil {
				slog.Error("Failed to close catalog service", "error", closeErr)
			}
			catalogSvc = nil
		} else {
			cleanup = func() {
				if err := svc.Close(); err != nil {
					slog.Error("Failed to close catalog service", "error", err)
				}
			}
		}
	}

	server := mcputil.CreateServer(mcputil.ServerConfig{
		Name:    ServerName,
		Version: version,
		Catalog: catalogSvc,
	})

	return server, cleanup, nil
}

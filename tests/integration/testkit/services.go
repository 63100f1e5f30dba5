package testkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/pflag"

	"github.com/sha1n/mcp-apidoc-server/internal/app"
	"github.com/sha1n/mcp-apidoc-server/internal/config"
)

// Property names published by the services in this package.
const (
	PropDocument = "document"
	PropBaseURL  = "base_url"
)

// DocumentService writes a document into a directory on Start.
type DocumentService struct {
	Dir  string
	Name string
	Text string
}

// Start writes the document and publishes its path.
func (s *DocumentService) Start() (map[string]any, error) {
	path := filepath.Join(s.Dir, s.Name)
	if err := os.WriteFile(path, []byte(s.Text), 0644); err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}
	return map[string]any{PropDocument: path}, nil
}

// Stop removes the document.
func (s *DocumentService) Stop() error {
	err := os.Remove(filepath.Join(s.Dir, s.Name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// GetName returns the service name
func (s *DocumentService) GetName() string {
	return "document"
}

// ServerService runs the SSE server with the given flags until Stop.
type ServerService struct {
	Flags        *pflag.FlagSet
	StartTimeout time.Duration

	srv    chan *http.Server
	done   chan error
	server *http.Server
}

// Start runs the server in the background and waits for /health.
func (s *ServerService) Start() (map[string]any, error) {
	s.srv = make(chan *http.Server, 1)
	s.done = make(chan error, 1)

	params := app.DefaultRunParams()
	params.StartSSEServer = func(server *mcp.Server, settings *config.Settings) error {
		srv, err := app.NewSSEServer(server, settings)
		if err != nil {
			return err
		}
		s.srv <- srv
		return srv.ListenAndServe()
	}

	go func() {
		s.done <- app.RunWithDeps(context.Background(), params, s.Flags, "test")
	}()

	timeout := s.StartTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	select {
	case s.server = <-s.srv:
	case err := <-s.done:
		return nil, fmt.Errorf("server exited before listening: %w", err)
	case <-time.After(timeout):
		return nil, errors.New("timeout waiting for server to start")
	}

	baseURL := "http://" + s.server.Addr
	if err := waitHealthy(baseURL, timeout); err != nil {
		return nil, err
	}
	return map[string]any{PropBaseURL: baseURL}, nil
}

// Stop shuts the server down and waits for the runner to return.
func (s *ServerService) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}

	err := <-s.done
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// GetName returns the service name
func (s *ServerService) GetName() string {
	return "server"
}

func waitHealthy(baseURL string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("server at %s did not become healthy", baseURL)
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"

	"github.com/sha1n/mcp-apidoc-server/internal/apidoc"
)

// validSettings returns settings that pass validation, for tests that tweak one field.
func validSettings() *Settings {
	return &Settings{
		Transport: "stdio",
		Auth:      AuthSettings{Type: AuthTypeNone},
		Document:  DocumentSettings{MaxBytes: 1024},
		Extract:   ExtractSettings{Methods: []string{"GET", "POST"}},
		Quality:   apidoc.DefaultThresholds(),
		Index:     IndexSettings{BaseDir: "/tmp/apidoc", MaxResults: 20, LockTimeout: time.Minute},
		Output:    OutputSettings{Formats: []string{"json"}, ToolPrefix: "apidoc", URIScheme: "apidoc"},
		Upload:    UploadSettings{Enabled: true, MaxBytes: 1024},
	}
}

func TestLoadSettings_Defaults(t *testing.T) {
	_ = os.Unsetenv("APIDOC_MCP_PORT")
	_ = os.Unsetenv("APIDOC_MCP_AUTH_TYPE")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", settings.Port)
	}
	if settings.Auth.Type != AuthTypeNone {
		t.Errorf("Expected default auth type '%s', got '%s'", AuthTypeNone, settings.Auth.Type)
	}
	if settings.Transport != "stdio" {
		t.Errorf("Expected default transport 'stdio', got '%s'", settings.Transport)
	}
	if settings.Host != "0.0.0.0" {
		t.Errorf("Expected default host '0.0.0.0', got '%s'", settings.Host)
	}
}

func TestLoadSettings_DomainDefaults(t *testing.T) {
	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if strings.Join(settings.Extract.Methods, ",") != "GET,POST,PUT,DELETE" {
		t.Errorf("Extract.Methods = %v, want GET,POST,PUT,DELETE", settings.Extract.Methods)
	}
	if settings.Quality != apidoc.DefaultThresholds() {
		t.Errorf("Quality = %+v, want %+v", settings.Quality, apidoc.DefaultThresholds())
	}
	if !strings.HasSuffix(settings.Index.BaseDir, ".apidoc-mcp") {
		t.Errorf("Expected base dir to end with '.apidoc-mcp', got '%s'", settings.Index.BaseDir)
	}
	if settings.Index.MaxResults != 20 {
		t.Errorf("Index.MaxResults = %d, want 20", settings.Index.MaxResults)
	}
	if settings.Index.LockTimeout != 60*time.Second {
		t.Errorf("Index.LockTimeout = %v, want 60s", settings.Index.LockTimeout)
	}
	if strings.Join(settings.Output.Formats, ",") != "json,csv" {
		t.Errorf("Output.Formats = %v, want json,csv", settings.Output.Formats)
	}
	if settings.Output.ToolPrefix != "apidoc" || settings.Output.URIScheme != "apidoc" {
		t.Errorf("Output naming = %q, %q", settings.Output.ToolPrefix, settings.Output.URIScheme)
	}
	if !settings.Output.KnowledgeBases {
		t.Error("Expected knowledge bases enabled by default")
	}
	if !settings.Upload.Enabled || settings.Upload.MaxBytes != 50<<20 {
		t.Errorf("Upload = %+v, want enabled with 50MiB limit", settings.Upload)
	}
	if settings.Document.MaxBytes != 50<<20 {
		t.Errorf("Document.MaxBytes = %d, want %d", settings.Document.MaxBytes, 50<<20)
	}
	if err := ValidateSettings(settings); err != nil {
		t.Errorf("default settings should validate, got: %v", err)
	}
}

func TestLoadSettings_EnvVars(t *testing.T) {
	t.Setenv("APIDOC_MCP_PORT", "9090")
	t.Setenv("APIDOC_MCP_AUTH_TYPE", "basic")
	t.Setenv("APIDOC_MCP_AUTH_BASIC_USERNAME", "admin")
	t.Setenv("APIDOC_MCP_DOCUMENT_SOURCE", "/docs/api.pdf")
	t.Setenv("APIDOC_MCP_EXTRACT_METHODS", "get, patch")
	t.Setenv("APIDOC_MCP_EXTRACT_PATH_PREFIX", "/api/v2")
	t.Setenv("APIDOC_MCP_QUALITY_HIGH_READINESS", "90")
	t.Setenv("APIDOC_MCP_INDEX_LOCK_TIMEOUT", "5s")
	t.Setenv("APIDOC_MCP_OUTPUT_FORMATS", "JSON,sqlite")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", settings.Port)
	}
	if settings.Auth.Type != AuthTypeBasic {
		t.Errorf("Expected auth type '%s', got '%s'", AuthTypeBasic, settings.Auth.Type)
	}
	if settings.Auth.Basic.Username != "admin" {
		t.Errorf("Expected username 'admin', got '%s'", settings.Auth.Basic.Username)
	}
	if settings.Document.Source != "/docs/api.pdf" {
		t.Errorf("Document.Source = %q, want /docs/api.pdf", settings.Document.Source)
	}
	if strings.Join(settings.Extract.Methods, ",") != "GET,PATCH" {
		t.Errorf("Extract.Methods = %v, want GET,PATCH", settings.Extract.Methods)
	}
	if settings.Extract.PathPrefix != "/api/v2" {
		t.Errorf("Extract.PathPrefix = %q, want /api/v2", settings.Extract.PathPrefix)
	}
	if settings.Quality.HighReadiness != 90 {
		t.Errorf("Quality.HighReadiness = %v, want 90", settings.Quality.HighReadiness)
	}
	if settings.Index.LockTimeout != 5*time.Second {
		t.Errorf("Index.LockTimeout = %v, want 5s", settings.Index.LockTimeout)
	}
	if strings.Join(settings.Output.Formats, ",") != "json,sqlite" {
		t.Errorf("Output.Formats = %v, want json,sqlite", settings.Output.Formats)
	}
}

func TestLoadSettings_APIKeys_EnvVar(t *testing.T) {
	t.Setenv("APIDOC_MCP_AUTH_API_KEYS", "key1, key2,key3")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	want := []string{"key1", "key2", "key3"}
	if len(settings.Auth.APIKeys) != len(want) {
		t.Fatalf("Expected %d API keys, got %d", len(want), len(settings.Auth.APIKeys))
	}
	for i, k := range want {
		if settings.Auth.APIKeys[i] != k {
			t.Errorf("APIKeys[%d] = %q, want %q", i, settings.Auth.APIKeys[i], k)
		}
	}
}

func TestLoadSettings_APIKeys_SingleKey(t *testing.T) {
	t.Setenv("APIDOC_MCP_AUTH_API_KEYS", "singlekey")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if len(settings.Auth.APIKeys) != 1 {
		t.Fatalf("Expected 1 API key, got %d", len(settings.Auth.APIKeys))
	}
	if settings.Auth.APIKeys[0] != "singlekey" {
		t.Errorf("Expected singlekey, got '%s'", settings.Auth.APIKeys[0])
	}
}

func TestLoadSettings_EnvFile(t *testing.T) {
	content := []byte("host=127.0.0.2\nport=7000")
	tmpEnv := ".env"
	if err := os.WriteFile(tmpEnv, content, 0644); err != nil {
		t.Fatalf("Failed to create .env file: %v", err)
	}
	defer func() { _ = os.Remove(tmpEnv) }()

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Host != "127.0.0.2" {
		t.Errorf("Expected host 127.0.0.2, got %s", settings.Host)
	}
	if settings.Port != 7000 {
		t.Errorf("Expected port 7000, got %d", settings.Port)
	}
}

func TestLoadSettings_InvalidConfig(t *testing.T) {
	t.Setenv("APIDOC_MCP_PORT", "not-a-number")

	_, err := LoadSettings()
	if err == nil {
		t.Fatal("Expected error for invalid port type")
	}
}

func TestLoadSettings_ExpandsHomeDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("APIDOC_MCP_INDEX_BASE_DIR", "~/indexes")
	t.Setenv("APIDOC_MCP_DOCUMENT_SOURCE", "~/api.pdf")

	settings, err := LoadSettings()
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if settings.Index.BaseDir != filepath.Join(home, "indexes") {
		t.Errorf("Index.BaseDir = %q, want %q", settings.Index.BaseDir, filepath.Join(home, "indexes"))
	}
	if settings.Document.Source != filepath.Join(home, "api.pdf") {
		t.Errorf("Document.Source = %q, want %q", settings.Document.Source, filepath.Join(home, "api.pdf"))
	}
}

func TestLoadSettingsWithFlags_CLIOverridesEnv(t *testing.T) {
	t.Setenv("APIDOC_MCP_PORT", "9090")
	t.Setenv("APIDOC_MCP_TRANSPORT", "sse")
	t.Setenv("APIDOC_MCP_DOCUMENT_SOURCE", "/env/api.txt")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("port", 0, "")
	flags.String("transport", "", "")
	flags.String("document", "", "")
	_ = flags.Set("port", "7777")
	_ = flags.Set("transport", "stdio")
	_ = flags.Set("document", "/cli/api.pdf")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Port != 7777 {
		t.Errorf("Expected CLI port 7777, got %d", settings.Port)
	}
	if settings.Transport != "stdio" {
		t.Errorf("Expected CLI transport 'stdio', got '%s'", settings.Transport)
	}
	if settings.Document.Source != "/cli/api.pdf" {
		t.Errorf("Document.Source = %q, want /cli/api.pdf", settings.Document.Source)
	}
}

func TestLoadSettingsWithFlags_UnsetFlagKeepsDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("index-max-results", 0, "")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}
	if settings.Index.MaxResults != 20 {
		t.Errorf("Index.MaxResults = %d, want default 20", settings.Index.MaxResults)
	}
}

func TestLoadSettingsWithFlags_AllFlagTypes(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("transport", "", "")
	flags.String("host", "", "")
	flags.Int("port", 0, "")
	flags.String("auth-type", "", "")
	flags.String("auth-basic-username", "", "")
	flags.String("auth-basic-password", "", "")
	flags.StringSlice("auth-api-keys", nil, "")
	flags.StringSlice("methods", nil, "")
	flags.Bool("strict-boundary", false, "")
	flags.Float64("quality-medium-readiness", 0, "")
	flags.StringSlice("formats", nil, "")

	_ = flags.Set("transport", "sse")
	_ = flags.Set("host", "localhost")
	_ = flags.Set("port", "3000")
	_ = flags.Set("auth-type", "basic")
	_ = flags.Set("auth-basic-username", "testuser")
	_ = flags.Set("auth-basic-password", "testpass")
	_ = flags.Set("methods", "GET,PUT")
	_ = flags.Set("strict-boundary", "true")
	_ = flags.Set("quality-medium-readiness", "70")
	_ = flags.Set("formats", "yaml")

	settings, err := LoadSettingsWithFlags(flags)
	if err != nil {
		t.Fatalf("Failed to load settings: %v", err)
	}

	if settings.Transport != "sse" {
		t.Errorf("Expected transport 'sse', got '%s'", settings.Transport)
	}
	if settings.Host != "localhost" {
		t.Errorf("Expected host 'localhost', got '%s'", settings.Host)
	}
	if settings.Port != 3000 {
		t.Errorf("Expected port 3000, got %d", settings.Port)
	}
	if settings.Auth.Type != "basic" {
		t.Errorf("Expected auth type 'basic', got '%s'", settings.Auth.Type)
	}
	if settings.Auth.Basic.Username != "testuser" {
		t.Errorf("Expected username 'testuser', got '%s'", settings.Auth.Basic.Username)
	}
	if settings.Auth.Basic.Password != "testpass" {
		t.Errorf("Expected password 'testpass', got '%s'", settings.Auth.Basic.Password)
	}
	if strings.Join(settings.Extract.Methods, ",") != "GET,PUT" {
		t.Errorf("Extract.Methods = %v, want GET,PUT", settings.Extract.Methods)
	}
	if !settings.Extract.StrictBoundary {
		t.Error("Expected strict boundary from flag")
	}
	if settings.Quality.MediumReadiness != 70 {
		t.Errorf("Quality.MediumReadiness = %v, want 70", settings.Quality.MediumReadiness)
	}
	if strings.Join(settings.Output.Formats, ",") != "yaml" {
		t.Errorf("Output.Formats = %v, want yaml", settings.Output.Formats)
	}
}

func TestSettings_ParserOptions(t *testing.T) {
	s := validSettings()
	s.Extract.PathPrefix = "/api"
	s.Extract.StrictBoundary = true
	s.Quality.HighReadiness = 95

	opts := s.ParserOptions()
	if strings.Join(opts.Methods, ",") != "GET,POST" {
		t.Errorf("Methods = %v, want GET,POST", opts.Methods)
	}
	if opts.PathPrefix != "/api" || !opts.StrictBoundary {
		t.Errorf("locator options = %q, %v", opts.PathPrefix, opts.StrictBoundary)
	}
	if opts.Thresholds.HighReadiness != 95 {
		t.Errorf("Thresholds.HighReadiness = %v, want 95", opts.Thresholds.HighReadiness)
	}

	s.Extract.Methods = nil
	if got := s.ParserOptions().Methods; len(got) != len(apidoc.DefaultMethods) {
		t.Errorf("Methods = %v, want defaults", got)
	}
}

func TestSettings_ManifestOptions(t *testing.T) {
	s := validSettings()
	s.Output.ToolPrefix = "fleet"
	s.Output.URIScheme = "docs"

	opts := s.ManifestOptions()
	if opts.ToolPrefix != "fleet" || opts.URIScheme != "docs" {
		t.Errorf("ManifestOptions() = %+v", opts)
	}
}

// --- ValidateSettings Tests ---

func TestValidateSettings_Valid(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"none", func(s *Settings) {}},
		{"none empty type", func(s *Settings) { s.Auth.Type = "" }},
		{"basic", func(s *Settings) {
			s.Auth = AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Username: "u", Password: "p"}}
		}},
		{"apikey", func(s *Settings) { s.Auth = AuthSettings{Type: AuthTypeAPIKey, APIKeys: []string{"k"}} }},
		{"sse", func(s *Settings) { s.Transport = "sse" }},
		{"patch method", func(s *Settings) { s.Extract.Methods = []string{"PATCH"} }},
		{"path prefix", func(s *Settings) { s.Extract.PathPrefix = "/api/v1" }},
		{"all formats", func(s *Settings) { s.Output.Formats = []string{"json", "csv", "yaml", "sqlite"} }},
		{"upload disabled without limit", func(s *Settings) { s.Upload = UploadSettings{} }},
		{"equal thresholds", func(s *Settings) {
			s.Quality = apidoc.Thresholds{HighReadiness: 80, HighDescriptionCoverage: 50, MediumReadiness: 80, MediumDescriptionCoverage: 50}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.modify(s)
			if err := ValidateSettings(s); err != nil {
				t.Errorf("Expected no error, got: %v", err)
			}
		})
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr string
	}{
		{"transport", func(s *Settings) { s.Transport = "http" }, "transport must be"},
		{"none with credentials", func(s *Settings) { s.Auth.APIKeys = []string{"k"} }, "incompatible"},
		{"basic missing password", func(s *Settings) {
			s.Auth = AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Username: "u"}}
		}, "requires both"},
		{"basic with api keys", func(s *Settings) {
			s.Auth = AuthSettings{Type: AuthTypeBasic, Basic: BasicAuthSettings{Username: "u", Password: "p"}, APIKeys: []string{"k"}}
		}, "mutually exclusive"},
		{"apikey missing keys", func(s *Settings) { s.Auth = AuthSettings{Type: AuthTypeAPIKey} }, "at least one API key"},
		{"apikey with basic", func(s *Settings) {
			s.Auth = AuthSettings{Type: AuthTypeAPIKey, APIKeys: []string{"k"}, Basic: BasicAuthSettings{Username: "u"}}
		}, "mutually exclusive"},
		{"unknown auth", func(s *Settings) { s.Auth.Type = "oauth" }, "unknown auth-type"},
		{"no methods", func(s *Settings) { s.Extract.Methods = nil }, "methods cannot be empty"},
		{"unknown method", func(s *Settings) { s.Extract.Methods = []string{"GET", "TRACE"} }, "unsupported method: TRACE"},
		{"relative prefix", func(s *Settings) { s.Extract.PathPrefix = "api" }, "path-prefix"},
		{"inverted readiness", func(s *Settings) { s.Quality.MediumReadiness = 90 }, "medium-readiness"},
		{"inverted coverage", func(s *Settings) { s.Quality.MediumDescriptionCoverage = 70 }, "medium-description-coverage"},
		{"threshold range", func(s *Settings) { s.Quality.HighReadiness = 150 }, "[0, 100]"},
		{"empty base dir", func(s *Settings) { s.Index.BaseDir = "" }, "index-base-dir"},
		{"max results", func(s *Settings) { s.Index.MaxResults = 0 }, "index-max-results"},
		{"lock timeout", func(s *Settings) { s.Index.LockTimeout = 0 }, "index-lock-timeout"},
		{"no formats", func(s *Settings) { s.Output.Formats = nil }, "formats cannot be empty"},
		{"unknown format", func(s *Settings) { s.Output.Formats = []string{"xml"} }, "unsupported output format: xml"},
		{"empty tool prefix", func(s *Settings) { s.Output.ToolPrefix = "" }, "tool-prefix"},
		{"empty scheme", func(s *Settings) { s.Output.URIScheme = "" }, "uri-scheme"},
		{"document limit", func(s *Settings) { s.Document.MaxBytes = 0 }, "document-max-bytes"},
		{"upload limit", func(s *Settings) { s.Upload.MaxBytes = -1 }, "upload-max-bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.modify(s)
			err := ValidateSettings(s)
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestExpandHomeDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	tests := []struct {
		in, want string
	}{
		{"~", home},
		{"~/data", filepath.Join(home, "data")},
		{"/abs/path", "/abs/path"},
		{"rel/path", "rel/path"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := expandHomeDir(tt.in); got != tt.want {
			t.Errorf("expandHomeDir(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		env    string
		want   string
	}{
		{"nil", nil, "", ""},
		{"env fills empty", nil, "a, b", "a|b"},
		{"single comma value", []string{"a,b"}, "", "a|b"},
		{"env overrides joined", []string{"x,y"}, "a,b", "a|b"},
		{"drops empty", []string{"a", " ", ""}, "", "a"},
		{"keeps parsed", []string{"a", "b"}, "c", "a|b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Join(splitList(tt.values, tt.env), "|"); got != tt.want {
				t.Errorf("splitList() = %q, want %q", got, tt.want)
			}
		})
	}
}

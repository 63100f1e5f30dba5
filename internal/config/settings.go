package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sha1n/mcp-apidoc-server/internal/apidoc"
	"github.com/sha1n/mcp-apidoc-server/internal/export"
	"github.com/sha1n/mcp-apidoc-server/internal/ingest"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

const envPrefix = "APIDOC_MCP"

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// DocumentSettings configuration for the source document
type DocumentSettings struct {
	Source   string `mapstructure:"source"`
	MaxBytes int64  `mapstructure:"max_bytes"`
}

// ExtractSettings configuration for the endpoint locator
type ExtractSettings struct {
	Methods        []string `mapstructure:"methods"`
	PathPrefix     string   `mapstructure:"path_prefix"`
	StrictBoundary bool     `mapstructure:"strict_boundary"`
}

// IndexSettings configuration for the search index
type IndexSettings struct {
	BaseDir     string        `mapstructure:"base_dir"`
	MaxResults  int           `mapstructure:"max_results"`
	LockTimeout time.Duration `mapstructure:"lock_timeout"`
}

// OutputSettings configuration for the batch extract command
type OutputSettings struct {
	Dir            string   `mapstructure:"dir"`
	Formats        []string `mapstructure:"formats"`
	ToolPrefix     string   `mapstructure:"tool_prefix"`
	URIScheme      string   `mapstructure:"uri_scheme"`
	KnowledgeBases bool     `mapstructure:"knowledge_bases"`
}

// UploadSettings configuration for the upload form
type UploadSettings struct {
	Enabled  bool  `mapstructure:"enabled"`
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// Settings application settings
type Settings struct {
	Transport string            `mapstructure:"transport"`
	Host      string            `mapstructure:"host"`
	Port      int               `mapstructure:"port"`
	Auth      AuthSettings      `mapstructure:"auth"`
	Document  DocumentSettings  `mapstructure:"document"`
	Extract   ExtractSettings   `mapstructure:"extract"`
	Quality   apidoc.Thresholds `mapstructure:"quality"`
	Index     IndexSettings     `mapstructure:"index"`
	Output    OutputSettings    `mapstructure:"output"`
	Upload    UploadSettings    `mapstructure:"upload"`
}

// ParserOptions returns the extraction options described by the settings.
func (s *Settings) ParserOptions() apidoc.Options {
	opts := apidoc.DefaultOptions()
	if len(s.Extract.Methods) > 0 {
		opts.Methods = s.Extract.Methods
	}
	opts.PathPrefix = s.Extract.PathPrefix
	opts.StrictBoundary = s.Extract.StrictBoundary
	opts.Thresholds = s.Quality
	return opts
}

// ManifestOptions returns the manifest naming options described by the settings.
func (s *Settings) ManifestOptions() export.ManifestOptions {
	return export.ManifestOptions{
		ToolPrefix: s.Output.ToolPrefix,
		URIScheme:  s.Output.URIScheme,
	}
}

// settingKeys maps every setting to its CLI flag name.
var settingKeys = []struct {
	key  string
	flag string
}{
	{"transport", "transport"},
	{"host", "host"},
	{"port", "port"},
	{"auth.type", "auth-type"},
	{"auth.basic.username", "auth-basic-username"},
	{"auth.basic.password", "auth-basic-password"},
	{"auth.api_keys", "auth-api-keys"},
	{"document.source", "document"},
	{"document.max_bytes", "document-max-bytes"},
	{"extract.methods", "methods"},
	{"extract.path_prefix", "path-prefix"},
	{"extract.strict_boundary", "strict-boundary"},
	{"quality.high_readiness", "quality-high-readiness"},
	{"quality.high_description_coverage", "quality-high-description-coverage"},
	{"quality.medium_readiness", "quality-medium-readiness"},
	{"quality.medium_description_coverage", "quality-medium-description-coverage"},
	{"index.base_dir", "index-base-dir"},
	{"index.max_results", "index-max-results"},
	{"index.lock_timeout", "index-lock-timeout"},
	{"output.dir", "output-dir"},
	{"output.formats", "formats"},
	{"output.tool_prefix", "tool-prefix"},
	{"output.uri_scheme", "uri-scheme"},
	{"output.knowledge_bases", "knowledge-bases"},
	{"upload.enabled", "upload-enabled"},
	{"upload.max_bytes", "upload-max-bytes"},
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)

	v.SetDefault("document.max_bytes", int64(ingest.DefaultMaxBytes))
	v.SetDefault("extract.methods", slices.Clone(apidoc.DefaultMethods))
	v.SetDefault("extract.path_prefix", "")
	v.SetDefault("extract.strict_boundary", false)

	thresholds := apidoc.DefaultThresholds()
	v.SetDefault("quality.high_readiness", thresholds.HighReadiness)
	v.SetDefault("quality.high_description_coverage", thresholds.HighDescriptionCoverage)
	v.SetDefault("quality.medium_readiness", thresholds.MediumReadiness)
	v.SetDefault("quality.medium_description_coverage", thresholds.MediumDescriptionCoverage)

	v.SetDefault("index.base_dir", defaultIndexBaseDir())
	v.SetDefault("index.max_results", 20)
	v.SetDefault("index.lock_timeout", 60*time.Second)

	v.SetDefault("output.dir", "./apidoc-output")
	v.SetDefault("output.formats", []string{export.FormatJSON, export.FormatCSV})
	v.SetDefault("output.tool_prefix", export.DefaultToolPrefix)
	v.SetDefault("output.uri_scheme", export.DefaultURIScheme)
	v.SetDefault("output.knowledge_bases", true)

	v.SetDefault("upload.enabled", true)
	v.SetDefault("upload.max_bytes", int64(ingest.DefaultMaxBytes))

	// Environment variables
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind every nested key explicitly so Unmarshal sees env-only values
	for _, k := range settingKeys {
		_ = v.BindEnv(k.key, envName(k.key))
	}

	// Bind CLI flags if provided (highest priority)
	if flags != nil {
		for _, k := range settingKeys {
			if f := flags.Lookup(k.flag); f != nil {
				_ = v.BindPFlag(k.key, f)
			}
		}
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	settings.Auth.APIKeys = splitList(settings.Auth.APIKeys, os.Getenv(envName("auth.api_keys")))
	settings.Extract.Methods = splitList(settings.Extract.Methods, os.Getenv(envName("extract.methods")))
	for i := range settings.Extract.Methods {
		settings.Extract.Methods[i] = strings.ToUpper(settings.Extract.Methods[i])
	}
	settings.Output.Formats = splitList(settings.Output.Formats, os.Getenv(envName("output.formats")))
	for i := range settings.Output.Formats {
		settings.Output.Formats[i] = strings.ToLower(settings.Output.Formats[i])
	}

	// Expand home directory in paths
	settings.Index.BaseDir = expandHomeDir(settings.Index.BaseDir)
	settings.Document.Source = expandHomeDir(settings.Document.Source)
	settings.Output.Dir = expandHomeDir(settings.Output.Dir)

	return &settings, nil
}

func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// splitList handles lists provided via env var as a comma-separated string,
// trims spaces and drops empty entries.
func splitList(values []string, env string) []string {
	if env != "" {
		if len(values) == 0 || (len(values) == 1 && strings.Contains(values[0], ",")) {
			values = strings.Split(env, ",")
		}
	}
	if len(values) == 1 && strings.Contains(values[0], ",") {
		values = strings.Split(values[0], ",")
	}
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}
	return filterEmptyStrings(values)
}

// defaultIndexBaseDir returns the default base directory for the search index
func defaultIndexBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".apidoc-mcp"
	}
	return filepath.Join(home, ".apidoc-mcp")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete auth config,
// or out of range extraction, index and output settings.
func ValidateSettings(s *Settings) error {
	// Validate transport type
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	if err := validateExtractSettings(&s.Extract); err != nil {
		return err
	}
	if err := validateThresholds(&s.Quality); err != nil {
		return err
	}
	if err := validateIndexSettings(&s.Index); err != nil {
		return err
	}
	if err := validateOutputSettings(&s.Output); err != nil {
		return err
	}

	if s.Document.MaxBytes <= 0 {
		return errors.New("document-max-bytes must be positive")
	}
	if s.Upload.Enabled && s.Upload.MaxBytes <= 0 {
		return errors.New("upload-max-bytes must be positive")
	}

	return nil
}

// validateExtractSettings validates the locator configuration
func validateExtractSettings(e *ExtractSettings) error {
	if len(e.Methods) == 0 {
		return errors.New("methods cannot be empty")
	}
	for _, m := range e.Methods {
		if !slices.Contains(apidoc.DefaultMethods, m) && m != "PATCH" {
			return fmt.Errorf("unsupported method: %s", m)
		}
	}
	if e.PathPrefix != "" && !strings.HasPrefix(e.PathPrefix, "/") {
		return errors.New("path-prefix must start with '/'")
	}
	return nil
}

// validateThresholds validates the quality label policy
func validateThresholds(t *apidoc.Thresholds) error {
	for _, v := range []float64{t.HighReadiness, t.HighDescriptionCoverage, t.MediumReadiness, t.MediumDescriptionCoverage} {
		if v < 0 || v > 100 {
			return fmt.Errorf("quality thresholds must be within [0, 100], got %v", v)
		}
	}
	if t.MediumReadiness > t.HighReadiness {
		return errors.New("quality-medium-readiness cannot exceed quality-high-readiness")
	}
	if t.MediumDescriptionCoverage > t.HighDescriptionCoverage {
		return errors.New("quality-medium-description-coverage cannot exceed quality-high-description-coverage")
	}
	return nil
}

// validateIndexSettings validates the search index configuration
func validateIndexSettings(i *IndexSettings) error {
	if i.BaseDir == "" {
		return errors.New("index-base-dir cannot be empty")
	}
	if i.MaxResults <= 0 {
		return errors.New("index-max-results must be positive")
	}
	if i.LockTimeout <= 0 {
		return errors.New("index-lock-timeout must be positive")
	}
	return nil
}

// validateOutputSettings validates the extract output configuration
func validateOutputSettings(o *OutputSettings) error {
	if len(o.Formats) == 0 {
		return errors.New("formats cannot be empty")
	}
	for _, f := range o.Formats {
		if !slices.Contains(export.Formats, f) {
			return fmt.Errorf("unsupported output format: %s", f)
		}
	}
	if o.ToolPrefix == "" {
		return errors.New("tool-prefix cannot be empty")
	}
	if o.URIScheme == "" {
		return errors.New("uri-scheme cannot be empty")
	}
	return nil
}

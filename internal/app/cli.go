package app

import "github.com/spf13/pflag"

// RegisterFlags registers all CLI flags on the given FlagSet
func RegisterFlags(flags *pflag.FlagSet) {
	flags.StringP("transport", "t", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")

	flags.StringP("document", "d", "", "Path to the API reference document (.pdf or .txt)")
	flags.Int64("document-max-bytes", 0, "Maximum document size in bytes")

	flags.StringSliceP("methods", "m", nil, "HTTP methods to extract (comma-separated)")
	flags.String("path-prefix", "", "Only extract paths starting with this prefix")
	flags.Bool("strict-boundary", false, "Only accept endpoints preceded by a Method/URL marker")

	flags.Float64("quality-high-readiness", 0, "Minimum readiness score for the HIGH label")
	flags.Float64("quality-high-description-coverage", 0, "Minimum description coverage for the HIGH label")
	flags.Float64("quality-medium-readiness", 0, "Minimum readiness score for the MEDIUM label")
	flags.Float64("quality-medium-description-coverage", 0, "Minimum description coverage for the MEDIUM label")

	flags.String("index-base-dir", "", "Directory for the search index and run state")
	flags.Int("index-max-results", 0, "Maximum number of search results")
	flags.Duration("index-lock-timeout", 0, "How long to wait for another instance to finish indexing")

	flags.StringP("output-dir", "o", "", "Output directory for extract")
	flags.StringSliceP("formats", "f", nil, "Output formats: json, csv, yaml, sqlite (comma-separated)")
	flags.String("tool-prefix", "", "Prefix of generated tool names")
	flags.String("uri-scheme", "", "URI scheme of generated resources")
	flags.Bool("knowledge-bases", false, "Write the knowledge-base tables")

	flags.Bool("upload-enabled", false, "Serve the upload form on the SSE transport")
	flags.Int64("upload-max-bytes", 0, "Maximum upload size in bytes")
}

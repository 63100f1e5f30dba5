package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sha1n/mcp-apidoc-server/internal/app"
)

var (
	// Version is injected at build time
	Version = "dev"
	// Build is injected at build time
	Build = "unknown"
	// ProgramName is injected at build time
	ProgramName = "apidoc-mcp"
)

func main() {
	runMain(os.Args, os.Exit)
}

func runMain(args []string, exit func(int)) {
	if err := Execute(Version, Build, ProgramName, args[1:]); err != nil {
		exit(1)
	}
}

// Execute is the entry point for the CLI, extracted for testing
func Execute(version, build, programName string, args []string) error {
	rootCmd := &cobra.Command{
		Use:     programName,
		Short:   "API documentation MCP Server",
		Long:    "Extracts REST endpoints from a PDF or text API reference and serves them to MCP clients",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithFlags(cmd.Flags(), version)
		},
	}

	rootCmd.SetVersionTemplate(`{{.Version}}
`)

	extractCmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract endpoints and knowledge tables to files",
		Long:  "Parses the configured document once and writes endpoints, quality report, manifest and knowledge-base tables in the configured output formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return extractWithFlags(cmd.Flags(), cmd)
		},
	}

	app.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.AddCommand(extractCmd)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

func runWithFlags(flags *pflag.FlagSet, version string) error {
	return app.RunWithDeps(context.Background(), app.DefaultRunParams(), flags, version)
}

func extractWithFlags(flags *pflag.FlagSet, cmd *cobra.Command) error {
	return app.RunExtract(cmd.Context(), app.DefaultExtractParams(), flags, cmd.OutOrStdout())
}

package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deep-research-mcp",
		Short: "MCP server for OpenAI's deep research models",
		Long: `deep-research-mcp bridges MCP clients to OpenAI's deep research models.

It exposes research tools (start_research, get_result, list_sessions,
test_connection) over newline-delimited JSON-RPC 2.0 on stdio, backed by
the Responses API, chat completions, or a manual no-API workflow.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	// Add subcommands
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newResearchCommand())
	cmd.AddCommand(newCheckCommand())
	cmd.AddCommand(newSessionsCommand())
	cmd.AddCommand(newInitCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kateleext/openai-deep-research-mcp/internal/session"
)

func newSessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "View recorded audit logs",
		Long: `View the NDJSON audit logs the server writes when audit logging is enabled.

Each log records the full lifecycle of a server run: startup, research
started, result polls, completions and failures, connection tests, and
shutdown. Sessions themselves live in server memory only; these files are
an audit trail, not a store.`,
	}

	cmd.AddCommand(newSessionsListCommand())
	cmd.AddCommand(newSessionsViewCommand())

	return cmd
}

func newSessionsListCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded audit logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir == "" {
				cfg, err := loadSettings()
				if err != nil {
					return err
				}
				dir = cfg.LogDir
			}
			absDir, err := filepath.Abs(dir)
			if err != nil {
				return err
			}

			files, err := session.ListLogs(absDir)
			if err != nil {
				return fmt.Errorf("listing audit logs: %w", err)
			}

			if len(files) == 0 {
				fmt.Println("No audit logs found.")
				return nil
			}

			fmt.Printf("%-40s %-8s %s\n", "File", "Events", "Modified")
			fmt.Println("─────────────────────────────────────────────────────────────────")
			for _, f := range files {
				fmt.Printf("%-40s %-8d %s\n", f.Name, f.NumEvents, f.ModTime.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory to search for audit logs (default: the configured log dir)")

	return cmd
}

func newSessionsViewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view <log-file>",
		Short: "View an audit log timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			events, err := session.ReadEvents(path)
			if err != nil {
				return fmt.Errorf("reading audit log: %w", err)
			}

			session.RenderTimeline(os.Stdout, events)
			return nil
		},
	}

	return cmd
}

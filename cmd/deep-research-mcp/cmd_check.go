package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/kateleext/openai-deep-research-mcp/internal/research"
)

func newCheckCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the OpenAI API connection and credential",
		Long: `Check the OpenAI API connection and credential.

Runs the same probe as the test_connection tool: whether an API key is
configured (with a redacted fingerprint), whether the models endpoint
answers, and which research-capable models the credential can see.

The command runs without a configured key, so it can diagnose a missing
one.`,
		Args:          cobra.NoArgs,
		RunE:          runCheck,
		SilenceErrors: true,
	}
	cmd.Flags().String("format", "text", "Output format: text | json")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid format %q: expected text or json", format)
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}

	svc, audit, err := buildService(cfg, slog.Default())
	if err != nil {
		return err
	}
	defer audit.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res := svc.TestConnection(ctx)

	if format == "json" {
		return printJSON(cmd.OutOrStdout(), res)
	}
	displayConnectionReport(cmd.OutOrStdout(), cfg.Provider, res)
	return nil
}

type connCheckRow struct {
	name   string
	icon   string
	detail string
}

// connectionRows maps a probe result onto the three summary rows.
func connectionRows(res research.ConnectionResult) []connCheckRow {
	keyIcon, keyDetail := "❌", "not configured (set OPENAI_API_KEY)"
	if res.APIKeyConfigured {
		keyIcon, keyDetail = "✅", res.APIKeyFormat
	}

	connIcon, connDetail := "❌", res.Err
	if res.Connection == "working" {
		connIcon, connDetail = "✅", fmt.Sprintf("%d model(s) visible", res.ModelCount)
	}

	modelIcon, modelDetail := "—", ""
	if res.Connection == "working" {
		if n := len(res.DeepResearchModels); n > 0 {
			modelIcon, modelDetail = "✅", fmt.Sprintf("%d research-capable model(s)", n)
		} else {
			modelIcon, modelDetail = "⚠️", "no research-capable models visible"
		}
	}

	return []connCheckRow{
		{name: "API key", icon: keyIcon, detail: keyDetail},
		{name: "Connection", icon: connIcon, detail: connDetail},
		{name: "Research models", icon: modelIcon, detail: modelDetail},
	}
}

//nolint:errcheck // display function — fmt.Fprintf errors to stdout are not actionable
func displayConnectionReport(w io.Writer, kind research.ProviderKind, res research.ConnectionResult) {
	fmt.Fprintf(w, "\n🔍 Deep Research Connection Check\n")
	fmt.Fprintf(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Fprintf(w, "Provider: %s\n\n", kind)

	if kind == research.KindManual {
		fmt.Fprintf(w, "The manual provider makes no API calls; there is no connection to check.\n\n")
		return
	}

	rows := connectionRows(res)

	// Compute dynamic column width from the longest row name.
	nameWidth := len("Check")
	for _, r := range rows {
		if n := utf8.RuneCountInString(r.name); n > nameWidth {
			nameWidth = n
		}
	}
	const colStatus = 7

	fmt.Fprintf(w, "%s  %s  %s\n", padRight("Check", nameWidth), padRight("Status", colStatus), "Detail")
	fmt.Fprintf(w, "%s\n", strings.Repeat("─", nameWidth+colStatus+34))
	for _, r := range rows {
		fmt.Fprintf(w, "%s  %s  %s\n", padRight(r.name, nameWidth), padRight(r.icon, colStatus), r.detail)
	}

	if len(res.DeepResearchModels) > 0 {
		fmt.Fprintf(w, "\nDeep research models:\n")
		for _, id := range res.DeepResearchModels {
			fmt.Fprintf(w, "  • %s\n", id)
		}
	}
	fmt.Fprintf(w, "\n")
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

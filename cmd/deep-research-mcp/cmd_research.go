package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kateleext/openai-deep-research-mcp/internal/report"
	"github.com/kateleext/openai-deep-research-mcp/internal/research"
	"github.com/kateleext/openai-deep-research-mcp/internal/spinner"
)

func newResearchCommand() *cobra.Command {
	var (
		model           string
		maxToolCalls    int
		codeInterpreter bool
		timeout         time.Duration
		pollInterval    time.Duration
		jsonOut         bool
	)

	cmd := &cobra.Command{
		Use:   "research <query>",
		Short: "Run one research task and print the report",
		Long: `Run one research task end to end.

Starts the task, polls until it reaches a terminal state or --timeout
expires, then prints the report followed by its citations and any further
sources the report links to. The report goes to stdout; progress goes to
stderr, so the output can be piped.

With the manual provider nothing is polled: the command prints the research
instructions and a session id, and exits. Research externally, then submit
the findings through get_result on a running server.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := slog.Default()
			svc, audit, err := buildService(cfg, logger)
			if err != nil {
				return err
			}
			defer audit.Close() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()

			start := svc.StartResearch(ctx, research.StartParams{
				Query:              args[0],
				Model:              model,
				MaxToolCalls:       maxToolCalls,
				UseCodeInterpreter: codeInterpreter,
			})
			if start.Status == research.StatusFailed {
				return &ResearchFailedError{Message: fmt.Sprintf("research failed to start: %s", start.Err)}
			}

			if start.Status == research.StatusManualRequired {
				if jsonOut {
					return printJSON(out, start)
				}
				renderManualStart(out, start)
				return nil
			}

			fmt.Fprintf(os.Stderr, "session %s started\n", start.ID)

			view, err := pollUntilTerminal(ctx, svc, start.ID, timeout, pollInterval, os.Stderr)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "session %s %s\n", view.ID, view.Status)

			if jsonOut {
				return printJSON(out, view)
			}
			renderResult(out, view)
			if view.Status != research.StatusCompleted {
				return &ResearchFailedError{Message: fmt.Sprintf("research ended with status %s", view.Status)}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&model, "model", "", "Model to research with (default: provider default)")
	cmd.Flags().IntVar(&maxToolCalls, "max-tool-calls", 0, "Cap on provider tool calls (responses provider)")
	cmd.Flags().BoolVar(&codeInterpreter, "code-interpreter", false, "Enable the code interpreter tool (responses provider)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "Give up waiting after this long")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 10*time.Second, "Time between result polls")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the raw result as JSON")

	return cmd
}

// pollUntilTerminal polls get_result until the session reaches a terminal
// status. Transient poll errors keep polling; timeout bounds the whole wait.
func pollUntilTerminal(ctx context.Context, svc *research.Service, id string, timeout, interval time.Duration, progress io.Writer) (research.ResultView, error) {
	sp := spinner.Start(progress, "research pending")
	defer sp.Stop()

	deadline := time.Now().Add(timeout)
	for {
		view := svc.GetResult(ctx, id, "")
		if view.Status.Terminal() {
			return view, nil
		}
		sp.Update(fmt.Sprintf("research %s", view.Status))

		if time.Now().After(deadline) {
			return view, &ResearchFailedError{
				Message: fmt.Sprintf("timed out after %s waiting for session %s (last status %s)", timeout, id, view.Status),
			}
		}
		select {
		case <-ctx.Done():
			return view, ctx.Err()
		case <-time.After(interval):
		}
	}
}

// renderManualStart prints the instructions handed back by the manual provider.
func renderManualStart(w io.Writer, start research.StartResult) {
	fmt.Fprintf(w, "Session: %s (%s)\n\n", start.ID, start.Status) //nolint:errcheck
	if start.Instructions != "" {
		fmt.Fprintln(w, start.Instructions) //nolint:errcheck
	}
	if start.NextStep != "" {
		fmt.Fprintf(w, "\nNext step: %s\n", start.NextStep) //nolint:errcheck
	}
}

// renderResult prints a terminal result view as readable text.
//
//nolint:errcheck
func renderResult(w io.Writer, view research.ResultView) {
	if view.Status != research.StatusCompleted {
		fmt.Fprintf(w, "Session %s ended with status %s\n", view.ID, view.Status)
		if view.Err != "" {
			fmt.Fprintf(w, "Error: %s\n", view.Err)
		}
		if view.ErrDetails != "" {
			fmt.Fprintf(w, "Details: %s\n", view.ErrDetails)
		}
		return
	}

	fmt.Fprintln(w, view.Report)
	renderCitations(w, view.Citations)
	renderReportLinks(w, view)
}

//nolint:errcheck
func renderCitations(w io.Writer, citations []research.Citation) {
	if len(citations) == 0 {
		return
	}
	fmt.Fprintf(w, "\nCitations:\n")
	for i, c := range citations {
		if c.Title != "" {
			fmt.Fprintf(w, "%3d. %s\n     %s\n", i+1, c.Title, c.URL)
		} else {
			fmt.Fprintf(w, "%3d. %s\n", i+1, c.URL)
		}
	}
}

// renderReportLinks prints sources linked from the report body that the
// provider did not already cite.
//
//nolint:errcheck
func renderReportLinks(w io.Writer, view research.ResultView) {
	cited := make(map[string]bool, len(view.Citations))
	for _, c := range view.Citations {
		cited[c.URL] = true
	}

	var extra []report.Link
	for _, l := range report.Links(view.Report) {
		if !cited[l.URL] {
			extra = append(extra, l)
		}
	}
	if len(extra) == 0 {
		return
	}

	fmt.Fprintf(w, "\nLinked in report:\n")
	for _, l := range extra {
		if l.Title != "" {
			fmt.Fprintf(w, "  • %s (%s)\n", l.Title, l.URL)
		} else {
			fmt.Fprintf(w, "  • %s\n", l.URL)
		}
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

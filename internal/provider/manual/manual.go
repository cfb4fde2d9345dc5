// Package manual implements the provider used when no API credential is
// configured. No network calls happen: start_research hands back an
// instruction sheet, the caller researches with its own tooling, and the
// finished report comes back through get_result.
package manual

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/kateleext/openai-deep-research-mcp/internal/research"
)

const instructionsText = `RESEARCH REQUEST: {{.Query}}

Complete this research with your own search tooling:

1. Search for: "{{.Query}}"
2. Follow up with targeted searches:
   - "{{.Query}} latest research"
   - "{{.Query}} expert analysis"
   - "{{.Query}} case studies"

3. For contrasting perspectives, also search:
   - "{{.Query}} criticism"
   - "{{.Query}} limitations"
   - "{{.Query}} alternatives"

4. When you have gathered {{.MaxSources}} quality sources, call get_result('{{.SessionID}}') with your findings as the report.

Research Approach: {{.Approach}}
Session ID: {{.SessionID}}
`

var instructionsTmpl = template.Must(template.New("instructions").Parse(instructionsText))

type instructionsData struct {
	Query      string
	Approach   string
	MaxSources int
	SessionID  string
}

// Client satisfies research.Provider without a remote backend.
type Client struct{}

var _ research.Provider = (*Client)(nil)

// New returns the manual provider.
func New() *Client { return &Client{} }

// Kind implements research.Provider.
func (*Client) Kind() research.ProviderKind { return research.KindManual }

// CreateTask implements research.Provider. The model slot of the request
// carries the approach name for manual research.
func (*Client) CreateTask(_ context.Context, req research.TaskRequest) (*research.Task, error) {
	var buf strings.Builder
	err := instructionsTmpl.Execute(&buf, instructionsData{
		Query:      req.Query,
		Approach:   req.Model,
		MaxSources: req.MaxSources,
		SessionID:  req.SessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("render instructions: %w", err)
	}

	return &research.Task{
		Status:       research.StatusManualRequired,
		Instructions: buf.String(),
	}, nil
}

// FetchTask implements research.Provider. Manual sessions resolve from the
// registry, never from a remote poll.
func (*Client) FetchTask(context.Context, string) (*research.Task, error) {
	return nil, fmt.Errorf("fetch task: %w", errors.ErrUnsupported)
}

// ListModels implements research.Provider.
func (*Client) ListModels(context.Context) ([]string, error) {
	return nil, fmt.Errorf("list models: %w", errors.ErrUnsupported)
}

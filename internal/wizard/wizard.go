// Package wizard holds the interactive setup form behind the init command.
package wizard

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/kateleext/openai-deep-research-mcp/internal/research"
)

// SetupSpec holds all fields collected during the interactive wizard.
type SetupSpec struct {
	APIKey   string
	Provider research.ProviderKind
	Model    string
	Audit    bool
}

const configTemplate = `# deep-research-mcp project configuration.
# Environment variables (OPENAI_API_KEY, DEEP_RESEARCH_PROVIDER, ...) win
# over this file.
audit: {{ .Audit }}

provider:
  kind: {{ .Provider }}
{{- if .Model }}
  model: {{ .Model }}
{{- end }}
`

// RunSetupWizard runs an interactive huh form to collect server settings.
func RunSetupWizard(in io.Reader, out io.Writer) (*SetupSpec, error) {
	var (
		kind   = string(research.KindResponses)
		apiKey string
		model  string
		audit  bool
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Provider").
				Description("How research requests are executed").
				Options(
					huh.NewOption("responses (deep research via the Responses API)", string(research.KindResponses)),
					huh.NewOption("chat (synchronous chat completions)", string(research.KindChat)),
					huh.NewOption("manual (no API calls, research externally)", string(research.KindManual)),
				).
				Value(&kind),
			huh.NewInput().
				Title("OpenAI API key").
				Description("Written to .env; leave empty for the manual provider").
				Placeholder("sk-proj-...").
				Value(&apiKey).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" && kind != string(research.KindManual) {
						return fmt.Errorf("an API key is required for the %s provider", kind)
					}
					return nil
				}),
			huh.NewInput().
				Title("Default model").
				Description("Leave empty for the provider default").
				Placeholder(research.DefaultResponsesModel).
				Value(&model),
			huh.NewConfirm().
				Title("Enable audit logging?").
				Affirmative("Yes").
				Negative("No").
				Value(&audit),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	provider, err := research.ParseProviderKind(kind)
	if err != nil {
		return nil, err
	}

	return &SetupSpec{
		APIKey:   strings.TrimSpace(apiKey),
		Provider: provider,
		Model:    strings.TrimSpace(model),
		Audit:    audit,
	}, nil
}

// GenerateConfigYAML renders the .deep-research.yaml contents for a spec.
func GenerateConfigYAML(spec *SetupSpec) (string, error) {
	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, spec); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

// GenerateEnv renders the .env contents. Empty when no key was entered.
func GenerateEnv(spec *SetupSpec) string {
	if spec.APIKey == "" {
		return ""
	}
	return fmt.Sprintf("OPENAI_API_KEY=%s\n", spec.APIKey)
}

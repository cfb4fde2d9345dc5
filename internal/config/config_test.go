package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/kateleext/openai-deep-research-mcp/internal/research"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvAPIKey, EnvBaseURL, EnvProject, EnvProvider, EnvModel, EnvLogDir, EnvAudit,
	} {
		t.Setenv(key, "")
	}
}

func TestNew_ReturnsAllDefaults(t *testing.T) {
	s := New()

	if s.Provider != research.KindResponses {
		t.Errorf("Provider = %q, want responses", s.Provider)
	}
	assertEqualInt(t, "MaxToolCalls", 50, s.MaxToolCalls)
	assertEqualInt(t, "MaxTokens", 4000, s.MaxTokens)
	assertEqualInt(t, "MaxSources", 5, s.MaxSources)
	assertEqual(t, "APIKey", "", s.APIKey)
	assertEqual(t, "BaseURL", "", s.BaseURL)
	assertEqual(t, "Model", "", s.Model)
	if s.LogDir == "" {
		t.Error("LogDir should default under the home directory")
	}
	if s.AuditEnabled {
		t.Error("AuditEnabled should default to false")
	}
}

func TestLoad_NoSources(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.Provider != research.KindResponses {
		t.Errorf("Provider = %q", s.Provider)
	}
	assertEqual(t, "APIKey", "", s.APIKey)
}

func TestLoad_ProjectFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, ConfigFileName, `
base_url: "https://proxy.example.com/v1"
project: proj_xyz
log_dir: "/var/log/research"
audit: true
provider:
  kind: chat
  model: gpt-4-turbo
  max_tokens: 2000
  max_sources: 3
  code_interpreter: true
`)

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	assertEqual(t, "BaseURL", "https://proxy.example.com/v1", s.BaseURL)
	assertEqual(t, "Project", "proj_xyz", s.Project)
	assertEqual(t, "LogDir", "/var/log/research", s.LogDir)
	if !s.AuditEnabled {
		t.Error("AuditEnabled = false, want true")
	}
	if s.Provider != research.KindChat {
		t.Errorf("Provider = %q, want chat", s.Provider)
	}
	assertEqual(t, "Model", "gpt-4-turbo", s.Model)
	assertEqualInt(t, "MaxTokens", 2000, s.MaxTokens)
	assertEqualInt(t, "MaxSources", 3, s.MaxSources)
	assertEqualInt(t, "MaxToolCalls", 50, s.MaxToolCalls) // untouched default
	if !s.CodeInterpreter {
		t.Error("CodeInterpreter = false, want true")
	}
}

func TestLoad_ProjectFileWalkUp(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	writeFile(t, root, ConfigFileName, "provider:\n  kind: manual\n")

	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	s, err := Load(nested)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if s.Provider != research.KindManual {
		t.Errorf("Provider = %q, want manual from the ancestor file", s.Provider)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, ConfigFileName, `
provider:
  kind: chat
  model: gpt-4-turbo
`)
	t.Setenv(EnvProvider, "responses")
	t.Setenv(EnvModel, "o3-deep-research")
	t.Setenv(EnvAPIKey, "sk-proj-123")
	t.Setenv(EnvAudit, "true")

	s, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if s.Provider != research.KindResponses {
		t.Errorf("Provider = %q, env must win", s.Provider)
	}
	assertEqual(t, "Model", "o3-deep-research", s.Model)
	assertEqual(t, "APIKey", "sk-proj-123", s.APIKey)
	if !s.AuditEnabled {
		t.Error("AuditEnabled = false, want true from env")
	}
}

func TestLoad_InvalidProviderEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvProvider, "telepathy")

	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("Load() should reject an unknown provider kind")
	}
}

func TestLoad_InvalidProviderFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, ConfigFileName, "provider:\n  kind: telepathy\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("Load() should reject an unknown provider kind")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, dir, ConfigFileName, "provider: [unterminated\n")

	if _, err := Load(dir); err == nil {
		t.Fatal("Load() should reject malformed YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		provider research.ProviderKind
		apiKey   string
		wantErr  bool
	}{
		{"responses with key", research.KindResponses, "sk-proj-1", false},
		{"responses without key", research.KindResponses, "", true},
		{"chat without key", research.KindChat, "", true},
		{"manual without key", research.KindManual, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			s.Provider = tt.provider
			s.APIKey = tt.apiKey

			err := s.Validate()
			if tt.wantErr {
				var mce *MissingCredentialError
				if !errors.As(err, &mce) {
					t.Fatalf("Validate() = %v, want MissingCredentialError", err)
				}
				if mce.Variable != EnvAPIKey {
					t.Errorf("Variable = %q", mce.Variable)
				}
			} else if err != nil {
				t.Fatalf("Validate() error: %v", err)
			}
		})
	}
}

func TestKeyFingerprint(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"", "missing"},
		{"sk-proj-abc123", "sk-proj..."},
		{"sk-abc123", "sk-other..."},
	}
	for _, tt := range tests {
		if got := KeyFingerprint(tt.key); got != tt.want {
			t.Errorf("KeyFingerprint(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestResearchDefaults(t *testing.T) {
	s := New()
	s.Model = "o3-deep-research"
	s.MaxToolCalls = 25

	d := s.ResearchDefaults()

	assertEqual(t, "ResponsesModel", "o3-deep-research", d.ResponsesModel)
	assertEqual(t, "ChatModel", "o3-deep-research", d.ChatModel)
	assertEqualInt(t, "MaxToolCalls", 25, d.MaxToolCalls)
	assertEqualInt(t, "MaxTokens", 4000, d.MaxTokens)
}

func TestResearchDefaults_NoOverrides(t *testing.T) {
	d := New().ResearchDefaults()

	assertEqual(t, "ResponsesModel", research.DefaultResponsesModel, d.ResponsesModel)
	assertEqual(t, "ChatModel", research.DefaultChatModel, d.ChatModel)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func assertEqual(t *testing.T, field, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %q, want %q", field, got, want)
	}
}

func assertEqualInt(t *testing.T, field string, want, got int) {
	t.Helper()
	if got != want {
		t.Errorf("%s = %d, want %d", field, got, want)
	}
}

// Package config assembles runtime settings from built-in defaults, an
// optional .deep-research.yaml project file, an optional .env file, and the
// process environment, in that order (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kateleext/openai-deep-research-mcp/internal/research"
)

// Environment variables read by Load.
const (
	EnvAPIKey   = "OPENAI_API_KEY"
	EnvBaseURL  = "OPENAI_BASE_URL"
	EnvProject  = "OPENAI_PROJECT"
	EnvProvider = "DEEP_RESEARCH_PROVIDER"
	EnvModel    = "DEEP_RESEARCH_MODEL"
	EnvLogDir   = "DEEP_RESEARCH_LOG_DIR"
	EnvAudit    = "DEEP_RESEARCH_AUDIT"
)

// DefaultProvider is used when neither the project file nor the environment
// names one.
const DefaultProvider = research.KindResponses

// ConfigFileName is discovered by walking up from the working directory.
const ConfigFileName = ".deep-research.yaml"

// maxConfigWalk bounds the walk-up search for the project file.
const maxConfigWalk = 10

// Settings holds everything the commands need to wire a server. An empty
// BaseURL or Model means the provider client's own default applies.
type Settings struct {
	APIKey  string
	BaseURL string
	Project string

	Provider research.ProviderKind
	Model    string

	MaxToolCalls    int
	MaxTokens       int
	MaxSources      int
	CodeInterpreter bool

	LogDir       string
	AuditEnabled bool

	envPath string
}

// fileConfig is the shape of .deep-research.yaml. The provider section stays
// a loose map here and is decoded separately.
type fileConfig struct {
	BaseURL  string         `yaml:"base_url,omitempty"`
	Project  string         `yaml:"project,omitempty"`
	LogDir   string         `yaml:"log_dir,omitempty"`
	Audit    *bool          `yaml:"audit,omitempty"`
	Provider map[string]any `yaml:"provider,omitempty"`
}

// providerOptions is the typed form of the file's provider section.
type providerOptions struct {
	Kind            string `mapstructure:"kind"`
	Model           string `mapstructure:"model"`
	MaxToolCalls    int    `mapstructure:"max_tool_calls"`
	MaxTokens       int    `mapstructure:"max_tokens"`
	MaxSources      int    `mapstructure:"max_sources"`
	CodeInterpreter *bool  `mapstructure:"code_interpreter"`
}

// New returns Settings with all hard-coded defaults populated.
func New() *Settings {
	return &Settings{
		Provider:     DefaultProvider,
		MaxToolCalls: research.DefaultMaxToolCalls,
		MaxTokens:    research.DefaultMaxTokens,
		MaxSources:   research.DefaultMaxSources,
		LogDir:       defaultLogDir(),
	}
}

// Load builds Settings for a process started in startDir. A missing project
// file or .env file is not an error; a malformed one is.
func Load(startDir string) (*Settings, error) {
	s := New()

	if err := s.applyProjectFile(startDir); err != nil {
		return nil, err
	}

	// .env fills gaps in the environment; real variables win because
	// godotenv never overwrites a set variable.
	_ = godotenv.Load()
	s.envPath, _ = filepath.Abs(".env")

	if err := s.applyEnv(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) applyProjectFile(startDir string) error {
	data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", ConfigFileName, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}

	if fc.BaseURL != "" {
		s.BaseURL = fc.BaseURL
	}
	if fc.Project != "" {
		s.Project = fc.Project
	}
	if fc.LogDir != "" {
		s.LogDir = fc.LogDir
	}
	if fc.Audit != nil {
		s.AuditEnabled = *fc.Audit
	}
	if fc.Provider == nil {
		return nil
	}

	var po providerOptions
	if err := mapstructure.Decode(fc.Provider, &po); err != nil {
		return fmt.Errorf("parsing %s provider section: %w", ConfigFileName, err)
	}
	if po.Kind != "" {
		kind, err := research.ParseProviderKind(po.Kind)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", ConfigFileName, err)
		}
		s.Provider = kind
	}
	if po.Model != "" {
		s.Model = po.Model
	}
	if po.MaxToolCalls != 0 {
		s.MaxToolCalls = po.MaxToolCalls
	}
	if po.MaxTokens != 0 {
		s.MaxTokens = po.MaxTokens
	}
	if po.MaxSources != 0 {
		s.MaxSources = po.MaxSources
	}
	if po.CodeInterpreter != nil {
		s.CodeInterpreter = *po.CodeInterpreter
	}
	return nil
}

func (s *Settings) applyEnv() error {
	s.APIKey = getEnv(EnvAPIKey, s.APIKey)
	s.BaseURL = getEnv(EnvBaseURL, s.BaseURL)
	s.Project = getEnv(EnvProject, s.Project)
	s.Model = getEnv(EnvModel, s.Model)
	s.LogDir = getEnv(EnvLogDir, s.LogDir)
	s.AuditEnabled = getEnvBool(EnvAudit, s.AuditEnabled)

	if v := os.Getenv(EnvProvider); v != "" {
		kind, err := research.ParseProviderKind(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvProvider, err)
		}
		s.Provider = kind
	}
	return nil
}

// Validate reports whether the settings can drive the configured provider.
// The manual provider needs no credential.
func (s *Settings) Validate() error {
	if s.Provider == research.KindManual {
		return nil
	}
	if s.APIKey == "" {
		return &MissingCredentialError{Variable: EnvAPIKey, EnvPath: s.envPath}
	}
	return nil
}

// ResearchDefaults projects the settings onto the service's request
// defaults. A configured model applies to whichever kind is active.
func (s *Settings) ResearchDefaults() research.Defaults {
	d := research.StandardDefaults()
	if s.Model != "" {
		d.ResponsesModel = s.Model
		d.ChatModel = s.Model
	}
	if s.MaxToolCalls > 0 {
		d.MaxToolCalls = s.MaxToolCalls
	}
	if s.MaxTokens > 0 {
		d.MaxTokens = s.MaxTokens
	}
	if s.MaxSources > 0 {
		d.MaxSources = s.MaxSources
	}
	return d
}

// MissingCredentialError is the only fatal configuration state: a
// provider-backed kind with no API key anywhere.
type MissingCredentialError struct {
	Variable string
	EnvPath  string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s is not set (checked the environment and %s)", e.Variable, e.EnvPath)
}

// KeyFingerprint returns the redacted key hint reported by test_connection.
func KeyFingerprint(key string) string {
	switch {
	case key == "":
		return "missing"
	case strings.Contains(key, "proj"):
		return "sk-proj..."
	default:
		return "sk-other..."
	}
}

// findConfigFile walks up from dir looking for the project file. Returns
// os.ErrNotExist when the walk finds nothing; real I/O errors propagate.
func findConfigFile(dir string) ([]byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for i := 0; i < maxConfigWalk; i++ {
		p := filepath.Join(dir, ConfigFileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, os.ErrNotExist
}

func defaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".deep-research", "logs")
	}
	return filepath.Join(home, ".deep-research", "logs")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

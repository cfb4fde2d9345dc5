package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kateleext/openai-deep-research-mcp/internal/config"
	"github.com/kateleext/openai-deep-research-mcp/internal/provider/manual"
	"github.com/kateleext/openai-deep-research-mcp/internal/provider/openai"
	"github.com/kateleext/openai-deep-research-mcp/internal/research"
	"github.com/kateleext/openai-deep-research-mcp/internal/session"
)

// loadSettings builds Settings from the working directory. Callers that
// need an API credential validate separately; check must run without one.
func loadSettings() (*config.Settings, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	return config.Load(wd)
}

// buildProvider selects the provider client for the configured kind.
func buildProvider(cfg *config.Settings) research.Provider {
	if cfg.Provider == research.KindManual {
		return manual.New()
	}

	var opts []openai.Option
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Project != "" {
		opts = append(opts, openai.WithProject(cfg.Project))
	}
	return openai.New(cfg.Provider, cfg.APIKey, opts...)
}

// buildService wires a research service from settings. The caller owns the
// returned audit logger and must close it; it is a NopLogger when audit
// logging is disabled.
func buildService(cfg *config.Settings, logger *slog.Logger) (*research.Service, session.Logger, error) {
	var audit session.Logger = session.NopLogger{}
	if cfg.AuditEnabled {
		jl, err := session.NewJSONLogger(session.DefaultLogPath(cfg.LogDir))
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("audit log enabled", "path", jl.Path())
		audit = jl
	}

	svc := research.NewService(research.NewRegistry(), buildProvider(cfg),
		research.WithAuditLogger(audit),
		research.WithLogger(logger),
		research.WithDefaults(cfg.ResearchDefaults()),
		research.WithCredential(cfg.APIKey != "", config.KeyFingerprint(cfg.APIKey)),
	)
	return svc, audit, nil
}

// effectiveModel resolves the model a start_research call would use when the
// caller does not name one.
func effectiveModel(cfg *config.Settings) string {
	d := cfg.ResearchDefaults()
	switch cfg.Provider {
	case research.KindChat:
		return d.ChatModel
	case research.KindManual:
		return d.Approach
	default:
		return d.ResponsesModel
	}
}

package jsonrpc

import (
	"context"
	"encoding/json"

	"github.com/kateleext/openai-deep-research-mcp/internal/research"
)

// HandlerContext carries the research service shared by all method handlers.
type HandlerContext struct {
	svc *research.Service
}

// NewHandlerContext creates a handler context around the given service.
func NewHandlerContext(svc *research.Service) *HandlerContext {
	return &HandlerContext{svc: svc}
}

// RegisterHandlers registers the research methods on the registry. These are
// the bare JSON-RPC methods; the MCP layer dispatches its tool calls to the
// same handlers.
func RegisterHandlers(registry *MethodRegistry, hctx *HandlerContext) {
	registry.Register("research.start", hctx.handleStart)
	registry.Register("research.result", hctx.handleResult)
	registry.Register("research.sessions", hctx.handleSessions)
	registry.Register("research.connection", hctx.handleConnection)
}

// StartResearchParams are the arguments of research.start. Model,
// MaxToolCalls, MaxTokens and UseCodeInterpreter apply to the provider-backed
// variants; Approach and MaxSources apply to the manual variant.
type StartResearchParams struct {
	Query              string `json:"query"`
	Model              string `json:"model"`
	MaxToolCalls       int    `json:"max_tool_calls"`
	MaxTokens          int    `json:"max_tokens"`
	UseCodeInterpreter bool   `json:"use_code_interpreter"`
	Approach           string `json:"approach"`
	MaxSources         int    `json:"max_sources"`
}

// GetResultParams are the arguments of research.result. Report is only
// meaningful for manual sessions, where it carries the externally produced
// findings back into the record.
type GetResultParams struct {
	ID     string `json:"id"`
	Report string `json:"report"`
}

func (h *HandlerContext) handleStart(ctx context.Context, params json.RawMessage) (any, *Error) {
	var p StartResearchParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, ErrInvalidParams(err.Error())
	}
	if p.Query == "" {
		return nil, ErrInvalidParams("query is required")
	}

	// The manual variant names its research style via approach; it rides in
	// the model slot of the request.
	model := p.Model
	if model == "" {
		model = p.Approach
	}

	result := h.svc.StartResearch(ctx, research.StartParams{
		Query:              p.Query,
		Model:              model,
		MaxToolCalls:       p.MaxToolCalls,
		MaxTokens:          p.MaxTokens,
		MaxSources:         p.MaxSources,
		UseCodeInterpreter: p.UseCodeInterpreter,
	})
	return result, nil
}

func (h *HandlerContext) handleResult(ctx context.Context, params json.RawMessage) (any, *Error) {
	var p GetResultParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, ErrInvalidParams(err.Error())
	}
	if p.ID == "" {
		return nil, ErrInvalidParams("id is required")
	}
	return h.svc.GetResult(ctx, p.ID, p.Report), nil
}

func (h *HandlerContext) handleSessions(_ context.Context, _ json.RawMessage) (any, *Error) {
	return h.svc.ListSessions(), nil
}

func (h *HandlerContext) handleConnection(ctx context.Context, _ json.RawMessage) (any, *Error) {
	return h.svc.TestConnection(ctx), nil
}

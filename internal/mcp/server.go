// Package mcp implements the Model Context Protocol surface: initialize,
// tools/list and tools/call over newline-delimited JSON-RPC. Tool calls are
// dispatched to the same handlers that back the bare JSON-RPC methods.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kateleext/openai-deep-research-mcp/internal/jsonrpc"
	"github.com/kateleext/openai-deep-research-mcp/internal/research"
)

const protocolVersion = "2024-11-05"

const serverName = "openai-deep-research"

// Server handles MCP protocol messages by delegating to the JSON-RPC handlers.
type Server struct {
	reg        *jsonrpc.MethodRegistry
	tools      []Tool
	dispatch   map[string]string
	validators toolValidators
	version    string
	logger     *slog.Logger
}

// NewServer creates an MCP server for the given research service. The exposed
// tool set follows the provider kind backing the service, and every tool's
// input schema is compiled here, once.
func NewServer(svc *research.Service, version string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	reg := jsonrpc.NewMethodRegistry()
	jsonrpc.RegisterHandlers(reg, jsonrpc.NewHandlerContext(svc))

	tools := ToolsDef(svc.Kind())
	dispatch := make(map[string]string, len(tools))
	for _, tool := range tools {
		dispatch[tool.Name] = methodForTool[tool.Name]
	}

	return &Server{
		reg:        reg,
		tools:      tools,
		dispatch:   dispatch,
		validators: compileToolSchemas(tools),
		version:    version,
		logger:     logger,
	}
}

// HandleRequest processes a single MCP JSON-RPC request and returns a
// response, or nil for notifications.
func (s *Server) HandleRequest(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgement, no response for notifications.
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	default:
		return &jsonrpc.Response{
			JSONRPC: "2.0",
			Error:   jsonrpc.ErrMethodNotFound(req.Method),
			ID:      req.ID,
		}
	}
}

// --- initialize ---

type initializeResult struct {
	ProtocolVersion string       `json:"protocolVersion"`
	Capabilities    capabilities `json:"capabilities"`
	ServerInfo      serverInfo   `json:"serverInfo"`
}

type capabilities struct {
	Tools *toolsCap `json:"tools,omitempty"`
}

type toolsCap struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (s *Server) handleInitialize(req *jsonrpc.Request) *jsonrpc.Response {
	return &jsonrpc.Response{
		JSONRPC: "2.0",
		Result: initializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    capabilities{Tools: &toolsCap{}},
			ServerInfo:      serverInfo{Name: serverName, Version: s.version},
		},
		ID: req.ID,
	}
}

// --- tools/list ---

type toolsListResult struct {
	Tools []Tool `json:"tools"`
}

func (s *Server) handleToolsList(req *jsonrpc.Request) *jsonrpc.Response {
	return &jsonrpc.Response{
		JSONRPC: "2.0",
		Result:  toolsListResult{Tools: s.tools},
		ID:      req.ID,
	}
}

// --- tools/call ---

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type toolsCallResult struct {
	Content []contentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// handleToolsCall validates the arguments against the tool's schema, runs the
// handler, and wraps the outcome in a text content block. Tool failures of
// every kind come back as isError results; only malformed tools/call params
// are protocol errors.
func (s *Server) handleToolsCall(ctx context.Context, req *jsonrpc.Request) *jsonrpc.Response {
	var p toolsCallParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return &jsonrpc.Response{
			JSONRPC: "2.0",
			Error:   jsonrpc.ErrInvalidParams(err.Error()),
			ID:      req.ID,
		}
	}

	result, rpcErr := s.dispatchTool(ctx, p.Name, p.Arguments)
	if rpcErr != nil {
		return s.toolError(req, errorText(rpcErr))
	}

	text, err := json.Marshal(result)
	if err != nil {
		return s.toolError(req, fmt.Sprintf("marshal error: %v", err))
	}

	return &jsonrpc.Response{
		JSONRPC: "2.0",
		Result: toolsCallResult{
			Content: []contentBlock{{Type: "text", Text: string(text)}},
		},
		ID: req.ID,
	}
}

// toolError wraps a failure message in an isError tool result.
func (s *Server) toolError(req *jsonrpc.Request, msg string) *jsonrpc.Response {
	return &jsonrpc.Response{
		JSONRPC: "2.0",
		Result: toolsCallResult{
			Content: []contentBlock{{Type: "text", Text: msg}},
			IsError: true,
		},
		ID: req.ID,
	}
}

// errorText flattens a JSON-RPC error into one line, keeping the detail that
// handlers attach as error data.
func errorText(rpcErr *jsonrpc.Error) string {
	if detail, ok := rpcErr.Data.(string); ok && detail != "" {
		return fmt.Sprintf("%s: %s", rpcErr.Message, detail)
	}
	return rpcErr.Message
}

// dispatchTool maps the MCP tool name to its JSON-RPC handler and runs it.
func (s *Server) dispatchTool(ctx context.Context, name string, args json.RawMessage) (any, *jsonrpc.Error) {
	method, ok := s.dispatch[name]
	if !ok {
		return nil, &jsonrpc.Error{Code: jsonrpc.CodeMethodNotFound, Message: fmt.Sprintf("unknown tool: %s", name)}
	}

	if violations := s.validators.validate(name, args); len(violations) > 0 {
		return nil, &jsonrpc.Error{
			Code:    jsonrpc.CodeInvalidParams,
			Message: fmt.Sprintf("invalid arguments for %s: %s", name, strings.Join(violations, "; ")),
		}
	}

	handler := s.reg.Lookup(method)
	if handler == nil {
		return nil, jsonrpc.ErrMethodNotFound(method)
	}
	if args == nil {
		args = json.RawMessage(`{}`)
	}

	s.logger.Debug("tool call", "tool", name, "method", method)
	return handler(ctx, args)
}

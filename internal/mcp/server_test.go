package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/kateleext/openai-deep-research-mcp/internal/jsonrpc"
	"github.com/kateleext/openai-deep-research-mcp/internal/research"
)

type fakeProvider struct {
	kind     research.ProviderKind
	createFn func(ctx context.Context, req research.TaskRequest) (*research.Task, error)
	fetchFn  func(ctx context.Context, handle string) (*research.Task, error)
	modelsFn func(ctx context.Context) ([]string, error)
}

func (f *fakeProvider) Kind() research.ProviderKind { return f.kind }

func (f *fakeProvider) CreateTask(ctx context.Context, req research.TaskRequest) (*research.Task, error) {
	if f.createFn == nil {
		return nil, errors.New("createFn not set")
	}
	return f.createFn(ctx, req)
}

func (f *fakeProvider) FetchTask(ctx context.Context, handle string) (*research.Task, error) {
	if f.fetchFn == nil {
		return nil, errors.New("fetchFn not set")
	}
	return f.fetchFn(ctx, handle)
}

func (f *fakeProvider) ListModels(ctx context.Context) ([]string, error) {
	if f.modelsFn == nil {
		return nil, errors.New("modelsFn not set")
	}
	return f.modelsFn(ctx)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(kind research.ProviderKind) *Server {
	provider := &fakeProvider{
		kind: kind,
		createFn: func(_ context.Context, _ research.TaskRequest) (*research.Task, error) {
			if kind == research.KindManual {
				return &research.Task{Status: research.StatusManualRequired, Instructions: "research externally"}, nil
			}
			return &research.Task{Handle: "resp_t1", Status: research.StatusPending}, nil
		},
	}
	svc := research.NewService(research.NewRegistry(), provider)
	return NewServer(svc, "1.2.3", quietLogger())
}

func callTool(t *testing.T, srv *Server, name string, args any) toolsCallResult {
	t.Helper()
	argsJSON, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	params, _ := json.Marshal(toolsCallParams{Name: name, Arguments: argsJSON})

	resp := srv.HandleRequest(context.Background(), &jsonrpc.Request{
		JSONRPC: "2.0",
		Method:  "tools/call",
		Params:  params,
		ID:      json.RawMessage(`7`),
	})
	if resp == nil {
		t.Fatal("expected response, got nil")
	}
	if resp.Error != nil {
		t.Fatalf("unexpected protocol error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result toolsCallResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	return result
}

func TestHandleInitialize(t *testing.T) {
	srv := newTestServer(research.KindResponses)
	req := &jsonrpc.Request{
		JSONRPC: "2.0",
		Method:  "initialize",
		Params:  json.RawMessage(`{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}`),
		ID:      json.RawMessage(`1`),
	}

	resp := srv.HandleRequest(context.Background(), req)
	if resp == nil {
		t.Fatal("expected response, got nil")
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result initializeResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.ProtocolVersion != protocolVersion {
		t.Errorf("protocolVersion = %q, want %q", result.ProtocolVersion, protocolVersion)
	}
	if result.ServerInfo.Name != "openai-deep-research" {
		t.Errorf("serverInfo.name = %q, want %q", result.ServerInfo.Name, "openai-deep-research")
	}
	if result.ServerInfo.Version != "1.2.3" {
		t.Errorf("serverInfo.version = %q, want %q", result.ServerInfo.Version, "1.2.3")
	}
	if result.Capabilities.Tools == nil {
		t.Error("expected tools capability")
	}
}

func toolNames(t *testing.T, srv *Server) []string {
	t.Helper()
	resp := srv.HandleRequest(context.Background(), &jsonrpc.Request{
		JSONRPC: "2.0",
		Method:  "tools/list",
		Params:  json.RawMessage(`{}`),
		ID:      json.RawMessage(`2`),
	})
	if resp == nil || resp.Error != nil {
		t.Fatalf("tools/list failed: %+v", resp)
	}
	data, _ := json.Marshal(resp.Result)
	var result toolsListResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	names := make([]string, 0, len(result.Tools))
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestHandleToolsList_Responses(t *testing.T) {
	srv := newTestServer(research.KindResponses)
	names := toolNames(t, srv)

	want := []string{"start_research", "get_result", "list_sessions", "test_connection"}
	if len(names) != len(want) {
		t.Fatalf("got %d tools %v, want %d", len(names), names, len(want))
	}
	for i, name := range want {
		if names[i] != name {
			t.Errorf("tool[%d] = %q, want %q", i, names[i], name)
		}
	}
}

func TestHandleToolsList_Manual(t *testing.T) {
	srv := newTestServer(research.KindManual)
	names := toolNames(t, srv)

	want := []string{"start_research", "get_result", "list_sessions"}
	if len(names) != len(want) {
		t.Fatalf("got %d tools %v, want %d", len(names), names, len(want))
	}
	for _, name := range names {
		if name == "test_connection" {
			t.Error("manual variant must not expose test_connection")
		}
	}

	// The manual start_research takes approach and max_sources.
	for _, tool := range ToolsDef(research.KindManual) {
		if tool.Name != "start_research" {
			continue
		}
		schema := string(tool.InputSchema)
		if !strings.Contains(schema, "approach") || !strings.Contains(schema, "max_sources") {
			t.Errorf("manual start_research schema missing approach/max_sources: %s", schema)
		}
		if strings.Contains(schema, "max_tool_calls") {
			t.Errorf("manual start_research schema should not take max_tool_calls")
		}
	}
}

func TestHandleToolsCall_StartResearch(t *testing.T) {
	srv := newTestServer(research.KindResponses)
	result := callTool(t, srv, "start_research", map[string]any{"query": "desalination costs"})

	if result.IsError {
		t.Fatalf("tool returned error: %s", result.Content[0].Text)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("expected 1 text content block, got %+v", result.Content)
	}

	var started research.StartResult
	if err := json.Unmarshal([]byte(result.Content[0].Text), &started); err != nil {
		t.Fatalf("unmarshal inner result: %v", err)
	}
	if started.ID != "resp_t1" {
		t.Errorf("id = %q, want resp_t1", started.ID)
	}
	if started.Status != research.StatusPending {
		t.Errorf("status = %q, want pending", started.Status)
	}
}

func TestHandleToolsCall_SchemaViolation(t *testing.T) {
	srv := newTestServer(research.KindResponses)
	result := callTool(t, srv, "start_research", map[string]any{
		"query":          "desalination costs",
		"max_tool_calls": "twenty",
	})

	if !result.IsError {
		t.Fatal("expected isError for schema violation")
	}
	if !strings.Contains(result.Content[0].Text, "max_tool_calls") {
		t.Errorf("error should name the offending field, got: %s", result.Content[0].Text)
	}
}

func TestHandleToolsCall_MissingRequiredField(t *testing.T) {
	srv := newTestServer(research.KindResponses)
	result := callTool(t, srv, "start_research", map[string]any{})

	if !result.IsError {
		t.Fatal("expected isError for missing query")
	}
	if !strings.Contains(result.Content[0].Text, "query") {
		t.Errorf("error should name the missing field, got: %s", result.Content[0].Text)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	srv := newTestServer(research.KindResponses)
	result := callTool(t, srv, "nonexistent", map[string]any{})

	if !result.IsError {
		t.Error("expected IsError=true for unknown tool")
	}
	if !strings.Contains(result.Content[0].Text, "unknown tool") {
		t.Errorf("unexpected error text: %s", result.Content[0].Text)
	}
}

func TestHandleToolsCall_ManualHidesConnection(t *testing.T) {
	srv := newTestServer(research.KindManual)
	result := callTool(t, srv, "test_connection", map[string]any{})

	if !result.IsError {
		t.Error("test_connection should be unknown for the manual variant")
	}
}

func TestHandleToolsCall_NotFoundIsData(t *testing.T) {
	srv := newTestServer(research.KindResponses)
	result := callTool(t, srv, "get_result", map[string]string{"id": "resp_ghost"})

	if result.IsError {
		t.Fatalf("not_found must be data, not an error: %s", result.Content[0].Text)
	}
	var view research.ResultView
	if err := json.Unmarshal([]byte(result.Content[0].Text), &view); err != nil {
		t.Fatalf("unmarshal inner result: %v", err)
	}
	if view.Status != research.StatusNotFound {
		t.Errorf("status = %q, want not_found", view.Status)
	}
}

func TestHandleToolsCall_NilArguments(t *testing.T) {
	srv := newTestServer(research.KindResponses)
	params, _ := json.Marshal(map[string]string{"name": "list_sessions"})

	resp := srv.HandleRequest(context.Background(), &jsonrpc.Request{
		JSONRPC: "2.0",
		Method:  "tools/call",
		Params:  params,
		ID:      json.RawMessage(`9`),
	})
	if resp == nil || resp.Error != nil {
		t.Fatalf("tools/call failed: %+v", resp)
	}

	data, _ := json.Marshal(resp.Result)
	var result toolsCallResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if result.IsError {
		t.Fatalf("tool returned error: %s", result.Content[0].Text)
	}

	var sessions research.SessionsResult
	if err := json.Unmarshal([]byte(result.Content[0].Text), &sessions); err != nil {
		t.Fatalf("unmarshal inner result: %v", err)
	}
	if len(sessions.Sessions) != 0 {
		t.Errorf("expected no sessions, got %d", len(sessions.Sessions))
	}
}

func TestHandleToolsCall_MalformedParams(t *testing.T) {
	srv := newTestServer(research.KindResponses)
	resp := srv.HandleRequest(context.Background(), &jsonrpc.Request{
		JSONRPC: "2.0",
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
		ID:      json.RawMessage(`10`),
	})
	if resp == nil {
		t.Fatal("expected response, got nil")
	}
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeInvalidParams {
		t.Fatalf("expected -32602 protocol error, got %+v", resp.Error)
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	srv := newTestServer(research.KindResponses)
	resp := srv.HandleRequest(context.Background(), &jsonrpc.Request{
		JSONRPC: "2.0",
		Method:  "unknown/method",
		Params:  json.RawMessage(`{}`),
		ID:      json.RawMessage(`6`),
	})
	if resp == nil {
		t.Fatal("expected response, got nil")
	}
	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != jsonrpc.CodeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, jsonrpc.CodeMethodNotFound)
	}
}

func TestServeStdio(t *testing.T) {
	initReq := `{"jsonrpc":"2.0","method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}},"id":1}` + "\n"
	listReq := `{"jsonrpc":"2.0","method":"tools/list","params":{},"id":2}` + "\n"

	input := strings.NewReader(initReq + listReq)
	var output bytes.Buffer

	srv := newTestServer(research.KindResponses)
	srv.ServeStdio(context.Background(), input, &output)

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected at least 2 response lines, got %d: %s", len(lines), output.String())
	}

	var initResp jsonrpc.Response
	if err := json.Unmarshal([]byte(lines[0]), &initResp); err != nil {
		t.Fatalf("unmarshal init response: %v", err)
	}
	if initResp.Error != nil {
		t.Fatalf("init error: %v", initResp.Error)
	}

	var listResp jsonrpc.Response
	if err := json.Unmarshal([]byte(lines[1]), &listResp); err != nil {
		t.Fatalf("unmarshal list response: %v", err)
	}
	if listResp.Error != nil {
		t.Fatalf("list error: %v", listResp.Error)
	}
}

func TestServeStdio_ParseError(t *testing.T) {
	input := strings.NewReader("{bad json\n")
	var output bytes.Buffer

	srv := newTestServer(research.KindResponses)
	srv.ServeStdio(context.Background(), input, &output)

	var resp jsonrpc.Response
	if err := json.Unmarshal(output.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != jsonrpc.CodeParseError {
		t.Fatalf("expected -32700, got %+v", resp.Error)
	}
}

func TestNotificationSkipped(t *testing.T) {
	notif := `{"jsonrpc":"2.0","method":"notifications/initialized","params":{}}` + "\n"
	input := strings.NewReader(notif)
	var output bytes.Buffer

	srv := newTestServer(research.KindResponses)
	srv.ServeStdio(context.Background(), input, &output)

	if output.Len() != 0 {
		t.Errorf("expected no output for notification, got: %s", output.String())
	}
}

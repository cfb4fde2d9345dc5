package mcp

import (
	"encoding/json"

	"github.com/kateleext/openai-deep-research-mcp/internal/research"
)

// Tool describes an MCP tool with its input schema.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// methodForTool maps tool names to the JSON-RPC methods that implement them.
var methodForTool = map[string]string{
	"start_research":  "research.start",
	"get_result":      "research.result",
	"list_sessions":   "research.sessions",
	"test_connection": "research.connection",
}

// ToolsDef returns the tool set for the given provider kind. The remote kinds
// take model and budget parameters and expose the connection diagnostic; the
// manual kind takes an approach and source budget instead, accepts a report
// on get_result, and has no connection to test.
func ToolsDef(kind research.ProviderKind) []Tool {
	switch kind {
	case research.KindManual:
		return manualTools()
	case research.KindChat:
		return chatTools()
	default:
		return responsesTools()
	}
}

func responsesTools() []Tool {
	return []Tool{
		{
			Name:        "start_research",
			Description: "Start a deep research task using OpenAI's Responses API",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query":                {"type": "string", "description": "The research question or query"},
					"model":                {"type": "string", "description": "Model to use (default: o4-mini-deep-research, can use o3-deep-research)"},
					"max_tool_calls":       {"type": "integer", "description": "Maximum number of tool calls (default: 50)"},
					"use_code_interpreter": {"type": "boolean", "description": "Whether to enable the code interpreter (default: false)"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        "get_result",
			Description: "Get the status and results of a research task",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string", "description": "The research task ID returned by start_research"}
				},
				"required": ["id"]
			}`),
		},
		listSessionsTool(),
		testConnectionTool(),
	}
}

func chatTools() []Tool {
	return []Tool{
		{
			Name:        "start_research",
			Description: "Start a research task using chat completions",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query":      {"type": "string", "description": "The research question"},
					"model":      {"type": "string", "description": "Model to use (default: gpt-4-turbo)"},
					"max_tokens": {"type": "integer", "description": "Maximum tokens in the response (default: 4000)"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        "get_result",
			Description: "Get the results of a research task",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id": {"type": "string", "description": "The research session ID"}
				},
				"required": ["id"]
			}`),
		},
		listSessionsTool(),
		testConnectionTool(),
	}
}

func manualTools() []Tool {
	return []Tool{
		{
			Name:        "start_research",
			Description: "Start a research task to be completed with external search tooling",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query":       {"type": "string", "description": "The research question"},
					"approach":    {"type": "string", "description": "Research approach (default: comprehensive)"},
					"max_sources": {"type": "integer", "description": "Number of quality sources to gather (default: 5)"}
				},
				"required": ["query"]
			}`),
		},
		{
			Name:        "get_result",
			Description: "Mark research as complete and store the findings, or read back a session",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"id":     {"type": "string", "description": "The research session ID"},
					"report": {"type": "string", "description": "Research report to store"}
				},
				"required": ["id"]
			}`),
		},
		listSessionsTool(),
	}
}

func listSessionsTool() Tool {
	return Tool{
		Name:        "list_sessions",
		Description: "List all research sessions",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {}
		}`),
	}
}

func testConnectionTool() Tool {
	return Tool{
		Name:        "test_connection",
		Description: "Test the OpenAI API connection",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {}
		}`),
	}
}

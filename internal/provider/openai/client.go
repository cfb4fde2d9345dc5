// Package openai drives research tasks against the OpenAI API. One client
// serves both remote strategies: background tasks on the Responses API and
// the synchronous chat completions fallback.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kateleext/openai-deep-research-mcp/internal/research"
)

// DefaultBaseURL is the public OpenAI endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Poll reads stay short; task creation and chat completion can run long.
const (
	DefaultGetTimeout  = 30 * time.Second
	DefaultPostTimeout = 120 * time.Second
)

const (
	researchPreamble = "You are a deep research assistant. Provide comprehensive, well-sourced research with citations."
	chatSystemPrompt = "You are a deep research assistant. Provide comprehensive, well-sourced research with citations. Search for multiple perspectives and provide detailed analysis."
)

// errorBodyLimit bounds how much of a failure body is kept.
const errorBodyLimit = 500

// APIError is a non-2xx reply from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client calls the OpenAI API. It is safe for concurrent use.
type Client struct {
	kind        research.ProviderKind
	apiKey      string
	project     string
	baseURL     string
	httpClient  *http.Client
	getTimeout  time.Duration
	postTimeout time.Duration
}

var _ research.Provider = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint, e.g. a proxy.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithProject sets the OpenAI-Project header on every request.
func WithProject(project string) Option {
	return func(c *Client) { c.project = project }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeouts overrides the per-call deadlines for reads and task creation.
func WithTimeouts(get, post time.Duration) Option {
	return func(c *Client) {
		c.getTimeout = get
		c.postTimeout = post
	}
}

// New returns a client for the given strategy. kind selects between
// research.KindResponses and research.KindChat; the manual kind has its own
// provider and never reaches this package.
func New(kind research.ProviderKind, apiKey string, opts ...Option) *Client {
	c := &Client{
		kind:        kind,
		apiKey:      apiKey,
		baseURL:     DefaultBaseURL,
		httpClient:  &http.Client{},
		getTimeout:  DefaultGetTimeout,
		postTimeout: DefaultPostTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Kind implements research.Provider.
func (c *Client) Kind() research.ProviderKind { return c.kind }

// CreateTask implements research.Provider.
func (c *Client) CreateTask(ctx context.Context, req research.TaskRequest) (*research.Task, error) {
	if c.kind == research.KindChat {
		return c.createChat(ctx, req)
	}
	return c.createResponses(ctx, req)
}

func (c *Client) createResponses(ctx context.Context, req research.TaskRequest) (*research.Task, error) {
	tools := []responseTool{{Type: "web_search_preview"}}
	if req.UseCodeInterpreter {
		tools = append(tools, responseTool{
			Type:      "code_interpreter",
			Container: &toolContainer{Type: "auto"},
		})
	}

	store := true
	payload := responsesRequest{
		Model:        req.Model,
		Input:        []any{},
		Text:         &textParams{Content: researchPreamble + "\n\nUser Query: " + req.Query},
		Reasoning:    &reasoningParams{Summary: "auto"},
		Tools:        tools,
		MaxToolCalls: req.MaxToolCalls,
		Store:        &store,
	}

	var raw rawResponse
	if err := c.do(ctx, http.MethodPost, "/responses", payload, &raw, c.postTimeout); err != nil {
		return nil, err
	}
	return normalize(&raw), nil
}

func (c *Client) createChat(ctx context.Context, req research.TaskRequest) (*research.Task, error) {
	payload := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: chatSystemPrompt},
			{Role: "user", Content: req.Query},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: 0.7,
	}

	var raw rawResponse
	if err := c.do(ctx, http.MethodPost, "/chat/completions", payload, &raw, c.postTimeout); err != nil {
		return nil, err
	}
	return normalize(&raw), nil
}

// FetchTask implements research.Provider.
func (c *Client) FetchTask(ctx context.Context, handle string) (*research.Task, error) {
	var raw rawResponse
	if err := c.do(ctx, http.MethodGet, "/responses/"+handle, nil, &raw, c.getTimeout); err != nil {
		return nil, err
	}
	return normalize(&raw), nil
}

// ListModels implements research.Provider.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var out modelsResponse
	if err := c.do(ctx, http.MethodGet, "/models", nil, &out, c.getTimeout); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.baseURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.project != "" {
		req.Header.Set("OpenAI-Project", c.project)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return newAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
}

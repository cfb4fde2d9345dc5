package openai

// responsesRequest creates a background research task on the Responses API.
type responsesRequest struct {
	Model        string           `json:"model"`
	Input        []any            `json:"input"`
	Text         *textParams      `json:"text,omitempty"`
	Reasoning    *reasoningParams `json:"reasoning,omitempty"`
	Tools        []responseTool   `json:"tools,omitempty"`
	MaxToolCalls int              `json:"max_tool_calls,omitempty"`
	Store        *bool            `json:"store,omitempty"`
}

type textParams struct {
	Content string `json:"content"`
}

type reasoningParams struct {
	Summary string `json:"summary,omitempty"`
}

type responseTool struct {
	Type      string         `json:"type"`
	Container *toolContainer `json:"container,omitempty"`
}

type toolContainer struct {
	Type string `json:"type"`
}

// chatRequest is the synchronous chat completions fallback.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float32       `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// rawResponse is the superset of both endpoints' reply shapes. Every nested
// field is optional; the normalizer owns all interpretation.
type rawResponse struct {
	ID      string         `json:"id"`
	Status  string         `json:"status"`
	Error   *responseError `json:"error"`
	Output  []outputItem   `json:"output"`
	Choices []chatChoice   `json:"choices"`
}

type responseError struct {
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// detail renders the error for the error_details field.
func (e *responseError) detail() string {
	switch {
	case e == nil:
		return ""
	case e.Code != "" && e.Message != "":
		return e.Code + ": " + e.Message
	case e.Message != "":
		return e.Message
	default:
		return e.Code
	}
}

type outputItem struct {
	ID      string         `json:"id,omitempty"`
	Type    string         `json:"type"`
	Status  string         `json:"status,omitempty"`
	Content []contentBlock `json:"content,omitempty"`
	Summary []summaryPart  `json:"summary,omitempty"`
}

type contentBlock struct {
	Type        string       `json:"type"`
	Text        string       `json:"text,omitempty"`
	Annotations []annotation `json:"annotations,omitempty"`
}

type annotation struct {
	Type       string `json:"type,omitempty"`
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	StartIndex *int   `json:"start_index,omitempty"`
	EndIndex   *int   `json:"end_index,omitempty"`
}

type summaryPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type modelsResponse struct {
	Data []modelInfo `json:"data"`
}

type modelInfo struct {
	ID string `json:"id"`
}

package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/kateleext/openai-deep-research-mcp/internal/jsonrpc"
)

// ServeStdio runs the MCP server on the given reader/writer (typically
// stdin/stdout). It reads newline-delimited JSON-RPC requests and writes
// responses until EOF. Logging goes to stderr; stdout carries only protocol
// frames.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) {
	transport := jsonrpc.NewTransport(r, w)

	for {
		if ctx.Err() != nil {
			return
		}

		req, rawJSON, err := transport.ReadRequest()
		if err != nil {
			if err == io.EOF {
				return
			}
			s.logger.Debug("mcp read error", "error", err)
			resp := &jsonrpc.Response{
				JSONRPC: "2.0",
				Error:   jsonrpc.ErrParseError(err.Error()),
				ID:      json.RawMessage("null"),
			}
			if writeErr := transport.WriteResponse(resp); writeErr != nil {
				s.logger.Debug("mcp write error", "error", writeErr)
				return
			}
			var malformed *jsonrpc.MalformedFrameError
			if errors.As(err, &malformed) {
				continue
			}
			return
		}

		// Requests without an "id" key are notifications and get no response.
		isNotification := !hasIDField(rawJSON)

		resp := s.HandleRequest(ctx, req)
		if resp == nil || isNotification {
			continue
		}

		if writeErr := transport.WriteResponse(resp); writeErr != nil {
			s.logger.Debug("mcp write error", "error", writeErr)
			return
		}
	}
}

// hasIDField checks whether the raw JSON contains an "id" key at the top level.
func hasIDField(raw []byte) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	_, exists := obj["id"]
	return exists
}

package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
)

// Server handles JSON-RPC 2.0 requests over a Transport.
type Server struct {
	registry *MethodRegistry
	logger   *slog.Logger
}

// NewServer creates a JSON-RPC server with the given method registry.
func NewServer(registry *MethodRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{registry: registry, logger: logger}
}

// ServeTransport reads requests from the transport and writes responses. It
// runs until the reader returns io.EOF, a read error occurs, or ctx is
// canceled. The context is handed to every handler, so canceling it also
// cancels in-flight provider calls.
func (s *Server) ServeTransport(ctx context.Context, t *Transport) {
	for {
		if ctx.Err() != nil {
			return
		}

		req, rawJSON, err := t.ReadRequest()
		if err != nil {
			if err == io.EOF {
				return
			}
			s.logger.Debug("read error", "error", err)
			ok := s.reply(t, &Response{
				JSONRPC: "2.0",
				Error:   ErrParseError(err.Error()),
				ID:      json.RawMessage("null"),
			})
			var malformed *MalformedFrameError
			if ok && errors.As(err, &malformed) {
				// One bad frame does not desync newline framing.
				continue
			}
			return
		}

		// Requests without an "id" key are notifications and MUST NOT be
		// answered, not even with an error.
		isNotification := !hasIDField(rawJSON)

		if req.JSONRPC != "2.0" {
			if isNotification {
				continue
			}
			if !s.reply(t, &Response{
				JSONRPC: "2.0",
				Error:   ErrInvalidRequest("jsonrpc field must be \"2.0\""),
				ID:      req.ID,
			}) {
				return
			}
			continue
		}

		handler := s.registry.Lookup(req.Method)
		if handler == nil {
			if isNotification {
				continue
			}
			if !s.reply(t, &Response{
				JSONRPC: "2.0",
				Error:   ErrMethodNotFound(req.Method),
				ID:      req.ID,
			}) {
				return
			}
			continue
		}

		s.logger.Debug("handling method", "method", req.Method)
		result, rpcErr := handler(ctx, req.Params)

		if isNotification {
			continue
		}

		resp := &Response{JSONRPC: "2.0", ID: req.ID}
		if rpcErr != nil {
			resp.Error = rpcErr
		} else {
			resp.Result = result
		}
		if !s.reply(t, resp) {
			return
		}
	}
}

// reply writes one response and reports whether the transport is still usable.
func (s *Server) reply(t *Transport, resp *Response) bool {
	if err := t.WriteResponse(resp); err != nil {
		s.logger.Debug("write error", "error", err)
		return false
	}
	return true
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

// ServeStdio runs the server on the given reader/writer pair.
func (s *Server) ServeStdio(ctx context.Context, stdin io.Reader, stdout io.Writer) {
	s.ServeTransport(ctx, NewTransport(stdin, stdout))
}

package jsonrpc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// maxFrameBytes bounds one newline-delimited frame. The largest legitimate
// frames are get_result calls carrying a pasted research report.
const maxFrameBytes = 16 << 20

// MalformedFrameError marks a complete frame that failed to parse as JSON.
// The stream itself is still aligned on newlines, so serving can continue.
type MalformedFrameError struct {
	Err error
}

func (e *MalformedFrameError) Error() string { return "invalid JSON: " + e.Err.Error() }

func (e *MalformedFrameError) Unwrap() error { return e.Err }

// Transport reads requests and writes responses over a byte stream.
type Transport struct {
	scanner *bufio.Scanner
	writer  io.Writer
	writeMu sync.Mutex
}

// NewTransport wraps an io.Reader and io.Writer as a JSON-RPC transport.
// Each JSON message is a single line terminated by newline.
func NewTransport(r io.Reader, w io.Writer) *Transport {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)
	return &Transport{
		scanner: scanner,
		writer:  w,
	}
}

// ReadRequest reads one JSON-RPC request. Blank lines are skipped and a
// trailing carriage return is tolerated, so hand-typed TCP sessions work.
// It also returns the raw JSON bytes so callers can inspect the original
// payload; for a malformed frame the raw bytes come back with a
// *MalformedFrameError.
func (t *Transport) ReadRequest() (*Request, []byte, error) {
	for {
		if !t.scanner.Scan() {
			if err := t.scanner.Err(); err != nil {
				if errors.Is(err, bufio.ErrTooLong) {
					return nil, nil, fmt.Errorf("frame exceeds %d bytes: %w", maxFrameBytes, err)
				}
				return nil, nil, err
			}
			return nil, nil, io.EOF
		}

		line := bytes.TrimSuffix(t.scanner.Bytes(), []byte("\r"))
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		// The scanner reuses its buffer on the next Scan.
		raw := append([]byte(nil), line...)

		var req Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return nil, raw, &MalformedFrameError{Err: err}
		}
		return &req, raw, nil
	}
}

// WriteResponse sends a JSON-RPC response (newline-delimited).
func (t *Transport) WriteResponse(resp *Response) error {
	return t.writeFrame(resp)
}

// WriteNotification sends a JSON-RPC notification (newline-delimited).
func (t *Transport) WriteNotification(notif *Notification) error {
	return t.writeFrame(notif)
}

// writeFrame marshals v and writes it as one line. Only the write itself is
// serialized, so concurrent frames never interleave.
func (t *Transport) writeFrame(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err = t.writer.Write(data)
	return err
}

// TCPListener listens for TCP connections and serves each with the given server.
type TCPListener struct {
	listener net.Listener
	server   *Server
}

// NewTCPListener creates a TCP listener on the given address.
func NewTCPListener(addr string, server *Server) (*TCPListener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	return &TCPListener{listener: ln, server: server}, nil
}

// Addr returns the listener's network address.
func (tl *TCPListener) Addr() net.Addr {
	return tl.listener.Addr()
}

// Serve accepts connections in a loop. It blocks until the listener is
// closed. Canceling ctx closes every open connection, which unblocks their
// serve loops.
func (tl *TCPListener) Serve(ctx context.Context) error {
	for {
		conn, err := tl.listener.Accept()
		if err != nil {
			return err
		}
		go func() {
			defer conn.Close() //nolint:errcheck
			stop := context.AfterFunc(ctx, func() { conn.Close() }) //nolint:errcheck
			defer stop()
			tl.server.ServeTransport(ctx, NewTransport(conn, conn))
		}()
	}
}

// Close shuts down the TCP listener.
func (tl *TCPListener) Close() error {
	return tl.listener.Close()
}

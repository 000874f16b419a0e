package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"sync"

	"github.com/ktr0731/mcp-server-weather/protocol"
	"golang.org/x/exp/jsonrpc2"
)

var minimumLogLevel = new(slog.LevelVar)

// Verify that Handler implements jsonrpc2.Handler and jsonrpc2.Preempter interfaces
var (
	_ jsonrpc2.Handler   = (*Handler)(nil)
	_ jsonrpc2.Preempter = (*Handler)(nil)
)

// Handler is the main handler for MCP server implementation.
// Note that exported fields are exported for accessing by generated code. Do not access/modify them directly.
type Handler struct {
	Capabilities   protocol.ServerCapabilities
	Implementation protocol.Implementation
	Instructions   string

	Prompts       []protocol.Prompt
	PromptHandler serverHandler[protocol.GetPromptRequestParams]

	Tools       []protocol.Tool
	ToolHandler serverHandler[protocol.CallToolRequestParams]

	ResourceHandler   ServerResourceHandler
	ResourceTemplates []ResourceTemplate

	// cancelFuncByRequestID is a map of cancellation functions for in-flight requests.
	cancelFuncByRequestID sync.Map
}

// serverHandler is a common interface for various handlers.
type serverHandler[Req any] interface {
	Handle(ctx context.Context, method string, req Req) (any, error)
}

// Handle handles an incoming request.
func (h *Handler) Handle(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	cctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if req.IsCall() {
		id := requestIDKey(req.ID.Raw())
		h.cancelFuncByRequestID.Store(id, cancel)
		defer h.cancelFuncByRequestID.Delete(id)
	}

	logger := Logger(cctx, "mcp")

	switch req.Method {
	case protocol.MethodPing:
		return struct{}{}, nil
	// Lifecycle: https://spec.modelcontextprotocol.io/specification/2025-03-26/basic/lifecycle/
	case protocol.MethodInitialize:
		var params protocol.InitializeRequestParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, jsonrpc2.ErrInvalidParams
		}
		protocolVersion := params.ProtocolVersion
		if _, ok := protocol.AvailableProtocolVersions[protocolVersion]; !ok {
			protocolVersion = protocol.LatestProtocolVersion
		}

		return &protocol.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities:    h.Capabilities,
			ServerInfo:      h.Implementation,
			Instructions:    h.Instructions,
		}, nil
	case protocol.MethodNotificationsInitialized:
		return nil, nil
	case protocol.MethodPromptsList:
		if h.Capabilities.Prompts == nil {
			logger.Error("prompts/list is not supported")
			return nil, jsonrpc2.ErrMethodNotFound
		}
		return &listPromptsResult{Prompts: h.Prompts}, nil
	case protocol.MethodPromptsGet:
		if h.PromptHandler == nil {
			logger.Error("prompts/get is not supported")
			return nil, jsonrpc2.ErrMethodNotFound
		}
		var params protocol.GetPromptRequestParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			logger.Error("failed to unmarshal params", "error", err)
			return nil, jsonrpc2.ErrInvalidParams
		}
		res, err := h.PromptHandler.Handle(cctx, req.Method, params)
		if err != nil {
			return nil, fmt.Errorf("failed to handle %s: %w", req.Method, err)
		}
		return res, nil
	case protocol.MethodResourcesList:
		if h.ResourceHandler == nil {
			logger.Error("resources/list is not supported")
			return nil, jsonrpc2.ErrMethodNotFound
		}

		cursor, err := nextCursorFromRequest(req)
		if err != nil {
			return nil, fmt.Errorf("failed to get next cursor: %w", err)
		}
		cctx = context.WithValue(cctx, nextCursorKey{}, cursor)

		res, err := h.ResourceHandler.HandleResourcesList(cctx)
		if err != nil {
			return nil, fmt.Errorf("failed to handle %s: %w", req.Method, err)
		}
		return res, nil
	case protocol.MethodResourcesRead:
		if h.ResourceHandler == nil {
			logger.Error("resources/read is not supported")
			return nil, jsonrpc2.ErrMethodNotFound
		}
		var params ReadResourceRequest
		if err := json.Unmarshal(req.Params, &params); err != nil {
			logger.Error("failed to unmarshal params", "error", err)
			return nil, jsonrpc2.ErrInvalidParams
		}
		res, err := h.ResourceHandler.HandleResourcesRead(cctx, &params)
		if err != nil {
			return nil, fmt.Errorf("failed to handle %s: %w", req.Method, err)
		}
		return res, nil
	case protocol.MethodResourceTemplatesList:
		if h.Capabilities.Resources == nil {
			logger.Error("resources/templates/list is not supported")
			return nil, jsonrpc2.ErrMethodNotFound
		}

		return &listResourceTemplatesResult{
			ResourceTemplates: h.ResourceTemplates,
		}, nil
	case protocol.MethodToolsList:
		if h.Capabilities.Tools == nil {
			logger.Error("tools/list is not supported")
			return nil, jsonrpc2.ErrMethodNotFound
		}
		return &listToolsResult{
			Tools: h.Tools,
		}, nil
	case protocol.MethodToolsCall:
		if h.ToolHandler == nil {
			logger.Error("tools/call is not supported")
			return nil, jsonrpc2.ErrMethodNotFound
		}
		var params protocol.CallToolRequestParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			logger.Error("failed to unmarshal params", "error", err)
			return nil, jsonrpc2.ErrInvalidParams
		}

		res, err := h.ToolHandler.Handle(cctx, req.Method, params)
		if err != nil {
			return nil, fmt.Errorf("failed to handle %s: %w", req.Method, err)
		}
		return res, nil
	case protocol.MethodLoggingSetLevel:
		var params protocol.LoggingSetLevelRequestParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			logger.Error("failed to unmarshal params", "error", err)
			return nil, jsonrpc2.ErrInvalidParams
		}
		minimumLogLevel.Set(slog.Level(params.Level))
		return struct{}{}, nil
	case protocol.MethodNotificationsCancelled:
		return h.cancel(cctx, req)
	default:
		logger.Error("unknown method", "method", req.Method)
		return nil, jsonrpc2.ErrMethodNotFound
	}
}

// Preempt handles cancellation notifications ahead of the in-order request
// queue so that they can reach a tool call that is still running.
func (h *Handler) Preempt(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	if req.Method != protocol.MethodNotificationsCancelled {
		return nil, jsonrpc2.ErrNotHandled
	}
	return h.cancel(ctx, req)
}

func (h *Handler) cancel(ctx context.Context, req *jsonrpc2.Request) (any, error) {
	var params protocol.NotificationsCancelledRequestParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		Logger(ctx, "mcp").Error("failed to unmarshal params", "error", err)
		return nil, jsonrpc2.ErrInvalidParams
	}
	id, err := cancelledRequestIDKey(params.RequestID)
	if err != nil {
		Logger(ctx, "mcp").Error("invalid request id", "error", err)
		return nil, jsonrpc2.ErrInvalidParams
	}
	if v, ok := h.cancelFuncByRequestID.LoadAndDelete(id); ok {
		v.(context.CancelFunc)()
	}
	return nil, nil
}

// requestIDKey normalizes a jsonrpc2 ID so that numeric and string IDs can be
// matched against the requestId of a cancellation notification.
func requestIDKey(raw any) string {
	switch v := raw.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func cancelledRequestIDKey(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("requestId must be a string or an integer: %s", string(raw))
	}
	return strconv.FormatInt(n, 10), nil
}

type stdio struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (s stdio) Read(p []byte) (n int, err error)  { return s.in.Read(p) }
func (s stdio) Write(p []byte) (n int, err error) { return s.out.Write(p) }
func (s stdio) Close() error                      { return errors.Join(s.in.Close(), s.out.Close()) }

// syncWriter serializes writes so that responses and log notifications sharing
// stdout never interleave within a line.
type syncWriter struct {
	mu sync.Mutex
	w  io.WriteCloser
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *syncWriter) Close() error { return s.w.Close() }

type stdioDialer struct{ stdio }

func (d *stdioDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) { return d.stdio, nil }

// stdioListener hands out its stdio pair exactly once. Later calls to Accept
// block until that connection is closed and then report io.EOF, which stops
// the jsonrpc2 server.
type stdioListener struct {
	stdio

	acceptOnce sync.Once
	closeOnce  sync.Once
	done       chan struct{}
}

type stdioCloser struct {
	stdio
	close func() error
}

func (c *stdioCloser) Close() error { return c.close() }

func (l *stdioListener) Accept(ctx context.Context) (io.ReadWriteCloser, error) {
	var conn io.ReadWriteCloser
	l.acceptOnce.Do(func() {
		conn = &stdioCloser{stdio: l.stdio, close: l.Close}
	})
	if conn != nil {
		return conn, nil
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.done:
		return nil, io.EOF
	}
}

func (l *stdioListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.stdio.Close()
	})
	return err
}

func (l *stdioListener) Dialer() jsonrpc2.Dialer { return &stdioDialer{stdio: l.stdio} }

// framer reads raw JSON values and writes newline-delimited messages as required
// by the stdio transport.
type framer struct {
	jsonrpc2.Framer
}

func (f *framer) Writer(rw io.Writer) jsonrpc2.Writer {
	return &framerWriter{rw: rw}
}

type framerWriter struct {
	rw io.Writer
}

func (w *framerWriter) Write(ctx context.Context, msg jsonrpc2.Message) (int64, error) {
	data, err := jsonrpc2.EncodeMessage(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to encode message: %w", err)
	}
	// A single Write keeps the message and its delimiter together.
	n, err := w.rw.Write(append(data, '\n'))
	return int64(n), err
}

// binder is an implementation of jsonrpc2.Binder
type binder struct {
	handler *Handler
}

func (b *binder) Bind(ctx context.Context, conn *jsonrpc2.Connection) (jsonrpc2.ConnectionOptions, error) {
	return jsonrpc2.ConnectionOptions{
		Framer:    &framer{Framer: jsonrpc2.RawFramer()},
		Preempter: b.handler,
		Handler:   b.handler,
	}, nil
}

// StdioTransportOptions configures NewStdioTransport.
type StdioTransportOptions struct {
	// Stdin and Stdout override os.Stdin and os.Stdout.
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

// NewStdioTransport creates a new stdio transport. Only one connection is
// served since there is only one stdin.
//
// See https://modelcontextprotocol.io/specification/2025-03-26/basic/transports#stdio
func NewStdioTransport(
	ctx context.Context,
	handler *Handler,
	opts *StdioTransportOptions,
) (context.Context, jsonrpc2.Listener, jsonrpc2.Binder) {
	if opts == nil {
		opts = &StdioTransportOptions{}
	}
	in, out := opts.Stdin, opts.Stdout
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	sw := &syncWriter{w: out}

	var w io.Writer = io.Discard
	if handler.Capabilities.Logging != nil {
		w = sw
	}
	ctx = SetLogWriterToContext(ctx, w)

	listener := &stdioListener{
		stdio: stdio{in: in, out: sw},
		done:  make(chan struct{}),
	}
	binder := &binder{handler: handler}

	return ctx, listener, binder
}

// logRecord represents a log record to be sent as a notification.
type logRecord struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  map[string]any `json:"params"`
}

// logHandler struct manages logging for MCP
type logHandler struct {
	slog.Handler

	name string

	mu      *sync.Mutex
	encoder *json.Encoder
	buf     *bytes.Buffer
}

func (s *logHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	new := *s
	new.Handler = s.Handler.WithAttrs(attrs)
	return &new
}

func (s *logHandler) WithGroup(name string) slog.Handler {
	new := *s
	new.Handler = s.Handler.WithGroup(name)
	return &new
}

func (s *logHandler) Handle(ctx context.Context, r slog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Handler.Handle(ctx, r); err != nil {
		return fmt.Errorf("failed to handle log: %w", err)
	}
	data := bytes.TrimSpace(s.buf.Bytes())
	defer s.buf.Reset()

	return s.encoder.Encode(logRecord{
		JSONRPC: "2.0",
		Method:  protocol.MethodNotificationsMessage,
		Params: map[string]any{
			"level":  levelNameForLogging(r.Level),
			"logger": s.name,
			"data":   json.RawMessage(data),
		},
	})
}

// logWriterKey is a key for retrieving the log writer from the context
type logWriterKey struct{}

// SetLogWriterToContext sets the log writer to the context. This function is intended to be called by functions that creates a new transport.
func SetLogWriterToContext(ctx context.Context, w io.Writer) context.Context {
	return context.WithValue(ctx, logWriterKey{}, w)
}

// Logger creates a new logger with the given name.
// Note that this logger is for communication with the client, not for internal logging.
// The logged messages are sent as notifications to the client.
// If the context carries no log writer, records are discarded.
//
// See https://modelcontextprotocol.io/specification/2025-03-26/server/utilities/logging#logging
func Logger(ctx context.Context, name string) *slog.Logger {
	writer, ok := ctx.Value(logWriterKey{}).(io.Writer)
	if !ok {
		writer = io.Discard
	}
	return slog.New(newLogHandler(name, writer))
}

// levelNameForLogging maps a slog level to a MCP logging level name.
func levelNameForLogging(level slog.Level) string {
	switch {
	case level <= slog.LevelDebug:
		return "debug"
	case level <= slog.LevelInfo:
		return "info"
	case level <= slog.Level(protocol.LevelNotice):
		return "notice"
	case level <= slog.LevelWarn:
		return "warning"
	case level <= slog.LevelError:
		return "error"
	case level <= slog.Level(protocol.LevelCritical):
		return "critical"
	case level <= slog.Level(protocol.LevelAlert):
		return "alert"
	default:
		return "emergency"
	}
}

// newLogHandler creates a new log handler.
func newLogHandler(name string, w io.Writer) *logHandler {
	buf := &bytes.Buffer{}
	handler := &logHandler{
		name:    name,
		encoder: json.NewEncoder(w),
		buf:     buf,
		mu:      &sync.Mutex{},
		Handler: slog.NewJSONHandler(buf, &slog.HandlerOptions{
			Level: minimumLogLevel,
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				if len(groups) != 0 {
					return a
				}

				switch a.Key {
				case slog.TimeKey, slog.LevelKey, slog.SourceKey:
					return slog.Attr{}
				default:
					return a
				}
			},
		}),
	}
	return handler
}

// nextCursorKey is a key for retrieving the cursor value from the context
type nextCursorKey struct{}

// nextCursorFromRequest retrieves the cursor value from the request
func nextCursorFromRequest(req *jsonrpc2.Request) (string, error) {
	if len(req.Params) == 0 {
		return "", nil
	}
	var p protocol.PaginationParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return "", fmt.Errorf("failed to unmarshal pagination params: %w", err)
	}
	return p.Cursor, nil
}

// NextCursor returns the next cursor from the context.
// If there is no next cursor or the API doesn't support pagination, it returns false.
func NextCursor(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(nextCursorKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

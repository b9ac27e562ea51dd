// Package mockserver implements a small configurable MCP endpoint used to
// exercise the harness end to end. It speaks newline-delimited JSON-RPC 2.0
// over a unix socket or stdio and can be told to misbehave per method, which
// is how the runner's failure classification gets tested against a live
// connection instead of canned byte slices.
package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"mcpdiag/pkg/logging"
)

// Behavior selects how the server answers a method.
type Behavior string

const (
	// BehaviorNormal answers with a conforming envelope.
	BehaviorNormal Behavior = "normal"
	// BehaviorWrongID answers with a correlation id that does not match the
	// request.
	BehaviorWrongID Behavior = "wrong-id"
	// BehaviorSilent accepts the request and never answers.
	BehaviorSilent Behavior = "silent"
	// BehaviorGarbage answers with bytes that are not JSON.
	BehaviorGarbage Behavior = "garbage"
	// BehaviorAmbiguous answers with both result and error members set.
	BehaviorAmbiguous Behavior = "ambiguous"
	// BehaviorNoResult answers with neither result nor error.
	BehaviorNoResult Behavior = "no-result"
)

// ProtocolVersion is the MCP revision the mock advertises.
const ProtocolVersion = "2024-11-05"

// Server is a mock MCP endpoint. The zero value is not usable; construct
// with New.
type Server struct {
	info      mcp.Implementation
	tools     []mcp.Tool
	behaviors map[string]Behavior
	callText  func(tool string, args map[string]any) (string, bool)
}

// Option configures a Server.
type Option func(*Server)

// WithBehavior makes the server misbehave for one method.
func WithBehavior(method string, b Behavior) Option {
	return func(s *Server) { s.behaviors[method] = b }
}

// WithTools replaces the advertised tool set.
func WithTools(tools ...mcp.Tool) Option {
	return func(s *Server) { s.tools = tools }
}

// WithCallText overrides the tools/call text payload. Returning false marks
// the tool unknown.
func WithCallText(fn func(tool string, args map[string]any) (string, bool)) Option {
	return func(s *Server) { s.callText = fn }
}

// New builds a mock server advertising the given identity. By default it
// carries one documentation-query tool and answers every method normally.
func New(name string, opts ...Option) *Server {
	s := &Server{
		info: mcp.Implementation{
			Name:    name,
			Version: "1.0.0",
		},
		tools: []mcp.Tool{
			mcp.NewTool("query_nixos_docs",
				mcp.WithDescription("Query NixOS documentation for an option or service"),
				mcp.WithString("query",
					mcp.Required(),
					mcp.Description("Option path or free-text query"),
				),
			),
		},
		behaviors: make(map[string]Behavior),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListenUnix binds the server's socket, replacing a stale file from a
// previous run.
func (s *Server) ListenUnix(socketPath string) (net.Listener, error) {
	if err := os.Remove(socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket %s: %w", socketPath, err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	return ln, nil
}

// Serve accepts connections until the listener closes or the context is
// cancelled. Each connection is handled on its own goroutine.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			s.handleStream(ctx, conn, conn)
		}()
	}
}

// ServeStdio runs the protocol loop over the process's standard streams.
func (s *Server) ServeStdio(ctx context.Context) error {
	s.handleStream(ctx, os.Stdin, os.Stdout)
	return nil
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  map[string]any  `json:"params"`
}

func (s *Server) handleStream(ctx context.Context, in io.Reader, out io.Writer) {
	decoder := json.NewDecoder(in)
	encoder := json.NewEncoder(out)

	for {
		if ctx.Err() != nil {
			return
		}
		var req request
		if err := decoder.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logging.Debug("mockserver", "decode request: %v", err)
			}
			return
		}
		logging.Debug("mockserver", "received %s (id=%s)", req.Method, string(req.ID))

		switch s.behaviorFor(req.Method) {
		case BehaviorSilent:
			continue
		case BehaviorGarbage:
			io.WriteString(out, "this is not json\n")
			continue
		case BehaviorWrongID:
			s.write(encoder, s.answer(mangleID(req.ID), req))
			continue
		case BehaviorAmbiguous:
			s.write(encoder, map[string]any{
				"jsonrpc": "2.0",
				"id":      req.ID,
				"result":  map[string]any{},
				"error":   map[string]any{"code": -32603, "message": "internal error"},
			})
			continue
		case BehaviorNoResult:
			s.write(encoder, map[string]any{
				"jsonrpc": "2.0",
				"id":      req.ID,
			})
			continue
		}

		s.write(encoder, s.answer(req.ID, req))
	}
}

func (s *Server) behaviorFor(method string) Behavior {
	if b, ok := s.behaviors[method]; ok {
		return b
	}
	return BehaviorNormal
}

func (s *Server) write(encoder *json.Encoder, envelope map[string]any) {
	if err := encoder.Encode(envelope); err != nil {
		logging.Debug("mockserver", "write response: %v", err)
	}
}

func (s *Server) answer(id json.RawMessage, req request) map[string]any {
	switch req.Method {
	case "initialize":
		return resultEnvelope(id, map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": s.info,
		})
	case "tools/list":
		return resultEnvelope(id, map[string]any{
			"tools": s.tools,
		})
	case "tools/call":
		return s.answerToolCall(id, req.Params)
	default:
		return errorEnvelope(id, -32601, "method not found: "+req.Method)
	}
}

func (s *Server) answerToolCall(id json.RawMessage, params map[string]any) map[string]any {
	name, _ := params["name"].(string)
	args, _ := params["arguments"].(map[string]any)

	text, ok := s.toolText(name, args)
	if !ok {
		return errorEnvelope(id, -32602, "unknown tool: "+name)
	}
	return resultEnvelope(id, map[string]any{
		"content": []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	})
}

func (s *Server) toolText(name string, args map[string]any) (string, bool) {
	if s.callText != nil {
		return s.callText(name, args)
	}
	for _, tool := range s.tools {
		if tool.Name == name {
			query, _ := args["query"].(string)
			return fmt.Sprintf("Documentation for %q: option of type boolean, default false.", query), true
		}
	}
	return "", false
}

func resultEnvelope(id json.RawMessage, result any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	}
}

func errorEnvelope(id json.RawMessage, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	}
}

// mangleID shifts a numeric id so it never matches the request. Non-numeric
// ids are replaced wholesale.
func mangleID(id json.RawMessage) json.RawMessage {
	var n int64
	if err := json.Unmarshal(id, &n); err == nil {
		return json.RawMessage(fmt.Sprintf("%d", n+1000))
	}
	return json.RawMessage(`"mismatched"`)
}

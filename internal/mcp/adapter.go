// Package mcp implements the transport-independent core of the MCP server:
// JSON-RPC message types, the tool registry, and the protocol adapter that
// validates and executes tool calls. Transport bindings (stdio, SSE) decode
// inbound records, hand them to Adapter.Dispatch, and write the returned
// response on their own channel.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Pipeline fetches a URL and renders it to Markdown. It is the adapter's
// only collaborator with side effects; implementations must be safe for
// concurrent use.
type Pipeline interface {
	FetchMarkdown(ctx context.Context, url string) (string, error)
}

// Adapter dispatches JSON-RPC requests against a fixed tool registry.
// It holds no mutable state, so one instance can serve any number of
// concurrent sessions.
type Adapter struct {
	registry *Registry
	info     ServerInfo
	logger   *slog.Logger
}

// NewAdapter composes an adapter from its registry and server identity.
func NewAdapter(info ServerInfo, registry *Registry, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{registry: registry, info: info, logger: logger}
}

// Info returns the identity echoed during the initialize handshake.
func (a *Adapter) Info() ServerInfo { return a.info }

// Tools returns the registered tool descriptors in stable order.
func (a *Adapter) Tools() []Tool { return a.registry.List() }

// Invoke validates and executes one tool call. Every failure path is
// represented as a ToolResult with IsError set; Invoke never returns a Go
// error and never panics across the adapter boundary, so all transports
// share one translation rule.
func (a *Adapter) Invoke(ctx context.Context, name string, args map[string]any) ToolResult {
	e, ok := a.registry.lookup(name)
	if !ok {
		a.logger.Warn("unknown tool requested", "tool", name)
		return Failure("Unknown tool: " + name)
	}
	if args == nil {
		args = map[string]any{}
	}
	if msg := e.validate(args); msg != "" {
		a.logger.Warn("tool arguments rejected", "tool", name, "reason", msg)
		return Failure(msg)
	}
	res := e.handler(ctx, args)
	if res.IsError {
		a.logger.Warn("tool call failed", "tool", name)
	} else {
		a.logger.Info("tool call succeeded", "tool", name)
	}
	return res
}

// Dispatch translates one raw JSON-RPC record into a response. It returns
// nil for notifications, which expect no reply. Tool failures are carried
// inside the result (isError), not as JSON-RPC errors; JSON-RPC errors are
// reserved for protocol-level faults such as malformed records or unknown
// methods.
func (a *Adapter) Dispatch(ctx context.Context, raw []byte) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		a.logger.Warn("malformed request record", "error", err)
		return errorResponse(nil, codeParseError, "parse error", err.Error())
	}
	if isNotification(req) {
		return nil
	}
	if req.Method == "" {
		return errorResponse(req.ID, codeInvalidRequest, "invalid request", "missing method")
	}

	switch req.Method {
	case "initialize":
		return resultResponse(req.ID, map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": a.info,
		})
	case "ping":
		return resultResponse(req.ID, map[string]any{})
	case "tools/list":
		return resultResponse(req.ID, map[string]any{"tools": a.Tools()})
	case "tools/call":
		var params callToolParams
		if len(req.Params) == 0 {
			return errorResponse(req.ID, codeInvalidParams, "invalid params", "missing params")
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, codeInvalidParams, "invalid params", err.Error())
		}
		return resultResponse(req.ID, a.Invoke(ctx, params.Name, params.Arguments))
	default:
		return errorResponse(req.ID, codeMethodNotFound, "method not found", req.Method)
	}
}

func isNotification(req Request) bool {
	return len(req.ID) == 0 || string(req.ID) == "null"
}

func resultResponse(id json.RawMessage, result any) *Response {
	return &Response{JSONRPC: "2.0", ID: id, Result: result}
}

func errorResponse(id json.RawMessage, code int, message string, data any) *Response {
	if id == nil {
		// JSON-RPC 2.0: when the request id cannot be determined, as on
		// a parse error, the response carries an explicit null id.
		id = json.RawMessage("null")
	}
	return &Response{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message, Data: data}}
}

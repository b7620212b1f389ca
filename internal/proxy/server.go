// Copyright (c) 2025 Vendorbridge
// Licensed under the MIT License. See LICENSE file in the project root for details.

package proxy

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"vendorbridge/cli/internal/bridge/model"
)

// Server exposes a Proxy as an MCP server. The tool set belongs to the
// orchestrator and may change between listings, so tools/list and
// tools/call are answered by middleware instead of registered handlers.
type Server struct {
	proxy *Proxy
	mcp   *mcp.Server
	log   *zap.Logger
}

// NewServer wraps p in an MCP server identifying itself as name/version.
func NewServer(p *Proxy, name, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		proxy: p,
		mcp:   mcp.NewServer(&mcp.Implementation{Name: name, Version: version}, nil),
		log:   log,
	}
	s.mcp.AddReceivingMiddleware(s.middleware)
	return s
}

// MCP returns the underlying server, for connecting custom transports.
func (s *Server) MCP() *mcp.Server { return s.mcp }

// Run serves over stdin/stdout until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) middleware(next mcp.MethodHandler) mcp.MethodHandler {
	return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		switch method {
		case "initialize":
			res, err := next(ctx, method, req)
			if r, ok := res.(*mcp.InitializeResult); ok && err == nil {
				// no tools are registered statically, so advertise them here
				if r.Capabilities == nil {
					r.Capabilities = &mcp.ServerCapabilities{}
				}
				if r.Capabilities.Tools == nil {
					r.Capabilities.Tools = &mcp.ToolCapabilities{}
				}
			}
			return res, err
		case "tools/list":
			return s.listTools(ctx), nil
		case "tools/call":
			return s.callTool(ctx, req), nil
		}
		return next(ctx, method, req)
	}
}

func (s *Server) listTools(ctx context.Context) *mcp.ListToolsResult {
	descs := s.proxy.ListTools(ctx)
	tools := make([]*mcp.Tool, 0, len(descs))
	for _, d := range descs {
		tools = append(tools, Tool(d))
	}
	return &mcp.ListToolsResult{Tools: tools}
}

type callParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (s *Server) callTool(ctx context.Context, req mcp.Request) *mcp.CallToolResult {
	var params callParams
	raw, err := json.Marshal(req.GetParams())
	if err == nil {
		err = json.Unmarshal(raw, &params)
	}
	if err != nil {
		s.log.Error("decode tools/call params", zap.Error(err))
		return textResult(Result{Text: "Error: invalid tool call parameters", IsError: true})
	}
	return textResult(s.proxy.CallTool(ctx, params.Name, params.Arguments))
}

func textResult(r Result) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: r.Text}},
		IsError: r.IsError,
	}
}

// Tool converts an orchestrator tool descriptor to an MCP tool. A missing
// or unreadable input schema becomes an empty object schema.
func Tool(d model.ToolDescriptor) *mcp.Tool {
	schema := map[string]any{}
	if len(d.InputSchema) > 0 {
		_ = json.Unmarshal(d.InputSchema, &schema)
	}
	if schema == nil {
		schema = map[string]any{}
	}
	if _, ok := schema["type"]; !ok {
		schema["type"] = "object"
	}
	return &mcp.Tool{Name: d.Name, Description: d.Description, InputSchema: schema}
}

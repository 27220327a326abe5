// Package mcpserver exposes the tool catalog over the Model Context Protocol
// on stdio, so MCP-capable clients can invoke the same pipeline the HTTP API
// uses (validation, retry, audit included).
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/jsalazar/toolforge/internal/domain/tool"
	"github.com/jsalazar/toolforge/internal/version"
)

// Dispatcher runs tool calls. Satisfied by dispatch.Dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, turnID string, calls []tool.Call) ([]tool.Result, error)
}

// Server bridges the registry to an MCP stdio endpoint.
type Server struct {
	registry *tool.Registry
	disp     Dispatcher
	logger   *zap.Logger
}

// New creates an MCP server over the given registry and dispatcher.
func New(registry *tool.Registry, disp Dispatcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{registry: registry, disp: disp, logger: logger}
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "toolforge",
		Version: version.Version,
	}, nil)

	for _, spec := range s.registry.Specs() {
		srv.AddTool(&mcp.Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: spec.Parameters,
		}, s.callHandler(spec.Name))
	}

	s.logger.Info("serving MCP on stdio", zap.Int("tools", len(s.registry.Specs())))
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// callHandler adapts one registered tool to the MCP call contract. Failures
// settle as tool results with IsError set, never protocol errors, so clients
// can surface them to the model.
func (s *Server) callHandler(name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(fmt.Sprintf("malformed arguments: %v", err)), nil
			}
		}

		call := tool.Call{
			ID:        "call_" + uuid.NewString(),
			Name:      name,
			Arguments: args,
		}
		results, err := s.disp.Dispatch(ctx, "mcp:"+uuid.NewString(), []tool.Call{call})
		if err != nil {
			return nil, err
		}

		res := results[0]
		if !res.OK() {
			return errorResult(res.ErrorMessage), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(res.Payload)}},
		}, nil
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}
}

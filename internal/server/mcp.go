package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/gofr-hq/gofr-doc/internal/logging"
	"github.com/gofr-hq/gofr-doc/internal/tools"
)

// MCPServer exposes the tool catalogue over the Model Context Protocol,
// either on stdio or as an SSE endpoint.
type MCPServer struct {
	dispatcher *tools.Dispatcher
	inner      *mcpserver.MCPServer
	logger     logging.Logger
}

// NewMCPServer registers every catalogue tool on a fresh MCP server. Tokens
// travel in the auth_token argument since MCP carries no transport headers
// on stdio.
func NewMCPServer(dispatcher *tools.Dispatcher, name, version string, logger logging.Logger) *MCPServer {
	inner := mcpserver.NewMCPServer(
		name,
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
		mcpserver.WithRecovery(),
	)

	s := &MCPServer{dispatcher: dispatcher, inner: inner, logger: logging.OrNop(logger)}
	for _, tool := range dispatcher.Tools() {
		schema, err := json.Marshal(tool.InputSchema())
		if err != nil {
			s.logger.Warn("skipping MCP registration for %s: %v", tool.Name, err)
			continue
		}
		mcpTool := mcp.NewToolWithRawSchema(tool.Name, tool.Description, schema)
		inner.AddTool(mcpTool, s.wrapTool(tool.Name))
	}
	return s
}

func (s *MCPServer) wrapTool(name string) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		started := time.Now()
		payload, status := s.dispatcher.Dispatch(ctx, name, request.GetArguments(), "")

		body, err := json.Marshal(payload)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s produced an unserializable result: %v", name, err))},
				IsError: true,
			}, nil
		}

		s.logger.Debug("mcp tool %s finished with status %d in %dms", name, status, time.Since(started).Milliseconds())
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(body))},
			IsError: status >= http.StatusBadRequest,
		}, nil
	}
}

// ServeStdio runs the MCP server on stdin/stdout until ctx is cancelled.
func (s *MCPServer) ServeStdio(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.inner)
	s.logger.Info("mcp stdio server listening")
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// SSEHandlers returns the SSE and message endpoints to mount on an HTTP mux.
func (s *MCPServer) SSEHandlers(baseURL string) (sse http.Handler, message http.Handler) {
	sseServer := mcpserver.NewSSEServer(s.inner, mcpserver.WithBaseURL(baseURL))
	return sseServer.SSEHandler(), sseServer.MessageHandler()
}

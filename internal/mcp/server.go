// Package mcpserver exposes conversions as MCP tools so AI agents can turn
// GEDCOM files into tables and inspect the results.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"gedcom2csv/internal/service"
)

// Server is the MCP server for gedcom2csv.
type Server struct {
	mcp     *server.MCPServer
	convert *service.ConvertService
	log     *zap.Logger
}

// Deps holds all dependencies passed from the app layer to the MCP server.
type Deps struct {
	Convert *service.ConvertService
	Version string
}

// New creates and configures a new MCP server with all tools.
func New(deps Deps) *Server {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{
		convert: deps.Convert,
		log:     zap.L().Named("mcp"),
	}

	s.mcp = server.NewMCPServer(
		"gedcom2csv-mcp",
		version,
		server.WithToolCapabilities(true),
	)

	s.registerConvertTools()
	return s
}

// ServeStdio serves on stdin/stdout until the client disconnects or ctx is
// cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads JSON-RPC messages from in and writes responses to out.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.log))

	s.log.Info("starting stdio server")
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// intArg reads a numeric argument. JSON numbers arrive as float64.
func intArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	}
	return def
}

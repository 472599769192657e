package app

import (
	"context"

	mcpserver "gedcom2csv/internal/mcp"
)

// ServeMCP runs the MCP server on stdin/stdout until the client disconnects
// or ctx is cancelled. Logs go to stderr so they never corrupt the protocol
// stream.
func (a *App) ServeMCP(ctx context.Context, version string) error {
	srv := mcpserver.New(mcpserver.Deps{
		Convert: a.convert,
		Version: version,
	})
	return srv.ServeStdio(ctx)
}

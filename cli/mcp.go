// ABOUTME: MCP server subcommand
// ABOUTME: Serves the contact tools, resources and prompts over stdio
package cli

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lokesh75way/confirmed-add-in/handlers"
)

// NewMCPServer builds a server with every handler registered.
func NewMCPServer(app *App, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "confirmed",
		Version: version,
	}, nil)
	handlers.Register(server, app.HandlerDeps())
	return server
}

// MCPCommand starts the MCP server on stdio
func MCPCommand(ctx context.Context, app *App, version string) error {
	app.Logger.Info("starting MCP server", "storage", app.Config.Storage)
	return NewMCPServer(app, version).Run(ctx, &mcp.StdioTransport{})
}

// ABOUTME: Registers every tool, resource and prompt on an MCP server
// ABOUTME: Kept apart from the CLI so tests and other transports share it
package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register adds the contact tools, resources and prompts to server.
func Register(server *mcp.Server, deps *Deps) {
	contactHandlers := NewContactHandlers(deps)
	cacheHandlers := NewCacheHandlers(deps)
	resourceHandlers := NewResourceHandlers(deps)
	promptHandlers := NewPromptHandlers(deps)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_contacts",
		Description: "List the aggregated contacts from the directory, recent meetings and Salesforce, optionally filtered",
	}, contactHandlers.ListContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sync_contacts",
		Description: "Pull recipients of recent meetings into the meeting contacts cache",
	}, contactHandlers.SyncContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cache_status",
		Description: "Show cached contact sources with their age and staleness",
	}, cacheHandlers.CacheStatus)

	if deps.DB != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "sync_history",
			Description: "List contacts recently added or updated by sync_contacts",
		}, cacheHandlers.SyncHistory)
	}

	if deps.FlexCals != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "list_flexcals",
			Description: "List the user's scheduling links (FlexCals) with their booking URLs",
		}, NewFlexCalHandlers(deps).ListFlexCals)
	}

	for _, r := range resourceHandlers.Resources() {
		server.AddResource(r, resourceHandlers.ReadResource)
	}
	for _, p := range promptHandlers.Prompts() {
		server.AddPrompt(p, promptHandlers.GetPrompt)
	}
}

// ABOUTME: MCP resource handlers exposing contact data
// ABOUTME: Read-only JSON views of the aggregate and of each cached source
package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lokesh75way/confirmed-add-in/cache"
	"github.com/lokesh75way/confirmed-add-in/models"
)

const resourceScheme = "confirmed://"

type ResourceHandlers struct {
	deps *Deps
}

func NewResourceHandlers(deps *Deps) *ResourceHandlers {
	return &ResourceHandlers{deps: deps}
}

// Resources lists the URIs ReadResource serves.
func (h *ResourceHandlers) Resources() []*mcp.Resource {
	return []*mcp.Resource{
		{URI: resourceScheme + "contacts", Name: "contacts", Description: "Aggregated contacts from every source", MIMEType: "application/json"},
		{URI: resourceScheme + "cache/meetings", Name: "meeting-contacts", Description: "Cached meeting contacts", MIMEType: "application/json"},
		{URI: resourceScheme + "cache/crm", Name: "crm-contacts", Description: "Cached Salesforce contacts and leads", MIMEType: "application/json"},
	}
}

// ReadResource handles resource read requests.
func (h *ResourceHandlers) ReadResource(ctx context.Context, request *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := request.Params.URI
	if !strings.HasPrefix(uri, resourceScheme) {
		return nil, fmt.Errorf("invalid URI scheme: expected %s", resourceScheme)
	}

	switch strings.TrimPrefix(uri, resourceScheme) {
	case "contacts":
		in, err := h.deps.inputs()
		if err != nil {
			return nil, err
		}
		snap := h.deps.Engine.Load(ctx, in)
		return jsonResource(uri, snap.Contacts)
	case "cache/meetings":
		return h.readCache(uri, cache.MeetingContacts)
	case "cache/crm":
		return h.readCache(uri, cache.CRMContacts)
	default:
		return nil, mcp.ResourceNotFoundError(uri)
	}
}

func (h *ResourceHandlers) readCache(uri, name string) (*mcp.ReadResourceResult, error) {
	userID, err := h.deps.userID()
	if err != nil {
		return nil, err
	}
	contacts := []models.Contact{}
	if entry := h.deps.Store.Read(name, userID); entry != nil {
		contacts = entry.Data
	}
	return jsonResource(uri, contacts)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{Contents: []*mcp.ResourceContents{
		{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}}, nil
}

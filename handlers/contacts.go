// ABOUTME: Contact MCP tool handlers
// ABOUTME: Implements list_contacts and sync_contacts over the aggregation engine and reconciler
package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lokesh75way/confirmed-add-in/models"
	contactsync "github.com/lokesh75way/confirmed-add-in/sync"
)

const defaultListLimit = 100

type ContactHandlers struct {
	deps *Deps
}

func NewContactHandlers(deps *Deps) *ContactHandlers {
	return &ContactHandlers{deps: deps}
}

type ListContactsInput struct {
	Query  string `json:"query,omitempty" jsonschema:"Match against name, email or email domain"`
	Source string `json:"source,omitempty" jsonschema:"Only this source: external, meeting, salesforce-contact, salesforce-lead or crm"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum results (default 100)"`
}

type ListContactsOutput struct {
	Contacts   []ContactOutput `json:"contacts"`
	Count      int             `json:"count"`
	Total      int             `json:"total"`
	Refreshing bool            `json:"refreshing"`
	Errors     []string        `json:"errors,omitempty"`
}

func (h *ContactHandlers) ListContacts(ctx context.Context, _ *mcp.CallToolRequest, input ListContactsInput) (*mcp.CallToolResult, ListContactsOutput, error) {
	in, err := h.deps.inputs()
	if err != nil {
		return nil, ListContactsOutput{}, err
	}

	snap := h.deps.Engine.Load(ctx, in)
	if snap.Err != nil && len(snap.Contacts) == 0 {
		return nil, ListContactsOutput{}, fmt.Errorf("failed to load contacts: %w", snap.Err)
	}

	contacts := contactsync.FilterContacts(snap.Contacts, input.Query)
	if input.Source != "" {
		contacts = filterSource(contacts, input.Source)
	}

	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	out := ListContactsOutput{
		Contacts:   []ContactOutput{},
		Total:      len(contacts),
		Refreshing: snap.IsRefreshing,
	}
	for i, c := range contacts {
		if i >= limit {
			break
		}
		out.Contacts = append(out.Contacts, contactToOutput(c))
	}
	out.Count = len(out.Contacts)
	if snap.Err != nil {
		out.Errors = strings.Split(snap.Err.Error(), "\n")
	}
	return &mcp.CallToolResult{}, out, nil
}

func filterSource(contacts []models.Contact, source string) []models.Contact {
	var out []models.Contact
	for _, c := range contacts {
		if source == "crm" && c.Source.IsCRM() || string(c.Source) == source {
			out = append(out, c)
		}
	}
	return out
}

type SyncContactsInput struct{}

type SyncContactsOutput struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Stats   *models.SyncStats `json:"stats,omitempty"`
}

func (h *ContactHandlers) SyncContacts(ctx context.Context, _ *mcp.CallToolRequest, _ SyncContactsInput) (*mcp.CallToolResult, SyncContactsOutput, error) {
	token, err := h.deps.token()
	if err != nil {
		return nil, SyncContactsOutput{}, err
	}

	res := h.deps.Reconciler.Sync(ctx, token)
	out := SyncContactsOutput{Success: res.Success, Message: res.Message}
	if res.Message != contactsync.MsgSyncInProgress && res.Message != contactsync.MsgNoUserID {
		out.Stats = h.deps.Reconciler.Stats()
	}
	return &mcp.CallToolResult{}, out, nil
}

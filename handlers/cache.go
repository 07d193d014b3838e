// ABOUTME: Cache MCP tool handlers
// ABOUTME: Implements cache_status and sync_history for the signed-in user
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lokesh75way/confirmed-add-in/cache"
	"github.com/lokesh75way/confirmed-add-in/db"
)

type CacheHandlers struct {
	deps *Deps
}

func NewCacheHandlers(deps *Deps) *CacheHandlers {
	return &CacheHandlers{deps: deps}
}

type CacheStatusInput struct {
	AllUsers bool `json:"all_users,omitempty" jsonschema:"Report every cached user instead of only the signed-in one"`
}

type CacheEntryStatus struct {
	Cache     string `json:"cache"`
	UserID    string `json:"user_id"`
	Count     int    `json:"count"`
	UpdatedAt string `json:"updated_at"`
	Age       string `json:"age"`
	Stale     bool   `json:"stale"`
}

type CacheStatusOutput struct {
	Entries  []CacheEntryStatus `json:"entries"`
	Syncing  bool               `json:"syncing"`
	LastSync string             `json:"last_sync,omitempty"`
}

func (h *CacheHandlers) CacheStatus(_ context.Context, _ *mcp.CallToolRequest, input CacheStatusInput) (*mcp.CallToolResult, CacheStatusOutput, error) {
	var users []string
	if !input.AllUsers {
		userID, err := h.deps.userID()
		if err != nil {
			return nil, CacheStatusOutput{}, err
		}
		users = []string{userID}
	}

	out := CacheStatusOutput{Entries: []CacheEntryStatus{}}
	for _, name := range []string{cache.MeetingContacts, cache.CRMContacts} {
		names := users
		if input.AllUsers {
			names = h.deps.Store.Users(name)
		}
		for _, u := range names {
			entry := h.deps.Store.Read(name, u)
			if entry == nil {
				continue
			}
			out.Entries = append(out.Entries, CacheEntryStatus{
				Cache:     name,
				UserID:    u,
				Count:     len(entry.Data),
				UpdatedAt: entry.Time().Format(time.RFC3339),
				Age:       h.deps.Store.Age(entry).Round(time.Second).String(),
				Stale:     h.deps.Store.IsStale(entry),
			})
		}
	}

	if r := h.deps.Reconciler; r != nil {
		out.Syncing = r.IsSyncing()
		if last, ok := r.LastSyncTime(); ok {
			out.LastSync = last.Format(time.RFC3339)
		}
	}
	if out.LastSync == "" && h.deps.DB != nil {
		state, err := db.GetSyncState(h.deps.DB, db.MeetingSyncService)
		if err == nil && state != nil && state.LastSyncTime != nil {
			out.LastSync = state.LastSyncTime.Format(time.RFC3339)
		}
	}
	return &mcp.CallToolResult{}, out, nil
}

type SyncHistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum entries (default 50)"`
}

type SyncHistoryEntry struct {
	Contact  ContactOutput `json:"contact"`
	Action   string        `json:"action"`
	RunID    string        `json:"run_id,omitempty"`
	SyncedAt string        `json:"synced_at"`
}

type SyncHistoryOutput struct {
	Entries []SyncHistoryEntry `json:"entries"`
	Count   int                `json:"count"`
}

func (h *CacheHandlers) SyncHistory(_ context.Context, _ *mcp.CallToolRequest, input SyncHistoryInput) (*mcp.CallToolResult, SyncHistoryOutput, error) {
	if h.deps.DB == nil {
		return nil, SyncHistoryOutput{}, fmt.Errorf("sync history needs the sqlite storage backend")
	}
	userID, err := h.deps.userID()
	if err != nil {
		return nil, SyncHistoryOutput{}, err
	}

	entries, err := db.ListSyncLog(h.deps.DB, userID, input.Limit)
	if err != nil {
		return nil, SyncHistoryOutput{}, fmt.Errorf("failed to read sync history: %w", err)
	}

	out := SyncHistoryOutput{Entries: []SyncHistoryEntry{}}
	for _, e := range entries {
		out.Entries = append(out.Entries, SyncHistoryEntry{
			Contact:  contactToOutput(e.Contact),
			Action:   e.Action,
			RunID:    e.RunID,
			SyncedAt: e.SyncedAt.Format(time.RFC3339),
		})
	}
	out.Count = len(out.Entries)
	return &mcp.CallToolResult{}, out, nil
}

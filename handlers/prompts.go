// ABOUTME: MCP prompt handlers built from cached contact data
// ABOUTME: Follow-up suggestions for recent meeting contacts and a per-contact summary
package handlers

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lokesh75way/confirmed-add-in/cache"
	"github.com/lokesh75way/confirmed-add-in/models"
	contactsync "github.com/lokesh75way/confirmed-add-in/sync"
)

type PromptHandlers struct {
	deps *Deps
}

func NewPromptHandlers(deps *Deps) *PromptHandlers {
	return &PromptHandlers{deps: deps}
}

// Prompts lists the prompts GetPrompt serves.
func (h *PromptHandlers) Prompts() []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        "meeting-followups",
			Description: "Suggest follow-ups for people from recent meetings",
			Arguments: []*mcp.PromptArgument{
				{Name: "limit", Description: "How many recent contacts to include (default 10)"},
			},
		},
		{
			Name:        "contact-summary",
			Description: "Summarise what is known about one contact across sources",
			Arguments: []*mcp.PromptArgument{
				{Name: "query", Description: "Name or email of the contact", Required: true},
			},
		},
	}
}

// GetPrompt generates the prompt message for name.
func (h *PromptHandlers) GetPrompt(ctx context.Context, request *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	switch request.Params.Name {
	case "meeting-followups":
		return h.meetingFollowups(request.Params.Arguments)
	case "contact-summary":
		return h.contactSummary(ctx, request.Params.Arguments)
	default:
		return nil, fmt.Errorf("unknown prompt: %s", request.Params.Name)
	}
}

func (h *PromptHandlers) meetingFollowups(args map[string]string) (*mcp.GetPromptResult, error) {
	userID, err := h.deps.userID()
	if err != nil {
		return nil, err
	}
	limit := 10
	if v := args["limit"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid limit %q", v)
		}
		limit = n
	}

	var contacts []models.Contact
	if entry := h.deps.Store.Read(cache.MeetingContacts, userID); entry != nil {
		contacts = append(contacts, entry.Data...)
	}
	// Newest first; undated contacts last.
	sort.SliceStable(contacts, func(i, j int) bool {
		ti, iok := contacts[i].CreatedAt()
		tj, jok := contacts[j].CreatedAt()
		if iok != jok {
			return iok
		}
		return ti.After(tj)
	})
	if len(contacts) > limit {
		contacts = contacts[:limit]
	}

	var b strings.Builder
	if len(contacts) == 0 {
		b.WriteString("There are no cached meeting contacts yet. Suggest running sync_contacts first.\n")
	} else {
		b.WriteString("These people were invited to my recent meetings. Suggest a short, specific follow-up for each:\n\n")
		for _, c := range contacts {
			fmt.Fprintf(&b, "- %s", c.DisplayName())
			if c.Email != "" {
				fmt.Fprintf(&b, " <%s>", c.Email)
			}
			if t, ok := c.CreatedAt(); ok {
				fmt.Fprintf(&b, " (met %s)", t.Format("2006-01-02"))
			}
			b.WriteString("\n")
		}
	}

	return userPrompt("Follow-ups for recent meeting contacts", b.String()), nil
}

func (h *PromptHandlers) contactSummary(ctx context.Context, args map[string]string) (*mcp.GetPromptResult, error) {
	query := strings.TrimSpace(args["query"])
	if query == "" {
		return nil, fmt.Errorf("query is required")
	}
	in, err := h.deps.inputs()
	if err != nil {
		return nil, err
	}

	snap := h.deps.Engine.Load(ctx, in)
	matches := contactsync.FilterContacts(snap.Contacts, query)
	if len(matches) == 0 {
		return nil, fmt.Errorf("no contact matches %q", query)
	}

	var b strings.Builder
	b.WriteString("Summarise what I know about this person and suggest how to reconnect:\n\n")
	for _, c := range matches {
		fmt.Fprintf(&b, "Name: %s\n", c.DisplayName())
		if c.Email != "" {
			fmt.Fprintf(&b, "Email: %s\n", c.Email)
		}
		if p := c.PhoneValue(); p != "" {
			fmt.Fprintf(&b, "Phone: %s\n", p)
		}
		fmt.Fprintf(&b, "Source: %s\n", c.Source)
		if c.MeetingID != "" {
			fmt.Fprintf(&b, "Last meeting: %s %s\n", c.MeetingID, c.CreateDate)
		}
		b.WriteString("\n")
	}
	return userPrompt(fmt.Sprintf("Summary for %s", query), b.String()), nil
}

func userPrompt(description, text string) *mcp.GetPromptResult {
	return &mcp.GetPromptResult{
		Description: description,
		Messages: []*mcp.PromptMessage{
			{
				Role:    "user",
				Content: &mcp.TextContent{Text: text},
			},
		},
	}
}

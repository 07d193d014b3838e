// ABOUTME: Scheduling link MCP tool handler
// ABOUTME: Implements list_flexcals over the Confirmed lazy calendar summary
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/lokesh75way/confirmed-add-in/confirmed"
	"github.com/lokesh75way/confirmed-add-in/models"
)

type FlexCalHandlers struct {
	deps *Deps
}

func NewFlexCalHandlers(deps *Deps) *FlexCalHandlers {
	return &FlexCalHandlers{deps: deps}
}

type ListFlexCalsInput struct {
	Name     string `json:"name,omitempty" jsonschema:"Filter by scheduling link name"`
	Page     int    `json:"page,omitempty" jsonschema:"Zero-based page number"`
	PageSize int    `json:"page_size,omitempty" jsonschema:"Results per page (default 10)"`
}

type FlexCalOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Link      string `json:"link"`
	Evergreen bool   `json:"evergreen"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

type ListFlexCalsOutput struct {
	FlexCals     []FlexCalOutput `json:"flexcals"`
	TotalRecords int             `json:"total_records"`
}

func (h *FlexCalHandlers) ListFlexCals(ctx context.Context, _ *mcp.CallToolRequest, input ListFlexCalsInput) (*mcp.CallToolResult, ListFlexCalsOutput, error) {
	if h.deps.FlexCals == nil {
		return nil, ListFlexCalsOutput{}, fmt.Errorf("flexcals are not available")
	}
	token, err := h.deps.token()
	if err != nil {
		return nil, ListFlexCalsOutput{}, err
	}

	page, err := h.deps.FlexCals.ListFlexCals(ctx, token, models.FlexCalQuery{
		NameFilter:     input.Name,
		PageNumber:     input.Page,
		ResultsPerPage: input.PageSize,
	})
	if err != nil {
		return nil, ListFlexCalsOutput{}, fmt.Errorf("failed to list flexcals: %w", err)
	}

	out := ListFlexCalsOutput{FlexCals: []FlexCalOutput{}, TotalRecords: page.TotalRecords}
	for _, fc := range page.FlexCals {
		out.FlexCals = append(out.FlexCals, FlexCalOutput{
			ID:        string(fc.ID),
			Name:      fc.Name,
			Link:      confirmed.SchedulerLink(fc.ID),
			Evergreen: fc.Evergreen,
			StartDate: fc.StartDate,
			EndDate:   fc.EndDate,
		})
	}
	return &mcp.CallToolResult{}, out, nil
}

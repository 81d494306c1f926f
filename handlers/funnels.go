// ABOUTME: Funnel MCP tool handlers
// ABOUTME: Implements list_funnels, create_funnel and delete_funnel tools
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/models"
)

type FunnelHandlers struct {
	repo *crm.Repository
}

func NewFunnelHandlers(repo *crm.Repository) *FunnelHandlers {
	return &FunnelHandlers{repo: repo}
}

type StageOutput struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
	Leads int    `json:"leads"`
}

type FunnelOutput struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Stages         []StageOutput `json:"stages"`
	AllowedUsers   []string      `json:"allowed_users"`
	WebhookActive  bool          `json:"webhook_active"`
	WebhookURL     string        `json:"webhook_url,omitempty"`
	TotalLeadCount int           `json:"total_leads"`
}

type ListFunnelsInput struct{}

type ListFunnelsOutput struct {
	Funnels []FunnelOutput `json:"funnels"`
}

func (h *FunnelHandlers) ListFunnels(_ context.Context, request *mcp.CallToolRequest, input ListFunnelsInput) (*mcp.CallToolResult, ListFunnelsOutput, error) {
	funnels := h.repo.Funnels()
	out := ListFunnelsOutput{Funnels: make([]FunnelOutput, 0, len(funnels))}
	for _, f := range funnels {
		out.Funnels = append(out.Funnels, h.funnelToOutput(f))
	}
	return nil, out, nil
}

type CreateFunnelInput struct {
	Name   string   `json:"name" jsonschema:"Funnel name (required)"`
	Stages []string `json:"stages,omitempty" jsonschema:"Stage names in order (defaults to New Lead, Contact Made, Proposal Sent, Closed Won, Closed Lost)"`
}

func (h *FunnelHandlers) CreateFunnel(_ context.Context, request *mcp.CallToolRequest, input CreateFunnelInput) (*mcp.CallToolResult, FunnelOutput, error) {
	var stages []models.Stage
	for i, name := range input.Stages {
		stages = append(stages, models.Stage{Name: name, Order: i})
	}

	f, err := h.repo.AddFunnel(input.Name, stages, nil)
	if err != nil {
		return nil, FunnelOutput{}, fmt.Errorf("failed to create funnel: %w", err)
	}
	return nil, h.funnelToOutput(f), nil
}

type DeleteFunnelInput struct {
	ID string `json:"id" jsonschema:"Funnel ID (required)"`
}

type DeleteOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

func (h *FunnelHandlers) DeleteFunnel(_ context.Context, request *mcp.CallToolRequest, input DeleteFunnelInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if input.ID == "" {
		return nil, DeleteOutput{}, fmt.Errorf("id is required")
	}
	if err := h.repo.DeleteFunnel(input.ID); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete funnel: %w", err)
	}
	return nil, DeleteOutput{ID: input.ID, Deleted: true}, nil
}

func (h *FunnelHandlers) funnelToOutput(f models.Funnel) FunnelOutput {
	leads := h.repo.LeadsByFunnel(f.ID)
	counts := make(map[string]int)
	for _, l := range leads {
		counts[l.Stage]++
	}

	out := FunnelOutput{
		ID:             f.ID,
		Name:           f.Name,
		AllowedUsers:   f.AllowedUsers,
		TotalLeadCount: len(leads),
	}
	for _, s := range f.SortedStages() {
		out.Stages = append(out.Stages, StageOutput{ID: s.ID, Name: s.Name, Order: s.Order, Leads: counts[s.ID]})
	}
	if f.Webhook != nil {
		out.WebhookActive = f.Webhook.Active
		out.WebhookURL = f.Webhook.URL
	}
	return out
}

// ABOUTME: Lead MCP tool handlers
// ABOUTME: Implements add_lead, find_leads, move_lead, delete_lead, CSV import/export and crm_stats
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/models"
)

type LeadHandlers struct {
	repo *crm.Repository
}

func NewLeadHandlers(repo *crm.Repository) *LeadHandlers {
	return &LeadHandlers{repo: repo}
}

type LeadOutput struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Phone       string  `json:"phone"`
	Email       string  `json:"email,omitempty"`
	Source      string  `json:"source"`
	Notes       string  `json:"notes,omitempty"`
	AssignedTo  string  `json:"assigned_to"`
	FunnelID    string  `json:"funnel_id"`
	Funnel      string  `json:"funnel"`
	StageID     string  `json:"stage_id"`
	Stage       string  `json:"stage"`
	CreatedAt   string  `json:"created_at"`
	LastContact *string `json:"last_contact,omitempty"`
}

type AddLeadInput struct {
	Name       string `json:"name" jsonschema:"Lead name (required)"`
	Phone      string `json:"phone" jsonschema:"Phone number with country code (required)"`
	Email      string `json:"email,omitempty" jsonschema:"Email address"`
	Notes      string `json:"notes,omitempty" jsonschema:"Notes about the lead"`
	FunnelID   string `json:"funnel_id,omitempty" jsonschema:"Funnel ID (defaults to the first funnel)"`
	StageID    string `json:"stage_id,omitempty" jsonschema:"Stage ID (defaults to the funnel's first stage)"`
	AssignedTo string `json:"assigned_to,omitempty" jsonschema:"User ID to assign the lead to"`
}

func (h *LeadHandlers) AddLead(_ context.Context, request *mcp.CallToolRequest, input AddLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	lead, err := h.repo.AddLead(models.Lead{
		Name:       input.Name,
		Phone:      input.Phone,
		Email:      input.Email,
		Notes:      input.Notes,
		FunnelID:   input.FunnelID,
		Stage:      input.StageID,
		AssignedTo: input.AssignedTo,
		Source:     models.SourceManual,
	})
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to add lead: %w", err)
	}
	return nil, h.leadToOutput(lead), nil
}

type FindLeadsInput struct {
	Query    string `json:"query,omitempty" jsonschema:"Search name, phone or email"`
	FunnelID string `json:"funnel_id,omitempty" jsonschema:"Only leads in this funnel"`
	StageID  string `json:"stage_id,omitempty" jsonschema:"Only leads in this stage"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of results (default 50)"`
}

type FindLeadsOutput struct {
	Leads []LeadOutput `json:"leads"`
}

func (h *LeadHandlers) FindLeads(_ context.Context, request *mcp.CallToolRequest, input FindLeadsInput) (*mcp.CallToolResult, FindLeadsOutput, error) {
	limit := input.Limit
	if limit == 0 {
		limit = 50
	}

	out := FindLeadsOutput{Leads: []LeadOutput{}}
	for _, l := range h.repo.SearchLeads(input.Query) {
		if input.FunnelID != "" && l.FunnelID != input.FunnelID {
			continue
		}
		if input.StageID != "" && l.Stage != input.StageID {
			continue
		}
		out.Leads = append(out.Leads, h.leadToOutput(l))
		if len(out.Leads) >= limit {
			break
		}
	}
	return nil, out, nil
}

type MoveLeadInput struct {
	ID       string `json:"id" jsonschema:"Lead ID (required)"`
	StageID  string `json:"stage_id" jsonschema:"Target stage ID (required)"`
	FunnelID string `json:"funnel_id,omitempty" jsonschema:"Target funnel ID (defaults to the lead's current funnel)"`
}

func (h *LeadHandlers) MoveLead(_ context.Context, request *mcp.CallToolRequest, input MoveLeadInput) (*mcp.CallToolResult, LeadOutput, error) {
	if input.ID == "" || input.StageID == "" {
		return nil, LeadOutput{}, fmt.Errorf("id and stage_id are required")
	}
	funnelID := input.FunnelID
	if funnelID == "" {
		current, err := h.repo.Lead(input.ID)
		if err != nil {
			return nil, LeadOutput{}, err
		}
		funnelID = current.FunnelID
	}

	lead, err := h.repo.MoveLead(input.ID, input.StageID, funnelID)
	if err != nil {
		return nil, LeadOutput{}, fmt.Errorf("failed to move lead: %w", err)
	}
	return nil, h.leadToOutput(lead), nil
}

type DeleteLeadInput struct {
	ID string `json:"id" jsonschema:"Lead ID (required)"`
}

func (h *LeadHandlers) DeleteLead(_ context.Context, request *mcp.CallToolRequest, input DeleteLeadInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if input.ID == "" {
		return nil, DeleteOutput{}, fmt.Errorf("id is required")
	}
	if err := h.repo.DeleteLead(input.ID); err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete lead: %w", err)
	}
	return nil, DeleteOutput{ID: input.ID, Deleted: true}, nil
}

type ImportLeadsCSVInput struct {
	FunnelID string `json:"funnel_id" jsonschema:"Funnel to import into (required)"`
	CSV      string `json:"csv" jsonschema:"CSV text with a header row containing name, phone, email and notes columns"`
}

type ImportLeadsCSVOutput struct {
	Imported int          `json:"imported"`
	Leads    []LeadOutput `json:"leads"`
}

func (h *LeadHandlers) ImportLeadsCSV(_ context.Context, request *mcp.CallToolRequest, input ImportLeadsCSVInput) (*mcp.CallToolResult, ImportLeadsCSVOutput, error) {
	added, err := h.repo.ImportCSV(input.FunnelID, input.CSV)
	if err != nil {
		return nil, ImportLeadsCSVOutput{}, fmt.Errorf("failed to import leads: %w", err)
	}
	out := ImportLeadsCSVOutput{Imported: len(added), Leads: make([]LeadOutput, 0, len(added))}
	for _, l := range added {
		out.Leads = append(out.Leads, h.leadToOutput(l))
	}
	return nil, out, nil
}

type ExportLeadsCSVInput struct {
	FunnelID string `json:"funnel_id,omitempty" jsonschema:"Only export this funnel (default all leads)"`
}

type ExportLeadsCSVOutput struct {
	Filename string `json:"filename"`
	Count    int    `json:"count"`
	CSV      string `json:"csv"`
}

func (h *LeadHandlers) ExportLeadsCSV(_ context.Context, request *mcp.CallToolRequest, input ExportLeadsCSVInput) (*mcp.CallToolResult, ExportLeadsCSVOutput, error) {
	exp := h.repo.ExportCSV(input.FunnelID)
	return nil, ExportLeadsCSVOutput{Filename: exp.Filename, Count: exp.Count, CSV: exp.Content}, nil
}

type CRMStatsInput struct{}

func (h *LeadHandlers) CRMStats(_ context.Context, request *mcp.CallToolRequest, input CRMStatsInput) (*mcp.CallToolResult, crm.Stats, error) {
	return nil, h.repo.Stats(), nil
}

func (h *LeadHandlers) leadToOutput(l models.Lead) LeadOutput {
	funnel, stage := h.repo.FunnelAndStageName(l)
	out := LeadOutput{
		ID:         l.ID,
		Name:       l.Name,
		Phone:      l.Phone,
		Email:      l.Email,
		Source:     l.Source,
		Notes:      l.Notes,
		AssignedTo: h.repo.AssigneeName(l.AssignedTo),
		FunnelID:   l.FunnelID,
		Funnel:     funnel,
		StageID:    l.Stage,
		Stage:      stage,
		CreatedAt:  l.CreatedAt.Format(time.RFC3339),
	}
	if l.LastContact != nil {
		s := l.LastContact.Format(time.RFC3339)
		out.LastContact = &s
	}
	return out
}

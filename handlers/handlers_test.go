// ABOUTME: Tests for MCP tool handlers
// ABOUTME: Calls handlers directly against an in-memory application
package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadpipe/app"
	"github.com/harperreed/leadpipe/config"
	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/logging"
	"github.com/harperreed/leadpipe/messaging"
)

func setupTestApp(t *testing.T) *app.App {
	t.Helper()
	cfg := config.Default()
	cfg.Backend = config.BackendMemory
	cfg.AutoReplyChance = 0
	a, err := app.New(cfg, app.WithLogger(logging.Discard()), app.WithClock(clock.NewMock()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestFunnelHandlers(t *testing.T) {
	a := setupTestApp(t)
	h := NewFunnelHandlers(a.Repo)
	ctx := context.Background()

	_, list, err := h.ListFunnels(ctx, nil, ListFunnelsInput{})
	require.NoError(t, err)
	require.Len(t, list.Funnels, 1)
	assert.Equal(t, 2, list.Funnels[0].TotalLeadCount)
	assert.Equal(t, 1, list.Funnels[0].Stages[0].Leads)

	_, created, err := h.CreateFunnel(ctx, nil, CreateFunnelInput{Name: "Partners", Stages: []string{"Intro", "Signed"}})
	require.NoError(t, err)
	require.Len(t, created.Stages, 2)
	assert.Equal(t, "Intro", created.Stages[0].Name)

	_, _, err = h.CreateFunnel(ctx, nil, CreateFunnelInput{})
	assert.ErrorIs(t, err, crm.ErrEmptyName)

	_, _, err = h.DeleteFunnel(ctx, nil, DeleteFunnelInput{ID: "1"})
	assert.ErrorIs(t, err, crm.ErrFunnelHasLeads)

	_, deleted, err := h.DeleteFunnel(ctx, nil, DeleteFunnelInput{ID: created.ID})
	require.NoError(t, err)
	assert.True(t, deleted.Deleted)
}

func TestLeadHandlers(t *testing.T) {
	a := setupTestApp(t)
	h := NewLeadHandlers(a.Repo)
	ctx := context.Background()

	_, lead, err := h.AddLead(ctx, nil, AddLeadInput{Name: "Ada", Phone: "+44"})
	require.NoError(t, err)
	assert.Equal(t, "Sales Funnel", lead.Funnel)
	assert.Equal(t, "New Lead", lead.Stage)
	assert.Equal(t, "Unassigned", lead.AssignedTo)

	_, _, err = h.AddLead(ctx, nil, AddLeadInput{Name: "NoPhone"})
	assert.ErrorIs(t, err, crm.ErrMissingField)

	_, found, err := h.FindLeads(ctx, nil, FindLeadsInput{Query: "ada"})
	require.NoError(t, err)
	require.Len(t, found.Leads, 1)

	_, found, err = h.FindLeads(ctx, nil, FindLeadsInput{StageID: "1-1"})
	require.NoError(t, err)
	assert.Len(t, found.Leads, 2)

	_, moved, err := h.MoveLead(ctx, nil, MoveLeadInput{ID: lead.ID, StageID: "1-5"})
	require.NoError(t, err)
	assert.Equal(t, "Closed Won", moved.Stage)
	assert.Equal(t, "1", moved.FunnelID)

	_, _, err = h.MoveLead(ctx, nil, MoveLeadInput{ID: "ghost", StageID: "1-5"})
	assert.ErrorIs(t, err, crm.ErrLeadNotFound)

	_, del, err := h.DeleteLead(ctx, nil, DeleteLeadInput{ID: lead.ID})
	require.NoError(t, err)
	assert.True(t, del.Deleted)
}

func TestCSVHandlers(t *testing.T) {
	a := setupTestApp(t)
	h := NewLeadHandlers(a.Repo)
	ctx := context.Background()

	_, imported, err := h.ImportLeadsCSV(ctx, nil, ImportLeadsCSVInput{FunnelID: "1", CSV: "name,phone,email\nAda,+44,ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, imported.Imported)

	_, exported, err := h.ExportLeadsCSV(ctx, nil, ExportLeadsCSVInput{FunnelID: "1"})
	require.NoError(t, err)
	assert.Equal(t, 3, exported.Count)
	assert.True(t, strings.HasPrefix(exported.Filename, "leads-export-"))
	assert.Contains(t, exported.CSV, "Ada,+44,ada@example.com")

	_, stats, err := h.CRMStats(ctx, nil, CRMStatsInput{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalLeads)
	assert.Equal(t, 2, stats.BySource["import"])
}

func TestChatHandlers(t *testing.T) {
	a := setupTestApp(t)
	h := NewChatHandlers(a.Repo, a.Messaging, a.Session)
	ctx := context.Background()

	_, _, err := h.SendMessage(ctx, nil, SendMessageInput{LeadID: "1", Content: "hi"})
	assert.ErrorIs(t, err, messaging.ErrNotAuthenticated)

	_, err = a.Session.Login("admin@example.com", "pw")
	require.NoError(t, err)

	_, sent, err := h.SendMessage(ctx, nil, SendMessageInput{
		LeadID:      "1",
		Content:     "hi",
		Attachments: []AttachmentInput{{Type: "document", URL: "http://x/quote.pdf", Name: "quote.pdf"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Admin User", sent.Sender)
	assert.Equal(t, "sent", sent.Status)
	require.Len(t, sent.Attachments, 1)

	_, history, err := h.ChatHistory(ctx, nil, ChatHistoryInput{LeadID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "John Doe", history.Lead)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, sent.ID, history.Messages[0].ID)
}

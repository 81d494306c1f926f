// ABOUTME: Chat MCP tool handlers
// ABOUTME: Implements send_message and chat_history tools over the messaging simulator
package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/leadpipe/auth"
	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/messaging"
	"github.com/harperreed/leadpipe/models"
)

type ChatHandlers struct {
	repo    *crm.Repository
	sim     *messaging.Simulator
	session *auth.Session
}

func NewChatHandlers(repo *crm.Repository, sim *messaging.Simulator, session *auth.Session) *ChatHandlers {
	return &ChatHandlers{repo: repo, sim: sim, session: session}
}

type AttachmentInput struct {
	Type string `json:"type" jsonschema:"One of image, document, audio, video"`
	URL  string `json:"url" jsonschema:"Attachment URL"`
	Name string `json:"name,omitempty" jsonschema:"Display name"`
}

type MessageOutput struct {
	ID          string            `json:"id"`
	LeadID      string            `json:"lead_id"`
	Sender      string            `json:"sender"`
	Content     string            `json:"content"`
	Direction   string            `json:"direction"`
	Status      string            `json:"status"`
	Timestamp   string            `json:"timestamp"`
	Attachments []AttachmentInput `json:"attachments,omitempty"`
}

type SendMessageInput struct {
	LeadID      string            `json:"lead_id" jsonschema:"Lead ID (required)"`
	Content     string            `json:"content" jsonschema:"Message text"`
	Attachments []AttachmentInput `json:"attachments,omitempty" jsonschema:"Optional attachments"`
}

func (h *ChatHandlers) SendMessage(ctx context.Context, request *mcp.CallToolRequest, input SendMessageInput) (*mcp.CallToolResult, MessageOutput, error) {
	if input.LeadID == "" {
		return nil, MessageOutput{}, fmt.Errorf("lead_id is required")
	}
	var attachments []models.Attachment
	for _, a := range input.Attachments {
		attachments = append(attachments, models.Attachment{Kind: a.Type, URL: a.URL, Name: a.Name})
	}

	msg, err := h.sim.Send(ctx, h.session.CurrentUser(), input.LeadID, input.Content, attachments)
	if err != nil {
		return nil, MessageOutput{}, fmt.Errorf("failed to send message: %w", err)
	}
	return nil, h.messageToOutput(msg), nil
}

type ChatHistoryInput struct {
	LeadID string `json:"lead_id" jsonschema:"Lead ID (required)"`
}

type ChatHistoryOutput struct {
	Lead     string          `json:"lead"`
	Messages []MessageOutput `json:"messages"`
}

func (h *ChatHandlers) ChatHistory(_ context.Context, request *mcp.CallToolRequest, input ChatHistoryInput) (*mcp.CallToolResult, ChatHistoryOutput, error) {
	if input.LeadID == "" {
		return nil, ChatHistoryOutput{}, fmt.Errorf("lead_id is required")
	}
	out := ChatHistoryOutput{Lead: h.repo.LeadName(input.LeadID), Messages: []MessageOutput{}}
	for _, m := range h.sim.History(input.LeadID) {
		out.Messages = append(out.Messages, h.messageToOutput(m))
	}
	return nil, out, nil
}

func (h *ChatHandlers) messageToOutput(m models.ChatMessage) MessageOutput {
	sender := h.repo.LeadName(m.LeadID)
	if m.Direction == models.DirectionOutgoing {
		sender = h.repo.UserName(m.UserID)
	}
	out := MessageOutput{
		ID:        m.ID,
		LeadID:    m.LeadID,
		Sender:    sender,
		Content:   m.Content,
		Direction: m.Direction,
		Status:    m.Status,
		Timestamp: m.Timestamp.Format(time.RFC3339),
	}
	for _, a := range m.Attachments {
		out.Attachments = append(out.Attachments, AttachmentInput{Type: a.Kind, URL: a.URL, Name: a.Name})
	}
	return out
}

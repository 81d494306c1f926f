// ABOUTME: Chat message log on the repository
// ABOUTME: Append-only messages with forward-only status and cross-lead search
package crm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/store"
)

// RecordMessage appends a message and stamps the lead's lastContact with the
// message timestamp in the same update. A missing id or timestamp is filled in.
// It does not notify; callers report the outcome of the operation they are part of.
func (r *Repository) RecordMessage(m models.ChatMessage) models.ChatMessage {
	m = cloneMessage(m)
	if m.ID == "" {
		m.ID = r.newULID()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = r.clock.Now().UTC()
	}

	keys := []store.Key{store.KeyChatMessages}
	r.mu.Lock()
	r.messages = append(r.messages, m)
	if idx := r.leadIndex(m.LeadID); idx >= 0 {
		ts := m.Timestamp
		r.leads[idx].LastContact = &ts
		keys = append(keys, store.KeyLeads)
	}
	r.mu.Unlock()

	r.commit(keys, nil, Event{Kind: MessageAdded, ID: m.ID})
	return cloneMessage(m)
}

// SetMessageStatus moves a message forward to status.
func (r *Repository) SetMessageStatus(id, status string) error {
	r.mu.Lock()
	idx := -1
	for i := range r.messages {
		if r.messages[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrMessageNotFound, id)
	}
	from := r.messages[idx].Status
	if !models.CanTransition(from, status) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, status)
	}
	r.messages[idx].Status = status
	r.mu.Unlock()

	r.commit([]store.Key{store.KeyChatMessages}, nil, Event{Kind: MessageUpdated, ID: id})
	return nil
}

// Message returns a copy of one message.
func (r *Repository) Message(id string) (models.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.messages {
		if m.ID == id {
			return cloneMessage(m), nil
		}
	}
	return models.ChatMessage{}, fmt.Errorf("%w: %s", ErrMessageNotFound, id)
}

// Messages returns every message in append order.
func (r *Repository) Messages() []models.ChatMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneMessages(r.messages)
}

// ChatHistory returns a lead's messages in ascending timestamp order. Messages
// with equal timestamps keep their append order.
func (r *Repository) ChatHistory(leadID string) []models.ChatMessage {
	r.mu.RLock()
	var out []models.ChatMessage
	for _, m := range r.messages {
		if m.LeadID == leadID {
			out = append(out, cloneMessage(m))
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// Direction filters for SearchMessages.
const (
	DirectionAll = "all"
)

// LogEntry is a message with its lead and sender names resolved.
type LogEntry struct {
	Message  models.ChatMessage `json:"message"`
	LeadName string             `json:"leadName"`
	Sender   string             `json:"sender"`
}

// SearchMessages filters the whole message log. query matches content or lead
// name case-insensitively; direction is "all", "incoming" or "outgoing".
func (r *Repository) SearchMessages(query, direction string, newestFirst bool) []LogEntry {
	q := strings.ToLower(strings.TrimSpace(query))

	var out []LogEntry
	for _, m := range r.Messages() {
		if direction != "" && direction != DirectionAll && m.Direction != direction {
			continue
		}
		leadName := r.LeadName(m.LeadID)
		if q != "" &&
			!strings.Contains(strings.ToLower(m.Content), q) &&
			!strings.Contains(strings.ToLower(leadName), q) {
			continue
		}
		sender := leadName
		if m.Direction == models.DirectionOutgoing {
			sender = r.UserName(m.UserID)
		}
		out = append(out, LogEntry{Message: m, LeadName: leadName, Sender: sender})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if newestFirst {
			return out[i].Message.Timestamp.After(out[j].Message.Timestamp)
		}
		return out[i].Message.Timestamp.Before(out[j].Message.Timestamp)
	})
	return out
}

// ABOUTME: Lead detail and chat view for TUI
// ABOUTME: Shows lead fields with the conversation and sends messages through the simulator
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadpipe/models"
)

var (
	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(14)

	fieldValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	outgoingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	incomingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12"))
)

func (m Model) renderDetailView() string {
	lead, err := m.repo.Lead(m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error: %v\n\n%s", err, helpStyle.Render("Esc: Back"))
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(strings.ToUpper(lead.Name)))
	s.WriteString("\n")

	funnelName, stageName := m.repo.FunnelAndStageName(lead)
	field := func(label, value string) {
		if value == "" {
			return
		}
		s.WriteString(fieldLabelStyle.Render(label))
		s.WriteString(fieldValueStyle.Render(value))
		s.WriteString("\n")
	}
	field("Phone:", lead.Phone)
	field("Email:", lead.Email)
	field("Funnel:", funnelName)
	field("Stage:", stageName)
	field("Source:", lead.Source)
	field("Assigned:", m.repo.AssigneeName(lead.AssignedTo))
	field("Created:", lead.CreatedAt.Local().Format("2006-01-02 15:04"))
	field("Notes:", lead.Notes)

	s.WriteString("\n")
	s.WriteString(columnTitleStyle.Render("Conversation"))
	s.WriteString("\n")
	history := m.sim.History(lead.ID)
	if len(history) == 0 {
		s.WriteString(helpStyle.Render("No messages yet"))
		s.WriteString("\n")
	}
	for _, msg := range history {
		s.WriteString(m.renderMessage(msg))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	if m.composing {
		s.WriteString(m.input.View())
		s.WriteString("\n")
	}
	s.WriteString(m.statusLine())
	s.WriteString("\n")

	help := "m: Message • d: Delete • Esc: Back • q: Quit"
	if m.composing {
		help = "Enter: Send • Esc: Cancel"
	}
	s.WriteString(helpStyle.Render(help))
	return s.String()
}

func (m Model) renderMessage(msg models.ChatMessage) string {
	ts := msg.Timestamp.Local().Format("15:04")
	if msg.Direction == models.DirectionOutgoing {
		return outgoingStyle.Render(fmt.Sprintf("%s → %s: %s (%s)", ts, m.repo.UserName(msg.UserID), msg.Content, msg.Status))
	}
	return incomingStyle.Render(fmt.Sprintf("%s ← %s", ts, msg.Content))
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.viewMode = m.returnTo
		m.clampCursor()
	case "m":
		m.err = nil
		m.composing = true
		m.input.Reset()
		return m, m.input.Focus()
	case "d":
		m.confirmFrom = ViewDetail
		m.viewMode = ViewConfirmDelete
	}
	return m, nil
}

func (m Model) handleComposeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.composing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		_, err := m.sim.Send(context.Background(), m.session.CurrentUser(), m.selectedID, m.input.Value(), nil)
		m.err = err
		if err == nil {
			m.composing = false
			m.input.Blur()
			m.input.Reset()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

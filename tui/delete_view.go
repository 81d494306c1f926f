// ABOUTME: Delete confirmation view for TUI
// ABOUTME: Asks before removing a lead
package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	confirmBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("9")).
			Padding(1, 2).
			Width(60).
			Align(lipgloss.Center)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	confirmButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("9")).
				Padding(0, 2).
				MarginRight(2)

	cancelButtonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("8")).
				Padding(0, 2)
)

func (m Model) renderConfirmDeleteView() string {
	lead, err := m.repo.Lead(m.selectedID)
	if err != nil {
		return fmt.Sprintf("Error loading lead: %v", err)
	}

	title := warningStyle.Render("⚠  DELETE CONFIRMATION  ⚠")
	message := "Are you sure you want to delete this lead?"
	entityInfo := fmt.Sprintf("\nLEAD: %s (%s)\n", lead.Name, lead.Phone)
	warning := "\nChat history is kept. This action cannot be undone!"

	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		confirmButtonStyle.Render("Yes, Delete (y)"),
		cancelButtonStyle.Render("Cancel (n/esc)"),
	)

	content := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		"",
		message,
		entityInfo,
		warning,
		"",
		buttons,
	)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		confirmBoxStyle.Render(content),
	)
}

func (m Model) handleConfirmDeleteKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.err = m.repo.DeleteLead(m.selectedID)
		m.selectedID = ""
		m.viewMode = m.returnTo
		m.clampCursor()
	case "n", "N", "esc":
		m.viewMode = m.confirmFrom
	}
	return m, nil
}

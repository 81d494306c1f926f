// ABOUTME: Kanban board view for TUI
// ABOUTME: One column per stage; leads move between neighbouring stages
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadpipe/models"
)

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	activeColumnStyle = columnStyle.
				BorderForeground(lipgloss.Color("170"))

	columnTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("252"))

	cardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	selectedCardStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("170"))
)

func (m Model) renderBoardView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("LEADPIPE"))
	s.WriteString("\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")

	_, stages, leads := m.columns()
	if len(stages) == 0 {
		s.WriteString("No funnels or stages yet")
	} else {
		s.WriteString(m.renderColumns(stages, leads))
	}
	s.WriteString("\n")
	s.WriteString(m.statusLine())
	s.WriteString("\n")
	s.WriteString(m.renderBoardHelp())
	return s.String()
}

func (m Model) renderTabs() string {
	funnels := m.funnels()
	if len(funnels) == 0 {
		return ""
	}
	current := m.funnelIdx % len(funnels)
	var rendered []string
	for i, f := range funnels {
		if i == current {
			rendered = append(rendered, tabActiveStyle.Render(f.Name))
		} else {
			rendered = append(rendered, tabInactiveStyle.Render(f.Name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) renderColumns(stages []models.Stage, leads [][]models.Lead) string {
	width := m.width/len(stages) - 4
	if width < 16 {
		width = 16
	}

	cols := make([]string, len(stages))
	for i, st := range stages {
		var b strings.Builder
		b.WriteString(columnTitleStyle.Render(fmt.Sprintf("%s (%d)", truncate(st.Name, width-5), len(leads[i]))))
		b.WriteString("\n")
		for j, l := range leads[i] {
			card := truncate(l.Name, width)
			if i == m.col && j == m.row {
				b.WriteString(selectedCardStyle.Render(card))
			} else {
				b.WriteString(cardStyle.Render(card))
			}
			b.WriteString("\n")
		}
		style := columnStyle
		if i == m.col {
			style = activeColumnStyle
		}
		cols[i] = style.Width(width).Render(b.String())
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func (m Model) renderBoardHelp() string {
	help := []string{
		"←/→: Stage",
		"↑/↓: Lead",
		"</>: Move lead",
		"Tab: Next funnel",
		"Enter: Details",
		"t: Table",
		"d: Delete",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func (m Model) handleBoardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	switch msg.String() {
	case "left", "h":
		m.col--
		m.row = 0
	case "right", "l":
		m.col++
		m.row = 0
	case "up", "k":
		m.row--
	case "down", "j":
		m.row++
	case "<", "shift+left", "H":
		m.moveSelected(-1)
	case ">", "shift+right", "L":
		m.moveSelected(1)
	case "tab":
		m.funnelIdx++
		m.col, m.row = 0, 0
	case "t":
		m.viewMode = ViewTable
		m.tableRow = 0
	case "enter":
		if id := m.selectedLeadID(); id != "" {
			m.selectedID = id
			m.returnTo = ViewBoard
			m.viewMode = ViewDetail
		}
	case "d":
		if id := m.selectedLeadID(); id != "" {
			m.selectedID = id
			m.returnTo = ViewBoard
			m.confirmFrom = ViewBoard
			m.viewMode = ViewConfirmDelete
		}
	}
	m.clampCursor()
	return m, nil
}

func (m Model) selectedLeadID() string {
	_, stages, leads := m.columns()
	if m.col < 0 || m.col >= len(stages) || m.row < 0 || m.row >= len(leads[m.col]) {
		return ""
	}
	return leads[m.col][m.row].ID
}

// moveSelected moves the selected lead delta stages along and keeps it selected.
func (m *Model) moveSelected(delta int) {
	f, stages, leads := m.columns()
	target := m.col + delta
	if target < 0 || target >= len(stages) || m.row < 0 || m.row >= len(leads[m.col]) {
		return
	}
	lead := leads[m.col][m.row]
	if _, err := m.repo.MoveLead(lead.ID, stages[target].ID, f.ID); err != nil {
		m.err = err
		return
	}

	m.col = target
	m.row = 0
	for i, l := range m.repo.LeadsByStage(f.ID, stages[target].ID) {
		if l.ID == lead.ID {
			m.row = i
			break
		}
	}
}

func truncate(s string, n int) string {
	if n <= 3 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

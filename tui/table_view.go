// ABOUTME: Lead table view for TUI
// ABOUTME: Lists every lead of the current funnel with stage and last contact
package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harperreed/leadpipe/models"
)

func (m Model) tableLeads() []models.Lead {
	f, ok := m.currentFunnel()
	if !ok {
		return nil
	}
	return m.repo.LeadsByFunnel(f.ID)
}

func (m Model) renderTableView() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("LEADPIPE"))
	s.WriteString("\n")
	s.WriteString(m.renderTabs())
	s.WriteString("\n\n")
	s.WriteString(m.renderLeadsTable())
	s.WriteString("\n")
	s.WriteString(m.statusLine())
	s.WriteString("\n")

	help := []string{
		"↑/↓: Navigate",
		"Enter: Details",
		"d: Delete",
		"t/Esc: Board",
		"q: Quit",
	}
	s.WriteString(helpStyle.Render(strings.Join(help, " • ")))
	return s.String()
}

func (m Model) renderLeadsTable() string {
	columns := []table.Column{
		{Title: "Name", Width: 24},
		{Title: "Phone", Width: 16},
		{Title: "Stage", Width: 16},
		{Title: "Source", Width: 8},
		{Title: "Assigned", Width: 14},
		{Title: "Last Contact", Width: 16},
	}

	var rows []table.Row
	for _, l := range m.tableLeads() {
		_, stageName := m.repo.FunnelAndStageName(l)
		lastContact := "-"
		if l.LastContact != nil {
			lastContact = l.LastContact.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, table.Row{
			l.Name,
			l.Phone,
			stageName,
			l.Source,
			m.repo.AssigneeName(l.AssignedTo),
			lastContact,
		})
	}

	height := m.height - 10
	if height < 3 {
		height = 3
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)

	if m.tableRow < len(rows) {
		t.SetCursor(m.tableRow)
	}

	return t.View()
}

func (m Model) handleTableKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	leads := m.tableLeads()
	switch msg.String() {
	case "up", "k":
		if m.tableRow > 0 {
			m.tableRow--
		}
	case "down", "j":
		if m.tableRow < len(leads)-1 {
			m.tableRow++
		}
	case "t", "esc":
		m.viewMode = ViewBoard
	case "tab":
		m.funnelIdx++
		m.tableRow = 0
	case "enter":
		if m.tableRow < len(leads) {
			m.selectedID = leads[m.tableRow].ID
			m.returnTo = ViewTable
			m.viewMode = ViewDetail
		}
	case "d":
		if m.tableRow < len(leads) {
			m.selectedID = leads[m.tableRow].ID
			m.returnTo = ViewTable
			m.confirmFrom = ViewTable
			m.viewMode = ViewConfirmDelete
		}
	}
	return m, nil
}

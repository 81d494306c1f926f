// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Kanban board over a funnel's stages with lead table, detail and chat views
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harperreed/leadpipe/auth"
	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/messaging"
	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
)

// ViewMode represents the current TUI view
type ViewMode int

const (
	ViewBoard ViewMode = iota
	ViewTable
	ViewDetail
	ViewConfirmDelete
)

// eventMsg carries a repository change into the update loop.
type eventMsg crm.Event

// Model is the main bubbletea model
type Model struct {
	repo    *crm.Repository
	sim     *messaging.Simulator
	session *auth.Session
	notes   *notify.Recorder
	events  chan crm.Event

	viewMode  ViewMode
	funnelIdx int

	// Board cursor: stage column and lead row within it.
	col int
	row int

	// Table cursor.
	tableRow int

	selectedID string
	// returnTo is where detail and delete go back to; confirmFrom is where
	// a cancelled delete goes back to.
	returnTo    ViewMode
	confirmFrom ViewMode

	input     textinput.Model
	composing bool

	width  int
	height int
	err    error
}

// NewModel creates a new TUI model. notes, when set, feeds the status line.
func NewModel(repo *crm.Repository, sim *messaging.Simulator, session *auth.Session, notes *notify.Recorder) Model {
	input := textinput.New()
	input.Placeholder = "Type a message"
	input.CharLimit = 1000
	input.Width = 60

	return Model{
		repo:     repo,
		sim:      sim,
		session:  session,
		notes:    notes,
		viewMode: ViewBoard,
		input:    input,
		width:    120,
		height:   30,
	}
}

// WithEvents makes the model redraw whenever ch delivers a repository event.
func (m Model) WithEvents(ch chan crm.Event) Model {
	m.events = ch
	return m
}

func (m Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	ch := m.events
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case eventMsg:
		m.clampCursor()
		return m, m.waitForEvent()
	}
	return m, nil
}

func (m Model) View() string {
	switch m.viewMode {
	case ViewBoard:
		return m.renderBoardView()
	case ViewTable:
		return m.renderTableView()
	case ViewDetail:
		return m.renderDetailView()
	case ViewConfirmDelete:
		return m.renderConfirmDeleteView()
	}
	return ""
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.composing {
		return m.handleComposeKeys(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	switch m.viewMode {
	case ViewBoard:
		return m.handleBoardKeys(msg)
	case ViewTable:
		return m.handleTableKeys(msg)
	case ViewDetail:
		return m.handleDetailKeys(msg)
	case ViewConfirmDelete:
		return m.handleConfirmDeleteKeys(msg)
	}

	return m, nil
}

// funnels returns what the logged-in user may see, or everything when nobody is.
func (m Model) funnels() []models.Funnel {
	if u := m.session.CurrentUser(); u != nil {
		return m.repo.FunnelsForUser(u)
	}
	return m.repo.Funnels()
}

func (m Model) currentFunnel() (models.Funnel, bool) {
	funnels := m.funnels()
	if len(funnels) == 0 {
		return models.Funnel{}, false
	}
	return funnels[m.funnelIdx%len(funnels)], true
}

// columns returns the current funnel's stages and the leads in each.
func (m Model) columns() (models.Funnel, []models.Stage, [][]models.Lead) {
	f, ok := m.currentFunnel()
	if !ok {
		return f, nil, nil
	}
	stages := f.SortedStages()
	leads := make([][]models.Lead, len(stages))
	for i, s := range stages {
		leads[i] = m.repo.LeadsByStage(f.ID, s.ID)
	}
	return f, stages, leads
}

func (m *Model) clampCursor() {
	_, stages, leads := m.columns()
	if len(stages) == 0 {
		m.col, m.row = 0, 0
		return
	}
	if m.col >= len(stages) {
		m.col = len(stages) - 1
	}
	if m.col < 0 {
		m.col = 0
	}
	if m.row >= len(leads[m.col]) {
		m.row = len(leads[m.col]) - 1
	}
	if m.row < 0 {
		m.row = 0
	}
}

func (m Model) statusLine() string {
	if m.err != nil {
		return errorStyle.Render("Error: " + m.err.Error())
	}
	if m.notes == nil || m.notes.Len() == 0 {
		return ""
	}
	n := m.notes.Last()
	switch n.Level {
	case notify.Error:
		return errorStyle.Render("✗ " + n.Message)
	case notify.Success:
		return successStyle.Render("✓ " + n.Message)
	}
	return infoStyle.Render("ℹ " + n.Message)
}

// Run starts the full-screen program and blocks until the user quits.
func Run(repo *crm.Repository, sim *messaging.Simulator, session *auth.Session, notes *notify.Recorder) error {
	events := make(chan crm.Event, 64)
	unsubscribe := repo.Subscribe(func(e crm.Event) {
		select {
		case events <- e:
		default:
		}
	})
	defer unsubscribe()

	m := NewModel(repo, sim, session, notes).WithEvents(events)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	tabActiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Background(lipgloss.Color("235")).
			Padding(0, 2)

	tabInactiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Padding(0, 2)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

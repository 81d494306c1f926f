// ABOUTME: Tests for the kanban TUI
// ABOUTME: Drives the model with key messages against an in-memory application
package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadpipe/app"
	"github.com/harperreed/leadpipe/config"
	"github.com/harperreed/leadpipe/logging"
	"github.com/harperreed/leadpipe/notify"
)

func setupTestModel(t *testing.T) (Model, *app.App, *notify.Recorder) {
	t.Helper()
	cfg := config.Default()
	cfg.Backend = config.BackendMemory
	cfg.AutoReplyChance = 0
	notes := &notify.Recorder{}
	a, err := app.New(cfg, app.WithLogger(logging.Discard()), app.WithClock(clock.NewMock()), app.WithNotifier(notes))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	m := NewModel(a.Repo, a.Messaging, a.Session, notes)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 200, Height: 40})
	return next.(Model), a, notes
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(k)
		m = next.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestBoardRendersStageColumns(t *testing.T) {
	m, _, _ := setupTestModel(t)
	view := m.View()

	assert.Contains(t, view, "Sales Funnel")
	assert.Contains(t, view, "New Lead (1)")
	assert.Contains(t, view, "Contact Made (1)")
	assert.Contains(t, view, "John Doe")
	assert.Contains(t, view, "Jane Smith")
}

func TestMoveLeadRight(t *testing.T) {
	m, a, notes := setupTestModel(t)

	m = press(t, m, runes(">"))

	lead, err := a.Repo.Lead("1")
	require.NoError(t, err)
	assert.Equal(t, "1-2", lead.Stage)
	assert.Equal(t, "1", lead.FunnelID)
	assert.Equal(t, 1, m.col, "cursor follows the moved lead")
	assert.Equal(t, "1", m.selectedLeadID())
	assert.Equal(t, "Lead moved", notes.Last().Message)
}

func TestMoveLeadPastFirstStageIsNoop(t *testing.T) {
	m, a, notes := setupTestModel(t)
	notes.Reset()

	m = press(t, m, runes("<"))

	lead, err := a.Repo.Lead("1")
	require.NoError(t, err)
	assert.Equal(t, "1-1", lead.Stage)
	assert.Equal(t, 0, m.col)
	assert.Zero(t, notes.Len())
}

func TestCursorClampsToColumns(t *testing.T) {
	m, _, _ := setupTestModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	assert.Equal(t, 0, m.col)

	for i := 0; i < 10; i++ {
		m = press(t, m, tea.KeyMsg{Type: tea.KeyRight})
	}
	assert.Equal(t, 5, m.col)
	assert.Equal(t, "", m.selectedLeadID(), "Closed Lost is empty")
}

func TestDetailViewShowsConversation(t *testing.T) {
	m, _, _ := setupTestModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, ViewDetail, m.viewMode)

	view := m.View()
	assert.Contains(t, view, "JANE SMITH")
	assert.Contains(t, view, "what are the pricing options?")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewBoard, m.viewMode)
}

func TestComposeRequiresLogin(t *testing.T) {
	m, a, _ := setupTestModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter}, runes("m"), runes("Hi"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Error(t, m.err)
	assert.True(t, m.composing)
	assert.Len(t, a.Repo.ChatHistory("1"), 0)
}

func TestComposeSendsMessage(t *testing.T) {
	m, a, _ := setupTestModel(t)
	_, err := a.Session.Login("admin@example.com", "secret")
	require.NoError(t, err)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter}, runes("m"), runes("Hello John"), tea.KeyMsg{Type: tea.KeyEnter})
	require.NoError(t, m.err)
	assert.False(t, m.composing)

	history := a.Repo.ChatHistory("1")
	require.Len(t, history, 1)
	assert.Equal(t, "Hello John", history[0].Content)
	assert.Equal(t, "1", history[0].UserID)
	assert.Contains(t, m.View(), "Hello John")
}

func TestDeleteFromBoard(t *testing.T) {
	m, a, _ := setupTestModel(t)

	m = press(t, m, runes("d"))
	require.Equal(t, ViewConfirmDelete, m.viewMode)
	assert.Contains(t, m.View(), "John Doe")

	m = press(t, m, runes("n"))
	assert.Equal(t, ViewBoard, m.viewMode)
	_, err := a.Repo.Lead("1")
	require.NoError(t, err)

	m = press(t, m, runes("d"), runes("y"))
	assert.Equal(t, ViewBoard, m.viewMode)
	_, err = a.Repo.Lead("1")
	assert.Error(t, err)
}

func TestDeleteCancelReturnsToDetail(t *testing.T) {
	m, _, _ := setupTestModel(t)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter}, runes("d"), tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewDetail, m.viewMode)
}

func TestTableView(t *testing.T) {
	m, _, _ := setupTestModel(t)

	m = press(t, m, runes("t"))
	require.Equal(t, ViewTable, m.viewMode)
	view := m.View()
	assert.Contains(t, view, "Jane Smith")
	assert.Contains(t, view, "Contact Made")

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ViewDetail, m.viewMode)
	assert.Equal(t, "2", m.selectedID)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewTable, m.viewMode)
}

func TestFunnelCycling(t *testing.T) {
	m, a, _ := setupTestModel(t)
	_, err := a.Repo.AddFunnel("Partners", nil, nil)
	require.NoError(t, err)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	f, ok := m.currentFunnel()
	require.True(t, ok)
	assert.Equal(t, "Partners", f.Name)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	f, _ = m.currentFunnel()
	assert.Equal(t, "Sales Funnel", f.Name)
}

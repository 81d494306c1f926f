// ABOUTME: Tests for pipeline graphs and the ASCII dashboard
// ABOUTME: Renders against the seeded repository
package viz

import (
	"strings"
	"testing"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/logging"
	"github.com/harperreed/leadpipe/notify"
	"github.com/harperreed/leadpipe/store"
)

func newTestRepo(t *testing.T) *crm.Repository {
	log := logging.Discard()
	repo, err := crm.New(crm.Options{Store: store.New(store.NewMemoryKV(), log), Notifier: &notify.Recorder{}, Clock: clock.NewMock(), Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRenderDashboard(t *testing.T) {
	repo := newTestRepo(t)
	out := RenderDashboard(repo.Stats(), repo.Funnels())

	assert.Contains(t, out, "LEADPIPE DASHBOARD")
	assert.Contains(t, out, "LEADS BY SOURCE")
	assert.Contains(t, out, "webhook")
	assert.Contains(t, out, "Sales Funnel")

	newLead := strings.Index(out, "New Lead")
	closedLost := strings.Index(out, "Closed Lost")
	require.True(t, newLead >= 0 && closedLost >= 0)
	assert.Less(t, newLead, closedLost, "stages follow funnel order")
}

func TestGeneratePipelineGraph(t *testing.T) {
	repo := newTestRepo(t)
	g := NewGraphGenerator(repo)

	dot, err := g.GeneratePipelineGraph("1")
	require.NoError(t, err)
	assert.Contains(t, dot, "digraph")
	assert.Contains(t, dot, "Sales Funnel")
	assert.Contains(t, dot, "Contact Made (1)")

	_, err = g.GeneratePipelineGraph("missing")
	assert.ErrorIs(t, err, crm.ErrFunnelNotFound)
}

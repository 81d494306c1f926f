// ABOUTME: Tests for dashboard aggregates
// ABOUTME: Checks stage, source and funnel grouping including dangling references
package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadpipe/models"
)

func TestStats(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.repo.AddLead(models.Lead{Name: "Hook", Phone: "1", Source: models.SourceWebhook})
	require.NoError(t, err)
	_, err = env.repo.MoveLead("1", "1-9", "1")
	require.NoError(t, err)
	require.NoError(t, env.repo.SetWhatsappConnected("2", true))

	s := env.repo.Stats()

	assert.Equal(t, 3, s.TotalLeads)
	assert.Equal(t, 1, s.TotalFunnels)
	assert.Equal(t, 6, s.TotalStages)
	assert.Equal(t, 1, s.ConnectedUsers)
	assert.Equal(t, map[string]int{"manual": 1, "import": 1, "webhook": 1}, s.BySource)
	assert.Equal(t, map[string]int{"Sales Funnel": 3}, s.ByFunnel)
	assert.Equal(t, map[string]int{"New Lead": 1, "Contact Made": 1}, s.ByStage, "dangling stage is skipped")
}

func TestStatsAlwaysHasSources(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.repo.DeleteLead("1"))
	require.NoError(t, env.repo.DeleteLead("2"))

	s := env.repo.Stats()
	assert.Equal(t, map[string]int{"manual": 0, "import": 0, "webhook": 0}, s.BySource)
	assert.Empty(t, s.ByStage)
}

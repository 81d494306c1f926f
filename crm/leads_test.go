// ABOUTME: Tests for lead operations
// ABOUTME: Covers defaults, not-found handling, moves, search and name helpers
package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
)

func TestAddLeadDefaults(t *testing.T) {
	env := newTestEnv(t)

	l, err := env.repo.AddLead(models.Lead{Name: "Ada", Phone: "+4400"})
	require.NoError(t, err)

	assert.NotEmpty(t, l.ID)
	assert.Equal(t, "1", l.FunnelID)
	assert.Equal(t, "1-1", l.Stage)
	assert.Equal(t, models.SourceManual, l.Source)
	assert.Equal(t, env.clock.Now().UTC(), l.CreatedAt)
	assert.Equal(t, notify.Notification{Level: notify.Success, Message: "Lead added successfully"}, env.rec.Last())
}

func TestAddLeadRequiresNameAndPhone(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.repo.AddLead(models.Lead{Name: "Ada"})
	assert.ErrorIs(t, err, ErrMissingField)
	_, err = env.repo.AddLead(models.Lead{Phone: "+1"})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Len(t, env.repo.Leads(), 2)
	assert.Equal(t, notify.Error, env.rec.Last().Level)
}

func TestLeadIDsAreUnique(t *testing.T) {
	env := newTestEnv(t)
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		l, err := env.repo.AddLead(models.Lead{Name: "x", Phone: "1"})
		require.NoError(t, err)
		assert.False(t, seen[l.ID])
		seen[l.ID] = true
	}
}

func TestUpdateAndDeleteLead(t *testing.T) {
	env := newTestEnv(t)

	l, err := env.repo.Lead("1")
	require.NoError(t, err)
	l.Notes = "Call back Monday"
	_, err = env.repo.UpdateLead(l)
	require.NoError(t, err)

	got, _ := env.repo.Lead("1")
	assert.Equal(t, "Call back Monday", got.Notes)
	assert.Equal(t, "Lead updated successfully", env.rec.Last().Message)

	require.NoError(t, env.repo.DeleteLead("1"))
	_, err = env.repo.Lead("1")
	assert.ErrorIs(t, err, ErrLeadNotFound)
	assert.Equal(t, "Lead deleted successfully", env.rec.Last().Message)
}

func TestUnknownLeadIsNotFound(t *testing.T) {
	env := newTestEnv(t)
	before := env.repo.Leads()

	_, err := env.repo.UpdateLead(models.Lead{ID: "ghost", Name: "G", Phone: "1"})
	assert.ErrorIs(t, err, ErrLeadNotFound)
	assert.ErrorIs(t, env.repo.DeleteLead("ghost"), ErrLeadNotFound)
	_, err = env.repo.MoveLead("ghost", "1-2", "1")
	assert.ErrorIs(t, err, ErrLeadNotFound)

	assert.Equal(t, before, env.repo.Leads())
}

func TestMoveLeadIsUnvalidated(t *testing.T) {
	env := newTestEnv(t)
	env.rec.Reset()

	l, err := env.repo.MoveLead("1", "no-such-stage", "no-such-funnel")
	require.NoError(t, err)
	assert.Equal(t, []notify.Notification{{Level: notify.Success, Message: "Lead moved"}}, env.rec.All())
	assert.Equal(t, "no-such-stage", l.Stage)
	assert.Equal(t, "no-such-funnel", l.FunnelID)

	funnel, stage := env.repo.FunnelAndStageName(l)
	assert.Equal(t, "Unknown", funnel)
	assert.Equal(t, "Unknown", stage)
}

func TestMoveLeadThenFunnelDelete(t *testing.T) {
	env := newTestEnv(t)
	f, err := env.repo.AddFunnel("Second", nil, nil)
	require.NoError(t, err)

	for _, l := range env.repo.LeadsByFunnel("1") {
		_, err := env.repo.MoveLead(l.ID, f.FirstStage().ID, f.ID)
		require.NoError(t, err)
	}
	assert.NoError(t, env.repo.DeleteFunnel("1"))
	assert.ErrorIs(t, env.repo.DeleteFunnel(f.ID), ErrFunnelHasLeads)
}

func TestSearchLeads(t *testing.T) {
	env := newTestEnv(t)

	assert.Len(t, env.repo.SearchLeads(""), 2)
	assert.Len(t, env.repo.SearchLeads("JANE"), 1)
	assert.Len(t, env.repo.SearchLeads("0987"), 1)
	assert.Len(t, env.repo.SearchLeads("example.com"), 2)
	assert.Empty(t, env.repo.SearchLeads("zzz"))
}

func TestLeadsByStage(t *testing.T) {
	env := newTestEnv(t)
	leads := env.repo.LeadsByStage("1", "1-2")
	require.Len(t, leads, 1)
	assert.Equal(t, "Jane Smith", leads[0].Name)
}

func TestNameHelpers(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, "John Doe", env.repo.LeadName("1"))
	assert.Equal(t, "Unknown Lead", env.repo.LeadName("x"))
	assert.Equal(t, "System", env.repo.UserName(""))
	assert.Equal(t, "Unknown User", env.repo.UserName("x"))
	assert.Equal(t, "Admin User", env.repo.UserName("1"))
	assert.Equal(t, "Unassigned", env.repo.AssigneeName(""))

	lead, _ := env.repo.Lead("2")
	funnel, stage := env.repo.FunnelAndStageName(lead)
	assert.Equal(t, "Sales Funnel", funnel)
	assert.Equal(t, "Contact Made", stage)
}

func TestReadsReturnCopies(t *testing.T) {
	env := newTestEnv(t)

	leads := env.repo.Leads()
	leads[0].Name = "mutated"
	funnels := env.repo.Funnels()
	funnels[0].Stages[0].Name = "mutated"

	assert.Equal(t, "John Doe", env.repo.LeadName("1"))
	f, _ := env.repo.Funnel("1")
	assert.Equal(t, "New Lead", f.Stages[0].Name)
}

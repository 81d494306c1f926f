// ABOUTME: Tests for CSV export, parsing and import
// ABOUTME: Covers header matching, placeholders, blank lines and round trips
package crm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
)

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)

	exp := env.repo.ExportCSV("")
	lines := strings.Split(exp.Content, "\n")

	assert.Equal(t, "ID,Name,Phone,Email,Stage,Source,Created At", lines[0])
	assert.Len(t, lines, 3)
	assert.Equal(t, "1,John Doe,+11234567890,john@example.com,1-1,manual,2024-01-15T09:00:00.000Z", lines[1])
	assert.Equal(t, 2, exp.Count)
	assert.Equal(t, "text/csv", exp.MIMEType)
	assert.Equal(t, "leads-export-2024-03-01T12:00:00.000Z.csv", exp.Filename)
	assert.Equal(t, "2 leads exported successfully", env.rec.Last().Message)
}

func TestExportCSVFiltersByFunnel(t *testing.T) {
	env := newTestEnv(t)

	exp := env.repo.ExportCSV("other")
	assert.Equal(t, 0, exp.Count)
	assert.Equal(t, "ID,Name,Phone,Email,Stage,Source,Created At", exp.Content)
}

func TestExportDoesNotQuote(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.repo.AddLead(models.Lead{Name: "Doe, Jane", Phone: "1"})
	require.NoError(t, err)

	exp := env.repo.ExportCSV("")
	assert.Contains(t, exp.Content, ",Doe, Jane,1,")
}

func TestParseCSV(t *testing.T) {
	funnel := models.Funnel{ID: "f", Stages: []models.Stage{{ID: "late", Order: 1}, {ID: "first", Order: 0}}}
	text := "Full Name,Phone Number,Email Address,Notes\r\nAda,+44,ada@example.com,vip\r\n\r\n   \nBob,+1\n"

	leads := ParseCSV(text, funnel)
	require.Len(t, leads, 2)

	assert.Equal(t, models.Lead{Name: "Ada", Phone: "+44", Email: "ada@example.com", Notes: "vip", Stage: "first", FunnelID: "f", Source: models.SourceImport}, leads[0])
	assert.Equal(t, "Bob", leads[1].Name)
	assert.Empty(t, leads[1].Email)
	assert.Empty(t, leads[1].Notes)
}

func TestParseCSVPlaceholders(t *testing.T) {
	leads := ParseCSV("email\na@x\n\nb@x", models.Funnel{ID: "f"})
	require.Len(t, leads, 2)

	assert.Equal(t, "Lead 1", leads[0].Name)
	assert.Equal(t, "+12345678901", leads[0].Phone)
	assert.Equal(t, "Lead 3", leads[1].Name, "placeholder index is the line index")
	assert.Equal(t, "+12345678903", leads[1].Phone)
	assert.Empty(t, leads[0].Stage, "funnel without stages gives empty stage")
}

func TestParseCSVFirstHeaderMatchWins(t *testing.T) {
	leads := ParseCSV("name,nickname,phone\nreal,nick,1", models.Funnel{})
	require.Len(t, leads, 1)
	assert.Equal(t, "real", leads[0].Name)
}

func TestImportCSV(t *testing.T) {
	env := newTestEnv(t)

	added, err := env.repo.ImportCSV("1", "name,phone\nAda,+44\nBob,+1")
	require.NoError(t, err)
	require.Len(t, added, 2)
	for _, l := range added {
		assert.Equal(t, "1", l.FunnelID)
		assert.Equal(t, "1-1", l.Stage)
		assert.Equal(t, models.SourceImport, l.Source)
		assert.NotEmpty(t, l.ID)
	}
	assert.NotEqual(t, added[0].ID, added[1].ID)
	assert.Len(t, env.repo.Leads(), 4)
	assert.Equal(t, "2 leads imported successfully", env.rec.Last().Message)
}

func TestImportIntoUnknownFunnel(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.repo.ImportLeads("missing", []models.Lead{{Name: "x", Phone: "1"}})
	assert.ErrorIs(t, err, ErrFunnelNotFound)

	env.rec.Reset()
	_, err = env.repo.ImportCSV("missing", "name\nx")
	assert.ErrorIs(t, err, ErrFunnelNotFound)
	assert.Equal(t, []notify.Notification{{Level: notify.Error, Message: "Funnel not found"}}, env.rec.All())
	assert.Len(t, env.repo.Leads(), 2)
}

func TestExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	exp := env.repo.ExportCSV("1")

	f, err := env.repo.AddFunnel("Copy", nil, nil)
	require.NoError(t, err)
	added, err := env.repo.ImportCSV(f.ID, exp.Content)
	require.NoError(t, err)

	original := env.repo.LeadsByFunnel("1")
	require.Len(t, added, len(original))
	for i := range original {
		assert.Equal(t, original[i].Name, added[i].Name)
		assert.Equal(t, original[i].Phone, added[i].Phone)
		assert.Equal(t, original[i].Email, added[i].Email)
	}
}

// ABOUTME: CSV lead export and import
// ABOUTME: Plain comma joining and splitting with header-substring column matching
package crm

import (
	"fmt"
	"strings"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/store"
)

// TimestampLayout is the ISO-8601 form used in exports and file names.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

const exportHeader = "ID,Name,Phone,Email,Stage,Source,Created At"

// Export is a generated CSV document.
type Export struct {
	Filename string
	MIMEType string
	Content  string
	Count    int
}

// ExportCSV renders the leads of one funnel, or every lead when funnelID is
// empty. Fields are written verbatim: values containing commas are not quoted.
func (r *Repository) ExportCSV(funnelID string) Export {
	var leads []models.Lead
	if funnelID == "" {
		leads = r.Leads()
	} else {
		leads = r.LeadsByFunnel(funnelID)
	}

	rows := make([]string, 0, len(leads)+1)
	rows = append(rows, exportHeader)
	for _, l := range leads {
		rows = append(rows, strings.Join([]string{
			l.ID,
			l.Name,
			l.Phone,
			l.Email,
			l.Stage,
			l.Source,
			l.CreatedAt.UTC().Format(TimestampLayout),
		}, ","))
	}

	exp := Export{
		Filename: fmt.Sprintf("leads-export-%s.csv", r.clock.Now().UTC().Format(TimestampLayout)),
		MIMEType: "text/csv",
		Content:  strings.Join(rows, "\n"),
		Count:    len(leads),
	}
	r.notifier.Notify(*success("%d leads exported successfully", exp.Count))
	return exp
}

// ParseCSV turns CSV text into import-ready leads for funnel. The header row
// picks the name, phone, email and notes columns by case-insensitive substring,
// first match winning. Blank lines are skipped. A missing name or phone column
// yields "Lead {n}" and "+1234567890{n}" where n is the line index.
func ParseCSV(text string, funnel models.Funnel) []models.Lead {
	lines := strings.Split(text, "\n")
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\r")
	}
	if len(lines) == 0 {
		return nil
	}

	headers := strings.Split(lines[0], ",")
	column := func(name string) int {
		for i, h := range headers {
			if strings.Contains(strings.ToLower(h), name) {
				return i
			}
		}
		return -1
	}
	nameIdx := column("name")
	phoneIdx := column("phone")
	emailIdx := column("email")
	notesIdx := column("notes")

	stage := ""
	if first := funnel.FirstStage(); first != nil {
		stage = first.ID
	}

	var leads []models.Lead
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		values := strings.Split(lines[i], ",")
		field := func(idx int) string {
			if idx < 0 || idx >= len(values) {
				return ""
			}
			return values[idx]
		}

		l := models.Lead{
			Name:     field(nameIdx),
			Phone:    field(phoneIdx),
			Email:    field(emailIdx),
			Notes:    field(notesIdx),
			Stage:    stage,
			FunnelID: funnel.ID,
			Source:   models.SourceImport,
		}
		if nameIdx < 0 {
			l.Name = fmt.Sprintf("Lead %d", i)
		}
		if phoneIdx < 0 {
			l.Phone = fmt.Sprintf("+1234567890%d", i)
		}
		leads = append(leads, l)
	}
	return leads
}

// ImportLeads adds a batch of leads to funnelID in one collection update. Each
// lead gets a fresh id and creation time; its funnel is forced to funnelID.
func (r *Repository) ImportLeads(funnelID string, leads []models.Lead) ([]models.Lead, error) {
	r.mu.Lock()
	if r.funnelIndex(funnelID) < 0 {
		r.mu.Unlock()
		return nil, r.fail("Funnel not found", fmt.Errorf("%w: %s", ErrFunnelNotFound, funnelID))
	}
	now := r.clock.Now().UTC()
	added := make([]models.Lead, 0, len(leads))
	for _, l := range leads {
		l = cloneLead(l)
		l.ID = r.newULID()
		l.CreatedAt = now
		l.FunnelID = funnelID
		if l.Source == "" {
			l.Source = models.SourceImport
		}
		added = append(added, l)
	}
	r.leads = append(r.leads, added...)
	r.mu.Unlock()

	r.commit([]store.Key{store.KeyLeads}, success("%d leads imported successfully", len(added)), Event{Kind: LeadsImported, ID: funnelID})
	return cloneLeads(added), nil
}

// ImportCSV parses text against funnelID's stages and imports the result.
func (r *Repository) ImportCSV(funnelID, text string) ([]models.Lead, error) {
	f, err := r.Funnel(funnelID)
	if err != nil {
		return nil, r.fail("Funnel not found", err)
	}
	return r.ImportLeads(funnelID, ParseCSV(text, f))
}

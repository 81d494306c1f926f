// ABOUTME: Lead operations on the repository
// ABOUTME: Add, update, move, delete and search leads across funnels
package crm

import (
	"fmt"
	"strings"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/store"
)

// Leads returns a copy of every lead in insertion order.
func (r *Repository) Leads() []models.Lead {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneLeads(r.leads)
}

// Lead returns a copy of the lead with id.
func (r *Repository) Lead(id string) (models.Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.leadIndex(id)
	if idx < 0 {
		return models.Lead{}, fmt.Errorf("%w: %s", ErrLeadNotFound, id)
	}
	return cloneLead(r.leads[idx]), nil
}

func (r *Repository) leadIndex(id string) int {
	for i := range r.leads {
		if r.leads[i].ID == id {
			return i
		}
	}
	return -1
}

// LeadsByFunnel returns the leads whose funnel is funnelID.
func (r *Repository) LeadsByFunnel(funnelID string) []models.Lead {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Lead
	for _, l := range r.leads {
		if l.FunnelID == funnelID {
			out = append(out, cloneLead(l))
		}
	}
	return out
}

// LeadsByStage returns the leads sitting in one stage of a funnel.
func (r *Repository) LeadsByStage(funnelID, stageID string) []models.Lead {
	var out []models.Lead
	for _, l := range r.LeadsByFunnel(funnelID) {
		if l.Stage == stageID {
			out = append(out, l)
		}
	}
	return out
}

// SearchLeads matches query case-insensitively against name, phone and email.
// An empty query returns every lead.
func (r *Repository) SearchLeads(query string) []models.Lead {
	q := strings.ToLower(strings.TrimSpace(query))
	all := r.Leads()
	if q == "" {
		return all
	}
	var out []models.Lead
	for _, l := range all {
		if strings.Contains(strings.ToLower(l.Name), q) ||
			strings.Contains(strings.ToLower(l.Phone), q) ||
			strings.Contains(strings.ToLower(l.Email), q) {
			out = append(out, l)
		}
	}
	return out
}

// AddLead stores a new lead with a generated id and creation time. Name and
// phone are required. An empty funnel means the first funnel and an empty
// stage means that funnel's first stage.
func (r *Repository) AddLead(l models.Lead) (models.Lead, error) {
	l.Name = strings.TrimSpace(l.Name)
	l.Phone = strings.TrimSpace(l.Phone)
	if l.Name == "" || l.Phone == "" {
		return models.Lead{}, r.fail("Name and phone are required", fmt.Errorf("%w: name and phone", ErrMissingField))
	}
	if l.Source == "" {
		l.Source = models.SourceManual
	}

	r.mu.Lock()
	if l.FunnelID == "" && len(r.funnels) > 0 {
		l.FunnelID = r.funnels[0].ID
	}
	if l.Stage == "" {
		if idx := r.funnelIndex(l.FunnelID); idx >= 0 {
			if first := r.funnels[idx].FirstStage(); first != nil {
				l.Stage = first.ID
			}
		}
	}
	l.ID = r.newULID()
	l.CreatedAt = r.clock.Now().UTC()
	l = cloneLead(l)
	r.leads = append(r.leads, l)
	r.mu.Unlock()

	r.commit([]store.Key{store.KeyLeads}, success("Lead added successfully"), Event{Kind: LeadCreated, ID: l.ID})
	return cloneLead(l), nil
}

// UpdateLead replaces the lead with the same id.
func (r *Repository) UpdateLead(l models.Lead) (models.Lead, error) {
	l = cloneLead(l)

	r.mu.Lock()
	idx := r.leadIndex(l.ID)
	if idx < 0 {
		r.mu.Unlock()
		return models.Lead{}, r.fail("Lead not found", fmt.Errorf("%w: %s", ErrLeadNotFound, l.ID))
	}
	r.leads[idx] = l
	r.mu.Unlock()

	r.commit([]store.Key{store.KeyLeads}, success("Lead updated successfully"), Event{Kind: LeadUpdated, ID: l.ID})
	return cloneLead(l), nil
}

// DeleteLead removes a lead. Its chat messages are kept.
func (r *Repository) DeleteLead(id string) error {
	r.mu.Lock()
	idx := r.leadIndex(id)
	if idx < 0 {
		r.mu.Unlock()
		return r.fail("Lead not found", fmt.Errorf("%w: %s", ErrLeadNotFound, id))
	}
	r.leads = append(r.leads[:idx:idx], r.leads[idx+1:]...)
	r.mu.Unlock()

	r.commit([]store.Key{store.KeyLeads}, success("Lead deleted successfully"), Event{Kind: LeadDeleted, ID: id})
	return nil
}

// MoveLead reassigns a lead's stage and funnel. The pair is not validated.
func (r *Repository) MoveLead(leadID, stageID, funnelID string) (models.Lead, error) {
	r.mu.Lock()
	idx := r.leadIndex(leadID)
	if idx < 0 {
		r.mu.Unlock()
		return models.Lead{}, r.fail("Lead not found", fmt.Errorf("%w: %s", ErrLeadNotFound, leadID))
	}
	r.leads[idx].Stage = stageID
	r.leads[idx].FunnelID = funnelID
	l := cloneLead(r.leads[idx])
	r.mu.Unlock()

	r.commit([]store.Key{store.KeyLeads}, success("Lead moved"), Event{Kind: LeadMoved, ID: leadID})
	return l, nil
}

// FunnelAndStageName resolves a lead's funnel and stage names, falling back to
// "Unknown" for dangling references.
func (r *Repository) FunnelAndStageName(l models.Lead) (funnelName, stageName string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	funnelName, stageName = "Unknown", "Unknown"
	idx := r.funnelIndex(l.FunnelID)
	if idx < 0 {
		return
	}
	f := &r.funnels[idx]
	funnelName = f.Name
	if s := f.Stage(l.Stage); s != nil {
		stageName = s.Name
	}
	return
}

// LeadName returns the lead's name or "Unknown Lead".
func (r *Repository) LeadName(id string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.leadIndex(id); idx >= 0 {
		return r.leads[idx].Name
	}
	return "Unknown Lead"
}

// ABOUTME: Funnel and stage operations on the repository
// ABOUTME: Keeps stage ordering dense and refuses to delete funnels that still hold leads
package crm

import (
	"fmt"
	"strings"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/store"
)

// DefaultStageNames are used when a funnel is created without stages.
var DefaultStageNames = []string{"New Lead", "Contact Made", "Proposal Sent", "Closed Won", "Closed Lost"}

// Direction for MoveStage.
type Direction int

const (
	Up Direction = iota
	Down
)

// Funnels returns a copy of every funnel in insertion order.
func (r *Repository) Funnels() []models.Funnel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneFunnels(r.funnels)
}

// Funnel returns a copy of the funnel with id.
func (r *Repository) Funnel(id string) (models.Funnel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.funnelIndex(id)
	if idx < 0 {
		return models.Funnel{}, fmt.Errorf("%w: %s", ErrFunnelNotFound, id)
	}
	return cloneFunnel(r.funnels[idx]), nil
}

// FirstFunnel returns the first funnel, or false when there are none.
func (r *Repository) FirstFunnel() (models.Funnel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.funnels) == 0 {
		return models.Funnel{}, false
	}
	return cloneFunnel(r.funnels[0]), true
}

func (r *Repository) funnelIndex(id string) int {
	for i := range r.funnels {
		if r.funnels[i].ID == id {
			return i
		}
	}
	return -1
}

// AddFunnel creates a funnel. Without stages it gets the default five; with a
// nil allowedUsers every current user is allowed.
func (r *Repository) AddFunnel(name string, stages []models.Stage, allowedUsers []string) (models.Funnel, error) {
	if strings.TrimSpace(name) == "" {
		return models.Funnel{}, r.fail("Funnel name cannot be empty", ErrEmptyName)
	}

	f := models.Funnel{
		ID:     newUUID(),
		Name:   name,
		Stages: append([]models.Stage(nil), stages...),
	}
	if len(f.Stages) == 0 {
		for i, n := range DefaultStageNames {
			f.Stages = append(f.Stages, models.Stage{ID: newUUID(), Name: n, Order: i})
		}
	}
	for i := range f.Stages {
		if f.Stages[i].ID == "" {
			f.Stages[i].ID = newUUID()
		}
	}
	f.NormalizeStages()

	r.mu.Lock()
	if allowedUsers == nil {
		allowedUsers = make([]string, 0, len(r.users))
		for _, u := range r.users {
			allowedUsers = append(allowedUsers, u.ID)
		}
	}
	f.AllowedUsers = append([]string{}, allowedUsers...)
	r.funnels = append(r.funnels, f)
	r.mu.Unlock()

	r.commit([]store.Key{store.KeyFunnels}, success("Funnel created successfully"), Event{Kind: FunnelCreated, ID: f.ID})
	return cloneFunnel(f), nil
}

// UpdateFunnel replaces the funnel with the same id. Stages are renumbered densely.
func (r *Repository) UpdateFunnel(f models.Funnel) (models.Funnel, error) {
	if strings.TrimSpace(f.Name) == "" {
		return models.Funnel{}, r.fail("Funnel name cannot be empty", ErrEmptyName)
	}
	f = cloneFunnel(f)
	f.NormalizeStages()

	r.mu.Lock()
	idx := r.funnelIndex(f.ID)
	if idx < 0 {
		r.mu.Unlock()
		return models.Funnel{}, r.fail("Funnel not found", fmt.Errorf("%w: %s", ErrFunnelNotFound, f.ID))
	}
	r.funnels[idx] = f
	r.mu.Unlock()

	r.commit([]store.Key{store.KeyFunnels}, success("Funnel updated successfully"), Event{Kind: FunnelUpdated, ID: f.ID})
	return cloneFunnel(f), nil
}

// DeleteFunnel removes a funnel that no lead references.
func (r *Repository) DeleteFunnel(id string) error {
	r.mu.Lock()
	idx := r.funnelIndex(id)
	if idx < 0 {
		r.mu.Unlock()
		return r.fail("Funnel not found", fmt.Errorf("%w: %s", ErrFunnelNotFound, id))
	}
	for _, l := range r.leads {
		if l.FunnelID == id {
			r.mu.Unlock()
			return r.fail("Cannot delete funnel with leads", ErrFunnelHasLeads)
		}
	}
	r.funnels = append(r.funnels[:idx:idx], r.funnels[idx+1:]...)
	r.mu.Unlock()

	r.commit([]store.Key{store.KeyFunnels}, success("Funnel deleted successfully"), Event{Kind: FunnelDeleted, ID: id})
	return nil
}

// editFunnel applies fn to a copy of the funnel and stores the result. fn may
// only fail with ErrStageNotFound.
func (r *Repository) editFunnel(id string, fn func(f *models.Funnel) error) (models.Funnel, error) {
	r.mu.Lock()
	idx := r.funnelIndex(id)
	if idx < 0 {
		r.mu.Unlock()
		return models.Funnel{}, r.fail("Funnel not found", fmt.Errorf("%w: %s", ErrFunnelNotFound, id))
	}
	f := cloneFunnel(r.funnels[idx])
	if err := fn(&f); err != nil {
		r.mu.Unlock()
		return models.Funnel{}, r.fail("Stage not found", err)
	}
	f.NormalizeStages()
	r.funnels[idx] = f
	r.mu.Unlock()

	r.commit([]store.Key{store.KeyFunnels}, success("Funnel updated successfully"), Event{Kind: FunnelUpdated, ID: id})
	return cloneFunnel(f), nil
}

// AddStage appends a stage at the end of the funnel.
func (r *Repository) AddStage(funnelID, name string) (models.Stage, error) {
	if strings.TrimSpace(name) == "" {
		return models.Stage{}, r.fail("Stage name cannot be empty", ErrEmptyName)
	}
	st := models.Stage{ID: newUUID(), Name: name}
	f, err := r.editFunnel(funnelID, func(f *models.Funnel) error {
		st.Order = len(f.Stages)
		f.NormalizeStages()
		f.Stages = append(f.Stages, st)
		return nil
	})
	if err != nil {
		return models.Stage{}, err
	}
	return *f.Stage(st.ID), nil
}

// DeleteStage removes a stage. Leads in that stage keep the dangling id.
func (r *Repository) DeleteStage(funnelID, stageID string) error {
	_, err := r.editFunnel(funnelID, func(f *models.Funnel) error {
		kept := f.Stages[:0]
		found := false
		for _, s := range f.Stages {
			if s.ID == stageID {
				found = true
				continue
			}
			kept = append(kept, s)
		}
		if !found {
			return fmt.Errorf("%w: %s", ErrStageNotFound, stageID)
		}
		f.Stages = kept
		return nil
	})
	return err
}

// MoveStage swaps a stage with its neighbour. Moving past either end leaves the
// funnel unchanged.
func (r *Repository) MoveStage(funnelID, stageID string, dir Direction) error {
	_, err := r.editFunnel(funnelID, func(f *models.Funnel) error {
		f.NormalizeStages()
		idx := -1
		for i := range f.Stages {
			if f.Stages[i].ID == stageID {
				idx = i
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrStageNotFound, stageID)
		}
		target := idx - 1
		if dir == Down {
			target = idx + 1
		}
		if target < 0 || target >= len(f.Stages) {
			return nil
		}
		f.Stages[idx].Order, f.Stages[target].Order = f.Stages[target].Order, f.Stages[idx].Order
		return nil
	})
	return err
}

// SetWebhook configures the funnel's inbound lead webhook.
func (r *Repository) SetWebhook(funnelID string, active bool, url string) (models.Funnel, error) {
	return r.editFunnel(funnelID, func(f *models.Funnel) error {
		f.Webhook = &models.Webhook{Active: active, URL: url}
		return nil
	})
}

// SetAllowedUsers replaces the funnel's access list.
func (r *Repository) SetAllowedUsers(funnelID string, userIDs []string) (models.Funnel, error) {
	return r.editFunnel(funnelID, func(f *models.Funnel) error {
		f.AllowedUsers = append([]string{}, userIDs...)
		return nil
	})
}

// RenameFunnel changes a funnel's name.
func (r *Repository) RenameFunnel(funnelID, name string) (models.Funnel, error) {
	if strings.TrimSpace(name) == "" {
		return models.Funnel{}, r.fail("Funnel name cannot be empty", ErrEmptyName)
	}
	return r.editFunnel(funnelID, func(f *models.Funnel) error {
		f.Name = name
		return nil
	})
}

// FunnelsForUser returns the funnels a user may see. Admins see every funnel.
func (r *Repository) FunnelsForUser(u *models.User) []models.Funnel {
	all := r.Funnels()
	if u == nil || u.IsAdmin() {
		return all
	}
	out := all[:0]
	for _, f := range all {
		for _, id := range f.AllowedUsers {
			if id == u.ID {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

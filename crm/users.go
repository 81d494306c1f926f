// ABOUTME: User and provider configuration records on the repository
// ABOUTME: Users are seeded and never deleted; provider config is a singleton
package crm

import (
	"fmt"
	"strings"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/store"
)

func (r *Repository) Users() []models.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.User{}, r.users...)
}

func (r *Repository) User(id string) (models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx := r.userIndex(id); idx >= 0 {
		return r.users[idx], nil
	}
	return models.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
}

// UserByEmail finds a user by email, ignoring case.
func (r *Repository) UserByEmail(email string) (models.User, error) {
	email = strings.TrimSpace(email)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, email)
}

func (r *Repository) userIndex(id string) int {
	for i := range r.users {
		if r.users[i].ID == id {
			return i
		}
	}
	return -1
}

// UpdateUser replaces a user's profile. The connection flag is kept as stored.
func (r *Repository) UpdateUser(u models.User) (models.User, error) {
	if strings.TrimSpace(u.Name) == "" {
		return models.User{}, r.fail("Name cannot be empty", ErrEmptyName)
	}

	r.mu.Lock()
	idx := r.userIndex(u.ID)
	if idx < 0 {
		r.mu.Unlock()
		return models.User{}, r.fail("User not found", fmt.Errorf("%w: %s", ErrUserNotFound, u.ID))
	}
	u.WhatsappConnected = r.users[idx].WhatsappConnected
	r.users[idx] = u
	r.mu.Unlock()

	r.commit([]store.Key{store.KeyUsers}, success("Profile updated successfully"), Event{Kind: UserUpdated, ID: u.ID})
	return u, nil
}

// SetWhatsappConnected flips a user's connection flag.
func (r *Repository) SetWhatsappConnected(userID string, connected bool) error {
	r.mu.Lock()
	idx := r.userIndex(userID)
	if idx < 0 {
		r.mu.Unlock()
		return r.fail("User not found", fmt.Errorf("%w: %s", ErrUserNotFound, userID))
	}
	r.users[idx].WhatsappConnected = connected
	r.mu.Unlock()

	note := success("WhatsApp disconnected")
	if connected {
		note = success("WhatsApp connected successfully")
	}
	r.commit([]store.Key{store.KeyUsers}, note, Event{Kind: UserUpdated, ID: userID})
	return nil
}

// UserName returns the name of the user who sent an outgoing message:
// "System" when no user is set and "Unknown User" for dangling ids.
func (r *Repository) UserName(id string) string {
	if id == "" {
		return "System"
	}
	u, err := r.User(id)
	if err != nil {
		return "Unknown User"
	}
	return u.Name
}

// AssigneeName returns the assignee's name, "Unassigned" or "Unknown User".
func (r *Repository) AssigneeName(id string) string {
	if id == "" {
		return "Unassigned"
	}
	return r.UserName(id)
}

// ProviderConfig returns the stored provider configuration, or nil.
func (r *Repository) ProviderConfig() *models.ProviderConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.providerConfig == nil {
		return nil
	}
	cfg := *r.providerConfig
	return &cfg
}

// SetProviderConfig replaces the provider configuration wholesale.
func (r *Repository) SetProviderConfig(cfg models.ProviderConfig) {
	r.mu.Lock()
	r.providerConfig = &cfg
	r.mu.Unlock()

	r.commit([]store.Key{store.KeyProviderConfig}, success("WhatsApp API configuration saved successfully"), Event{Kind: ProviderConfigUpdated})
}

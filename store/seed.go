// ABOUTME: Seed fixture used when a collection has never been persisted
// ABOUTME: One funnel with six stages, two leads, two users, and sample chat messages
package store

import (
	"time"

	"github.com/harperreed/leadpipe/models"
)

// Snapshot is the full set of persisted collections.
type Snapshot struct {
	Funnels        []models.Funnel
	Leads          []models.Lead
	Users          []models.User
	Messages       []models.ChatMessage
	ProviderConfig *models.ProviderConfig
}

var seedTime = time.Date(2024, time.January, 15, 9, 0, 0, 0, time.UTC)

// Seed returns a fresh copy of the default data.
func Seed() Snapshot {
	janeContact := seedTime.Add(26 * time.Hour)

	return Snapshot{
		Funnels: []models.Funnel{
			{
				ID:   "1",
				Name: "Sales Funnel",
				Stages: []models.Stage{
					{ID: "1-1", Name: "New Lead", Order: 0},
					{ID: "1-2", Name: "Contact Made", Order: 1},
					{ID: "1-3", Name: "Proposal Sent", Order: 2},
					{ID: "1-4", Name: "Negotiation", Order: 3},
					{ID: "1-5", Name: "Closed Won", Order: 4},
					{ID: "1-6", Name: "Closed Lost", Order: 5},
				},
				AllowedUsers: []string{"1", "2"},
			},
		},
		Leads: []models.Lead{
			{
				ID:        "1",
				Name:      "John Doe",
				Phone:     "+11234567890",
				Email:     "john@example.com",
				Source:    models.SourceManual,
				Notes:     "Interested in premium plan",
				Stage:     "1-1",
				FunnelID:  "1",
				CreatedAt: seedTime,
			},
			{
				ID:          "2",
				Name:        "Jane Smith",
				Phone:       "+10987654321",
				Email:       "jane@example.com",
				Source:      models.SourceImport,
				Stage:       "1-2",
				FunnelID:    "1",
				CreatedAt:   seedTime,
				LastContact: &janeContact,
			},
		},
		Users: []models.User{
			{ID: "1", Name: "Admin User", Email: "admin@example.com", Role: models.RoleAdmin},
			{ID: "2", Name: "Regular User", Email: "user@example.com", Role: models.RoleUser},
		},
		Messages: []models.ChatMessage{
			{
				ID:        "m1",
				LeadID:    "2",
				UserID:    "1",
				Content:   "Hi Jane, thanks for your interest! Do you have a minute to talk?",
				Timestamp: seedTime.Add(25 * time.Hour),
				Direction: models.DirectionOutgoing,
				Status:    models.StatusDelivered,
			},
			{
				ID:        "m2",
				LeadID:    "2",
				Content:   "Sure, what are the pricing options?",
				Timestamp: janeContact,
				Direction: models.DirectionIncoming,
				Status:    models.StatusDelivered,
			},
		},
	}
}

// LoadSnapshot reads every collection, falling back to the seed fixture for
// each slot that is missing or malformed. It returns the keys that were seeded.
// A failed read aborts the load so stored data is never replaced by the seed.
func (s *Store) LoadSnapshot() (Snapshot, []Key, error) {
	seed := Seed()
	var snap Snapshot
	var seeded []Key

	slots := []struct {
		key      Key
		dst      any
		fallback func()
	}{
		{KeyFunnels, &snap.Funnels, func() { snap.Funnels = seed.Funnels }},
		{KeyLeads, &snap.Leads, func() { snap.Leads = seed.Leads }},
		{KeyUsers, &snap.Users, func() { snap.Users = seed.Users }},
		{KeyChatMessages, &snap.Messages, func() { snap.Messages = seed.Messages }},
	}
	for _, slot := range slots {
		ok, err := s.Load(slot.key, slot.dst)
		if err != nil {
			return Snapshot{}, nil, err
		}
		if !ok {
			slot.fallback()
			seeded = append(seeded, slot.key)
		}
	}

	var cfg models.ProviderConfig
	ok, err := s.Load(KeyProviderConfig, &cfg)
	if err != nil {
		return Snapshot{}, nil, err
	}
	if ok {
		snap.ProviderConfig = &cfg
	}

	return snap, seeded, nil
}

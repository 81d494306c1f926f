// ABOUTME: Data models for CRM entities
// ABOUTME: Defines User, Funnel, Stage, Lead, ChatMessage, and ProviderConfig structs
package models

import (
	"sort"
	"time"
)

// Role constants.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type User struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Email             string `json:"email"`
	Role              string `json:"role"`
	Avatar            string `json:"avatar,omitempty"`
	WhatsappConnected bool   `json:"whatsappConnected"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type Stage struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Order int    `json:"order"`
}

type Webhook struct {
	Active bool   `json:"active"`
	URL    string `json:"url"`
}

type Funnel struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Stages       []Stage  `json:"stages"`
	AllowedUsers []string `json:"allowedUsers"`
	Webhook      *Webhook `json:"webhook,omitempty"`
}

// SortedStages returns a copy of the funnel's stages ordered by ascending Order.
func (f *Funnel) SortedStages() []Stage {
	stages := make([]Stage, len(f.Stages))
	copy(stages, f.Stages)
	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].Order < stages[j].Order
	})
	return stages
}

// FirstStage returns the stage with the lowest order, or nil for an empty funnel.
func (f *Funnel) FirstStage() *Stage {
	stages := f.SortedStages()
	if len(stages) == 0 {
		return nil
	}
	return &stages[0]
}

// Stage looks up a stage by id within this funnel.
func (f *Funnel) Stage(id string) *Stage {
	for i := range f.Stages {
		if f.Stages[i].ID == id {
			return &f.Stages[i]
		}
	}
	return nil
}

// NormalizeStages sorts stages by Order and reassigns a dense 0..n-1 ordering.
func (f *Funnel) NormalizeStages() {
	f.Stages = f.SortedStages()
	for i := range f.Stages {
		f.Stages[i].Order = i
	}
}

// Lead source constants.
const (
	SourceManual  = "manual"
	SourceImport  = "import"
	SourceWebhook = "webhook"
)

type Lead struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Phone       string     `json:"phone"`
	Email       string     `json:"email,omitempty"`
	Source      string     `json:"source"`
	Notes       string     `json:"notes,omitempty"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	Stage       string     `json:"stage"`
	FunnelID    string     `json:"funnelId"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastContact *time.Time `json:"lastContact,omitempty"`
}

// Message direction constants.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Message status constants. Status only moves forward: sent, delivered, read.
// Failed is terminal.
const (
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusFailed    = "failed"
)

var statusRank = map[string]int{
	StatusSent:      0,
	StatusDelivered: 1,
	StatusRead:      2,
}

// CanTransition reports whether a message may move from one status to another.
func CanTransition(from, to string) bool {
	if from == StatusFailed || from == StatusRead {
		return false
	}
	if to == StatusFailed {
		return true
	}
	fr, ok := statusRank[from]
	if !ok {
		return false
	}
	tr, ok := statusRank[to]
	if !ok {
		return false
	}
	return tr > fr
}

// Attachment kind constants.
const (
	AttachmentImage    = "image"
	AttachmentDocument = "document"
	AttachmentAudio    = "audio"
	AttachmentVideo    = "video"
)

// ValidAttachmentKind reports whether kind is one of the enumerated attachment kinds.
func ValidAttachmentKind(kind string) bool {
	switch kind {
	case AttachmentImage, AttachmentDocument, AttachmentAudio, AttachmentVideo:
		return true
	}
	return false
}

type Attachment struct {
	Kind string `json:"type"`
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

type ChatMessage struct {
	ID          string       `json:"id"`
	LeadID      string       `json:"leadId"`
	UserID      string       `json:"userId,omitempty"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Direction   string       `json:"direction"`
	Status      string       `json:"status"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Provider constants.
const (
	ProviderBaileys        = "baileys"
	ProviderWhatsappWebJS  = "whatsapp-web.js"
	ProviderVenom          = "venom"
	ProviderWPPConnect     = "wppconnect"
	ProviderCustom         = "custom"
	DefaultMessageProvider = ProviderBaileys
)

// ValidProvider reports whether p names a supported provider.
func ValidProvider(p string) bool {
	switch p {
	case ProviderBaileys, ProviderWhatsappWebJS, ProviderVenom, ProviderWPPConnect, ProviderCustom:
		return true
	}
	return false
}

// ProviderConfig holds the WhatsApp provider endpoint and credentials.
type ProviderConfig struct {
	APIURL      string    `json:"apiUrl"`
	APIKey      string    `json:"apiKey"`
	Provider    string    `json:"provider"`
	Enabled     bool      `json:"enabled"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// Active reports whether outbound calls should go to the configured provider.
func (c *ProviderConfig) Active() bool {
	return c != nil && c.Enabled && c.APIURL != ""
}

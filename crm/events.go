// ABOUTME: Change events published after each committed repository mutation
// ABOUTME: Subscribers run synchronously outside the repository lock
package crm

// EventKind names what changed.
type EventKind string

const (
	FunnelCreated         EventKind = "funnel.created"
	FunnelUpdated         EventKind = "funnel.updated"
	FunnelDeleted         EventKind = "funnel.deleted"
	LeadCreated           EventKind = "lead.created"
	LeadUpdated           EventKind = "lead.updated"
	LeadMoved             EventKind = "lead.moved"
	LeadDeleted           EventKind = "lead.deleted"
	LeadsImported         EventKind = "leads.imported"
	UserUpdated           EventKind = "user.updated"
	MessageAdded          EventKind = "message.added"
	MessageUpdated        EventKind = "message.updated"
	ProviderConfigUpdated EventKind = "provider.updated"
)

type Event struct {
	Kind EventKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
}

// Subscribe registers fn for every future event and returns a function that
// removes it.
func (r *Repository) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.subsMu.Lock()
	defer r.subsMu.Unlock()

	r.subs = append(r.subs, fn)
	idx := len(r.subs) - 1
	return func() {
		r.subsMu.Lock()
		defer r.subsMu.Unlock()
		if idx < len(r.subs) {
			r.subs[idx] = nil
		}
	}
}

func (r *Repository) publish(e Event) {
	r.subsMu.RLock()
	subs := make([]func(Event), 0, len(r.subs))
	for _, fn := range r.subs {
		if fn != nil {
			subs = append(subs, fn)
		}
	}
	r.subsMu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}

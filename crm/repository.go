// ABOUTME: In-memory CRM repository with asynchronous write-behind persistence
// ABOUTME: Guards funnels, leads, users, messages and provider config behind one mutex
package crm

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sort"
	"sync"

	"github.com/facebookgo/clock"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
	"github.com/harperreed/leadpipe/store"
)

var (
	ErrEmptyName         = errors.New("name cannot be empty")
	ErrMissingField      = errors.New("required field missing")
	ErrFunnelNotFound    = errors.New("funnel not found")
	ErrFunnelHasLeads    = errors.New("cannot delete funnel with leads")
	ErrStageNotFound     = errors.New("stage not found")
	ErrLeadNotFound      = errors.New("lead not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrMessageNotFound   = errors.New("message not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Options configures a Repository. Store is required.
type Options struct {
	Store    *store.Store
	Notifier notify.Notifier
	Clock    clock.Clock
	Logger   *logrus.Logger
}

// Repository owns the CRM collections. Mutations apply in memory immediately and
// are persisted by a background flusher.
type Repository struct {
	store    *store.Store
	notifier notify.Notifier
	clock    clock.Clock
	log      *logrus.Entry

	mu             sync.RWMutex
	funnels        []models.Funnel
	leads          []models.Lead
	users          []models.User
	messages       []models.ChatMessage
	providerConfig *models.ProviderConfig

	idMu    sync.Mutex
	entropy io.Reader

	dirtyMu sync.Mutex
	dirty   map[store.Key]bool
	flushMu sync.Mutex

	kick      chan struct{}
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	subsMu sync.RWMutex
	subs   []func(Event)
}

// New loads every collection from the store, seeding the ones that are absent,
// and starts the background flusher. A backend read failure is returned as is;
// nothing is seeded or written in that case.
func New(opts Options) (*Repository, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogNotifier(opts.Logger)
	}

	r := &Repository{
		store:    opts.Store,
		notifier: opts.Notifier,
		clock:    opts.Clock,
		log:      opts.Logger.WithField("component", "crm"),
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(opts.Clock.Now().UnixNano())), 0),
		dirty:    make(map[store.Key]bool),
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	snap, seeded, err := r.store.LoadSnapshot()
	if err != nil {
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}
	r.funnels = snap.Funnels
	r.leads = snap.Leads
	r.users = snap.Users
	r.messages = snap.Messages
	r.providerConfig = snap.ProviderConfig
	if len(seeded) > 0 {
		r.log.WithField("keys", seeded).Info("seeded default data")
		r.markDirty(seeded...)
	}

	go r.run()
	return r, nil
}

// Clock returns the clock used for timestamps.
func (r *Repository) Clock() clock.Clock {
	return r.clock
}

func (r *Repository) run() {
	defer close(r.done)
	for {
		select {
		case <-r.kick:
			if err := r.Flush(); err != nil {
				r.log.WithError(err).Warn("background flush failed")
			}
		case <-r.stop:
			return
		}
	}
}

func (r *Repository) markDirty(keys ...store.Key) {
	r.dirtyMu.Lock()
	for _, k := range keys {
		r.dirty[k] = true
	}
	r.dirtyMu.Unlock()

	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Flush writes every dirty collection to the store before returning.
// Collections that fail to save stay dirty.
func (r *Repository) Flush() error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.dirtyMu.Lock()
	keys := make([]store.Key, 0, len(r.dirty))
	for k := range r.dirty {
		keys = append(keys, k)
	}
	r.dirty = make(map[store.Key]bool)
	r.dirtyMu.Unlock()

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	var errs []error
	for _, key := range keys {
		if err := r.store.Save(key, r.snapshot(key)); err != nil {
			errs = append(errs, err)
			r.dirtyMu.Lock()
			r.dirty[key] = true
			r.dirtyMu.Unlock()
		}
	}
	return errors.Join(errs...)
}

func (r *Repository) snapshot(key store.Key) any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch key {
	case store.KeyFunnels:
		return cloneFunnels(r.funnels)
	case store.KeyLeads:
		return cloneLeads(r.leads)
	case store.KeyUsers:
		return append([]models.User{}, r.users...)
	case store.KeyChatMessages:
		return cloneMessages(r.messages)
	case store.KeyProviderConfig:
		if r.providerConfig == nil {
			return nil
		}
		cfg := *r.providerConfig
		return cfg
	}
	return nil
}

// Close stops the flusher after a final flush.
func (r *Repository) Close() error {
	var err error
	r.closeOnce.Do(func() {
		close(r.stop)
		<-r.done
		err = r.Flush()
	})
	return err
}

// commit runs after a mutation has released the lock. It schedules
// persistence, then notifies and publishes the change.
func (r *Repository) commit(keys []store.Key, n *notify.Notification, events ...Event) {
	if len(keys) > 0 {
		r.markDirty(keys...)
	}
	if n != nil {
		r.notifier.Notify(*n)
	}
	for _, e := range events {
		r.publish(e)
	}
}

func (r *Repository) fail(msg string, err error) error {
	r.notifier.Notify(notify.Notification{Level: notify.Error, Message: msg})
	return err
}

func success(format string, args ...any) *notify.Notification {
	return &notify.Notification{Level: notify.Success, Message: fmt.Sprintf(format, args...)}
}

// newULID returns a sortable id. Ids generated within the same millisecond
// stay monotonic.
func (r *Repository) newULID() string {
	r.idMu.Lock()
	defer r.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(r.clock.Now()), r.entropy).String()
}

func newUUID() string {
	return uuid.New().String()
}

func cloneFunnel(f models.Funnel) models.Funnel {
	f.Stages = append([]models.Stage(nil), f.Stages...)
	f.AllowedUsers = append([]string(nil), f.AllowedUsers...)
	if f.Webhook != nil {
		w := *f.Webhook
		f.Webhook = &w
	}
	return f
}

func cloneFunnels(in []models.Funnel) []models.Funnel {
	out := make([]models.Funnel, len(in))
	for i, f := range in {
		out[i] = cloneFunnel(f)
	}
	return out
}

func cloneLead(l models.Lead) models.Lead {
	if l.LastContact != nil {
		t := *l.LastContact
		l.LastContact = &t
	}
	return l
}

func cloneLeads(in []models.Lead) []models.Lead {
	out := make([]models.Lead, len(in))
	for i, l := range in {
		out[i] = cloneLead(l)
	}
	return out
}

func cloneMessage(m models.ChatMessage) models.ChatMessage {
	m.Attachments = append([]models.Attachment(nil), m.Attachments...)
	return m
}

func cloneMessages(in []models.ChatMessage) []models.ChatMessage {
	out := make([]models.ChatMessage, len(in))
	for i, m := range in {
		out[i] = cloneMessage(m)
	}
	return out
}

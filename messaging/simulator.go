// ABOUTME: Simulated WhatsApp messaging for leads
// ABOUTME: Records outgoing messages, fakes provider delivery, and schedules random auto-replies
package messaging

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
	"github.com/harperreed/leadpipe/schedule"
)

var (
	ErrNotAuthenticated  = errors.New("user not authenticated")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrInvalidAttachment = errors.New("invalid attachment")
)

// CannedReplies are the bodies used for simulated inbound replies.
var CannedReplies = []string{
	"Thanks for reaching out! I'll get back to you soon.",
	"Can you send me more details?",
	"Sounds good, let's talk tomorrow.",
	"What are the pricing options?",
	"I'm interested, please call me.",
}

// Rand is the randomness the simulator draws on. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Int63n(n int64) int64
}

type Config struct {
	SendDelay       time.Duration
	DeliveryDelay   time.Duration
	AutoReplyChance float64
	AutoReplyMin    time.Duration
	AutoReplyMax    time.Duration
}

func DefaultConfig() Config {
	return Config{
		SendDelay:       time.Second,
		DeliveryDelay:   time.Second,
		AutoReplyChance: 0.5,
		AutoReplyMin:    5 * time.Second,
		AutoReplyMax:    15 * time.Second,
	}
}

type Options struct {
	Repo      *crm.Repository
	Scheduler *schedule.Scheduler
	Notifier  notify.Notifier
	Logger    *logrus.Logger
	Config    Config
	Rand      Rand
}

// Simulator drives the outbound message lifecycle. Timers are never cancelled,
// so a reply can land for a lead that was deleted in the meantime.
type Simulator struct {
	repo     *crm.Repository
	sched    *schedule.Scheduler
	notifier notify.Notifier
	log      *logrus.Entry
	cfg      Config

	rngMu sync.Mutex
	rng   Rand
}

func New(opts Options) *Simulator {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLogNotifier(opts.Logger)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{
		repo:     opts.Repo,
		sched:    opts.Scheduler,
		notifier: opts.Notifier,
		log:      opts.Logger.WithField("component", "messaging"),
		cfg:      opts.Config,
		rng:      opts.Rand,
	}
}

// Send records an outgoing message from sender to the lead and schedules the
// simulated provider round trip. The message is visible with status "sent"
// before Send returns.
func (s *Simulator) Send(ctx context.Context, sender *models.User, leadID, content string, attachments []models.Attachment) (models.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return models.ChatMessage{}, err
	}
	if sender == nil {
		s.notifier.Notify(notify.Notification{Level: notify.Error, Message: "User not authenticated"})
		return models.ChatMessage{}, ErrNotAuthenticated
	}
	if strings.TrimSpace(content) == "" && len(attachments) == 0 {
		s.notifier.Notify(notify.Notification{Level: notify.Error, Message: "Message cannot be empty"})
		return models.ChatMessage{}, ErrEmptyMessage
	}
	for _, a := range attachments {
		if !models.ValidAttachmentKind(a.Kind) || a.URL == "" {
			s.notifier.Notify(notify.Notification{Level: notify.Error, Message: "Invalid attachment"})
			return models.ChatMessage{}, fmt.Errorf("%w: %q", ErrInvalidAttachment, a.Kind)
		}
	}

	msg := s.repo.RecordMessage(models.ChatMessage{
		LeadID:      leadID,
		UserID:      sender.ID,
		Content:     content,
		Timestamp:   s.sched.Now().UTC(),
		Direction:   models.DirectionOutgoing,
		Status:      models.StatusSent,
		Attachments: attachments,
	})

	if s.repo.ProviderConfig().Active() {
		s.sched.After("provider-send", s.cfg.SendDelay, func() { s.traceOutbound(msg) })
		s.sched.After("provider-delivered", s.cfg.SendDelay+s.cfg.DeliveryDelay, func() { s.markDelivered(msg.ID) })
	}

	if s.chance() {
		delay := s.replyDelay()
		s.sched.After("auto-reply", delay, func() { s.autoReply(leadID) })
	}

	return msg, nil
}

// History returns the lead's conversation oldest first.
func (s *Simulator) History(leadID string) []models.ChatMessage {
	return s.repo.ChatHistory(leadID)
}

func (s *Simulator) traceOutbound(msg models.ChatMessage) {
	phone := ""
	if lead, err := s.repo.Lead(msg.LeadID); err == nil {
		phone = lead.Phone
	}
	cfg := s.repo.ProviderConfig()
	fields := logrus.Fields{
		"message_id":  msg.ID,
		"phone":       phone,
		"attachments": len(msg.Attachments),
	}
	if cfg != nil {
		fields["provider"] = cfg.Provider
		fields["api_url"] = cfg.APIURL
	}
	s.log.WithFields(fields).Info("sending message via provider")
}

func (s *Simulator) markDelivered(id string) {
	if err := s.repo.SetMessageStatus(id, models.StatusDelivered); err != nil {
		s.log.WithError(err).WithField("message_id", id).Debug("delivery status not applied")
	}
}

func (s *Simulator) autoReply(leadID string) {
	s.rngMu.Lock()
	body := CannedReplies[s.rng.Int63n(int64(len(CannedReplies)))]
	s.rngMu.Unlock()

	s.repo.RecordMessage(models.ChatMessage{
		LeadID:    leadID,
		Content:   body,
		Timestamp: s.sched.Now().UTC(),
		Direction: models.DirectionIncoming,
		Status:    models.StatusDelivered,
	})
	s.notifier.Notify(notify.Notification{
		Level:   notify.Info,
		Message: fmt.Sprintf("New message from %s", s.repo.LeadName(leadID)),
	})
}

func (s *Simulator) chance() bool {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Float64() < s.cfg.AutoReplyChance
}

func (s *Simulator) replyDelay() time.Duration {
	span := s.cfg.AutoReplyMax - s.cfg.AutoReplyMin
	if span <= 0 {
		return s.cfg.AutoReplyMin
	}
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.cfg.AutoReplyMin + time.Duration(s.rng.Int63n(int64(span)+1))
}

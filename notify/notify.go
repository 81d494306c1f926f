// ABOUTME: User-facing notifications for the outcome of each operation
// ABOUTME: Provides a logrus-backed sink and a recorder for tests
package notify

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level classifies a notification.
type Level string

const (
	Success Level = "success"
	Error   Level = "error"
	Info    Level = "info"
)

type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func (n Notification) String() string {
	return fmt.Sprintf("[%s] %s", n.Level, n.Message)
}

// Notifier receives notifications. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function into a Notifier.
type Func func(Notification)

func (f Func) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	log *logrus.Entry
}

func NewLogNotifier(logger *logrus.Logger) *LogNotifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogNotifier{log: logger.WithField("component", "notify")}
}

func (l *LogNotifier) Notify(n Notification) {
	entry := l.log.WithField("kind", string(n.Level))
	switch n.Level {
	case Error:
		entry.Warn(n.Message)
	default:
		entry.Info(n.Message)
	}
}

// Multi fans a notification out to several sinks.
type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, x := range m {
		if x != nil {
			x.Notify(n)
		}
	}
}

// Recorder keeps every notification it receives.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Last returns the most recent notification, or the zero value.
func (r *Recorder) Last() Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}
	}
	return r.items[len(r.items)-1]
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

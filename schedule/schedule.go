// ABOUTME: Deferred task scheduling over an injectable clock
// ABOUTME: Tracks pending tasks so short-lived processes can wait for them to drain
package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/facebookgo/clock"
	"github.com/sirupsen/logrus"
)

// Scheduler runs functions after a delay measured on its clock.
type Scheduler struct {
	clock clock.Clock
	log   *logrus.Entry

	mu      sync.Mutex
	pending int
	idle    chan struct{}
}

// New creates a scheduler. Pass clock.New() in production and clock.NewMock() in tests.
func New(c clock.Clock, logger *logrus.Logger) *Scheduler {
	if c == nil {
		c = clock.New()
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	idle := make(chan struct{})
	close(idle)
	return &Scheduler{
		clock: c,
		log:   logger.WithField("component", "schedule"),
		idle:  idle,
	}
}

// Clock returns the clock the scheduler measures delays on.
func (s *Scheduler) Clock() clock.Clock {
	return s.clock
}

// Now is shorthand for s.Clock().Now().
func (s *Scheduler) Now() time.Time {
	return s.clock.Now()
}

// After runs fn once d has elapsed. name is used for logging only.
func (s *Scheduler) After(name string, d time.Duration, fn func()) {
	s.mu.Lock()
	if s.pending == 0 {
		s.idle = make(chan struct{})
	}
	s.pending++
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"task": name, "delay": d}).Debug("scheduled")

	s.clock.AfterFunc(d, func() {
		defer s.done()
		defer func() {
			if r := recover(); r != nil {
				s.log.WithField("task", name).Errorf("task panicked: %v", r)
			}
		}()
		fn()
	})
}

func (s *Scheduler) done() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
}

// Pending reports how many tasks have not yet run.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Wait blocks until no tasks are pending or ctx is done. Tasks scheduled by
// other tasks keep Wait blocked until they also finish.
func (s *Scheduler) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.pending == 0 {
			s.mu.Unlock()
			return nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ABOUTME: Local login session for the single-user CRM
// ABOUTME: Resolves the current user and persists the login across invocations
package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/harperreed/leadpipe/crm"
	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotLoggedIn        = errors.New("not logged in")
)

type sessionRecord struct {
	UserID string `json:"userId"`
}

// Session tracks who is logged in. Credentials are not verified beyond a
// non-empty password.
type Session struct {
	repo  *crm.Repository
	store *store.Store

	mu     sync.RWMutex
	userID string
}

// NewSession restores the persisted login, if any.
func NewSession(repo *crm.Repository, st *store.Store) *Session {
	s := &Session{repo: repo, store: st}
	var rec sessionRecord
	if ok, err := st.Load(store.KeySession, &rec); err == nil && ok {
		s.userID = rec.UserID
	}
	return s
}

// Login signs in the user with email.
func (s *Session) Login(email, password string) (models.User, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return models.User{}, ErrInvalidCredentials
	}
	u, err := s.repo.UserByEmail(email)
	if err != nil {
		return models.User{}, ErrInvalidCredentials
	}

	s.mu.Lock()
	s.userID = u.ID
	s.mu.Unlock()

	if err := s.store.Save(store.KeySession, sessionRecord{UserID: u.ID}); err != nil {
		return u, fmt.Errorf("failed to persist session: %w", err)
	}
	return u, nil
}

// Logout clears the session.
func (s *Session) Logout() error {
	s.mu.Lock()
	s.userID = ""
	s.mu.Unlock()
	return s.store.Save(store.KeySession, sessionRecord{})
}

// CurrentUser returns the logged-in user, or nil. A session pointing at a user
// that no longer exists counts as logged out.
func (s *Session) CurrentUser() *models.User {
	s.mu.RLock()
	id := s.userID
	s.mu.RUnlock()
	if id == "" {
		return nil
	}
	u, err := s.repo.User(id)
	if err != nil {
		return nil
	}
	return &u
}

func (s *Session) IsAdmin() bool {
	return s.CurrentUser().IsAdmin()
}

// Require returns the current user or ErrNotLoggedIn.
func (s *Session) Require() (*models.User, error) {
	u := s.CurrentUser()
	if u == nil {
		return nil, ErrNotLoggedIn
	}
	return u, nil
}

// ABOUTME: Persistent store for typed CRM collections over a key/value backend
// ABOUTME: JSON-encodes each collection under a namespaced key; missing or malformed slots read as absent
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

// Key names a persisted slot.
type Key string

const (
	KeyFunnels        Key = "crm_funnels"
	KeyLeads          Key = "crm_leads"
	KeyUsers          Key = "crm_users"
	KeyProviderConfig Key = "crm_whatsapp_config"
	KeyChatMessages   Key = "crm_chat_messages"
	KeySession        Key = "crm_session"
)

// Keys lists every slot the application persists.
var Keys = []Key{KeyFunnels, KeyLeads, KeyUsers, KeyProviderConfig, KeyChatMessages, KeySession}

// ErrNotFound is returned by a KV when a key has never been written. Backends
// return it (or wrap it) so a missing slot can be told apart from a failed read.
var ErrNotFound = errors.New("key not found")

// KV is the durable medium. db.KVStore and charm.Client both satisfy it.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

// Store loads and saves typed values by key.
type Store struct {
	kv  KV
	log *logrus.Entry
}

// New creates a store over kv. A nil logger falls back to the logrus standard logger.
func New(kv KV, logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Store{
		kv:  kv,
		log: logger.WithField("component", "store"),
	}
}

// Load decodes the slot into v. It reports false with a nil error when the
// slot is missing or cannot be decoded; v is left untouched in that case.
// Any other backend failure is returned as an error.
func (s *Store) Load(key Key, v any) (bool, error) {
	data, ok, err := s.Raw(key)
	if err != nil || !ok {
		return false, err
	}
	if string(data) == "null" {
		return false, nil
	}

	// Decode into a fresh value so a half-decoded payload never leaks into v.
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return false, fmt.Errorf("load %s: destination must be a non-nil pointer", key)
	}
	scratch := reflect.New(target.Elem().Type())
	if err := json.Unmarshal(data, scratch.Interface()); err != nil {
		s.log.WithField("key", key).WithError(err).Debug("discarding malformed slot")
		return false, nil
	}
	target.Elem().Set(scratch.Elem())
	return true, nil
}

// Save encodes v and writes it under key.
func (s *Store) Save(key Key, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.kv.Set([]byte(key), data); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Raw returns the undecoded bytes stored under key. ok is false when the key
// is absent or empty; err carries any other backend failure.
func (s *Store) Raw(key Key) (data []byte, ok bool, err error) {
	data, err = s.kv.Get([]byte(key))
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		s.log.WithField("key", key).WithError(err).Warn("failed to read slot")
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, len(data) > 0, nil
}

// PutRaw writes bytes under key without decoding them.
func (s *Store) PutRaw(key Key, data []byte) error {
	return s.kv.Set([]byte(key), data)
}

// MemoryKV is a process-local KV used by the "memory" backend and tests.
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryKV) Set(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
	return nil
}

// ABOUTME: SQLite-backed key/value store for persisted collections
// ABOUTME: Implements Get/Set/Delete/Keys over the kv table
package db

import (
	"database/sql"
	"errors"
	"time"

	"github.com/harperreed/leadpipe/store"
)

// ErrKeyNotFound is store.ErrNotFound, so the store can tell a missing slot from a failed query.
var ErrKeyNotFound = store.ErrNotFound

// KVStore stores opaque values by key in the kv table.
type KVStore struct {
	db *sql.DB
}

func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db}
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (s *KVStore) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, string(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set upserts the value under key.
func (s *KVStore) Set(key, value []byte) error {
	_, err := s.db.Exec(`
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, string(key), value, time.Now().UTC())
	return err
}

func (s *KVStore) Delete(key []byte) error {
	_, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, string(key))
	return err
}

// Keys lists every stored key in lexical order.
func (s *KVStore) Keys() ([][]byte, error) {
	rows, err := s.db.Query(`SELECT key FROM kv ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys [][]byte
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, []byte(k))
	}
	return keys, rows.Err()
}

// Close closes the underlying database.
func (s *KVStore) Close() error {
	return s.db.Close()
}

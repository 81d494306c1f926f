// ABOUTME: Local BadgerDB backend with the same surface as charm/kv.KV
// ABOUTME: Used for the offline "badger" storage backend and for isolated tests

package charm

import (
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/dgraph-io/badger/v3"
)

// badgerKV wraps BadgerDB to provide the same interface as charm/kv.KV
// without requiring server connectivity.
type badgerKV struct {
	db *badger.DB
}

func (b *badgerKV) Get(key []byte) ([]byte, error) {
	var result []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	return result, err
}

func (b *badgerKV) Set(key, value []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

func (b *badgerKV) Delete(key []byte) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
}

func (b *badgerKV) Keys() ([][]byte, error) {
	var keys [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	return keys, err
}

// Sync is a no-op; there is no remote to sync with.
func (b *badgerKV) Sync() error {
	return nil
}

func (b *badgerKV) Reset() error {
	return b.db.DropAll()
}

func (b *badgerKV) Close() error {
	return b.db.Close()
}

// OpenLocal opens (or creates) a BadgerDB directory and returns a client over it.
func OpenLocal(dir string) (*Client, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create kv dir: %w", err)
	}

	opts := badger.DefaultOptions(dir).
		WithLogger(nil) // badger is chatty at INFO

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	local := &badgerKV{db: db}
	return &Client{
		kv:     local,
		local:  local,
		config: &Config{Host: "localhost", AutoSync: false},
	}, nil
}

// NewTestClient creates a local client in a temporary directory for testing.
// The directory and database are cleaned up when the test finishes.
func NewTestClient(t *testing.T) *Client {
	t.Helper()

	c, err := OpenLocal(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to open local kv: %v", err)
	}

	t.Cleanup(func() {
		if err := c.Close(); err != nil {
			t.Logf("Warning: failed to close test database: %v", err)
		}
	})

	return c
}

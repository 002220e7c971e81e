package store

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerBackend persists record snapshots in a Badger key/value store. It is
// the device-storage backend for server-side and embedded deployments where
// no browser storage exists.
type BadgerBackend struct {
	db *badger.DB
}

// OpenBadger opens (or creates) a Badger database at path with logging
// disabled and wraps it as a backend.
func OpenBadger(path string) (*BadgerBackend, error) {
	db, err := badger.Open(badger.DefaultOptions(path).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("store: open badger at %q: %w", path, err)
	}
	return &BadgerBackend{db: db}, nil
}

// NewBadgerBackend wraps an already-open database the caller owns.
func NewBadgerBackend(db *badger.DB) *BadgerBackend {
	return &BadgerBackend{db: db}
}

// Close closes the underlying database.
func (b *BadgerBackend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Get reads the snapshot stored under key.
func (b *BadgerBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: badger get %q: %w", key, err)
	}
	return value, true, nil
}

// Set writes the snapshot, honouring the TTL when present.
func (b *BadgerBackend) Set(_ context.Context, key string, value []byte, opts SetOptions) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value)
		if opts.TTL > 0 {
			entry = entry.WithTTL(opts.TTL)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("store: badger set %q: %w", key, err)
	}
	return nil
}

// Delete removes the snapshot; deleting a missing key is a no-op.
func (b *BadgerBackend) Delete(_ context.Context, key string, _ SetOptions) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("store: badger delete %q: %w", key, err)
	}
	return nil
}

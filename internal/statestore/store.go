package statestore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"reawwise/internal/services"
)

// Store wraps an open bbolt database.
type Store struct {
	db *bbolt.DB
}

// Entry describes one stored blob.
type Entry struct {
	Session string
	Key     string
	Size    int
}

// Open opens or creates the database at path. The timeout stops a second
// process from blocking forever on the file lock.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "statestore", "open", "create state dir", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, services.Wrap(services.ErrBusy, "statestore", "open", "state database is locked by another process", err)
		}
		return nil, services.Wrap(services.ErrConfiguration, "statestore", "open", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores blob under key in the session's bucket.
func (s *Store) Save(session, key string, blob []byte) error {
	if session == "" || key == "" {
		return services.Wrap(services.ErrValidation, "statestore", "save", "session and key are required", nil)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(session))
		if err != nil {
			return fmt.Errorf("create bucket %q: %w", session, err)
		}
		return b.Put([]byte(key), blob)
	})
}

// Load returns the blob stored under key, or nil when there is none.
func (s *Store) Load(session, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(session))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

// Delete removes key from the session's bucket.
func (s *Store) Delete(session, key string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(session))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// List returns every stored entry sorted by session then key.
func (s *Store) List() ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bbolt.Bucket) error {
			return b.ForEach(func(k, v []byte) error {
				out = append(out, Entry{Session: string(name), Key: string(k), Size: len(v)})
				return nil
			})
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Session != out[j].Session {
			return out[i].Session < out[j].Session
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

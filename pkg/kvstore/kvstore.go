// Package kvstore provides the durable string-keyed key/value store that
// backs every persisted piece of state: the admin session fields, the admin
// document collection, saved quotes, download records and preferences.
package kvstore

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"pdfdesk/pkg/errors"
)

var log = logging.Logger("kvstore")

// Backend names accepted by Open
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Store is a durable string-keyed store. Get reports ok=false for a missing
// key; a non-nil error means the store itself could not be read.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Remove(key string) error
	Keys() ([]string, error)
	Close() error
}

// Open opens the store for backend inside dataDir
func Open(backend, dataDir string) (Store, error) {
	switch backend {
	case "", BackendFile:
		return NewFileStore(filepath.Join(dataDir, "storage.json"))
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dataDir, "storage.db"))
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.New(errors.ErrTypeConfig, "UNKNOWN_BACKEND",
			fmt.Sprintf("unknown storage backend %q", backend)).
			WithUserMessage("Storage backend must be file, sqlite or memory")
	}
}

// Copy copies every key of src into dst and returns how many were copied
func Copy(dst, src Store) (int, error) {
	keys, err := src.Keys()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, key := range keys {
		value, ok, err := src.Get(key)
		if err != nil {
			return n, err
		}
		if !ok {
			continue
		}
		if err := dst.Set(key, value); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func unavailable(err error, op, key string) error {
	return errors.Wrap(err, errors.ErrTypeStorage, errors.ErrStorageUnavailable.Code, "durable storage unavailable").
		WithUserMessage(errors.ErrStorageUnavailable.UserMessage).
		WithContext("op", op).
		WithContext("key", key)
}

func writeFailed(err error, op, key string) error {
	return errors.Wrap(err, errors.ErrTypeStorage, errors.ErrStorageWriteFailed.Code, "failed to write durable storage").
		WithUserMessage(errors.ErrStorageWriteFailed.UserMessage).
		WithRetryable(true).
		WithContext("op", op).
		WithContext("key", key)
}

// MemoryStore keeps values in process memory. It is used by tests and by
// the `memory` backend; SetUnavailable simulates a store that cannot be
// read or written.
type MemoryStore struct {
	mu          sync.RWMutex
	values      map[string]string
	unavailable bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// SetUnavailable toggles simulated storage failure
func (s *MemoryStore) SetUnavailable(down bool) {
	s.mu.Lock()
	s.unavailable = down
	s.mu.Unlock()
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return "", false, unavailable(fmt.Errorf("memory store offline"), "get", key)
	}
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return unavailable(fmt.Errorf("memory store offline"), "set", key)
	}
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return unavailable(fmt.Errorf("memory store offline"), "remove", key)
	}
	delete(s.values, key)
	return nil
}

func (s *MemoryStore) Keys() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return nil, unavailable(fmt.Errorf("memory store offline"), "keys", "")
	}
	return sortedKeys(s.values), nil
}

func (s *MemoryStore) Close() error { return nil }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

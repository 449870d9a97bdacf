package kvstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"pdfdesk/pkg/performance"
)

const reloadDebounce = 200 * time.Millisecond

// FileStore keeps every key in a single JSON object on disk. Writes go to a
// temporary file that is renamed over the original. A watcher reloads the
// cache when another process rewrites the file.
type FileStore struct {
	path      string
	mutex     sync.RWMutex
	values    map[string]string
	lastWrite time.Time
	watcher   *fsnotify.Watcher
	debouncer *performance.Debouncer
	done      chan struct{}
	closeOnce sync.Once
}

// NewFileStore opens (or creates) the store at path
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, unavailable(err, "open", path)
	}

	store := &FileStore{
		path:      path,
		values:    make(map[string]string),
		debouncer: performance.NewDebouncer(nil, reloadDebounce),
		done:      make(chan struct{}),
	}
	if err := store.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warnf("Could not create file watcher: %v", err)
		return store, nil
	}
	// Watch the directory: the file itself is replaced on every write
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		log.Warnf("Could not watch storage directory: %v", err)
		watcher.Close()
		return store, nil
	}
	store.watcher = watcher
	go store.watch()

	return store, nil
}

// Path returns the backing file path
func (s *FileStore) Path() string {
	return s.path
}

// load reads the file into the cache. A corrupt file is moved aside and the
// store starts empty.
func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return unavailable(err, "load", s.path)
	}

	values := make(map[string]string)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &values); err != nil {
			backupPath := s.path + ".broken." + time.Now().Format("20060102150405")
			log.Warnf("Storage file %s is corrupt (%v), moving it to %s", s.path, err, backupPath)
			_ = os.Rename(s.path, backupPath)
			values = make(map[string]string)
		}
	}

	s.mutex.Lock()
	s.values = values
	s.mutex.Unlock()
	return nil
}

func (s *FileStore) watch() {
	target := filepath.Clean(s.path)
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			s.debouncer.Debounce(target, s.reloadIfExternal)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warnf("Watcher error: %v", err)
		}
	}
}

// reloadIfExternal reloads the cache unless the file on disk is the one
// this store wrote last
func (s *FileStore) reloadIfExternal() {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.mutex.Lock()
			s.values = make(map[string]string)
			s.mutex.Unlock()
			log.Infof("Storage file %s removed externally", s.path)
		}
		return
	}

	s.mutex.RLock()
	own := info.ModTime().Equal(s.lastWrite)
	s.mutex.RUnlock()
	if own {
		return
	}

	if err := s.load(); err != nil {
		log.Errorf("Reloading storage file: %v", err)
		return
	}
	log.Infof("Reloaded %s after external change", s.path)
}

// Reload forces a re-read of the backing file
func (s *FileStore) Reload() error {
	return s.load()
}

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *FileStore) Set(key, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	prev, had := s.values[key]
	s.values[key] = value
	if err := s.persistLocked(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return writeFailed(err, "set", key)
	}
	return nil
}

func (s *FileStore) Remove(key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	prev, had := s.values[key]
	if !had {
		return nil
	}
	delete(s.values, key)
	if err := s.persistLocked(); err != nil {
		s.values[key] = prev
		return writeFailed(err, "remove", key)
	}
	return nil
}

func (s *FileStore) Keys() ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return sortedKeys(s.values), nil
}

// persistLocked writes the cache to disk; caller holds the write lock
func (s *FileStore) persistLocked() error {
	raw, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal storage: %w", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, raw, 0600); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace storage file: %w", err)
	}
	if info, err := os.Stat(s.path); err == nil {
		s.lastWrite = info.ModTime()
	}
	return nil
}

// Close stops the watcher
func (s *FileStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.debouncer.Clear()
		if s.watcher != nil {
			err = s.watcher.Close()
		}
	})
	return err
}

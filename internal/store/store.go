// Package store implements persistent JSON key-value stores shared with the frontend.
//
// Each store is one JSON object on disk. Saves are atomic (temp file + rename)
// and serialized across processes with a lock file. A Manager watches the store
// directory and reloads a store when another process rewrites it.
package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
)

// Change describes one key that changed value.
type Change struct {
	Store   string      `json:"store"`
	Key     string      `json:"key"`
	Value   interface{} `json:"value"`
	Deleted bool        `json:"deleted,omitempty"`
}

// Store is a single key-value file.
type Store struct {
	name   string
	path   string
	notify func([]Change)

	mu     sync.RWMutex
	data   map[string]interface{}
	dirty  bool
	digest [sha256.Size]byte
}

func newStore(name, path string, notify func([]Change)) *Store {
	return &Store{
		name:   name,
		path:   path,
		notify: notify,
		data:   make(map[string]interface{}),
	}
}

// Name returns the file name the store was loaded under.
func (s *Store) Name() string { return s.name }

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Get returns the value for key.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores value under key. The change is in memory until Save.
func (s *Store) Set(key string, value interface{}) {
	s.mu.Lock()
	old, existed := s.data[key]
	s.data[key] = value
	s.dirty = true
	s.mu.Unlock()

	if !existed || !reflect.DeepEqual(old, value) {
		s.emit([]Change{{Store: s.name, Key: key, Value: value}})
	}
}

// Delete removes key and reports whether it existed.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	_, existed := s.data[key]
	if existed {
		delete(s.data, key)
		s.dirty = true
	}
	s.mu.Unlock()

	if existed {
		s.emit([]Change{{Store: s.name, Key: key, Deleted: true}})
	}
	return existed
}

// Clear removes every key.
func (s *Store) Clear() {
	s.mu.Lock()
	changes := make([]Change, 0, len(s.data))
	for key := range s.data {
		changes = append(changes, Change{Store: s.name, Key: key, Deleted: true})
	}
	s.data = make(map[string]interface{})
	s.dirty = true
	s.mu.Unlock()

	sortChanges(changes)
	s.emit(changes)
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Entries returns a copy of the whole store.
func (s *Store) Entries() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make(map[string]interface{}, len(s.data))
	for k, v := range s.data {
		entries[k] = v
	}
	return entries
}

// Length returns the number of keys.
func (s *Store) Length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Dirty reports whether there are unsaved changes.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Save writes the store to disk atomically.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store %s: %w", s.name, err)
	}

	// The lock file lives next to the store, so the directory must exist first
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create store dir: %w", err)
	}

	release, err := acquireLock(s.path)
	if err != nil {
		return err
	}
	defer release()

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to save store %s: %w", s.name, err)
	}

	s.digest = sha256.Sum256(data)
	s.dirty = false
	return nil
}

// Reload re-reads the file and returns the keys whose value changed.
// An unchanged file is a no-op. Unsaved in-memory edits are discarded.
func (s *Store) Reload() ([]Change, error) {
	// Read under the lock so a concurrent Save cannot slip in between the
	// read and the digest comparison.
	s.mu.Lock()
	raw, err := os.ReadFile(s.path)
	if err != nil && !os.IsNotExist(err) {
		s.mu.Unlock()
		return nil, err
	}

	digest := sha256.Sum256(raw)
	if raw != nil && digest == s.digest {
		s.mu.Unlock()
		return nil, nil
	}

	next, err := decode(raw)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to decode store %s: %w", s.name, err)
	}

	changes := diff(s.name, s.data, next)
	s.data = next
	s.digest = digest
	s.dirty = false
	s.mu.Unlock()

	s.emit(changes)
	return changes, nil
}

// load reads the initial contents. A corrupt file loads as an empty store.
func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	data, err := decode(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", errCorrupt, err)
	}

	s.mu.Lock()
	s.data = data
	s.digest = sha256.Sum256(raw)
	s.mu.Unlock()
	return nil
}

func (s *Store) emit(changes []Change) {
	if len(changes) > 0 && s.notify != nil {
		s.notify(changes)
	}
}

func decode(raw []byte) (map[string]interface{}, error) {
	data := make(map[string]interface{})
	if len(bytes.TrimSpace(raw)) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	if data == nil {
		// the file contained a literal null
		data = make(map[string]interface{})
	}
	return data, nil
}

func diff(name string, prev, next map[string]interface{}) []Change {
	var changes []Change
	for key, value := range next {
		if old, ok := prev[key]; !ok || !reflect.DeepEqual(old, value) {
			changes = append(changes, Change{Store: name, Key: key, Value: value})
		}
	}
	for key := range prev {
		if _, ok := next[key]; !ok {
			changes = append(changes, Change{Store: name, Key: key, Deleted: true})
		}
	}
	sortChanges(changes)
	return changes
}

func sortChanges(changes []Change) {
	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*"+tmpSuffix)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0600); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

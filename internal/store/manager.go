package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const (
	tmpSuffix  = ".tmp"
	lockSuffix = ".lock"
)

var (
	// ErrInvalidName is returned for store names that are not plain file names.
	ErrInvalidName = errors.New("invalid store name")

	errCorrupt = errors.New("corrupt store file")
)

// Manager owns every store loaded from one directory.
type Manager struct {
	dir string
	log zerolog.Logger

	mu        sync.Mutex
	stores    map[string]*Store
	listeners []func(Change)

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewManager creates the "store" plugin rooted at dir.
func NewManager(dir string, log zerolog.Logger) *Manager {
	return &Manager{
		dir:    dir,
		log:    log.With().Str("plugin", "store").Logger(),
		stores: make(map[string]*Store),
	}
}

func (m *Manager) Name() string { return "store" }

// Dir returns the directory holding the store files.
func (m *Manager) Dir() string { return m.dir }

// Init creates the store directory and starts watching it.
func (m *Manager) Init(ctx context.Context) error {
	if err := os.MkdirAll(m.dir, 0700); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(m.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", m.dir, err)
	}

	m.mu.Lock()
	m.watcher = watcher
	m.mu.Unlock()

	m.wg.Add(1)
	go m.watch(watcher)
	return nil
}

// Close saves stores with pending changes and stops the watcher.
func (m *Manager) Close() error {
	m.mu.Lock()
	watcher := m.watcher
	m.watcher = nil
	stores := make([]*Store, 0, len(m.stores))
	for _, s := range m.stores {
		stores = append(stores, s)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range stores {
		if s.Dirty() {
			if err := s.Save(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if watcher != nil {
		if err := watcher.Close(); err != nil {
			errs = append(errs, err)
		}
		m.wg.Wait()
	}
	return errors.Join(errs...)
}

// OnChange registers fn to be called for every key that changes in any store.
func (m *Manager) OnChange(fn func(Change)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Load returns the store named name, reading it from disk the first time.
func (m *Manager) Load(name string) (*Store, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[name]; ok {
		return s, nil
	}

	s := newStore(name, filepath.Join(m.dir, name), m.broadcast)
	if err := s.load(); err != nil {
		if !errors.Is(err, errCorrupt) {
			return nil, err
		}
		m.log.Warn().Err(err).Str("store", name).Msg("starting with an empty store")
	}

	m.stores[name] = s
	return s, nil
}

// Get returns an already loaded store.
func (m *Manager) Get(name string) (*Store, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[name]
	return s, ok
}

func (m *Manager) broadcast(changes []Change) {
	m.mu.Lock()
	listeners := append([]func(Change){}, m.listeners...)
	m.mu.Unlock()

	for _, change := range changes {
		for _, fn := range listeners {
			fn(change)
		}
	}
}

func (m *Manager) watch(watcher *fsnotify.Watcher) {
	defer m.wg.Done()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Base(event.Name)
			if strings.HasSuffix(name, tmpSuffix) || strings.HasSuffix(name, lockSuffix) {
				continue
			}
			s, ok := m.Get(name)
			if !ok {
				continue
			}
			changes, err := s.Reload()
			if err != nil {
				m.log.Warn().Err(err).Str("store", name).Msg("reload after external change failed")
				continue
			}
			if len(changes) > 0 {
				m.log.Debug().Str("store", name).Int("changes", len(changes)).Msg("store reloaded")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.log.Warn().Err(err).Msg("store watcher error")
		}
	}
}

func validateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, `/\`), filepath.Base(name) != name:
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.HasSuffix(name, tmpSuffix), strings.HasSuffix(name, lockSuffix):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Package plugin defines the capability plugins the desktop shell registers at startup.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Plugin is an OS-integration capability owned by the application runtime.
type Plugin interface {
	// Name is the unique identifier the plugin is registered under.
	Name() string
	// Init is called once the runtime context exists.
	Init(ctx context.Context) error
	// Close releases anything Init acquired.
	Close() error
}

// Registry keeps plugins in registration order.
type Registry struct {
	mu          sync.Mutex
	plugins     []Plugin
	byName      map[string]Plugin
	initialized int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Plugin)}
}

// Register appends p. Names must be unique.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized > 0 {
		return fmt.Errorf("plugin %s: registry already initialized", p.Name())
	}
	if _, exists := r.byName[p.Name()]; exists {
		return fmt.Errorf("plugin %s: already registered", p.Name())
	}
	r.plugins = append(r.plugins, p)
	r.byName[p.Name()] = p
	return nil
}

// MustRegister is Register for the fixed startup set, where a duplicate is a programming error.
func (r *Registry) MustRegister(plugins ...Plugin) {
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (Plugin, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byName[name]
	return p, ok
}

// Names returns plugin names in registration order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(r.plugins))
	for i, p := range r.plugins {
		names[i] = p.Name()
	}
	return names
}

// InitAll initializes plugins in order and stops at the first failure.
// Plugins initialized before the failure stay open until CloseAll.
func (r *Registry) InitAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := r.initialized; i < len(r.plugins); i++ {
		p := r.plugins[i]
		if err := p.Init(ctx); err != nil {
			return fmt.Errorf("plugin %s: %w", p.Name(), err)
		}
		r.initialized = i + 1
	}
	return nil
}

// CloseAll closes initialized plugins in reverse order and joins their errors.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := r.initialized - 1; i >= 0; i-- {
		p := r.plugins[i]
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("plugin %s: %w", p.Name(), err))
		}
	}
	r.initialized = 0
	return errors.Join(errs...)
}

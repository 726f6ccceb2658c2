// Package notification delivers desktop notifications.
package notification

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Permission states reported to the frontend.
const (
	PermissionGranted = "granted"
	PermissionDenied  = "denied"
)

// ErrPermissionDenied is returned by Send when notifications are disabled.
var ErrPermissionDenied = errors.New("notification permission denied")

// Package-level hooks for testing. In production, these use the real implementations.
var (
	notify = beeep.Notify
	alert  = beeep.Alert
)

// Options describes a single notification.
type Options struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	// Sound plays the platform alert sound along with the notification
	Sound bool `json:"sound,omitempty"`
}

// Notifier is the "notification" plugin.
type Notifier struct {
	mu      sync.RWMutex
	appName string
	enabled bool
	log     zerolog.Logger
}

// New creates the notification plugin. enabled comes from [notification] in config.toml.
func New(appName string, enabled bool, log zerolog.Logger) *Notifier {
	return &Notifier{
		appName: appName,
		enabled: enabled,
		log:     log.With().Str("plugin", "notification").Logger(),
	}
}

func (n *Notifier) Name() string { return "notification" }

// Init sets the application name shown as the notification source.
func (n *Notifier) Init(ctx context.Context) error {
	if n.appName != "" {
		beeep.AppName = n.appName
	}
	return nil
}

func (n *Notifier) Close() error { return nil }

// IsPermissionGranted reports whether notifications may be shown.
func (n *Notifier) IsPermissionGranted() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.enabled
}

// RequestPermission returns the current permission state. Desktop platforms
// do not prompt, so the answer is whatever config.toml allows.
func (n *Notifier) RequestPermission() string {
	if n.IsPermissionGranted() {
		return PermissionGranted
	}
	return PermissionDenied
}

// SetEnabled toggles delivery at runtime.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.enabled = enabled
}

// Send shows a notification and returns its id.
func (n *Notifier) Send(opts Options) (string, error) {
	if !n.IsPermissionGranted() {
		return "", ErrPermissionDenied
	}
	if strings.TrimSpace(opts.Title) == "" {
		opts.Title = n.appName
	}

	deliver := notify
	if opts.Sound {
		deliver = alert
	}

	id := uuid.NewString()
	if err := deliver(opts.Title, opts.Body, opts.Icon); err != nil {
		n.log.Warn().Err(err).Str("id", id).Msg("notification delivery failed")
		return "", err
	}

	n.log.Debug().Str("id", id).Str("title", opts.Title).Msg("notification sent")
	return id, nil
}

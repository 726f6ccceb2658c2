// Package desktop provides the native backend of the trycase desktop app:
// the commands the web UI invokes and the fixed set of capability plugins.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/xiaoqiujun/trycase-app/internal/config"
	"github.com/xiaoqiujun/trycase-app/internal/dialog"
	"github.com/xiaoqiujun/trycase-app/internal/notification"
	"github.com/xiaoqiujun/trycase-app/internal/opener"
	"github.com/xiaoqiujun/trycase-app/internal/plugin"
	"github.com/xiaoqiujun/trycase-app/internal/process"
	"github.com/xiaoqiujun/trycase-app/internal/store"
	"github.com/xiaoqiujun/trycase-app/internal/update"
)

// Version is set at build time via ldflags
var Version = "0.1.0-dev"

const greetTemplate = "Hello, %s! You've been greeted from Go!"

// Greet embeds name in a fixed greeting.
func Greet(name string) string {
	return fmt.Sprintf(greetTemplate, name)
}

// URLOpener hands a URL to the operating system.
type URLOpener interface {
	OpenURL(url string) error
}

// OpenWebURL opens url with the system default handler. A failure is returned
// once, as a plain message carrying the underlying cause.
func OpenWebURL(o URLOpener, url string) error {
	if err := o.OpenURL(url); err != nil {
		msg := err.Error()
		if msg == "" {
			msg = fmt.Sprintf("failed to open %s", url)
		}
		return errors.New(msg)
	}
	return nil
}

// Plugins is the fixed capability set every app instance registers.
type Plugins struct {
	Process      *process.Process
	Dialog       *dialog.Dialog
	Notification *notification.Notifier
	Updater      *update.Updater
	Store        *store.Manager
	Opener       *opener.Opener

	registry *plugin.Registry
}

// NewPlugins builds the plugins from cfg and registers them in their fixed order.
func NewPlugins(cfg *config.Config, log zerolog.Logger) *Plugins {
	update.SetCheckInterval(cfg.Updater.CheckIntervalHours)

	p := &Plugins{
		Process:      process.New(os.Args[1:], log),
		Dialog:       dialog.New(log),
		Notification: notification.New(cfg.Window.Title, cfg.Notification.Enabled, log),
		Updater:      update.New(cfg.Updater.Endpoint, cfg.Updater.Pubkey, log),
		Store:        store.NewManager(cfg.Store.Dir, log),
		Opener:       opener.New(log),
		registry:     plugin.NewRegistry(),
	}

	p.registry.MustRegister(
		p.Process,
		p.Dialog,
		p.Notification,
		p.Updater,
		p.Store,
		p.Opener,
	)
	return p
}

// Names lists the registered plugins in initialization order.
func (p *Plugins) Names() []string {
	return p.registry.Names()
}

// Start initializes every plugin. Any failure aborts startup.
func (p *Plugins) Start(ctx context.Context) error {
	return p.registry.InitAll(ctx)
}

// Stop closes the plugins in reverse order.
func (p *Plugins) Stop() error {
	return p.registry.CloseAll()
}

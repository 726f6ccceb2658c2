package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/xiaoqiujun/trycase-app/internal/config"
	"github.com/xiaoqiujun/trycase-app/internal/desktop"
	"github.com/xiaoqiujun/trycase-app/internal/dialog"
	"github.com/xiaoqiujun/trycase-app/internal/logging"
	"github.com/xiaoqiujun/trycase-app/internal/notification"
	"github.com/xiaoqiujun/trycase-app/internal/store"
	"github.com/xiaoqiujun/trycase-app/internal/update"
)

// Frontend event names.
const (
	eventStoreChange    = "store://change"
	eventUpdateProgress = "updater://download-progress"
)

// autoUpdateDelay matches the frontend's original 5s delay after load.
const autoUpdateDelay = 5 * time.Second

// Package-level hooks for testing. In production, these use the real implementations.
var (
	emitEvent = wailsRuntime.EventsEmit
	exitFn    = os.Exit
	afterFunc = func(d time.Duration, f func()) { time.AfterFunc(d, f) }
)

var errNotStarted = errors.New("application has not started")

// App struct holds the application state and is bound to the frontend.
type App struct {
	ctx     context.Context
	cfg     *config.Config
	log     zerolog.Logger
	plugins *desktop.Plugins

	mu         sync.Mutex
	settings   *store.Store
	lastUpdate *update.Info
}

// NewApp creates a new App application struct.
func NewApp(cfg *config.Config, log zerolog.Logger) *App {
	return &App{
		cfg:     cfg,
		log:     log,
		plugins: desktop.NewPlugins(cfg, log),
	}
}

// startup is called when the app starts. A plugin that fails to start is fatal.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
	if err := a.start(ctx); err != nil {
		a.log.Error().Err(err).Msg("error while starting application")
		exitFn(1)
		return
	}
	a.log.Info().Strs("plugins", a.plugins.Names()).Str("version", desktop.Version).Msg("application started")
}

func (a *App) start(ctx context.Context) error {
	if err := a.plugins.Start(ctx); err != nil {
		return err
	}

	a.plugins.Store.OnChange(func(c store.Change) {
		emitEvent(a.ctx, eventStoreChange, c)
	})

	settings, err := a.plugins.Store.Load(a.cfg.Store.Default)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", a.cfg.Store.Default, err)
	}
	a.mu.Lock()
	a.settings = settings
	a.mu.Unlock()

	if a.cfg.Updater.AutoCheck && a.plugins.Updater.Enabled() {
		afterFunc(autoUpdateDelay, a.autoUpdate)
	}
	return nil
}

// shutdown is called when the app is closing.
func (a *App) shutdown(ctx context.Context) {
	if err := a.plugins.Stop(); err != nil {
		a.log.Warn().Err(err).Msg("error while stopping plugins")
	}
}

// exitCode is the status main exits with once the event loop returns.
func (a *App) exitCode() int {
	return a.plugins.Process.ExitCode()
}

// GetVersion returns the application version.
func (a *App) GetVersion() string {
	return desktop.Version
}

// Greet returns a greeting for name.
func (a *App) Greet(name string) string {
	return desktop.Greet(name)
}

// OpenWebURL opens url in the system default handler.
func (a *App) OpenWebURL(url string) error {
	return desktop.OpenWebURL(a.plugins.Opener, url)
}

// OpenPath opens a local file with its default application.
func (a *App) OpenPath(path string) error {
	return a.plugins.Opener.OpenPath(path)
}

// RevealItemInDir shows path in the platform file manager.
func (a *App) RevealItemInDir(path string) error {
	return a.plugins.Opener.RevealItemInDir(path)
}

// ==================== Store Methods ====================

func (a *App) settingsStore() (*store.Store, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.settings == nil {
		return nil, errNotStarted
	}
	return a.settings, nil
}

// StoreGet returns the value stored under key, or nil when it is missing.
func (a *App) StoreGet(key string) (interface{}, error) {
	s, err := a.settingsStore()
	if err != nil {
		return nil, err
	}
	v, _ := s.Get(key)
	return v, nil
}

// StoreSet stores value under key and saves the store.
func (a *App) StoreSet(key string, value interface{}) error {
	s, err := a.settingsStore()
	if err != nil {
		return err
	}
	s.Set(key, value)
	return s.Save()
}

// StoreDelete removes key and saves the store.
func (a *App) StoreDelete(key string) error {
	s, err := a.settingsStore()
	if err != nil {
		return err
	}
	s.Delete(key)
	return s.Save()
}

// StoreClear removes every key and saves the store.
func (a *App) StoreClear() error {
	s, err := a.settingsStore()
	if err != nil {
		return err
	}
	s.Clear()
	return s.Save()
}

// StoreKeys lists the keys of the settings store.
func (a *App) StoreKeys() ([]string, error) {
	s, err := a.settingsStore()
	if err != nil {
		return nil, err
	}
	return s.Keys(), nil
}

// ==================== Dialog Methods ====================

// ConfirmDialog asks an Ok/Cancel question. An empty title uses the default.
func (a *App) ConfirmDialog(message, title string) (bool, error) {
	return a.plugins.Dialog.Confirm(title, message)
}

// AskDialog asks a Yes/No question.
func (a *App) AskDialog(message, title string) (bool, error) {
	return a.plugins.Dialog.Ask(title, message)
}

// MessageDialog shows a message. kind is "info", "warning" or "error".
func (a *App) MessageDialog(title, message, kind string) error {
	return a.plugins.Dialog.Message(title, message, dialog.Kind(kind))
}

// OpenFileDialog shows a file picker and returns the chosen paths.
func (a *App) OpenFileDialog(opts dialog.OpenOptions) ([]string, error) {
	return a.plugins.Dialog.Open(opts)
}

// SaveFileDialog shows a save picker and returns the chosen path, "" if cancelled.
func (a *App) SaveFileDialog(opts dialog.SaveOptions) (string, error) {
	return a.plugins.Dialog.Save(opts)
}

// ==================== Notification Methods ====================

// IsNotificationPermissionGranted reports whether notifications may be sent.
func (a *App) IsNotificationPermissionGranted() bool {
	return a.plugins.Notification.IsPermissionGranted()
}

// RequestNotificationPermission returns "granted" or "denied".
func (a *App) RequestNotificationPermission() string {
	return a.plugins.Notification.RequestPermission()
}

// SendNotification shows a desktop notification and returns its id.
func (a *App) SendNotification(opts notification.Options) (string, error) {
	return a.plugins.Notification.Send(opts)
}

// ==================== Updater / Process Methods ====================

// CheckForUpdate checks the release endpoint, bypassing the cache.
func (a *App) CheckForUpdate() (*update.Info, error) {
	info, err := a.plugins.Updater.Check(a.context(), desktop.Version, true)
	if err != nil {
		return nil, err
	}
	a.mu.Lock()
	a.lastUpdate = info
	a.mu.Unlock()
	return info, nil
}

// DownloadAndInstallUpdate installs the release found by the last check and
// emits updater://download-progress events while downloading.
func (a *App) DownloadAndInstallUpdate() error {
	a.mu.Lock()
	info := a.lastUpdate
	a.mu.Unlock()

	if info == nil {
		var err error
		if info, err = a.CheckForUpdate(); err != nil {
			return err
		}
	}
	return a.plugins.Updater.DownloadAndInstall(a.context(), info, a.reportProgress)
}

// Relaunch restarts the application.
func (a *App) Relaunch() error {
	return a.plugins.Process.Relaunch()
}

// Exit quits the application with code.
func (a *App) Exit(code int) error {
	return a.plugins.Process.Exit(code)
}

// LogFromFrontend writes a frontend log entry to the backend log.
func (a *App) LogFromFrontend(level, message, timestamp string, fields map[string]interface{}) {
	logging.LogFromFrontend(a.log, level, message, timestamp, fields)
}

func (a *App) context() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

func (a *App) reportProgress(e update.Event) {
	switch e.Event {
	case update.EventStarted:
		a.log.Info().Int64("bytes", e.ContentLength).Msg("update download started")
	case update.EventFinished:
		a.log.Info().Msg("update download finished, installing")
	}
	emitEvent(a.ctx, eventUpdateProgress, e)
}

// autoUpdate runs the startup update flow: check quietly, ask before
// installing, then offer a restart.
func (a *App) autoUpdate() {
	info, err := a.CheckForUpdate()
	if err != nil {
		// Network problems should not bother the user
		a.log.Warn().Err(err).Msg("automatic update check failed")
		return
	}
	if !info.Available {
		return
	}
	if !a.plugins.Updater.CanInstall() {
		a.log.Warn().Str("version", info.LatestVersion).Msg("update available but no public key is configured to verify it")
		return
	}

	install, err := a.plugins.Dialog.Confirm("", fmt.Sprintf("有可用更新: %s\n\n您想现在安装这个更新吗？", info.LatestVersion))
	if err != nil || !install {
		return
	}

	if err := a.DownloadAndInstallUpdate(); err != nil {
		a.log.Error().Err(err).Msg("update install failed")
		_ = a.plugins.Dialog.Message("", fmt.Sprintf("更新失败: 自动下载过程中出现问题。\n\n%v", err), dialog.KindError)
		return
	}

	restart, err := a.plugins.Dialog.Confirm("", "更新安装成功！\n\n您想现在重启应用程序以使用新版本吗？")
	if err != nil || !restart {
		return
	}
	if err := a.Relaunch(); err != nil {
		a.log.Error().Err(err).Msg("relaunch after update failed")
	}
}

// Package dialog shows native message and file dialogs through the Wails runtime.
package dialog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// DefaultTitle is used when a caller passes an empty title.
const DefaultTitle = "提示"

// ErrNotReady is returned when a dialog is requested before the runtime started.
var ErrNotReady = errors.New("dialog: runtime not ready")

// Kind selects the icon of a message dialog.
type Kind string

const (
	KindInfo    Kind = "info"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Filter restricts the files a file dialog offers.
type Filter struct {
	Name       string   `json:"name"`
	Extensions []string `json:"extensions"`
}

// OpenOptions configures Open.
type OpenOptions struct {
	Title       string   `json:"title,omitempty"`
	DefaultPath string   `json:"defaultPath,omitempty"`
	Filters     []Filter `json:"filters,omitempty"`
	Multiple    bool     `json:"multiple,omitempty"`
	Directory   bool     `json:"directory,omitempty"`
}

// SaveOptions configures Save.
type SaveOptions struct {
	Title       string   `json:"title,omitempty"`
	DefaultPath string   `json:"defaultPath,omitempty"`
	Filters     []Filter `json:"filters,omitempty"`
}

// backend is the subset of the Wails runtime the plugin calls.
type backend interface {
	MessageDialog(ctx context.Context, opts wailsRuntime.MessageDialogOptions) (string, error)
	OpenFileDialog(ctx context.Context, opts wailsRuntime.OpenDialogOptions) (string, error)
	OpenMultipleFilesDialog(ctx context.Context, opts wailsRuntime.OpenDialogOptions) ([]string, error)
	OpenDirectoryDialog(ctx context.Context, opts wailsRuntime.OpenDialogOptions) (string, error)
	SaveFileDialog(ctx context.Context, opts wailsRuntime.SaveDialogOptions) (string, error)
}

type wailsBackend struct{}

func (wailsBackend) MessageDialog(ctx context.Context, opts wailsRuntime.MessageDialogOptions) (string, error) {
	return wailsRuntime.MessageDialog(ctx, opts)
}

func (wailsBackend) OpenFileDialog(ctx context.Context, opts wailsRuntime.OpenDialogOptions) (string, error) {
	return wailsRuntime.OpenFileDialog(ctx, opts)
}

func (wailsBackend) OpenMultipleFilesDialog(ctx context.Context, opts wailsRuntime.OpenDialogOptions) ([]string, error) {
	return wailsRuntime.OpenMultipleFilesDialog(ctx, opts)
}

func (wailsBackend) OpenDirectoryDialog(ctx context.Context, opts wailsRuntime.OpenDialogOptions) (string, error) {
	return wailsRuntime.OpenDirectoryDialog(ctx, opts)
}

func (wailsBackend) SaveFileDialog(ctx context.Context, opts wailsRuntime.SaveDialogOptions) (string, error) {
	return wailsRuntime.SaveFileDialog(ctx, opts)
}

// Dialog is the "dialog" plugin.
type Dialog struct {
	mu      sync.RWMutex
	ctx     context.Context
	backend backend
	log     zerolog.Logger
}

// New creates the dialog plugin backed by the Wails runtime.
func New(log zerolog.Logger) *Dialog {
	return &Dialog{
		backend: wailsBackend{},
		log:     log.With().Str("plugin", "dialog").Logger(),
	}
}

func (d *Dialog) Name() string { return "dialog" }

// Init keeps the runtime context every dialog call needs.
func (d *Dialog) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx = ctx
	return nil
}

func (d *Dialog) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ctx = nil
	return nil
}

func (d *Dialog) runtimeContext() (context.Context, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.ctx == nil {
		return nil, ErrNotReady
	}
	return d.ctx, nil
}

// Message shows an informational dialog with a single button.
func (d *Dialog) Message(title, message string, kind Kind) error {
	ctx, err := d.runtimeContext()
	if err != nil {
		return err
	}
	_, err = d.backend.MessageDialog(ctx, wailsRuntime.MessageDialogOptions{
		Type:    kind.dialogType(),
		Title:   titleOrDefault(title),
		Message: message,
	})
	return err
}

// Ask shows a Yes/No question and reports whether Yes was chosen.
func (d *Dialog) Ask(title, message string) (bool, error) {
	return d.question(title, message, "Yes", "No")
}

// Confirm shows an Ok/Cancel question and reports whether Ok was chosen.
func (d *Dialog) Confirm(title, message string) (bool, error) {
	return d.question(title, message, "Ok", "Cancel")
}

func (d *Dialog) question(title, message, yes, no string) (bool, error) {
	ctx, err := d.runtimeContext()
	if err != nil {
		return false, err
	}
	result, err := d.backend.MessageDialog(ctx, wailsRuntime.MessageDialogOptions{
		Type:          wailsRuntime.QuestionDialog,
		Title:         titleOrDefault(title),
		Message:       message,
		Buttons:       []string{yes, no},
		DefaultButton: yes,
		CancelButton:  no,
	})
	if err != nil {
		return false, err
	}
	d.log.Debug().Str("result", result).Msg("question answered")
	return affirmative(result), nil
}

// Open shows a file or directory picker. A cancelled dialog returns no paths.
func (d *Dialog) Open(opts OpenOptions) ([]string, error) {
	ctx, err := d.runtimeContext()
	if err != nil {
		return nil, err
	}

	wopts := wailsRuntime.OpenDialogOptions{
		Title:                opts.Title,
		Filters:              toFileFilters(opts.Filters),
		CanCreateDirectories: opts.Directory,
	}
	wopts.DefaultDirectory, wopts.DefaultFilename = splitDefaultPath(opts.DefaultPath)

	var paths []string
	switch {
	case opts.Directory:
		var dir string
		dir, err = d.backend.OpenDirectoryDialog(ctx, wopts)
		paths = nonEmpty(dir)
	case opts.Multiple:
		paths, err = d.backend.OpenMultipleFilesDialog(ctx, wopts)
	default:
		var file string
		file, err = d.backend.OpenFileDialog(ctx, wopts)
		paths = nonEmpty(file)
	}
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// Save shows a save-file picker. A cancelled dialog returns "".
func (d *Dialog) Save(opts SaveOptions) (string, error) {
	ctx, err := d.runtimeContext()
	if err != nil {
		return "", err
	}

	wopts := wailsRuntime.SaveDialogOptions{
		Title:                opts.Title,
		Filters:              toFileFilters(opts.Filters),
		CanCreateDirectories: true,
	}
	wopts.DefaultDirectory, wopts.DefaultFilename = splitDefaultPath(opts.DefaultPath)

	return d.backend.SaveFileDialog(ctx, wopts)
}

func (k Kind) dialogType() wailsRuntime.DialogType {
	switch Kind(strings.ToLower(string(k))) {
	case KindWarning:
		return wailsRuntime.WarningDialog
	case KindError:
		return wailsRuntime.ErrorDialog
	default:
		return wailsRuntime.InfoDialog
	}
}

func titleOrDefault(title string) string {
	if strings.TrimSpace(title) == "" {
		return DefaultTitle
	}
	return title
}

// affirmative accepts both labels because Windows and Linux report the stock
// button name rather than the custom label.
func affirmative(result string) bool {
	switch strings.ToLower(strings.TrimSpace(result)) {
	case "yes", "ok":
		return true
	}
	return false
}

func toFileFilters(filters []Filter) []wailsRuntime.FileFilter {
	if len(filters) == 0 {
		return nil
	}
	out := make([]wailsRuntime.FileFilter, 0, len(filters))
	for _, f := range filters {
		patterns := make([]string, 0, len(f.Extensions))
		for _, ext := range f.Extensions {
			ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
			if ext == "" {
				continue
			}
			patterns = append(patterns, "*."+ext)
		}
		if len(patterns) == 0 {
			continue
		}
		out = append(out, wailsRuntime.FileFilter{
			DisplayName: f.Name,
			Pattern:     strings.Join(patterns, ";"),
		})
	}
	return out
}

// splitDefaultPath treats a path ending in a separator, or without an
// extension, as a directory.
func splitDefaultPath(path string) (dir, file string) {
	if path == "" {
		return "", ""
	}
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, `\`) || filepath.Ext(path) == "" {
		return path, ""
	}
	return filepath.Dir(path), filepath.Base(path)
}

func nonEmpty(path string) []string {
	if path == "" {
		return nil
	}
	return []string{path}
}

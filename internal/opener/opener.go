// Package opener hands URLs and files to the operating system's default handler.
package opener

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/browser"
	"github.com/rs/zerolog"
)

// Package-level hooks for testing. In production, these use the real implementations.
var (
	openURL    = browser.OpenURL
	openFile   = browser.OpenFile
	runCommand = defaultRunCommand
	goos       = runtime.GOOS
)

// ErrEmptyURL is returned when the URL is blank.
var ErrEmptyURL = errors.New("url is empty")

// Opener is the "opener" plugin.
type Opener struct {
	log zerolog.Logger
}

// New creates the opener plugin.
func New(log zerolog.Logger) *Opener {
	return &Opener{log: log.With().Str("plugin", "opener").Logger()}
}

func (o *Opener) Name() string { return "opener" }

// Init silences the child handler's output so it does not leak into the app's stdout.
func (o *Opener) Init(ctx context.Context) error {
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return nil
}

func (o *Opener) Close() error { return nil }

// OpenURL opens rawURL with the handler registered for its scheme. Text
// without a scheme that names an existing file or directory is opened as a path.
func (o *Opener) OpenURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ErrEmptyURL
	}

	u, err := url.Parse(rawURL)
	// A one-letter scheme is a Windows drive ("C:\...")
	if err == nil && len(u.Scheme) > 1 {
		o.log.Debug().Str("url", u.Redacted()).Msg("opening url")
		return openURL(u.String())
	}

	if abs, pathErr := existingPath(rawURL); pathErr == nil {
		o.log.Debug().Str("path", abs).Msg("opening path")
		return openFile(abs)
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("invalid url %q: missing scheme", rawURL)
}

// OpenPath opens a local file or directory with its default application.
func (o *Opener) OpenPath(path string) error {
	abs, err := existingPath(path)
	if err != nil {
		return err
	}

	o.log.Debug().Str("path", abs).Msg("opening path")
	return openFile(abs)
}

// RevealItemInDir shows path selected in the platform file manager.
func (o *Opener) RevealItemInDir(path string) error {
	abs, err := existingPath(path)
	if err != nil {
		return err
	}

	switch goos {
	case "darwin":
		return runCommand("open", "-R", abs)
	case "windows":
		return runCommand("explorer", "/select,"+abs)
	default:
		// xdg-open has no "select" verb, open the parent directory instead
		return runCommand("xdg-open", filepath.Dir(abs))
	}
}

func existingPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(abs); err != nil {
		return "", err
	}
	return abs, nil
}

func defaultRunCommand(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

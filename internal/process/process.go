// Package process lets the frontend exit or restart the application.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// Package-level hooks for testing. In production, these use the real implementations.
var (
	quit       = wailsRuntime.Quit
	executable = os.Executable
	spawn      = defaultSpawn
)

// ErrNotReady is returned when the runtime has not started yet.
var ErrNotReady = errors.New("process: runtime not ready")

// Process is the "process" plugin. Exit and Relaunch ask the runtime to shut
// down cleanly; main reads ExitCode once the event loop returns.
type Process struct {
	args []string
	log  zerolog.Logger

	mu       sync.Mutex
	ctx      context.Context
	exitCode int
}

// New creates the process plugin. args are passed to the relaunched process.
func New(args []string, log zerolog.Logger) *Process {
	return &Process{
		args: args,
		log:  log.With().Str("plugin", "process").Logger(),
	}
}

func (p *Process) Name() string { return "process" }

func (p *Process) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctx = ctx
	return nil
}

func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ctx = nil
	return nil
}

// Exit records code and stops the event loop.
func (p *Process) Exit(code int) error {
	p.mu.Lock()
	ctx := p.ctx
	if ctx == nil {
		p.mu.Unlock()
		return ErrNotReady
	}
	p.exitCode = code
	p.mu.Unlock()

	p.log.Info().Int("code", code).Msg("exit requested")
	quit(ctx)
	return nil
}

// Relaunch starts a new instance of the current executable, then exits with 0.
func (p *Process) Relaunch() error {
	// Without a runtime to quit, the new instance would run alongside this one
	if !p.ready() {
		return ErrNotReady
	}

	exe, err := executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	if err := spawn(exe, p.args); err != nil {
		return fmt.Errorf("failed to relaunch: %w", err)
	}

	p.log.Info().Str("path", exe).Msg("relaunched")
	return p.Exit(0)
}

func (p *Process) ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ctx != nil
}

// ExitCode returns the code requested through Exit, 0 by default.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}

func defaultSpawn(path string, args []string) error {
	cmd := exec.Command(path, args...)
	cmd.Env = os.Environ()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

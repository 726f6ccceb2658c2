package process

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hooks struct {
	quits    int
	spawned  []string
	spawnErr error
}

func setupTestHooks(t *testing.T) *hooks {
	t.Helper()
	h := &hooks{}

	origQuit, origExe, origSpawn := quit, executable, spawn
	quit = func(ctx context.Context) { h.quits++ }
	executable = func() (string, error) { return "/opt/trycase/trycase", nil }
	spawn = func(path string, args []string) error {
		h.spawned = append([]string{path}, args...)
		return h.spawnErr
	}
	t.Cleanup(func() { quit, executable, spawn = origQuit, origExe, origSpawn })

	return h
}

func TestExitRecordsCodeAndQuits(t *testing.T) {
	h := setupTestHooks(t)
	p := New(nil, zerolog.Nop())
	require.NoError(t, p.Init(context.Background()))

	assert.Equal(t, 0, p.ExitCode())
	require.NoError(t, p.Exit(3))
	assert.Equal(t, 3, p.ExitCode())
	assert.Equal(t, 1, h.quits)
}

func TestExitBeforeInit(t *testing.T) {
	h := setupTestHooks(t)
	p := New(nil, zerolog.Nop())

	assert.ErrorIs(t, p.Exit(0), ErrNotReady)
	assert.Equal(t, 0, h.quits)
}

func TestRelaunchSpawnsWithArgs(t *testing.T) {
	h := setupTestHooks(t)
	p := New([]string{"--profile", "work"}, zerolog.Nop())
	require.NoError(t, p.Init(context.Background()))

	require.NoError(t, p.Relaunch())
	assert.Equal(t, []string{"/opt/trycase/trycase", "--profile", "work"}, h.spawned)
	assert.Equal(t, 1, h.quits)
	assert.Equal(t, 0, p.ExitCode())
}

func TestRelaunchBeforeInitDoesNotSpawn(t *testing.T) {
	h := setupTestHooks(t)
	p := New(nil, zerolog.Nop())

	assert.ErrorIs(t, p.Relaunch(), ErrNotReady)
	assert.Empty(t, h.spawned)
	assert.Equal(t, 0, h.quits)

	require.NoError(t, p.Init(context.Background()))
	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Relaunch(), ErrNotReady)
	assert.Empty(t, h.spawned)
}

func TestRelaunchSpawnFailureKeepsRunning(t *testing.T) {
	h := setupTestHooks(t)
	h.spawnErr = errors.New("permission denied")
	p := New(nil, zerolog.Nop())
	require.NoError(t, p.Init(context.Background()))

	err := p.Relaunch()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, 0, h.quits)
}

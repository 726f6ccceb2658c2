package desktop

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaoqiujun/trycase-app/internal/config"
)

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, Version)
	assert.True(t, strings.Contains(Version, "."), "Version should contain a dot")
}

func TestGreet(t *testing.T) {
	assert.Equal(t, "Hello, World! You've been greeted from Go!", Greet("World"))
}

func TestGreetContainsNameAndIsPure(t *testing.T) {
	for _, name := range []string{"World", "测试人员", "a b\tc", "%s %d", strings.Repeat("x", 1000)} {
		got := Greet(name)
		assert.Contains(t, got, name)
		assert.Equal(t, got, Greet(name))
	}
}

func TestGreetEmptyName(t *testing.T) {
	got := Greet("")
	assert.Equal(t, "Hello, ! You've been greeted from Go!", got)
	assert.Contains(t, got, "You've been greeted from Go!")
}

type openerFunc func(string) error

func (f openerFunc) OpenURL(url string) error { return f(url) }

func TestOpenWebURLSuccess(t *testing.T) {
	var opened []string
	err := OpenWebURL(openerFunc(func(u string) error {
		opened = append(opened, u)
		return nil
	}), "https://github.com/xiaoqiujun/trycase-app")

	require.NoError(t, err)
	assert.Equal(t, []string{"https://github.com/xiaoqiujun/trycase-app"}, opened)
}

func TestOpenWebURLFailureCarriesCause(t *testing.T) {
	cause := errors.New("exec: \"xdg-open\": executable file not found in $PATH")
	calls := 0
	err := OpenWebURL(openerFunc(func(string) error {
		calls++
		return cause
	}), "https://example.com")

	require.Error(t, err)
	assert.Equal(t, cause.Error(), err.Error())
	assert.Equal(t, 1, calls, "no retry")
}

func TestOpenWebURLEmptyCauseGetsMessage(t *testing.T) {
	err := OpenWebURL(openerFunc(func(string) error {
		return errors.New("")
	}), "https://example.com")

	require.Error(t, err)
	assert.Equal(t, "failed to open https://example.com", err.Error())
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Store.Dir = filepath.Join(t.TempDir(), "store")
	cfg.Updater.Endpoint = ""
	return cfg
}

func TestPluginsFixedOrder(t *testing.T) {
	p := NewPlugins(testConfig(t), zerolog.Nop())
	assert.Equal(t, []string{"process", "dialog", "notification", "updater", "store", "opener"}, p.Names())
}

func TestPluginsStartStop(t *testing.T) {
	p := NewPlugins(testConfig(t), zerolog.Nop())

	require.NoError(t, p.Start(context.Background()))

	s, err := p.Store.Load("settings.dat")
	require.NoError(t, err)
	s.Set("k", "v")

	require.NoError(t, p.Stop())
	assert.False(t, s.Dirty(), "stop saves pending store changes")
}

func TestPluginsStartFailsOnUnusableStoreDir(t *testing.T) {
	cfg := testConfig(t)
	// A path below /dev/null can never be created
	cfg.Store.Dir = filepath.Join("/dev/null", "store")

	p := NewPlugins(cfg, zerolog.Nop())
	err := p.Start(context.Background())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "plugin store:"), err.Error())

	require.NoError(t, p.Stop())
}

// Package config loads the trycase desktop configuration from config.toml.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	appDirName     = ".trycase"
	configFileName = "config.toml"

	// DefaultUpdateEndpoint serves the release manifest published by CI.
	DefaultUpdateEndpoint = "https://github.com/xiaoqiujun/trycase-app/releases/latest/download/latest.json"
)

// Config represents the whole config.toml file.
type Config struct {
	Log          LogConfig          `toml:"log"`
	Updater      UpdaterConfig      `toml:"updater"`
	Store        StoreConfig        `toml:"store"`
	Notification NotificationConfig `toml:"notification"`
	Window       WindowConfig       `toml:"window"`
}

// LogConfig represents the [log] section.
type LogConfig struct {
	// Level is one of trace, debug, info, warn, error
	Level string `toml:"level"`
	// File is the log file path, "~" is expanded
	File string `toml:"file"`
}

// UpdaterConfig represents the [updater] section.
type UpdaterConfig struct {
	// Endpoint serves a latest.json manifest; empty disables update checks
	Endpoint string `toml:"endpoint"`
	// CheckIntervalHours is how long a check result is reused (default 24)
	CheckIntervalHours int `toml:"check_interval_hours"`
	// AutoCheck runs one background check shortly after startup
	AutoCheck bool `toml:"auto_check"`
	// Pubkey is the minisign public key release artifacts are signed with.
	// Updates are never installed while it is empty.
	Pubkey string `toml:"pubkey"`
}

// StoreConfig represents the [store] section.
type StoreConfig struct {
	// Dir holds the key-value store files
	Dir string `toml:"dir"`
	// Default is the store loaded at startup
	Default string `toml:"default"`
}

// NotificationConfig represents the [notification] section.
type NotificationConfig struct {
	Enabled bool `toml:"enabled"`
}

// WindowConfig represents the [window] section.
type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

// Dir returns ~/.trycase, falling back to the temp dir when home is unknown.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), appDirName)
	}
	return filepath.Join(home, appDirName)
}

// DefaultPath returns the location of config.toml.
func DefaultPath() string {
	return filepath.Join(Dir(), configFileName)
}

// Default returns the configuration used when config.toml is missing.
func Default() *Config {
	dir := Dir()
	return &Config{
		Log: LogConfig{
			Level: "info",
			File:  filepath.Join(dir, "logs", "trycase.log"),
		},
		Updater: UpdaterConfig{
			Endpoint:           DefaultUpdateEndpoint,
			CheckIntervalHours: 24,
			AutoCheck:          true,
		},
		Store: StoreConfig{
			Dir:     filepath.Join(dir, "store"),
			Default: "settings.dat",
		},
		Notification: NotificationConfig{
			Enabled: true,
		},
		Window: WindowConfig{
			Title:  "trycase",
			Width:  1200,
			Height: 800,
		},
	}
}

// Load reads config.toml at path. A missing or unparsable file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return Default(), nil
	}

	cfg.normalize()
	return cfg, nil
}

// Save writes cfg to path, creating the parent directory.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	var buf bytes.Buffer
	buf.WriteString("# trycase configuration\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0600)
}

// normalize fills empty values and clamps invalid ones.
func (c *Config) normalize() {
	defaults := Default()

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "trace", "debug", "info", "warn", "error":
		// Valid
	case "warning":
		c.Log.Level = "warn"
	default:
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.File == "" {
		c.Log.File = defaults.Log.File
	}
	c.Log.File = ExpandHome(c.Log.File)

	c.Updater.Endpoint = strings.TrimSpace(c.Updater.Endpoint)
	if c.Updater.CheckIntervalHours <= 0 {
		c.Updater.CheckIntervalHours = defaults.Updater.CheckIntervalHours
	}

	if c.Store.Dir == "" {
		c.Store.Dir = defaults.Store.Dir
	}
	c.Store.Dir = ExpandHome(c.Store.Dir)
	if c.Store.Default == "" {
		c.Store.Default = defaults.Store.Default
	}

	if c.Window.Title == "" {
		c.Window.Title = defaults.Window.Title
	}
	if c.Window.Width < 400 {
		c.Window.Width = defaults.Window.Width
	}
	if c.Window.Height < 300 {
		c.Window.Height = defaults.Window.Height
	}
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/xiaoqiujun/trycase-app/internal/config"
	"github.com/xiaoqiujun/trycase-app/internal/desktop"
	"github.com/xiaoqiujun/trycase-app/internal/logging"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Detect development mode
	isDev := os.Getenv("TRYCASE_DEV") != "" || desktop.Version == "0.1.0-dev"

	logLevel := cfg.Log.Level
	wailsLevel := logger.INFO
	if isDev {
		logLevel = "debug"
		wailsLevel = logger.DEBUG
	}

	log, closer, err := logging.New(logging.Options{
		Level:   logLevel,
		File:    cfg.Log.File,
		Console: isDev,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Create an instance of the app structure
	app := NewApp(cfg, log)

	err = wails.Run(&options.App{
		Title:  cfg.Window.Title,
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 255, G: 255, B: 255, A: 1},
		OnStartup:        app.startup,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
		Logger:             logging.NewWailsLogger(log),
		LogLevel:           wailsLevel,
		LogLevelProduction: logger.ERROR,
		Debug: options.Debug{
			OpenInspectorOnStartup: isDev,
		},
	})

	if err != nil {
		log.Error().Err(err).Msg("error while running application")
		closer.Close()
		os.Exit(1)
	}

	code := app.exitCode()
	closer.Close()
	os.Exit(code)
}

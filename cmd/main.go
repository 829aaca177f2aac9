package main

import (
	"context"
	"errors"
	"os"

	"github.com/factor8/TagDeck/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	configPath := os.Getenv("TAGDECK_CONFIG")
	if configPath == "" {
		configPath = "config.toml"
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			shared.NewLogger(nil).Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}

	logger, logFile := shared.NewFileLogger(config.Log)
	defer logFile.Close()

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "tagdeck",
		Usage:    "Tag tracks in the comment field and keep audio files, the local store and Apple Music in sync",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented", "error", err)
			return
		}
		runner.Close()
		logFile.Close()
		logger.Fatalf("application error: %v", err)
	}
}

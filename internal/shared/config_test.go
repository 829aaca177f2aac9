package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./tagdeck.db" {
			t.Errorf("expected database path ./tagdeck.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3939 {
			t.Errorf("expected server port 3939, got %d", config.Server.Port)
		}

		if config.Library.Debounce() != 5*time.Second {
			t.Errorf("expected 5s debounce, got %v", config.Library.Debounce())
		}

		if config.Log.MaxSizeMB != 5 || config.Log.MaxBackups != 5 {
			t.Errorf("expected 5MB x 5 log rotation, got %dMB x %d", config.Log.MaxSizeMB, config.Log.MaxBackups)
		}

		if !config.Gateway.Enabled {
			t.Error("expected gateway to be enabled by default")
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.History.Limit != DefaultConfig().History.Limit {
			t.Errorf("created config history limit doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[library]
watch_paths = ["/tmp/library"]
debounce_seconds = 2

[gateway]
enabled = false
rate_limit = 2.5

[server]
port = 8080
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}

		if config.Server.Host != "127.0.0.1" {
			t.Errorf("expected default host to survive partial config, got %s", config.Server.Host)
		}

		if config.Gateway.Enabled {
			t.Error("expected gateway to be disabled")
		}

		if config.Library.Debounce() != 2*time.Second {
			t.Errorf("expected 2s debounce, got %v", config.Library.Debounce())
		}

		if len(config.Library.WatchPaths) != 1 || config.Library.WatchPaths[0] != "/tmp/library" {
			t.Errorf("unexpected watch paths %v", config.Library.WatchPaths)
		}
	})

	t.Run("LoadConfig rejects invalid values", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[gateway]\nrate_limit = -1\n"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("ExpandHome", func(t *testing.T) {
		home, err := os.UserHomeDir()
		if err != nil {
			t.Skip("no home directory")
		}

		if got := ExpandHome("~/Music"); got != filepath.Join(home, "Music") {
			t.Errorf("ExpandHome(~/Music) = %s", got)
		}
		if got := ExpandHome("/abs/path"); got != "/abs/path" {
			t.Errorf("ExpandHome should leave absolute paths alone, got %s", got)
		}
	})
}

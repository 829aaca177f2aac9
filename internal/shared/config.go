package shared

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Library  LibraryConfig  `toml:"library"`
	Gateway  GatewayConfig  `toml:"gateway"`
	History  HistoryConfig  `toml:"history"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LibraryConfig controls how the external library's storage is located and watched.
type LibraryConfig struct {
	XMLPath         string   `toml:"xml_path"`
	WatchPaths      []string `toml:"watch_paths"`
	DebounceSeconds int      `toml:"debounce_seconds"`
}

// GatewayConfig contains settings for talking to the media library application.
type GatewayConfig struct {
	Enabled        bool    `toml:"enabled"`
	Osascript      string  `toml:"osascript"`
	RateLimit      float64 `toml:"rate_limit"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// HistoryConfig bounds the undo log.
type HistoryConfig struct {
	Limit int `toml:"limit"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains log level and rotating log file settings.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Debounce returns the quiet period used by the library watcher.
func (c LibraryConfig) Debounce() time.Duration {
	if c.DebounceSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.DebounceSeconds) * time.Second
}

// Timeout returns the per-call deadline for gateway scripts.
func (c GatewayConfig) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	config.expandPaths()
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	}
	if c.Gateway.RateLimit < 0 {
		return fmt.Errorf("%w: gateway.rate_limit must not be negative", ErrInvalidConfig)
	}
	if c.History.Limit < 0 {
		return fmt.Errorf("%w: history.limit must not be negative", ErrInvalidConfig)
	}
	return nil
}

func (c *Config) expandPaths() {
	c.Database.Path = ExpandHome(c.Database.Path)
	c.Library.XMLPath = ExpandHome(c.Library.XMLPath)
	c.Log.File = ExpandHome(c.Log.File)
	for i, p := range c.Library.WatchPaths {
		c.Library.WatchPaths[i] = ExpandHome(p)
	}
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ABOUTME: liftlog configuration management with backend selection.
// ABOUTME: Handles scoring settings, logging options, and the storage backend factory.

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harperreed/liftlog/internal/storage"
)

const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"

	DefaultUserID   = "local"
	DefaultStrategy = "volume"
	DefaultLogLevel = "warn"

	defaultWindow   = 7 * 24 * time.Hour
	defaultHalfLife = 48 * time.Hour
)

// Config stores liftlog configuration.
type Config struct {
	// Backend selects the storage backend: "sqlite" (default) or "badger".
	Backend string `json:"backend,omitempty"`

	// DataDir is the root directory for data storage.
	// SQLite puts liftlog.db here. Badger puts its kv/ directory here.
	// Supports ~ expansion for home directory. Defaults to ~/.local/share/liftlog.
	DataDir string `json:"data_dir,omitempty"`

	// UserID is the user whose soreness the CLI reads and writes.
	UserID string `json:"user_id,omitempty"`

	// Strategy is the per-set scoring strategy: "volume" (default) or "intensity".
	Strategy string `json:"strategy,omitempty"`

	// Window and HalfLife are Go duration strings, e.g. "168h".
	Window   string `json:"window,omitempty"`
	HalfLife string `json:"half_life,omitempty"`

	LogLevel string `json:"log_level,omitempty"`
	LogFile  string `json:"log_file,omitempty"`
	LogJSON  bool   `json:"log_json,omitempty"`

	// MetricsFile, when set, receives a Prometheus text-format snapshot after each command.
	MetricsFile string `json:"metrics_file,omitempty"`
}

// GetBackend returns the configured backend, defaulting to "sqlite".
func (c *Config) GetBackend() string {
	if c.Backend == "" {
		return BackendSQLite
	}
	return strings.ToLower(c.Backend)
}

// GetDataDir returns the configured data directory with ~ expanded,
// defaulting to the standard XDG data directory.
func (c *Config) GetDataDir() string {
	if c.DataDir == "" {
		return storage.DataDir()
	}
	return ExpandPath(c.DataDir)
}

// GetUserID returns the configured user, defaulting to "local".
func (c *Config) GetUserID() string {
	if c.UserID == "" {
		return DefaultUserID
	}
	return c.UserID
}

// GetStrategy returns the scoring strategy name, defaulting to "volume".
func (c *Config) GetStrategy() string {
	if c.Strategy == "" {
		return DefaultStrategy
	}
	return c.Strategy
}

// GetWindow returns the accumulation window. Unset or invalid values give 7 days.
func (c *Config) GetWindow() time.Duration {
	return parseDurationOr(c.Window, defaultWindow)
}

// GetHalfLife returns the volume decay half-life. Unset or invalid values give 48h.
func (c *Config) GetHalfLife() time.Duration {
	return parseDurationOr(c.HalfLife, defaultHalfLife)
}

// GetLogLevel returns the log level, defaulting to "warn".
func (c *Config) GetLogLevel() string {
	if c.LogLevel == "" {
		return DefaultLogLevel
	}
	return c.LogLevel
}

// Validate reports the first setting that the getters would silently replace.
func (c *Config) Validate() error {
	switch c.GetBackend() {
	case BackendSQLite, BackendBadger:
	default:
		return fmt.Errorf("unknown backend: %q", c.Backend)
	}
	if c.Window != "" {
		if d, err := time.ParseDuration(c.Window); err != nil || d <= 0 {
			return fmt.Errorf("invalid window %q: must be a positive duration", c.Window)
		}
	}
	if c.HalfLife != "" {
		if d, err := time.ParseDuration(c.HalfLife); err != nil || d < 0 {
			return fmt.Errorf("invalid half_life %q: must be a non-negative duration", c.HalfLife)
		}
	}
	return nil
}

func parseDurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "" {
		return ""
	}
	if path == "~" {
		home, _ := os.UserHomeDir()
		return home
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// OpenStorage creates a Store implementation based on the configured backend.
func (c *Config) OpenStorage() (storage.Store, error) {
	backend := c.GetBackend()
	dataDir := c.GetDataDir()

	switch backend {
	case BackendSQLite:
		return storage.Open(filepath.Join(dataDir, "liftlog.db"))
	case BackendBadger:
		return storage.OpenKV(filepath.Join(dataDir, "kv"))
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
}

// GetConfigPath returns the config file path.
func GetConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, _ := os.UserHomeDir()
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, "liftlog", "config.json")
}

// Load reads config from disk.
func Load() (*Config, error) {
	path := GetConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes config to disk.
func (c *Config) Save() error {
	path := GetConfigPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

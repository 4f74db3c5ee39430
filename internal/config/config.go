// Package config manages CampoSync configuration and the .camposync
// directory structure. It handles loading, saving, and initializing the
// working-directory configuration and the stored API credential.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

const (
	CampoSyncDir    = ".camposync"
	ConfigFile      = "config"
	CredentialsFile = "credentials"
	DatabaseFile    = "camposync.db"
)

// SyncConfig tunes the sync subsystem.
type SyncConfig struct {
	// MaxAttempts is the per-item delivery retry budget.
	MaxAttempts int `toml:"max_attempts"`
	// PollInterval is how often the agent re-polls sync status as a
	// supplement to event-driven updates.
	PollInterval time.Duration `toml:"poll_interval"`
	// ProbeInterval is how often connectivity is re-checked.
	ProbeInterval time.Duration `toml:"probe_interval"`
}

// LogConfig controls agent logging.
type LogConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text, json
	File   string `toml:"file"`   // rotating log file, empty for stderr only

	MaxSizeMB  int `toml:"max_size_mb"`
	MaxBackups int `toml:"max_backups"`
	MaxAgeDays int `toml:"max_age_days"`
}

// Config represents the CampoSync configuration.
type Config struct {
	APIURL string     `toml:"api_url"`
	Sync   SyncConfig `toml:"sync"`
	Log    LogConfig  `toml:"log"`

	path string // path to the .camposync directory
}

// defaults fills unset fields with working values.
func (c *Config) defaults() {
	if c.Sync.MaxAttempts <= 0 {
		c.Sync.MaxAttempts = 3
	}
	if c.Sync.PollInterval <= 0 {
		c.Sync.PollInterval = 30 * time.Second
	}
	if c.Sync.ProbeInterval <= 0 {
		c.Sync.ProbeInterval = 15 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups <= 0 {
		c.Log.MaxBackups = 3
	}
	if c.Log.MaxAgeDays <= 0 {
		c.Log.MaxAgeDays = 30
	}
}

// FindRoot finds the .camposync directory by walking up from the current
// directory.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		path := filepath.Join(dir, CampoSyncDir)
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a camposync workspace (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the nearest .camposync directory.
func Load() (*Config, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}
	return LoadFrom(root)
}

// LoadFrom loads the configuration from a specific .camposync directory.
func LoadFrom(root string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(root, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.path = root
	cfg.defaults()
	return &cfg, nil
}

// Save writes the configuration to disk.
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(c.path, ConfigFile), data, 0644)
}

// Root returns the path to the .camposync directory.
func (c *Config) Root() string {
	return c.path
}

// DatabasePath returns the path to the local bbolt database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// Initialize creates a new .camposync directory with initial configuration.
func Initialize(apiURL string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root := filepath.Join(cwd, CampoSyncDir)

	if _, err := os.Stat(root); err == nil {
		return nil, fmt.Errorf("camposync workspace already exists")
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create %s directory: %w", CampoSyncDir, err)
	}

	cfg := &Config{
		APIURL: apiURL,
		path:   root,
	}
	cfg.defaults()

	if err := cfg.Save(); err != nil {
		os.RemoveAll(root)
		return nil, err
	}

	return cfg, nil
}

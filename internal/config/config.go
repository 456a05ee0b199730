// Package config holds the leetsession configuration and its viper wiring.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the full configuration.
type Config struct {
	LeetCode      LeetCodeConfig     `mapstructure:"leetcode"`
	Session       SessionConfig      `mapstructure:"session"`
	Sync          SyncConfig         `mapstructure:"sync"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Browser       BrowserConfig      `mapstructure:"browser"`
}

// LeetCodeConfig says where the service is and how to authenticate.
type LeetCodeConfig struct {
	// BaseURL is the LeetCode origin (default: https://leetcode.com)
	BaseURL string `mapstructure:"base_url"`
	// Session is the LEETCODE_SESSION cookie. Usually left empty and read
	// from the credentials file written by `leetsession login`.
	Session string `mapstructure:"session"`
	// CSRFToken is the csrftoken cookie
	CSRFToken string `mapstructure:"csrf_token"`
	// CredentialsFile defaults to <config dir>/credentials.yaml
	CredentialsFile string `mapstructure:"credentials_file"`
	// RequestTimeout bounds each HTTP request; 0 leaves it to the transport
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// SessionConfig controls how sessions are named and created.
type SessionConfig struct {
	// Mark must appear in a list name for the list to be managed
	Mark string `mapstructure:"mark"`
	// StateFlag marks a session whose creation has not finished
	StateFlag string `mapstructure:"state_flag"`
	// Description defaults to a hint naming Mark
	Description string `mapstructure:"description"`
	Public      bool   `mapstructure:"public"`
}

// SyncConfig controls batching and scheduling.
type SyncConfig struct {
	ChunkSize    int           `mapstructure:"chunk_size"`
	MaxParallel  int           `mapstructure:"max_parallel"`
	ListLimit    int           `mapstructure:"list_limit"`
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	Interval     time.Duration `mapstructure:"interval"`
}

// StorageConfig locates the local state database.
type StorageConfig struct {
	// DBPath defaults to ~/.cache/leetsession/state.db
	DBPath string `mapstructure:"db_path"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is "debug", "info", "warn" or "error" (default: "info")
	Level string `mapstructure:"level"`
	// File, if set, receives log lines instead of stderr
	File string `mapstructure:"file"`
}

// NotificationConfig controls the user-facing banners.
type NotificationConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// BrowserConfig controls what happens with the URL of a new session.
type BrowserConfig struct {
	// Open launches the system browser
	Open bool `mapstructure:"open"`
	// CopyURL puts the URL on the clipboard
	CopyURL bool `mapstructure:"copy_url"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LeetCode: LeetCodeConfig{
			BaseURL: "https://leetcode.com",
		},
		Session: SessionConfig{
			Mark:        "[LS]",
			StateFlag:   "[in-progress]",
			Public:      false,
		},
		Sync: SyncConfig{
			ChunkSize:    1000,
			MaxParallel:  6,
			ListLimit:    10000,
			InitialDelay: time.Second,
			Interval:     time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Notifications: NotificationConfig{
			Enabled: true,
		},
		Browser: BrowserConfig{
			Open: true,
		},
	}
}

// SetDefaults registers the defaults with viper.
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("leetcode.base_url", defaults.LeetCode.BaseURL)
	viper.SetDefault("leetcode.session", defaults.LeetCode.Session)
	viper.SetDefault("leetcode.csrf_token", defaults.LeetCode.CSRFToken)
	viper.SetDefault("leetcode.credentials_file", defaults.LeetCode.CredentialsFile)
	viper.SetDefault("leetcode.request_timeout", defaults.LeetCode.RequestTimeout)

	viper.SetDefault("session.mark", defaults.Session.Mark)
	viper.SetDefault("session.state_flag", defaults.Session.StateFlag)
	viper.SetDefault("session.description", defaults.Session.Description)
	viper.SetDefault("session.public", defaults.Session.Public)

	viper.SetDefault("sync.chunk_size", defaults.Sync.ChunkSize)
	viper.SetDefault("sync.max_parallel", defaults.Sync.MaxParallel)
	viper.SetDefault("sync.list_limit", defaults.Sync.ListLimit)
	viper.SetDefault("sync.initial_delay", defaults.Sync.InitialDelay)
	viper.SetDefault("sync.interval", defaults.Sync.Interval)

	viper.SetDefault("storage.db_path", defaults.Storage.DBPath)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)

	viper.SetDefault("notifications.enabled", defaults.Notifications.Enabled)

	viper.SetDefault("browser.open", defaults.Browser.Open)
	viper.SetDefault("browser.copy_url", defaults.Browser.CopyURL)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "leetsession")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".leetsession"
	}
	return filepath.Join(home, ".config", "leetsession")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// CredentialsFile returns the configured credentials file or the default one
// next to the config file.
func (c *Config) CredentialsFile() string {
	if c.LeetCode.CredentialsFile != "" {
		return expandHome(c.LeetCode.CredentialsFile)
	}
	return filepath.Join(ConfigDir(), "credentials.yaml")
}

// DBPath returns the configured database path or ~/.cache/leetsession/state.db.
func (c *Config) DBPath() string {
	if c.Storage.DBPath != "" {
		return expandHome(c.Storage.DBPath)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".leetsession", "state.db")
	}
	return filepath.Join(home, ".cache", "leetsession", "state.db")
}

func expandHome(path string) string {
	if path == "~" || len(path) > 1 && path[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

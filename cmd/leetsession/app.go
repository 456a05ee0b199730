package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wallandteen/leetsession/internal/browser"
	"github.com/wallandteen/leetsession/internal/config"
	"github.com/wallandteen/leetsession/internal/lc"
	"github.com/wallandteen/leetsession/internal/logger"
	"github.com/wallandteen/leetsession/internal/notify"
	"github.com/wallandteen/leetsession/internal/session"
	"github.com/wallandteen/leetsession/internal/store"
)

// app is everything a command that talks to LeetCode needs.
type app struct {
	cfg      *config.Config
	client   *lc.Client
	db       *store.DB
	notifier notify.Notifier
	manager  *session.Manager
}

// loadConfig reads the configuration and applies the logging settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(level)
	if cfg.Logging.File != "" {
		if err := logger.SetLogFile(cfg.Logging.File); err != nil {
			return nil, err
		}
	}
	logger.Debug("logging at %s, config %s", logger.GetLevel(), configFileInUse())
	return cfg, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// 1. Resolve credentials
	creds, err := lc.LoadCredentials(lc.Credentials{
		Session:   cfg.LeetCode.Session,
		CSRFToken: cfg.LeetCode.CSRFToken,
	}, cfg.CredentialsFile())
	if err != nil {
		return nil, err
	}

	// 2. Create the client
	client := lc.NewWithBaseURL(creds, cfg.LeetCode.BaseURL)
	client.SetListLimit(cfg.Sync.ListLimit)
	if cfg.LeetCode.RequestTimeout > 0 {
		client.SetTimeout(cfg.LeetCode.RequestTimeout)
	}

	// 3. Open the local state database
	db, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	var notifier notify.Notifier = notify.Discard
	if cfg.Notifications.Enabled {
		notifier = notify.NewTerminal(cmd.ErrOrStderr())
	}

	// 4. Wire the session manager
	manager := session.NewManager(client, client, db, session.Options{
		Mark:        cfg.Session.Mark,
		StateFlag:   cfg.Session.StateFlag,
		Description: cfg.Session.Description,
		Public:      cfg.Session.Public,
		ChunkSize:   cfg.Sync.ChunkSize,
		MaxParallel: cfg.Sync.MaxParallel,
		Notifier:    notifier,
		Navigator:   browser.NewOpener(cmd.OutOrStdout(), cfg.Browser.Open, cfg.Browser.CopyURL),
	})

	return &app{
		cfg:      cfg,
		client:   client,
		db:       db,
		notifier: notifier,
		manager:  manager,
	}, nil
}

// openStore opens the state database, creating its directory on first use.
func openStore(cfg *config.Config) (*store.DB, error) {
	dbPath := cfg.DBPath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	db, err := store.InitDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}
	return db, nil
}

// configFileInUse names the config file that was read, or the default
// location when none was found.
func configFileInUse() string {
	if f := viper.ConfigFileUsed(); f != "" {
		if _, err := os.Stat(f); err == nil {
			return f
		}
	}
	return config.ConfigFile() + " (not found, using defaults)"
}

func (a *app) Close() {
	if err := a.db.Close(); err != nil {
		logger.Warn("failed to close state database: %v", err)
	}
	logger.Close()
}

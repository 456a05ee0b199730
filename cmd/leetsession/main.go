// Package main provides the CLI entrypoint for leetsession.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wallandteen/leetsession/internal/browser"
	"github.com/wallandteen/leetsession/internal/config"
	"github.com/wallandteen/leetsession/internal/lc"
	"github.com/wallandteen/leetsession/internal/logger"
	"github.com/wallandteen/leetsession/internal/notify"
	"github.com/wallandteen/leetsession/internal/session"
	"github.com/wallandteen/leetsession/internal/store"
	"github.com/wallandteen/leetsession/internal/watch"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "leetsession",
	Short: "Keep LeetCode practice sessions as auto-synced favorite lists",
	Long: `leetsession recreates LeetCode's session feature on top of favorite lists.

"create" makes a list named after today holding every problem, "sync" adds
newly published problems to all such lists, and "daemon" keeps syncing in the
background. Lists are recognised by the [LS] mark in their name.`,
	SilenceUsage: true,
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new session holding every problem",
	Long: `Create a favorite list named after today's date, add every problem to it,
reset its progress and open it.

Only one session can be created at a time. An interrupted creation is finished
by the next sync.`,
	Args: cobra.NoArgs,
	RunE: runCreate,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Add new problems to every session",
	Long: `Add problems missing from any session and finish interrupted sessions.

A full pass runs at most once per day unless an interrupted session exists.
Use --reset-cursor to force a pass.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show when sessions were last synced",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions and their state",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Sync shortly after start and then periodically",
	Args:  cobra.NoArgs,
	RunE:  runDaemon,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in through a browser and store the session cookie",
	Args:  cobra.NoArgs,
	RunE:  runLogin,
}

var resetCursor bool

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/leetsession/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))

	syncCmd.Flags().BoolVar(&resetCursor, "reset-cursor", false, "forget the last sync date before syncing")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(loginCmd)
}

func initConfig() {
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.SetEnvPrefix("LEETSESSION")
	// e.g. LEETSESSION_SYNC_CHUNK_SIZE for sync.chunk_size
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine; everything has a default.
	_ = viper.ReadInConfig()
}

func runCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	guard := &watch.Guard{
		Risky:   a.manager.HasIncompleteSessions,
		Message: session.MsgLeaveWhileActive,
		Warn:    func(msg string) { notify.Warnf(a.notifier, 0, "%s", msg) },
	}
	ctx, stop := guard.Watch(cmd.Context(), sigs)
	defer stop()

	list, err := a.manager.Create(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", list.Name)
	return nil
}

func runSync(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if resetCursor {
		if err := a.db.ClearCursor(ctx); err != nil {
			return fmt.Errorf("failed to reset cursor: %w", err)
		}
	}

	res, err := a.manager.Sync(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), formatSyncResult(res))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	last, err := db.LastSync(ctx)
	if err != nil {
		return err
	}
	runs, err := db.RecentRuns(ctx, 5)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "config: %s\nstate: %s\n", configFileInUse(), db.Path())
	writeStatus(out, last, runs, time.Now())
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	lists, err := a.manager.Managed(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(lists) == 0 {
		fmt.Fprintln(out, "no sessions yet; run 'leetsession create'")
		return nil
	}
	for _, l := range lists {
		state := session.DeriveState(l.Name, a.cfg.Session.StateFlag)
		fmt.Fprintf(out, "%-12s %s\t%s\n", state, l.Name, a.client.ListURL(l.Slug))
	}
	return nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := session.NewScheduler(a.manager, a.cfg.Sync.InitialDelay, a.cfg.Sync.Interval)
	fmt.Fprintf(cmd.OutOrStdout(), "syncing sessions on %s every %s, press Ctrl+C to stop\n", a.client.BaseURL(), a.cfg.Sync.Interval)
	logger.Info("daemon started with pid %d", os.Getpid())

	// SIGHUP asks for an immediate pass.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				sched.TriggerSync()
			}
		}
	}()

	err = sched.Run(ctx)
	sched.Stop()
	logger.Info("daemon stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintln(cmd.OutOrStdout(), "opening a browser window, sign in to LeetCode there")
	creds, err := browser.Login(ctx, browser.LoginOptions{BaseURL: cfg.LeetCode.BaseURL})
	if err != nil {
		return err
	}

	path := cfg.CredentialsFile()
	if err := lc.SaveCredentials(path, creds); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "credentials saved to %s\n", path)
	return nil
}

// formatSyncResult is the one-line summary printed after a sync.
func formatSyncResult(res *session.SyncResult) string {
	if res.Skipped {
		return fmt.Sprintf("already synced today (%s)", res.Date)
	}
	msg := fmt.Sprintf("synced %d sessions, added %s problems", res.Lists, humanize.Comma(int64(res.Added)))
	if n := len(res.Completed); n > 0 {
		msg += fmt.Sprintf(", finished %d interrupted", n)
	}
	return msg
}

func writeStatus(w io.Writer, last string, runs []store.Run, now time.Time) {
	if last == "" {
		fmt.Fprintln(w, "never synced")
	} else {
		fmt.Fprintf(w, "last synced: %s\n", last)
	}

	if len(runs) == 0 {
		return
	}
	fmt.Fprintln(w, "recent runs:")
	for _, r := range runs {
		fmt.Fprintf(w, "  %s  %s  %d sessions, %s added, %d finished (took %s)\n",
			r.Date,
			humanize.RelTime(r.FinishedAt, now, "ago", "from now"),
			r.Lists,
			humanize.Comma(int64(r.Added)),
			r.Completed,
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
		)
	}
}

// Package browser captures LeetCode credentials from a real browser login and
// takes the user to newly created sessions.
package browser

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/wallandteen/leetsession/internal/lc"
	"github.com/wallandteen/leetsession/internal/logger"
	"github.com/wallandteen/leetsession/internal/watch"
)

var log = logger.Named("browser")

const (
	sessionCookie = "LEETCODE_SESSION"
	csrfCookie    = "csrftoken"

	// DefaultLoginTimeout is how long Login waits for the user to sign in.
	DefaultLoginTimeout = 5 * time.Minute
	defaultPollInterval = time.Second
)

// LoginOptions configure Login.
type LoginOptions struct {
	BaseURL string
	// Timeout defaults to DefaultLoginTimeout.
	Timeout time.Duration
	// PollInterval is how often the cookie jar is checked.
	PollInterval time.Duration
	// SkipInstall skips downloading the browser driver.
	SkipInstall bool
}

// Login opens a visible Chromium window at the LeetCode login page and waits
// until the browser holds both the session and the CSRF cookie.
func Login(ctx context.Context, opts LoginOptions) (lc.Credentials, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = lc.DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultLoginTimeout
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if !opts.SkipInstall {
		if err := playwright.Install(runOpts); err != nil {
			return lc.Credentials{}, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return lc.Credentials{}, fmt.Errorf("failed to start playwright: %w", err)
	}
	defer pw.Stop()

	headless := false
	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: &headless})
	if err != nil {
		return lc.Credentials{}, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer b.Close()

	bctx, err := b.NewContext()
	if err != nil {
		return lc.Credentials{}, fmt.Errorf("failed to create context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		return lc.Credentials{}, fmt.Errorf("failed to create page: %w", err)
	}

	loginURL := LoginURL(base)
	if _, err := page.Goto(loginURL); err != nil {
		return lc.Credentials{}, fmt.Errorf("failed to open %s: %w", loginURL, err)
	}
	log.Info("waiting for sign-in at %s", loginURL)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var creds lc.Credentials
	err = watch.Until(waitCtx, interval, func(context.Context) (bool, error) {
		cookies, err := bctx.Cookies(base)
		if err != nil {
			return false, fmt.Errorf("failed to read cookies: %w", err)
		}
		var ok bool
		creds, ok = CredentialsFromCookies(cookies)
		return ok, nil
	})
	if err != nil {
		return lc.Credentials{}, fmt.Errorf("login did not complete: %w", err)
	}

	log.Info("captured session cookie")
	return creds, nil
}

// LoginURL is the sign-in page for base.
func LoginURL(base string) string {
	return strings.TrimRight(base, "/") + "/accounts/login/"
}

// CredentialsFromCookies picks the session and CSRF cookies out of a jar.
// It reports false until both are present.
func CredentialsFromCookies(cookies []playwright.Cookie) (lc.Credentials, bool) {
	var creds lc.Credentials
	for _, c := range cookies {
		switch c.Name {
		case sessionCookie:
			creds.Session = c.Value
		case csrfCookie:
			creds.CSRFToken = c.Value
		}
	}
	return creds, creds.Complete()
}

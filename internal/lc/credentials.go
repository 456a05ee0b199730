package lc

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// SessionCookie is the cookie carrying the authenticated session.
	SessionCookie = "LEETCODE_SESSION"
	// CSRFCookie is the cookie whose value must be echoed in x-csrftoken.
	CSRFCookie = "csrftoken"

	envSession = "LEETCODE_SESSION"
	envCSRF    = "LEETCODE_CSRFTOKEN"
)

// Credentials are the two cookies a logged-in browser sends to LeetCode.
type Credentials struct {
	Session   string `yaml:"session"`
	CSRFToken string `yaml:"csrf_token"`
}

// Complete reports whether both cookies are present.
func (c Credentials) Complete() bool {
	return c.Session != "" && c.CSRFToken != ""
}

func (c Credentials) cookieHeader() string {
	var parts []string
	if c.Session != "" {
		parts = append(parts, SessionCookie+"="+c.Session)
	}
	if c.CSRFToken != "" {
		parts = append(parts, CSRFCookie+"="+c.CSRFToken)
	}
	return strings.Join(parts, "; ")
}

// LoadCredentials resolves credentials from, in order:
// 1. the explicitly configured values
// 2. LEETCODE_SESSION / LEETCODE_CSRFTOKEN environment variables
// 3. the credentials file written by `leetsession login`
func LoadCredentials(configured Credentials, path string) (Credentials, error) {
	if configured.Complete() {
		return configured, nil
	}

	fromEnv := Credentials{
		Session:   os.Getenv(envSession),
		CSRFToken: os.Getenv(envCSRF),
	}
	if fromEnv.Complete() {
		return fromEnv, nil
	}

	if path != "" {
		fromFile, err := ReadCredentials(path)
		if err == nil && fromFile.Complete() {
			return fromFile, nil
		}
		if err != nil && !os.IsNotExist(err) {
			return Credentials{}, err
		}
	}

	return Credentials{}, fmt.Errorf("no LeetCode credentials found: run 'leetsession login', or set %s and %s", envSession, envCSRF)
}

// ReadCredentials reads a credentials YAML file.
func ReadCredentials(path string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse credentials file %s: %w", path, err)
	}
	return creds, nil
}

// SaveCredentials writes creds to path, readable by the owner only.
func SaveCredentials(path string, creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

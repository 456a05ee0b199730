package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "sync.chunk_size")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateLeetCode()...)
	errors = append(errors, c.validateSession()...)
	errors = append(errors, c.validateSync()...)

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	return errors
}

func (c *Config) validateLeetCode() []ValidationError {
	var errors []ValidationError

	u, err := url.Parse(c.LeetCode.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "leetcode.base_url",
			Value:   c.LeetCode.BaseURL,
			Message: "must be an absolute http(s) URL",
		})
	}

	if c.LeetCode.RequestTimeout < 0 {
		errors = append(errors, ValidationError{
			Field:   "leetcode.request_timeout",
			Value:   c.LeetCode.RequestTimeout,
			Message: "must not be negative",
		})
	}

	return errors
}

func (c *Config) validateSession() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Session.Mark) == "" {
		errors = append(errors, ValidationError{
			Field:   "session.mark",
			Value:   c.Session.Mark,
			Message: "must not be empty",
		})
	}
	if strings.TrimSpace(c.Session.StateFlag) == "" {
		errors = append(errors, ValidationError{
			Field:   "session.state_flag",
			Value:   c.Session.StateFlag,
			Message: "must not be empty",
		})
	}
	if c.Session.Mark != "" && c.Session.Mark == c.Session.StateFlag {
		errors = append(errors, ValidationError{
			Field:   "session.state_flag",
			Value:   c.Session.StateFlag,
			Message: "must differ from session.mark",
		})
	}
	if c.Session.StateFlag != "" && strings.Contains(c.Session.Mark, c.Session.StateFlag) {
		errors = append(errors, ValidationError{
			Field:   "session.mark",
			Value:   c.Session.Mark,
			Message: "must not contain session.state_flag",
		})
	}

	return errors
}

func (c *Config) validateSync() []ValidationError {
	var errors []ValidationError

	positive := []struct {
		field string
		value int
	}{
		{"sync.chunk_size", c.Sync.ChunkSize},
		{"sync.max_parallel", c.Sync.MaxParallel},
		{"sync.list_limit", c.Sync.ListLimit},
	}
	for _, p := range positive {
		if p.value < 1 {
			errors = append(errors, ValidationError{
				Field:   p.field,
				Value:   p.value,
				Message: "must be at least 1",
			})
		}
	}

	if c.Sync.InitialDelay < 0 {
		errors = append(errors, ValidationError{
			Field:   "sync.initial_delay",
			Value:   c.Sync.InitialDelay,
			Message: "must not be negative",
		})
	}
	if c.Sync.Interval <= 0 {
		errors = append(errors, ValidationError{
			Field:   "sync.interval",
			Value:   c.Sync.Interval,
			Message: "must be positive",
		})
	}

	return errors
}

// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config holding defaults; Load layers file and env on top.
// - Functions that may touch the environment accept context.Context first.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// GitHubAPIURL is the REST API base, without a trailing slash.
	GitHubAPIURL string `koanf:"github_api_url"`

	// GitHubOwner and GitHubRepo select the repository whose runs are shown.
	GitHubOwner string `koanf:"github_owner"`
	GitHubRepo  string `koanf:"github_repo"`

	// GitHubToken is sent as a bearer token on every GitHub request.
	GitHubToken string `koanf:"github_token"`

	// AnalyticsURL is the base of the analytics service exposing
	// /analytics/getusercount.
	AnalyticsURL string `koanf:"analytics_url"`

	// ItemsPerPage is the fixed table page size.
	ItemsPerPage int `koanf:"items_per_page"`

	// RequestTimeoutMS bounds every single upstream request.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// RunsPerPage is the upstream per_page used when listing runs.
	RunsPerPage int `koanf:"runs_per_page"`

	// MaxRunPages caps how many upstream pages of runs are read per workflow.
	MaxRunPages int `koanf:"max_run_pages"`

	// FanoutLimit caps concurrent per-workflow run fetches; 0 means no limit.
	FanoutLimit int `koanf:"fanout_limit"`

	// CycleTimeoutMS bounds one whole fetch cycle; 0 means no deadline. The
	// server's write timeout is derived from it.
	CycleTimeoutMS int `koanf:"cycle_timeout_ms"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		GitHubAPIURL:     "https://api.github.com",
		AnalyticsURL:     "https://api.moinet.io/iome/v0",
		ItemsPerPage:     10,
		RequestTimeoutMS: 10_000,
		RunsPerPage:      30,
		MaxRunPages:      1,
		FanoutLimit:      0,
		CycleTimeoutMS:   20_000,
	}
}

// RequestTimeout returns RequestTimeoutMS as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// CycleTimeout returns CycleTimeoutMS as a duration.
func (c *Config) CycleTimeout() time.Duration {
	return time.Duration(c.CycleTimeoutMS) * time.Millisecond
}

// Repository returns "owner/repo".
func (c *Config) Repository() string {
	return c.GitHubOwner + "/" + c.GitHubRepo
}

// validate checks invariants every binary relies on.
func (c *Config) validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.ItemsPerPage < 1:
		return fmt.Errorf("%w: items_per_page must be at least 1", ErrInvalidConfig)
	case c.RequestTimeoutMS < 0:
		return fmt.Errorf("%w: request_timeout_ms must not be negative", ErrInvalidConfig)
	case c.FanoutLimit < 0:
		return fmt.Errorf("%w: fanout_limit must not be negative", ErrInvalidConfig)
	case c.CycleTimeoutMS < 0:
		return fmt.Errorf("%w: cycle_timeout_ms must not be negative", ErrInvalidConfig)
	}
	return nil
}

// ValidateUpstream checks the settings needed to talk to GitHub. It is
// separate from Load so binaries that never fetch (fake-upstream) can start
// without credentials.
func (c *Config) ValidateUpstream() error {
	switch {
	case strings.TrimSpace(c.GitHubAPIURL) == "":
		return fmt.Errorf("%w: github_api_url must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.GitHubOwner) == "":
		return fmt.Errorf("%w: github_owner must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.GitHubRepo) == "":
		return fmt.Errorf("%w: github_repo must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.AnalyticsURL) == "":
		return fmt.Errorf("%w: analytics_url must not be empty", ErrInvalidConfig)
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/runboard/internal/adapters/analytics"
	"github.com/okian/runboard/internal/adapters/github"
	service "github.com/okian/runboard/internal/app"
	"github.com/okian/runboard/internal/config"
	"github.com/okian/runboard/pkg/logger"
)

var errBadRepo = errors.New("repo must look like owner/name")

// cli holds what the subcommands share once setup has run.
type cli struct {
	configPath string
	repo       string
	logLevel   string

	cfg *config.Config
	svc *service.Service
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	cmd := &cobra.Command{
		Use:           "runs",
		Short:         "Show recent GitHub Actions runs of a repository",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&c.configPath, "config", "", "config file (YAML or TOML); defaults to $"+config.EnvConfigPath)
	persistent.StringVar(&c.repo, "repo", "", "repository as owner/name, overrides github_owner and github_repo")
	persistent.StringVar(&c.logLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(newListCmd(c))
	cmd.AddCommand(newBrowseCmd(c))
	return cmd
}

// setup loads configuration, points logs at stderr and builds the service.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	path := c.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	cfg, err := config.LoadFile(cmd.Context(), path)
	if err != nil {
		return err
	}
	if c.repo != "" {
		owner, name, ok := strings.Cut(c.repo, "/")
		if !ok || owner == "" || name == "" {
			return fmt.Errorf("%w: %q", errBadRepo, c.repo)
		}
		cfg.GitHubOwner, cfg.GitHubRepo = owner, name
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	if err := cfg.ValidateUpstream(); err != nil {
		return err
	}

	if err := logger.InitWriter(cmd.ErrOrStderr(), cfg.LogFormat); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return err
	}

	c.cfg = cfg
	c.svc = newService(cfg)
	return nil
}

func newService(cfg *config.Config) *service.Service {
	gh := github.New(cfg.GitHubOwner, cfg.GitHubRepo,
		github.WithBaseURL(cfg.GitHubAPIURL),
		github.WithToken(cfg.GitHubToken),
		github.WithTimeout(cfg.RequestTimeout()),
		github.WithRunsPerPage(cfg.RunsPerPage),
		github.WithMaxRunPages(cfg.MaxRunPages),
	)
	return service.New(
		service.WithGitHub(gh),
		service.WithUserCounter(analytics.New(cfg.AnalyticsURL, analytics.WithTimeout(cfg.RequestTimeout()))),
		service.WithItemsPerPage(cfg.ItemsPerPage),
		service.WithFanoutLimit(cfg.FanoutLimit),
		service.WithCycleTimeout(cfg.CycleTimeout()),
		service.WithLogger(logger.Named("runs")),
	)
}

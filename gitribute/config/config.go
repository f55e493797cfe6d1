package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/byte4ever/gitribute/gitribute/commitmsg"
	"github.com/byte4ever/gitribute/gitribute/git"
	"github.com/byte4ever/gitribute/gitribute/giturl"
)

// Config is the decoded configuration file.
type Config struct {
	// GitLabHosts lists self-managed GitLab hosts.
	GitLabHosts []string `yaml:"gitlab_hosts,omitempty"`
	// GitHubAPI overrides the GitHub REST root.
	GitHubAPI string `yaml:"github_api,omitempty"`
	// Author signs the commits.
	Author git.Author `yaml:"author,omitempty"`
	// Templates overrides the generated texts.
	Templates commitmsg.Templates `yaml:"templates,omitempty"`
	// Families maps extra family names to extension
	// lists. Entries override the built-in table.
	Families map[string][]string `yaml:"families,omitempty"`
}

// Default returns the configuration used when no
// file exists.
func Default() *Config {
	return &Config{GitHubAPI: giturl.DefaultGitHubAPI}
}

// Load reads the configuration file at path. A
// missing file yields Default.
func Load(path string) (*Config, error) {
	const errCtx = "loading config"

	data, err := os.ReadFile(path) //nolint:gosec // path is caller-provided
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	cfg := Default()

	if err := yaml.Unmarshal(
		[]byte(os.ExpandEnv(string(data))), cfg,
	); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, path, err)
	}

	if cfg.GitHubAPI == "" {
		cfg.GitHubAPI = giturl.DefaultGitHubAPI
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %s: %w", errCtx, path, err)
	}

	return cfg, nil
}

// Validate checks the templates and the family table.
func (c *Config) Validate() error {
	if err := c.Templates.Validate(); err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	if _, err := giturl.NewFamilies(c.Families); err != nil {
		return fmt.Errorf("families: %w", err)
	}

	return nil
}

// Parser builds the URL parser configured by c.
func (c *Config) Parser() (*giturl.Parser, error) {
	extra, err := giturl.NewFamilies(c.Families)
	if err != nil {
		return nil, fmt.Errorf("building parser: %w", err)
	}

	return &giturl.Parser{
		GitLabHosts: c.GitLabHosts,
		GitHubAPI:   c.GitHubAPI,
		Families:    giturl.DefaultFamilies().Merge(extra),
	}, nil
}

// Write saves c as YAML at path. An existing file is
// kept unless force is set.
func (c *Config) Write(path string, force bool) error {
	const errCtx = "writing config"

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf(
			"%s: %s already exists", errCtx, path,
		)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

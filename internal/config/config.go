package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "AUTOBLOG_CONFIG"
	feedURLEnv      = "FEED_URL"
	ledgerPathEnv   = "LEDGER_PATH"
	openAIKeyEnv    = "OPENAI_API_KEY"
	openAIModelEnv  = "OPENAI_MODEL"
	githubTokenEnv  = "GITHUB_TOKEN"
	githubOwnerEnv  = "GITHUB_OWNER"
	githubRepoEnv   = "GITHUB_REPO"
	serverPortEnv   = "PORT"
	defaultTimezone = "UTC"
)

// ErrMissingBinding marks a fatal startup precondition: a required external
// binding (summarizer key, content-store credentials) is absent.
var ErrMissingBinding = errors.New("required binding is missing")

// Config holds every setting the worker needs across components.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Feed       FeedConfig       `yaml:"feed"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	GitHub     GitHubConfig     `yaml:"github"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// ServerConfig describes the debug HTTP surface.
type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release
}

// LoggingConfig controls the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// FeedConfig points at the source RSS document.
type FeedConfig struct {
	URL            string `yaml:"url"`
	MaxItemsPerRun int    `yaml:"maxItemsPerRun"`
}

// LedgerConfig describes the dedup store. An empty path disables dedup
// entirely (degraded mode: every run treats all records as new).
type LedgerConfig struct {
	Path    string `yaml:"path"`
	TTLDays int    `yaml:"ttlDays"` // 0 = entries never expire
}

// TTL resolves the configured retention to a duration.
func (l LedgerConfig) TTL() time.Duration {
	if l.TTLDays <= 0 {
		return 0
	}
	return time.Duration(l.TTLDays) * 24 * time.Hour
}

// SummarizerConfig defines how to reach the generative backend.
type SummarizerConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
}

// GitHubConfig wires the content-store repository and commit identity.
type GitHubConfig struct {
	Owner             string `yaml:"owner"`
	Repo              string `yaml:"repo"`
	Branch            string `yaml:"branch"`
	Token             string `yaml:"token"`
	ContentRoot       string `yaml:"contentRoot"`
	CommitterName     string `yaml:"committerName"`
	CommitterEmail    string `yaml:"committerEmail"`
	PublishIntervalMS int    `yaml:"publishIntervalMs"`
}

// PublishInterval resolves the inter-request pacing for publishes.
func (g GitHubConfig) PublishInterval() time.Duration {
	if g.PublishIntervalMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(g.PublishIntervalMS) * time.Millisecond
}

// SchedulerConfig defines when the pipeline runs.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Load reads YAML configuration (if present) over the defaults and applies
// environment overrides for secrets and deployment knobs.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

// Validate enforces fatal run preconditions. The ledger binding is
// deliberately not required: its absence only degrades dedup.
func (c Config) Validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("%w: feed url", ErrMissingBinding)
	}
	if c.Summarizer.APIKey == "" {
		return fmt.Errorf("%w: summarizer api key", ErrMissingBinding)
	}
	if c.GitHub.Owner == "" || c.GitHub.Repo == "" || c.GitHub.Token == "" {
		return fmt.Errorf("%w: github owner/repo/token", ErrMissingBinding)
	}
	return nil
}

// Address returns the HTTP listen address for the debug surface.
func (c Config) Address() string {
	if _, err := strconv.Atoi(c.Server.Port); err == nil {
		return ":" + c.Server.Port
	}
	return c.Server.Port
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(feedURLEnv); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv(ledgerPathEnv); v != "" {
		c.Ledger.Path = v
	}
	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.Summarizer.APIKey = v
	}
	if v := os.Getenv(openAIModelEnv); v != "" {
		c.Summarizer.Model = v
	}
	if v := os.Getenv(githubTokenEnv); v != "" {
		c.GitHub.Token = v
	}
	if v := os.Getenv(githubOwnerEnv); v != "" {
		c.GitHub.Owner = v
	}
	if v := os.Getenv(githubRepoEnv); v != "" {
		c.GitHub.Repo = v
	}
	if v := os.Getenv(serverPortEnv); v != "" {
		c.Server.Port = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Server:  ServerConfig{Port: "8080", Mode: "release"},
		Logging: LoggingConfig{Level: "info"},
		Feed: FeedConfig{
			URL:            "https://blog.cloudflare.com/rss/",
			MaxItemsPerRun: 10,
		},
		Ledger: LedgerConfig{Path: "data/ledger.db"},
		Summarizer: SummarizerConfig{
			Model: "gpt-4o-mini",
		},
		GitHub: GitHubConfig{
			Branch:         "main",
			ContentRoot:    "content/posts",
			CommitterName:  "autoblog",
			CommitterEmail: "autoblog@users.noreply.github.com",
		},
		Scheduler: SchedulerConfig{
			CronExpression: "0 6 * * *",
			Timezone:       defaultTimezone,
			location:       tz,
		},
	}
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every override so Load sees pristine defaults. Overrides
// treat the empty string as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		configPathEnv, feedURLEnv, ledgerPathEnv, openAIKeyEnv,
		openAIModelEnv, githubTokenEnv, githubOwnerEnv, githubRepoEnv,
		serverPortEnv,
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.Server.Port != "8080" {
		t.Fatalf("unexpected port: %s", cfg.Server.Port)
	}
	if cfg.Feed.MaxItemsPerRun != 10 {
		t.Fatalf("unexpected max items: %d", cfg.Feed.MaxItemsPerRun)
	}
	if cfg.Scheduler.CronExpression != "0 6 * * *" {
		t.Fatalf("unexpected cron expression: %s", cfg.Scheduler.CronExpression)
	}
	if cfg.Scheduler.Location().String() != "UTC" {
		t.Fatalf("unexpected timezone: %s", cfg.Scheduler.Location())
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(feedURLEnv, "https://blog.example.com/rss/")
	t.Setenv(openAIKeyEnv, "sk-test")
	t.Setenv(githubOwnerEnv, "octo")
	t.Setenv(githubRepoEnv, "site")
	t.Setenv(githubTokenEnv, "gh-token")
	t.Setenv(serverPortEnv, "9090")

	cfg := Load()
	if cfg.Feed.URL != "https://blog.example.com/rss/" {
		t.Fatalf("feed url override not applied: %s", cfg.Feed.URL)
	}
	if cfg.Summarizer.APIKey != "sk-test" {
		t.Fatal("api key override not applied")
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("port override not applied: %s", cfg.Server.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("fully bound config must validate: %v", err)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte("feed:\n  url: https://blog.example.com/rss/\n  maxItemsPerRun: 5\nledger:\n  ttlDays: 30\n")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(configPathEnv, path)

	cfg := Load()
	if cfg.Feed.MaxItemsPerRun != 5 {
		t.Fatalf("yaml value not applied: %d", cfg.Feed.MaxItemsPerRun)
	}
	if cfg.Ledger.TTL() != 30*24*time.Hour {
		t.Fatalf("unexpected ttl: %s", cfg.Ledger.TTL())
	}
	// Untouched sections keep their defaults.
	if cfg.GitHub.Branch != "main" {
		t.Fatalf("default branch lost: %s", cfg.GitHub.Branch)
	}
}

func TestValidateRequiresBindings(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing feed url", func(c *Config) { c.Feed.URL = "" }},
		{"missing api key", func(c *Config) { c.Summarizer.APIKey = "" }},
		{"missing github token", func(c *Config) { c.GitHub.Token = "" }},
		{"missing github owner", func(c *Config) { c.GitHub.Owner = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Summarizer.APIKey = "sk-test"
			cfg.GitHub.Owner = "octo"
			cfg.GitHub.Repo = "site"
			cfg.GitHub.Token = "gh-token"
			tc.mutate(&cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !errors.Is(err, ErrMissingBinding) {
				t.Fatalf("expected ErrMissingBinding, got %v", err)
			}
		})
	}
}

func TestValidateToleratesMissingLedger(t *testing.T) {
	cfg := defaultConfig()
	cfg.Summarizer.APIKey = "sk-test"
	cfg.GitHub.Owner = "octo"
	cfg.GitHub.Repo = "site"
	cfg.GitHub.Token = "gh-token"
	cfg.Ledger.Path = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty ledger path must not fail validation: %v", err)
	}
}

func TestAddressNormalizesPort(t *testing.T) {
	t.Parallel()

	cfg := Config{Server: ServerConfig{Port: "8080"}}
	if got := cfg.Address(); got != ":8080" {
		t.Fatalf("unexpected address: %s", got)
	}

	cfg.Server.Port = "127.0.0.1:8080"
	if got := cfg.Address(); got != "127.0.0.1:8080" {
		t.Fatalf("unexpected address: %s", got)
	}
}

func TestPublishIntervalDefault(t *testing.T) {
	t.Parallel()

	var g GitHubConfig
	if g.PublishInterval() != 2*time.Second {
		t.Fatalf("unexpected default interval: %s", g.PublishInterval())
	}
	g.PublishIntervalMS = 250
	if g.PublishInterval() != 250*time.Millisecond {
		t.Fatalf("unexpected interval: %s", g.PublishInterval())
	}
}

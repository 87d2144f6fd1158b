package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/elonfeng/clusterboard/pkg/rank"
)

// DefaultPath is read when no --config flag is given and the file exists.
const DefaultPath = "config.yaml"

// Config is the root configuration.
type Config struct {
	Scoring    ScoringConfig    `yaml:"scoring"`
	Display    DisplayConfig    `yaml:"display"`
	Highlights HighlightsConfig `yaml:"highlights"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Notify     NotifyConfig     `yaml:"notify"`
}

// ScoringConfig locates the external scoring service.
type ScoringConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// ParseTimeout returns the request timeout as time.Duration.
func (s ScoringConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// DisplayConfig controls the cluster table.
type DisplayConfig struct {
	DefaultSort string `yaml:"default_sort"`
	ShowHidden  bool   `yaml:"show_hidden"`
}

// SortMode parses DefaultSort.
func (d DisplayConfig) SortMode() (rank.SortMode, error) {
	return rank.ParseMode(d.DefaultSort)
}

// HighlightsConfig controls the highlight set.
type HighlightsConfig struct {
	Count       int  `yaml:"count"`
	IncludeZero bool `yaml:"include_zero"`
}

// Options converts the section to selector options.
func (h HighlightsConfig) Options() rank.TopOptions {
	return rank.TopOptions{N: h.Count, IncludeZero: h.IncludeZero}
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LogConfig sets the log level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// NotifyConfig configures highlight destinations.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// SlackConfig for Slack webhook notifications.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook notifications.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// WebhookConfig for generic webhook notifications.
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Scoring: ScoringConfig{
			BaseURL: "http://localhost:5000",
			Timeout: "30s",
		},
		Display:    DisplayConfig{DefaultSort: string(rank.ModePoints)},
		Highlights: HighlightsConfig{Count: rank.DefaultHighlights, IncludeZero: rank.HighlightZeroPoints},
		Server:     ServerConfig{Port: 8080},
		Log:        LogConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
// An empty path loads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if _, err := c.Display.SortMode(); err != nil {
		errs = append(errs, fmt.Errorf("display.default_sort: %w", err))
	}
	if c.Highlights.Count <= 0 {
		errs = append(errs, fmt.Errorf("highlights.count must be positive, got %d", c.Highlights.Count))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	return errors.Join(errs...)
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLUSTERBOARD_SCORING_URL"); v != "" {
		cfg.Scoring.BaseURL = v
	}
	if v := os.Getenv("CLUSTERBOARD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Notify.Slack.WebhookURL = v
		cfg.Notify.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Notify.Discord.WebhookURL = v
		cfg.Notify.Discord.Enabled = true
	}
	if v := os.Getenv("CLUSTERBOARD_WEBHOOK_URL"); v != "" {
		cfg.Notify.Webhook.URL = v
		cfg.Notify.Webhook.Enabled = true
	}
	if v := os.Getenv("CLUSTERBOARD_WEBHOOK_SECRET"); v != "" {
		cfg.Notify.Webhook.Secret = v
	}
}

// Package config loads the formrelay runtime configuration.
//
// Values are layered, lowest precedence first: built-in defaults, an optional
// YAML file, a .env file, then process environment. Command line flags are
// applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"formrelay/internal/presence"
	"formrelay/internal/ratelimit"
	"formrelay/internal/relay"
	"formrelay/internal/security"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names
const (
	EnvWebhookURL = "DISCORD_WEBHOOK_URL"
	EnvMentionID  = "PING_USER_ID"
	EnvHost       = "FORMRELAY_HOST"
	EnvPort       = "FORMRELAY_PORT"
	EnvLogFile    = "FORMRELAY_LOG_FILE"
	EnvDBPath     = "FORMRELAY_DB_PATH"
)

const (
	DefaultHost          = "0.0.0.0"
	DefaultPort          = 5000
	DefaultSweepInterval = 10 * time.Minute
)

// ErrMissingWebhookURL is returned when no webhook URL was configured
var ErrMissingWebhookURL = fmt.Errorf("missing required environment variable: %s", EnvWebhookURL)

// RateLimitConfig tunes the submission limiter
type RateLimitConfig struct {
	Cooldown      time.Duration `yaml:"cooldown"`
	MaxRequests   int           `yaml:"max_requests"`
	SweepInterval time.Duration `yaml:"sweep_interval"` // 0 disables the background sweeper
}

// Config is the full runtime configuration
type Config struct {
	WebhookURL      string          `yaml:"webhook_url"`
	MentionID       string          `yaml:"mention_id"`
	Host            string          `yaml:"host"`
	Port            int             `yaml:"port"`
	LogFile         string          `yaml:"log_file"`
	DBPath          string          `yaml:"db_path"`
	WebhookTimeout  time.Duration   `yaml:"webhook_timeout"`
	OnlineThreshold time.Duration   `yaml:"online_threshold"`
	RateLimit       RateLimitConfig `yaml:"rate_limit"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		WebhookTimeout:  relay.DefaultTimeout,
		OnlineThreshold: presence.DefaultOnlineThreshold,
		RateLimit: RateLimitConfig{
			Cooldown:      ratelimit.DefaultCooldown,
			MaxRequests:   ratelimit.DefaultMaxRequests,
			SweepInterval: DefaultSweepInterval,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at configPath
// (skipped when empty), the .env files in envFiles and the environment.
// The result is validated before it is returned.
func Load(configPath string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.LoadFromFile(configPath); err != nil {
			return nil, err
		}
	}

	if err := LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile merges a YAML file into cfg. Keys absent from the file keep
// their current values.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return nil
}

// LoadDotEnv loads .env style files into the process environment.
// Missing files are ignored and variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// LoadFromEnv overrides fields whose environment variable is set and non-empty
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv(EnvWebhookURL); v != "" {
		c.WebhookURL = v
	}
	if v := os.Getenv(EnvMentionID); v != "" {
		c.MentionID = v
	}
	if v := os.Getenv(EnvHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Port = port
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		c.LogFile = v
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	return nil
}

// Validate checks that the configuration can start a server
func (c *Config) Validate() error {
	c.WebhookURL = strings.TrimSpace(c.WebhookURL)
	c.MentionID = strings.TrimSpace(c.MentionID)

	if c.WebhookURL == "" {
		return ErrMissingWebhookURL
	}

	var errs []error
	if err := security.ValidateWebhookURL(c.WebhookURL); err != nil {
		errs = append(errs, fmt.Errorf("%s: %w", EnvWebhookURL, err))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", c.Port))
	}
	if c.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("webhook_timeout must be positive"))
	}
	if c.OnlineThreshold <= 0 {
		errs = append(errs, fmt.Errorf("online_threshold must be positive"))
	}
	if c.RateLimit.Cooldown <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.cooldown must be positive"))
	}
	if c.RateLimit.MaxRequests < 1 {
		errs = append(errs, fmt.Errorf("rate_limit.max_requests must be at least 1"))
	}
	if c.RateLimit.SweepInterval < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.sweep_interval cannot be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Package worker holds the runtime plumbing of the scrapper process:
// configuration loading, poll-cycle metrics and the health server.
package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"link-tracker/internal/pkg/config"

	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the optional YAML file providing base configuration.
const ConfigFileEnv = "SCRAPPER_CONFIG_FILE"

// ScrapperConfig holds the configuration of the scrapper process.
//
// Configuration sources, lowest precedence first:
//   - Default values (DefaultConfig)
//   - The YAML file named by SCRAPPER_CONFIG_FILE
//   - Environment variables
//
// Every invalid value falls back to its default, so loading never fails.
type ScrapperConfig struct {
	// CheckInterval is the pause between poll cycles.
	// Env SCRAPPER_CHECK_INTERVAL is given in whole seconds (1-86400).
	CheckInterval time.Duration `yaml:"check_interval"`

	// CheckSchedule is an optional cron expression that replaces CheckInterval.
	CheckSchedule string `yaml:"check_schedule"`

	// Timezone is the IANA time zone CheckSchedule is evaluated in.
	Timezone string `yaml:"timezone"`

	// BotBaseURL is the root of the bot service receiving link updates.
	BotBaseURL string `yaml:"bot_base_url"`

	// BotNotificationsEnabled switches delivery off for dry runs.
	BotNotificationsEnabled bool `yaml:"bot_notifications_enabled"`

	GitHubAPIURL        string `yaml:"github_api_url"`
	GitHubToken         string `yaml:"github_token"`
	StackOverflowAPIURL string `yaml:"stackoverflow_api_url"`
	StackOverflowKey    string `yaml:"stackoverflow_key"`

	// HTTPTimeout bounds a single platform API request (1s-5m).
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// HealthPort serves /health and /health/ready (1024-65535).
	HealthPort int `yaml:"health_port"`

	// MetricsPort serves /metrics and /health/channels (1024-65535).
	MetricsPort int `yaml:"metrics_port"`

	// DatabaseURL is the PostgreSQL DSN holding the tracked links.
	DatabaseURL string `yaml:"database_url"`
}

// DefaultConfig returns a ScrapperConfig with default values.
func DefaultConfig() ScrapperConfig {
	return ScrapperConfig{
		CheckInterval:           10 * time.Second,
		Timezone:                "UTC",
		BotBaseURL:              "http://localhost:7777",
		BotNotificationsEnabled: true,
		GitHubAPIURL:            "https://api.github.com",
		StackOverflowAPIURL:     "https://api.stackexchange.com/2.3",
		HTTPTimeout:             30 * time.Second,
		HealthPort:              9091,
		MetricsPort:             9090,
	}
}

// Location returns the time zone for cron schedules, UTC when invalid.
func (c *ScrapperConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type fieldRule struct {
	name  string
	check func(c *ScrapperConfig) error
	reset func(c *ScrapperConfig, d ScrapperConfig)
}

var fieldRules = []fieldRule{
	{
		name: "check_interval",
		check: func(c *ScrapperConfig) error {
			return config.ValidateDuration(c.CheckInterval, time.Second, 24*time.Hour)
		},
		reset: func(c *ScrapperConfig, d ScrapperConfig) { c.CheckInterval = d.CheckInterval },
	},
	{
		name: "check_schedule",
		check: func(c *ScrapperConfig) error {
			if c.CheckSchedule == "" {
				return nil
			}
			return config.ValidateCronSchedule(c.CheckSchedule)
		},
		reset: func(c *ScrapperConfig, d ScrapperConfig) { c.CheckSchedule = d.CheckSchedule },
	},
	{
		name:  "timezone",
		check: func(c *ScrapperConfig) error { return config.ValidateTimezone(c.Timezone) },
		reset: func(c *ScrapperConfig, d ScrapperConfig) { c.Timezone = d.Timezone },
	},
	{
		name:  "bot_base_url",
		check: func(c *ScrapperConfig) error { return config.ValidateHTTPURL(c.BotBaseURL) },
		reset: func(c *ScrapperConfig, d ScrapperConfig) { c.BotBaseURL = d.BotBaseURL },
	},
	{
		name:  "github_api_url",
		check: func(c *ScrapperConfig) error { return config.ValidateHTTPURL(c.GitHubAPIURL) },
		reset: func(c *ScrapperConfig, d ScrapperConfig) { c.GitHubAPIURL = d.GitHubAPIURL },
	},
	{
		name:  "stackoverflow_api_url",
		check: func(c *ScrapperConfig) error { return config.ValidateHTTPURL(c.StackOverflowAPIURL) },
		reset: func(c *ScrapperConfig, d ScrapperConfig) { c.StackOverflowAPIURL = d.StackOverflowAPIURL },
	},
	{
		name: "http_timeout",
		check: func(c *ScrapperConfig) error {
			return config.ValidateDuration(c.HTTPTimeout, time.Second, 5*time.Minute)
		},
		reset: func(c *ScrapperConfig, d ScrapperConfig) { c.HTTPTimeout = d.HTTPTimeout },
	},
	{
		name:  "health_port",
		check: func(c *ScrapperConfig) error { return config.ValidateIntRange(c.HealthPort, 1024, 65535) },
		reset: func(c *ScrapperConfig, d ScrapperConfig) { c.HealthPort = d.HealthPort },
	},
	{
		name:  "metrics_port",
		check: func(c *ScrapperConfig) error { return config.ValidateIntRange(c.MetricsPort, 1024, 65535) },
		reset: func(c *ScrapperConfig, d ScrapperConfig) { c.MetricsPort = d.MetricsPort },
	},
}

// Validate checks every field and returns all failures together.
func (c *ScrapperConfig) Validate() error {
	var errs []error
	for _, rule := range fieldRules {
		if err := rule.check(c); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rule.name, err))
		}
	}
	return errors.Join(errs...)
}

// LoadConfigFile reads a YAML file on top of DefaultConfig.
// Fields absent from the file keep their defaults.
func LoadConfigFile(path string) (ScrapperConfig, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// configLoader applies the fail-open policy and records every fallback.
type configLoader struct {
	logger   *slog.Logger
	metrics  *WorkerMetrics
	fallback bool
}

func (l *configLoader) fellBack(field string, warnings ...string) {
	l.fallback = true
	l.metrics.RecordValidationError(field)
	l.metrics.RecordFallback(field)
	for _, warning := range warnings {
		l.logger.Warn("Configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}
}

func (l *configLoader) note(field string, result config.ConfigLoadResult) {
	if result.FallbackApplied {
		l.fellBack(field, result.Warnings...)
	}
}

// LoadConfig loads the scrapper configuration.
//
// This function implements the fail-open strategy:
//  1. Start with DefaultConfig()
//  2. Overlay the YAML file named by SCRAPPER_CONFIG_FILE, if any
//  3. Reset file values that fail validation to their defaults
//  4. Overlay environment variables, each validated with fallback
//
// Environment variables:
//   - SCRAPPER_CHECK_INTERVAL: seconds between cycles (default: 10)
//   - SCRAPPER_CHECK_SCHEDULE: cron expression (default: unset)
//   - SCRAPPER_TIMEZONE: IANA time zone (default: "UTC")
//   - BOT_BASE_URL: bot service root (default: "http://localhost:7777")
//   - BOT_NOTIFICATIONS_ENABLED: boolean (default: true)
//   - GITHUB_API_URL, GITHUB_TOKEN
//   - STACKOVERFLOW_API_URL, STACKOVERFLOW_KEY
//   - SCRAPPER_HTTP_TIMEOUT: duration string (default: 30s)
//   - SCRAPPER_HEALTH_PORT: 1024-65535 (default: 9091)
//   - METRICS_PORT: 1024-65535 (default: 9090)
//   - DATABASE_URL: PostgreSQL DSN
//
// The returned error is always nil; it is kept for callers that treat
// configuration loading as fallible.
func LoadConfig(logger *slog.Logger, metrics *WorkerMetrics) (*ScrapperConfig, error) {
	defaults := DefaultConfig()
	cfg := defaults
	l := &configLoader{logger: logger, metrics: metrics}

	if path := os.Getenv(ConfigFileEnv); path != "" {
		fileCfg, err := LoadConfigFile(path)
		if err != nil {
			l.fellBack("config_file", err.Error())
		} else {
			cfg = fileCfg
			for _, rule := range fieldRules {
				if err := rule.check(&cfg); err != nil {
					rule.reset(&cfg, defaults)
					l.fellBack(rule.name, fmt.Sprintf("Invalid %s in %s: %v, falling back to default", rule.name, path, err))
				}
			}
		}
	}

	result := config.LoadEnvInt("SCRAPPER_CHECK_INTERVAL", int(cfg.CheckInterval/time.Second), func(v int) error {
		return config.ValidateIntRange(v, 1, 86400)
	})
	l.note("check_interval", result)
	cfg.CheckInterval = time.Duration(result.Value.(int)) * time.Second

	result = config.LoadEnvWithFallback("SCRAPPER_CHECK_SCHEDULE", cfg.CheckSchedule, config.ValidateCronSchedule)
	l.note("check_schedule", result)
	cfg.CheckSchedule = result.Value.(string)

	result = config.LoadEnvWithFallback("SCRAPPER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)
	l.note("timezone", result)
	cfg.Timezone = result.Value.(string)

	result = config.LoadEnvWithFallback("BOT_BASE_URL", cfg.BotBaseURL, config.ValidateHTTPURL)
	l.note("bot_base_url", result)
	cfg.BotBaseURL = result.Value.(string)

	result = config.LoadEnvBool("BOT_NOTIFICATIONS_ENABLED", cfg.BotNotificationsEnabled)
	l.note("bot_notifications_enabled", result)
	cfg.BotNotificationsEnabled = result.Value.(bool)

	result = config.LoadEnvWithFallback("GITHUB_API_URL", cfg.GitHubAPIURL, config.ValidateHTTPURL)
	l.note("github_api_url", result)
	cfg.GitHubAPIURL = result.Value.(string)

	result = config.LoadEnvWithFallback("STACKOVERFLOW_API_URL", cfg.StackOverflowAPIURL, config.ValidateHTTPURL)
	l.note("stackoverflow_api_url", result)
	cfg.StackOverflowAPIURL = result.Value.(string)

	result = config.LoadEnvDuration("SCRAPPER_HTTP_TIMEOUT", cfg.HTTPTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, 5*time.Minute)
	})
	l.note("http_timeout", result)
	cfg.HTTPTimeout = result.Value.(time.Duration)

	portRange := func(v int) error { return config.ValidateIntRange(v, 1024, 65535) }

	result = config.LoadEnvInt("SCRAPPER_HEALTH_PORT", cfg.HealthPort, portRange)
	l.note("health_port", result)
	cfg.HealthPort = result.Value.(int)

	result = config.LoadEnvInt("METRICS_PORT", cfg.MetricsPort, portRange)
	l.note("metrics_port", result)
	cfg.MetricsPort = result.Value.(int)

	cfg.GitHubToken = config.LoadEnvString("GITHUB_TOKEN", cfg.GitHubToken)
	cfg.StackOverflowKey = config.LoadEnvString("STACKOVERFLOW_KEY", cfg.StackOverflowKey)
	cfg.DatabaseURL = config.LoadEnvString("DATABASE_URL", cfg.DatabaseURL)

	metrics.SetFallbackActive(l.fallback)
	metrics.RecordLoadTimestamp()

	return &cfg, nil
}

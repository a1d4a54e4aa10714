// Package config loads the streakrun YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/streakrun/internal/data/ingest"
	"github.com/sawpanic/streakrun/internal/domain/ou"
	"github.com/sawpanic/streakrun/internal/infrastructure/db"
	"github.com/sawpanic/streakrun/internal/streak"
	"github.com/sawpanic/streakrun/internal/systems"
)

// Environment variables that override file values.
const (
	EnvPostgresDSN = "STREAKRUN_PG_DSN"
	EnvRedisAddr   = "STREAKRUN_REDIS_ADDR"
	EnvWebhookURL  = "STREAKRUN_WEBHOOK_URL"
	EnvLogLevel    = "STREAKRUN_LOG_LEVEL"
)

// Config is the complete run configuration.
type Config struct {
	LogLevel   string         `yaml:"log_level"`
	Input      InputConfig    `yaml:"input"`
	Systems    []systems.Spec `yaml:"systems"`
	Thresholds Thresholds     `yaml:"thresholds"`
	Output     OutputConfig   `yaml:"output"`
	Database   db.Config      `yaml:"database"`
	Redis      RedisConfig    `yaml:"redis"`
	Alerts     AlertsConfig   `yaml:"alerts"`
	Metrics    MetricsConfig  `yaml:"metrics"`
}

// InputConfig describes the game file.
type InputConfig struct {
	Path        string            `yaml:"path"`
	Sheet       string            `yaml:"sheet"`
	Columns     ingest.Columns    `yaml:"columns"`
	TeamAliases map[string]string `yaml:"team_aliases"`
}

// Thresholds holds the streak and trend parameters.
type Thresholds struct {
	LossStreak          int    `yaml:"loss_streak"`
	RecoveryWindow      int    `yaml:"recovery_window"`
	ActiveStreak        int    `yaml:"active_streak"`
	TrendMin            int    `yaml:"trend_min"`
	TrendLookback       int    `yaml:"trend_lookback"`
	RecommendationReset string `yaml:"recommendation_reset"` // month or year
	StreakReset         string `yaml:"streak_reset"`         // month or year
}

// OutputConfig names the artifacts of a run. Empty paths are skipped.
type OutputConfig struct {
	Workbook string `yaml:"workbook"`
	JSON     string `yaml:"json"`
	Trends   bool   `yaml:"trends"`
}

// RedisConfig configures the alert cooldown store.
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// AlertsConfig configures the webhook notifier.
type AlertsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	WebhookURL      string        `yaml:"webhook_url"`
	Cooldown        time.Duration `yaml:"cooldown"`
	RatePerSecond   float64       `yaml:"rate_per_second"`
	Burst           int           `yaml:"burst"`
	Timeout         time.Duration `yaml:"timeout"`
	BreakerFailures uint32        `yaml:"breaker_failures"`
	BreakerOpen     time.Duration `yaml:"breaker_open"`
	Retries         int           `yaml:"retries"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	Textfile  string `yaml:"textfile"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Input: InputConfig{
			TeamAliases: map[string]string{
				"Oakland":    "Oakland_Sacramento",
				"Sacramento": "Oakland_Sacramento",
			},
		},
		Systems: systems.DefaultSpecs(),
		Thresholds: Thresholds{
			LossStreak:          8,
			RecoveryWindow:      2,
			ActiveStreak:        7,
			TrendMin:            4,
			TrendLookback:       100,
			RecommendationReset: "month",
			StreakReset:         "year",
		},
		Database: db.DefaultConfig(),
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Alerts: AlertsConfig{
			Cooldown:        24 * time.Hour,
			RatePerSecond:   1,
			Burst:           1,
			Timeout:         5 * time.Second,
			BreakerFailures: 3,
			BreakerOpen:     30 * time.Second,
			Retries:         2,
		},
		Metrics: MetricsConfig{
			Namespace: "streakrun",
		},
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if dsn := os.Getenv(EnvPostgresDSN); dsn != "" {
		cfg.Database.DSN = dsn
		cfg.Database.Enabled = true
	}
	if addr := os.Getenv(EnvRedisAddr); addr != "" {
		cfg.Redis.Addr = addr
		cfg.Redis.Enabled = true
	}
	if url := os.Getenv(EnvWebhookURL); url != "" {
		cfg.Alerts.WebhookURL = url
		cfg.Alerts.Enabled = true
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		cfg.LogLevel = level
	}
}

// Validate checks thresholds, systems and enabled sinks.
func (c *Config) Validate() error {
	t := c.Thresholds
	if t.LossStreak <= 0 {
		return fmt.Errorf("thresholds.loss_streak must be positive, got %d", t.LossStreak)
	}
	if t.RecoveryWindow <= 0 {
		return fmt.Errorf("thresholds.recovery_window must be positive, got %d", t.RecoveryWindow)
	}
	if t.ActiveStreak <= 0 {
		return fmt.Errorf("thresholds.active_streak must be positive, got %d", t.ActiveStreak)
	}
	if t.TrendMin <= 0 {
		return fmt.Errorf("thresholds.trend_min must be positive, got %d", t.TrendMin)
	}
	if t.TrendLookback <= 0 {
		return fmt.Errorf("thresholds.trend_lookback must be positive, got %d", t.TrendLookback)
	}

	recPeriod, err := ou.ParsePeriod(t.RecommendationReset)
	if err != nil {
		return fmt.Errorf("thresholds.recommendation_reset: %w", err)
	}
	if _, err := ou.ParsePeriod(t.StreakReset); err != nil {
		return fmt.Errorf("thresholds.streak_reset: %w", err)
	}

	if len(c.Systems) == 0 {
		return errors.New("at least one system is required")
	}
	if _, err := systems.Build(c.Systems, recPeriod); err != nil {
		return fmt.Errorf("systems: %w", err)
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}

	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when redis is enabled")
	}
	if c.Alerts.Enabled {
		if c.Alerts.WebhookURL == "" {
			return errors.New("alerts.webhook_url is required when alerts are enabled")
		}
		if c.Alerts.RatePerSecond <= 0 || c.Alerts.Burst <= 0 {
			return errors.New("alerts.rate_per_second and alerts.burst must be positive")
		}
		if c.Alerts.Retries < 0 {
			return errors.New("alerts.retries cannot be negative")
		}
	}
	return nil
}

// RecommendationPeriod is the reset granularity of the systems.
func (c *Config) RecommendationPeriod() ou.Period {
	p, _ := ou.ParsePeriod(c.Thresholds.RecommendationReset)
	return p
}

// StreakConfig converts the thresholds into state machine settings.
func (c *Config) StreakConfig() streak.Config {
	reset, err := ou.ParsePeriod(c.Thresholds.StreakReset)
	if err != nil {
		reset = ou.Yearly
	}
	return streak.Config{
		LossStreak:     c.Thresholds.LossStreak,
		RecoveryWindow: c.Thresholds.RecoveryWindow,
		Reset:          reset,
	}
}

// IngestOptions returns the reader options for the input section.
func (c *Config) IngestOptions() ingest.Options {
	return ingest.Options{
		Columns:     c.Input.Columns,
		TeamAliases: c.Input.TeamAliases,
		Sheet:       c.Input.Sheet,
	}
}

// Save writes the configuration as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

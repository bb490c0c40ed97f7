// Package config loads and validates the Order Sentinel configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the OSN_ prefix (e.g., OSN_DATABASE_HOST
// overrides database.host in the YAML). This layering allows the same binary to
// run with a config.yaml in local development and with pure environment variables
// in containerized deployments — no recompilation or different binaries needed.
//
// Detection thresholds are configurable only where the reference behavior allows
// it (windows, cadence); the rule semantics themselves (3× average, 1.5× maximum,
// failure count strictly greater than the threshold) are fixed in the detectors.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Telemetry     TelemetryConfig     `mapstructure:"telemetry"`
	Detection     DetectionConfig     `mapstructure:"detection"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Name               string `mapstructure:"name"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MinIdleConnections int    `mapstructure:"min_idle_connections"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds observability configuration
type TelemetryConfig struct {
	Enabled   bool            `mapstructure:"enabled"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Profiling ProfilingConfig `mapstructure:"profiling"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	PrometheusPort int  `mapstructure:"prometheus_port"`
}

// ProfilingConfig holds profiling configuration
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// DetectionConfig holds the sweep cadence and detection windows.
type DetectionConfig struct {
	// SweepIntervalMinutes is the fixed wall-clock cadence of the detection
	// sweep (default 15). The interval is not drift-corrected: a slow sweep
	// may overlap the next one, which is accepted.
	SweepIntervalMinutes int `mapstructure:"sweep_interval_minutes"`
	// SweepTimeout bounds one full sweep; zero disables the bound. A timeout
	// surfaces as each running detector's contained failure.
	SweepTimeout time.Duration `mapstructure:"sweep_timeout"`

	// HighValueWindowMinutes is how far back the high-value detector scans
	// for pending orders (default 60).
	HighValueWindowMinutes int `mapstructure:"high_value_window_minutes"`
	// PurchaseBaselineDays is the purchase baseline window length (default 90).
	PurchaseBaselineDays int `mapstructure:"purchase_baseline_days"`

	// AuthFailureWindowMinutes is the failed-login burst window (default 30).
	AuthFailureWindowMinutes int `mapstructure:"auth_failure_window_minutes"`
	// AuthFailureThreshold: groups with strictly more failures are flagged (default 5).
	AuthFailureThreshold int `mapstructure:"auth_failure_threshold"`

	// AccessWindowHours is the unusual-access evaluation window (default 2).
	AccessWindowHours int `mapstructure:"access_window_hours"`
	// AccessBaselineDays is the access baseline window length (default 30).
	AccessBaselineDays int `mapstructure:"access_baseline_days"`
}

// SweepInterval returns the sweep cadence as a duration, defaulting to 15 minutes.
func (d *DetectionConfig) SweepInterval() time.Duration {
	minutes := d.SweepIntervalMinutes
	if minutes <= 0 {
		minutes = 15
	}
	return time.Duration(minutes) * time.Minute
}

// NotificationsConfig holds settings for outbound alert delivery
type NotificationsConfig struct {
	// Enabled globally toggles alert delivery. Findings are recorded either way.
	Enabled bool `mapstructure:"enabled"`
	// Channels lists the channel ids the engine requests for every alert
	// (e.g. ["email", "chat", "inapp"]). Availability per channel is the
	// dispatcher's concern, not the detectors'.
	Channels []string `mapstructure:"channels"`
	// SMTP holds the outbound mail server settings for the email channel
	SMTP SMTPConfig `mapstructure:"smtp"`
	// Webhook holds the chat channel endpoint
	Webhook WebhookConfig `mapstructure:"webhook"`
	// Redis holds the in-app channel pub/sub settings
	Redis RedisConfig `mapstructure:"redis"`
}

// SMTPConfig holds outbound mail server configuration for alert emails
type SMTPConfig struct {
	// Host is the SMTP server hostname (e.g. smtp.sendgrid.net)
	Host string `mapstructure:"host"`
	// Port is the SMTP server port (587 for STARTTLS, 465 for SMTPS, 25 for plain)
	Port int `mapstructure:"port"`
	// Username for SMTP authentication
	Username string `mapstructure:"username"`
	// Password for SMTP authentication
	Password string `mapstructure:"password"`
	// From is the sender address shown in alert emails
	From string `mapstructure:"from"`
	// UseTLS enables STARTTLS (port 587) or implicit TLS (port 465); false = plain SMTP
	UseTLS bool `mapstructure:"use_tls"`
}

// WebhookConfig holds the chat webhook endpoint configuration
type WebhookConfig struct {
	URL         string            `mapstructure:"url"`
	Headers     map[string]string `mapstructure:"headers"`
	TimeoutSecs int               `mapstructure:"timeout_secs"`
}

// RedisConfig holds the Redis pub/sub settings for in-app alerts
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// Channel is the pub/sub channel prefix; per-recipient messages publish
	// to "<channel>:<user_id>".
	Channel string `mapstructure:"channel"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// This is necessary because AutomaticEnv() doesn't work well with nested structs during Unmarshal.
// viper.BindEnv only errors when called with zero keys; since every key here is a non-empty
// hardcoded string, any error indicates a programming bug and is surfaced to the caller.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		// Database
		"database.host",
		"database.port",
		"database.name",
		"database.user",
		"database.password",
		"database.ssl_mode",
		"database.max_connections",
		"database.min_idle_connections",

		// Logging
		"logging.level",
		"logging.format",

		// Telemetry
		"telemetry.enabled",
		"telemetry.metrics.enabled",
		"telemetry.metrics.prometheus_port",
		"telemetry.profiling.enabled",
		"telemetry.profiling.port",

		// Detection
		"detection.sweep_interval_minutes",
		"detection.sweep_timeout",
		"detection.high_value_window_minutes",
		"detection.purchase_baseline_days",
		"detection.auth_failure_window_minutes",
		"detection.auth_failure_threshold",
		"detection.access_window_hours",
		"detection.access_baseline_days",

		// Notifications
		"notifications.enabled",
		"notifications.channels",
		"notifications.smtp.host",
		"notifications.smtp.port",
		"notifications.smtp.username",
		"notifications.smtp.password",
		"notifications.smtp.from",
		"notifications.smtp.use_tls",
		"notifications.webhook.url",
		"notifications.webhook.timeout_secs",
		"notifications.redis.addr",
		"notifications.redis.password",
		"notifications.redis.db",
		"notifications.redis.channel",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// Set config file path if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config.yaml in common locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/order-sentinel")
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	// Enable environment variable support
	v.SetEnvPrefix("OSN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind environment variables for nested structures
	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	// Unmarshal configuration
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand environment variables in sensitive fields
	cfg.Database.Password = expandEnv(cfg.Database.Password)
	cfg.Notifications.SMTP.Password = expandEnv(cfg.Notifications.SMTP.Password)
	cfg.Notifications.Redis.Password = expandEnv(cfg.Notifications.Redis.Password)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "order_platform")
	v.SetDefault("database.user", "sentinel")
	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_idle_connections", 5)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.prometheus_port", 9090)
	v.SetDefault("telemetry.profiling.enabled", false)
	v.SetDefault("telemetry.profiling.port", 6060)

	// Detection defaults (the reference windows from the rule definitions)
	v.SetDefault("detection.sweep_interval_minutes", 15)
	v.SetDefault("detection.sweep_timeout", "0s")
	v.SetDefault("detection.high_value_window_minutes", 60)
	v.SetDefault("detection.purchase_baseline_days", 90)
	v.SetDefault("detection.auth_failure_window_minutes", 30)
	v.SetDefault("detection.auth_failure_threshold", 5)
	v.SetDefault("detection.access_window_hours", 2)
	v.SetDefault("detection.access_baseline_days", 30)

	// Notifications defaults
	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.channels", []string{"email", "chat", "inapp"})
	v.SetDefault("notifications.smtp.port", 587)
	v.SetDefault("notifications.smtp.use_tls", true)
	v.SetDefault("notifications.webhook.timeout_secs", 10)
	v.SetDefault("notifications.redis.addr", "localhost:6379")
	v.SetDefault("notifications.redis.db", 0)
	v.SetDefault("notifications.redis.channel", "sentinel.alerts")
}

// expandEnv expands environment variables in the format ${VAR_NAME}
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate database
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database.user is required")
	}

	// Validate logging level
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	// Validate detection windows
	if c.Detection.SweepIntervalMinutes < 0 {
		return fmt.Errorf("detection.sweep_interval_minutes must not be negative")
	}
	if c.Detection.AuthFailureThreshold < 0 {
		return fmt.Errorf("detection.auth_failure_threshold must not be negative")
	}

	// Validate notification channels when delivery is enabled
	if c.Notifications.Enabled {
		validChannels := map[string]bool{"email": true, "chat": true, "inapp": true}
		for _, ch := range c.Notifications.Channels {
			if !validChannels[ch] {
				return fmt.Errorf("unknown notification channel: %s (must be email, chat, or inapp)", ch)
			}
		}
	}

	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

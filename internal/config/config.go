// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage and settings provider names.
const (
	ProviderMemory   = "memory"
	ProviderPostgres = "postgres"
	ProviderGCS      = "gcs"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Remote  RemoteConfig  `mapstructure:"remote"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Audit   AuditConfig   `mapstructure:"audit"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	ExecLog ExecLogConfig `mapstructure:"execlog"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls webhook HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	TimeoutSeconds  int `mapstructure:"timeout_seconds"`
	LockWaitSeconds int `mapstructure:"lock_wait_seconds"`
}

// AuthConfig defines webhook authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// RemoteConfig points at the crawl platform API.
type RemoteConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxRetries     int     `mapstructure:"max_retries"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateBurst      int     `mapstructure:"rate_burst"`
	UserAgent      string  `mapstructure:"user_agent"`
	WebhookBaseURL string  `mapstructure:"webhook_base_url"`
}

// RetryConfig governs the report-not-ready polling loop.
type RetryConfig struct {
	MaxAttempts  int `mapstructure:"max_attempts"`
	DelaySeconds int `mapstructure:"delay_seconds"`
	PageSize     int `mapstructure:"page_size"`
}

// AuditConfig identifies the primary audit under management.
type AuditConfig struct {
	PrimaryAuditID  string `mapstructure:"primary_audit_id"`
	DuplicatePolicy string `mapstructure:"duplicate_policy"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// StorageConfig selects and parameterizes the report/settings backends.
type StorageConfig struct {
	ReportProvider   string `mapstructure:"report_provider"`
	SettingsProvider string `mapstructure:"settings_provider"`
	GCSBucket        string `mapstructure:"gcs_bucket"`
	GCSPrefix        string `mapstructure:"gcs_prefix"`
}

// ExecLogConfig selects execution-log sinks.
type ExecLogConfig struct {
	Sinks           []string `mapstructure:"sinks"`
	PubSubProjectID string   `mapstructure:"pubsub_project_id"`
	PubSubTopic     string   `mapstructure:"pubsub_topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LINKAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 360)
	v.SetDefault("server.lock_wait_seconds", 30)
	v.SetDefault("remote.timeout_seconds", 30)
	v.SetDefault("remote.max_retries", 2)
	v.SetDefault("remote.rate_limit", 5)
	v.SetDefault("remote.rate_burst", 10)
	v.SetDefault("remote.user_agent", "linkaudit/0.1")
	v.SetDefault("retry.max_attempts", 10)
	v.SetDefault("retry.delay_seconds", 30)
	v.SetDefault("retry.page_size", 1000)
	v.SetDefault("audit.duplicate_policy", "collect_all")
	v.SetDefault("storage.report_provider", ProviderMemory)
	v.SetDefault("storage.settings_provider", ProviderMemory)
	v.SetDefault("storage.gcs_prefix", "reports")
	v.SetDefault("execlog.sinks", []string{"log"})
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url must be set")
	}
	if c.Retry.MaxAttempts <= 0 || c.Retry.DelaySeconds <= 0 {
		return fmt.Errorf("retry.max_attempts and retry.delay_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Storage.ReportProvider {
	case ProviderMemory:
	case ProviderPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set for the postgres report provider")
		}
	case ProviderGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs report provider")
		}
	default:
		return fmt.Errorf("unknown storage.report_provider %q", c.Storage.ReportProvider)
	}
	switch c.Storage.SettingsProvider {
	case ProviderMemory:
	case ProviderPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set for the postgres settings provider")
		}
	default:
		return fmt.Errorf("unknown storage.settings_provider %q", c.Storage.SettingsProvider)
	}
	if c.ServerTimeout() <= c.RetryBudget() {
		return fmt.Errorf("server.timeout_seconds must exceed the retry budget (%s)", c.RetryBudget())
	}
	return nil
}

// ServerTimeout is the per-request deadline for webhook handling.
func (c Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}

// LockWait bounds how long a duplicate delivery waits for an in-flight one.
func (c Config) LockWait() time.Duration {
	return time.Duration(c.Server.LockWaitSeconds) * time.Second
}

// RetryDelay is the pause between report polling attempts.
func (c Config) RetryDelay() time.Duration {
	return time.Duration(c.Retry.DelaySeconds) * time.Second
}

// RetryBudget is the worst-case duration of the report polling loop.
func (c Config) RetryBudget() time.Duration {
	return time.Duration(c.Retry.MaxAttempts*c.Retry.DelaySeconds) * time.Second
}

// RemoteTimeout is the per-call deadline for remote API requests.
func (c Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Log      LogConfig
	HTTP     HTTPConfig
	Platform PlatformConfig
	Sourcing SourcingConfig
	Sync     SyncConfig
	Notify   NotifyConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// PlatformConfig holds order-management platform client settings
type PlatformConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RatePerSecond  float64 // request budget against the platform API
	RateBurst      int
	PageSize       int
	MaxPages       int // hard page cap per run
	RetryAttempts  int // per-page transient retry budget
	RetryBaseDelay time.Duration
}

// SourcingConfig holds the monitoring collaborator's endpoint settings
type SourcingConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SyncConfig holds sync and tracking cycle settings
type SyncConfig struct {
	Enabled          bool
	Interval         time.Duration
	OverlapMargin    time.Duration // re-fetch margin behind the watermark
	InitialLookback  time.Duration // window on first run with no watermark
	TrackingEnabled  bool
	TrackingInterval time.Duration
	MonitorEnabled   bool
	MonitorInterval  time.Duration
}

// NotifyConfig holds change-notification settings
type NotifyConfig struct {
	WebhookURL         string
	WebhookTimeout     time.Duration
	PriceChangePercent float64 // relative change that triggers price_changed
	MarginFloorPercent float64 // margin rate below which margin_alert fires
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with RESELL_ prefix (e.g., RESELL_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("RESELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
			IdleTimeout:  v.GetDuration("http.idle_timeout"),
		},
		Platform: PlatformConfig{
			BaseURL:        v.GetString("platform.base_url"),
			Timeout:        v.GetDuration("platform.timeout"),
			RatePerSecond:  v.GetFloat64("platform.rate_per_second"),
			RateBurst:      v.GetInt("platform.rate_burst"),
			PageSize:       v.GetInt("platform.page_size"),
			MaxPages:       v.GetInt("platform.max_pages"),
			RetryAttempts:  v.GetInt("platform.retry_attempts"),
			RetryBaseDelay: v.GetDuration("platform.retry_base_delay"),
		},
		Sourcing: SourcingConfig{
			BaseURL: v.GetString("sourcing.base_url"),
			Timeout: v.GetDuration("sourcing.timeout"),
		},
		Sync: SyncConfig{
			Enabled:          v.GetBool("sync.enabled"),
			Interval:         v.GetDuration("sync.interval"),
			OverlapMargin:    v.GetDuration("sync.overlap_margin"),
			InitialLookback:  v.GetDuration("sync.initial_lookback"),
			TrackingEnabled:  v.GetBool("sync.tracking_enabled"),
			TrackingInterval: v.GetDuration("sync.tracking_interval"),
			MonitorEnabled:   v.GetBool("sync.monitor_enabled"),
			MonitorInterval:  v.GetDuration("sync.monitor_interval"),
		},
		Notify: NotifyConfig{
			WebhookURL:         v.GetString("notify.webhook_url"),
			WebhookTimeout:     v.GetDuration("notify.webhook_timeout"),
			PriceChangePercent: v.GetFloat64("notify.price_change_percent"),
			MarginFloorPercent: v.GetFloat64("notify.margin_floor_percent"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "resell-backoffice"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "resell"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.Platform.Timeout == 0 {
		cfg.Platform.Timeout = 30 * time.Second
	}
	if cfg.Platform.RatePerSecond == 0 {
		cfg.Platform.RatePerSecond = 3
	}
	if cfg.Platform.RateBurst == 0 {
		cfg.Platform.RateBurst = 5
	}
	if cfg.Platform.PageSize == 0 {
		cfg.Platform.PageSize = 50
	}
	if cfg.Platform.MaxPages == 0 {
		cfg.Platform.MaxPages = 100
	}
	if cfg.Platform.RetryAttempts == 0 {
		cfg.Platform.RetryAttempts = 3
	}
	if cfg.Platform.RetryBaseDelay == 0 {
		cfg.Platform.RetryBaseDelay = 2 * time.Second
	}
	if cfg.Sourcing.Timeout == 0 {
		cfg.Sourcing.Timeout = 20 * time.Second
	}
	if cfg.Sync.Interval == 0 {
		cfg.Sync.Interval = 10 * time.Minute
	}
	if cfg.Sync.OverlapMargin == 0 {
		cfg.Sync.OverlapMargin = 5 * time.Minute
	}
	if cfg.Sync.InitialLookback == 0 {
		cfg.Sync.InitialLookback = 24 * time.Hour
	}
	if cfg.Sync.TrackingInterval == 0 {
		cfg.Sync.TrackingInterval = 30 * time.Minute
	}
	if cfg.Sync.MonitorInterval == 0 {
		cfg.Sync.MonitorInterval = time.Hour
	}
	if cfg.Notify.WebhookTimeout == 0 {
		cfg.Notify.WebhookTimeout = 5 * time.Second
	}
	if cfg.Notify.PriceChangePercent == 0 {
		cfg.Notify.PriceChangePercent = 1.0
	}
	if cfg.Notify.MarginFloorPercent == 0 {
		cfg.Notify.MarginFloorPercent = 5.0
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Notify.PriceChangePercent < 0 {
		return fmt.Errorf("notify.price_change_percent cannot be negative")
	}
	if c.Sync.OverlapMargin < 0 {
		return fmt.Errorf("sync.overlap_margin cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Platform.BaseURL == "" {
			return fmt.Errorf("platform.base_url is required in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

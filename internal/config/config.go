// Package config handles application configuration loading and validation using Viper.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Payment    PaymentConfig    `mapstructure:"payment"`
	Mattermost MattermostConfig `mapstructure:"mattermost"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	Membership MembershipConfig `mapstructure:"membership"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	Environment    string          `mapstructure:"environment"`
	RequestTimeout int             `mapstructure:"request_timeout"` // seconds
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig contains per-client request rate limits.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// DatabaseConfig contains database connection settings for PostgreSQL and Redis.
type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	Migrations      string `mapstructure:"migrations"` // "sql" (golang-migrate) or "auto" (GORM AutoMigrate)
}

// DSN returns the libpq connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the postgres:// URL form used by golang-migrate.
func (c *PostgresConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig contains Redis cache connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// AuthConfig contains bearer token verification settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	TokenTTL  int    `mapstructure:"token_ttl"` // hours
}

// PaymentConfig contains payment gateway settings.
type PaymentConfig struct {
	StripeSecretKey string `mapstructure:"stripe_secret_key"`
	Currency        string `mapstructure:"currency"`
}

// MattermostConfig contains Mattermost webhook notification settings.
type MattermostConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
	Enabled    bool   `mapstructure:"enabled"`
}

// SchedulerConfig contains background job settings.
type SchedulerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Timezone       string `mapstructure:"timezone"`
	PromotionSweep string `mapstructure:"promotion_sweep"` // cron expression
	RequestDigest  string `mapstructure:"request_digest"`  // "HH:MM", daily
}

// CatalogConfig contains meal catalog tuning.
type CatalogConfig struct {
	PageSize           int `mapstructure:"page_size"`
	PromotionThreshold int `mapstructure:"promotion_threshold"`
	CacheTTL           int `mapstructure:"cache_ttl"` // seconds
}

// MembershipConfig contains membership package settings.
type MembershipConfig struct {
	SeedFile string `mapstructure:"seed_file"`
}

// MetricsConfig contains metrics exporter settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig contains Prometheus metrics exporter settings.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory, when present, is loaded first.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/bitelog/")
	}

	// Server configuration
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")
	_ = v.BindEnv("server.request_timeout", "SERVER_REQUEST_TIMEOUT")

	// PostgreSQL configuration
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER", "DB_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD", "DB_PASS")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.migrations", "POSTGRES_MIGRATIONS")

	// Redis configuration
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")

	// Secrets
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET", "ACCESS_TOKEN_SECRET")
	_ = v.BindEnv("auth.issuer", "JWT_ISSUER")
	_ = v.BindEnv("payment.stripe_secret_key", "STRIPE_SECRET_KEY", "PAYMENT_GATEWAY_SK")

	// Mattermost configuration
	_ = v.BindEnv("mattermost.webhook_url", "MATTERMOST_WEBHOOK_URL")
	_ = v.BindEnv("mattermost.channel", "MATTERMOST_CHANNEL")
	_ = v.BindEnv("mattermost.enabled", "MATTERMOST_ENABLED")

	// Logging configuration
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	// Scheduler configuration
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")

	_ = v.BindEnv("membership.seed_file", "MEMBERSHIP_SEED_FILE")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.request_timeout", 15)
	v.SetDefault("server.rate_limit.requests_per_second", 20)
	v.SetDefault("server.rate_limit.burst", 40)

	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 300)
	v.SetDefault("database.postgres.migrations", "sql")
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)

	v.SetDefault("auth.issuer", "bitelog")
	v.SetDefault("auth.token_ttl", 24)
	v.SetDefault("payment.currency", "usd")

	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.promotion_sweep", "*/15 * * * *")
	v.SetDefault("scheduler.request_digest", "09:00")

	v.SetDefault("catalog.page_size", 10)
	v.SetDefault("catalog.promotion_threshold", 10)
	v.SetDefault("catalog.cache_ttl", 300)

	v.SetDefault("metrics.prometheus.port", 9090)
	v.SetDefault("metrics.prometheus.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if c.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if c.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	switch c.Database.Postgres.Migrations {
	case "sql", "auto":
	default:
		return fmt.Errorf("database.postgres.migrations must be \"sql\" or \"auto\", got %q", c.Database.Postgres.Migrations)
	}
	if c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Catalog.PageSize < 1 {
		return fmt.Errorf("catalog.page_size must be positive")
	}
	if c.Catalog.PromotionThreshold < 1 {
		return fmt.Errorf("catalog.promotion_threshold must be positive")
	}
	if c.Mattermost.Enabled && c.Mattermost.WebhookURL == "" {
		return fmt.Errorf("mattermost.webhook_url is required when mattermost is enabled")
	}
	return nil
}

// RequestTimeoutDuration returns the per-request deadline.
func (c *ServerConfig) RequestTimeoutDuration() time.Duration {
	if c.RequestTimeout <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.RequestTimeout) * time.Second
}

// CacheTTLDuration returns the reference-data cache lifetime.
func (c *CatalogConfig) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// GetLocation returns the timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	Password     PasswordConfig     `mapstructure:"password"`
	Lockout      LockoutConfig      `mapstructure:"lockout"`
	Session      SessionConfig      `mapstructure:"session"`
	AccessToken  AccessTokenConfig  `mapstructure:"access_token"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
}

// PasswordConfig holds password hashing configuration
type PasswordConfig struct {
	MinLength         int    `mapstructure:"min_length"`
	Argon2Memory      uint32 `mapstructure:"argon2_memory"`
	Argon2Iterations  uint32 `mapstructure:"argon2_iterations"`
	Argon2Parallelism uint8  `mapstructure:"argon2_parallelism"`
}

// LockoutConfig holds account lockout policy values
type LockoutConfig struct {
	// MaxFailedAttempts is the failed-login count at which the account locks
	MaxFailedAttempts int `mapstructure:"max_failed_attempts"`
	// Duration is how long the lock lasts before it self-heals
	Duration time.Duration `mapstructure:"duration"`
}

// SessionConfig holds bearer-session configuration
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
	// CleanupInterval is how often the background sweep expires stale rows
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// AccessTokenConfig holds JWT access token configuration
type AccessTokenConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
	Issuer string        `mapstructure:"issuer"`
}

// RateLimitingConfig holds rate limiting configuration
type RateLimitingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/tenantry")

	// Environment variable overrides: TENANTRY_DATABASE_HOST etc.
	v.SetEnvPrefix("TENANTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; defaults + env are enough for dev
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks required configuration values
func (c *Config) Validate() error {
	if c.Security.AccessToken.Secret == "" {
		return fmt.Errorf("security.access_token.secret is required")
	}
	if c.Security.Lockout.MaxFailedAttempts <= 0 {
		return fmt.Errorf("security.lockout.max_failed_attempts must be positive")
	}
	if c.Security.Session.TTL <= 0 {
		return fmt.Errorf("security.session.ttl must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "tenantry")
	v.SetDefault("database.user", "tenantry")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 20)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("security.password.min_length", 8)
	v.SetDefault("security.password.argon2_memory", 64*1024)
	v.SetDefault("security.password.argon2_iterations", 3)
	v.SetDefault("security.password.argon2_parallelism", 4)

	v.SetDefault("security.lockout.max_failed_attempts", 5)
	v.SetDefault("security.lockout.duration", 30*time.Minute)

	v.SetDefault("security.session.ttl", 24*time.Hour)
	v.SetDefault("security.session.cleanup_interval", time.Hour)

	v.SetDefault("security.access_token.ttl", 30*time.Minute)
	v.SetDefault("security.access_token.issuer", "tenantry")

	v.SetDefault("security.rate_limiting.enabled", true)
}

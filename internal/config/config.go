package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Mail      MailConfig      `yaml:"mail"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port" env:"PORT"`
	Host           string   `yaml:"host" env:"SERVER_HOST"`
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

// GetHost returns the server host. An empty host listens on all interfaces.
func (c ServerConfig) GetHost() string {
	if c.Host == "" {
		return "0.0.0.0"
	}
	return c.Host
}

// DatabaseConfig holds the relational store connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url" env:"DATABASE_URL"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
}

// ConnString returns the configured URL with parameters the driver rejects
// stripped out. An unset URL yields "".
func (c DatabaseConfig) ConnString() string {
	return CleanDatabaseURL(c.URL)
}

// RedisConfig holds the optional Redis used for per-address locking.
type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL"`
}

// MailConfig holds AWS SES settings for the contact notification.
// Leaving the credentials empty disables notifications.
type MailConfig struct {
	Region         string `yaml:"region" env:"AWS_SES_REGION"`
	AccessKey      string `yaml:"access_key" env:"AWS_SES_ACCESS_KEY"`
	SecretKey      string `yaml:"secret_key" env:"AWS_SES_SECRET_KEY"`
	From           string `yaml:"from" env:"MAIL_FROM"` // SES-verified sender, required when enabled
	To             string `yaml:"to" env:"MAIL_TO"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"MAIL_TIMEOUT_SECONDS"`
}

// Enabled reports whether a mail-provider credential is configured.
func (c MailConfig) Enabled() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// Timeout returns the configured timeout as a duration
func (c MailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RateLimitConfig throttles form submissions per client IP.
// A zero PerMinute disables limiting.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute" env:"RATE_LIMIT_PER_MINUTE"`
	Burst     int `yaml:"burst" env:"RATE_LIMIT_BURST"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	File       string `yaml:"file" env:"LOG_FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"LOG_MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"LOG_MAX_BACKUPS"`
	MaxAgeDays int    `yaml:"max_age_days" env:"LOG_MAX_AGE_DAYS"`
}

// DefaultMailTo receives contact notifications when MAIL_TO is unset.
const DefaultMailTo = "nuweyun@gmail.com"

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars when deployed.
// A missing config file is not an error: the service can run from the
// environment alone.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		loaded, err := loadFile(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}

	// Variables that are set override file values; unset ones leave them alone.
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects combinations no default can repair. SES refuses
// unverified senders, so there is no fallback From address.
func (cfg *Config) validate() error {
	if cfg.Mail.Enabled() && strings.TrimSpace(cfg.Mail.From) == "" {
		return errors.New("MAIL_FROM is required when AWS SES credentials are set")
	}
	return nil
}

func (cfg *Config) setDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 3
	}
	if cfg.Mail.Region == "" {
		cfg.Mail.Region = "us-east-1"
	}
	if cfg.Mail.To == "" {
		cfg.Mail.To = DefaultMailTo
	}
	if cfg.Mail.TimeoutSeconds == 0 {
		cfg.Mail.TimeoutSeconds = 10
	}
	if cfg.RateLimit.PerMinute > 0 && cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = cfg.RateLimit.PerMinute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 50
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Log.MaxAgeDays == 0 {
		cfg.Log.MaxAgeDays = 14
	}
}

// Package config provides configuration management for the application.
// Precedence: defaults < optional config.yaml < environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	QC      QCConfig      `yaml:"qc"`
	Redis   RedisConfig   `yaml:"redis"`
	Metrics MetricsConfig `yaml:"metrics"`

	// DatabaseURL is the optional Postgres URL for the station-metadata
	// store. Empty disables the station routes.
	DatabaseURL string `yaml:"database_url"`

	// LogFormat selects the log handler: "json" (default) or "pretty".
	LogFormat string `yaml:"log_format"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
}

// QCConfig holds the upstream QC service configuration
type QCConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// RedisConfig holds cache store configuration
type RedisConfig struct {
	URL            string        `yaml:"url"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Load reads configuration from .env, an optional YAML file, and environment
// variables.
func Load() (*Config, error) {
	// Load .env if present (optional, won't fail if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: "8080",
		},
		Redis: RedisConfig{
			URL:            "redis://localhost:6379",
			ConnectTimeout: 5 * time.Second,
			RetryInterval:  30 * time.Second,
		},
		Metrics: MetricsConfig{
			Endpoint: "/metrics",
		},
		LogFormat: "json",
	}

	if err := loadFile(cfg); err != nil {
		return nil, err
	}
	applyEnv(cfg)

	if cfg.QC.BaseURL == "" {
		return nil, fmt.Errorf("QC_BASE_URL is required")
	}

	return cfg, nil
}

// loadFile overlays the YAML config file when one exists. The path defaults
// to ./config.yaml and can be overridden with CONFIG_FILE.
func loadFile(cfg *Config) error {
	path := os.Getenv("CONFIG_FILE")
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides config values from environment variables.
func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.QC.BaseURL, "QC_BASE_URL")
	setString(&cfg.QC.APIKey, "QC_API_KEY")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setDuration(&cfg.Redis.ConnectTimeout, "REDIS_CONNECT_TIMEOUT")
	setDuration(&cfg.Redis.RetryInterval, "REDIS_RETRY_INTERVAL")
	setBool(&cfg.Metrics.Enabled, "METRICS_ENABLED")
	setString(&cfg.Metrics.Endpoint, "METRICS_ENDPOINT")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.LogFormat, "LOG_FORMAT")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setBool(dst *bool, key string) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

// setDuration accepts either plain integers (interpreted as seconds) or Go
// duration strings (e.g., "30s", "1h30m").
func setDuration(dst *time.Duration, key string) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	if secs, err := strconv.Atoi(val); err == nil {
		*dst = time.Duration(secs) * time.Second
		return
	}
	if d, err := time.ParseDuration(val); err == nil {
		*dst = d
	}
}

// Package config loads the engine configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the engine.
type Config struct {
	Server    ServerConfig      `yaml:"server"`
	Database  DatabaseConfig    `yaml:"database"`
	Redis     RedisConfig       `yaml:"redis"`
	Tracking  TrackingConfig    `yaml:"tracking"`
	Scheduler SchedulerConfig   `yaml:"scheduler"`
	Directory DirectoryConfig   `yaml:"directory"`
	Branding  map[string]string `yaml:"branding"`
}

// ServerConfig holds the admin API listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds the postgres connection settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds the optional redis connection for the tracking
// rate limiter. Empty URL means the in-process fallback limiter.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// TrackingConfig holds the public tracking surface settings.
type TrackingConfig struct {
	// BaseURL is the externally visible origin links and the pixel
	// point at, e.g. https://mail-metrics.example.com
	BaseURL string `yaml:"base_url"`
	Port    int    `yaml:"port"`
	// TokenRatePerMinute caps tracking hits per token.
	TokenRatePerMinute int `yaml:"token_rate_per_minute"`
}

// DirectoryConfig points at the organization's user directory. An
// empty URL disables scheduled population sourcing.
type DirectoryConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// SchedulerConfig holds the background worker cadence.
type SchedulerConfig struct {
	IntervalMinutes    int `yaml:"interval_minutes"`
	FireProbabilityPct int `yaml:"fire_probability_pct"`
	AggregationHour    int `yaml:"aggregation_hour"`
	RetentionHour      int `yaml:"retention_hour"`
}

// Load reads config from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads the YAML file (when present) and overrides with
// environment variables. A .env file is honored if it exists.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := Load(path)
			if err != nil {
				return nil, err
			}
			cfg = loaded
		}
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := envInt("SERVER_PORT"); port != 0 {
		cfg.Server.Port = port
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if base := os.Getenv("TRACKING_BASE_URL"); base != "" {
		cfg.Tracking.BaseURL = base
	}
	if port := envInt("TRACKING_PORT"); port != 0 {
		cfg.Tracking.Port = port
	}
	if rate := envInt("TRACKING_TOKEN_RATE_PER_MINUTE"); rate != 0 {
		cfg.Tracking.TokenRatePerMinute = rate
	}
	if url := os.Getenv("DIRECTORY_URL"); url != "" {
		cfg.Directory.URL = url
	}
	if key := os.Getenv("DIRECTORY_API_KEY"); key != "" {
		cfg.Directory.APIKey = key
	}
	if interval := envInt("SCHEDULER_INTERVAL_MINUTES"); interval != 0 {
		cfg.Scheduler.IntervalMinutes = interval
	}
	if pct := envInt("SCHEDULER_FIRE_PROBABILITY_PCT"); pct != 0 {
		cfg.Scheduler.FireProbabilityPct = pct
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Tracking.Port == 0 {
		c.Tracking.Port = 8081
	}
	if c.Tracking.BaseURL == "" {
		c.Tracking.BaseURL = fmt.Sprintf("http://localhost:%d", c.Tracking.Port)
	}
	if c.Tracking.TokenRatePerMinute == 0 {
		c.Tracking.TokenRatePerMinute = 20
	}
	if c.Scheduler.IntervalMinutes == 0 {
		c.Scheduler.IntervalMinutes = 5
	}
	if c.Scheduler.FireProbabilityPct == 0 {
		c.Scheduler.FireProbabilityPct = 20
	}
	if c.Scheduler.AggregationHour == 0 {
		c.Scheduler.AggregationHour = 2
	}
	if c.Scheduler.RetentionHour == 0 {
		c.Scheduler.RetentionHour = 3
	}
	if c.Branding == nil {
		c.Branding = map[string]string{}
	}
}

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// Package config centralizes defaults and environment wiring. Core packages
// take their settings through constructors; only this package and the cmd
// mains read the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultStrategy   = "scraper"
	DefaultSearchTerm = "AI"
	DefaultLimit      = 10
	DefaultDBPath     = "./data/ph_ai_tracker.db"
	DefaultCron       = "0 */6 * * *"
)

type Config struct {
	Tracker   TrackerConfig
	Scheduler SchedulerConfig
	Server    ServerConfig
	Tagging   TaggingConfig
	Logging   LoggingConfig
}

type TrackerConfig struct {
	Strategy   string
	SearchTerm string
	Limit      int
	DBPath     string
	APIToken   string
	Timeout    time.Duration
	Enrich     bool
	MaxEnrich  int
}

type SchedulerConfig struct {
	CronSchedule  string
	RetryAttempts int
	RetryBackoff  time.Duration
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type TaggingConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Tracker: TrackerConfig{
			Strategy:   getEnvOrDefault("PH_STRATEGY", DefaultStrategy),
			SearchTerm: getEnvOrDefault("PH_SEARCH_TERM", DefaultSearchTerm),
			Limit:      getIntOrDefault("PH_LIMIT", DefaultLimit),
			DBPath:     getEnvOrDefault("PH_DB_PATH", DefaultDBPath),
			APIToken:   os.Getenv("PRODUCTHUNT_TOKEN"),
			Timeout:    getDurationOrDefault("PH_HTTP_TIMEOUT", 10*time.Second),
			Enrich:     getBoolOrDefault("PH_ENRICH_PRODUCTS", true),
			MaxEnrich:  getIntOrDefault("PH_MAX_ENRICH", 10),
		},
		Scheduler: SchedulerConfig{
			CronSchedule:  getEnvOrDefault("PH_CRON_SCHEDULE", DefaultCron),
			RetryAttempts: getIntOrDefault("PH_RETRY_ATTEMPTS", 2),
			RetryBackoff:  getDurationOrDefault("PH_RETRY_BACKOFF", 2*time.Second),
		},
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", "8080"),
			Host:            getEnvOrDefault("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Tagging: TaggingConfig{
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			BaseURL: getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:   getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
			Timeout: getDurationOrDefault("OPENAI_TIMEOUT", 20*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Tracker.Strategy {
	case "api", "scraper", "auto":
	default:
		return fmt.Errorf("PH_STRATEGY must be api, scraper, or auto (got %q)", c.Tracker.Strategy)
	}
	if c.Tracker.Limit < 1 {
		return fmt.Errorf("PH_LIMIT must be at least 1")
	}
	if c.Scheduler.RetryAttempts < 1 {
		return fmt.Errorf("PH_RETRY_ATTEMPTS must be at least 1")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

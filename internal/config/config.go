// Package config loads the worker configuration from YAML with environment
// overrides for the secrets that should not live in the file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full worker configuration surface.
type Config struct {
	// Worker holds the evaluation loop parameters.
	Worker WorkerConfig `yaml:"worker"`

	Redis    RedisConfig    `yaml:"redis"`
	Postgres PostgresConfig `yaml:"postgres"`
	Quotes   QuotesConfig   `yaml:"quotes"`
	Notify   NotifyConfig   `yaml:"notify"`
	HTTP     HTTPConfig     `yaml:"http"`

	LogLevel string `yaml:"log_level"`
}

// WorkerConfig drives the evaluation engine.
type WorkerConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
	DebounceWindow time.Duration `yaml:"debounce_window"`

	// Tracker selects where cross-detection state lives: "memory"
	// (per-process, reset on restart) or "redis" (shared, survives
	// failover at the cost of a round trip per lookup).
	Tracker string `yaml:"tracker"`

	// TrackerTTL bounds Redis tracker entries; ignored for memory.
	TrackerTTL time.Duration `yaml:"tracker_ttl"`
}

// RedisConfig locates the instance used for the evaluation lock (and the
// shared tracker when enabled).
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PostgresConfig locates the alert store.
type PostgresConfig struct {
	DSN     string        `yaml:"dsn"`
	Timeout time.Duration `yaml:"timeout"`
}

// QuotesConfig configures the brokerage quote source.
type QuotesConfig struct {
	BaseURL   string        `yaml:"base_url"`
	StreamURL string        `yaml:"stream_url"`
	APIKey    string        `yaml:"api_key"`
	RateLimit float64       `yaml:"rate_limit"`
	Burst     int           `yaml:"burst"`
	Timeout   time.Duration `yaml:"timeout"`
}

// NotifyConfig configures the push gateway webhook.
type NotifyConfig struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

// HTTPConfig configures the health/metrics listener.
type HTTPConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// Load reads the YAML file at path, applies defaults and environment
// overrides, and validates the result. An empty path yields a default
// configuration, which is enough for `pricewatch evaluate` dry runs.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = 10 * time.Second
	}
	if c.Worker.LockTTL <= 0 {
		c.Worker.LockTTL = 30 * time.Second
	}
	if c.Worker.DebounceWindow <= 0 {
		c.Worker.DebounceWindow = 5 * time.Minute
	}
	if c.Worker.Tracker == "" {
		c.Worker.Tracker = "memory"
	}
	if c.Worker.TrackerTTL <= 0 {
		c.Worker.TrackerTTL = time.Hour
	}
	if c.Redis.Addr == "" {
		c.Redis.Addr = "localhost:6379"
	}
	if c.Postgres.Timeout <= 0 {
		c.Postgres.Timeout = 5 * time.Second
	}
	if c.Quotes.RateLimit <= 0 {
		c.Quotes.RateLimit = 10
	}
	if c.Quotes.Burst <= 0 {
		c.Quotes.Burst = 5
	}
	if c.Quotes.Timeout <= 0 {
		c.Quotes.Timeout = 10 * time.Second
	}
	if c.Notify.Timeout <= 0 {
		c.Notify.Timeout = 5 * time.Second
	}
	if c.HTTP.ListenAddr == "" {
		c.HTTP.ListenAddr = ":8087"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// applyEnv lets deployment inject secrets without writing them to disk.
func (c *Config) applyEnv() {
	if v := os.Getenv("PRICEWATCH_PG_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("PRICEWATCH_REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("PRICEWATCH_REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	if v := os.Getenv("PRICEWATCH_QUOTES_API_KEY"); v != "" {
		c.Quotes.APIKey = v
	}
}

// Validate rejects configurations the worker cannot run with.
func (c *Config) Validate() error {
	if c.Worker.LockTTL <= c.Worker.PollInterval {
		return fmt.Errorf("lock_ttl %s must exceed poll_interval %s, or a slow cycle loses the lock mid-evaluation", c.Worker.LockTTL, c.Worker.PollInterval)
	}
	switch c.Worker.Tracker {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown tracker kind %q (want memory or redis)", c.Worker.Tracker)
	}
	return nil
}

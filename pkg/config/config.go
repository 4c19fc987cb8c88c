// Package config loads server configuration from a YAML file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the full server configuration.
type Config struct {
	Server struct {
		// Addr is the listen address, e.g. ":8080".
		Addr string `yaml:"addr"`

		// BaseURL is the public address of the service used by the
		// cache warmer to resolve relative URLs.
		BaseURL string `yaml:"baseUrl"`

		// DevMode exposes underlying error messages in API responses.
		DevMode bool `yaml:"devMode"`
	} `yaml:"server"`

	Content struct {
		// DataDir is where the embedded document store keeps its files.
		DataDir string `yaml:"dataDir"`
	} `yaml:"content"`

	Redis struct {
		// Addr enables the shared response store when set, e.g.
		// "localhost:6379". Empty disables Redis entirely.
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Metrics struct {
		// SweepSchedule is a cron expression for the periodic metrics
		// sweep that drops stale per-key counters.
		SweepSchedule string `yaml:"sweepSchedule"`

		// RetentionHours is how long untouched per-key counters are
		// kept before a sweep removes them.
		RetentionHours int `yaml:"retentionHours"`
	} `yaml:"metrics"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Load reads the YAML file at path, applies environment overrides and
// defaults, and validates the result. An empty path skips the file and
// builds the configuration from defaults and environment alone.
func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides file values from JOURNAL_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("JOURNAL_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("JOURNAL_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("JOURNAL_DEV_MODE"); v != "" {
		cfg.Server.DevMode = v == "true" || v == "1"
	}
	if v := os.Getenv("JOURNAL_DATA_DIR"); v != "" {
		cfg.Content.DataDir = v
	}
	if v := os.Getenv("JOURNAL_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("JOURNAL_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("JOURNAL_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	if v := os.Getenv("JOURNAL_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.BaseURL == "" {
		port := cfg.Server.Addr
		if i := strings.LastIndex(port, ":"); i >= 0 {
			port = port[i:]
		}
		cfg.Server.BaseURL = "http://localhost" + port
	}
	if cfg.Content.DataDir == "" {
		cfg.Content.DataDir = "./data"
	}
	if cfg.Metrics.SweepSchedule == "" {
		cfg.Metrics.SweepSchedule = "@hourly"
	}
	if cfg.Metrics.RetentionHours == 0 {
		cfg.Metrics.RetentionHours = 24
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func (c Config) validate() error {
	if !strings.Contains(c.Server.Addr, ":") {
		return fmt.Errorf("server.addr %q must contain a port", c.Server.Addr)
	}
	if !strings.HasPrefix(c.Server.BaseURL, "http://") && !strings.HasPrefix(c.Server.BaseURL, "https://") {
		return fmt.Errorf("server.baseUrl %q must be an http(s) URL", c.Server.BaseURL)
	}
	if c.Metrics.RetentionHours < 0 {
		return fmt.Errorf("metrics.retentionHours must not be negative")
	}
	return nil
}

// Package config loads the TOML configuration for the HTTP plugin host and
// applies its logging section.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
)

// Config describes the TOML configuration.
type Config struct {
	HTTP      HTTPConfig      `toml:"http"`
	Scheduler SchedulerConfig `toml:"scheduler"`
	Logging   LoggingConfig   `toml:"logging"`
}

// HTTPConfig describes the [http] block.
type HTTPConfig struct {
	MaxConcurrent int           `toml:"max-concurrent"`
	Timeout       time.Duration `toml:"timeout"`
	UserAgent     string        `toml:"user-agent"`
	RateLimit     float64       `toml:"rate-limit"` // requests per second, 0 disables
	RateBurst     int           `toml:"rate-burst"`
}

// SchedulerConfig describes the [scheduler] block.
type SchedulerConfig struct {
	TickInterval time.Duration `toml:"tick-interval"`
}

// LoggingConfig describes the [logging] block.
type LoggingConfig struct {
	Level        string `toml:"level"`
	Format       string `toml:"format"`
	ReportCaller bool   `toml:"report-caller"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			MaxConcurrent: 5,
			Timeout:       30 * time.Second,
			UserAgent:     "ecshttp/1.0",
			RateLimit:     0,
			RateBurst:     1,
		},
		Scheduler: SchedulerConfig{
			TickInterval: 16 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load decodes the file at path over the defaults and validates the result
// Keys absent from the file keep their default values
func Load(path string) (*Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		log.WithFields(log.Fields{
			"file": path,
			"keys": undecoded,
		}).Warn("Ignoring unknown configuration keys")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid field at once
func (c *Config) Validate() error {
	var errs error

	if c.HTTP.MaxConcurrent < 1 {
		errs = multierror.Append(errs,
			fmt.Errorf("http.max-concurrent must be at least 1, got %d", c.HTTP.MaxConcurrent))
	}
	if c.HTTP.Timeout < 0 {
		errs = multierror.Append(errs,
			fmt.Errorf("http.timeout must not be negative, got %v", c.HTTP.Timeout))
	}
	if c.HTTP.RateLimit < 0 {
		errs = multierror.Append(errs,
			fmt.Errorf("http.rate-limit must not be negative, got %v", c.HTTP.RateLimit))
	}
	if c.HTTP.RateLimit > 0 && c.HTTP.RateBurst < 1 {
		errs = multierror.Append(errs,
			fmt.Errorf("http.rate-burst must be at least 1 when rate-limit is set, got %d", c.HTTP.RateBurst))
	}
	if c.Scheduler.TickInterval <= 0 {
		errs = multierror.Append(errs,
			fmt.Errorf("scheduler.tick-interval must be positive, got %v", c.Scheduler.TickInterval))
	}
	if c.Logging.Level != "" {
		if _, err := log.ParseLevel(c.Logging.Level); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("logging.level: %w", err))
		}
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = multierror.Append(errs,
			fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format))
	}

	return errs
}

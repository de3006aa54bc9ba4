package events

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds Kafka publisher settings. An empty Brokers list disables publishing.
type Config struct {
	Brokers      []string `toml:"brokers"`
	Topic        string   `toml:"topic"`
	WriteTimeout string   `toml:"write_timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Brokers      string
	Topic        string
	WriteTimeout string
}

// Enabled reports whether any brokers are configured.
func (c *Config) Enabled() bool {
	return len(c.Brokers) > 0
}

// WriteTimeoutDuration returns WriteTimeout as a time.Duration.
func (c *Config) WriteTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Brokers != nil {
		c.Brokers = overlay.Brokers
	}
	if overlay.Topic != "" {
		c.Topic = overlay.Topic
	}
	if overlay.WriteTimeout != "" {
		c.WriteTimeout = overlay.WriteTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.Topic == "" {
		c.Topic = "concierge.tickets"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "5s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Brokers != "" {
		if v := os.Getenv(env.Brokers); v != "" {
			brokers := strings.Split(v, ",")
			c.Brokers = make([]string, 0, len(brokers))
			for _, b := range brokers {
				if trimmed := strings.TrimSpace(b); trimmed != "" {
					c.Brokers = append(c.Brokers, trimmed)
				}
			}
		}
	}
	if env.Topic != "" {
		if v := os.Getenv(env.Topic); v != "" {
			c.Topic = v
		}
	}
	if env.WriteTimeout != "" {
		if v := os.Getenv(env.WriteTimeout); v != "" {
			c.WriteTimeout = v
		}
	}
}

func (c *Config) validate() error {
	if c.Topic == "" {
		return fmt.Errorf("topic required")
	}
	if _, err := time.ParseDuration(c.WriteTimeout); err != nil {
		return fmt.Errorf("invalid write_timeout: %w", err)
	}
	return nil
}

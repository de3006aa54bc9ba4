package llm

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds OpenAI-compatible chat completion settings and the
// per-call budget applied by callers.
type Config struct {
	APIKey      string `toml:"api_key"`
	BaseURL     string `toml:"base_url"`
	Model       string `toml:"model"`
	Timeout     string `toml:"timeout"`
	MaxAttempts int    `toml:"max_attempts"`
}

// Env maps config fields to environment variable names for override injection.
// APIKeyFallback is consulted when APIKey is unset in the environment.
type Env struct {
	APIKey         string
	APIKeyFallback string
	BaseURL        string
	Model          string
	Timeout        string
	MaxAttempts    string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
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
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
}

func (c *Config) loadDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout == "" {
		c.Timeout = "20s"
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 2
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.APIKey != "" {
		if v := os.Getenv(env.APIKey); v != "" {
			c.APIKey = v
		}
	}
	if c.APIKey == "" && env.APIKeyFallback != "" {
		c.APIKey = os.Getenv(env.APIKeyFallback)
	}
	if env.BaseURL != "" {
		if v := os.Getenv(env.BaseURL); v != "" {
			c.BaseURL = v
		}
	}
	if env.Model != "" {
		if v := os.Getenv(env.Model); v != "" {
			c.Model = v
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
	if env.MaxAttempts != "" {
		if v := os.Getenv(env.MaxAttempts); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxAttempts = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.Model == "" {
		return fmt.Errorf("model required")
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1")
	}
	return nil
}

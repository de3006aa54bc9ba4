package workflow

import (
	"fmt"
	"os"
	"strconv"
)

// Default workflow settings.
const (
	DefaultConfidenceThreshold = 0.70
	DefaultMaxMessageLength    = 2000
	DefaultTicketMaxAttempts   = 10
	DefaultMaxConcurrent       = 16
	DefaultSignOff             = "Best regards,\nCustomer Support Team"
	DefaultFallbackResponse    = "Thank you for contacting us. A member of our team will follow up with you shortly."
)

// Config holds routing and formatting parameters for the engine.
type Config struct {
	// ConfidenceThreshold is the minimum confidence for a non-escalation route.
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	// EscalateAtThreshold also escalates when confidence equals the threshold.
	EscalateAtThreshold bool   `toml:"escalate_at_threshold"`
	MaxMessageLength    int    `toml:"max_message_length"`
	TicketMaxAttempts   int    `toml:"ticket_max_attempts"`
	MaxConcurrent       int    `toml:"max_concurrent"`
	SignOff             string `toml:"sign_off"`
	FallbackResponse    string `toml:"fallback_response"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	ConfidenceThreshold string
	EscalateAtThreshold string
	MaxMessageLength    string
	TicketMaxAttempts   string
	MaxConcurrent       string
	SignOff             string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. EscalateAtThreshold
// only applies when the overlay enables it.
func (c *Config) Merge(overlay *Config) {
	if overlay.ConfidenceThreshold != 0 {
		c.ConfidenceThreshold = overlay.ConfidenceThreshold
	}
	if overlay.EscalateAtThreshold {
		c.EscalateAtThreshold = true
	}
	if overlay.MaxMessageLength != 0 {
		c.MaxMessageLength = overlay.MaxMessageLength
	}
	if overlay.TicketMaxAttempts != 0 {
		c.TicketMaxAttempts = overlay.TicketMaxAttempts
	}
	if overlay.MaxConcurrent != 0 {
		c.MaxConcurrent = overlay.MaxConcurrent
	}
	if overlay.SignOff != "" {
		c.SignOff = overlay.SignOff
	}
	if overlay.FallbackResponse != "" {
		c.FallbackResponse = overlay.FallbackResponse
	}
}

func (c *Config) loadDefaults() {
	if c.ConfidenceThreshold == 0 {
		c.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if c.MaxMessageLength == 0 {
		c.MaxMessageLength = DefaultMaxMessageLength
	}
	if c.TicketMaxAttempts == 0 {
		c.TicketMaxAttempts = DefaultTicketMaxAttempts
	}
	if c.MaxConcurrent == 0 {
		c.MaxConcurrent = DefaultMaxConcurrent
	}
	if c.SignOff == "" {
		c.SignOff = DefaultSignOff
	}
	if c.FallbackResponse == "" {
		c.FallbackResponse = DefaultFallbackResponse
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.ConfidenceThreshold != "" {
		if v := os.Getenv(env.ConfidenceThreshold); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.ConfidenceThreshold = f
			}
		}
	}
	if env.EscalateAtThreshold != "" {
		if v := os.Getenv(env.EscalateAtThreshold); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				c.EscalateAtThreshold = b
			}
		}
	}

	setInt := func(name string, dst *int) {
		if name == "" {
			return
		}
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setInt(env.MaxMessageLength, &c.MaxMessageLength)
	setInt(env.TicketMaxAttempts, &c.TicketMaxAttempts)
	setInt(env.MaxConcurrent, &c.MaxConcurrent)

	if env.SignOff != "" {
		if v := os.Getenv(env.SignOff); v != "" {
			c.SignOff = v
		}
	}
}

func (c *Config) validate() error {
	if c.ConfidenceThreshold <= 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in (0, 1]: %v", c.ConfidenceThreshold)
	}
	if c.MaxMessageLength < 1 {
		return fmt.Errorf("max_message_length must be positive")
	}
	if c.TicketMaxAttempts < 1 {
		return fmt.Errorf("ticket_max_attempts must be positive")
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be positive")
	}
	return nil
}

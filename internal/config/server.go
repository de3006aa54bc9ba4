package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost              = "CONCIERGE_SERVER_HOST"
	EnvServerPort              = "CONCIERGE_SERVER_PORT"
	EnvServerReadTimeout       = "CONCIERGE_SERVER_READ_TIMEOUT"
	EnvServerReadHeaderTimeout = "CONCIERGE_SERVER_READ_HEADER_TIMEOUT"
	EnvServerWriteTimeout      = "CONCIERGE_SERVER_WRITE_TIMEOUT"
	EnvServerShutdownTimeout   = "CONCIERGE_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP listener parameters. WriteTimeout bounds a whole
// message submission, so it must cover the worst-case model round trips.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration       { return duration(c.ReadTimeout) }
func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration { return duration(c.ReadHeaderTimeout) }
func (c *ServerConfig) WriteTimeoutDuration() time.Duration      { return duration(c.WriteTimeout) }
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration   { return duration(c.ShutdownTimeout) }

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	mergeString(&c.Host, overlay.Host)
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	mergeString(&c.ReadTimeout, overlay.ReadTimeout)
	mergeString(&c.ReadHeaderTimeout, overlay.ReadHeaderTimeout)
	mergeString(&c.WriteTimeout, overlay.WriteTimeout)
	mergeString(&c.ShutdownTimeout, overlay.ShutdownTimeout)
}

func (c *ServerConfig) loadDefaults() {
	defaultString(&c.Host, "0.0.0.0")
	if c.Port == 0 {
		c.Port = 8080
	}
	defaultString(&c.ReadTimeout, "30s")
	defaultString(&c.ReadHeaderTimeout, "5s")
	defaultString(&c.WriteTimeout, "2m")
	defaultString(&c.ShutdownTimeout, "30s")
}

func (c *ServerConfig) loadEnv() {
	envString(EnvServerHost, &c.Host)
	if v := os.Getenv(EnvServerPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	envString(EnvServerReadTimeout, &c.ReadTimeout)
	envString(EnvServerReadHeaderTimeout, &c.ReadHeaderTimeout)
	envString(EnvServerWriteTimeout, &c.WriteTimeout)
	envString(EnvServerShutdownTimeout, &c.ShutdownTimeout)
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for _, f := range []struct{ name, value string }{
		{"read_timeout", c.ReadTimeout},
		{"read_header_timeout", c.ReadHeaderTimeout},
		{"write_timeout", c.WriteTimeout},
		{"shutdown_timeout", c.ShutdownTimeout},
	} {
		d, err := time.ParseDuration(f.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", f.name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", f.name)
		}
	}
	return nil
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

func defaultString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

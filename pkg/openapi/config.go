package openapi

import (
	"fmt"
	"net/url"
	"os"
	"strings"
)

// Config holds the metadata published in the generated document.
// ServerURL replaces the mount path in the servers list when the API
// is reached through a proxy.
type Config struct {
	Title       string `toml:"title"`
	Description string `toml:"description"`
	ServerURL   string `toml:"server_url"`
}

// ConfigEnv maps config fields to environment variable names for override injection.
type ConfigEnv struct {
	Title       string
	Description string
	ServerURL   string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *ConfigEnv) error {
	if c.Title == "" {
		c.Title = "Concierge API"
	}
	if c.Description == "" {
		c.Description = "Customer support message routing with ticketing and an interaction log."
	}
	if env != nil {
		lookup(env.Title, &c.Title)
		lookup(env.Description, &c.Description)
		lookup(env.ServerURL, &c.ServerURL)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	for dst, src := range map[*string]string{
		&c.Title:       overlay.Title,
		&c.Description: overlay.Description,
		&c.ServerURL:   overlay.ServerURL,
	} {
		if src != "" {
			*dst = src
		}
	}
}

// Server returns the URL to publish, falling back to basePath.
func (c *Config) Server(basePath string) string {
	if c.ServerURL != "" {
		return strings.TrimSuffix(c.ServerURL, "/")
	}
	return basePath
}

func (c *Config) validate() error {
	if c.ServerURL == "" || strings.HasPrefix(c.ServerURL, "/") {
		return nil
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server_url must be an absolute URL or a path: %q", c.ServerURL)
	}
	return nil
}

func lookup(name string, dst *string) {
	if name == "" {
		return
	}
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

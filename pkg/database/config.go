package database

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Supported SQL drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// sqlitePragmas keeps concurrent writers from failing fast and stores
// timestamps in a form modernc can scan back into time.Time.
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"

// Config holds SQL connection parameters. Postgres uses the host fields;
// SQLite uses Path and ignores them.
type Config struct {
	Driver          string `toml:"driver"`
	Path            string `toml:"path"`
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Name            string `toml:"name"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	SSLMode         string `toml:"ssl_mode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
	ConnTimeout     string `toml:"conn_timeout"`
	AutoMigrate     bool   `toml:"auto_migrate"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Driver          string
	Path            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    string
	MaxIdleConns    string
	ConnMaxLifetime string
	ConnTimeout     string
	AutoMigrate     string
}

func (c *Config) ConnMaxLifetimeDuration() time.Duration { return duration(c.ConnMaxLifetime) }
func (c *Config) ConnTimeoutDuration() time.Duration     { return duration(c.ConnTimeout) }

// Dsn returns the connection string for the configured driver. Postgres
// credentials are URL-escaped.
func (c *Config) Dsn() string {
	if c.Driver == DriverSQLite {
		return "file:" + c.Path + "?" + sqlitePragmas
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		if err := c.loadEnv(env); err != nil {
			return err
		}
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay. AutoMigrate can only be
// switched on by an overlay.
func (c *Config) Merge(overlay *Config) {
	for dst, src := range map[*string]string{
		&c.Driver:          overlay.Driver,
		&c.Path:            overlay.Path,
		&c.Host:            overlay.Host,
		&c.Name:            overlay.Name,
		&c.User:            overlay.User,
		&c.Password:        overlay.Password,
		&c.SSLMode:         overlay.SSLMode,
		&c.ConnMaxLifetime: overlay.ConnMaxLifetime,
		&c.ConnTimeout:     overlay.ConnTimeout,
	} {
		if src != "" {
			*dst = src
		}
	}
	for dst, src := range map[*int]int{
		&c.Port:         overlay.Port,
		&c.MaxOpenConns: overlay.MaxOpenConns,
		&c.MaxIdleConns: overlay.MaxIdleConns,
	} {
		if src != 0 {
			*dst = src
		}
	}
	c.AutoMigrate = c.AutoMigrate || overlay.AutoMigrate
}

func (c *Config) loadDefaults() {
	if c.Driver == "" {
		c.Driver = DriverSQLite
	}
	if c.Path == "" {
		c.Path = "concierge.db"
	}
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == "" {
		c.ConnMaxLifetime = "15m"
	}
	if c.ConnTimeout == "" {
		c.ConnTimeout = "5s"
	}
}

func (c *Config) loadEnv(env *Env) error {
	for name, dst := range map[string]*string{
		env.Driver:          &c.Driver,
		env.Path:            &c.Path,
		env.Host:            &c.Host,
		env.Name:            &c.Name,
		env.User:            &c.User,
		env.Password:        &c.Password,
		env.SSLMode:         &c.SSLMode,
		env.ConnMaxLifetime: &c.ConnMaxLifetime,
		env.ConnTimeout:     &c.ConnTimeout,
	} {
		if v := lookup(name); v != "" {
			*dst = v
		}
	}

	for name, dst := range map[string]*int{
		env.Port:         &c.Port,
		env.MaxOpenConns: &c.MaxOpenConns,
		env.MaxIdleConns: &c.MaxIdleConns,
	} {
		v := lookup(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}

	if v := lookup(env.AutoMigrate); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env.AutoMigrate, err)
		}
		c.AutoMigrate = b
	}
	return nil
}

func (c *Config) validate() error {
	switch c.Driver {
	case DriverSQLite:
		if c.Path == "" {
			return fmt.Errorf("path required for sqlite")
		}
	case DriverPostgres:
		if c.Name == "" {
			return fmt.Errorf("name required")
		}
		if c.User == "" {
			return fmt.Errorf("user required")
		}
		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("port out of range: %d", c.Port)
		}
	default:
		return fmt.Errorf("unsupported driver: %q", c.Driver)
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("max_idle_conns %d exceeds max_open_conns %d", c.MaxIdleConns, c.MaxOpenConns)
	}
	for name, v := range map[string]string{
		"conn_max_lifetime": c.ConnMaxLifetime,
		"conn_timeout":      c.ConnTimeout,
	} {
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("invalid %s: %q", name, v)
		}
	}
	return nil
}

func lookup(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// Package config loads service configuration from TOML files, an optional
// .env file, and CONCIERGE_ environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/concierge/internal/workflow"
	"github.com/JaimeStill/concierge/pkg/database"
	"github.com/JaimeStill/concierge/pkg/events"
	"github.com/JaimeStill/concierge/pkg/llm"
	"github.com/JaimeStill/concierge/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"
	DotEnvFile           = ".env"

	EnvConciergeEnv             = "CONCIERGE_ENV"
	EnvConciergeShutdownTimeout = "CONCIERGE_SHUTDOWN_TIMEOUT"
	EnvConciergeVersion         = "CONCIERGE_VERSION"
)

var databaseEnv = &database.Env{
	Driver:          "CONCIERGE_DB_DRIVER",
	Path:            "CONCIERGE_DB_PATH",
	Host:            "CONCIERGE_DB_HOST",
	Port:            "CONCIERGE_DB_PORT",
	Name:            "CONCIERGE_DB_NAME",
	User:            "CONCIERGE_DB_USER",
	Password:        "CONCIERGE_DB_PASSWORD",
	SSLMode:         "CONCIERGE_DB_SSL_MODE",
	MaxOpenConns:    "CONCIERGE_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "CONCIERGE_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "CONCIERGE_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "CONCIERGE_DB_CONN_TIMEOUT",
	AutoMigrate:     "CONCIERGE_DB_AUTO_MIGRATE",
}

var archiveEnv = &storage.Env{
	ContainerName:    "CONCIERGE_ARCHIVE_CONTAINER_NAME",
	ConnectionString: "CONCIERGE_ARCHIVE_CONNECTION_STRING",
}

var eventsEnv = &events.Env{
	Brokers:      "CONCIERGE_EVENTS_BROKERS",
	Topic:        "CONCIERGE_EVENTS_TOPIC",
	WriteTimeout: "CONCIERGE_EVENTS_WRITE_TIMEOUT",
}

var agentEnv = &llm.Env{
	APIKey:         "CONCIERGE_AGENT_API_KEY",
	APIKeyFallback: "OPENAI_API_KEY",
	BaseURL:        "CONCIERGE_AGENT_BASE_URL",
	Model:          "CONCIERGE_AGENT_MODEL",
	Timeout:        "CONCIERGE_AGENT_TIMEOUT",
	MaxAttempts:    "CONCIERGE_AGENT_MAX_ATTEMPTS",
}

var workflowEnv = &workflow.Env{
	ConfidenceThreshold: "CONCIERGE_WORKFLOW_CONFIDENCE_THRESHOLD",
	EscalateAtThreshold: "CONCIERGE_WORKFLOW_ESCALATE_AT_THRESHOLD",
	MaxMessageLength:    "CONCIERGE_WORKFLOW_MAX_MESSAGE_LENGTH",
	TicketMaxAttempts:   "CONCIERGE_WORKFLOW_TICKET_MAX_ATTEMPTS",
	MaxConcurrent:       "CONCIERGE_WORKFLOW_MAX_CONCURRENT",
	SignOff:             "CONCIERGE_WORKFLOW_SIGN_OFF",
}

// Config is the root configuration for the Concierge service.
type Config struct {
	Server          ServerConfig    `toml:"server"`
	Database        database.Config `toml:"database"`
	API             APIConfig       `toml:"api"`
	Agent           llm.Config      `toml:"agent"`
	Workflow        workflow.Config `toml:"workflow"`
	Archive         storage.Config  `toml:"archive"`
	Events          events.Config   `toml:"events"`
	ShutdownTimeout string          `toml:"shutdown_timeout"`
	Version         string          `toml:"version"`
}

// Env returns the CONCIERGE_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvConciergeEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	return duration(c.ShutdownTimeout)
}

// Load reads .env (if present), the base config (if present), applies any
// environment overlay, and finalizes all values. Variables already set in
// the process environment take precedence over .env entries.
func Load() (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", DotEnvFile, err)
	}

	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	mergeString(&c.ShutdownTimeout, overlay.ShutdownTimeout)
	mergeString(&c.Version, overlay.Version)
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.API.Merge(&overlay.API)
	c.Agent.Merge(&overlay.Agent)
	c.Workflow.Merge(&overlay.Workflow)
	c.Archive.Merge(&overlay.Archive)
	c.Events.Merge(&overlay.Events)
}

// Finalize applies defaults, environment overrides, and validation to
// every section.
func (c *Config) Finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Agent.Finalize(agentEnv); err != nil {
		return fmt.Errorf("agent: %w", err)
	}
	if err := c.Workflow.Finalize(workflowEnv); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	if err := c.Archive.Finalize(archiveEnv); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if err := c.Events.Finalize(eventsEnv); err != nil {
		return fmt.Errorf("events: %w", err)
	}
	if err := c.checkShutdown(); err != nil {
		return err
	}
	return c.checkRequestBudget()
}

// checkShutdown keeps the HTTP drain inside the overall shutdown deadline.
func (c *Config) checkShutdown() error {
	if drain, total := c.Server.ShutdownTimeoutDuration(), c.ShutdownTimeoutDuration(); drain > total {
		return fmt.Errorf("server shutdown_timeout %s exceeds shutdown_timeout %s", drain, total)
	}
	return nil
}

// modelCallsPerMessage is the most model calls one submission makes:
// classification plus one generated reply.
const modelCallsPerMessage = 2

// checkRequestBudget rejects a server write timeout that would cut a
// submission off before its model calls could finish retrying.
func (c *Config) checkRequestBudget() error {
	budget := c.Agent.TimeoutDuration() * time.Duration(c.Agent.MaxAttempts*modelCallsPerMessage)
	if write := c.Server.WriteTimeoutDuration(); write <= budget {
		return fmt.Errorf("server write_timeout %s must exceed worst-case model time %s", write, budget)
	}
	return nil
}

func (c *Config) loadDefaults() {
	defaultString(&c.ShutdownTimeout, "30s")
	defaultString(&c.Version, "0.1.0")
}

func (c *Config) loadEnv() {
	envString(EnvConciergeShutdownTimeout, &c.ShutdownTimeout)
	envString(EnvConciergeVersion, &c.Version)
}

func (c *Config) validate() error {
	if d, err := time.ParseDuration(c.ShutdownTimeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid shutdown_timeout: %q", c.ShutdownTimeout)
	}
	return nil
}

func load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	defer f.Close()

	var cfg Config
	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("parse config %s: unknown keys:\n%s", path, strict.String())
		}
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvConciergeEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, archive, events, language
// model client) that domain systems require.
package infrastructure

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/JaimeStill/concierge/internal/config"
	"github.com/JaimeStill/concierge/internal/migrations"
	"github.com/JaimeStill/concierge/pkg/database"
	"github.com/JaimeStill/concierge/pkg/events"
	"github.com/JaimeStill/concierge/pkg/lifecycle"
	"github.com/JaimeStill/concierge/pkg/llm"
	"github.com/JaimeStill/concierge/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Archive is nil when no archive connection string is configured.
type Infrastructure struct {
	Lifecycle   *lifecycle.Coordinator
	Logger      *slog.Logger
	Database    database.System
	Archive     storage.System
	Events      events.System
	Agent       llm.Client
	autoMigrate bool
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := NewLogger(cfg.Env())

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	archive, err := storage.New(&cfg.Archive, logger)
	if err != nil && !errors.Is(err, storage.ErrDisabled) {
		return nil, fmt.Errorf("archive init failed: %w", err)
	}
	if archive == nil {
		logger.Info("interaction archive disabled")
	}

	agent, err := llm.New(&cfg.Agent, logger)
	if err != nil {
		return nil, fmt.Errorf("agent init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle:   lc,
		Logger:      logger,
		Database:    db,
		Archive:     archive,
		Events:      events.New(&cfg.Events, logger),
		Agent:       agent,
		autoMigrate: cfg.Database.AutoMigrate,
	}, nil
}

// NewLogger returns a JSON logger in production and a text logger elsewhere.
func NewLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// Start applies pending migrations when auto-migrate is enabled, then
// registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if i.autoMigrate {
		if err := migrations.Up(i.Database.Connection(), i.Database.Driver()); err != nil {
			return fmt.Errorf("auto-migrate failed: %w", err)
		}
		i.Logger.Info("database migrations applied")
	}

	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if i.Archive != nil {
		if err := i.Archive.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("archive start failed: %w", err)
		}
	}
	if err := i.Events.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("events start failed: %w", err)
	}
	return nil
}

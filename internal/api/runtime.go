package api

import (
	"github.com/JaimeStill/concierge/internal/config"
	"github.com/JaimeStill/concierge/internal/infrastructure"
	"github.com/JaimeStill/concierge/internal/workflow"
	"github.com/JaimeStill/concierge/pkg/llm"
	"github.com/JaimeStill/concierge/pkg/pagination"
)

// Runtime extends Infrastructure with API-specific configuration.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Workflow   workflow.Config
	Boundary   workflow.Boundary
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	logger := infra.Logger.With("module", "api")

	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    logger,
			Database:  infra.Database,
			Archive:   infra.Archive,
			Events:    infra.Events,
			Agent:     infra.Agent,
		},
		Pagination: cfg.API.Pagination,
		Workflow:   cfg.Workflow,
		Boundary: workflow.Boundary{
			Timeout:     cfg.Agent.TimeoutDuration(),
			MaxAttempts: cfg.Agent.MaxAttempts,
			Backoff:     retryBackoff,
			Retryable:   llm.IsRetryable,
		},
	}
}

// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/concierge/internal/config"
	"github.com/JaimeStill/concierge/internal/infrastructure"
	"github.com/JaimeStill/concierge/pkg/middleware"
	"github.com/JaimeStill/concierge/pkg/module"
	"github.com/JaimeStill/concierge/pkg/openapi"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime)

	groups := routeGroups(domain)

	spec := buildSpec(runtime, &cfg.API.OpenAPI, cfg.API.BasePath, cfg.Version)
	if err := checkDocumented(spec, groups); err != nil {
		return nil, err
	}
	specBytes, err := openapi.MarshalJSON(spec)
	if err != nil {
		return nil, fmt.Errorf("marshal openapi spec: %w", err)
	}

	mux := http.NewServeMux()
	registerRoutes(mux, groups)
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(specBytes))

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.Recover(runtime.Logger))
	m.Use(middleware.MaxBytes(cfg.API.MaxBodySizeBytes()))
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}

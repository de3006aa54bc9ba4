package tickets

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/concierge/pkg/handlers"
	"github.com/JaimeStill/concierge/pkg/pagination"
	"github.com/JaimeStill/concierge/pkg/routes"
)

// Handler provides HTTP endpoints for ticket operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "tickets"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for ticket endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/tickets",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/statuses", Handler: h.Statuses},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "PUT", Pattern: "/{id}/status", Handler: h.UpdateStatus},
		},
	}
}

// List returns a paginated list of tickets with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	filters, err := FiltersFromQuery(r.URL.Query())
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Statuses returns the valid ticket statuses in rank order.
func (h *Handler) Statuses(w http.ResponseWriter, r *http.Request) {
	handlers.RespondJSON(w, http.StatusOK, Statuses())
}

// Find returns a single ticket by its six-digit id.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.sys.Find(r.Context(), r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ticket)
}

// UpdateStatus applies a forward status transition from a JSON body.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	cmd, err := handlers.DecodeJSON[StatusCommand](r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	ticket, err := h.sys.UpdateStatus(r.Context(), r.PathValue("id"), cmd.Status)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, ticket)
}

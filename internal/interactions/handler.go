package interactions

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/concierge/pkg/handlers"
	"github.com/JaimeStill/concierge/pkg/pagination"
	"github.com/JaimeStill/concierge/pkg/routes"
)

// DefaultStatsDays is the stats window when no days parameter is given.
const DefaultStatsDays = 7

// Handler provides read-only HTTP endpoints for the interaction log.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "interactions"),
		pagination: pagination,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Routes returns the route group definition for interaction endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/interactions",
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List},
			{Method: "GET", Pattern: "/stats", Handler: h.Stats},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find},
			{Method: "GET", Pattern: "/{id}/archive", Handler: h.Archived},
		},
	}
}

// List returns a paginated list of entries with optional query parameter filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	filters, err := FiltersFromQuery(r.URL.Query())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Stats returns aggregates over the last N days (days query parameter, default 7).
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	days := DefaultStatsDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxStatsDays {
			err = fmt.Errorf("%w: days must be an integer between 1 and %d", ErrInvalidFilter, MaxStatsDays)
			handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
			return
		}
		days = n
	}

	stats, err := h.sys.Stats(r.Context(), LastDays(h.now(), days))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stats)
}

// Find returns a single entry by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	entry, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, entry)
}

// Archived streams the archived JSON copy of an entry.
func (h *Handler) Archived(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	body, err := h.sys.Archived(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, body)
}

package messages

import (
	"log/slog"
	"net/http"

	"github.com/JaimeStill/concierge/internal/workflow"
	"github.com/JaimeStill/concierge/pkg/handlers"
	"github.com/JaimeStill/concierge/pkg/routes"
)

// Handler provides the HTTP endpoint for submitting customer messages.
type Handler struct {
	sys    System
	logger *slog.Logger
}

// NewHandler creates a Handler with the given system and logger.
func NewHandler(sys System, logger *slog.Logger) *Handler {
	return &Handler{
		sys:    sys,
		logger: logger.With("handler", "messages"),
	}
}

// Routes returns the route group definition for message endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/messages",
		Routes: []routes.Route{
			{Method: "POST", Pattern: "", Handler: h.Submit},
		},
	}
}

// Submit runs a message through the workflow. Absorbed stage failures
// still return 200 with the escalation response and recorded errors.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	in, err := handlers.DecodeJSON[workflow.Input](r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	result, err := h.sys.Process(r.Context(), in)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

package workflow

import (
	"context"
	"log/slog"
)

// handler produces the raw outcome for one route.
// A returned error is a stage failure the engine must account for.
type handler interface {
	handle(ctx context.Context, st *State) (Outcome, error)
}

type generateFunc func(ctx context.Context, p Prompt) (string, error)

func (e *Engine) handlerFor(r Route) (handler, error) {
	logger := e.logger.With("route", r.String())

	switch r {
	case RoutePositive:
		return &positiveHandler{generate: e.generate, logger: logger}, nil
	case RouteNegative:
		return &negativeHandler{generate: e.generate, tickets: e.tickets, logger: logger}, nil
	case RouteQuery:
		return &queryHandler{tickets: e.tickets, logger: logger}, nil
	case RouteEscalation:
		return &escalationHandler{}, nil
	default:
		return nil, ErrRouting
	}
}

func logGenerationFallback(ctx context.Context, logger *slog.Logger, err error) {
	logger.WarnContext(ctx, "generation failed, using fallback response", "error", err)
}

package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/concierge/internal/tickets"
)

type negativeHandler struct {
	generate generateFunc
	tickets  TicketStore
	logger   *slog.Logger
}

// handle opens a ticket before generating so the response can cite it.
// Exhausting id allocation fails the pass with ErrTicketAllocation.
// Any other store failure is reported for escalation.
func (h *negativeHandler) handle(ctx context.Context, st *State) (Outcome, error) {
	t, err := h.tickets.Create(ctx, tickets.CreateCommand{
		CustomerID:     st.CustomerID,
		CustomerName:   st.CustomerName,
		MessageContent: st.InputMessage,
		Classification: string(st.Classification),
	})
	if err != nil {
		if errors.Is(err, tickets.ErrAllocationExhausted) {
			return Outcome{}, fail(KindTicketAllocation, fmt.Errorf("%w: %w", ErrTicketAllocation, err))
		}
		return Outcome{}, fail(KindTicketAllocation, err)
	}

	h.logger.InfoContext(ctx, "ticket created", "ticket_id", t.TicketID)

	id := t.TicketID
	status := t.Status
	out := Outcome{
		AgentName:    AgentNegative,
		TicketID:     &id,
		TicketStatus: &status,
	}

	text, err := h.generate(ctx, Prompt{
		System:      negativeSystemPrompt,
		User:        negativeUserPrompt(st, id),
		MaxTokens:   negativeMaxTokens,
		Temperature: responseTemperature,
	})
	if err != nil {
		logGenerationFallback(ctx, h.logger, err)
		out.record(KindGeneration, err)
		text = negativeFallback(st.CustomerName, id)
	}

	if !strings.Contains(text, id) {
		text = fmt.Sprintf("%s\n\nYour ticket number is #%s.", text, id)
	}

	out.Response = text
	return out, nil
}

func negativeFallback(name, ticketID string) string {
	return fmt.Sprintf(
		"We're sorry to hear about your experience, %s. We've created support ticket #%s for your issue, and a member of our team will follow up with you as soon as possible.",
		name, ticketID,
	)
}

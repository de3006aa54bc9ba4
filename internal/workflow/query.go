package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JaimeStill/concierge/internal/tickets"
)

const ticketIDDigits = 6

const ticketLookupUnavailable = "We're sorry, %s. We're unable to look up ticket #%s right now. A member of our support team will review your request and follow up with you shortly."

type queryHandler struct {
	tickets TicketStore
	logger  *slog.Logger
}

// handle answers questions about an existing ticket. A missing id, an
// unknown id, and a ticket owned by another customer all read as not
// found so ownership is never revealed.
func (h *queryHandler) handle(ctx context.Context, st *State) (Outcome, error) {
	out := Outcome{AgentName: AgentQuery}

	id, ok := ExtractTicketID(st.InputMessage)
	if !ok {
		out.Response = fmt.Sprintf(
			"Hello %s, I'd be happy to help you check your ticket status. Could you please provide your ticket number? It should be a 6-digit number that was sent to you when your issue was first reported.",
			st.CustomerName,
		)
		return out, nil
	}

	t, err := h.tickets.Find(ctx, id)
	switch {
	case err == nil && t.CustomerID == st.CustomerID:
		ticketID := t.TicketID
		status := t.Status
		out.TicketID = &ticketID
		out.TicketStatus = &status
		out.Response = statusResponse(st.CustomerName, t)

	case err == nil, errors.Is(err, tickets.ErrNotFound), errors.Is(err, tickets.ErrInvalidID):
		out.Response = fmt.Sprintf(
			"Sorry, %s, I couldn't find a ticket with ID %s. Please double-check the number and try again.",
			st.CustomerName, id,
		)

	default:
		h.logger.WarnContext(ctx, "ticket lookup failed", "ticket_id", id, "error", err)
		out.record(KindTicketLookup, err)
		out.ManualReview = true
		out.Response = fmt.Sprintf(ticketLookupUnavailable, st.CustomerName, id)
	}

	return out, nil
}

func statusResponse(name string, t *tickets.Ticket) string {
	text := fmt.Sprintf(
		"Hello %s, your ticket #%s is currently marked as: %s.",
		name, t.TicketID, t.Status.Label(),
	)
	if t.Status == tickets.StatusInProgress {
		text += " Our team is actively working on it, and you can expect an update within 24-48 hours."
	}
	return text
}

// ExtractTicketID returns the first run of ASCII digits that is exactly
// six long. Longer and shorter runs are skipped, never sliced.
func ExtractTicketID(message string) (string, bool) {
	start := -1
	for i := 0; i <= len(message); i++ {
		digit := i < len(message) && message[i] >= '0' && message[i] <= '9'
		switch {
		case digit && start < 0:
			start = i
		case !digit && start >= 0:
			if i-start == ticketIDDigits {
				return message[start:i], true
			}
			start = -1
		}
	}
	return "", false
}

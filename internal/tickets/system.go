package tickets

import (
	"context"

	"github.com/JaimeStill/concierge/pkg/pagination"
)

// System defines the public contract for ticket domain operations.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Ticket], error)

	// Find returns ErrNotFound when no ticket has the given id.
	Find(ctx context.Context, id string) (*Ticket, error)
	// Create allocates a fresh id and inserts an unresolved ticket.
	// Returns ErrAllocationExhausted when every attempt collides.
	Create(ctx context.Context, cmd CreateCommand) (*Ticket, error)
	// UpdateStatus applies a forward transition. A rejected transition
	// leaves the row untouched and returns ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id string, status Status) (*Ticket, error)
	// AttachResponse records the customer-facing response on the ticket.
	AttachResponse(ctx context.Context, id string, response string) error
}

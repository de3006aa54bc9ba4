package tickets

import (
	"net/url"

	"github.com/JaimeStill/concierge/pkg/query"
	"github.com/JaimeStill/concierge/pkg/repository"
)

const columns = `ticket_id, customer_id, customer_name, message_content, classification,
	status, agent_response, created_at, last_updated, resolved_at`

var projection = query.
	NewProjectionMap("tickets", "t").
	Project("ticket_id", "TicketID").
	Project("customer_id", "CustomerID").
	Project("customer_name", "CustomerName").
	Project("message_content", "MessageContent").
	Project("classification", "Classification").
	Project("status", "Status").
	Project("agent_response", "AgentResponse").
	Project("created_at", "CreatedAt").
	Project("last_updated", "LastUpdated").
	Project("resolved_at", "ResolvedAt")

var defaultSort = query.SortField{
	Field:      "CreatedAt",
	Descending: true,
}

// Filters contains optional filtering criteria for ticket queries.
// Nil fields are ignored. All fields use exact matching.
type Filters struct {
	CustomerID     *string `json:"customer_id,omitempty"`
	Status         *Status `json:"status,omitempty"`
	Classification *string `json:"classification,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("CustomerID", f.CustomerID).
		WhereEquals("Status", f.Status).
		WhereEquals("Classification", f.Classification)
}

// FiltersFromQuery extracts filter values from URL query parameters.
// An unrecognized status is returned as ErrInvalidStatus.
func FiltersFromQuery(values url.Values) (Filters, error) {
	var f Filters

	if c := values.Get("customer_id"); c != "" {
		f.CustomerID = &c
	}

	if s := values.Get("status"); s != "" {
		status, err := ParseStatus(s)
		if err != nil {
			return f, err
		}
		f.Status = &status
	}

	if c := values.Get("classification"); c != "" {
		f.Classification = &c
	}

	return f, nil
}

func scanTicket(s repository.Scanner) (Ticket, error) {
	var t Ticket
	err := s.Scan(
		&t.TicketID,
		&t.CustomerID,
		&t.CustomerName,
		&t.MessageContent,
		&t.Classification,
		&t.Status,
		&t.AgentResponse,
		&t.CreatedAt,
		&t.LastUpdated,
		&t.ResolvedAt,
	)
	if err != nil {
		return t, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.LastUpdated = t.LastUpdated.UTC()
	if t.ResolvedAt != nil {
		utc := t.ResolvedAt.UTC()
		t.ResolvedAt = &utc
	}
	return t, nil
}

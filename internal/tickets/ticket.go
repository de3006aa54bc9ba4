// Package tickets implements the support ticket domain.
// Tickets are keyed by a six-digit identifier that is never reused,
// and their status only moves forward.
package tickets

import (
	"encoding/json"
	"slices"
	"time"
)

// Ticket is a durable record of an unresolved customer issue.
type Ticket struct {
	TicketID       string     `json:"ticket_id"`
	CustomerID     string     `json:"customer_id"`
	CustomerName   string     `json:"customer_name"`
	MessageContent string     `json:"message_content"`
	Classification string     `json:"classification"`
	Status         Status     `json:"status"`
	AgentResponse  *string    `json:"agent_response"`
	CreatedAt      time.Time  `json:"created_at"`
	LastUpdated    time.Time  `json:"last_updated"`
	ResolvedAt     *time.Time `json:"resolved_at"`
}

// CreateCommand carries the data needed to open a new ticket.
type CreateCommand struct {
	CustomerID     string `json:"customer_id"`
	CustomerName   string `json:"customer_name"`
	MessageContent string `json:"message_content"`
	Classification string `json:"classification"`
}

// StatusCommand carries a requested status transition.
type StatusCommand struct {
	Status Status `json:"status"`
}

// Status is the lifecycle state of a ticket.
type Status string

// Ticket statuses in rank order.
const (
	StatusUnresolved Status = "unresolved"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

var statuses = []Status{
	StatusUnresolved,
	StatusInProgress,
	StatusResolved,
}

// Statuses returns the valid statuses in rank order.
func Statuses() []Status {
	return slices.Clone(statuses)
}

// ParseStatus validates a string as a known status.
// Returns ErrInvalidStatus if the value is not recognized.
func ParseStatus(s string) (Status, error) {
	v := Status(s)
	if !slices.Contains(statuses, v) {
		return "", ErrInvalidStatus
	}
	return v, nil
}

// UnmarshalJSON validates that the decoded string is a known status.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Rank orders statuses; unknown values rank -1.
func (s Status) Rank() int {
	return slices.Index(statuses, s)
}

// CanTransition reports whether moving from s to next is a forward move.
func (s Status) CanTransition(next Status) bool {
	return s.Rank() >= 0 && next.Rank() > s.Rank()
}

// Predecessors returns every status that may legally move to s.
func (s Status) Predecessors() []Status {
	r := s.Rank()
	if r <= 0 {
		return nil
	}
	return slices.Clone(statuses[:r])
}

// Label is the customer-facing name of the status.
func (s Status) Label() string {
	switch s {
	case StatusUnresolved:
		return "Unresolved"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	default:
		return string(s)
	}
}

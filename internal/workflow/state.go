package workflow

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/concierge/internal/tickets"
)

// Classification is the label assigned to a message.
type Classification string

// Classification labels. Unknown is never produced by a successful
// classifier call with a recognized label.
const (
	ClassPositive Classification = "positive_feedback"
	ClassNegative Classification = "negative_feedback"
	ClassQuery    Classification = "query"
	ClassUnknown  Classification = "unknown"
)

// ParseClassification normalizes s and maps anything outside the three
// task categories to ClassUnknown.
func ParseClassification(s string) Classification {
	switch c := Classification(strings.ToLower(strings.TrimSpace(s))); c {
	case ClassPositive, ClassNegative, ClassQuery:
		return c
	default:
		return ClassUnknown
	}
}

// ErrorKind names the stage that recorded an error.
type ErrorKind string

// Stage error kinds.
const (
	KindValidation       ErrorKind = "validation"
	KindClassification   ErrorKind = "classification"
	KindRouting          ErrorKind = "routing"
	KindGeneration       ErrorKind = "generation"
	KindTicketAllocation ErrorKind = "ticket_allocation"
	KindTicketLookup     ErrorKind = "ticket_lookup"
	KindTicketUpdate     ErrorKind = "ticket_update"
	KindLogWrite         ErrorKind = "log_write"
)

// Agent names recorded as the handling path.
const (
	AgentPositive   = "PositiveFeedbackAgent"
	AgentNegative   = "NegativeFeedbackAgent"
	AgentQuery      = "QueryAgent"
	AgentEscalation = "EscalationAgent"
)

// StageError is an absorbed failure recorded on the state.
type StageError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// Input is a single customer message.
type Input struct {
	Message      string `json:"message"`
	CustomerID   string `json:"customer_id"`
	CustomerName string `json:"customer_name"`
}

// State is the per-request record threaded through one pass.
// It is discarded once the interaction is logged.
type State struct {
	InputMessage     string
	CustomerID       string
	CustomerName     string
	Classification   Classification
	Confidence       float64
	ExtractedTopic   string
	TicketID         *string
	TicketStatus     *tickets.Status
	Response         string
	AgentName        string
	ManualReview     bool
	Errors           []StageError
	StartedAt        time.Time
	ProcessingTimeMS int64
	InteractionID    *uuid.UUID
}

func newState(in Input, startedAt time.Time) *State {
	return &State{
		InputMessage:   in.Message,
		CustomerID:     in.CustomerID,
		CustomerName:   in.CustomerName,
		Classification: ClassUnknown,
		Errors:         []StageError{},
		StartedAt:      startedAt,
	}
}

func (s *State) record(kind ErrorKind, err error) {
	s.Errors = append(s.Errors, StageError{Kind: kind, Message: err.Error()})
}

// Outcome is what a handler produces. The engine applies it to the
// state exactly once; Response is raw text that the formatter finalizes.
type Outcome struct {
	Response     string
	AgentName    string
	TicketID     *string
	TicketStatus *tickets.Status
	ManualReview bool
	Errors       []StageError
}

func (o *Outcome) record(kind ErrorKind, err error) {
	o.Errors = append(o.Errors, StageError{Kind: kind, Message: err.Error()})
}

// Result is the caller-facing view of a completed pass.
type Result struct {
	InteractionID    *uuid.UUID      `json:"interaction_id,omitempty"`
	Classification   Classification  `json:"classification"`
	Confidence       float64         `json:"confidence"`
	ExtractedTopic   string          `json:"extracted_topic"`
	Response         string          `json:"response"`
	TicketID         *string         `json:"ticket_id,omitempty"`
	TicketStatus     *tickets.Status `json:"ticket_status,omitempty"`
	ProcessingTimeMS int64           `json:"processing_time_ms"`
	AgentName        string          `json:"agent_name"`
	ManualReview     bool            `json:"manual_review"`
	Errors           []StageError    `json:"errors"`
}

func (s *State) result() *Result {
	return &Result{
		InteractionID:    s.InteractionID,
		Classification:   s.Classification,
		Confidence:       s.Confidence,
		ExtractedTopic:   s.ExtractedTopic,
		Response:         s.Response,
		TicketID:         s.TicketID,
		TicketStatus:     s.TicketStatus,
		ProcessingTimeMS: s.ProcessingTimeMS,
		AgentName:        s.AgentName,
		ManualReview:     s.ManualReview,
		Errors:           s.Errors,
	}
}

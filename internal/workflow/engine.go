package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JaimeStill/concierge/internal/interactions"
	"github.com/JaimeStill/concierge/internal/tickets"
)

// TicketStore is the subset of the ticket domain the engine uses.
type TicketStore interface {
	Create(ctx context.Context, cmd tickets.CreateCommand) (*tickets.Ticket, error)
	Find(ctx context.Context, id string) (*tickets.Ticket, error)
	AttachResponse(ctx context.Context, id string, response string) error
}

// InteractionLog records one entry per completed pass.
type InteractionLog interface {
	Append(ctx context.Context, entry interactions.Entry) (*interactions.Entry, error)
}

// Runtime holds the dependencies for an Engine.
type Runtime struct {
	Classifier   Classifier
	Generator    Generator
	Tickets      TicketStore
	Interactions InteractionLog
	Boundary     Boundary
	Logger       *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Engine runs the support pipeline. It is safe for concurrent use;
// each Run owns its own State.
type Engine struct {
	cfg          Config
	classifier   Classifier
	generator    Generator
	tickets      TicketStore
	interactions InteractionLog
	boundary     Boundary
	formatter    Formatter
	logger       *slog.Logger
	now          func() time.Time
}

// New creates an Engine from a finalized Config.
func New(cfg Config, rt *Runtime) *Engine {
	logger := rt.Logger.With("system", "workflow")

	boundary := rt.Boundary
	if boundary.Logger == nil {
		boundary.Logger = logger
	}

	now := rt.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		cfg:          cfg,
		classifier:   rt.Classifier,
		generator:    rt.Generator,
		tickets:      rt.Tickets,
		interactions: rt.Interactions,
		boundary:     boundary,
		formatter:    Formatter{SignOff: cfg.SignOff, Fallback: cfg.FallbackResponse},
		logger:       logger,
		now:          now,
	}
}

// Run processes one message end to end. Every stage failure is absorbed
// into an escalation response and recorded on the result, except ticket
// allocation exhaustion: that pass is still logged, then its error is
// returned alongside the result.
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	st := newState(in, e.now())

	out, route, fatal := e.process(ctx, st)
	e.apply(st, out)
	st.ProcessingTimeMS = e.now().Sub(st.StartedAt).Milliseconds()

	// Persistence outlives a cancelled request.
	persistCtx := context.WithoutCancel(ctx)
	if route == RouteNegative && st.TicketID != nil {
		e.attachResponse(persistCtx, st)
	}
	e.logInteraction(persistCtx, st)

	e.logger.InfoContext(ctx, "workflow complete",
		"customer_id", st.CustomerID,
		"classification", st.Classification,
		"agent", st.AgentName,
		"manual_review", st.ManualReview,
		"errors", len(st.Errors),
		"processing_time_ms", st.ProcessingTimeMS,
	)

	return st.result(), fatal
}

func (e *Engine) process(ctx context.Context, st *State) (Outcome, Route, error) {
	if err := e.validate(st); err != nil {
		e.logger.WarnContext(ctx, "message validation failed", "error", err)
		st.record(KindValidation, err)
		return escalationOutcome(st.CustomerName), RouteEscalation, nil
	}

	verdict, err := Call(ctx, e.boundary, "classify", func(ctx context.Context) (Verdict, error) {
		return e.classifier.Classify(ctx, st.InputMessage, Customer{ID: st.CustomerID, Name: st.CustomerName})
	})
	if err != nil {
		e.logger.WarnContext(ctx, "classification failed", "error", err)
		st.record(KindClassification, err)
		return escalationOutcome(st.CustomerName), RouteEscalation, nil
	}

	st.Classification = verdict.Classification
	st.Confidence = verdict.Confidence
	st.ExtractedTopic = verdict.ExtractedTopic

	e.logger.InfoContext(ctx, "classification complete",
		"classification", st.Classification,
		"confidence", st.Confidence,
		"topic", st.ExtractedTopic,
	)

	route, err := SelectRoute(st.Classification, st.Confidence, e.cfg)
	if err != nil {
		st.record(KindRouting, err)
	}

	h, err := e.handlerFor(route)
	if err != nil {
		st.record(KindRouting, err)
		return escalationOutcome(st.CustomerName), RouteEscalation, nil
	}

	e.logger.InfoContext(ctx, "route selected", "route", route.String())

	out, err := h.handle(ctx, st)
	if err != nil {
		kind, cause := KindRouting, err
		var sf *StageFailure
		if errors.As(err, &sf) {
			kind, cause = sf.Kind, sf.Err
		}

		e.logger.WarnContext(ctx, "handler failed, escalating",
			"route", route.String(),
			"kind", kind,
			"error", cause,
		)
		st.record(kind, cause)

		if errors.Is(err, ErrTicketAllocation) {
			return escalationOutcome(st.CustomerName), RouteEscalation, cause
		}
		return escalationOutcome(st.CustomerName), RouteEscalation, nil
	}

	return out, route, nil
}

func (e *Engine) validate(st *State) error {
	msg := strings.TrimSpace(st.InputMessage)
	if msg == "" {
		return fmt.Errorf("%w: message is empty", ErrValidation)
	}
	if n := utf8.RuneCountInString(msg); n > e.cfg.MaxMessageLength {
		return fmt.Errorf("%w: message is %d characters, limit is %d", ErrValidation, n, e.cfg.MaxMessageLength)
	}
	if strings.TrimSpace(st.CustomerID) == "" {
		return fmt.Errorf("%w: customer id is required", ErrValidation)
	}
	if strings.TrimSpace(st.CustomerName) == "" {
		return fmt.Errorf("%w: customer name is required", ErrValidation)
	}
	return nil
}

func (e *Engine) apply(st *State, out Outcome) {
	st.AgentName = out.AgentName
	st.TicketID = out.TicketID
	st.TicketStatus = out.TicketStatus
	st.ManualReview = st.ManualReview || out.ManualReview
	st.Errors = append(st.Errors, out.Errors...)
	st.Response = e.formatter.Format(out.Response)
}

func (e *Engine) generate(ctx context.Context, p Prompt) (string, error) {
	return Call(ctx, e.boundary, "generate", func(ctx context.Context) (string, error) {
		return e.generator.Generate(ctx, p)
	})
}

func (e *Engine) logInteraction(ctx context.Context, st *State) {
	saved, err := e.interactions.Append(ctx, toEntry(st))
	if saved != nil {
		id := saved.ID
		st.InteractionID = &id
	}
	if err != nil {
		e.logger.ErrorContext(ctx, "interaction log write failed", "error", err)
		st.record(KindLogWrite, err)
	}
}

func (e *Engine) attachResponse(ctx context.Context, st *State) {
	if err := e.tickets.AttachResponse(ctx, *st.TicketID, st.Response); err != nil {
		e.logger.WarnContext(ctx, "ticket response update failed",
			"ticket_id", *st.TicketID,
			"error", err,
		)
		st.record(KindTicketUpdate, err)
	}
}

func toEntry(st *State) interactions.Entry {
	records := make([]interactions.ErrorRecord, len(st.Errors))
	for i, se := range st.Errors {
		records[i] = interactions.ErrorRecord{Kind: string(se.Kind), Message: se.Message}
	}

	return interactions.Entry{
		CustomerID:       st.CustomerID,
		InputMessage:     st.InputMessage,
		Classification:   string(st.Classification),
		Confidence:       st.Confidence,
		ExtractedTopic:   st.ExtractedTopic,
		TicketID:         st.TicketID,
		AgentPath:        st.AgentName,
		Response:         st.Response,
		ProcessingTimeMS: st.ProcessingTimeMS,
		ManualReview:     st.ManualReview,
		Errors:           records,
		Timestamp:        st.StartedAt.UTC(),
	}
}

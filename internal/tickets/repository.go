package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JaimeStill/concierge/pkg/events"
	"github.com/JaimeStill/concierge/pkg/pagination"
	"github.com/JaimeStill/concierge/pkg/query"
	"github.com/JaimeStill/concierge/pkg/repository"
)

// Event types published after a committed change.
const (
	EventCreated       = "ticket.created"
	EventStatusChanged = "ticket.status_changed"
)

// DefaultMaxAttempts bounds id allocation when no limit is configured.
const DefaultMaxAttempts = 10

// StatusChange is the payload of a ticket.status_changed event.
type StatusChange struct {
	Ticket Ticket `json:"ticket"`
	From   Status `json:"from"`
	To     Status `json:"to"`
}

// Option configures a ticket repository.
type Option func(*repo)

// WithIDGenerator replaces the random candidate generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(r *repo) { r.ids = gen }
}

// WithMaxAttempts bounds the number of allocation attempts per Create.
func WithMaxAttempts(n int) Option {
	return func(r *repo) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *repo) { r.now = now }
}

// WithPublisher publishes lifecycle events after each committed change.
func WithPublisher(p events.Publisher) Option {
	return func(r *repo) { r.publisher = p }
}

type repo struct {
	db          *sql.DB
	logger      *slog.Logger
	pagination  pagination.Config
	publisher   events.Publisher
	ids         IDGenerator
	maxAttempts int
	now         func() time.Time
}

// New creates a ticket repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
	opts ...Option,
) System {
	r := &repo{
		db:          db,
		logger:      logger.With("system", "tickets"),
		pagination:  pagination,
		ids:         RandomID,
		maxAttempts: DefaultMaxAttempts,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Ticket], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count tickets: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	tickets, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanTicket)
	if err != nil {
		return nil, fmt.Errorf("query tickets: %w", err)
	}

	result := pagination.NewPageResult(tickets, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id string) (*Ticket, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}

	q, args := query.NewBuilder(projection).BuildSingle("TicketID", id)

	t, err := repository.QueryOne(ctx, r.db, q, args, scanTicket)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, errCollision)
	}
	return &t, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Ticket, error) {
	if strings.TrimSpace(cmd.CustomerID) == "" ||
		strings.TrimSpace(cmd.CustomerName) == "" ||
		strings.TrimSpace(cmd.MessageContent) == "" {
		return nil, ErrInvalidCommand
	}

	q := `
		INSERT INTO tickets(ticket_id, customer_id, customer_name, message_content,
			classification, status, created_at, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + columns

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		id := r.ids()
		now := r.now()

		t, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Ticket, error) {
			taken, err := repository.Exists(ctx, tx, "SELECT 1 FROM tickets WHERE ticket_id = $1", id)
			if err != nil {
				return Ticket{}, err
			}
			if taken {
				return Ticket{}, errCollision
			}

			args := []any{
				id, cmd.CustomerID, cmd.CustomerName, cmd.MessageContent,
				cmd.Classification, string(StatusUnresolved), now, now,
			}
			return repository.QueryOne(ctx, tx, q, args, scanTicket)
		})

		if errors.Is(err, errCollision) || repository.IsDuplicate(err) {
			r.logger.WarnContext(ctx, "ticket id collision", "ticket_id", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create ticket: %w", err)
		}

		r.logger.InfoContext(ctx, "ticket created", "ticket_id", t.TicketID, "customer_id", t.CustomerID)
		r.publish(ctx, events.Event{Type: EventCreated, Key: t.TicketID, OccurredAt: now, Payload: t})
		return &t, nil
	}

	r.logger.ErrorContext(ctx, "ticket id allocation exhausted", "attempts", r.maxAttempts)
	return nil, fmt.Errorf("%w after %d attempts", ErrAllocationExhausted, r.maxAttempts)
}

func (r *repo) UpdateStatus(ctx context.Context, id string, status Status) (*Ticket, error) {
	if !ValidID(id) {
		return nil, ErrInvalidID
	}
	if status.Rank() < 0 {
		return nil, ErrInvalidStatus
	}

	now := r.now()
	var resolvedAt *time.Time
	if status == StatusResolved {
		resolvedAt = &now
	}

	var from Status

	t, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Ticket, error) {
		findQ, findArgs := query.NewBuilder(projection).BuildSingle("TicketID", id)
		current, err := repository.QueryOne(ctx, tx, findQ, findArgs, scanTicket)
		if err != nil {
			return Ticket{}, repository.MapError(err, ErrNotFound, errCollision)
		}
		if !current.Status.CanTransition(status) {
			return Ticket{}, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, current.Status, status)
		}
		from = current.Status

		q, args := updateStatusQuery(id, status, now, resolvedAt)
		updated, err := repository.QueryOne(ctx, tx, q, args, scanTicket)
		if errors.Is(err, sql.ErrNoRows) {
			return Ticket{}, fmt.Errorf("%w: %s changed concurrently", ErrInvalidTransition, id)
		}
		return updated, err
	})

	if err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "ticket status updated", "ticket_id", id, "from", from, "to", status)
	r.publish(ctx, events.Event{
		Type:       EventStatusChanged,
		Key:        id,
		OccurredAt: now,
		Payload:    StatusChange{Ticket: t, From: from, To: status},
	})
	return &t, nil
}

// updateStatusQuery restricts the UPDATE to legal predecessors of status
// so a concurrent transition cannot be overwritten.
func updateStatusQuery(id string, status Status, now time.Time, resolvedAt *time.Time) (string, []any) {
	preds := status.Predecessors()
	args := []any{string(status), now, resolvedAt, id}

	placeholders := make([]string, len(preds))
	for i, p := range preds {
		args = append(args, string(p))
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	q := fmt.Sprintf(`
		UPDATE tickets
		SET status = $1, last_updated = $2, resolved_at = $3
		WHERE ticket_id = $4 AND status IN (%s)
		RETURNING %s`, strings.Join(placeholders, ", "), columns)

	return q, args
}

func (r *repo) AttachResponse(ctx context.Context, id string, response string) error {
	if !ValidID(id) {
		return ErrInvalidID
	}

	err := repository.InTx(ctx, r.db, func(tx *sql.Tx) error {
		return repository.ExecExpectOne(
			ctx, tx,
			"UPDATE tickets SET agent_response = $1, last_updated = $2 WHERE ticket_id = $3",
			response, r.now(), id,
		)
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, errCollision)
	}

	r.logger.DebugContext(ctx, "ticket response attached", "ticket_id", id)
	return nil
}

func (r *repo) publish(ctx context.Context, e events.Event) {
	if r.publisher == nil {
		return
	}
	if err := r.publisher.Publish(ctx, e); err != nil {
		r.logger.WarnContext(ctx, "ticket event publish failed", "type", e.Type, "ticket_id", e.Key, "error", err)
	}
}

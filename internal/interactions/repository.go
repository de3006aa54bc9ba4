package interactions

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/concierge/pkg/pagination"
	"github.com/JaimeStill/concierge/pkg/query"
	"github.com/JaimeStill/concierge/pkg/repository"
	"github.com/JaimeStill/concierge/pkg/storage"
)

// Option configures an interaction repository.
type Option func(*repo)

// WithArchive copies every appended entry to blob storage.
func WithArchive(store storage.System) Option {
	return func(r *repo) { r.archive = store }
}

// WithClock replaces the wall clock used when an entry has no timestamp.
func WithClock(now func() time.Time) Option {
	return func(r *repo) { r.now = now }
}

type repo struct {
	db         *sql.DB
	archive    storage.System
	logger     *slog.Logger
	pagination pagination.Config
	now        func() time.Time
}

// New creates an interaction repository implementing the System interface.
func New(
	db *sql.DB,
	logger *slog.Logger,
	pagination pagination.Config,
	opts ...Option,
) System {
	r := &repo{
		db:         db,
		logger:     logger.With("system", "interactions"),
		pagination: pagination,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) Append(ctx context.Context, entry Entry) (*Entry, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = r.now()
	}
	entry.Timestamp = entry.Timestamp.UTC()
	if entry.Errors == nil {
		entry.Errors = []ErrorRecord{}
	}

	rawErrors, err := json.Marshal(entry.Errors)
	if err != nil {
		return nil, fmt.Errorf("%w: encode errors: %v", ErrLogWrite, err)
	}

	q := `
		INSERT INTO interactions(id, customer_id, input_message, classification, confidence,
			extracted_topic, ticket_id, agent_path, response, processing_time_ms,
			manual_review, errors, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	args := []any{
		entry.ID.String(), entry.CustomerID, entry.InputMessage, entry.Classification, entry.Confidence,
		entry.ExtractedTopic, entry.TicketID, entry.AgentPath, entry.Response, entry.ProcessingTimeMS,
		entry.ManualReview, string(rawErrors), entry.Timestamp,
	}

	err = repository.InTx(ctx, r.db, func(tx *sql.Tx) error {
		return repository.ExecExpectOne(ctx, tx, q, args...)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLogWrite, err)
	}

	r.logger.DebugContext(ctx, "interaction logged", "id", entry.ID, "classification", entry.Classification)

	if err := r.archiveEntry(ctx, entry); err != nil {
		r.logger.WarnContext(ctx, "interaction archive failed", "id", entry.ID, "error", err)
		return &entry, fmt.Errorf("%w: %w", ErrLogWrite, err)
	}

	return &entry, nil
}

// archiveEntry uploads entry once; an existing blob is left untouched.
func (r *repo) archiveEntry(ctx context.Context, entry Entry) error {
	if r.archive == nil {
		return nil
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%w: encode entry: %v", ErrArchive, err)
	}

	err = r.archive.Upload(ctx, ArchiveKey(entry), bytes.NewReader(data), "application/json")
	if err != nil && !errors.Is(err, storage.ErrExists) {
		return fmt.Errorf("%w: %v", ErrArchive, err)
	}
	return nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Entry, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id.String())

	e, err := repository.QueryOne(ctx, r.db, q, args, scanEntry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find interaction: %w", err)
	}
	return &e, nil
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Entry], error) {
	page.Normalize(r.pagination)

	qb := query.NewBuilder(projection, defaultSort)
	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count interactions: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	entries, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanEntry)
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}

	result := pagination.NewPageResult(entries, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Stats(ctx context.Context, window Window) (*Stats, error) {
	since, until := window.Since.UTC(), window.Until.UTC()
	scoped := func() *query.Builder {
		return query.NewBuilder(projection).
			WhereSince("Timestamp", since).
			WhereBefore("Timestamp", until)
	}

	stats := &Stats{
		Window:           Window{Since: since, Until: until},
		ByClassification: make(map[string]int),
	}

	aggSQL, aggArgs := scoped().BuildAggregate(
		"COUNT(*)",
		"COALESCE(AVG({Confidence}), 0)",
		"COALESCE(AVG(CAST({ProcessingTimeMS} AS DOUBLE PRECISION)), 0)",
		"COALESCE(SUM(CASE WHEN {ManualReview} THEN 1 ELSE 0 END), 0)",
	)
	err := r.db.QueryRowContext(ctx, aggSQL, aggArgs...).Scan(
		&stats.Total,
		&stats.AverageConfidence,
		&stats.AverageProcessingMS,
		&stats.ManualReviewCount,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregate interactions: %w", err)
	}

	groupSQL, groupArgs := scoped().BuildGroupCount("Classification")
	type bucket struct {
		label string
		count int
	}
	buckets, err := repository.QueryMany(ctx, r.db, groupSQL, groupArgs, func(s repository.Scanner) (bucket, error) {
		var b bucket
		err := s.Scan(&b.label, &b.count)
		return b, err
	})
	if err != nil {
		return nil, fmt.Errorf("group interactions: %w", err)
	}
	for _, b := range buckets {
		stats.ByClassification[b.label] = b.count
	}

	return stats, nil
}

func (r *repo) Archived(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	if r.archive == nil {
		return nil, ErrArchiveDisabled
	}

	entry, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	body, err := r.archive.Download(ctx, ArchiveKey(*entry))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s not archived", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchive, err)
	}
	return body, nil
}

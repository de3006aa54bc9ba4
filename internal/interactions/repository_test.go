package interactions_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/concierge/internal/dbtest"
	"github.com/JaimeStill/concierge/internal/interactions"
	"github.com/JaimeStill/concierge/pkg/lifecycle"
	"github.com/JaimeStill/concierge/pkg/pagination"
	"github.com/JaimeStill/concierge/pkg/storage"
)

func ptr[T any](v T) *T { return &v }

var testPagination = pagination.Config{DefaultPageSize: 20, MaxPageSize: 100}

type memoryStore struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	uploadErr error
	uploads   int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{blobs: make(map[string][]byte)}
}

func (m *memoryStore) Start(*lifecycle.Coordinator) error { return nil }

func (m *memoryStore) Upload(_ context.Context, key string, r io.Reader, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.uploadErr != nil {
		return m.uploadErr
	}
	if _, ok := m.blobs[key]; ok {
		return storage.ErrExists
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.blobs[key] = data
	m.uploads++
	return nil
}

func (m *memoryStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func newTestSystem(t *testing.T, opts ...interactions.Option) interactions.System {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return interactions.New(dbtest.Open(t), logger, testPagination, opts...)
}

func sampleEntry(ts time.Time) interactions.Entry {
	return interactions.Entry{
		CustomerID:       "cust_001",
		InputMessage:     "Could you check the status of ticket 650932?",
		Classification:   "query",
		Confidence:       0.92,
		ExtractedTopic:   "ticket status",
		TicketID:         ptr("650932"),
		AgentPath:        "QueryAgent",
		Response:         "Your ticket #650932 is currently marked as: Resolved.",
		ProcessingTimeMS: 120,
		Timestamp:        ts,
	}
}

func TestAppendAndFind(t *testing.T) {
	sys := newTestSystem(t)
	ctx := context.Background()
	ts := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	entry := sampleEntry(ts)
	entry.Errors = []interactions.ErrorRecord{{Kind: "ticket_update", Message: "boom"}}

	stored, err := sys.Append(ctx, entry)
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if stored.ID == uuid.Nil {
		t.Fatal("Append did not assign an id")
	}

	found, err := sys.Find(ctx, stored.ID)
	if err != nil {
		t.Fatalf("Find error: %v", err)
	}

	if found.CustomerID != entry.CustomerID || found.Classification != "query" {
		t.Errorf("found = %+v", found)
	}
	if found.TicketID == nil || *found.TicketID != "650932" {
		t.Errorf("TicketID = %v, want 650932", found.TicketID)
	}
	if math.Abs(found.Confidence-0.92) > 1e-9 {
		t.Errorf("Confidence = %v, want 0.92", found.Confidence)
	}
	if !found.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", found.Timestamp, ts)
	}
	if len(found.Errors) != 1 || found.Errors[0].Kind != "ticket_update" {
		t.Errorf("Errors = %+v", found.Errors)
	}
}

func TestAppendDefaults(t *testing.T) {
	fixed := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	sys := newTestSystem(t, interactions.WithClock(func() time.Time { return fixed }))

	entry := sampleEntry(time.Time{})
	entry.TicketID = nil

	stored, err := sys.Append(context.Background(), entry)
	if err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if !stored.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", stored.Timestamp, fixed)
	}

	found, _ := sys.Find(context.Background(), stored.ID)
	if found.TicketID != nil {
		t.Errorf("TicketID = %v, want nil", found.TicketID)
	}
	if found.Errors == nil || len(found.Errors) != 0 {
		t.Errorf("Errors = %#v, want empty slice", found.Errors)
	}
}

func TestFindNotFound(t *testing.T) {
	sys := newTestSystem(t)
	if _, err := sys.Find(context.Background(), uuid.New()); !errors.Is(err, interactions.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	sys := newTestSystem(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	seed := []struct {
		customer       string
		classification string
		manual         bool
		offset         time.Duration
	}{
		{"cust_a", "query", false, 0},
		{"cust_a", "negative_feedback", false, 24 * time.Hour},
		{"cust_b", "unknown", true, 48 * time.Hour},
		{"cust_b", "positive_feedback", false, 72 * time.Hour},
	}
	for _, s := range seed {
		e := sampleEntry(base.Add(s.offset))
		e.CustomerID = s.customer
		e.Classification = s.classification
		e.ManualReview = s.manual
		if _, err := sys.Append(ctx, e); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	tests := []struct {
		name    string
		filters interactions.Filters
		want    int
	}{
		{"all", interactions.Filters{}, 4},
		{"by customer", interactions.Filters{CustomerID: ptr("cust_b")}, 2},
		{"by classification", interactions.Filters{Classification: ptr("query")}, 1},
		{"manual review", interactions.Filters{ManualReview: ptr(true)}, 1},
		{"since", interactions.Filters{Since: ptr(base.Add(24 * time.Hour))}, 3},
		{"until", interactions.Filters{Until: ptr(base.Add(24 * time.Hour))}, 1},
		{"range", interactions.Filters{Since: ptr(base.Add(time.Hour)), Until: ptr(base.Add(60 * time.Hour))}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := sys.List(ctx, pagination.PageRequest{}, tt.filters)
			if err != nil {
				t.Fatalf("List error: %v", err)
			}
			if result.Total != tt.want {
				t.Errorf("total = %d, want %d", result.Total, tt.want)
			}
		})
	}

	t.Run("newest first", func(t *testing.T) {
		result, _ := sys.List(ctx, pagination.PageRequest{}, interactions.Filters{})
		if result.Data[0].Classification != "positive_feedback" {
			t.Errorf("first = %q, want newest positive_feedback", result.Data[0].Classification)
		}
	})
}

func TestStats(t *testing.T) {
	sys := newTestSystem(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	seed := []struct {
		classification string
		confidence     float64
		ms             int64
		manual         bool
		age            time.Duration
	}{
		{"query", 0.9, 100, false, time.Hour},
		{"query", 0.8, 200, false, 2 * time.Hour},
		{"unknown", 0.0, 300, true, 3 * time.Hour},
		{"positive_feedback", 0.95, 50, false, 10 * 24 * time.Hour},
	}
	for _, s := range seed {
		e := sampleEntry(now.Add(-s.age))
		e.Classification = s.classification
		e.Confidence = s.confidence
		e.ProcessingTimeMS = s.ms
		e.ManualReview = s.manual
		if _, err := sys.Append(ctx, e); err != nil {
			t.Fatalf("Append error: %v", err)
		}
	}

	stats, err := sys.Stats(ctx, interactions.LastDays(now, 7))
	if err != nil {
		t.Fatalf("Stats error: %v", err)
	}

	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if stats.ByClassification["query"] != 2 || stats.ByClassification["unknown"] != 1 {
		t.Errorf("ByClassification = %v", stats.ByClassification)
	}
	if _, ok := stats.ByClassification["positive_feedback"]; ok {
		t.Errorf("entry outside window counted: %v", stats.ByClassification)
	}
	if math.Abs(stats.AverageConfidence-(0.9+0.8+0.0)/3) > 1e-9 {
		t.Errorf("AverageConfidence = %v", stats.AverageConfidence)
	}
	if math.Abs(stats.AverageProcessingMS-200) > 1e-9 {
		t.Errorf("AverageProcessingMS = %v, want 200", stats.AverageProcessingMS)
	}
	if stats.ManualReviewCount != 1 {
		t.Errorf("ManualReviewCount = %d, want 1", stats.ManualReviewCount)
	}

	t.Run("empty window", func(t *testing.T) {
		empty, err := sys.Stats(ctx, interactions.LastDays(now.Add(-365*24*time.Hour), 1))
		if err != nil {
			t.Fatalf("Stats error: %v", err)
		}
		if empty.Total != 0 || empty.AverageConfidence != 0 || len(empty.ByClassification) != 0 {
			t.Errorf("empty stats = %+v", empty)
		}
	})
}

func TestArchive(t *testing.T) {
	ts := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	t.Run("uploads once at dated key", func(t *testing.T) {
		store := newMemoryStore()
		sys := newTestSystem(t, interactions.WithArchive(store))
		ctx := context.Background()

		stored, err := sys.Append(ctx, sampleEntry(ts))
		if err != nil {
			t.Fatalf("Append error: %v", err)
		}

		key := "interactions/2026/05/04/" + stored.ID.String() + ".json"
		if interactions.ArchiveKey(*stored) != key {
			t.Errorf("ArchiveKey = %q, want %q", interactions.ArchiveKey(*stored), key)
		}
		if _, ok := store.blobs[key]; !ok {
			t.Fatalf("no blob at %s; have %v", key, store.blobs)
		}

		body, err := sys.Archived(ctx, stored.ID)
		if err != nil {
			t.Fatalf("Archived error: %v", err)
		}
		defer body.Close()

		var archived interactions.Entry
		if err := json.NewDecoder(body).Decode(&archived); err != nil {
			t.Fatalf("decode archive: %v", err)
		}
		if archived.ID != stored.ID || archived.Response != stored.Response {
			t.Errorf("archived = %+v", archived)
		}
	})

	t.Run("upload failure keeps the row", func(t *testing.T) {
		store := newMemoryStore()
		store.uploadErr = errors.New("storage unavailable")
		sys := newTestSystem(t, interactions.WithArchive(store))
		ctx := context.Background()

		stored, err := sys.Append(ctx, sampleEntry(ts))
		if !errors.Is(err, interactions.ErrLogWrite) || !errors.Is(err, interactions.ErrArchive) {
			t.Fatalf("error = %v, want ErrLogWrite wrapping ErrArchive", err)
		}
		if stored == nil {
			t.Fatal("stored entry = nil, want persisted entry")
		}
		if _, err := sys.Find(ctx, stored.ID); err != nil {
			t.Errorf("Find after archive failure error: %v", err)
		}
	})

	t.Run("existing blob is kept", func(t *testing.T) {
		store := newMemoryStore()
		sys := newTestSystem(t, interactions.WithArchive(store))

		entry := sampleEntry(ts)
		entry.ID = uuid.New()
		key := interactions.ArchiveKey(entry)
		store.blobs[key] = []byte(`{"prior":true}`)

		if _, err := sys.Append(context.Background(), entry); err != nil {
			t.Fatalf("Append error: %v", err)
		}
		if string(store.blobs[key]) != `{"prior":true}` {
			t.Errorf("blob overwritten: %s", store.blobs[key])
		}
		if store.uploads != 0 {
			t.Errorf("uploads = %d, want 0", store.uploads)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		sys := newTestSystem(t)
		_, err := sys.Archived(context.Background(), uuid.New())
		if !errors.Is(err, interactions.ErrArchiveDisabled) {
			t.Errorf("error = %v, want ErrArchiveDisabled", err)
		}
	})
}

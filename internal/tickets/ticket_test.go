package tickets_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"testing"

	"github.com/JaimeStill/concierge/internal/tickets"
)

func ptr[T any](v T) *T { return &v }

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", tickets.ErrNotFound, http.StatusNotFound},
		{"invalid transition", tickets.ErrInvalidTransition, http.StatusConflict},
		{"invalid status", tickets.ErrInvalidStatus, http.StatusBadRequest},
		{"invalid id", tickets.ErrInvalidID, http.StatusBadRequest},
		{"invalid command", tickets.ErrInvalidCommand, http.StatusBadRequest},
		{"exhausted", tickets.ErrAllocationExhausted, http.StatusInternalServerError},
		{"unknown error", errors.New("something else"), http.StatusInternalServerError},
		{"wrapped transition", fmt.Errorf("update: %w", tickets.ErrInvalidTransition), http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tickets.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestStatusRank(t *testing.T) {
	tests := []struct {
		status tickets.Status
		want   int
	}{
		{tickets.StatusUnresolved, 0},
		{tickets.StatusInProgress, 1},
		{tickets.StatusResolved, 2},
		{tickets.Status("closed"), -1},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Rank(); got != tt.want {
				t.Errorf("Rank() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStatusCanTransition(t *testing.T) {
	tests := []struct {
		from tickets.Status
		to   tickets.Status
		want bool
	}{
		{tickets.StatusUnresolved, tickets.StatusInProgress, true},
		{tickets.StatusUnresolved, tickets.StatusResolved, true},
		{tickets.StatusInProgress, tickets.StatusResolved, true},
		{tickets.StatusUnresolved, tickets.StatusUnresolved, false},
		{tickets.StatusInProgress, tickets.StatusInProgress, false},
		{tickets.StatusResolved, tickets.StatusResolved, false},
		{tickets.StatusInProgress, tickets.StatusUnresolved, false},
		{tickets.StatusResolved, tickets.StatusInProgress, false},
		{tickets.StatusResolved, tickets.StatusUnresolved, false},
		{tickets.Status("closed"), tickets.StatusResolved, false},
		{tickets.StatusUnresolved, tickets.Status("closed"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("CanTransition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusPredecessors(t *testing.T) {
	if got := tickets.StatusUnresolved.Predecessors(); len(got) != 0 {
		t.Errorf("unresolved predecessors = %v, want none", got)
	}

	got := tickets.StatusResolved.Predecessors()
	want := []tickets.Status{tickets.StatusUnresolved, tickets.StatusInProgress}
	if len(got) != len(want) {
		t.Fatalf("resolved predecessors = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("predecessors[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		status tickets.Status
		want   string
	}{
		{tickets.StatusUnresolved, "Unresolved"},
		{tickets.StatusInProgress, "In Progress"},
		{tickets.StatusResolved, "Resolved"},
	}

	for _, tt := range tests {
		if got := tt.status.Label(); got != tt.want {
			t.Errorf("%q.Label() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestStatusUnmarshalJSON(t *testing.T) {
	var s tickets.Status
	if err := json.Unmarshal([]byte(`"in_progress"`), &s); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if s != tickets.StatusInProgress {
		t.Errorf("Unmarshal = %q, want in_progress", s)
	}

	err := json.Unmarshal([]byte(`"closed"`), &s)
	if !errors.Is(err, tickets.ErrInvalidStatus) {
		t.Errorf("Unmarshal(closed) error = %v, want ErrInvalidStatus", err)
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"123456", true},
		{"100000", true},
		{"999999", true},
		{"012345", false},
		{"12345", false},
		{"1234567", false},
		{"12a456", false},
		{"", false},
		{"１２３４５６", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := tickets.ValidID(tt.id); got != tt.want {
				t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestRandomIDRange(t *testing.T) {
	for range 1000 {
		id := tickets.RandomID()
		if !tickets.ValidID(id) {
			t.Fatalf("RandomID() = %q, not a valid id", id)
		}
		n, _ := strconv.Atoi(id)
		if n < tickets.MinID || n > tickets.MaxID {
			t.Fatalf("RandomID() = %d, outside [%d, %d]", n, tickets.MinID, tickets.MaxID)
		}
	}
}

func TestFiltersFromQuery(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		values := url.Values{
			"customer_id":    {"cust_001"},
			"status":         {"resolved"},
			"classification": {"negative_feedback"},
		}

		f, err := tickets.FiltersFromQuery(values)
		if err != nil {
			t.Fatalf("FiltersFromQuery error: %v", err)
		}
		if f.CustomerID == nil || *f.CustomerID != "cust_001" {
			t.Errorf("CustomerID = %v, want cust_001", f.CustomerID)
		}
		if f.Status == nil || *f.Status != tickets.StatusResolved {
			t.Errorf("Status = %v, want resolved", f.Status)
		}
		if f.Classification == nil || *f.Classification != "negative_feedback" {
			t.Errorf("Classification = %v, want negative_feedback", f.Classification)
		}
	})

	t.Run("empty", func(t *testing.T) {
		f, err := tickets.FiltersFromQuery(url.Values{})
		if err != nil {
			t.Fatalf("FiltersFromQuery error: %v", err)
		}
		if f.CustomerID != nil || f.Status != nil || f.Classification != nil {
			t.Errorf("expected all nil filters, got %+v", f)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		_, err := tickets.FiltersFromQuery(url.Values{"status": {"closed"}})
		if !errors.Is(err, tickets.ErrInvalidStatus) {
			t.Errorf("error = %v, want ErrInvalidStatus", err)
		}
	})
}

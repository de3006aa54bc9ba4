package interactions

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/JaimeStill/concierge/pkg/query"
	"github.com/JaimeStill/concierge/pkg/repository"
)

var projection = query.
	NewProjectionMap("interactions", "i").
	Project("id", "ID").
	Project("customer_id", "CustomerID").
	Project("input_message", "InputMessage").
	Project("classification", "Classification").
	Project("confidence", "Confidence").
	Project("extracted_topic", "ExtractedTopic").
	Project("ticket_id", "TicketID").
	Project("agent_path", "AgentPath").
	Project("response", "Response").
	Project("processing_time_ms", "ProcessingTimeMS").
	Project("manual_review", "ManualReview").
	Project("errors", "Errors").
	Project("timestamp", "Timestamp")

var defaultSort = query.SortField{
	Field:      "Timestamp",
	Descending: true,
}

// Filters contains optional filtering criteria for interaction queries.
// Nil fields are ignored. Since is inclusive and Until exclusive.
type Filters struct {
	CustomerID     *string    `json:"customer_id,omitempty"`
	Classification *string    `json:"classification,omitempty"`
	ManualReview   *bool      `json:"manual_review,omitempty"`
	Since          *time.Time `json:"since,omitempty"`
	Until          *time.Time `json:"until,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("CustomerID", f.CustomerID).
		WhereEquals("Classification", f.Classification).
		WhereEquals("ManualReview", f.ManualReview).
		WhereSince("Timestamp", utc(f.Since)).
		WhereBefore("Timestamp", utc(f.Until))
}

// FiltersFromQuery extracts filter values from URL query parameters.
// since and until are RFC 3339 timestamps.
func FiltersFromQuery(values url.Values) (Filters, error) {
	var f Filters

	if c := values.Get("customer_id"); c != "" {
		f.CustomerID = &c
	}

	if c := values.Get("classification"); c != "" {
		f.Classification = &c
	}

	if m := values.Get("manual_review"); m != "" {
		v, err := strconv.ParseBool(m)
		if err != nil {
			return f, fmt.Errorf("%w: manual_review: %v", ErrInvalidFilter, err)
		}
		f.ManualReview = &v
	}

	var err error
	if f.Since, err = parseTime(values, "since"); err != nil {
		return f, err
	}
	if f.Until, err = parseTime(values, "until"); err != nil {
		return f, err
	}

	return f, nil
}

func parseTime(values url.Values, name string) (*time.Time, error) {
	s := values.Get(name)
	if s == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFilter, name, err)
	}
	return &ts, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func scanEntry(s repository.Scanner) (Entry, error) {
	var (
		e         Entry
		rawErrors string
	)
	err := s.Scan(
		&e.ID,
		&e.CustomerID,
		&e.InputMessage,
		&e.Classification,
		&e.Confidence,
		&e.ExtractedTopic,
		&e.TicketID,
		&e.AgentPath,
		&e.Response,
		&e.ProcessingTimeMS,
		&e.ManualReview,
		&rawErrors,
		&e.Timestamp,
	)
	if err != nil {
		return e, err
	}

	e.Timestamp = e.Timestamp.UTC()
	if err := json.Unmarshal([]byte(rawErrors), &e.Errors); err != nil {
		return e, fmt.Errorf("decode errors column: %w", err)
	}
	if e.Errors == nil {
		e.Errors = []ErrorRecord{}
	}
	return e, nil
}

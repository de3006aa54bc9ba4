// Package interactions implements the append-only audit log of processed
// customer messages. Entries are written once and never updated or deleted.
package interactions

import (
	"time"

	"github.com/google/uuid"
)

// Entry is the persisted projection of one workflow pass.
type Entry struct {
	ID               uuid.UUID     `json:"id"`
	CustomerID       string        `json:"customer_id"`
	InputMessage     string        `json:"input_message"`
	Classification   string        `json:"classification"`
	Confidence       float64       `json:"confidence"`
	ExtractedTopic   string        `json:"extracted_topic"`
	TicketID         *string       `json:"ticket_id"`
	AgentPath        string        `json:"agent_path"`
	Response         string        `json:"response"`
	ProcessingTimeMS int64         `json:"processing_time_ms"`
	ManualReview     bool          `json:"manual_review"`
	Errors           []ErrorRecord `json:"errors"`
	Timestamp        time.Time     `json:"timestamp"`
}

// ErrorRecord is a stage failure absorbed during the pass.
type ErrorRecord struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Window bounds a Stats query to [Since, Until).
type Window struct {
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
}

// MaxStatsDays bounds stats windows to ten years.
const MaxStatsDays = 3650

// LastDays returns the window covering the n days before now. n is
// capped at MaxStatsDays.
func LastDays(now time.Time, n int) Window {
	n = min(n, MaxStatsDays)
	return Window{
		Since: now.Add(-time.Duration(n) * 24 * time.Hour),
		Until: now,
	}
}

// Stats aggregates entries within a window.
type Stats struct {
	Window              Window         `json:"window"`
	Total               int            `json:"total"`
	ByClassification    map[string]int `json:"by_classification"`
	AverageConfidence   float64        `json:"average_confidence"`
	AverageProcessingMS float64        `json:"average_processing_ms"`
	ManualReviewCount   int            `json:"manual_review_count"`
}

// ArchiveKey returns the blob key for an entry: interactions/{yyyy}/{mm}/{dd}/{id}.json.
func ArchiveKey(e Entry) string {
	ts := e.Timestamp.UTC()
	return ts.Format("interactions/2006/01/02/") + e.ID.String() + ".json"
}

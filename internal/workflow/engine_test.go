package workflow_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/JaimeStill/concierge/internal/tickets"
	"github.com/JaimeStill/concierge/internal/workflow"
)

type harness struct {
	classifier *fakeClassifier
	generator  *fakeGenerator
	tickets    *fakeTickets
	log        *fakeLog
	engine     *workflow.Engine
}

func newHarness(t *testing.T, v workflow.Verdict, configure ...func(*workflow.Config)) *harness {
	t.Helper()

	cfg := workflow.Config{}
	for _, fn := range configure {
		fn(&cfg)
	}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}

	h := &harness{
		classifier: &fakeClassifier{verdict: v},
		generator:  &fakeGenerator{},
		tickets:    newFakeTickets(),
		log:        &fakeLog{},
	}
	h.engine = workflow.New(cfg, &workflow.Runtime{
		Classifier:   h.classifier,
		Generator:    h.generator,
		Tickets:      h.tickets,
		Interactions: h.log,
		Boundary:     workflow.Boundary{MaxAttempts: 1},
		Logger:       discard,
	})
	return h
}

func (h *harness) run(t *testing.T, in workflow.Input) *workflow.Result {
	t.Helper()
	res, err := h.engine.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func verdict(c workflow.Classification, confidence float64) workflow.Verdict {
	return workflow.Verdict{Classification: c, Confidence: confidence, ExtractedTopic: "topic"}
}

func input(message string) workflow.Input {
	return workflow.Input{Message: message, CustomerID: "CUST001", CustomerName: "Alice"}
}

func hasKind(errs []workflow.StageError, kind workflow.ErrorKind) bool {
	for _, e := range errs {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func TestRunPositiveFeedback(t *testing.T) {
	h := newHarness(t, verdict(workflow.ClassPositive, 0.95))
	h.generator.generate = func(p workflow.Prompt) (string, error) {
		if !strings.Contains(p.User, "Alice") {
			t.Errorf("prompt missing customer name: %q", p.User)
		}
		return "Thank you so much,   Alice!", nil
	}

	res := h.run(t, input("Your app is wonderful"))

	if res.AgentName != workflow.AgentPositive {
		t.Errorf("agent = %q, want %q", res.AgentName, workflow.AgentPositive)
	}
	if res.TicketID != nil {
		t.Errorf("ticket id = %v, want nil", *res.TicketID)
	}
	if res.ManualReview {
		t.Error("manual review set on positive feedback")
	}
	if h.classifier.customer != (workflow.Customer{ID: "CUST001", Name: "Alice"}) {
		t.Errorf("classifier customer = %+v", h.classifier.customer)
	}
	want := "Thank you so much, Alice!\n\n" + workflow.DefaultSignOff
	if res.Response != want {
		t.Errorf("response = %q, want %q", res.Response, want)
	}
	if len(res.Errors) != 0 {
		t.Errorf("errors = %v, want none", res.Errors)
	}

	entries := h.log.all()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	if entries[0].Response != res.Response {
		t.Errorf("logged response differs from result")
	}
	if res.InteractionID == nil || *res.InteractionID != entries[0].ID {
		t.Errorf("interaction id not propagated")
	}
}

func TestRunNegativeFeedbackCreatesTicket(t *testing.T) {
	h := newHarness(t, verdict(workflow.ClassNegative, 0.9))
	h.generator.generate = func(p workflow.Prompt) (string, error) {
		return "We apologize for the trouble with your card.", nil
	}

	res := h.run(t, input("My card was declined twice"))

	if res.AgentName != workflow.AgentNegative {
		t.Errorf("agent = %q, want %q", res.AgentName, workflow.AgentNegative)
	}
	if res.TicketID == nil {
		t.Fatal("ticket id is nil")
	}
	if res.TicketStatus == nil || *res.TicketStatus != tickets.StatusUnresolved {
		t.Errorf("ticket status = %v, want unresolved", res.TicketStatus)
	}
	if !strings.Contains(res.Response, *res.TicketID) {
		t.Errorf("response %q does not cite ticket %s", res.Response, *res.TicketID)
	}
	if got := h.tickets.attached[*res.TicketID]; got != res.Response {
		t.Errorf("attached response = %q, want final response", got)
	}

	entries := h.log.all()
	if len(entries) != 1 || entries[0].TicketID == nil || *entries[0].TicketID != *res.TicketID {
		t.Errorf("logged entry does not reference ticket")
	}
}

func TestRunConfidenceGate(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		atThresh   bool
		wantAgent  string
	}{
		{"below threshold escalates", 0.69, false, workflow.AgentEscalation},
		{"at threshold is handled", 0.70, false, workflow.AgentPositive},
		{"above threshold is handled", 0.71, false, workflow.AgentPositive},
		{"at threshold escalates when configured", 0.70, true, workflow.AgentEscalation},
		{"above threshold handled when configured", 0.71, true, workflow.AgentPositive},
		{"zero confidence escalates", 0, false, workflow.AgentEscalation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, verdict(workflow.ClassPositive, tt.confidence), func(c *workflow.Config) {
				c.EscalateAtThreshold = tt.atThresh
			})

			res := h.run(t, input("Thanks for the help"))

			if res.AgentName != tt.wantAgent {
				t.Errorf("agent = %q, want %q", res.AgentName, tt.wantAgent)
			}
			if got := res.AgentName == workflow.AgentEscalation; res.ManualReview != got {
				t.Errorf("manual review = %v, want %v", res.ManualReview, got)
			}
		})
	}
}

func TestRunUnknownClassificationEscalates(t *testing.T) {
	h := newHarness(t, verdict(workflow.ClassUnknown, 0.99))

	res := h.run(t, input("asdf qwerty"))

	if res.AgentName != workflow.AgentEscalation || !res.ManualReview {
		t.Errorf("agent = %q manual = %v, want escalation", res.AgentName, res.ManualReview)
	}
}

func TestRunQuery(t *testing.T) {
	tests := []struct {
		name        string
		message     string
		seed        *tickets.Ticket
		wantTicket  bool
		wantContain []string
	}{
		{
			name:        "no ticket number asks for one",
			message:     "What's the status of my ticket?",
			wantContain: []string{"Could you please provide your ticket number?"},
		},
		{
			name:        "unknown ticket reads as not found",
			message:     "Status of ticket 999999?",
			wantContain: []string{"couldn't find a ticket with ID 999999"},
		},
		{
			name:        "other customer's ticket reads as not found",
			message:     "Status of 123456",
			seed:        &tickets.Ticket{TicketID: "123456", CustomerID: "CUST999", Status: tickets.StatusResolved},
			wantContain: []string{"couldn't find a ticket with ID 123456"},
		},
		{
			name:        "unresolved ticket",
			message:     "Any update on #123456?",
			seed:        &tickets.Ticket{TicketID: "123456", CustomerID: "CUST001", Status: tickets.StatusUnresolved},
			wantTicket:  true,
			wantContain: []string{"currently marked as: Unresolved."},
		},
		{
			name:        "in progress ticket includes timeline",
			message:     "ticket 123456 please",
			seed:        &tickets.Ticket{TicketID: "123456", CustomerID: "CUST001", Status: tickets.StatusInProgress},
			wantTicket:  true,
			wantContain: []string{"currently marked as: In Progress.", "24-48 hours"},
		},
		{
			name:        "resolved ticket",
			message:     "What's the status of ticket 650932?",
			seed:        &tickets.Ticket{TicketID: "650932", CustomerID: "CUST001", Status: tickets.StatusResolved},
			wantTicket:  true,
			wantContain: []string{"currently marked as: Resolved."},
		},
		{
			name:        "seven digit run is not a ticket number",
			message:     "ref 1234567",
			wantContain: []string{"Could you please provide your ticket number?"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, verdict(workflow.ClassQuery, 0.9))
			if tt.seed != nil {
				h.tickets.put(*tt.seed)
			}

			res := h.run(t, input(tt.message))

			if res.AgentName != workflow.AgentQuery {
				t.Errorf("agent = %q, want %q", res.AgentName, workflow.AgentQuery)
			}
			if (res.TicketID != nil) != tt.wantTicket {
				t.Errorf("ticket id present = %v, want %v", res.TicketID != nil, tt.wantTicket)
			}
			if tt.wantTicket && (res.TicketStatus == nil || *res.TicketStatus != tt.seed.Status) {
				t.Errorf("ticket status = %v, want %s", res.TicketStatus, tt.seed.Status)
			}
			for _, s := range tt.wantContain {
				if !strings.Contains(res.Response, s) {
					t.Errorf("response %q missing %q", res.Response, s)
				}
			}
			if len(h.tickets.attached) != 0 {
				t.Error("query attached a response to a ticket")
			}
		})
	}
}

func TestRunQueryLookupFailure(t *testing.T) {
	h := newHarness(t, verdict(workflow.ClassQuery, 0.9))
	h.tickets.findErr = errors.New("database unavailable")

	res := h.run(t, input("Status of 123456"))

	if !hasKind(res.Errors, workflow.KindTicketLookup) {
		t.Errorf("errors = %v, want ticket_lookup", res.Errors)
	}
	if !res.ManualReview {
		t.Error("manual review not set after lookup failure")
	}
	if !strings.Contains(res.Response, "123456") {
		t.Errorf("response %q does not mention ticket", res.Response)
	}
}

func TestRunTicketAllocationExhausted(t *testing.T) {
	h := newHarness(t, verdict(workflow.ClassNegative, 0.9))
	h.tickets.createErr = tickets.ErrAllocationExhausted

	res, err := h.engine.Run(context.Background(), input("Nothing works"))

	if !errors.Is(err, workflow.ErrTicketAllocation) {
		t.Fatalf("err = %v, want ErrTicketAllocation", err)
	}
	if res == nil {
		t.Fatal("result is nil")
	}

	entries := h.log.all()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	if len(entries[0].Errors) != 1 || entries[0].Errors[0].Kind != string(workflow.KindTicketAllocation) {
		t.Errorf("logged errors = %v, want one ticket_allocation", entries[0].Errors)
	}
}

func TestRunTicketCreateFailureEscalates(t *testing.T) {
	h := newHarness(t, verdict(workflow.ClassNegative, 0.9))
	h.tickets.createErr = errors.New("connection reset")

	res, err := h.engine.Run(context.Background(), input("Nothing works"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.AgentName != workflow.AgentEscalation || !res.ManualReview {
		t.Errorf("agent = %q manual = %v, want escalation", res.AgentName, res.ManualReview)
	}
	if !hasKind(res.Errors, workflow.KindTicketAllocation) {
		t.Errorf("errors = %v, want ticket_allocation", res.Errors)
	}
}

func TestRunClassificationFailure(t *testing.T) {
	h := newHarness(t, workflow.Verdict{})
	h.classifier.err = errors.New("provider down")

	res := h.run(t, input("Hello"))

	if res.AgentName != workflow.AgentEscalation || !res.ManualReview {
		t.Errorf("agent = %q manual = %v, want escalation", res.AgentName, res.ManualReview)
	}
	if res.Classification != workflow.ClassUnknown {
		t.Errorf("classification = %q, want unknown", res.Classification)
	}
	if !hasKind(res.Errors, workflow.KindClassification) {
		t.Errorf("errors = %v, want classification", res.Errors)
	}
	if len(h.log.all()) != 1 {
		t.Error("failed pass was not logged")
	}
}

func TestRunValidation(t *testing.T) {
	tests := []struct {
		name string
		in   workflow.Input
	}{
		{"empty message", workflow.Input{Message: "   ", CustomerID: "C1", CustomerName: "Alice"}},
		{"message too long", workflow.Input{Message: strings.Repeat("é", workflow.DefaultMaxMessageLength+1), CustomerID: "C1", CustomerName: "Alice"}},
		{"blank customer id", workflow.Input{Message: "hi", CustomerID: " ", CustomerName: "Alice"}},
		{"blank customer name", workflow.Input{Message: "hi", CustomerID: "C1", CustomerName: ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, verdict(workflow.ClassPositive, 0.9))

			res := h.run(t, tt.in)

			if !hasKind(res.Errors, workflow.KindValidation) {
				t.Errorf("errors = %v, want validation", res.Errors)
			}
			if res.AgentName != workflow.AgentEscalation || !res.ManualReview {
				t.Errorf("agent = %q manual = %v, want escalation", res.AgentName, res.ManualReview)
			}
			if h.classifier.calls != 0 {
				t.Errorf("classifier called %d times after validation failure", h.classifier.calls)
			}
		})
	}
}

func TestRunMaxLengthCountsRunes(t *testing.T) {
	h := newHarness(t, verdict(workflow.ClassPositive, 0.9))

	res := h.run(t, input(strings.Repeat("é", workflow.DefaultMaxMessageLength)))

	if hasKind(res.Errors, workflow.KindValidation) {
		t.Errorf("message at the limit rejected: %v", res.Errors)
	}
}

func TestRunGenerationFallback(t *testing.T) {
	tests := []struct {
		name        string
		verdict     workflow.Verdict
		wantContain string
	}{
		{"positive", verdict(workflow.ClassPositive, 0.9), "Thank you for your kind feedback, Alice!"},
		{"negative", verdict(workflow.ClassNegative, 0.9), "We've created support ticket #"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.verdict)
			h.generator.generate = func(workflow.Prompt) (string, error) {
				return "", errors.New("rate limited")
			}

			res := h.run(t, input("message"))

			if !hasKind(res.Errors, workflow.KindGeneration) {
				t.Errorf("errors = %v, want generation", res.Errors)
			}
			if !strings.Contains(res.Response, tt.wantContain) {
				t.Errorf("response %q missing %q", res.Response, tt.wantContain)
			}
			if res.TicketID != nil && !strings.Contains(res.Response, *res.TicketID) {
				t.Errorf("fallback response does not cite ticket %s", *res.TicketID)
			}
			if !strings.HasSuffix(res.Response, workflow.DefaultSignOff) {
				t.Errorf("fallback response missing sign-off")
			}
		})
	}
}

func TestRunNegativeAppendsMissingTicketID(t *testing.T) {
	h := newHarness(t, verdict(workflow.ClassNegative, 0.9))
	h.generator.generate = func(workflow.Prompt) (string, error) {
		return "We're sorry about this.", nil
	}

	res := h.run(t, input("Broken transfer"))

	if res.TicketID == nil || !strings.Contains(res.Response, "#"+*res.TicketID) {
		t.Errorf("response %q does not cite ticket", res.Response)
	}
}

func TestRunLogWriteFailure(t *testing.T) {
	h := newHarness(t, verdict(workflow.ClassPositive, 0.9))
	h.log.err = errors.New("disk full")

	res := h.run(t, input("Great service"))

	if !hasKind(res.Errors, workflow.KindLogWrite) {
		t.Errorf("errors = %v, want log_write", res.Errors)
	}
	if res.InteractionID != nil {
		t.Error("interaction id set after failed write")
	}
	if res.AgentName != workflow.AgentPositive {
		t.Errorf("agent = %q, log failure changed the route", res.AgentName)
	}
}

func TestRunAttachResponseFailure(t *testing.T) {
	h := newHarness(t, verdict(workflow.ClassNegative, 0.9))
	h.tickets.attachErr = errors.New("row locked")

	res := h.run(t, input("Overdraft fee is wrong"))

	if !hasKind(res.Errors, workflow.KindTicketUpdate) {
		t.Errorf("errors = %v, want ticket_update", res.Errors)
	}
	if res.TicketID == nil {
		t.Error("ticket id dropped after attach failure")
	}

	logged := h.log.all()
	if len(logged) != 1 {
		t.Fatalf("logged %d entries, want 1", len(logged))
	}
	if len(logged[0].Errors) != len(res.Errors) {
		t.Errorf("logged errors = %v, result errors = %v", logged[0].Errors, res.Errors)
	}
	var found bool
	for _, rec := range logged[0].Errors {
		if rec.Kind == string(workflow.KindTicketUpdate) {
			found = true
		}
	}
	if !found {
		t.Errorf("logged errors = %v, want ticket_update", logged[0].Errors)
	}
}

func TestRunCancelledContextStillLogs(t *testing.T) {
	h := newHarness(t, verdict(workflow.ClassPositive, 0.9))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := h.engine.Run(ctx, input("Thanks"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if !hasKind(res.Errors, workflow.KindClassification) {
		t.Errorf("errors = %v, want classification", res.Errors)
	}
	if len(h.log.all()) != 1 {
		t.Error("cancelled pass was not logged")
	}
}

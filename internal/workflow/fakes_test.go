package workflow_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/concierge/internal/interactions"
	"github.com/JaimeStill/concierge/internal/tickets"
	"github.com/JaimeStill/concierge/internal/workflow"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeClassifier struct {
	mu       sync.Mutex
	calls    int
	customer workflow.Customer
	verdict  workflow.Verdict
	err      error
}

func (f *fakeClassifier) Classify(_ context.Context, _ string, customer workflow.Customer) (workflow.Verdict, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.customer = customer
	return f.verdict, f.err
}

type fakeGenerator struct {
	generate func(p workflow.Prompt) (string, error)
}

func (f *fakeGenerator) Generate(_ context.Context, p workflow.Prompt) (string, error) {
	if f.generate == nil {
		return "Generated reply.", nil
	}
	return f.generate(p)
}

type fakeTickets struct {
	mu        sync.Mutex
	next      int
	tickets   map[string]*tickets.Ticket
	attached  map[string]string
	createErr error
	findErr   error
	attachErr error
}

func newFakeTickets() *fakeTickets {
	return &fakeTickets{
		next:     100000,
		tickets:  make(map[string]*tickets.Ticket),
		attached: make(map[string]string),
	}
}

func (f *fakeTickets) put(t tickets.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tickets[t.TicketID] = &t
}

func (f *fakeTickets) Create(_ context.Context, cmd tickets.CreateCommand) (*tickets.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.next++
	now := time.Now().UTC()
	t := &tickets.Ticket{
		TicketID:       fmt.Sprintf("%06d", f.next),
		CustomerID:     cmd.CustomerID,
		CustomerName:   cmd.CustomerName,
		MessageContent: cmd.MessageContent,
		Classification: cmd.Classification,
		Status:         tickets.StatusUnresolved,
		CreatedAt:      now,
		LastUpdated:    now,
	}
	f.tickets[t.TicketID] = t
	return t, nil
}

func (f *fakeTickets) Find(_ context.Context, id string) (*tickets.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	if !tickets.ValidID(id) {
		return nil, tickets.ErrInvalidID
	}
	t, ok := f.tickets[id]
	if !ok {
		return nil, tickets.ErrNotFound
	}
	return t, nil
}

func (f *fakeTickets) AttachResponse(_ context.Context, id, response string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	f.attached[id] = response
	return nil
}

type fakeLog struct {
	mu      sync.Mutex
	entries []interactions.Entry
	err     error
}

func (f *fakeLog) Append(_ context.Context, e interactions.Entry) (*interactions.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	e.ID = uuid.New()
	f.entries = append(f.entries, e)
	return &e, nil
}

func (f *fakeLog) all() []interactions.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interactions.Entry(nil), f.entries...)
}

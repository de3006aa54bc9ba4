package api

import (
	"time"

	"github.com/JaimeStill/concierge/internal/interactions"
	"github.com/JaimeStill/concierge/internal/messages"
	"github.com/JaimeStill/concierge/internal/tickets"
	"github.com/JaimeStill/concierge/internal/workflow"
)

const retryBackoff = 250 * time.Millisecond

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Tickets      tickets.System
	Interactions interactions.System
	Messages     messages.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	ticketsSystem := tickets.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
		tickets.WithMaxAttempts(runtime.Workflow.TicketMaxAttempts),
		tickets.WithPublisher(runtime.Events),
	)

	var interactionOpts []interactions.Option
	if runtime.Archive != nil {
		interactionOpts = append(interactionOpts, interactions.WithArchive(runtime.Archive))
	}

	interactionsSystem := interactions.New(
		runtime.Database.Connection(),
		runtime.Logger,
		runtime.Pagination,
		interactionOpts...,
	)

	engine := workflow.New(runtime.Workflow, &workflow.Runtime{
		Classifier:   workflow.NewClassifier(runtime.Agent),
		Generator:    workflow.NewGenerator(runtime.Agent),
		Tickets:      ticketsSystem,
		Interactions: interactionsSystem,
		Boundary:     runtime.Boundary,
		Logger:       runtime.Logger,
	})

	return &Domain{
		Tickets:      ticketsSystem,
		Interactions: interactionsSystem,
		Messages:     messages.New(engine, runtime.Workflow.MaxConcurrent, runtime.Logger),
	}
}

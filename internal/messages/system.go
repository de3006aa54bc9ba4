// Package messages exposes the support workflow to callers.
package messages

import (
	"context"

	"github.com/JaimeStill/concierge/internal/workflow"
)

// System defines the public contract for message processing.
type System interface {
	Handler() *Handler

	// Process runs one workflow pass. Returns ErrBusy when no slot is
	// acquired before ctx ends. A non-nil error may accompany a result
	// when the pass was logged but failed fatally.
	Process(ctx context.Context, in workflow.Input) (*workflow.Result, error)
}

// Runner executes workflow passes.
type Runner interface {
	Run(ctx context.Context, in workflow.Input) (*workflow.Result, error)
}

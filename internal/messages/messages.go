package messages

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/JaimeStill/concierge/internal/workflow"
)

type system struct {
	runner Runner
	slots  *semaphore.Weighted
	logger *slog.Logger
}

// New creates a message System that admits at most maxConcurrent
// workflow passes at once.
func New(runner Runner, maxConcurrent int, logger *slog.Logger) System {
	return &system{
		runner: runner,
		slots:  semaphore.NewWeighted(int64(max(maxConcurrent, 1))),
		logger: logger.With("system", "messages"),
	}
}

func (s *system) Handler() *Handler {
	return NewHandler(s, s.logger)
}

func (s *system) Process(ctx context.Context, in workflow.Input) (*workflow.Result, error) {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBusy, err)
	}
	defer s.slots.Release(1)

	return s.runner.Run(ctx, in)
}

// Package lifecycle coordinates subsystem startup and ordered shutdown.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Hook is a named startup or shutdown step. The context is the
// coordinator's context during startup and a deadline-bound context
// during shutdown.
type Hook func(ctx context.Context) error

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

type shutdownHook struct {
	name string
	fn   Hook
}

// Coordinator runs startup hooks as they are registered and runs every
// shutdown hook when Shutdown is called.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	startup sync.WaitGroup
	mu      sync.Mutex
	errs    []error
	hooks   []shutdownHook
	ready   atomic.Bool
}

// New creates a Coordinator with a cancellable context.
func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{ctx: ctx, cancel: cancel}
}

// Context returns the coordinator's context, cancelled when Shutdown begins.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup runs fn in its own goroutine. A returned error is reported
// by WaitForStartup and keeps the coordinator from becoming ready.
func (c *Coordinator) OnStartup(name string, fn Hook) {
	c.startup.Go(func() {
		if err := fn(c.ctx); err != nil {
			c.mu.Lock()
			c.errs = append(c.errs, fmt.Errorf("%s: %w", name, err))
			c.mu.Unlock()
		}
	})
}

// OnShutdown registers fn to run when Shutdown is called.
func (c *Coordinator) OnShutdown(name string, fn Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, shutdownHook{name: name, fn: fn})
}

// Ready reports whether every startup hook completed without error.
func (c *Coordinator) Ready() bool {
	return c.ready.Load()
}

// WaitForStartup blocks until all startup hooks have returned. The
// coordinator becomes ready only when none of them failed.
func (c *Coordinator) WaitForStartup() error {
	c.startup.Wait()

	c.mu.Lock()
	err := errors.Join(c.errs...)
	c.mu.Unlock()

	c.ready.Store(err == nil)
	return err
}

// Shutdown cancels the coordinator context and runs all shutdown hooks
// concurrently, giving them timeout to finish.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.ready.Store(false)
	c.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c.mu.Lock()
	hooks := append([]shutdownHook(nil), c.hooks...)
	c.mu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, h := range hooks {
		wg.Go(func() {
			if err := h.fn(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
				mu.Unlock()
			}
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return errors.Join(errs...)
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout after %v", timeout)
	}
}

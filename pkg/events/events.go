// Package events publishes JSON domain events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/JaimeStill/concierge/pkg/lifecycle"
)

// Event is a single keyed message. Payload is encoded as JSON.
type Event struct {
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Publisher writes events to a message broker.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// System is a Publisher with lifecycle hooks.
type System interface {
	Publisher
	Start(lc *lifecycle.Coordinator) error
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type producer struct {
	writer  writer
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Kafka-backed publisher. When cfg has no brokers the
// returned system discards events.
func New(cfg *Config, logger *slog.Logger) System {
	logger = logger.With("system", "events")

	if !cfg.Enabled() {
		return &discard{logger: logger}
	}

	return &producer{
		writer:  newWriter(cfg),
		timeout: cfg.WriteTimeoutDuration(),
		logger:  logger.With("topic", cfg.Topic),
	}
}

// Publish is called inline from request handlers, so a single message is
// flushed after flushInterval rather than kafka-go's one second default.
const flushInterval = 10 * time.Millisecond

// newWriter hashes message keys so every event for one key lands on the
// same partition in publish order.
func newWriter(cfg *Config) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: flushInterval,
	}
}

func (p *producer) Start(lc *lifecycle.Coordinator) error {
	p.logger.Info("starting event publisher")

	lc.OnShutdown("events", func(ctx context.Context) error {
		if err := p.writer.Close(); err != nil {
			p.logger.Error("event publisher close failed", "error", err)
			return err
		}
		p.logger.Info("event publisher closed")
		return nil
	})

	return nil
}

func (p *producer) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs, err := encode(events)
	if err != nil {
		return err
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("%w: %v", ErrPublish, err)
	}

	p.logger.DebugContext(ctx, "events published", "count", len(msgs))
	return nil
}

func encode(events []Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, len(events))
	for i, e := range events {
		if e.OccurredAt.IsZero() {
			e.OccurredAt = time.Now().UTC()
		}
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("%w: encode %s: %v", ErrPublish, e.Type, err)
		}
		msgs[i] = kafka.Message{
			Key:   []byte(e.Key),
			Value: data,
		}
	}
	return msgs, nil
}

type discard struct {
	logger *slog.Logger
}

func (d *discard) Start(lc *lifecycle.Coordinator) error {
	d.logger.Info("event publishing disabled")
	return nil
}

func (d *discard) Publish(ctx context.Context, events ...Event) error {
	return nil
}

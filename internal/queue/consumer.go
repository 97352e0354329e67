package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler processes one queued job. A returned error rejects the message
// without requeue; the job row already records the failure.
type Handler func(ctx context.Context, event JobQueuedEvent) error

// maxReconnectBackoff caps the dial retry delay.
const maxReconnectBackoff = 30 * time.Second

// Consumer reads the jobs queue and dispatches each message to a Handler.
// It runs a reconnect loop with exponential backoff and returns only when
// ctx is cancelled.
type Consumer struct {
	url     string
	handler Handler
	logger  *slog.Logger
}

// NewConsumer creates a Consumer; call Run to start it.
func NewConsumer(url string, handler Handler, logger *slog.Logger) *Consumer {
	return &Consumer{url: url, handler: handler, logger: logger}
}

// Run consumes until ctx is cancelled, reconnecting on broker failures.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.logger.Warn("Failed to dial broker, retrying",
				slog.String("error", err.Error()),
				slog.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < maxReconnectBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := c.consumeLoop(ctx, conn); err != nil {
			_ = conn.Close()
			if errors.Is(err, context.Canceled) {
				return err
			}
			c.logger.Warn("Consume loop ended, reconnecting", slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// One unacked job per worker; processing is long and sequential.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	if _, err := ch.QueueDeclare(jobsQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(jobsQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	var event JobQueuedEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		c.logger.Error("Dropping malformed job message", slog.String("error", err.Error()))
		_ = d.Nack(false, false)
		return
	}

	if err := c.handler(ctx, event); err != nil {
		c.logger.Error("Job handler failed",
			slog.String("job_id", event.JobID),
			slog.String("error", err.Error()),
		)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

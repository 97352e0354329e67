package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/stemtide/stemtide_backend/internal/core/ports"
)

// RabbitPublisher implements ports.JobPublisher on a long-lived AMQP
// connection. Messages are persistent so queued jobs survive broker restarts.
type RabbitPublisher struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	logger *slog.Logger
}

// NewRabbitPublisher dials the broker and declares the jobs queue.
func NewRabbitPublisher(url string, logger *slog.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(jobsQueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", jobsQueueName, err)
	}

	logger.Info("Connected to RabbitMQ", slog.String("queue", jobsQueueName))
	return &RabbitPublisher{conn: conn, ch: ch, logger: logger}, nil
}

var _ ports.JobPublisher = (*RabbitPublisher)(nil)

// PublishJobQueued enqueues the job token for pickup by a worker.
func (p *RabbitPublisher) PublishJobQueued(ctx context.Context, jobID string) error {
	body, err := json.Marshal(JobQueuedEvent{JobID: jobID, QueuedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal job event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", jobsQueueName, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish job %s: %w", jobID, err)
	}

	p.logger.Info("Job queued", slog.String("job_id", jobID))
	return nil
}

// Close releases the channel and connection.
func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn.Close()
	}
	return nil
}

package ports

import "context"

// JobPublisher dispatches newly created jobs to the processing worker.
type JobPublisher interface {
	// PublishJobQueued enqueues the job token for pickup by a worker.
	PublishJobQueued(ctx context.Context, jobID string) error

	// Close releases the underlying broker connection.
	Close() error
}

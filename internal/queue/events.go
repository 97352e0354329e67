// Package queue moves job tokens between the API process and the worker over
// RabbitMQ. Messages carry only the job id; the worker reads everything else
// from the database, so a redelivered message never acts on stale options.
package queue

import "time"

// jobsQueueName is the durable queue carrying newly created jobs.
const jobsQueueName = "jobs.queued"

// JobQueuedEvent is the message published when a job is created.
type JobQueuedEvent struct {
	JobID    string    `json:"job_id"`
	QueuedAt time.Time `json:"queued_at"`
}

package services

import (
	"context"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
)

// JobSvcFacade defines the job lifecycle operations.
type JobSvcFacade interface {
	// CreateJob validates the options, debits the job's cost and inserts the
	// job atomically, then returns the stored job (status pending).
	CreateJob(ctx context.Context, userID, filename, objectKey string, opts domain.JobOptions) (*domain.Job, error)

	// MarkStarted transitions pending -> processing.
	MarkStarted(ctx context.Context, jobID string) error

	// MarkCompleted transitions processing -> completed and records the result key.
	MarkCompleted(ctx context.Context, jobID string, resultKey string) error

	// MarkFailed transitions pending|processing -> failed, records the error
	// message, and refunds the job's cost to the owner.
	MarkFailed(ctx context.Context, jobID string, errorMessage string) error

	// GetJob returns the job when it exists and belongs to requestingUserID;
	// ErrNotFound otherwise, including for foreign-owned tokens.
	GetJob(ctx context.Context, jobID, requestingUserID string) (*domain.Job, error)

	// ListJobs returns a newest-first page of the user's jobs.
	ListJobs(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Job, *string, error)
}

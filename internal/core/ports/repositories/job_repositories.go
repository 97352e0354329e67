package repositories

import (
	"context"
	"time"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
)

// JobReader defines read operations for job data.
type JobReader interface {
	// FindJobByID retrieves a job by its token regardless of owner.
	// Ownership filtering is the service's responsibility.
	FindJobByID(ctx context.Context, jobID string) (*domain.Job, error)

	// ListJobsByUserID retrieves a newest-first page of a user's jobs using
	// token-based pagination.
	ListJobsByUserID(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Job, *string, error)
}

// JobWriter defines write operations for job data.
type JobWriter interface {
	// CreateJobWithDebit inserts the job and debits its cost from the owner in
	// one database transaction. The debit entry references the job via an
	// explicit foreign key. Fails with ErrInsufficientCredits without any row
	// when the balance does not cover the cost.
	CreateJobWithDebit(ctx context.Context, job domain.Job, debit domain.CreditTransaction) (*domain.CreditTransaction, error)

	// MarkJobStarted transitions pending -> processing and records started_at.
	// A zero-row conditional update maps to ErrInvalidTransition (or
	// ErrNotFound when the job does not exist).
	MarkJobStarted(ctx context.Context, jobID string, now time.Time) error

	// MarkJobCompleted transitions processing -> completed, recording the
	// result object key and completed_at.
	MarkJobCompleted(ctx context.Context, jobID string, resultKey string, now time.Time) error

	// MarkJobFailedWithRefund transitions pending|processing -> failed,
	// records the error message, and appends a compensating credit of the
	// job's cost to the owner's ledger in the same database transaction.
	MarkJobFailedWithRefund(ctx context.Context, jobID string, errorMessage string, now time.Time) error
}

// JobRepositoryFacade combines all job repository interfaces.
type JobRepositoryFacade interface {
	JobReader
	JobWriter
}

// JobRepositoryWithTx extends JobRepositoryFacade with transaction capabilities.
type JobRepositoryWithTx interface {
	JobRepositoryFacade
	TransactionManager
}

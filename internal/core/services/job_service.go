package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stemtide/stemtide_backend/internal/apperrors"
	"github.com/stemtide/stemtide_backend/internal/core/domain"
	portsrepo "github.com/stemtide/stemtide_backend/internal/core/ports/repositories"
	portssvc "github.com/stemtide/stemtide_backend/internal/core/ports/services"
	"github.com/stemtide/stemtide_backend/internal/middleware"
)

// JobCosts maps each job type to the credits charged for it.
type JobCosts struct {
	Separation    decimal.Decimal
	Transcription decimal.Decimal
}

// jobService provides the job lifecycle operations.
type jobService struct {
	jobRepo portsrepo.JobRepositoryWithTx
	costs   JobCosts
}

// NewJobService creates a new JobService.
func NewJobService(jobRepo portsrepo.JobRepositoryWithTx, costs JobCosts) portssvc.JobSvcFacade {
	return &jobService{
		jobRepo: jobRepo,
		costs:   costs,
	}
}

var _ portssvc.JobSvcFacade = (*jobService)(nil)

func (s *jobService) costFor(jobType domain.JobType) decimal.Decimal {
	if jobType == domain.JobTypeTranscription {
		return s.costs.Transcription
	}
	return s.costs.Separation
}

// CreateJob validates the requested options, then debits the cost and inserts
// the job in a single database transaction. The debit entry carries the job id
// so every job maps to exactly one paying ledger entry.
func (s *jobService) CreateJob(ctx context.Context, userID, filename, objectKey string, opts domain.JobOptions) (*domain.Job, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	opts.ApplyDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", apperrors.ErrValidation)
	}

	now := time.Now().UTC()
	cost := s.costFor(opts.JobType)
	job := domain.Job{
		JobID:     uuid.NewString(),
		UserID:    userID,
		Filename:  filename,
		ObjectKey: objectKey,
		Options:   opts,
		Status:    domain.JobPending,
		Cost:      cost,
		CreatedAt: now,
	}

	jobID := job.JobID
	debit := domain.CreditTransaction{
		TransactionID: uuid.NewString(),
		UserID:        userID,
		Amount:        cost.Neg(),
		Description:   fmt.Sprintf("%s job: %s", opts.JobType, filename),
		JobID:         &jobID,
		CreatedAt:     now,
	}

	txn, err := s.jobRepo.CreateJobWithDebit(ctx, job, debit)
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientCredits) {
			logger.Warn("Job creation rejected, insufficient credits",
				slog.String("user_id", userID),
				slog.String("cost", cost.String()),
			)
		}
		return nil, err
	}

	logger.Info("Job created",
		slog.String("job_id", job.JobID),
		slog.String("user_id", userID),
		slog.String("job_type", string(opts.JobType)),
		slog.String("cost", cost.String()),
		slog.String("debit_transaction_id", txn.TransactionID),
	)
	return &job, nil
}

// MarkStarted transitions pending -> processing.
func (s *jobService) MarkStarted(ctx context.Context, jobID string) error {
	if err := s.jobRepo.MarkJobStarted(ctx, jobID, time.Now().UTC()); err != nil {
		return err
	}
	middleware.GetLoggerFromCtx(ctx).Info("Job started", slog.String("job_id", jobID))
	return nil
}

// MarkCompleted transitions processing -> completed.
func (s *jobService) MarkCompleted(ctx context.Context, jobID string, resultKey string) error {
	if resultKey == "" {
		return fmt.Errorf("%w: result key is required on completion", apperrors.ErrValidation)
	}
	if err := s.jobRepo.MarkJobCompleted(ctx, jobID, resultKey, time.Now().UTC()); err != nil {
		return err
	}
	middleware.GetLoggerFromCtx(ctx).Info("Job completed", slog.String("job_id", jobID))
	return nil
}

// MarkFailed transitions pending|processing -> failed and refunds the cost.
// The refund and the status flip commit together; a job is never left failed
// and unpaid-for, nor refunded twice.
func (s *jobService) MarkFailed(ctx context.Context, jobID string, errorMessage string) error {
	if err := s.jobRepo.MarkJobFailedWithRefund(ctx, jobID, errorMessage, time.Now().UTC()); err != nil {
		return err
	}
	middleware.GetLoggerFromCtx(ctx).Warn("Job failed, cost refunded",
		slog.String("job_id", jobID),
		slog.String("error_message", errorMessage),
	)
	return nil
}

// GetJob returns the job only to its owner. Foreign tokens get ErrNotFound,
// never Forbidden, so existence of other users' jobs does not leak.
func (s *jobService) GetJob(ctx context.Context, jobID, requestingUserID string) (*domain.Job, error) {
	job, err := s.jobRepo.FindJobByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.UserID != requestingUserID {
		middleware.GetLoggerFromCtx(ctx).Warn("Job requested by non-owner",
			slog.String("job_id", jobID),
			slog.String("requesting_user_id", requestingUserID),
		)
		return nil, apperrors.ErrNotFound
	}
	return job, nil
}

// ListJobs returns a newest-first page of the user's jobs.
func (s *jobService) ListJobs(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Job, *string, error) {
	jobs, next, err := s.jobRepo.ListJobsByUserID(ctx, userID, limit, nextToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list jobs for user %s: %w", userID, err)
	}
	return jobs, next, nil
}

package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemtide/stemtide_backend/internal/apperrors"
	"github.com/stemtide/stemtide_backend/internal/core/domain"
	portsrepo "github.com/stemtide/stemtide_backend/internal/core/ports/repositories"
	"github.com/stemtide/stemtide_backend/internal/models"
	"github.com/stemtide/stemtide_backend/internal/utils/mapping"
	"github.com/stemtide/stemtide_backend/internal/utils/pagination"
)

type PgxJobRepository struct {
	BaseRepository
	userRepo   *PgxUserRepository
	ledgerRepo *PgxLedgerRepository
}

func newPgxJobRepository(db *pgxpool.Pool, userRepo *PgxUserRepository, ledgerRepo *PgxLedgerRepository) *PgxJobRepository {
	return &PgxJobRepository{
		BaseRepository: BaseRepository{Pool: db},
		userRepo:       userRepo,
		ledgerRepo:     ledgerRepo,
	}
}

// Ensure PgxJobRepository implements portsrepo.JobRepositoryWithTx
var _ portsrepo.JobRepositoryWithTx = (*PgxJobRepository)(nil)

const jobColumns = `job_id, user_id, filename, object_key, result_key, job_type, model, output_format,
		transcription_type, transcription_format, language, status, error_message, cost,
		created_at, started_at, completed_at`

func scanJob(row pgx.Row) (*domain.Job, error) {
	var m models.Job
	err := row.Scan(
		&m.JobID,
		&m.UserID,
		&m.Filename,
		&m.ObjectKey,
		&m.ResultKey,
		&m.JobType,
		&m.Model,
		&m.OutputFormat,
		&m.TranscriptionType,
		&m.TranscriptionFormat,
		&m.Language,
		&m.Status,
		&m.ErrorMessage,
		&m.Cost,
		&m.CreatedAt,
		&m.StartedAt,
		&m.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan job row: %w", err)
	}
	domainJob := mapping.ToDomainJob(m)
	return &domainJob, nil
}

// CreateJobWithDebit inserts the job and debits its cost from the owner in a
// single database transaction. Either both rows land or neither does, so a
// job always has exactly one paying ledger entry.
func (r *PgxJobRepository) CreateJobWithDebit(ctx context.Context, job domain.Job, debit domain.CreditTransaction) (*domain.CreditTransaction, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	user, err := r.userRepo.FindUserByIDForUpdate(ctx, tx, job.UserID)
	if err != nil {
		if isSerializationFailure(err) {
			return nil, fmt.Errorf("locking user %s: %w", job.UserID, apperrors.ErrConcurrencyConflict)
		}
		return nil, err
	}

	newBalance, err := nextBalance(user.Credits, debit.Amount)
	if err != nil {
		return nil, err
	}

	if err := r.insertJobInTx(ctx, tx, job); err != nil {
		return nil, err
	}

	if err := r.userRepo.ApplyBalanceDeltaInTx(ctx, tx, job.UserID, debit.Amount, debit.CreatedAt); err != nil {
		if isSerializationFailure(err) {
			return nil, fmt.Errorf("updating balance for user %s: %w", job.UserID, apperrors.ErrConcurrencyConflict)
		}
		return nil, err
	}

	debit.BalanceAfter = newBalance
	if err := r.ledgerRepo.AppendEntryInTx(ctx, tx, debit); err != nil {
		return nil, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		if isSerializationFailure(err) {
			return nil, fmt.Errorf("committing job for user %s: %w", job.UserID, apperrors.ErrConcurrencyConflict)
		}
		return nil, err
	}
	return &debit, nil
}

func (r *PgxJobRepository) insertJobInTx(ctx context.Context, tx pgx.Tx, job domain.Job) error {
	m := mapping.ToModelJob(job)
	query := `
        INSERT INTO jobs (job_id, user_id, filename, object_key, result_key, job_type, model, output_format,
            transcription_type, transcription_format, language, status, error_message, cost,
            created_at, started_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
    `
	_, err := tx.Exec(ctx, query,
		m.JobID,
		m.UserID,
		m.Filename,
		m.ObjectKey,
		m.ResultKey,
		m.JobType,
		m.Model,
		m.OutputFormat,
		m.TranscriptionType,
		m.TranscriptionFormat,
		m.Language,
		m.Status,
		m.ErrorMessage,
		m.Cost,
		m.CreatedAt,
		m.StartedAt,
		m.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("job %s already exists: %w", job.JobID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

func (r *PgxJobRepository) FindJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1;`
	job, err := scanJob(r.Pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find job by ID %s: %w", jobID, err)
	}
	return job, nil
}

// ListJobsByUserID retrieves a newest-first page of a user's jobs using
// (created_at, job_id) token pagination.
func (r *PgxJobRepository) ListJobsByUserID(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.Job, *string, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
        SELECT ` + jobColumns + `
        FROM jobs
        WHERE user_id = $1
    `
	args := []interface{}{userID}

	if nextToken != nil && *nextToken != "" {
		createdAt, lastID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		query += ` AND (created_at, job_id) < ($2, $3)`
		args = append(args, createdAt, lastID)
	}

	// Fetch one extra row to detect whether another page exists.
	query += fmt.Sprintf(` ORDER BY created_at DESC, job_id DESC LIMIT %d;`, limit+1)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, nil, err
		}
		jobs = append(jobs, *job)
	}
	if rows.Err() != nil {
		return nil, nil, fmt.Errorf("error iterating job rows: %w", rows.Err())
	}

	var next *string
	if len(jobs) > limit {
		jobs = jobs[:limit]
		last := jobs[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.JobID)
		next = &token
	}
	return jobs, next, nil
}

// MarkJobStarted transitions pending -> processing via a conditional update.
// The status predicate in the WHERE clause is what makes concurrent workers
// safe: only one of them gets RowsAffected == 1.
func (r *PgxJobRepository) MarkJobStarted(ctx context.Context, jobID string, now time.Time) error {
	query := `
        UPDATE jobs
        SET status = $1, started_at = $2
        WHERE job_id = $3 AND status = $4;
    `
	cmdTag, err := r.Pool.Exec(ctx, query, domain.JobProcessing, now, jobID, domain.JobPending)
	if err != nil {
		return fmt.Errorf("failed to mark job %s started: %w", jobID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, jobID, domain.JobProcessing)
	}
	return nil
}

// MarkJobCompleted transitions processing -> completed and records the result key.
func (r *PgxJobRepository) MarkJobCompleted(ctx context.Context, jobID string, resultKey string, now time.Time) error {
	query := `
        UPDATE jobs
        SET status = $1, result_key = $2, completed_at = $3
        WHERE job_id = $4 AND status = $5;
    `
	cmdTag, err := r.Pool.Exec(ctx, query, domain.JobCompleted, resultKey, now, jobID, domain.JobProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark job %s completed: %w", jobID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return r.transitionConflict(ctx, jobID, domain.JobCompleted)
	}
	return nil
}

// MarkJobFailedWithRefund transitions pending|processing -> failed and appends
// a compensating credit of the job's cost in the same database transaction.
// The conditional update doubles as the double-refund guard: a job already in
// a terminal state matches zero rows and no credit is written.
func (r *PgxJobRepository) MarkJobFailedWithRefund(ctx context.Context, jobID string, errorMessage string, now time.Time) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	lockQuery := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1 FOR UPDATE;`
	job, err := scanJob(tx.QueryRow(ctx, lockQuery, jobID))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("job %s: %w", jobID, apperrors.ErrNotFound)
		}
		return fmt.Errorf("failed to lock job %s: %w", jobID, err)
	}

	updateQuery := `
        UPDATE jobs
        SET status = $1, error_message = $2, completed_at = $3
        WHERE job_id = $4 AND status IN ($5, $6);
    `
	cmdTag, err := tx.Exec(ctx, updateQuery,
		domain.JobFailed, errorMessage, now, jobID, domain.JobPending, domain.JobProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark job %s failed: %w", jobID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("job %s is already %s: %w", jobID, job.Status, apperrors.ErrInvalidTransition)
	}

	user, err := r.userRepo.FindUserByIDForUpdate(ctx, tx, job.UserID)
	if err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("locking user %s: %w", job.UserID, apperrors.ErrConcurrencyConflict)
		}
		return err
	}

	refundBalance, err := nextBalance(user.Credits, job.Cost)
	if err != nil {
		return err
	}

	if err := r.userRepo.ApplyBalanceDeltaInTx(ctx, tx, job.UserID, job.Cost, now); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("updating balance for user %s: %w", job.UserID, apperrors.ErrConcurrencyConflict)
		}
		return err
	}

	refund := domain.CreditTransaction{
		TransactionID: uuid.NewString(),
		UserID:        job.UserID,
		Amount:        job.Cost,
		BalanceAfter:  refundBalance,
		Description:   fmt.Sprintf("Refund for failed job: %s", job.Filename),
		JobID:         &job.JobID,
		CreatedAt:     now,
	}
	if err := r.ledgerRepo.AppendEntryInTx(ctx, tx, refund); err != nil {
		return err
	}

	if err := r.Commit(ctx, tx); err != nil {
		if isSerializationFailure(err) {
			return fmt.Errorf("committing refund for job %s: %w", jobID, apperrors.ErrConcurrencyConflict)
		}
		return err
	}
	return nil
}

// transitionConflict turns a zero-row conditional update into the right error:
// ErrNotFound when the job does not exist, ErrInvalidTransition otherwise.
func (r *PgxJobRepository) transitionConflict(ctx context.Context, jobID string, wanted domain.JobStatus) error {
	job, err := r.FindJobByID(ctx, jobID)
	if err != nil {
		return err
	}
	return fmt.Errorf("job %s cannot move from %s to %s: %w",
		jobID, job.Status, wanted, apperrors.ErrInvalidTransition)
}

package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemtide/stemtide_backend/internal/apperrors"
	"github.com/stemtide/stemtide_backend/internal/core/domain"
	portsrepo "github.com/stemtide/stemtide_backend/internal/core/ports/repositories"
	"github.com/stemtide/stemtide_backend/internal/models"
	"github.com/stemtide/stemtide_backend/internal/utils/mapping"
	"github.com/stemtide/stemtide_backend/internal/utils/pagination"
)

type PgxLedgerRepository struct {
	BaseRepository
	userRepo *PgxUserRepository
}

func newPgxLedgerRepository(db *pgxpool.Pool, userRepo *PgxUserRepository) *PgxLedgerRepository {
	return &PgxLedgerRepository{
		BaseRepository: BaseRepository{Pool: db},
		userRepo:       userRepo,
	}
}

// Ensure PgxLedgerRepository implements portsrepo.LedgerRepositoryWithTx
var _ portsrepo.LedgerRepositoryWithTx = (*PgxLedgerRepository)(nil)

const transactionColumns = `transaction_id, user_id, amount, balance_after, description, reference, job_id, created_at`

// ApplyEntry mutates the owner's balance and appends the ledger entry in one
// database transaction. The user row lock is the serialization point: two
// concurrent entries for the same user queue on it, so each BalanceAfter
// snapshot is computed against the balance the previous entry left behind.
func (r *PgxLedgerRepository) ApplyEntry(ctx context.Context, entry domain.CreditTransaction) (*domain.CreditTransaction, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()

	user, err := r.userRepo.FindUserByIDForUpdate(ctx, tx, entry.UserID)
	if err != nil {
		if isSerializationFailure(err) {
			return nil, fmt.Errorf("locking user %s: %w", entry.UserID, apperrors.ErrConcurrencyConflict)
		}
		return nil, err
	}

	newBalance, err := nextBalance(user.Credits, entry.Amount)
	if err != nil {
		return nil, err
	}

	if err := r.userRepo.ApplyBalanceDeltaInTx(ctx, tx, entry.UserID, entry.Amount, entry.CreatedAt); err != nil {
		if isSerializationFailure(err) {
			return nil, fmt.Errorf("updating balance for user %s: %w", entry.UserID, apperrors.ErrConcurrencyConflict)
		}
		return nil, err
	}

	entry.BalanceAfter = newBalance
	if err := r.AppendEntryInTx(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := r.Commit(ctx, tx); err != nil {
		if isSerializationFailure(err) {
			return nil, fmt.Errorf("committing ledger entry for user %s: %w", entry.UserID, apperrors.ErrConcurrencyConflict)
		}
		return nil, err
	}
	return &entry, nil
}

// AppendEntryInTx inserts a ledger row inside an existing transaction. The
// caller holds the user row lock and has already set BalanceAfter.
func (r *PgxLedgerRepository) AppendEntryInTx(ctx context.Context, tx pgx.Tx, entry domain.CreditTransaction) error {
	m := mapping.ToModelTransaction(entry)
	query := `
        INSERT INTO credit_transactions (transaction_id, user_id, amount, balance_after, description, reference, job_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
    `
	_, err := tx.Exec(ctx, query,
		m.TransactionID,
		m.UserID,
		m.Amount,
		m.BalanceAfter,
		m.Description,
		m.Reference,
		m.JobID,
		m.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("transaction %s already recorded: %w", entry.TransactionID, apperrors.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}
	return nil
}

// ListTransactionsByUserID retrieves a newest-first page of ledger entries
// using (created_at, transaction_id) token pagination.
func (r *PgxLedgerRepository) ListTransactionsByUserID(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.CreditTransaction, *string, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
        SELECT ` + transactionColumns + `
        FROM credit_transactions
        WHERE user_id = $1
    `
	args := []interface{}{userID}

	if nextToken != nil && *nextToken != "" {
		createdAt, lastID, err := pagination.DecodeToken(*nextToken)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrValidation, err.Error())
		}
		query += ` AND (created_at, transaction_id) < ($2, $3)`
		args = append(args, createdAt, lastID)
	}

	// Fetch one extra row to detect whether another page exists.
	query += fmt.Sprintf(` ORDER BY created_at DESC, transaction_id DESC LIMIT %d;`, limit+1)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	modelTxns := []models.CreditTransaction{}
	for rows.Next() {
		var m models.CreditTransaction
		err := rows.Scan(
			&m.TransactionID,
			&m.UserID,
			&m.Amount,
			&m.BalanceAfter,
			&m.Description,
			&m.Reference,
			&m.JobID,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		modelTxns = append(modelTxns, m)
	}
	if rows.Err() != nil {
		return nil, nil, fmt.Errorf("error iterating ledger rows: %w", rows.Err())
	}

	var next *string
	if len(modelTxns) > limit {
		modelTxns = modelTxns[:limit]
		last := modelTxns[limit-1]
		token := pagination.EncodeToken(last.CreatedAt, last.TransactionID)
		next = &token
	}

	txns := make([]domain.CreditTransaction, len(modelTxns))
	for i, m := range modelTxns {
		txns[i] = mapping.ToDomainTransaction(m)
	}
	return txns, next, nil
}

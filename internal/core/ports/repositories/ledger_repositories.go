package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
)

// LedgerReader defines read operations for the credit transaction history.
type LedgerReader interface {
	// ListTransactionsByUserID retrieves a newest-first page of ledger entries
	// for a user using token-based pagination. It returns the entries, a token
	// for the next page (nil when exhausted), and an error.
	ListTransactionsByUserID(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.CreditTransaction, *string, error)
}

// LedgerWriter defines the single write operation of the append-only ledger.
type LedgerWriter interface {
	// ApplyEntry atomically mutates the owner's balance and appends the entry.
	// The entry's Amount is signed; BalanceAfter is computed inside the same
	// database transaction that locks the user row. Debits that would take the
	// balance below zero fail with ErrInsufficientCredits and leave no row.
	ApplyEntry(ctx context.Context, entry domain.CreditTransaction) (*domain.CreditTransaction, error)

	// AppendEntryInTx appends a ledger entry inside an existing transaction.
	// The caller is responsible for having locked the user row and computed
	// BalanceAfter under that lock.
	AppendEntryInTx(ctx context.Context, tx pgx.Tx, entry domain.CreditTransaction) error
}

// LedgerRepositoryFacade combines all ledger repository interfaces.
type LedgerRepositoryFacade interface {
	LedgerReader
	LedgerWriter
}

// LedgerRepositoryWithTx extends LedgerRepositoryFacade with transaction capabilities.
type LedgerRepositoryWithTx interface {
	LedgerRepositoryFacade
	TransactionManager
}

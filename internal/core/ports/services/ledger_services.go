package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
)

// LedgerSvcFacade defines the credit ledger operations. All mutations are
// atomic per user; concurrent mutations on the same user serialize on the
// user row.
type LedgerSvcFacade interface {
	// Credit increases the user's balance. amount must be positive
	// (ErrInvalidAmount otherwise). Returns the appended ledger entry, whose
	// BalanceAfter is the new balance.
	Credit(ctx context.Context, userID string, amount decimal.Decimal, description, reference string) (*domain.CreditTransaction, error)

	// Debit decreases the user's balance. amount must be positive; a debit
	// exceeding the balance fails with ErrInsufficientCredits and appends
	// nothing. jobID, when non-nil, links the entry to the job it paid for.
	Debit(ctx context.Context, userID string, amount decimal.Decimal, description string, jobID *string) (*domain.CreditTransaction, error)

	// Balance returns the current stored balance without recomputation.
	Balance(ctx context.Context, userID string) (decimal.Decimal, error)

	// History returns a newest-first page of the user's ledger entries.
	History(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.CreditTransaction, *string, error)
}

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

// balanceRetryLimit bounds the transparent retries on serialization conflicts
// before surfacing ErrConcurrencyConflict to the caller.
const balanceRetryLimit = 3

// ledgerService provides the credit ledger operations.
type ledgerService struct {
	userRepo   portsrepo.UserRepositoryFacade
	ledgerRepo portsrepo.LedgerRepositoryWithTx
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(ledgerRepo portsrepo.LedgerRepositoryWithTx, userRepo portsrepo.UserRepositoryFacade) portssvc.LedgerSvcFacade {
	return &ledgerService{
		userRepo:   userRepo,
		ledgerRepo: ledgerRepo,
	}
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// Credit increases the user's balance and appends the matching ledger entry.
func (s *ledgerService) Credit(ctx context.Context, userID string, amount decimal.Decimal, description, reference string) (*domain.CreditTransaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: credit of %s", apperrors.ErrInvalidAmount, amount.String())
	}
	return s.applyWithRetry(ctx, domain.CreditTransaction{
		TransactionID: uuid.NewString(),
		UserID:        userID,
		Amount:        amount,
		Description:   description,
		Reference:     reference,
		CreatedAt:     time.Now().UTC(),
	})
}

// Debit decreases the user's balance and appends the matching ledger entry.
// The signed amount stored in the ledger is negative.
func (s *ledgerService) Debit(ctx context.Context, userID string, amount decimal.Decimal, description string, jobID *string) (*domain.CreditTransaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("%w: debit of %s", apperrors.ErrInvalidAmount, amount.String())
	}
	return s.applyWithRetry(ctx, domain.CreditTransaction{
		TransactionID: uuid.NewString(),
		UserID:        userID,
		Amount:        amount.Neg(),
		Description:   description,
		JobID:         jobID,
		CreatedAt:     time.Now().UTC(),
	})
}

// applyWithRetry funnels every balance mutation through the repository's
// atomic ApplyEntry, retrying a bounded number of times when the database
// reports a serialization conflict.
func (s *ledgerService) applyWithRetry(ctx context.Context, entry domain.CreditTransaction) (*domain.CreditTransaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	var lastErr error
	for attempt := 0; attempt < balanceRetryLimit; attempt++ {
		applied, err := s.ledgerRepo.ApplyEntry(ctx, entry)
		if err == nil {
			logger.Info("Ledger entry applied",
				slog.String("transaction_id", applied.TransactionID),
				slog.String("user_id", applied.UserID),
				slog.String("amount", applied.Amount.String()),
				slog.String("balance_after", applied.BalanceAfter.String()),
			)
			return applied, nil
		}
		if !errors.Is(err, apperrors.ErrConcurrencyConflict) {
			return nil, err
		}
		lastErr = err
		logger.Warn("Balance update conflict, retrying",
			slog.String("user_id", entry.UserID),
			slog.Int("attempt", attempt+1),
		)
	}
	return nil, fmt.Errorf("balance update for user %s: %w", entry.UserID, lastErr)
}

// Balance returns the stored balance. The transaction history is the audit
// trail, not the source of truth; no replay happens here.
func (s *ledgerService) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	user, err := s.userRepo.FindUserByID(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to read balance for user %s: %w", userID, err)
	}
	return user.Credits, nil
}

// History returns a newest-first page of the user's ledger entries.
func (s *ledgerService) History(ctx context.Context, userID string, limit int, nextToken *string) ([]domain.CreditTransaction, *string, error) {
	txns, next, err := s.ledgerRepo.ListTransactionsByUserID(ctx, userID, limit, nextToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list transactions for user %s: %w", userID, err)
	}
	return txns, next, nil
}

package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
)

// UserReader defines read operations for user data.
type UserReader interface {
	// FindUserByID retrieves a user by their unique identifier.
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)

	// FindUserByEmail retrieves a user by their unique email.
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindUserByAPIKey retrieves a user by their opaque API key.
	FindUserByAPIKey(ctx context.Context, apiKey string) (*domain.User, error)
}

// UserWriter defines write operations for user data.
type UserWriter interface {
	// SaveUser persists a new user. Unique violations on email/username map to ErrDuplicate.
	SaveUser(ctx context.Context, user domain.User) error

	// UpdateAPIKey replaces the user's API key.
	UpdateAPIKey(ctx context.Context, userID string, apiKey string, now time.Time) error
}

// UserBalanceSupport defines balance operations that must run inside a
// database transaction. Callers lock the user row first, then apply the delta;
// the two calls together are the per-user serialization point for the ledger.
type UserBalanceSupport interface {
	// FindUserByIDForUpdate selects the user row and locks it for update.
	FindUserByIDForUpdate(ctx context.Context, tx pgx.Tx, userID string) (*domain.User, error)

	// ApplyBalanceDeltaInTx adjusts the user's stored balance by a signed delta.
	ApplyBalanceDeltaInTx(ctx context.Context, tx pgx.Tx, userID string, delta decimal.Decimal, now time.Time) error
}

// UserRepositoryFacade combines all user-related repository interfaces.
type UserRepositoryFacade interface {
	UserReader
	UserWriter
	UserBalanceSupport
}

// UserRepositoryWithTx extends UserRepositoryFacade with transaction capabilities.
type UserRepositoryWithTx interface {
	UserRepositoryFacade
	TransactionManager
}

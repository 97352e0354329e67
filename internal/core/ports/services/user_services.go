package services

import (
	"context"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
	"github.com/stemtide/stemtide_backend/internal/dto"
)

// UserSvcFacade defines the user account operations.
type UserSvcFacade interface {
	// CreateUser registers a new user, grants the starter credits through the
	// ledger, and returns the stored user. Duplicate email/username maps to
	// ErrDuplicate.
	CreateUser(ctx context.Context, req dto.RegisterRequest) (*domain.User, error)

	// Authenticate verifies email + password and returns the user, or
	// ErrUnauthorized on any mismatch.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	// GetUserByID retrieves a user by id.
	GetUserByID(ctx context.Context, userID string) (*domain.User, error)

	// GetUserByAPIKey resolves a user from an opaque API key.
	GetUserByAPIKey(ctx context.Context, apiKey string) (*domain.User, error)

	// RotateAPIKey issues a fresh API key for the user and returns it.
	RotateAPIKey(ctx context.Context, userID string) (string, error)
}

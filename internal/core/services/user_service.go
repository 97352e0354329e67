package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stemtide/stemtide_backend/internal/apperrors"
	"github.com/stemtide/stemtide_backend/internal/core/domain"
	portsrepo "github.com/stemtide/stemtide_backend/internal/core/ports/repositories"
	portssvc "github.com/stemtide/stemtide_backend/internal/core/ports/services"
	"github.com/stemtide/stemtide_backend/internal/dto"
	"github.com/stemtide/stemtide_backend/internal/middleware"
	"github.com/stemtide/stemtide_backend/internal/utils"
)

// userService provides user account operations.
type userService struct {
	userRepo       portsrepo.UserRepositoryFacade
	ledger         portssvc.LedgerSvcFacade
	starterCredits decimal.Decimal
}

// NewUserService creates a new UserService. starterCredits is granted through
// the ledger on registration so the signup bonus shows up in the history like
// any other balance change.
func NewUserService(userRepo portsrepo.UserRepositoryFacade, ledger portssvc.LedgerSvcFacade, starterCredits decimal.Decimal) portssvc.UserSvcFacade {
	return &userService{
		userRepo:       userRepo,
		ledger:         ledger,
		starterCredits: starterCredits,
	}
}

var _ portssvc.UserSvcFacade = (*userService)(nil)

// CreateUser registers a new user and grants the starter credits.
func (s *userService) CreateUser(ctx context.Context, req dto.RegisterRequest) (*domain.User, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		UserID:       uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     strings.TrimSpace(req.Username),
		PasswordHash: hash,
		Credits:      decimal.Zero,
		AuditFields: domain.AuditFields{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	if err := s.userRepo.SaveUser(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			logger.Warn("Registration rejected, email or username taken", slog.String("email", user.Email))
		}
		return nil, err
	}

	if s.starterCredits.IsPositive() {
		txn, err := s.ledger.Credit(ctx, user.UserID, s.starterCredits, "Welcome bonus", "signup")
		if err != nil {
			// The account exists but holds no credits; surface the failure so
			// the caller does not advertise a balance the ledger never granted.
			return nil, fmt.Errorf("failed to grant starter credits to user %s: %w", user.UserID, err)
		}
		user.Credits = txn.BalanceAfter
	}

	logger.Info("User registered",
		slog.String("user_id", user.UserID),
		slog.String("username", user.Username),
		slog.String("starter_credits", s.starterCredits.String()),
	)
	return &user, nil
}

// Authenticate verifies email + password. Unknown email and wrong password
// are indistinguishable to the caller.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.FindUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to look up user by email: %w", err)
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperrors.ErrUnauthorized
	}
	return user, nil
}

// GetUserByID retrieves a user by id.
func (s *userService) GetUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.FindUserByID(ctx, userID)
}

// GetUserByAPIKey resolves a user from an opaque API key.
func (s *userService) GetUserByAPIKey(ctx context.Context, apiKey string) (*domain.User, error) {
	if apiKey == "" {
		return nil, apperrors.ErrUnauthorized
	}
	user, err := s.userRepo.FindUserByAPIKey(ctx, apiKey)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrUnauthorized
		}
		return nil, err
	}
	return user, nil
}

// RotateAPIKey issues a fresh API key, replacing any previous one.
func (s *userService) RotateAPIKey(ctx context.Context, userID string) (string, error) {
	key, err := utils.GenerateSecureRandomString(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	if err := s.userRepo.UpdateAPIKey(ctx, userID, key, time.Now().UTC()); err != nil {
		return "", err
	}
	middleware.GetLoggerFromCtx(ctx).Info("API key rotated", slog.String("user_id", userID))
	return key, nil
}

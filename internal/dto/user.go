package dto

import (
	"time"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
)

// UserResponse is the public representation of a user.
type UserResponse struct {
	UserID    string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Credits   string    `json:"credits"`
	CreatedAt time.Time `json:"created_at"`
}

// ToUserResponse converts a domain.User to its response DTO.
func ToUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		UserID:    u.UserID,
		Email:     u.Email,
		Username:  u.Username,
		Credits:   u.Credits.String(),
		CreatedAt: u.CreatedAt,
	}
}

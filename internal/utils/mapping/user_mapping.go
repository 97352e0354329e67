package mapping

import (
	"database/sql"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
	"github.com/stemtide/stemtide_backend/internal/models"
)

// ToModelUser converts a domain.User to its persistence shape.
func ToModelUser(d domain.User) models.User {
	var apiKey sql.NullString
	if d.APIKey != "" {
		apiKey = sql.NullString{String: d.APIKey, Valid: true}
	}
	return models.User{
		UserID:       d.UserID,
		Email:        d.Email,
		Username:     d.Username,
		PasswordHash: d.PasswordHash,
		APIKey:       apiKey,
		Credits:      d.Credits,
		AuditFields: models.AuditFields{
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		},
	}
}

// ToDomainUser converts a persisted user row back to the domain shape.
func ToDomainUser(m models.User) domain.User {
	return domain.User{
		UserID:       m.UserID,
		Email:        m.Email,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		APIKey:       m.APIKey.String,
		Credits:      m.Credits,
		AuditFields: domain.AuditFields{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
	}
}

package models

import (
	"database/sql"

	"github.com/shopspring/decimal"
)

// User is the persistence shape of a user row.
type User struct {
	UserID       string          `db:"user_id"`
	Email        string          `db:"email"`
	Username     string          `db:"username"`
	PasswordHash string          `db:"password_hash"`
	APIKey       sql.NullString  `db:"api_key"` // added by the schema patch, nullable
	Credits      decimal.Decimal `db:"credits"`
	AuditFields
}

package domain

import (
	"github.com/shopspring/decimal"
)

// User represents an account holder with a metered credit balance.
// Credits is the authoritative stored balance; the transaction history
// exists for audit and must replay to exactly this value.
type User struct {
	UserID       string
	Email        string
	Username     string
	PasswordHash string
	APIKey       string // opaque per-user key for the X-API-Key auth path; empty until issued
	Credits      decimal.Decimal
	AuditFields
}

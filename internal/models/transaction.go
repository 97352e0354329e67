package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// CreditTransaction is the persistence shape of one ledger entry.
// Rows are append-only; there is no update path.
type CreditTransaction struct {
	TransactionID string          `db:"transaction_id"`
	UserID        string          `db:"user_id"`
	Amount        decimal.Decimal `db:"amount"` // signed: positive credit, negative debit
	BalanceAfter  decimal.Decimal `db:"balance_after"`
	Description   string          `db:"description"`
	Reference     sql.NullString  `db:"reference"`
	JobID         sql.NullString  `db:"job_id"` // FK -> jobs.job_id, nullable
	CreatedAt     time.Time       `db:"created_at"`
}

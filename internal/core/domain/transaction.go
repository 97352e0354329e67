package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditTransaction is one immutable entry in a user's credit ledger.
// Amount is signed: positive for purchases/grants/refunds, negative for usage.
// BalanceAfter is the materialized balance snapshot immediately after this
// entry was applied; it is written in the same database transaction that
// mutates the user's balance, never recomputed later.
type CreditTransaction struct {
	TransactionID string
	UserID        string
	Amount        decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
	Reference     string  // external reference, e.g. a payment id
	JobID         *string // set when this entry paid for (or refunded) a job
	CreatedAt     time.Time
}

// IsDebit reports whether this entry reduced the balance.
func (t CreditTransaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

package pgsql

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/stemtide/stemtide_backend/internal/apperrors"
)

// nextBalance computes the balance_after snapshot for one signed ledger
// amount applied to the current balance. Callers invoke it while holding the
// user row lock, so the result is the exact value the appended entry records.
// A debit that would take the balance below zero is rejected with
// ErrInsufficientCredits and nothing should be written.
func nextBalance(current, amount decimal.Decimal) (decimal.Decimal, error) {
	next := current.Add(amount)
	if next.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("balance %s cannot cover %s: %w",
			current.String(), amount.Abs().String(), apperrors.ErrInsufficientCredits)
	}
	return next, nil
}

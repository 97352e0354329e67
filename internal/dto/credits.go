package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
)

// BalanceResponse reports the current credit balance.
type BalanceResponse struct {
	Credits string `json:"credits"`
}

// PurchaseRequest is the payload for buying credits. The payment itself is
// handled upstream; only the captured reference is recorded in the ledger.
type PurchaseRequest struct {
	Amount           decimal.Decimal `json:"amount" binding:"required"`
	PaymentReference string          `json:"payment_reference" binding:"required"`
}

// PurchaseResponse is returned after a successful credit purchase.
type PurchaseResponse struct {
	Message     string `json:"message"`
	Credits     string `json:"credits"`
	AmountAdded string `json:"amount_added"`
}

// TransactionResponse is the public representation of one ledger entry.
type TransactionResponse struct {
	TransactionID string    `json:"id"`
	Amount        string    `json:"amount"`
	BalanceAfter  string    `json:"balance_after"`
	Description   string    `json:"description"`
	Reference     string    `json:"reference,omitempty"`
	JobID         *string   `json:"job_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// HistoryParams are the query parameters for the ledger history listing.
type HistoryParams struct {
	Limit     int     `form:"limit,default=20"`
	NextToken *string `form:"next_token"`
}

// HistoryResponse wraps a page of ledger entries.
type HistoryResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"next_token,omitempty"`
}

// ToTransactionResponse converts a domain ledger entry to its response DTO.
func ToTransactionResponse(t domain.CreditTransaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: t.TransactionID,
		Amount:        t.Amount.String(),
		BalanceAfter:  t.BalanceAfter.String(),
		Description:   t.Description,
		Reference:     t.Reference,
		JobID:         t.JobID,
		CreatedAt:     t.CreatedAt,
	}
}

// ToHistoryResponse converts a page of ledger entries to the response DTO.
func ToHistoryResponse(txns []domain.CreditTransaction, nextToken *string) HistoryResponse {
	out := make([]TransactionResponse, len(txns))
	for i, t := range txns {
		out[i] = ToTransactionResponse(t)
	}
	return HistoryResponse{Transactions: out, NextToken: nextToken}
}

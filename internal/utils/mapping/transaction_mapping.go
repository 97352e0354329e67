package mapping

import (
	"database/sql"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
	"github.com/stemtide/stemtide_backend/internal/models"
)

// ToModelTransaction converts a domain ledger entry to its persistence shape.
func ToModelTransaction(d domain.CreditTransaction) models.CreditTransaction {
	var reference sql.NullString
	if d.Reference != "" {
		reference = sql.NullString{String: d.Reference, Valid: true}
	}
	var jobID sql.NullString
	if d.JobID != nil {
		jobID = sql.NullString{String: *d.JobID, Valid: true}
	}
	return models.CreditTransaction{
		TransactionID: d.TransactionID,
		UserID:        d.UserID,
		Amount:        d.Amount,
		BalanceAfter:  d.BalanceAfter,
		Description:   d.Description,
		Reference:     reference,
		JobID:         jobID,
		CreatedAt:     d.CreatedAt,
	}
}

// ToDomainTransaction converts a persisted ledger row back to the domain shape.
func ToDomainTransaction(m models.CreditTransaction) domain.CreditTransaction {
	d := domain.CreditTransaction{
		TransactionID: m.TransactionID,
		UserID:        m.UserID,
		Amount:        m.Amount,
		BalanceAfter:  m.BalanceAfter,
		Description:   m.Description,
		Reference:     m.Reference.String,
		CreatedAt:     m.CreatedAt,
	}
	if m.JobID.Valid {
		jobID := m.JobID.String
		d.JobID = &jobID
	}
	return d
}

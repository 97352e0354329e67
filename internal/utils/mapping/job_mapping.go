package mapping

import (
	"database/sql"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
	"github.com/stemtide/stemtide_backend/internal/models"
)

func nullable(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// ToModelJob converts a domain.Job to its persistence shape.
func ToModelJob(d domain.Job) models.Job {
	return models.Job{
		JobID:               d.JobID,
		UserID:              d.UserID,
		Filename:            d.Filename,
		ObjectKey:           d.ObjectKey,
		ResultKey:           nullable(d.ResultKey),
		JobType:             string(d.Options.JobType),
		Model:               nullable(string(d.Options.Model)),
		OutputFormat:        nullable(string(d.Options.OutputFormat)),
		TranscriptionType:   nullable(string(d.Options.TranscriptionType)),
		TranscriptionFormat: nullable(string(d.Options.TranscriptionFormat)),
		Language:            nullable(d.Options.Language),
		Status:              string(d.Status),
		ErrorMessage:        nullable(d.ErrorMessage),
		Cost:                d.Cost,
		CreatedAt:           d.CreatedAt,
		StartedAt:           d.StartedAt,
		CompletedAt:         d.CompletedAt,
	}
}

// ToDomainJob converts a persisted job row back to the domain shape.
func ToDomainJob(m models.Job) domain.Job {
	return domain.Job{
		JobID:     m.JobID,
		UserID:    m.UserID,
		Filename:  m.Filename,
		ObjectKey: m.ObjectKey,
		ResultKey: m.ResultKey.String,
		Options: domain.JobOptions{
			JobType:             domain.JobType(m.JobType),
			Model:               domain.SeparationModel(m.Model.String),
			OutputFormat:        domain.OutputFormat(m.OutputFormat.String),
			TranscriptionType:   domain.TranscriptionType(m.TranscriptionType.String),
			TranscriptionFormat: domain.TranscriptionFormat(m.TranscriptionFormat.String),
			Language:            m.Language.String,
		},
		Status:       domain.JobStatus(m.Status),
		ErrorMessage: m.ErrorMessage.String,
		Cost:         m.Cost,
		CreatedAt:    m.CreatedAt,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
	}
}

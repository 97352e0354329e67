package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Job is the persistence shape of a job row. Type-specific sub-options are
// nullable columns; the domain layer guarantees only the applicable set is
// populated for a given job_type.
type Job struct {
	JobID               string          `db:"job_id"`
	UserID              string          `db:"user_id"`
	Filename            string          `db:"filename"`
	ObjectKey           string          `db:"object_key"`
	ResultKey           sql.NullString  `db:"result_key"`
	JobType             string          `db:"job_type"`
	Model               sql.NullString  `db:"model"`
	OutputFormat        sql.NullString  `db:"output_format"`
	TranscriptionType   sql.NullString  `db:"transcription_type"`
	TranscriptionFormat sql.NullString  `db:"transcription_format"`
	Language            sql.NullString  `db:"language"`
	Status              string          `db:"status"`
	ErrorMessage        sql.NullString  `db:"error_message"`
	Cost                decimal.Decimal `db:"cost"`
	CreatedAt           time.Time       `db:"created_at"`
	StartedAt           *time.Time      `db:"started_at"`
	CompletedAt         *time.Time      `db:"completed_at"`
}

package dto

import (
	"time"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
)

// CreateJobForm carries the job options alongside the multipart file field.
// Enumeration values are validated again by the domain layer; the binding
// tags only reject obviously malformed input early.
type CreateJobForm struct {
	JobType             string `form:"job_type,default=separation"`
	Model               string `form:"model"`
	OutputFormat        string `form:"output_format"`
	TranscriptionType   string `form:"transcription_type"`
	TranscriptionFormat string `form:"transcription_format"`
	Language            string `form:"language" binding:"omitempty,max=10"`
}

// Options converts the raw form fields into domain job options.
func (f CreateJobForm) Options() domain.JobOptions {
	return domain.JobOptions{
		JobType:             domain.JobType(f.JobType),
		Model:               domain.SeparationModel(f.Model),
		OutputFormat:        domain.OutputFormat(f.OutputFormat),
		TranscriptionType:   domain.TranscriptionType(f.TranscriptionType),
		TranscriptionFormat: domain.TranscriptionFormat(f.TranscriptionFormat),
		Language:            f.Language,
	}
}

// JobResponse is the public representation of a job.
type JobResponse struct {
	JobID               string     `json:"id"`
	Filename            string     `json:"filename"`
	JobType             string     `json:"job_type"`
	Model               string     `json:"model,omitempty"`
	OutputFormat        string     `json:"output_format,omitempty"`
	TranscriptionType   string     `json:"transcription_type,omitempty"`
	TranscriptionFormat string     `json:"transcription_format,omitempty"`
	Language            string     `json:"language,omitempty"`
	Status              string     `json:"status"`
	ErrorMessage        string     `json:"error_message,omitempty"`
	Cost                string     `json:"cost"`
	DownloadURL         string     `json:"download_url,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	StartedAt           *time.Time `json:"started_at,omitempty"`
	CompletedAt         *time.Time `json:"completed_at,omitempty"`
}

// ListJobsParams are the query parameters for the job listing.
type ListJobsParams struct {
	Limit     int     `form:"limit,default=20"`
	NextToken *string `form:"next_token"`
}

// ListJobsResponse wraps a page of jobs.
type ListJobsResponse struct {
	Jobs      []JobResponse `json:"jobs"`
	NextToken *string       `json:"next_token,omitempty"`
}

// ToJobResponse converts a domain.Job to its response DTO. downloadURL may be
// empty; it is only populated for completed jobs.
func ToJobResponse(j *domain.Job, downloadURL string) JobResponse {
	return JobResponse{
		JobID:               j.JobID,
		Filename:            j.Filename,
		JobType:             string(j.Options.JobType),
		Model:               string(j.Options.Model),
		OutputFormat:        string(j.Options.OutputFormat),
		TranscriptionType:   string(j.Options.TranscriptionType),
		TranscriptionFormat: string(j.Options.TranscriptionFormat),
		Language:            j.Options.Language,
		Status:              string(j.Status),
		ErrorMessage:        j.ErrorMessage,
		Cost:                j.Cost.String(),
		DownloadURL:         downloadURL,
		CreatedAt:           j.CreatedAt,
		StartedAt:           j.StartedAt,
		CompletedAt:         j.CompletedAt,
	}
}

// ToListJobsResponse converts a page of jobs to the response DTO.
func ToListJobsResponse(jobs []domain.Job, nextToken *string) ListJobsResponse {
	out := make([]JobResponse, len(jobs))
	for i := range jobs {
		out[i] = ToJobResponse(&jobs[i], "")
	}
	return ListJobsResponse{Jobs: out, NextToken: nextToken}
}

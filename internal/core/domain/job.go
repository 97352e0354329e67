package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stemtide/stemtide_backend/internal/apperrors"
)

// JobStatus is the lifecycle state of a processing job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// CanTransitionTo reports whether moving from s to next is a legal lifecycle
// step. The machine is one-directional: pending -> processing -> completed or
// failed, with pending -> failed allowed for pre-flight failures. Terminal
// states have no exits.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobPending:
		return next == JobProcessing || next == JobFailed
	case JobProcessing:
		return next == JobCompleted || next == JobFailed
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobType selects the processing pipeline.
type JobType string

const (
	JobTypeSeparation    JobType = "separation"
	JobTypeTranscription JobType = "transcription"
)

// SeparationModel selects the Demucs model for separation jobs.
type SeparationModel string

const (
	ModelHTDemucs   SeparationModel = "htdemucs"
	ModelHTDemucsFT SeparationModel = "htdemucs_ft"
	ModelHTDemucs6S SeparationModel = "htdemucs_6s"
	ModelHDemucsMMI SeparationModel = "hdemucs_mmi"
)

// OutputFormat is the audio format of separated stems.
type OutputFormat string

const (
	FormatMP3 OutputFormat = "mp3"
	FormatWAV OutputFormat = "wav"
)

// TranscriptionType selects the flavor of transcription output.
type TranscriptionType string

const (
	TranscriptionBasic       TranscriptionType = "basic"
	TranscriptionTimestamped TranscriptionType = "timestamped"
	TranscriptionSubtitles   TranscriptionType = "subtitles"
	TranscriptionLyrics      TranscriptionType = "lyrics"
)

// TranscriptionFormat is the serialization format of a transcription result.
type TranscriptionFormat string

const (
	TranscriptionTXT  TranscriptionFormat = "txt"
	TranscriptionJSON TranscriptionFormat = "json"
	TranscriptionSRT  TranscriptionFormat = "srt"
	TranscriptionVTT  TranscriptionFormat = "vtt"
	TranscriptionLRC  TranscriptionFormat = "lrc"
)

// JobOptions are the type-specific sub-options of a job request. Fields that
// do not apply to the chosen JobType must be empty.
type JobOptions struct {
	JobType             JobType
	Model               SeparationModel     // separation only
	OutputFormat        OutputFormat        // separation only
	TranscriptionType   TranscriptionType   // transcription only
	TranscriptionFormat TranscriptionFormat // transcription only
	Language            string              // transcription only, free-form short code
}

// ApplyDefaults fills the per-type defaults for omitted sub-options.
func (o *JobOptions) ApplyDefaults() {
	switch o.JobType {
	case JobTypeSeparation:
		if o.Model == "" {
			o.Model = ModelHTDemucs
		}
		if o.OutputFormat == "" {
			o.OutputFormat = FormatMP3
		}
	case JobTypeTranscription:
		if o.TranscriptionType == "" {
			o.TranscriptionType = TranscriptionBasic
		}
		if o.TranscriptionFormat == "" {
			o.TranscriptionFormat = TranscriptionTXT
		}
	}
}

// Validate checks that the job type and its sub-options form one of the
// recognized combinations. Enumerations are closed at this boundary; nothing
// deeper in the core accepts an arbitrary string.
func (o JobOptions) Validate() error {
	switch o.JobType {
	case JobTypeSeparation:
		switch o.Model {
		case ModelHTDemucs, ModelHTDemucsFT, ModelHTDemucs6S, ModelHDemucsMMI:
		default:
			return fmt.Errorf("%w: unknown separation model %q", apperrors.ErrValidation, o.Model)
		}
		switch o.OutputFormat {
		case FormatMP3, FormatWAV:
		default:
			return fmt.Errorf("%w: unknown output format %q", apperrors.ErrValidation, o.OutputFormat)
		}
		if o.TranscriptionType != "" || o.TranscriptionFormat != "" || o.Language != "" {
			return fmt.Errorf("%w: transcription options are not valid for separation jobs", apperrors.ErrValidation)
		}
	case JobTypeTranscription:
		switch o.TranscriptionType {
		case TranscriptionBasic, TranscriptionTimestamped, TranscriptionSubtitles, TranscriptionLyrics:
		default:
			return fmt.Errorf("%w: unknown transcription type %q", apperrors.ErrValidation, o.TranscriptionType)
		}
		switch o.TranscriptionFormat {
		case TranscriptionTXT, TranscriptionJSON, TranscriptionSRT, TranscriptionVTT, TranscriptionLRC:
		default:
			return fmt.Errorf("%w: unknown transcription format %q", apperrors.ErrValidation, o.TranscriptionFormat)
		}
		if o.Model != "" || o.OutputFormat != "" {
			return fmt.Errorf("%w: separation options are not valid for transcription jobs", apperrors.ErrValidation)
		}
	default:
		return fmt.Errorf("%w: unknown job type %q", apperrors.ErrValidation, o.JobType)
	}
	return nil
}

// Job is one unit of requested processing work and its lifecycle state.
// JobID is a UUID so references in URLs are unguessable.
type Job struct {
	JobID        string
	UserID       string
	Filename     string
	ObjectKey    string // location of the uploaded payload in object storage
	ResultKey    string // location of the result, set on completion
	Options      JobOptions
	Status       JobStatus
	ErrorMessage string
	Cost         decimal.Decimal
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Package worker runs queued jobs through the processing engine and records
// the outcome.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stemtide/stemtide_backend/internal/apperrors"
	"github.com/stemtide/stemtide_backend/internal/core/ports"
	portsrepo "github.com/stemtide/stemtide_backend/internal/core/ports/repositories"
	portssvc "github.com/stemtide/stemtide_backend/internal/core/ports/services"
	"github.com/stemtide/stemtide_backend/internal/middleware"
	"github.com/stemtide/stemtide_backend/internal/queue"
)

// Processor handles one queued job end to end: claim it, run the engine,
// record completion or failure. Engine failures are recorded on the job (with
// the refund that entails) and the message is acked; only infrastructure
// errors propagate so the message is rejected.
type Processor struct {
	jobReader portsrepo.JobReader
	jobSvc    portssvc.JobSvcFacade
	engine    ports.Engine
	logger    *slog.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(jobReader portsrepo.JobReader, jobSvc portssvc.JobSvcFacade, engine ports.Engine, logger *slog.Logger) *Processor {
	return &Processor{
		jobReader: jobReader,
		jobSvc:    jobSvc,
		engine:    engine,
		logger:    logger,
	}
}

// Handle implements queue.Handler.
func (p *Processor) Handle(ctx context.Context, event queue.JobQueuedEvent) error {
	logger := p.logger.With(slog.String("job_id", event.JobID))
	ctx = middleware.WithLogger(ctx, logger)

	job, err := p.jobReader.FindJobByID(ctx, event.JobID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Job row gone (e.g. user deleted); nothing to do.
			logger.Warn("Queued job no longer exists")
			return nil
		}
		return fmt.Errorf("loading job %s: %w", event.JobID, err)
	}

	if job.Status.IsTerminal() {
		// Redelivered message for a job that already finished.
		logger.Info("Skipping already finished job", slog.String("status", string(job.Status)))
		return nil
	}

	if err := p.jobSvc.MarkStarted(ctx, job.JobID); err != nil {
		if errors.Is(err, apperrors.ErrInvalidTransition) {
			// Another worker claimed it between our read and the update.
			logger.Info("Job claimed elsewhere, skipping")
			return nil
		}
		return fmt.Errorf("claiming job %s: %w", event.JobID, err)
	}

	start := time.Now()
	resultKey, err := p.engine.Process(ctx, *job)
	if err != nil {
		logger.Warn("Engine processing failed", slog.String("error", err.Error()))
		if failErr := p.jobSvc.MarkFailed(ctx, job.JobID, err.Error()); failErr != nil {
			return fmt.Errorf("recording failure of job %s: %w", event.JobID, failErr)
		}
		return nil
	}

	if err := p.jobSvc.MarkCompleted(ctx, job.JobID, resultKey); err != nil {
		return fmt.Errorf("recording completion of job %s: %w", event.JobID, err)
	}

	logger.Info("Job processed",
		slog.String("result_key", resultKey),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

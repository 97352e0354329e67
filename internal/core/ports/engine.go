package ports

import (
	"context"

	"github.com/stemtide/stemtide_backend/internal/core/domain"
)

// Engine is the external separation/transcription service. The worker hands
// it a job (payload location + options) and receives the object key of the
// produced result. The computation itself is entirely outside this backend.
type Engine interface {
	Process(ctx context.Context, job domain.Job) (resultKey string, err error)
}

package services

import (
	portsrepo "github.com/stemtide/stemtide_backend/internal/core/ports/repositories"
	portssvc "github.com/stemtide/stemtide_backend/internal/core/ports/services"
	"github.com/stemtide/stemtide_backend/internal/platform/config"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	container := &portssvc.ServiceContainer{}

	// Ledger first since user registration grants credits through it
	container.Ledger = NewLedgerService(repos.LedgerRepo, repos.UserRepo)

	container.User = NewUserService(repos.UserRepo, container.Ledger, cfg.StarterCredits)

	container.Job = NewJobService(repos.JobRepo, JobCosts{
		Separation:    cfg.SeparationCost,
		Transcription: cfg.TranscriptionCost,
	})

	return container
}

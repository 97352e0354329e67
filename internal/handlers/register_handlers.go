package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/stemtide/stemtide_backend/internal/core/ports"
	portssvc "github.com/stemtide/stemtide_backend/internal/core/ports/services"
	"github.com/stemtide/stemtide_backend/internal/middleware"
	"github.com/stemtide/stemtide_backend/internal/platform/config"
)

// RegisterRoutes sets up all application routes, injecting dependencies using interfaces
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	storage ports.ObjectStorage,
	publisher ports.JobPublisher,
) {
	r.GET("/health", Health)

	// Public authentication routes
	registerAuthRoutes(r, cfg, services.User)

	// Authenticated API routes
	setupAPIV1Routes(r, cfg, services, storage, publisher)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to specific entity route registrations
func setupAPIV1Routes(
	r *gin.Engine,
	cfg *config.Config,
	services *portssvc.ServiceContainer,
	storage ports.ObjectStorage,
	publisher ports.JobPublisher,
) {
	// API key auth runs first; requests it authenticates skip the JWT check
	v1 := r.Group("/api/v1",
		middleware.APIKeyAuth(services.User),
		middleware.AuthMiddleware(cfg.JWTSecret),
	)

	registerAuthProtectedRoutes(v1, services.User)
	RegisterCreditsRoutes(v1, services.Ledger)
	RegisterJobsRoutes(v1, services.Job, storage, publisher)
}

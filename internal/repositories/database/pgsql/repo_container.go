package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/stemtide/stemtide_backend/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	userRepo := newPgxUserRepository(dbPool)
	ledgerRepo := newPgxLedgerRepository(dbPool, userRepo)
	jobRepo := newPgxJobRepository(dbPool, userRepo, ledgerRepo)

	return portsrepo.RepositoryProvider{
		UserRepo:   userRepo,
		LedgerRepo: ledgerRepo,
		JobRepo:    jobRepo,
	}
}

package repositories

// RepositoryProvider bundles the concrete repositories for wiring.
type RepositoryProvider struct {
	UserRepo   UserRepositoryWithTx
	LedgerRepo LedgerRepositoryWithTx
	JobRepo    JobRepositoryWithTx
}

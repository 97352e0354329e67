package services

// ServiceContainer bundles the application services for route wiring.
type ServiceContainer struct {
	User   UserSvcFacade
	Ledger LedgerSvcFacade
	Job    JobSvcFacade
}

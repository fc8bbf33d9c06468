package services

// ServiceContainer holds the service facades handed to the handler layer.
type ServiceContainer struct {
	Account    AccountSvcFacade
	Ledger     LedgerSvc
	RateLimit  RateLimitSvc
	Transfer   TransferSvc
	Governance GovernanceSvc
	Roster     RosterSvc
	Queue      SettlementQueue
	Notifier   Notifier
}

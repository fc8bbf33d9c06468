package services

import (
	portsrepo "github.com/civpoints/community_points_app/internal/core/ports/repositories"
	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
	"github.com/civpoints/community_points_app/internal/platform/config"
)

// NewServiceContainer wires the service graph. The settlement pool settles
// through the transfer service and the transfer service enqueues onto the
// pool, so the queue is attached after both exist.
func NewServiceContainer(repos *portsrepo.RepositoryProvider, notifier portssvc.Notifier, cfg *config.Config) (*portssvc.ServiceContainer, *TransferPool) {
	accountSvc := NewAccountService(repos.AccountRepo, WithDepartments(cfg.Departments()))
	ledgerSvc := NewLedgerService(repos.LedgerRepo, repos.AccountRepo)
	rateLimitSvc := NewRateLimitService(repos.RateLimit, RateLimitConfig{
		Cooldown: cfg.TransferCooldown,
		Window:   cfg.RateLimitWindow,
		DailyCap: cfg.DailyTransferCap,
	})

	transferSvc := NewTransferService(repos.TransferRepo, repos.AccountRepo, ledgerSvc, rateLimitSvc, cfg.PendingTransferTTL)
	pool := NewTransferPool(transferSvc, repos.TransferRepo, notifier, TransferPoolConfig{
		Workers:        cfg.PoolWorkers,
		QueueSize:      cfg.PoolQueueSize,
		MaxRetries:     uint(cfg.SettlementRetries),
		InitialBackoff: cfg.SettlementBackoff,
	})
	transferSvc.AttachQueue(pool)

	governanceSvc := NewGovernanceService(repos.ProposalRepo, repos.RosterRepo, repos.AccountRepo, notifier, cfg.ThresholdFor, cfg.ProposalTTL)
	rosterSvc := NewRosterService(repos.RosterRepo)

	return &portssvc.ServiceContainer{
		Account:    accountSvc,
		Ledger:     ledgerSvc,
		RateLimit:  rateLimitSvc,
		Transfer:   transferSvc,
		Governance: governanceSvc,
		Roster:     rosterSvc,
		Queue:      pool,
		Notifier:   notifier,
	}, pool
}

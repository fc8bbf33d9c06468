package pgsql

import (
	portsrepo "github.com/civpoints/community_points_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewRepositoryProvider wires all PostgreSQL repositories over one pool.
func NewRepositoryProvider(pool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo:  newPgxAccountRepository(pool),
		LedgerRepo:   newPgxLedgerRepository(pool),
		TransferRepo: newPgxPendingTransferRepository(pool),
		RateLimit:    newPgxRateLimitRepository(pool),
		ProposalRepo: newPgxProposalRepository(pool),
		RosterRepo:   newPgxBodyRosterRepository(pool),
	}
}

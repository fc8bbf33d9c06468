package repositories

import (
	"context"

	"github.com/civpoints/community_points_app/internal/core/domain"
)

// AccountReader defines read operations for account data.
type AccountReader interface {
	// FindAccountByID retrieves one account scoped to a community.
	FindAccountByID(ctx context.Context, communityID, accountID string) (*domain.Account, error)

	// ListAccounts retrieves a paginated list of accounts for a community.
	ListAccounts(ctx context.Context, communityID string, limit, offset int) ([]domain.Account, error)
}

// AccountWriter defines write operations for account data.
type AccountWriter interface {
	// EnsureAccount persists an account if it does not exist yet. Idempotent:
	// re-ensuring an existing account is a no-op and never resets its balance.
	EnsureAccount(ctx context.Context, account domain.Account) error

	// SetAccountFrozen flips the frozen flag on an account.
	SetAccountFrozen(ctx context.Context, communityID, accountID string, frozen bool, actorID string) error
}

// AccountRepositoryFacade combines all account-related repository interfaces.
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}

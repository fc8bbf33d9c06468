package services

import (
	"context"

	"github.com/civpoints/community_points_app/internal/core/domain"
)

// AccountReaderSvc defines read operations for account data.
type AccountReaderSvc interface {
	// GetAccount retrieves one account scoped to a community.
	GetAccount(ctx context.Context, communityID, accountID string) (*domain.Account, error)

	// ListAccounts retrieves a paginated list of accounts for a community.
	ListAccounts(ctx context.Context, communityID string, limit, offset int) ([]domain.Account, error)
}

// AccountWriterSvc defines write operations for account data.
type AccountWriterSvc interface {
	// EnsureAccount lazily creates a personal account on first reference.
	EnsureAccount(ctx context.Context, communityID, accountID string) (*domain.Account, error)

	// EnsureCommunityAccounts upserts the collective accounts for every
	// governing body and configured department of a community. Idempotent;
	// invoked from the panel-open path.
	EnsureCommunityAccounts(ctx context.Context, communityID string) ([]domain.Account, error)

	// SetFrozen flips the frozen flag on an account.
	SetFrozen(ctx context.Context, communityID, accountID string, frozen bool, actorID string) error
}

// AccountSvcFacade combines all account-related service interfaces.
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
}

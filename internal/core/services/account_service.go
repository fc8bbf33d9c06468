package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/civpoints/community_points_app/internal/core/domain"
	portsrepo "github.com/civpoints/community_points_app/internal/core/ports/repositories"
	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
)

// accountService implements the AccountSvcFacade interface.
type accountService struct {
	BaseService
	accountRepo portsrepo.AccountRepositoryFacade
	departments []domain.Department
}

// AccountServiceOption is a functional option for configuring the account service.
type AccountServiceOption func(*accountService)

// WithDepartments supplies the configured department table used when
// ensuring community accounts.
func WithDepartments(departments []domain.Department) AccountServiceOption {
	return func(s *accountService) {
		s.departments = departments
	}
}

// NewAccountService creates a new account service with the provided options.
func NewAccountService(repo portsrepo.AccountRepositoryFacade, options ...AccountServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{accountRepo: repo}
	for _, option := range options {
		option(svc)
	}
	return svc
}

// Ensure accountService implements the AccountSvcFacade interface
var _ portssvc.AccountSvcFacade = (*accountService)(nil)

// lazyAccount builds the zero-balance row inserted on first reference to an
// account. A derived collective ID gets the collective kind and no balance
// floor, so lazy creation and the explicit community ensure always agree on
// the account shape no matter which path touches it first.
func lazyAccount(communityID, accountID string, now time.Time) domain.Account {
	kind := domain.AccountPersonal
	allowNegative := false
	if domain.DerivedCollectiveID(accountID, communityID) {
		kind = domain.AccountCollective
		allowNegative = true
	}
	return domain.Account{
		CommunityID:   communityID,
		AccountID:     accountID,
		Kind:          kind,
		Balance:       0,
		AllowNegative: allowNegative,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     accountID,
			LastUpdatedAt: now,
			LastUpdatedBy: accountID,
		},
	}
}

// EnsureAccount lazily creates an account on first reference. Accounts are
// never deleted, only zeroed, so the upsert never resets state.
func (s *accountService) EnsureAccount(ctx context.Context, communityID, accountID string) (*domain.Account, error) {
	account := lazyAccount(communityID, accountID, time.Now())
	if err := s.accountRepo.EnsureAccount(ctx, account); err != nil {
		s.LogError(ctx, err, "Failed to ensure account",
			slog.String("community_id", communityID),
			slog.String("account_id", accountID))
		return nil, err
	}
	return s.accountRepo.FindAccountByID(ctx, communityID, accountID)
}

// EnsureCommunityAccounts upserts the collective accounts for all governing
// bodies and configured departments. Invoked from the panel-open path; safe
// to call any number of times.
func (s *accountService) EnsureCommunityAccounts(ctx context.Context, communityID string) ([]domain.Account, error) {
	now := time.Now()
	var ensured []domain.Account

	collective := func(accountID string) domain.Account {
		return domain.Account{
			CommunityID:   communityID,
			AccountID:     accountID,
			Kind:          domain.AccountCollective,
			Balance:       0,
			AllowNegative: true, // collective floors are a configurable invariant
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     "engine",
				LastUpdatedAt: now,
				LastUpdatedBy: "engine",
			},
		}
	}

	for _, body := range domain.AllBodies() {
		acc := collective(domain.CollectiveAccountID(body, communityID))
		if err := s.accountRepo.EnsureAccount(ctx, acc); err != nil {
			s.LogError(ctx, err, "Failed to ensure body account",
				slog.String("community_id", communityID),
				slog.String("body", string(body)))
			return nil, err
		}
		ensured = append(ensured, acc)
	}

	for _, dept := range s.departments {
		acc := collective(domain.DepartmentAccountID(dept.Prefix, communityID))
		if err := s.accountRepo.EnsureAccount(ctx, acc); err != nil {
			s.LogError(ctx, err, "Failed to ensure department account",
				slog.String("community_id", communityID),
				slog.String("department", dept.Key))
			return nil, err
		}
		ensured = append(ensured, acc)
	}

	s.LogInfo(ctx, "Community accounts ensured",
		slog.String("community_id", communityID),
		slog.Int("count", len(ensured)))
	return ensured, nil
}

// GetAccount retrieves one account scoped to a community.
func (s *accountService) GetAccount(ctx context.Context, communityID, accountID string) (*domain.Account, error) {
	return s.accountRepo.FindAccountByID(ctx, communityID, accountID)
}

// ListAccounts retrieves a paginated list of accounts for a community.
func (s *accountService) ListAccounts(ctx context.Context, communityID string, limit, offset int) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAccounts(ctx, communityID, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts", slog.String("community_id", communityID))
		return nil, err
	}
	if accounts == nil {
		return []domain.Account{}, nil
	}
	return accounts, nil
}

// SetFrozen flips the frozen flag on an account.
func (s *accountService) SetFrozen(ctx context.Context, communityID, accountID string, frozen bool, actorID string) error {
	if err := s.accountRepo.SetAccountFrozen(ctx, communityID, accountID, frozen, actorID); err != nil {
		s.LogError(ctx, err, "Failed to set account frozen flag",
			slog.String("community_id", communityID),
			slog.String("account_id", accountID),
			slog.Bool("frozen", frozen))
		return err
	}
	s.LogInfo(ctx, "Account frozen flag updated",
		slog.String("account_id", accountID),
		slog.Bool("frozen", frozen))
	return nil
}

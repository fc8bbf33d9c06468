package services_test

import (
	"context"
	"time"

	"github.com/civpoints/community_points_app/internal/core/domain"
	portsrepo "github.com/civpoints/community_points_app/internal/core/ports/repositories"
	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
	"github.com/stretchr/testify/mock"
)

// --- Mock AccountRepositoryFacade ---

type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) EnsureAccount(ctx context.Context, account domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) FindAccountByID(ctx context.Context, communityID, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, communityID, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) ListAccounts(ctx context.Context, communityID string, limit, offset int) ([]domain.Account, error) {
	args := m.Called(ctx, communityID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Account), args.Error(1)
}

func (m *MockAccountRepository) SetAccountFrozen(ctx context.Context, communityID, accountID string, frozen bool, actorID string) error {
	args := m.Called(ctx, communityID, accountID, frozen, actorID)
	return args.Error(0)
}

// --- Mock LedgerRepository ---

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) ApplyAdjust(ctx context.Context, delta int64, txn domain.Transaction) (int64, error) {
	args := m.Called(ctx, delta, txn)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerRepository) ApplyTransfer(ctx context.Context, txn domain.Transaction) (int64, int64, error) {
	args := m.Called(ctx, txn)
	return args.Get(0).(int64), args.Get(1).(int64), args.Error(2)
}

func (m *MockLedgerRepository) FindTransactionByID(ctx context.Context, communityID, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, communityID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedgerRepository) ListTransactions(ctx context.Context, communityID, accountID string, limit, offset int) ([]domain.Transaction, error) {
	args := m.Called(ctx, communityID, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

// --- Mock RateLimitRepository ---

type MockRateLimitRepository struct {
	mock.Mock
}

func (m *MockRateLimitRepository) CheckAndRecord(ctx context.Context, check portsrepo.RateLimitCheck) (bool, *domain.RateLimitWindow, error) {
	args := m.Called(ctx, check)
	var window *domain.RateLimitWindow
	if args.Get(1) != nil {
		window = args.Get(1).(*domain.RateLimitWindow)
	}
	return args.Bool(0), window, args.Error(2)
}

// --- Mock PendingTransferRepository ---

type MockPendingTransferRepository struct {
	mock.Mock
}

func (m *MockPendingTransferRepository) CreatePendingTransfer(ctx context.Context, transfer domain.PendingTransfer) error {
	args := m.Called(ctx, transfer)
	return args.Error(0)
}

func (m *MockPendingTransferRepository) FindPendingTransferByID(ctx context.Context, transferID string) (*domain.PendingTransfer, error) {
	args := m.Called(ctx, transferID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingTransfer), args.Error(1)
}

func (m *MockPendingTransferRepository) DecidePendingTransfer(ctx context.Context, transferID string, state domain.PendingTransferState, decidedAt time.Time) (*domain.PendingTransfer, error) {
	args := m.Called(ctx, transferID, state, decidedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingTransfer), args.Error(1)
}

func (m *MockPendingTransferRepository) SettlePendingTransfer(ctx context.Context, transferID string, txn domain.Transaction) (*domain.PendingTransfer, error) {
	args := m.Called(ctx, transferID, txn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PendingTransfer), args.Error(1)
}

func (m *MockPendingTransferRepository) ExpirePendingTransfers(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockPendingTransferRepository) MarkPendingTransferExpired(ctx context.Context, transferID string, now time.Time) error {
	args := m.Called(ctx, transferID, now)
	return args.Error(0)
}

func (m *MockPendingTransferRepository) ListApprovedUnsettled(ctx context.Context, limit int) ([]domain.PendingTransfer, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PendingTransfer), args.Error(1)
}

// --- Mock ProposalRepository ---

type MockProposalRepository struct {
	mock.Mock
}

func (m *MockProposalRepository) CreateProposal(ctx context.Context, proposal domain.Proposal) error {
	args := m.Called(ctx, proposal)
	return args.Error(0)
}

func (m *MockProposalRepository) FindProposalByID(ctx context.Context, proposalID string) (*domain.Proposal, error) {
	args := m.Called(ctx, proposalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Proposal), args.Error(1)
}

func (m *MockProposalRepository) CastVote(ctx context.Context, vote domain.Vote) (*domain.Proposal, domain.Tally, error) {
	args := m.Called(ctx, vote)
	if args.Get(0) == nil {
		return nil, domain.Tally{}, args.Error(2)
	}
	return args.Get(0).(*domain.Proposal), args.Get(1).(domain.Tally), args.Error(2)
}

func (m *MockProposalRepository) GetTally(ctx context.Context, proposalID string) (domain.Tally, error) {
	args := m.Called(ctx, proposalID)
	return args.Get(0).(domain.Tally), args.Error(1)
}

func (m *MockProposalRepository) ExecuteProposal(ctx context.Context, proposalID string, txn *domain.Transaction) error {
	args := m.Called(ctx, proposalID, txn)
	return args.Error(0)
}

func (m *MockProposalRepository) ExpireProposals(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func (m *MockProposalRepository) ListResolvedUnexecuted(ctx context.Context, limit int) ([]domain.Proposal, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Proposal), args.Error(1)
}

// --- Mock BodyRosterRepository ---

type MockBodyRosterRepository struct {
	mock.Mock
}

func (m *MockBodyRosterRepository) AddMember(ctx context.Context, communityID string, body domain.BodyKind, userID, actorID string) error {
	args := m.Called(ctx, communityID, body, userID, actorID)
	return args.Error(0)
}

func (m *MockBodyRosterRepository) RemoveMember(ctx context.Context, communityID string, body domain.BodyKind, userID string) error {
	args := m.Called(ctx, communityID, body, userID)
	return args.Error(0)
}

func (m *MockBodyRosterRepository) IsMember(ctx context.Context, communityID string, body domain.BodyKind, userID string) (bool, error) {
	args := m.Called(ctx, communityID, body, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBodyRosterRepository) CountMembers(ctx context.Context, communityID string, body domain.BodyKind) (int, error) {
	args := m.Called(ctx, communityID, body)
	return args.Int(0), args.Error(1)
}

func (m *MockBodyRosterRepository) ListMembers(ctx context.Context, communityID string, body domain.BodyKind) ([]string, error) {
	args := m.Called(ctx, communityID, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// --- Mock LedgerSvc ---

type MockLedgerSvc struct {
	mock.Mock
}

func (m *MockLedgerSvc) Adjust(ctx context.Context, communityID, accountID string, delta int64, reason, actorID string) (int64, error) {
	args := m.Called(ctx, communityID, accountID, delta, reason, actorID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLedgerSvc) Transfer(ctx context.Context, communityID, from, to string, amount int64, reason, actorID string, kind domain.TransactionKind) (*domain.TransferResult, error) {
	args := m.Called(ctx, communityID, from, to, amount, reason, actorID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TransferResult), args.Error(1)
}

func (m *MockLedgerSvc) GetTransaction(ctx context.Context, communityID, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, communityID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockLedgerSvc) ListTransactions(ctx context.Context, communityID, accountID string, limit, offset int) ([]domain.Transaction, error) {
	args := m.Called(ctx, communityID, accountID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

// --- Mock RateLimitSvc ---

type MockRateLimitSvc struct {
	mock.Mock
}

func (m *MockRateLimitSvc) CheckAndRecord(ctx context.Context, communityID, accountID string, amount int64) error {
	args := m.Called(ctx, communityID, accountID, amount)
	return args.Error(0)
}

// --- Mock SettlementQueue ---

type MockSettlementQueue struct {
	mock.Mock
}

func (m *MockSettlementQueue) Enqueue(item portssvc.SettlementItem) bool {
	args := m.Called(item)
	return args.Bool(0)
}

// --- Mock Notifier ---

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, n portssvc.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

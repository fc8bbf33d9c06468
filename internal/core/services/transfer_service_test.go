package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/civpoints/community_points_app/internal/apperrors"
	"github.com/civpoints/community_points_app/internal/core/domain"
	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
	"github.com/civpoints/community_points_app/internal/core/services"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type TransferServiceTestSuite struct {
	suite.Suite
	mockRepo     *MockPendingTransferRepository
	mockAccounts *MockAccountRepository
	mockLedger   *MockLedgerSvc
	mockLimiter  *MockRateLimitSvc
	mockQueue    *MockSettlementQueue
	service      *services.TransferService
}

func (suite *TransferServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockPendingTransferRepository)
	suite.mockAccounts = new(MockAccountRepository)
	suite.mockLedger = new(MockLedgerSvc)
	suite.mockLimiter = new(MockRateLimitSvc)
	suite.mockQueue = new(MockSettlementQueue)
	suite.service = services.NewTransferService(suite.mockRepo, suite.mockAccounts, suite.mockLedger, suite.mockLimiter, 48*time.Hour)
	suite.service.AttachQueue(suite.mockQueue)
}

func (suite *TransferServiceTestSuite) TestTransferNow_Success() {
	ctx := context.Background()
	expected := &domain.TransferResult{FromBalance: 50, ToBalance: 150}

	suite.mockLimiter.On("CheckAndRecord", ctx, "c1", "u1", int64(50)).Return(nil).Once()
	suite.mockLedger.On("Transfer", ctx, "c1", "u1", "u2", int64(50), "gift", "u1", domain.TxnTransfer).
		Return(expected, nil).Once()

	result, err := suite.service.TransferNow(ctx, "c1", "u1", "u2", 50, "gift")

	suite.Require().NoError(err)
	suite.Equal(expected, result)
	suite.mockLimiter.AssertExpectations(suite.T())
	suite.mockLedger.AssertExpectations(suite.T())
}

func (suite *TransferServiceTestSuite) TestTransferNow_CooldownRefused() {
	ctx := context.Background()

	suite.mockLimiter.On("CheckAndRecord", ctx, "c1", "u1", int64(50)).
		Return(apperrors.ErrCooldownActive).Once()

	result, err := suite.service.TransferNow(ctx, "c1", "u1", "u2", 50, "gift")

	suite.Require().Error(err)
	suite.Nil(result)
	suite.ErrorIs(err, apperrors.ErrCooldownActive)
	suite.mockLedger.AssertNotCalled(suite.T(), "Transfer")
}

func (suite *TransferServiceTestSuite) TestTransferNow_SameAccount() {
	ctx := context.Background()

	result, err := suite.service.TransferNow(ctx, "c1", "u1", "u1", 50, "loop")

	suite.Require().Error(err)
	suite.Nil(result)
	suite.ErrorIs(err, apperrors.ErrSameAccount)
	suite.mockLimiter.AssertNotCalled(suite.T(), "CheckAndRecord")
}

func (suite *TransferServiceTestSuite) TestSubmit_Success() {
	ctx := context.Background()

	suite.mockLimiter.On("CheckAndRecord", ctx, "c1", "u1", int64(200)).Return(nil).Once()
	// Submission materializes both account rows so settlement, running later
	// on a worker, never meets a missing account.
	suite.mockAccounts.On("EnsureAccount", ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.AccountID == "u1" && a.Kind == domain.AccountPersonal
	})).Return(nil).Once()
	suite.mockAccounts.On("EnsureAccount", ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.AccountID == "u2" && a.Kind == domain.AccountPersonal
	})).Return(nil).Once()
	suite.mockRepo.On("CreatePendingTransfer", ctx, mock.MatchedBy(func(t domain.PendingTransfer) bool {
		return t.TransferID != "" && t.State == domain.TransferPending &&
			t.InitiatorID == "u1" && t.TargetID == "u2" && t.Amount == 200 &&
			t.ExpiresAt.Sub(t.CreatedAt) == 48*time.Hour
	})).Return(nil).Once()

	transfer, err := suite.service.Submit(ctx, "c1", "u1", "u2", 200, "bounty")

	suite.Require().NoError(err)
	suite.Require().NotNil(transfer)
	suite.Equal(domain.TransferPending, transfer.State)
	suite.mockAccounts.AssertExpectations(suite.T())
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *TransferServiceTestSuite) TestSubmit_CollectiveTargetGetsNegativeFloor() {
	ctx := context.Background()

	suite.mockLimiter.On("CheckAndRecord", ctx, "c1", "u1", int64(200)).Return(nil).Once()
	suite.mockAccounts.On("EnsureAccount", ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.AccountID == "u1" && a.Kind == domain.AccountPersonal && !a.AllowNegative
	})).Return(nil).Once()
	suite.mockAccounts.On("EnsureAccount", ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.AccountID == "951c1" && a.Kind == domain.AccountCollective && a.AllowNegative
	})).Return(nil).Once()
	suite.mockRepo.On("CreatePendingTransfer", ctx, mock.AnythingOfType("domain.PendingTransfer")).Return(nil).Once()

	transfer, err := suite.service.Submit(ctx, "c1", "u1", "951c1", 200, "dues")

	suite.Require().NoError(err)
	suite.Require().NotNil(transfer)
	suite.mockAccounts.AssertExpectations(suite.T())
}

func (suite *TransferServiceTestSuite) TestSubmit_DailyCapRefused() {
	ctx := context.Background()

	suite.mockLimiter.On("CheckAndRecord", ctx, "c1", "u1", int64(200)).
		Return(apperrors.ErrDailyLimitExceeded).Once()

	transfer, err := suite.service.Submit(ctx, "c1", "u1", "u2", 200, "bounty")

	suite.Require().Error(err)
	suite.Nil(transfer)
	suite.ErrorIs(err, apperrors.ErrDailyLimitExceeded)
	suite.mockRepo.AssertNotCalled(suite.T(), "CreatePendingTransfer")
}

func (suite *TransferServiceTestSuite) TestDecide_ApproveEnqueues() {
	ctx := context.Background()
	approved := &domain.PendingTransfer{
		TransferID:  "t1",
		CommunityID: "c1",
		InitiatorID: "u1",
		TargetID:    "u2",
		Amount:      200,
		State:       domain.TransferApproved,
	}
	token := &portssvc.InteractionToken{Value: "tok", ExpiresAt: time.Now().Add(time.Minute)}

	suite.mockRepo.On("DecidePendingTransfer", ctx, "t1", domain.TransferApproved, mock.AnythingOfType("time.Time")).
		Return(approved, nil).Once()
	suite.mockQueue.On("Enqueue", mock.MatchedBy(func(item portssvc.SettlementItem) bool {
		return item.TransferID == "t1" && item.InitiatorID == "u1" && item.Token == token
	})).Return(true).Once()

	transfer, err := suite.service.Decide(ctx, "t1", domain.DecisionApprove, "admin", token)

	suite.Require().NoError(err)
	suite.Equal(domain.TransferApproved, transfer.State)
	suite.mockQueue.AssertExpectations(suite.T())
}

func (suite *TransferServiceTestSuite) TestDecide_RejectDoesNotEnqueue() {
	ctx := context.Background()
	rejected := &domain.PendingTransfer{TransferID: "t1", State: domain.TransferRejected}

	suite.mockRepo.On("DecidePendingTransfer", ctx, "t1", domain.TransferRejected, mock.AnythingOfType("time.Time")).
		Return(rejected, nil).Once()

	transfer, err := suite.service.Decide(ctx, "t1", domain.DecisionReject, "admin", nil)

	suite.Require().NoError(err)
	suite.Equal(domain.TransferRejected, transfer.State)
	suite.mockQueue.AssertNotCalled(suite.T(), "Enqueue")
}

func (suite *TransferServiceTestSuite) TestDecide_AlreadyDecided() {
	ctx := context.Background()

	suite.mockRepo.On("DecidePendingTransfer", ctx, "t1", domain.TransferApproved, mock.AnythingOfType("time.Time")).
		Return(nil, apperrors.ErrAlreadyDecided).Once()

	transfer, err := suite.service.Decide(ctx, "t1", domain.DecisionApprove, "admin", nil)

	suite.Require().Error(err)
	suite.Nil(transfer)
	suite.ErrorIs(err, apperrors.ErrAlreadyDecided)
}

func (suite *TransferServiceTestSuite) TestCancel_ByInitiator() {
	ctx := context.Background()
	pending := &domain.PendingTransfer{TransferID: "t1", InitiatorID: "u1", State: domain.TransferPending}
	rejected := &domain.PendingTransfer{TransferID: "t1", InitiatorID: "u1", State: domain.TransferRejected}

	suite.mockRepo.On("FindPendingTransferByID", ctx, "t1").Return(pending, nil).Once()
	suite.mockRepo.On("DecidePendingTransfer", ctx, "t1", domain.TransferRejected, mock.AnythingOfType("time.Time")).
		Return(rejected, nil).Once()

	transfer, err := suite.service.Cancel(ctx, "t1", "u1")

	suite.Require().NoError(err)
	suite.Equal(domain.TransferRejected, transfer.State)
}

func (suite *TransferServiceTestSuite) TestCancel_NotInitiator() {
	ctx := context.Background()
	pending := &domain.PendingTransfer{TransferID: "t1", InitiatorID: "u1", State: domain.TransferPending}

	suite.mockRepo.On("FindPendingTransferByID", ctx, "t1").Return(pending, nil).Once()

	transfer, err := suite.service.Cancel(ctx, "t1", "intruder")

	suite.Require().Error(err)
	suite.Nil(transfer)
	suite.ErrorIs(err, apperrors.ErrNotEligible)
	suite.mockRepo.AssertNotCalled(suite.T(), "DecidePendingTransfer")
}

func (suite *TransferServiceTestSuite) TestSettle_Success() {
	ctx := context.Background()
	approved := &domain.PendingTransfer{
		TransferID:  "t1",
		CommunityID: "c1",
		InitiatorID: "u1",
		TargetID:    "u2",
		Amount:      200,
		Reason:      "bounty",
		State:       domain.TransferApproved,
	}
	settled := &domain.PendingTransfer{TransferID: "t1", CommunityID: "c1", State: domain.TransferSettled}

	suite.mockRepo.On("FindPendingTransferByID", ctx, "t1").Return(approved, nil).Once()
	suite.mockRepo.On("SettlePendingTransfer", ctx, "t1", mock.MatchedBy(func(t domain.Transaction) bool {
		return t.FromAccountID == "u1" && t.ToAccountID == "u2" && t.Amount == 200 && t.Kind == domain.TxnTransfer
	})).Run(func(args mock.Arguments) {
		// The store records the transaction ID of the winning settlement.
		settled.TransactionID = args.Get(2).(domain.Transaction).TransactionID
	}).Return(settled, nil).Once()

	txn, err := suite.service.Settle(ctx, "t1")

	suite.Require().NoError(err)
	suite.Require().NotNil(txn)
	suite.Equal(settled.TransactionID, txn.TransactionID)
	suite.Equal(int64(200), txn.Amount)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *TransferServiceTestSuite) TestSettle_IdempotentReplay() {
	ctx := context.Background()
	alreadySettled := &domain.PendingTransfer{
		TransferID:    "t1",
		CommunityID:   "c1",
		InitiatorID:   "u1",
		TargetID:      "u2",
		Amount:        200,
		State:         domain.TransferSettled,
		TransactionID: "prior-txn",
	}
	priorTxn := &domain.Transaction{TransactionID: "prior-txn", Amount: 200}

	suite.mockRepo.On("FindPendingTransferByID", ctx, "t1").Return(alreadySettled, nil).Once()
	suite.mockRepo.On("SettlePendingTransfer", ctx, "t1", mock.AnythingOfType("domain.Transaction")).
		Return(alreadySettled, nil).Once()
	suite.mockLedger.On("GetTransaction", ctx, "c1", "prior-txn").Return(priorTxn, nil).Once()

	txn, err := suite.service.Settle(ctx, "t1")

	suite.Require().NoError(err)
	suite.Equal("prior-txn", txn.TransactionID)
	suite.mockLedger.AssertExpectations(suite.T())
}

func (suite *TransferServiceTestSuite) TestSettle_NotApproved() {
	ctx := context.Background()
	pending := &domain.PendingTransfer{TransferID: "t1", State: domain.TransferPending}

	suite.mockRepo.On("FindPendingTransferByID", ctx, "t1").Return(pending, nil).Once()
	suite.mockRepo.On("SettlePendingTransfer", ctx, "t1", mock.AnythingOfType("domain.Transaction")).
		Return(nil, apperrors.ErrNotApproved).Once()

	txn, err := suite.service.Settle(ctx, "t1")

	suite.Require().Error(err)
	suite.Nil(txn)
	suite.ErrorIs(err, apperrors.ErrNotApproved)
}

func (suite *TransferServiceTestSuite) TestExpireStale() {
	ctx := context.Background()
	now := time.Now()

	suite.mockRepo.On("ExpirePendingTransfers", ctx, now).Return(3, nil).Once()

	count, err := suite.service.ExpireStale(ctx, now)

	suite.Require().NoError(err)
	suite.Equal(3, count)
}

func (suite *TransferServiceTestSuite) TestRecoverApproved() {
	ctx := context.Background()
	transfers := []domain.PendingTransfer{
		{TransferID: "t1", CommunityID: "c1", InitiatorID: "u1", State: domain.TransferApproved},
		{TransferID: "t2", CommunityID: "c1", InitiatorID: "u2", State: domain.TransferApproved},
	}

	suite.mockRepo.On("ListApprovedUnsettled", ctx, 500).Return(transfers, nil).Once()
	// Recovery items carry no interaction token.
	suite.mockQueue.On("Enqueue", mock.MatchedBy(func(item portssvc.SettlementItem) bool {
		return item.Token == nil
	})).Return(true).Twice()

	count, err := suite.service.RecoverApproved(ctx)

	suite.Require().NoError(err)
	suite.Equal(2, count)
	suite.mockQueue.AssertExpectations(suite.T())
}

func TestTransferService(t *testing.T) {
	suite.Run(t, new(TransferServiceTestSuite))
}

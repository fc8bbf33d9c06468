package services_test

import (
	"context"
	"testing"

	"github.com/civpoints/community_points_app/internal/apperrors"
	"github.com/civpoints/community_points_app/internal/core/domain"
	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
	"github.com/civpoints/community_points_app/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type LedgerServiceTestSuite struct {
	suite.Suite
	mockLedgerRepo  *MockLedgerRepository
	mockAccountRepo *MockAccountRepository
	service         portssvc.LedgerSvc
}

func (suite *LedgerServiceTestSuite) SetupTest() {
	suite.mockLedgerRepo = new(MockLedgerRepository)
	suite.mockAccountRepo = new(MockAccountRepository)
	suite.service = services.NewLedgerService(suite.mockLedgerRepo, suite.mockAccountRepo)
}

func (suite *LedgerServiceTestSuite) TestAdjust_Credit() {
	ctx := context.Background()

	suite.mockAccountRepo.On("EnsureAccount", ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.CommunityID == "c1" && a.AccountID == "u1" && a.Kind == domain.AccountPersonal
	})).Return(nil).Once()
	suite.mockLedgerRepo.On("ApplyAdjust", ctx, int64(100), mock.MatchedBy(func(t domain.Transaction) bool {
		return t.ToAccountID == "u1" && t.FromAccountID == "" && t.Amount == 100 && t.Kind == domain.TxnAdjust
	})).Return(int64(100), nil).Once()

	newBalance, err := suite.service.Adjust(ctx, "c1", "u1", 100, "grant", "admin")

	suite.Require().NoError(err)
	suite.Equal(int64(100), newBalance)
	suite.mockLedgerRepo.AssertExpectations(suite.T())
	suite.mockAccountRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestAdjust_CollectiveAccountEnsuredWithFloor() {
	ctx := context.Background()

	// A treasury adjustment can reach a community before its collective
	// accounts were ever ensured; the lazy row must still carry the
	// collective kind and the negative-balance floor.
	suite.mockAccountRepo.On("EnsureAccount", ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.AccountID == "901c1" && a.Kind == domain.AccountCollective && a.AllowNegative
	})).Return(nil).Once()
	suite.mockLedgerRepo.On("ApplyAdjust", ctx, int64(500), mock.AnythingOfType("domain.Transaction")).
		Return(int64(500), nil).Once()

	newBalance, err := suite.service.Adjust(ctx, "c1", "901c1", 500, "seed", "admin")

	suite.Require().NoError(err)
	suite.Equal(int64(500), newBalance)
	suite.mockAccountRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestAdjust_DebitCarriesPositiveAmount() {
	ctx := context.Background()

	suite.mockAccountRepo.On("EnsureAccount", ctx, mock.AnythingOfType("domain.Account")).Return(nil).Once()
	suite.mockLedgerRepo.On("ApplyAdjust", ctx, int64(-40), mock.MatchedBy(func(t domain.Transaction) bool {
		return t.FromAccountID == "u1" && t.ToAccountID == "" && t.Amount == 40
	})).Return(int64(60), nil).Once()

	newBalance, err := suite.service.Adjust(ctx, "c1", "u1", -40, "fine", "admin")

	suite.Require().NoError(err)
	suite.Equal(int64(60), newBalance)
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestAdjust_ZeroDelta() {
	ctx := context.Background()

	_, err := suite.service.Adjust(ctx, "c1", "u1", 0, "noop", "admin")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInvalidAmount)
	suite.mockLedgerRepo.AssertNotCalled(suite.T(), "ApplyAdjust")
}

func (suite *LedgerServiceTestSuite) TestAdjust_InsufficientFunds() {
	ctx := context.Background()

	suite.mockAccountRepo.On("EnsureAccount", ctx, mock.AnythingOfType("domain.Account")).Return(nil).Once()
	suite.mockLedgerRepo.On("ApplyAdjust", ctx, int64(-500), mock.AnythingOfType("domain.Transaction")).
		Return(int64(0), apperrors.ErrInsufficientFunds).Once()

	_, err := suite.service.Adjust(ctx, "c1", "u1", -500, "fine", "admin")

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrInsufficientFunds)
}

func (suite *LedgerServiceTestSuite) TestTransfer_Success() {
	ctx := context.Background()

	suite.mockAccountRepo.On("EnsureAccount", ctx, mock.AnythingOfType("domain.Account")).Return(nil).Twice()
	suite.mockLedgerRepo.On("ApplyTransfer", ctx, mock.MatchedBy(func(t domain.Transaction) bool {
		return t.FromAccountID == "u1" && t.ToAccountID == "u2" && t.Amount == 25 && t.Kind == domain.TxnTransfer && t.TransactionID != ""
	})).Return(int64(75), int64(125), nil).Once()

	result, err := suite.service.Transfer(ctx, "c1", "u1", "u2", 25, "gift", "u1", domain.TxnTransfer)

	suite.Require().NoError(err)
	suite.Require().NotNil(result)
	suite.Equal(int64(75), result.FromBalance)
	suite.Equal(int64(125), result.ToBalance)
	suite.Equal(int64(25), result.Transaction.Amount)
	suite.mockLedgerRepo.AssertExpectations(suite.T())
}

func (suite *LedgerServiceTestSuite) TestTransfer_SameAccount() {
	ctx := context.Background()

	result, err := suite.service.Transfer(ctx, "c1", "u1", "u1", 25, "loop", "u1", domain.TxnTransfer)

	suite.Require().Error(err)
	suite.Nil(result)
	suite.ErrorIs(err, apperrors.ErrSameAccount)
	suite.mockLedgerRepo.AssertNotCalled(suite.T(), "ApplyTransfer")
}

func (suite *LedgerServiceTestSuite) TestTransfer_NonPositiveAmount() {
	ctx := context.Background()

	for _, amount := range []int64{0, -10} {
		result, err := suite.service.Transfer(ctx, "c1", "u1", "u2", amount, "bad", "u1", domain.TxnTransfer)
		suite.Require().Error(err)
		suite.Nil(result)
		suite.ErrorIs(err, apperrors.ErrInvalidAmount)
	}
	suite.mockLedgerRepo.AssertNotCalled(suite.T(), "ApplyTransfer")
}

func (suite *LedgerServiceTestSuite) TestTransfer_FrozenAccount() {
	ctx := context.Background()

	suite.mockAccountRepo.On("EnsureAccount", ctx, mock.AnythingOfType("domain.Account")).Return(nil).Twice()
	suite.mockLedgerRepo.On("ApplyTransfer", ctx, mock.AnythingOfType("domain.Transaction")).
		Return(int64(0), int64(0), apperrors.ErrAccountFrozen).Once()

	result, err := suite.service.Transfer(ctx, "c1", "u1", "u2", 25, "gift", "u1", domain.TxnTransfer)

	suite.Require().Error(err)
	suite.Nil(result)
	suite.ErrorIs(err, apperrors.ErrAccountFrozen)
}

func (suite *LedgerServiceTestSuite) TestListTransactions_Empty() {
	ctx := context.Background()
	var none []domain.Transaction

	suite.mockLedgerRepo.On("ListTransactions", ctx, "c1", "u1", 20, 0).Return(none, nil).Once()

	txns, err := suite.service.ListTransactions(ctx, "c1", "u1", 20, 0)

	suite.Require().NoError(err)
	suite.NotNil(txns)
	suite.Empty(txns)
}

func (suite *LedgerServiceTestSuite) TestListTransactions_RepoError() {
	ctx := context.Background()
	expectedErr := assert.AnError

	suite.mockLedgerRepo.On("ListTransactions", ctx, "c1", "u1", 20, 0).Return(nil, expectedErr).Once()

	txns, err := suite.service.ListTransactions(ctx, "c1", "u1", 20, 0)

	suite.Require().Error(err)
	suite.Nil(txns)
	suite.ErrorIs(err, expectedErr)
}

func TestLedgerService(t *testing.T) {
	suite.Run(t, new(LedgerServiceTestSuite))
}

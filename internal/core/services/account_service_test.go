package services_test

import (
	"context"
	"testing"

	"github.com/civpoints/community_points_app/internal/apperrors"
	"github.com/civpoints/community_points_app/internal/core/domain"
	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
	"github.com/civpoints/community_points_app/internal/core/services"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type AccountServiceTestSuite struct {
	suite.Suite
	mockRepo *MockAccountRepository
	service  portssvc.AccountSvcFacade
}

func (suite *AccountServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockAccountRepository)
	suite.service = services.NewAccountService(suite.mockRepo, services.WithDepartments([]domain.Department{
		{Key: "treasury", Name: "Treasury Department", Prefix: 951},
		{Key: "culture", Name: "Culture Department", Prefix: 952},
	}))
}

func (suite *AccountServiceTestSuite) TestEnsureAccount_LazyCreate() {
	ctx := context.Background()
	expected := &domain.Account{CommunityID: "c1", AccountID: "u1", Kind: domain.AccountPersonal}

	suite.mockRepo.On("EnsureAccount", ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.CommunityID == "c1" && a.AccountID == "u1" &&
			a.Kind == domain.AccountPersonal && a.Balance == 0 && !a.AllowNegative
	})).Return(nil).Once()
	suite.mockRepo.On("FindAccountByID", ctx, "c1", "u1").Return(expected, nil).Once()

	account, err := suite.service.EnsureAccount(ctx, "c1", "u1")

	suite.Require().NoError(err)
	suite.Equal(expected, account)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestEnsureAccount_CollectiveShapedID() {
	ctx := context.Background()
	expected := &domain.Account{CommunityID: "c1", AccountID: "902c1", Kind: domain.AccountCollective}

	suite.mockRepo.On("EnsureAccount", ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.AccountID == "902c1" && a.Kind == domain.AccountCollective && a.AllowNegative
	})).Return(nil).Once()
	suite.mockRepo.On("FindAccountByID", ctx, "c1", "902c1").Return(expected, nil).Once()

	account, err := suite.service.EnsureAccount(ctx, "c1", "902c1")

	suite.Require().NoError(err)
	suite.Equal(domain.AccountCollective, account.Kind)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestEnsureCommunityAccounts_BodiesAndDepartments() {
	ctx := context.Background()
	var ensuredIDs []string

	suite.mockRepo.On("EnsureAccount", ctx, mock.MatchedBy(func(a domain.Account) bool {
		return a.Kind == domain.AccountCollective && a.AllowNegative
	})).Run(func(args mock.Arguments) {
		ensuredIDs = append(ensuredIDs, args.Get(1).(domain.Account).AccountID)
	}).Return(nil).Times(5)

	accounts, err := suite.service.EnsureCommunityAccounts(ctx, "c1")

	suite.Require().NoError(err)
	suite.Len(accounts, 5)
	// Three bodies plus the two configured departments, IDs derived from the
	// fixed numeric prefixes.
	suite.ElementsMatch([]string{"901c1", "902c1", "903c1", "951c1", "952c1"}, ensuredIDs)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *AccountServiceTestSuite) TestEnsureCommunityAccounts_RepoError() {
	ctx := context.Background()

	suite.mockRepo.On("EnsureAccount", ctx, mock.AnythingOfType("domain.Account")).
		Return(apperrors.ErrPermanentStore).Once()

	accounts, err := suite.service.EnsureCommunityAccounts(ctx, "c1")

	suite.Require().Error(err)
	suite.Nil(accounts)
	suite.ErrorIs(err, apperrors.ErrPermanentStore)
}

func (suite *AccountServiceTestSuite) TestListAccounts_Empty() {
	ctx := context.Background()
	var none []domain.Account

	suite.mockRepo.On("ListAccounts", ctx, "c1", 20, 0).Return(none, nil).Once()

	accounts, err := suite.service.ListAccounts(ctx, "c1", 20, 0)

	suite.Require().NoError(err)
	suite.NotNil(accounts)
	suite.Empty(accounts)
}

func (suite *AccountServiceTestSuite) TestSetFrozen() {
	ctx := context.Background()

	suite.mockRepo.On("SetAccountFrozen", ctx, "c1", "u1", true, "admin").Return(nil).Once()

	err := suite.service.SetFrozen(ctx, "c1", "u1", true, "admin")

	suite.Require().NoError(err)
	suite.mockRepo.AssertExpectations(suite.T())
}

func TestAccountService(t *testing.T) {
	suite.Run(t, new(AccountServiceTestSuite))
}

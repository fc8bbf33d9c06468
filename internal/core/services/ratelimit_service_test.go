package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/civpoints/community_points_app/internal/apperrors"
	"github.com/civpoints/community_points_app/internal/core/domain"
	portsrepo "github.com/civpoints/community_points_app/internal/core/ports/repositories"
	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
	"github.com/civpoints/community_points_app/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type RateLimitServiceTestSuite struct {
	suite.Suite
	mockRepo *MockRateLimitRepository
	service  portssvc.RateLimitSvc
}

func (suite *RateLimitServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockRateLimitRepository)
	suite.service = services.NewRateLimitService(suite.mockRepo, services.RateLimitConfig{
		Cooldown: 60 * time.Second,
		Window:   24 * time.Hour,
		DailyCap: 1000,
	})
}

func (suite *RateLimitServiceTestSuite) TestCheckAndRecord_Admitted() {
	ctx := context.Background()

	suite.mockRepo.On("CheckAndRecord", ctx, mock.MatchedBy(func(c portsrepo.RateLimitCheck) bool {
		return c.CommunityID == "c1" && c.AccountID == "u1" && c.Amount == 100 &&
			c.Cooldown == 60*time.Second && c.DailyCap == 1000
	})).Return(true, nil, nil).Once()

	err := suite.service.CheckAndRecord(ctx, "c1", "u1", 100)

	suite.Require().NoError(err)
	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *RateLimitServiceTestSuite) TestCheckAndRecord_CooldownRefusal() {
	ctx := context.Background()
	// Last action 30s ago, inside the 60s cooldown.
	window := &domain.RateLimitWindow{
		CommunityID:  "c1",
		AccountID:    "u1",
		LastActionAt: time.Now().Add(-30 * time.Second),
		RollingTotal: 100,
	}

	suite.mockRepo.On("CheckAndRecord", ctx, mock.AnythingOfType("repositories.RateLimitCheck")).
		Return(false, window, nil).Once()

	err := suite.service.CheckAndRecord(ctx, "c1", "u1", 50)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrCooldownActive)
}

func (suite *RateLimitServiceTestSuite) TestCheckAndRecord_DailyCapRefusal() {
	ctx := context.Background()
	// Cooldown long gone; the refusal must be the rolling cap.
	window := &domain.RateLimitWindow{
		CommunityID:  "c1",
		AccountID:    "u1",
		LastActionAt: time.Now().Add(-2 * time.Hour),
		RollingTotal: 900,
	}

	suite.mockRepo.On("CheckAndRecord", ctx, mock.AnythingOfType("repositories.RateLimitCheck")).
		Return(false, window, nil).Once()

	err := suite.service.CheckAndRecord(ctx, "c1", "u1", 400)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrDailyLimitExceeded)
}

func (suite *RateLimitServiceTestSuite) TestCheckAndRecord_FirstAttemptOverCap() {
	ctx := context.Background()

	// No window row exists: a first attempt larger than the cap is refused
	// without creating counters.
	suite.mockRepo.On("CheckAndRecord", ctx, mock.AnythingOfType("repositories.RateLimitCheck")).
		Return(false, nil, nil).Once()

	err := suite.service.CheckAndRecord(ctx, "c1", "u1", 5000)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrDailyLimitExceeded)
}

func (suite *RateLimitServiceTestSuite) TestCheckAndRecord_RepoError() {
	ctx := context.Background()
	expectedErr := assert.AnError

	suite.mockRepo.On("CheckAndRecord", ctx, mock.AnythingOfType("repositories.RateLimitCheck")).
		Return(false, nil, expectedErr).Once()

	err := suite.service.CheckAndRecord(ctx, "c1", "u1", 100)

	suite.Require().Error(err)
	suite.ErrorIs(err, expectedErr)
}

func TestRateLimitService(t *testing.T) {
	suite.Run(t, new(RateLimitServiceTestSuite))
}

package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/civpoints/community_points_app/internal/apperrors"
	portsrepo "github.com/civpoints/community_points_app/internal/core/ports/repositories"
	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
)

// RateLimitConfig carries the limits the configuration collaborator supplies
// at call time.
type RateLimitConfig struct {
	Cooldown time.Duration
	Window   time.Duration
	DailyCap int64
}

// rateLimitService gates transfer admission per initiating account. The
// check-and-record is a single atomic conditional update in the store; this
// layer only classifies refusals.
type rateLimitService struct {
	BaseService
	repo portsrepo.RateLimitRepository
	cfg  RateLimitConfig
	now  func() time.Time
}

// NewRateLimitService creates a new RateLimitService.
func NewRateLimitService(repo portsrepo.RateLimitRepository, cfg RateLimitConfig) portssvc.RateLimitSvc {
	return &rateLimitService{repo: repo, cfg: cfg, now: time.Now}
}

// Ensure rateLimitService implements the portssvc.RateLimitSvc interface
var _ portssvc.RateLimitSvc = (*rateLimitService)(nil)

// CheckAndRecord admits the attempt or fails with a typed refusal.
func (s *rateLimitService) CheckAndRecord(ctx context.Context, communityID, accountID string, amount int64) error {
	now := s.now()
	admitted, window, err := s.repo.CheckAndRecord(ctx, portsrepo.RateLimitCheck{
		CommunityID: communityID,
		AccountID:   accountID,
		Amount:      amount,
		Now:         now,
		Cooldown:    s.cfg.Cooldown,
		Window:      s.cfg.Window,
		DailyCap:    s.cfg.DailyCap,
	})
	if err != nil {
		s.LogError(ctx, err, "Rate limit check failed",
			slog.String("community_id", communityID),
			slog.String("account_id", accountID))
		return err
	}
	if admitted {
		return nil
	}

	// No window snapshot means the very first attempt exceeded the cap.
	if window == nil {
		return apperrors.ErrDailyLimitExceeded
	}
	if now.Sub(window.LastActionAt) < s.cfg.Cooldown {
		s.LogDebug(ctx, "Transfer refused by cooldown",
			slog.String("account_id", accountID),
			slog.Time("last_action_at", window.LastActionAt))
		return apperrors.ErrCooldownActive
	}
	s.LogDebug(ctx, "Transfer refused by daily cap",
		slog.String("account_id", accountID),
		slog.Int64("rolling_total", window.RollingTotal))
	return apperrors.ErrDailyLimitExceeded
}

package repositories

import (
	"context"
	"time"

	"github.com/civpoints/community_points_app/internal/core/domain"
)

// RateLimitCheck carries the limits to enforce for one admission attempt.
// Limits come from the configuration collaborator at call time, never from
// the store.
type RateLimitCheck struct {
	CommunityID string
	AccountID   string
	Amount      int64
	Now         time.Time
	Cooldown    time.Duration
	Window      time.Duration
	DailyCap    int64
}

// RateLimitRepository performs the atomic check-and-record for transfer
// admission. The check and the write are one conditional statement in the
// store; two concurrent requests can never both observe "no cooldown".
type RateLimitRepository interface {
	// CheckAndRecord admits or refuses the attempt. On admission the window
	// counters are already updated. On refusal it returns the current window
	// snapshot so the caller can classify the refusal.
	CheckAndRecord(ctx context.Context, check RateLimitCheck) (admitted bool, window *domain.RateLimitWindow, err error)
}

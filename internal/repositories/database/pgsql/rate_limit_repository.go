package pgsql

import (
	"context"

	"github.com/civpoints/community_points_app/internal/core/domain"
	portsrepo "github.com/civpoints/community_points_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxRateLimitRepository struct {
	BaseRepository
}

// newPgxRateLimitRepository creates a new repository for rate limit windows.
func newPgxRateLimitRepository(pool *pgxpool.Pool) *PgxRateLimitRepository {
	return &PgxRateLimitRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxRateLimitRepository implements portsrepo.RateLimitRepository
var _ portsrepo.RateLimitRepository = (*PgxRateLimitRepository)(nil)

// CheckAndRecord performs the cooldown and daily-cap check and records the
// attempt in one conditional upsert. The WHERE clause on the conflict update
// is the whole point: two concurrent requests cannot both observe "no
// cooldown" because only one update can apply. The pre-image CTE reads the
// window in the same statement, so a refusal is classified against the exact
// snapshot the guard evaluated rather than a later re-read.
func (r *PgxRateLimitRepository) CheckAndRecord(ctx context.Context, check portsrepo.RateLimitCheck) (bool, *domain.RateLimitWindow, error) {
	windowFloor := check.Now.Add(-check.Window)
	cooldownFloor := check.Now.Add(-check.Cooldown)

	// A window older than windowFloor has rolled over: the counter resets
	// before evaluation. Otherwise the attempt must fit under the cap. The
	// SELECT guard covers the first-ever attempt, which has no row yet.
	query := `
		WITH existing AS (
			SELECT last_action_at, rolling_total, window_start
			FROM rate_limit_windows
			WHERE community_id = $1 AND account_id = $2
		), attempt AS (
			INSERT INTO rate_limit_windows AS w (community_id, account_id, last_action_at, rolling_total, window_start)
			SELECT $1, $2, $3, $4::bigint, $3 WHERE $4 <= $7
			ON CONFLICT (community_id, account_id) DO UPDATE SET
				last_action_at = $3,
				rolling_total  = CASE WHEN w.window_start <= $5 THEN $4 ELSE w.rolling_total + $4 END,
				window_start   = CASE WHEN w.window_start <= $5 THEN $3 ELSE w.window_start END
			WHERE w.last_action_at <= $6
			  AND (CASE WHEN w.window_start <= $5 THEN $4 ELSE w.rolling_total + $4 END) <= $7
			RETURNING last_action_at, rolling_total, window_start
		)
		SELECT
			EXISTS (SELECT 1 FROM attempt),
			EXISTS (SELECT 1 FROM attempt) OR EXISTS (SELECT 1 FROM existing),
			COALESCE((SELECT last_action_at FROM attempt), (SELECT last_action_at FROM existing), to_timestamp(0)),
			COALESCE((SELECT rolling_total  FROM attempt), (SELECT rolling_total  FROM existing), 0),
			COALESCE((SELECT window_start   FROM attempt), (SELECT window_start   FROM existing), to_timestamp(0));
	`
	var admitted, present bool
	window := domain.RateLimitWindow{CommunityID: check.CommunityID, AccountID: check.AccountID}
	err := r.Pool.QueryRow(ctx, query,
		check.CommunityID,
		check.AccountID,
		check.Now,
		check.Amount,
		windowFloor,
		cooldownFloor,
		check.DailyCap,
	).Scan(&admitted, &present, &window.LastActionAt, &window.RollingTotal, &window.WindowStart)
	if err != nil {
		return false, nil, wrapStoreErr("failed to record rate limit attempt", err)
	}
	if !present {
		// The very first attempt exceeded the cap on its own.
		return false, nil, nil
	}
	return admitted, &window, nil
}

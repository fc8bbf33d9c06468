package pgsql

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/civpoints/community_points_app/internal/apperrors"
	"github.com/civpoints/community_points_app/internal/core/domain"
	portsrepo "github.com/civpoints/community_points_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxAccountRepository struct {
	BaseRepository
}

// newPgxAccountRepository creates a new repository for account data.
func newPgxAccountRepository(pool *pgxpool.Pool) *PgxAccountRepository {
	return &PgxAccountRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

const accountColumns = `community_id, account_id, kind, balance, allow_negative, frozen, created_at, created_by, last_updated_at, last_updated_by`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var acc domain.Account
	err := row.Scan(
		&acc.CommunityID,
		&acc.AccountID,
		&acc.Kind,
		&acc.Balance,
		&acc.AllowNegative,
		&acc.Frozen,
		&acc.CreatedAt,
		&acc.CreatedBy,
		&acc.LastUpdatedAt,
		&acc.LastUpdatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, wrapStoreErr("failed to scan account", err)
	}
	return &acc, nil
}

// EnsureAccount inserts the account if it does not exist. An existing row is
// left untouched so balances survive re-ensures.
func (r *PgxAccountRepository) EnsureAccount(ctx context.Context, account domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (community_id, account_id) DO NOTHING;
	`
	_, err := r.Pool.Exec(ctx, query,
		account.CommunityID,
		account.AccountID,
		account.Kind,
		account.Balance,
		account.AllowNegative,
		account.Frozen,
		account.CreatedAt,
		account.CreatedBy,
		account.LastUpdatedAt,
		account.LastUpdatedBy,
	)
	if err != nil {
		return wrapStoreErr("failed to ensure account "+account.AccountID, err)
	}
	return nil
}

// FindAccountByID retrieves a specific account scoped to a community.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, communityID, accountID string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE community_id = $1 AND account_id = $2;`
	return scanAccount(r.Pool.QueryRow(ctx, query, communityID, accountID))
}

// ListAccounts retrieves a paginated list of accounts for a community.
func (r *PgxAccountRepository) ListAccounts(ctx context.Context, communityID string, limit, offset int) ([]domain.Account, error) {
	query := `
		SELECT ` + accountColumns + ` FROM accounts
		WHERE community_id = $1
		ORDER BY account_id
		LIMIT $2 OFFSET $3;
	`
	rows, err := r.Pool.Query(ctx, query, communityID, limit, offset)
	if err != nil {
		return nil, wrapStoreErr("failed to list accounts", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("failed to iterate accounts", err)
	}
	return accounts, nil
}

// SetAccountFrozen flips the frozen flag on an account.
func (r *PgxAccountRepository) SetAccountFrozen(ctx context.Context, communityID, accountID string, frozen bool, actorID string) error {
	query := `
		UPDATE accounts SET frozen = $3, last_updated_at = $4, last_updated_by = $5
		WHERE community_id = $1 AND account_id = $2;
	`
	tag, err := r.Pool.Exec(ctx, query, communityID, accountID, frozen, time.Now(), actorID)
	if err != nil {
		return wrapStoreErr("failed to update account "+accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// lockAccounts selects the given accounts FOR UPDATE inside tx, in account-id
// order so two concurrent transfers touching the same pair cannot deadlock.
func lockAccounts(ctx context.Context, tx pgx.Tx, communityID string, accountIDs []string) (map[string]*domain.Account, error) {
	ids := make([]string, len(accountIDs))
	copy(ids, accountIDs)
	sort.Strings(ids)

	locked := make(map[string]*domain.Account, len(ids))
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE community_id = $1 AND account_id = $2 FOR UPDATE;`
	for _, id := range ids {
		acc, err := scanAccount(tx.QueryRow(ctx, query, communityID, id))
		if err != nil {
			return nil, err
		}
		locked[id] = acc
	}
	return locked, nil
}

// applyBalanceChange mutates one locked account's balance inside tx.
func applyBalanceChange(ctx context.Context, tx pgx.Tx, communityID, accountID string, newBalance int64, actorID string, now time.Time) error {
	query := `
		UPDATE accounts SET balance = $3, last_updated_at = $4, last_updated_by = $5
		WHERE community_id = $1 AND account_id = $2;
	`
	tag, err := tx.Exec(ctx, query, communityID, accountID, newBalance, now, actorID)
	if err != nil {
		return wrapStoreErr("failed to update balance for account "+accountID, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

package pgsql

import (
	"context"
	"errors"

	"github.com/civpoints/community_points_app/internal/apperrors"
	"github.com/civpoints/community_points_app/internal/core/domain"
	portsrepo "github.com/civpoints/community_points_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxLedgerRepository struct {
	BaseRepository
}

// newPgxLedgerRepository creates a new repository for balance mutations and
// transaction history.
func newPgxLedgerRepository(pool *pgxpool.Pool) *PgxLedgerRepository {
	return &PgxLedgerRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxLedgerRepository implements portsrepo.LedgerRepository
var _ portsrepo.LedgerRepository = (*PgxLedgerRepository)(nil)

const transactionColumns = `transaction_id, community_id, from_account_id, to_account_id, amount, reason, kind, created_at, created_by`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := row.Scan(
		&txn.TransactionID,
		&txn.CommunityID,
		&txn.FromAccountID,
		&txn.ToAccountID,
		&txn.Amount,
		&txn.Reason,
		&txn.Kind,
		&txn.CreatedAt,
		&txn.CreatedBy,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, wrapStoreErr("failed to scan transaction", err)
	}
	return &txn, nil
}

// insertTransaction appends one immutable history record inside tx.
func insertTransaction(ctx context.Context, tx pgx.Tx, txn domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := tx.Exec(ctx, query,
		txn.TransactionID,
		txn.CommunityID,
		txn.FromAccountID,
		txn.ToAccountID,
		txn.Amount,
		txn.Reason,
		txn.Kind,
		txn.CreatedAt,
		txn.CreatedBy,
	)
	if err != nil {
		return wrapStoreErr("failed to insert transaction "+txn.TransactionID, err)
	}
	return nil
}

// checkMutable rejects mutations on frozen accounts.
func checkMutable(acc *domain.Account) error {
	if acc.Frozen {
		return apperrors.ErrAccountFrozen
	}
	return nil
}

// debit returns the balance after removing amount, enforcing the floor for
// accounts that may not go negative.
func debit(acc *domain.Account, amount int64) (int64, error) {
	newBalance := acc.Balance - amount
	if newBalance < 0 && !acc.AllowNegative {
		return 0, apperrors.ErrInsufficientFunds
	}
	return newBalance, nil
}

// ApplyAdjust credits or debits one account and appends the transaction, all
// in one database transaction. The adjusted account is the credited one for
// positive deltas and the debited one otherwise.
func (r *PgxLedgerRepository) ApplyAdjust(ctx context.Context, delta int64, txn domain.Transaction) (int64, error) {
	accountID := txn.ToAccountID
	if delta < 0 {
		accountID = txn.FromAccountID
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer r.Rollback(ctx, tx)

	locked, err := lockAccounts(ctx, tx, txn.CommunityID, []string{accountID})
	if err != nil {
		return 0, err
	}
	acc := locked[accountID]
	if err := checkMutable(acc); err != nil {
		return 0, err
	}

	newBalance := acc.Balance + delta
	if newBalance < 0 && !acc.AllowNegative {
		return 0, apperrors.ErrInsufficientFunds
	}

	if err := applyBalanceChange(ctx, tx, txn.CommunityID, accountID, newBalance, txn.CreatedBy, txn.CreatedAt); err != nil {
		return 0, err
	}
	if err := insertTransaction(ctx, tx, txn); err != nil {
		return 0, err
	}
	if err := r.Commit(ctx, tx); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// ApplyTransfer moves txn.Amount between two accounts and appends exactly
// one transaction record. Either both balances change or neither does.
func (r *PgxLedgerRepository) ApplyTransfer(ctx context.Context, txn domain.Transaction) (int64, int64, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer r.Rollback(ctx, tx)

	fromBalance, toBalance, err := applyTransferInTx(ctx, tx, txn)
	if err != nil {
		return 0, 0, err
	}
	if err := r.Commit(ctx, tx); err != nil {
		return 0, 0, err
	}
	return fromBalance, toBalance, nil
}

// applyTransferInTx is the shared transfer body, also used by pending
// transfer settlement so the state flip and the mutation commit together.
func applyTransferInTx(ctx context.Context, tx pgx.Tx, txn domain.Transaction) (int64, int64, error) {
	locked, err := lockAccounts(ctx, tx, txn.CommunityID, []string{txn.FromAccountID, txn.ToAccountID})
	if err != nil {
		return 0, 0, err
	}
	from := locked[txn.FromAccountID]
	to := locked[txn.ToAccountID]

	if err := checkMutable(from); err != nil {
		return 0, 0, err
	}
	if err := checkMutable(to); err != nil {
		return 0, 0, err
	}

	fromBalance, err := debit(from, txn.Amount)
	if err != nil {
		return 0, 0, err
	}
	toBalance := to.Balance + txn.Amount

	if err := applyBalanceChange(ctx, tx, txn.CommunityID, txn.FromAccountID, fromBalance, txn.CreatedBy, txn.CreatedAt); err != nil {
		return 0, 0, err
	}
	if err := applyBalanceChange(ctx, tx, txn.CommunityID, txn.ToAccountID, toBalance, txn.CreatedBy, txn.CreatedAt); err != nil {
		return 0, 0, err
	}
	if err := insertTransaction(ctx, tx, txn); err != nil {
		return 0, 0, err
	}
	return fromBalance, toBalance, nil
}

// FindTransactionByID retrieves a single transaction record.
func (r *PgxLedgerRepository) FindTransactionByID(ctx context.Context, communityID, transactionID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE community_id = $1 AND transaction_id = $2;`
	return scanTransaction(r.Pool.QueryRow(ctx, query, communityID, transactionID))
}

// ListTransactions returns history records touching an account, newest first.
func (r *PgxLedgerRepository) ListTransactions(ctx context.Context, communityID, accountID string, limit, offset int) ([]domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + ` FROM transactions
		WHERE community_id = $1 AND (from_account_id = $2 OR to_account_id = $2)
		ORDER BY created_at DESC, transaction_id
		LIMIT $3 OFFSET $4;
	`
	rows, err := r.Pool.Query(ctx, query, communityID, accountID, limit, offset)
	if err != nil {
		return nil, wrapStoreErr("failed to list transactions", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("failed to iterate transactions", err)
	}
	return txns, nil
}

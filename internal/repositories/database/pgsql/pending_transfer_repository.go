package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civpoints/community_points_app/internal/apperrors"
	"github.com/civpoints/community_points_app/internal/core/domain"
	portsrepo "github.com/civpoints/community_points_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxPendingTransferRepository struct {
	BaseRepository
}

// newPgxPendingTransferRepository creates a new repository for the pending
// transfer workflow.
func newPgxPendingTransferRepository(pool *pgxpool.Pool) *PgxPendingTransferRepository {
	return &PgxPendingTransferRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxPendingTransferRepository implements portsrepo.PendingTransferRepository
var _ portsrepo.PendingTransferRepository = (*PgxPendingTransferRepository)(nil)

const pendingTransferColumns = `transfer_id, community_id, initiator_id, target_id, amount, reason, state, COALESCE(transaction_id, ''), created_at, decided_at, expires_at`

func scanPendingTransfer(row pgx.Row) (*domain.PendingTransfer, error) {
	var pt domain.PendingTransfer
	err := row.Scan(
		&pt.TransferID,
		&pt.CommunityID,
		&pt.InitiatorID,
		&pt.TargetID,
		&pt.Amount,
		&pt.Reason,
		&pt.State,
		&pt.TransactionID,
		&pt.CreatedAt,
		&pt.DecidedAt,
		&pt.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, wrapStoreErr("failed to scan pending transfer", err)
	}
	return &pt, nil
}

// CreatePendingTransfer persists a new record in the pending state.
func (r *PgxPendingTransferRepository) CreatePendingTransfer(ctx context.Context, transfer domain.PendingTransfer) error {
	query := `
		INSERT INTO pending_transfers (transfer_id, community_id, initiator_id, target_id, amount, reason, state, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.Pool.Exec(ctx, query,
		transfer.TransferID,
		transfer.CommunityID,
		transfer.InitiatorID,
		transfer.TargetID,
		transfer.Amount,
		transfer.Reason,
		transfer.State,
		transfer.CreatedAt,
		transfer.ExpiresAt,
	)
	if err != nil {
		return wrapStoreErr("failed to insert pending transfer "+transfer.TransferID, err)
	}
	return nil
}

// FindPendingTransferByID retrieves one record.
func (r *PgxPendingTransferRepository) FindPendingTransferByID(ctx context.Context, transferID string) (*domain.PendingTransfer, error) {
	query := `SELECT ` + pendingTransferColumns + ` FROM pending_transfers WHERE transfer_id = $1;`
	return scanPendingTransfer(r.Pool.QueryRow(ctx, query, transferID))
}

// DecidePendingTransfer transitions pending -> approved/rejected. The state
// gate lives in the UPDATE itself so two concurrent deciders cannot both win.
func (r *PgxPendingTransferRepository) DecidePendingTransfer(ctx context.Context, transferID string, state domain.PendingTransferState, decidedAt time.Time) (*domain.PendingTransfer, error) {
	query := `
		UPDATE pending_transfers SET state = $2, decided_at = $3
		WHERE transfer_id = $1 AND state = 'PENDING' AND expires_at > $3
		RETURNING ` + pendingTransferColumns + `;
	`
	pt, err := scanPendingTransfer(r.Pool.QueryRow(ctx, query, transferID, state, decidedAt))
	if err == nil {
		return pt, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	return nil, r.classifyRefusal(ctx, transferID)
}

// classifyRefusal turns a failed conditional transition into the precise
// workflow error.
func (r *PgxPendingTransferRepository) classifyRefusal(ctx context.Context, transferID string) error {
	current, err := r.FindPendingTransferByID(ctx, transferID)
	if err != nil {
		return err // includes ErrNotFound
	}
	switch current.State {
	case domain.TransferPending:
		return apperrors.ErrExpired // deadline passed, sweep not yet run
	case domain.TransferExpired:
		return apperrors.ErrExpired
	case domain.TransferSettled:
		return apperrors.ErrAlreadySettled
	default:
		return apperrors.ErrAlreadyDecided
	}
}

// SettlePendingTransfer applies the ledger mutation and flips the record to
// settled in one database transaction. Idempotent: re-settling returns the
// already-settled record untouched.
func (r *PgxPendingTransferRepository) SettlePendingTransfer(ctx context.Context, transferID string, txn domain.Transaction) (*domain.PendingTransfer, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer r.Rollback(ctx, tx)

	lockQuery := `SELECT ` + pendingTransferColumns + ` FROM pending_transfers WHERE transfer_id = $1 FOR UPDATE;`
	pt, err := scanPendingTransfer(tx.QueryRow(ctx, lockQuery, transferID))
	if err != nil {
		return nil, err
	}

	switch pt.State {
	case domain.TransferSettled:
		// Prior settlement wins; the ledger must not mutate twice.
		return pt, nil
	case domain.TransferApproved:
		// proceed
	default:
		return nil, apperrors.ErrNotApproved
	}

	if _, _, err := applyTransferInTx(ctx, tx, txn); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Both accounts are created at admission and never deleted. A
			// missing row here is store corruption, not stale work, and must
			// fail loudly instead of leaving the transfer approved forever.
			return nil, fmt.Errorf("transfer %s references a missing account: %w", transferID, apperrors.ErrPermanentStore)
		}
		return nil, err
	}

	updateQuery := `
		UPDATE pending_transfers SET state = 'SETTLED', transaction_id = $2
		WHERE transfer_id = $1
		RETURNING ` + pendingTransferColumns + `;
	`
	settled, err := scanPendingTransfer(tx.QueryRow(ctx, updateQuery, transferID, txn.TransactionID))
	if err != nil {
		return nil, err
	}
	if err := r.Commit(ctx, tx); err != nil {
		return nil, err
	}
	return settled, nil
}

// ExpirePendingTransfers sweeps stale pending records past their deadline.
func (r *PgxPendingTransferRepository) ExpirePendingTransfers(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE pending_transfers SET state = 'EXPIRED', decided_at = $1
		WHERE state = 'PENDING' AND expires_at <= $1;
	`
	tag, err := r.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, wrapStoreErr("failed to expire pending transfers", err)
	}
	return int(tag.RowsAffected()), nil
}

// MarkPendingTransferExpired force-expires one record. Applies to pending
// and approved records; settled and rejected records are left alone.
func (r *PgxPendingTransferRepository) MarkPendingTransferExpired(ctx context.Context, transferID string, now time.Time) error {
	query := `
		UPDATE pending_transfers SET state = 'EXPIRED', decided_at = $2
		WHERE transfer_id = $1 AND state IN ('PENDING', 'APPROVED');
	`
	tag, err := r.Pool.Exec(ctx, query, transferID, now)
	if err != nil {
		return wrapStoreErr("failed to mark pending transfer expired", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrAlreadyDecided
	}
	return nil
}

// ListApprovedUnsettled returns approved records awaiting settlement, oldest
// first, for crash-restart recovery.
func (r *PgxPendingTransferRepository) ListApprovedUnsettled(ctx context.Context, limit int) ([]domain.PendingTransfer, error) {
	query := `
		SELECT ` + pendingTransferColumns + ` FROM pending_transfers
		WHERE state = 'APPROVED'
		ORDER BY created_at
		LIMIT $1;
	`
	rows, err := r.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, wrapStoreErr("failed to list approved transfers", err)
	}
	defer rows.Close()

	var transfers []domain.PendingTransfer
	for rows.Next() {
		pt, err := scanPendingTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, *pt)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("failed to iterate approved transfers", err)
	}
	return transfers, nil
}

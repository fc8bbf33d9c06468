package repositories

import (
	"context"
	"time"

	"github.com/civpoints/community_points_app/internal/core/domain"
)

// PendingTransferRepository owns PendingTransfer records and their state
// machine transitions. Transitions are conditional single-statement updates;
// a transition that does not apply returns the current record so the caller
// can classify the refusal.
type PendingTransferRepository interface {
	// CreatePendingTransfer persists a new record in the pending state.
	CreatePendingTransfer(ctx context.Context, transfer domain.PendingTransfer) error

	// FindPendingTransferByID retrieves one record.
	FindPendingTransferByID(ctx context.Context, transferID string) (*domain.PendingTransfer, error)

	// DecidePendingTransfer transitions pending -> approved/rejected, gated on
	// the record still being pending and not past its deadline.
	DecidePendingTransfer(ctx context.Context, transferID string, state domain.PendingTransferState, decidedAt time.Time) (*domain.PendingTransfer, error)

	// SettlePendingTransfer applies the ledger transfer and flips
	// approved -> settled in one store transaction. Idempotent: an
	// already-settled record returns its recorded transaction ID without
	// re-mutating the ledger.
	SettlePendingTransfer(ctx context.Context, transferID string, txn domain.Transaction) (*domain.PendingTransfer, error)

	// ExpirePendingTransfers sweeps pending records past their deadline into
	// the expired state and reports how many were transitioned.
	ExpirePendingTransfers(ctx context.Context, now time.Time) (int, error)

	// MarkPendingTransferExpired force-expires one record regardless of its
	// deadline. Used when the settlement retry ceiling is exhausted.
	MarkPendingTransferExpired(ctx context.Context, transferID string, now time.Time) error

	// ListApprovedUnsettled returns approved records awaiting settlement, for
	// crash-restart re-enqueueing.
	ListApprovedUnsettled(ctx context.Context, limit int) ([]domain.PendingTransfer, error)
}

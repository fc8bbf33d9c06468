package repositories

import (
	"context"

	"github.com/civpoints/community_points_app/internal/core/domain"
)

// LedgerRepository applies balance mutations. Each mutation method runs in a
// single store transaction: the balance change(s) and the appended
// Transaction record become visible together or not at all.
type LedgerRepository interface {
	// ApplyAdjust credits or debits one account by txn.Amount (sign carried
	// separately via delta) and appends txn. Returns the new balance.
	ApplyAdjust(ctx context.Context, delta int64, txn domain.Transaction) (int64, error)

	// ApplyTransfer debits txn.FromAccountID and credits txn.ToAccountID by
	// txn.Amount atomically, appending txn. Account rows are locked in ID
	// order to avoid deadlocks between concurrent transfers.
	ApplyTransfer(ctx context.Context, txn domain.Transaction) (fromBalance, toBalance int64, err error)

	// FindTransactionByID retrieves a single transaction record.
	FindTransactionByID(ctx context.Context, communityID, transactionID string) (*domain.Transaction, error)

	// ListTransactions returns the append-only history touching an account,
	// newest first.
	ListTransactions(ctx context.Context, communityID, accountID string, limit, offset int) ([]domain.Transaction, error)
}

package services

import (
	"context"

	"github.com/civpoints/community_points_app/internal/core/domain"
)

// LedgerSvc performs atomic balance mutations. Every successful mutation
// appends exactly one Transaction record in the same store transaction.
type LedgerSvc interface {
	// Adjust credits (positive delta) or debits (negative delta) one account
	// and returns the new balance.
	Adjust(ctx context.Context, communityID, accountID string, delta int64, reason, actorID string) (int64, error)

	// Transfer atomically debits from and credits to. Zero or negative
	// amounts and self-transfers are rejected, never silently accepted.
	Transfer(ctx context.Context, communityID, from, to string, amount int64, reason, actorID string, kind domain.TransactionKind) (*domain.TransferResult, error)

	// GetTransaction retrieves a single history record.
	GetTransaction(ctx context.Context, communityID, transactionID string) (*domain.Transaction, error)

	// ListTransactions returns the history touching an account, newest first.
	ListTransactions(ctx context.Context, communityID, accountID string, limit, offset int) ([]domain.Transaction, error)
}

// RateLimitSvc gates transfer admission per initiating account.
type RateLimitSvc interface {
	// CheckAndRecord admits the attempt or fails with ErrCooldownActive /
	// ErrDailyLimitExceeded. Admission and counter update are one atomic step.
	CheckAndRecord(ctx context.Context, communityID, accountID string, amount int64) error
}

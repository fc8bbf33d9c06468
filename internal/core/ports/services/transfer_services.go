package services

import (
	"context"
	"time"

	"github.com/civpoints/community_points_app/internal/core/domain"
)

// TransferSvc runs the pending-transfer workflow. Both the synchronous fast
// path and the async path apply the same rate limiter and ledger invariants.
type TransferSvc interface {
	// TransferNow is the synchronous fast path: rate limit check, then a
	// direct ledger transfer.
	TransferNow(ctx context.Context, communityID, initiator, target string, amount int64, reason string) (*domain.TransferResult, error)

	// Submit admits a transfer for asynchronous settlement: rate limit check,
	// then a pending record awaiting a decision.
	Submit(ctx context.Context, communityID, initiator, target string, amount int64, reason string) (*domain.PendingTransfer, error)

	// Decide transitions pending -> approved/rejected. Approval enqueues the
	// transfer for settlement.
	Decide(ctx context.Context, transferID string, outcome domain.DecisionOutcome, deciderID string, token *InteractionToken) (*domain.PendingTransfer, error)

	// Cancel rejects a transfer on behalf of its initiator. Allowed only
	// while pending; once approved the caller must wait for the outcome.
	Cancel(ctx context.Context, transferID, actorID string) (*domain.PendingTransfer, error)

	// Settle applies the ledger mutation for an approved transfer. Idempotent.
	Settle(ctx context.Context, transferID string) (*domain.Transaction, error)

	// GetTransfer retrieves one pending-transfer record.
	GetTransfer(ctx context.Context, transferID string) (*domain.PendingTransfer, error)

	// ExpireStale sweeps pending records past their deadline.
	ExpireStale(ctx context.Context, now time.Time) (int, error)

	// RecoverApproved re-enqueues approved-but-unsettled records after a
	// restart. All in-flight state is re-discoverable from the store.
	RecoverApproved(ctx context.Context) (int, error)
}

// SettlementQueue decouples transfer admission from settlement. Enqueued
// items are processed by a bounded worker pool which guarantees at most one
// in-flight settlement per account.
type SettlementQueue interface {
	// Enqueue admits a settlement work item. Returns false when the queue is
	// saturated; the record stays approved and is picked up by recovery.
	Enqueue(item SettlementItem) bool
}

// SettlementItem is one unit of settlement work.
type SettlementItem struct {
	TransferID  string
	CommunityID string
	InitiatorID string
	TargetID    string
	Token       *InteractionToken
}

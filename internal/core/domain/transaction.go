package domain

import "time"

// TransactionKind records which operation produced a ledger transaction.
type TransactionKind string

const (
	TxnAdjust   TransactionKind = "ADJUST"
	TxnTransfer TransactionKind = "TRANSFER"
	TxnTreasury TransactionKind = "TREASURY" // governance-executed transfer
)

// Transaction is an immutable ledger record, appended atomically with the
// balance mutation it represents. It is never mutated or deleted.
type Transaction struct {
	TransactionID string          `json:"transactionID"`
	CommunityID   string          `json:"communityID"`
	FromAccountID string          `json:"fromAccountID"` // empty for pure credits
	ToAccountID   string          `json:"toAccountID"`   // empty for pure debits
	Amount        int64           `json:"amount"`        // always positive
	Reason        string          `json:"reason"`
	Kind          TransactionKind `json:"kind"`
	CreatedAt     time.Time       `json:"createdAt"`
	CreatedBy     string          `json:"createdBy"`
}

// TransferResult carries the post-transfer balances alongside the appended
// transaction record.
type TransferResult struct {
	FromBalance int64
	ToBalance   int64
	Transaction Transaction
}

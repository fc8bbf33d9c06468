package domain

import "time"

// PendingTransferState tracks the lifecycle of an admitted but unsettled
// transfer. Exactly one terminal state is reachable from PENDING; there are
// no transitions out of terminal states (SETTLED follows APPROVED).
type PendingTransferState string

const (
	TransferPending  PendingTransferState = "PENDING"
	TransferApproved PendingTransferState = "APPROVED"
	TransferRejected PendingTransferState = "REJECTED"
	TransferSettled  PendingTransferState = "SETTLED"
	TransferExpired  PendingTransferState = "EXPIRED"
)

// DecisionOutcome is the caller-supplied verdict for a pending transfer.
type DecisionOutcome string

const (
	DecisionApprove DecisionOutcome = "APPROVE"
	DecisionReject  DecisionOutcome = "REJECT"
)

// PendingTransfer is a transfer admitted for processing but not yet settled.
// Destroyed only by retention policy, never by business logic.
type PendingTransfer struct {
	TransferID    string               `json:"transferID"`
	CommunityID   string               `json:"communityID"`
	InitiatorID   string               `json:"initiatorID"`
	TargetID      string               `json:"targetID"`
	Amount        int64                `json:"amount"`
	Reason        string               `json:"reason"`
	State         PendingTransferState `json:"state"`
	TransactionID string               `json:"transactionID,omitempty"` // set once settled
	CreatedAt     time.Time            `json:"createdAt"`
	DecidedAt     *time.Time           `json:"decidedAt,omitempty"`
	ExpiresAt     time.Time            `json:"expiresAt"`
}

// Terminal reports whether the state admits no further transitions.
func (s PendingTransferState) Terminal() bool {
	return s == TransferRejected || s == TransferSettled || s == TransferExpired
}

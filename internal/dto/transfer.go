package dto

import (
	"time"

	"github.com/civpoints/community_points_app/internal/core/domain"
)

// SubmitTransferRequest admits a transfer for the approval workflow.
type SubmitTransferRequest struct {
	TargetAccountID string `json:"targetAccountID" binding:"required"`
	Amount          int64  `json:"amount" binding:"required,gt=0"`
	Reason          string `json:"reason" binding:"max=500"`
}

// DecideTransferRequest carries the approve/reject verdict. The optional
// interaction token lets the settlement worker reply to the originating
// interaction.
type DecideTransferRequest struct {
	Outcome        domain.DecisionOutcome `json:"outcome" binding:"required,oneof=APPROVE REJECT"`
	TokenValue     string                 `json:"tokenValue"`
	TokenExpiresAt *time.Time             `json:"tokenExpiresAt"`
}

// PendingTransferResponse mirrors domain.PendingTransfer.
type PendingTransferResponse struct {
	TransferID    string                      `json:"transferID"`
	CommunityID   string                      `json:"communityID"`
	InitiatorID   string                      `json:"initiatorID"`
	TargetID      string                      `json:"targetID"`
	Amount        int64                       `json:"amount"`
	Reason        string                      `json:"reason"`
	State         domain.PendingTransferState `json:"state"`
	TransactionID string                      `json:"transactionID,omitempty"`
	CreatedAt     time.Time                   `json:"createdAt"`
	DecidedAt     *time.Time                  `json:"decidedAt,omitempty"`
	ExpiresAt     time.Time                   `json:"expiresAt"`
}

// ToPendingTransferResponse converts a domain.PendingTransfer to its DTO.
func ToPendingTransferResponse(t *domain.PendingTransfer) PendingTransferResponse {
	return PendingTransferResponse{
		TransferID:    t.TransferID,
		CommunityID:   t.CommunityID,
		InitiatorID:   t.InitiatorID,
		TargetID:      t.TargetID,
		Amount:        t.Amount,
		Reason:        t.Reason,
		State:         t.State,
		TransactionID: t.TransactionID,
		CreatedAt:     t.CreatedAt,
		DecidedAt:     t.DecidedAt,
		ExpiresAt:     t.ExpiresAt,
	}
}

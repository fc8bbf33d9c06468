package dto

import (
	"time"

	"github.com/civpoints/community_points_app/internal/core/domain"
)

// AdjustRequest credits or debits one account by a signed delta.
type AdjustRequest struct {
	Delta  int64  `json:"delta" binding:"required"`
	Reason string `json:"reason" binding:"required,max=500"`
}

// AdjustResponse returns the post-adjustment balance.
type AdjustResponse struct {
	AccountID  string `json:"accountID"`
	NewBalance int64  `json:"newBalance"`
}

// TransferRequest moves points between two accounts synchronously.
type TransferRequest struct {
	TargetAccountID string `json:"targetAccountID" binding:"required"`
	Amount          int64  `json:"amount" binding:"required,gt=0"`
	Reason          string `json:"reason" binding:"max=500"`
}

// TransferResponse returns both post-transfer balances and the appended
// transaction.
type TransferResponse struct {
	FromBalance int64               `json:"fromBalance"`
	ToBalance   int64               `json:"toBalance"`
	Transaction TransactionResponse `json:"transaction"`
}

// ToTransferResponse converts a domain.TransferResult to its DTO.
func ToTransferResponse(res *domain.TransferResult) TransferResponse {
	return TransferResponse{
		FromBalance: res.FromBalance,
		ToBalance:   res.ToBalance,
		Transaction: ToTransactionResponse(&res.Transaction),
	}
}

// TransactionResponse mirrors domain.Transaction.
type TransactionResponse struct {
	TransactionID string                 `json:"transactionID"`
	CommunityID   string                 `json:"communityID"`
	FromAccountID string                 `json:"fromAccountID,omitempty"`
	ToAccountID   string                 `json:"toAccountID,omitempty"`
	Amount        int64                  `json:"amount"`
	Reason        string                 `json:"reason"`
	Kind          domain.TransactionKind `json:"kind"`
	CreatedAt     time.Time              `json:"createdAt"`
	CreatedBy     string                 `json:"createdBy"`
}

// ToTransactionResponse converts a domain.Transaction to its DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	return TransactionResponse{
		TransactionID: txn.TransactionID,
		CommunityID:   txn.CommunityID,
		FromAccountID: txn.FromAccountID,
		ToAccountID:   txn.ToAccountID,
		Amount:        txn.Amount,
		Reason:        txn.Reason,
		Kind:          txn.Kind,
		CreatedAt:     txn.CreatedAt,
		CreatedBy:     txn.CreatedBy,
	}
}

// ListTransactionsResponse wraps a page of transactions.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
}

// ToListTransactionsResponse converts a slice of transactions to the wrapper DTO.
func ToListTransactionsResponse(txns []domain.Transaction) ListTransactionsResponse {
	res := make([]TransactionResponse, len(txns))
	for i := range txns {
		res[i] = ToTransactionResponse(&txns[i])
	}
	return ListTransactionsResponse{Transactions: res}
}

package dto

import (
	"time"

	"github.com/civpoints/community_points_app/internal/core/domain"
)

// AccountResponse defines the data returned for an account.
// Mirrors domain.Account.
type AccountResponse struct {
	CommunityID   string             `json:"communityID"`
	AccountID     string             `json:"accountID"`
	Kind          domain.AccountKind `json:"kind"`
	Balance       int64              `json:"balance"`
	AllowNegative bool               `json:"allowNegative"`
	Frozen        bool               `json:"frozen"`
	CreatedAt     time.Time          `json:"createdAt"`
	LastUpdatedAt time.Time          `json:"lastUpdatedAt"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		CommunityID:   acc.CommunityID,
		AccountID:     acc.AccountID,
		Kind:          acc.Kind,
		Balance:       acc.Balance,
		AllowNegative: acc.AllowNegative,
		Frozen:        acc.Frozen,
		CreatedAt:     acc.CreatedAt,
		LastUpdatedAt: acc.LastUpdatedAt,
	}
}

// ToListAccountResponse converts a slice of domain.Account to response DTOs
func ToListAccountResponse(accounts []domain.Account) []AccountResponse {
	res := make([]AccountResponse, len(accounts))
	for i := range accounts {
		res[i] = ToAccountResponse(&accounts[i])
	}
	return res
}

// ListAccountsResponse wraps a page of accounts.
type ListAccountsResponse struct {
	Accounts []AccountResponse `json:"accounts"`
}

// SetFrozenRequest flips the frozen flag on an account.
type SetFrozenRequest struct {
	Frozen *bool `json:"frozen" binding:"required"`
}

// ListParams defines common pagination query parameters.
type ListParams struct {
	Limit  int `form:"limit,default=20" binding:"min=0,max=200"`
	Offset int `form:"offset,default=0" binding:"min=0"`
}

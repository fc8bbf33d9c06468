package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/civpoints/community_points_app/internal/apperrors"
	"github.com/civpoints/community_points_app/internal/core/domain"
	portsrepo "github.com/civpoints/community_points_app/internal/core/ports/repositories"
	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
	"github.com/google/uuid"
)

// ledgerService provides atomic balance mutations and history reads.
type ledgerService struct {
	BaseService
	ledgerRepo  portsrepo.LedgerRepository
	accountRepo portsrepo.AccountRepositoryFacade
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(ledgerRepo portsrepo.LedgerRepository, accountRepo portsrepo.AccountRepositoryFacade) portssvc.LedgerSvc {
	return &ledgerService{
		ledgerRepo:  ledgerRepo,
		accountRepo: accountRepo,
	}
}

// Ensure ledgerService implements the portssvc.LedgerSvc interface
var _ portssvc.LedgerSvc = (*ledgerService)(nil)

// Adjust credits or debits one account. The target account is created lazily
// on first reference, so adjustments never fail on a fresh member.
func (s *ledgerService) Adjust(ctx context.Context, communityID, accountID string, delta int64, reason, actorID string) (int64, error) {
	if delta == 0 {
		return 0, apperrors.ErrInvalidAmount
	}

	if err := s.ensureExists(ctx, communityID, accountID); err != nil {
		return 0, err
	}

	now := time.Now()
	amount := delta
	txn := domain.Transaction{
		TransactionID: uuid.NewString(),
		CommunityID:   communityID,
		Reason:        reason,
		Kind:          domain.TxnAdjust,
		CreatedAt:     now,
		CreatedBy:     actorID,
	}
	if delta > 0 {
		txn.ToAccountID = accountID
	} else {
		txn.FromAccountID = accountID
		amount = -delta
	}
	txn.Amount = amount

	newBalance, err := s.ledgerRepo.ApplyAdjust(ctx, delta, txn)
	if err != nil {
		s.LogError(ctx, err, "Failed to adjust balance",
			slog.String("community_id", communityID),
			slog.String("account_id", accountID),
			slog.Int64("delta", delta))
		return 0, err
	}

	s.LogInfo(ctx, "Balance adjusted",
		slog.String("account_id", accountID),
		slog.Int64("delta", delta),
		slog.Int64("new_balance", newBalance))
	return newBalance, nil
}

// Transfer atomically moves amount between two accounts. Validation failures
// are returned as typed errors and never retried automatically.
func (s *ledgerService) Transfer(ctx context.Context, communityID, from, to string, amount int64, reason, actorID string, kind domain.TransactionKind) (*domain.TransferResult, error) {
	if amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if from == to {
		return nil, apperrors.ErrSameAccount
	}

	if err := s.ensureExists(ctx, communityID, from); err != nil {
		return nil, err
	}
	if err := s.ensureExists(ctx, communityID, to); err != nil {
		return nil, err
	}

	txn := domain.Transaction{
		TransactionID: uuid.NewString(),
		CommunityID:   communityID,
		FromAccountID: from,
		ToAccountID:   to,
		Amount:        amount,
		Reason:        reason,
		Kind:          kind,
		CreatedAt:     time.Now(),
		CreatedBy:     actorID,
	}

	fromBalance, toBalance, err := s.ledgerRepo.ApplyTransfer(ctx, txn)
	if err != nil {
		s.LogError(ctx, err, "Failed to apply transfer",
			slog.String("community_id", communityID),
			slog.String("from", from),
			slog.String("to", to),
			slog.Int64("amount", amount))
		return nil, err
	}

	s.LogInfo(ctx, "Transfer applied",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("from", from),
		slog.String("to", to),
		slog.Int64("amount", amount))
	return &domain.TransferResult{
		FromBalance: fromBalance,
		ToBalance:   toBalance,
		Transaction: txn,
	}, nil
}

// GetTransaction retrieves a single history record.
func (s *ledgerService) GetTransaction(ctx context.Context, communityID, transactionID string) (*domain.Transaction, error) {
	return s.ledgerRepo.FindTransactionByID(ctx, communityID, transactionID)
}

// ListTransactions returns the history touching an account, newest first.
func (s *ledgerService) ListTransactions(ctx context.Context, communityID, accountID string, limit, offset int) ([]domain.Transaction, error) {
	txns, err := s.ledgerRepo.ListTransactions(ctx, communityID, accountID, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions",
			slog.String("community_id", communityID),
			slog.String("account_id", accountID))
		return nil, err
	}
	if txns == nil {
		return []domain.Transaction{}, nil
	}
	return txns, nil
}

// ensureExists lazily creates an account row on first reference. The kind
// and balance floor derive from the ID shape, so a treasury transfer reaching
// a community before its panel-open ensure ran still creates the collective
// account correctly.
func (s *ledgerService) ensureExists(ctx context.Context, communityID, accountID string) error {
	return s.accountRepo.EnsureAccount(ctx, lazyAccount(communityID, accountID, time.Now()))
}

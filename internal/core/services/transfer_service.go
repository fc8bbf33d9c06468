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

// transferService runs the pending-transfer workflow. Both the synchronous
// fast path and the async path go through the same rate limiter and ledger,
// so the invariants cannot drift between paths.
type transferService struct {
	BaseService
	transferRepo portsrepo.PendingTransferRepository
	accountRepo  portsrepo.AccountRepositoryFacade
	ledger       portssvc.LedgerSvc
	limiter      portssvc.RateLimitSvc
	queue        portssvc.SettlementQueue
	pendingTTL   time.Duration
}

// NewTransferService creates a new TransferService. The settlement queue is
// attached after construction because the worker pool settles through this
// service.
func NewTransferService(
	transferRepo portsrepo.PendingTransferRepository,
	accountRepo portsrepo.AccountRepositoryFacade,
	ledger portssvc.LedgerSvc,
	limiter portssvc.RateLimitSvc,
	pendingTTL time.Duration,
) *TransferService {
	return &TransferService{inner: &transferService{
		transferRepo: transferRepo,
		accountRepo:  accountRepo,
		ledger:       ledger,
		limiter:      limiter,
		pendingTTL:   pendingTTL,
	}}
}

// TransferService is the exported handle; it exists so the container can
// attach the settlement queue after the pool is built.
type TransferService struct {
	inner *transferService
}

// AttachQueue wires the settlement queue once the pool exists.
func (s *TransferService) AttachQueue(queue portssvc.SettlementQueue) {
	s.inner.queue = queue
}

// Ensure TransferService implements the portssvc.TransferSvc interface
var _ portssvc.TransferSvc = (*TransferService)(nil)

func (s *TransferService) TransferNow(ctx context.Context, communityID, initiator, target string, amount int64, reason string) (*domain.TransferResult, error) {
	return s.inner.transferNow(ctx, communityID, initiator, target, amount, reason)
}

func (s *TransferService) Submit(ctx context.Context, communityID, initiator, target string, amount int64, reason string) (*domain.PendingTransfer, error) {
	return s.inner.submit(ctx, communityID, initiator, target, amount, reason)
}

func (s *TransferService) Decide(ctx context.Context, transferID string, outcome domain.DecisionOutcome, deciderID string, token *portssvc.InteractionToken) (*domain.PendingTransfer, error) {
	return s.inner.decide(ctx, transferID, outcome, deciderID, token)
}

func (s *TransferService) Cancel(ctx context.Context, transferID, actorID string) (*domain.PendingTransfer, error) {
	return s.inner.cancel(ctx, transferID, actorID)
}

func (s *TransferService) Settle(ctx context.Context, transferID string) (*domain.Transaction, error) {
	return s.inner.settle(ctx, transferID)
}

func (s *TransferService) GetTransfer(ctx context.Context, transferID string) (*domain.PendingTransfer, error) {
	return s.inner.transferRepo.FindPendingTransferByID(ctx, transferID)
}

func (s *TransferService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	return s.inner.expireStale(ctx, now)
}

func (s *TransferService) RecoverApproved(ctx context.Context) (int, error) {
	return s.inner.recoverApproved(ctx)
}

// transferNow is the synchronous fast path.
func (s *transferService) transferNow(ctx context.Context, communityID, initiator, target string, amount int64, reason string) (*domain.TransferResult, error) {
	if amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if initiator == target {
		return nil, apperrors.ErrSameAccount
	}
	if err := s.limiter.CheckAndRecord(ctx, communityID, initiator, amount); err != nil {
		return nil, err
	}
	return s.ledger.Transfer(ctx, communityID, initiator, target, amount, reason, initiator, domain.TxnTransfer)
}

// submit admits a transfer for asynchronous settlement.
func (s *transferService) submit(ctx context.Context, communityID, initiator, target string, amount int64, reason string) (*domain.PendingTransfer, error) {
	if amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}
	if initiator == target {
		return nil, apperrors.ErrSameAccount
	}
	if err := s.limiter.CheckAndRecord(ctx, communityID, initiator, amount); err != nil {
		return nil, err
	}

	now := time.Now()
	// Both account rows must exist before settlement runs, which may be long
	// after admission and on a worker with no request context.
	for _, id := range []string{initiator, target} {
		if err := s.accountRepo.EnsureAccount(ctx, lazyAccount(communityID, id, now)); err != nil {
			s.LogError(ctx, err, "Failed to ensure account for pending transfer",
				slog.String("community_id", communityID),
				slog.String("account_id", id))
			return nil, err
		}
	}

	transfer := domain.PendingTransfer{
		TransferID:  uuid.NewString(),
		CommunityID: communityID,
		InitiatorID: initiator,
		TargetID:    target,
		Amount:      amount,
		Reason:      reason,
		State:       domain.TransferPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.pendingTTL),
	}
	if err := s.transferRepo.CreatePendingTransfer(ctx, transfer); err != nil {
		s.LogError(ctx, err, "Failed to create pending transfer",
			slog.String("community_id", communityID),
			slog.String("initiator", initiator))
		return nil, err
	}

	s.LogInfo(ctx, "Pending transfer created",
		slog.String("transfer_id", transfer.TransferID),
		slog.Int64("amount", amount))
	return &transfer, nil
}

// decide transitions pending -> approved/rejected. Approval enqueues the
// settlement work item carrying the interaction token.
func (s *transferService) decide(ctx context.Context, transferID string, outcome domain.DecisionOutcome, deciderID string, token *portssvc.InteractionToken) (*domain.PendingTransfer, error) {
	state := domain.TransferRejected
	if outcome == domain.DecisionApprove {
		state = domain.TransferApproved
	}

	transfer, err := s.transferRepo.DecidePendingTransfer(ctx, transferID, state, time.Now())
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Pending transfer decided",
		slog.String("transfer_id", transferID),
		slog.String("decider", deciderID),
		slog.String("state", string(transfer.State)))

	if transfer.State == domain.TransferApproved {
		s.enqueueSettlement(ctx, transfer, token)
	}
	return transfer, nil
}

// cancel rejects a pending transfer on behalf of its initiator. Once
// approved, cancellation is refused and the caller waits for the outcome.
func (s *transferService) cancel(ctx context.Context, transferID, actorID string) (*domain.PendingTransfer, error) {
	transfer, err := s.transferRepo.FindPendingTransferByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if transfer.InitiatorID != actorID {
		return nil, apperrors.ErrNotEligible
	}
	return s.transferRepo.DecidePendingTransfer(ctx, transferID, domain.TransferRejected, time.Now())
}

// settle applies the ledger mutation for an approved transfer. Idempotent:
// a transfer settled earlier returns its recorded transaction unchanged.
func (s *transferService) settle(ctx context.Context, transferID string) (*domain.Transaction, error) {
	transfer, err := s.transferRepo.FindPendingTransferByID(ctx, transferID)
	if err != nil {
		return nil, err
	}

	candidate := domain.Transaction{
		TransactionID: uuid.NewString(),
		CommunityID:   transfer.CommunityID,
		FromAccountID: transfer.InitiatorID,
		ToAccountID:   transfer.TargetID,
		Amount:        transfer.Amount,
		Reason:        transfer.Reason,
		Kind:          domain.TxnTransfer,
		CreatedAt:     time.Now(),
		CreatedBy:     transfer.InitiatorID,
	}

	settled, err := s.transferRepo.SettlePendingTransfer(ctx, transferID, candidate)
	if err != nil {
		return nil, err
	}

	if settled.TransactionID != candidate.TransactionID {
		// Prior settlement won; hand back its transaction.
		return s.ledger.GetTransaction(ctx, settled.CommunityID, settled.TransactionID)
	}

	s.LogInfo(ctx, "Pending transfer settled",
		slog.String("transfer_id", transferID),
		slog.String("transaction_id", candidate.TransactionID))
	return &candidate, nil
}

func (s *transferService) expireStale(ctx context.Context, now time.Time) (int, error) {
	count, err := s.transferRepo.ExpirePendingTransfers(ctx, now)
	if err != nil {
		s.LogError(ctx, err, "Failed to expire pending transfers")
		return 0, err
	}
	if count > 0 {
		s.LogInfo(ctx, "Expired stale pending transfers", slog.Int("count", count))
	}
	return count, nil
}

// recoverApproved re-enqueues approved-but-unsettled transfers. In-flight
// state is re-discoverable from the store, so crash-restart needs no
// in-memory recovery.
func (s *transferService) recoverApproved(ctx context.Context) (int, error) {
	transfers, err := s.transferRepo.ListApprovedUnsettled(ctx, 500)
	if err != nil {
		return 0, err
	}
	for i := range transfers {
		// Tokens do not survive restarts; recovery settles without one.
		s.enqueueSettlement(ctx, &transfers[i], nil)
	}
	return len(transfers), nil
}

func (s *transferService) enqueueSettlement(ctx context.Context, transfer *domain.PendingTransfer, token *portssvc.InteractionToken) {
	if s.queue == nil {
		s.LogWarn(ctx, "No settlement queue attached; transfer stays approved",
			slog.String("transfer_id", transfer.TransferID))
		return
	}
	ok := s.queue.Enqueue(portssvc.SettlementItem{
		TransferID:  transfer.TransferID,
		CommunityID: transfer.CommunityID,
		InitiatorID: transfer.InitiatorID,
		TargetID:    transfer.TargetID,
		Token:       token,
	})
	if !ok {
		// Saturated queue is not a failure: the record stays approved and
		// the recovery sweep picks it up.
		s.LogWarn(ctx, "Settlement queue saturated",
			slog.String("transfer_id", transfer.TransferID))
	}
}

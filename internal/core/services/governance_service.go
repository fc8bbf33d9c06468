package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/civpoints/community_points_app/internal/apperrors"
	"github.com/civpoints/community_points_app/internal/core/domain"
	portsrepo "github.com/civpoints/community_points_app/internal/core/ports/repositories"
	portssvc "github.com/civpoints/community_points_app/internal/core/ports/services"
	"github.com/google/uuid"
)

// ThresholdResolver supplies the voting threshold policy configured for a
// governing body.
type ThresholdResolver func(domain.BodyKind) domain.ThresholdPolicy

// governanceService runs the proposal/vote state machine. The three governing
// bodies share the machine; only the injected threshold policy differs.
type governanceService struct {
	BaseService
	proposalRepo portsrepo.ProposalRepository
	rosterRepo   portsrepo.BodyRosterRepository
	accountRepo  portsrepo.AccountRepositoryFacade
	notifier     portssvc.Notifier
	thresholds   ThresholdResolver
	proposalTTL  time.Duration
}

// NewGovernanceService creates a new GovernanceService.
func NewGovernanceService(
	proposalRepo portsrepo.ProposalRepository,
	rosterRepo portsrepo.BodyRosterRepository,
	accountRepo portsrepo.AccountRepositoryFacade,
	notifier portssvc.Notifier,
	thresholds ThresholdResolver,
	proposalTTL time.Duration,
) portssvc.GovernanceSvc {
	return &governanceService{
		proposalRepo: proposalRepo,
		rosterRepo:   rosterRepo,
		accountRepo:  accountRepo,
		notifier:     notifier,
		thresholds:   thresholds,
		proposalTTL:  proposalTTL,
	}
}

// Ensure governanceService implements the portssvc.GovernanceSvc interface
var _ portssvc.GovernanceSvc = (*governanceService)(nil)

// Propose opens a proposal before one governing body. Only members of the
// body may propose to it.
func (s *governanceService) Propose(ctx context.Context, communityID string, body domain.BodyKind, proposerID string, kind domain.ProposalKind, title string, payload json.RawMessage) (*domain.Proposal, error) {
	if !domain.ValidBody(body) {
		return nil, apperrors.ErrValidation
	}
	if title == "" {
		return nil, apperrors.ErrValidation
	}
	if err := validatePayload(kind, payload); err != nil {
		return nil, err
	}

	member, err := s.rosterRepo.IsMember(ctx, communityID, body, proposerID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperrors.ErrNotEligible
	}

	now := time.Now()
	proposal := domain.Proposal{
		ProposalID:      uuid.NewString(),
		CommunityID:     communityID,
		Body:            body,
		ProposerID:      proposerID,
		Kind:            kind,
		Payload:         payload,
		ThresholdPolicy: s.thresholds(body),
		State:           domain.ProposalOpen,
		Title:           title,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.proposalTTL),
	}
	if err := s.proposalRepo.CreateProposal(ctx, proposal); err != nil {
		s.LogError(ctx, err, "Failed to create proposal",
			slog.String("community_id", communityID),
			slog.String("body", string(body)))
		return nil, err
	}

	s.LogInfo(ctx, "Proposal opened",
		slog.String("proposal_id", proposal.ProposalID),
		slog.String("body", string(body)),
		slog.String("policy", string(proposal.ThresholdPolicy)))
	return &proposal, nil
}

// CastVote records one immutable ballot. The store resolves the proposal
// early when the outcome is fixed; an approval then triggers the side effect
// here, outside the vote transaction, so an execution failure can never undo
// the resolution.
func (s *governanceService) CastVote(ctx context.Context, proposalID, voterID string, choice domain.VoteChoice) (*domain.Vote, *domain.Proposal, error) {
	if !domain.ValidChoice(choice) {
		return nil, nil, apperrors.ErrValidation
	}

	proposal, err := s.proposalRepo.FindProposalByID(ctx, proposalID)
	if err != nil {
		return nil, nil, err
	}

	member, err := s.rosterRepo.IsMember(ctx, proposal.CommunityID, proposal.Body, voterID)
	if err != nil {
		return nil, nil, err
	}
	if !member {
		return nil, nil, apperrors.ErrNotEligible
	}

	vote := domain.Vote{
		ProposalID: proposalID,
		VoterID:    voterID,
		Choice:     choice,
		CastAt:     time.Now(),
	}
	resolved, tally, err := s.proposalRepo.CastVote(ctx, vote)
	if err != nil {
		return nil, nil, err
	}

	s.LogInfo(ctx, "Vote cast",
		slog.String("proposal_id", proposalID),
		slog.String("voter", voterID),
		slog.String("state", string(resolved.State)),
		slog.Int("for", tally.For),
		slog.Int("against", tally.Against),
		slog.Int("abstain", tally.Abstain))

	switch resolved.State {
	case domain.ProposalResolvedApproved:
		s.notifyResolution(ctx, resolved, portssvc.EventProposalResolved)
		if err := s.execute(ctx, resolved); err != nil {
			// The resolution stands; the retry sweep picks this up.
			s.LogError(ctx, err, "Proposal execution failed",
				slog.String("proposal_id", proposalID))
		}
	case domain.ProposalResolvedRejected:
		s.notifyResolution(ctx, resolved, portssvc.EventProposalResolved)
	}

	return &vote, resolved, nil
}

// GetProposal retrieves a proposal with its current tally.
func (s *governanceService) GetProposal(ctx context.Context, proposalID string) (*domain.Proposal, domain.Tally, error) {
	proposal, err := s.proposalRepo.FindProposalByID(ctx, proposalID)
	if err != nil {
		return nil, domain.Tally{}, err
	}
	tally, err := s.proposalRepo.GetTally(ctx, proposalID)
	if err != nil {
		return nil, domain.Tally{}, err
	}
	return proposal, tally, nil
}

// ExpireStale sweeps open proposals past their deadline. Expiry never
// executes a side effect, whatever the tally says.
func (s *governanceService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	count, err := s.proposalRepo.ExpireProposals(ctx, now)
	if err != nil {
		s.LogError(ctx, err, "Failed to expire proposals")
		return 0, err
	}
	if count > 0 {
		s.LogInfo(ctx, "Expired stale proposals", slog.Int("count", count))
	}
	return count, nil
}

// RetryExecution re-attempts side effects for approved proposals whose
// execution previously failed.
func (s *governanceService) RetryExecution(ctx context.Context) (int, error) {
	proposals, err := s.proposalRepo.ListResolvedUnexecuted(ctx, 100)
	if err != nil {
		return 0, err
	}

	executed := 0
	for i := range proposals {
		if err := s.execute(ctx, &proposals[i]); err != nil {
			s.LogWarn(ctx, "Proposal execution retry failed",
				slog.String("proposal_id", proposals[i].ProposalID),
				slog.String("error", err.Error()))
			continue
		}
		executed++
	}
	return executed, nil
}

// execute applies the proposal's side effect and records it. The store runs
// the ledger mutation and the executed transition in one transaction, so the
// inline path and the retry sweep can race freely: exactly one of them wins
// the claim and the treasury transfer is applied exactly once.
func (s *governanceService) execute(ctx context.Context, proposal *domain.Proposal) error {
	var txn *domain.Transaction
	switch proposal.Kind {
	case domain.ProposalTreasuryTransfer:
		var payload domain.TreasuryTransferPayload
		if err := json.Unmarshal(proposal.Payload, &payload); err != nil {
			return apperrors.ErrInvalidPayload
		}
		now := time.Now()
		source := domain.CollectiveAccountID(proposal.Body, proposal.CommunityID)
		// The source collective and the recipient are created lazily, so an
		// approved proposal can execute in a community whose panel-open
		// ensure never ran.
		for _, id := range []string{source, payload.TargetAccountID} {
			if err := s.accountRepo.EnsureAccount(ctx, lazyAccount(proposal.CommunityID, id, now)); err != nil {
				return err
			}
		}
		txn = &domain.Transaction{
			TransactionID: uuid.NewString(),
			CommunityID:   proposal.CommunityID,
			FromAccountID: source,
			ToAccountID:   payload.TargetAccountID,
			Amount:        payload.Amount,
			Reason:        payload.Reason,
			Kind:          domain.TxnTreasury,
			CreatedAt:     now,
			CreatedBy:     proposal.ProposerID,
		}
	case domain.ProposalDecree:
		// Decrees carry no ledger side effect; the executed record is the
		// outcome.
	}

	if err := s.proposalRepo.ExecuteProposal(ctx, proposal.ProposalID, txn); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyDecided) {
			// A concurrent executor won the claim; the side effect is
			// already recorded once.
			s.LogDebug(ctx, "Proposal already executed",
				slog.String("proposal_id", proposal.ProposalID))
			return nil
		}
		return err
	}

	s.LogInfo(ctx, "Proposal executed",
		slog.String("proposal_id", proposal.ProposalID),
		slog.String("kind", string(proposal.Kind)))
	s.notifyResolution(ctx, proposal, portssvc.EventProposalExecuted)
	return nil
}

func (s *governanceService) notifyResolution(ctx context.Context, proposal *domain.Proposal, event portssvc.EventKind) {
	if s.notifier == nil {
		return
	}
	n := portssvc.Notification{
		CommunityID: proposal.CommunityID,
		RecipientID: proposal.ProposerID,
		Event:       event,
		Fields: map[string]string{
			"proposal_id": proposal.ProposalID,
			"title":       proposal.Title,
			"state":       string(proposal.State),
		},
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.LogWarn(ctx, "Notification delivery failed",
			slog.String("proposal_id", proposal.ProposalID),
			slog.String("error", err.Error()))
	}
}

// validatePayload checks the payload against the proposal kind before the
// proposal is persisted, so approval-time execution never meets a malformed
// payload.
func validatePayload(kind domain.ProposalKind, payload json.RawMessage) error {
	switch kind {
	case domain.ProposalTreasuryTransfer:
		var p domain.TreasuryTransferPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return apperrors.ErrInvalidPayload
		}
		if p.TargetAccountID == "" || p.Amount <= 0 {
			return apperrors.ErrInvalidPayload
		}
		return nil
	case domain.ProposalDecree:
		return nil
	default:
		return apperrors.ErrValidation
	}
}

// rosterService manages governing-body membership.
type rosterService struct {
	BaseService
	rosterRepo portsrepo.BodyRosterRepository
}

// NewRosterService creates a new RosterService.
func NewRosterService(rosterRepo portsrepo.BodyRosterRepository) portssvc.RosterSvc {
	return &rosterService{rosterRepo: rosterRepo}
}

// Ensure rosterService implements the portssvc.RosterSvc interface
var _ portssvc.RosterSvc = (*rosterService)(nil)

func (s *rosterService) AddMember(ctx context.Context, communityID string, body domain.BodyKind, userID, actorID string) error {
	if !domain.ValidBody(body) {
		return apperrors.ErrValidation
	}
	if err := s.rosterRepo.AddMember(ctx, communityID, body, userID, actorID); err != nil {
		s.LogError(ctx, err, "Failed to add body member",
			slog.String("community_id", communityID),
			slog.String("body", string(body)),
			slog.String("user_id", userID))
		return err
	}
	return nil
}

func (s *rosterService) RemoveMember(ctx context.Context, communityID string, body domain.BodyKind, userID string) error {
	if !domain.ValidBody(body) {
		return apperrors.ErrValidation
	}
	return s.rosterRepo.RemoveMember(ctx, communityID, body, userID)
}

func (s *rosterService) ListMembers(ctx context.Context, communityID string, body domain.BodyKind) ([]string, error) {
	if !domain.ValidBody(body) {
		return nil, apperrors.ErrValidation
	}
	members, err := s.rosterRepo.ListMembers(ctx, communityID, body)
	if err != nil {
		return nil, err
	}
	if members == nil {
		return []string{}, nil
	}
	return members, nil
}

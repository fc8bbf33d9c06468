package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/civpoints/community_points_app/internal/core/domain"
)

// GovernanceSvc runs the proposal/vote state machine, parameterized per
// governing body by an injected threshold policy.
type GovernanceSvc interface {
	// Propose opens a proposal before one governing body. The proposer must
	// be a member of that body.
	Propose(ctx context.Context, communityID string, body domain.BodyKind, proposerID string, kind domain.ProposalKind, title string, payload json.RawMessage) (*domain.Proposal, error)

	// CastVote records one immutable ballot and resolves the proposal early
	// when the outcome is fixed. Approval triggers the payload's side effect
	// exactly once.
	CastVote(ctx context.Context, proposalID, voterID string, choice domain.VoteChoice) (*domain.Vote, *domain.Proposal, error)

	// GetProposal retrieves a proposal with its current tally.
	GetProposal(ctx context.Context, proposalID string) (*domain.Proposal, domain.Tally, error)

	// ExpireStale sweeps open proposals past their deadline. No execution.
	ExpireStale(ctx context.Context, now time.Time) (int, error)

	// RetryExecution re-attempts side effects for approved proposals whose
	// execution previously failed. Execution failure never reverses a vote
	// outcome.
	RetryExecution(ctx context.Context) (int, error)
}

// RosterSvc manages governing-body membership.
type RosterSvc interface {
	AddMember(ctx context.Context, communityID string, body domain.BodyKind, userID, actorID string) error
	RemoveMember(ctx context.Context, communityID string, body domain.BodyKind, userID string) error
	ListMembers(ctx context.Context, communityID string, body domain.BodyKind) ([]string, error)
}

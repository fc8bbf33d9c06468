package repositories

import (
	"context"
	"time"

	"github.com/civpoints/community_points_app/internal/core/domain"
)

// ProposalRepository owns Proposal and Vote records.
type ProposalRepository interface {
	// CreateProposal persists a new open proposal.
	CreateProposal(ctx context.Context, proposal domain.Proposal) error

	// FindProposalByID retrieves one proposal.
	FindProposalByID(ctx context.Context, proposalID string) (*domain.Proposal, error)

	// CastVote inserts the vote, tallies, and resolves the proposal early when
	// the outcome is fixed, all while holding the proposal row lock in one
	// store transaction. Returns the (possibly resolved) proposal and the
	// tally including this vote. A duplicate (proposal, voter) pair fails
	// without touching the first vote.
	CastVote(ctx context.Context, vote domain.Vote) (*domain.Proposal, domain.Tally, error)

	// GetTally returns the current vote counts for a proposal.
	GetTally(ctx context.Context, proposalID string) (domain.Tally, error)

	// ExecuteProposal applies the proposal's treasury transaction (nil for
	// decrees) and transitions resolved(approved) -> executed in one store
	// transaction, so the ledger mutation and the executed mark commit
	// together. A proposal already executed returns ErrAlreadyDecided without
	// touching the ledger; any other state returns ErrNotApproved.
	ExecuteProposal(ctx context.Context, proposalID string, txn *domain.Transaction) error

	// ExpireProposals sweeps open proposals past their deadline into the
	// expired state and reports how many were transitioned.
	ExpireProposals(ctx context.Context, now time.Time) (int, error)

	// ListResolvedUnexecuted returns approved proposals whose side effect has
	// not been recorded, for the retry sweep.
	ListResolvedUnexecuted(ctx context.Context, limit int) ([]domain.Proposal, error)
}

// BodyRosterRepository owns governing-body membership, which defines vote
// eligibility and the eligible-voter count the threshold policies evaluate
// against.
type BodyRosterRepository interface {
	AddMember(ctx context.Context, communityID string, body domain.BodyKind, userID, actorID string) error
	RemoveMember(ctx context.Context, communityID string, body domain.BodyKind, userID string) error
	IsMember(ctx context.Context, communityID string, body domain.BodyKind, userID string) (bool, error)
	CountMembers(ctx context.Context, communityID string, body domain.BodyKind) (int, error)
	ListMembers(ctx context.Context, communityID string, body domain.BodyKind) ([]string, error)
}

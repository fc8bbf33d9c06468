package pgsql

import (
	"context"
	"errors"
	"time"

	"github.com/civpoints/community_points_app/internal/apperrors"
	"github.com/civpoints/community_points_app/internal/core/domain"
	portsrepo "github.com/civpoints/community_points_app/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgxProposalRepository struct {
	BaseRepository
}

// newPgxProposalRepository creates a new repository for proposals and votes.
func newPgxProposalRepository(pool *pgxpool.Pool) *PgxProposalRepository {
	return &PgxProposalRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxProposalRepository implements portsrepo.ProposalRepository
var _ portsrepo.ProposalRepository = (*PgxProposalRepository)(nil)

const proposalColumns = `proposal_id, community_id, body, proposer_id, kind, payload, threshold_policy, state, title, created_at, expires_at, resolved_at`

func scanProposal(row pgx.Row) (*domain.Proposal, error) {
	var p domain.Proposal
	err := row.Scan(
		&p.ProposalID,
		&p.CommunityID,
		&p.Body,
		&p.ProposerID,
		&p.Kind,
		&p.Payload,
		&p.ThresholdPolicy,
		&p.State,
		&p.Title,
		&p.CreatedAt,
		&p.ExpiresAt,
		&p.ResolvedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, wrapStoreErr("failed to scan proposal", err)
	}
	return &p, nil
}

// CreateProposal persists a new open proposal.
func (r *PgxProposalRepository) CreateProposal(ctx context.Context, proposal domain.Proposal) error {
	query := `
		INSERT INTO proposals (` + proposalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err := r.Pool.Exec(ctx, query,
		proposal.ProposalID,
		proposal.CommunityID,
		proposal.Body,
		proposal.ProposerID,
		proposal.Kind,
		proposal.Payload,
		proposal.ThresholdPolicy,
		proposal.State,
		proposal.Title,
		proposal.CreatedAt,
		proposal.ExpiresAt,
		proposal.ResolvedAt,
	)
	if err != nil {
		return wrapStoreErr("failed to insert proposal "+proposal.ProposalID, err)
	}
	return nil
}

// FindProposalByID retrieves one proposal.
func (r *PgxProposalRepository) FindProposalByID(ctx context.Context, proposalID string) (*domain.Proposal, error) {
	query := `SELECT ` + proposalColumns + ` FROM proposals WHERE proposal_id = $1;`
	return scanProposal(r.Pool.QueryRow(ctx, query, proposalID))
}

// CastVote inserts the ballot and resolves the proposal early when the
// outcome is fixed, all while holding the proposal row lock. The unique
// (proposal_id, voter_id) constraint guarantees the first ballot is never
// overwritten.
func (r *PgxProposalRepository) CastVote(ctx context.Context, vote domain.Vote) (*domain.Proposal, domain.Tally, error) {
	tx, err := r.Begin(ctx)
	if err != nil {
		return nil, domain.Tally{}, err
	}
	defer r.Rollback(ctx, tx)

	lockQuery := `SELECT ` + proposalColumns + ` FROM proposals WHERE proposal_id = $1 FOR UPDATE;`
	proposal, err := scanProposal(tx.QueryRow(ctx, lockQuery, vote.ProposalID))
	if err != nil {
		return nil, domain.Tally{}, err
	}

	if proposal.State != domain.ProposalOpen || !vote.CastAt.Before(proposal.ExpiresAt) {
		return nil, domain.Tally{}, apperrors.ErrProposalClosed
	}

	insertQuery := `INSERT INTO votes (proposal_id, voter_id, choice, cast_at) VALUES ($1, $2, $3, $4);`
	if _, err := tx.Exec(ctx, insertQuery, vote.ProposalID, vote.VoterID, vote.Choice, vote.CastAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.Tally{}, apperrors.ErrAlreadyVoted
		}
		return nil, domain.Tally{}, wrapStoreErr("failed to insert vote", err)
	}

	tally, err := tallyVotes(ctx, tx, vote.ProposalID)
	if err != nil {
		return nil, domain.Tally{}, err
	}

	eligible, err := countMembersInTx(ctx, tx, proposal.CommunityID, proposal.Body)
	if err != nil {
		return nil, domain.Tally{}, err
	}

	if outcome := proposal.ThresholdPolicy.Evaluate(tally, eligible); outcome != domain.OutcomeUndecided {
		newState := domain.ProposalResolvedRejected
		if outcome == domain.OutcomeApproved {
			newState = domain.ProposalResolvedApproved
		}
		resolveQuery := `
			UPDATE proposals SET state = $2, resolved_at = $3
			WHERE proposal_id = $1
			RETURNING ` + proposalColumns + `;
		`
		proposal, err = scanProposal(tx.QueryRow(ctx, resolveQuery, vote.ProposalID, newState, vote.CastAt))
		if err != nil {
			return nil, domain.Tally{}, err
		}
	}

	if err := r.Commit(ctx, tx); err != nil {
		return nil, domain.Tally{}, err
	}
	return proposal, tally, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func tallyVotes(ctx context.Context, q querier, proposalID string) (domain.Tally, error) {
	query := `SELECT choice, COUNT(*) FROM votes WHERE proposal_id = $1 GROUP BY choice;`
	rows, err := q.Query(ctx, query, proposalID)
	if err != nil {
		return domain.Tally{}, wrapStoreErr("failed to tally votes", err)
	}
	defer rows.Close()

	var tally domain.Tally
	for rows.Next() {
		var choice domain.VoteChoice
		var count int
		if err := rows.Scan(&choice, &count); err != nil {
			return domain.Tally{}, wrapStoreErr("failed to scan tally row", err)
		}
		switch choice {
		case domain.VoteFor:
			tally.For = count
		case domain.VoteAgainst:
			tally.Against = count
		case domain.VoteAbstain:
			tally.Abstain = count
		}
	}
	if err := rows.Err(); err != nil {
		return domain.Tally{}, wrapStoreErr("failed to iterate tally", err)
	}
	return tally, nil
}

// GetTally returns the current vote counts for a proposal.
func (r *PgxProposalRepository) GetTally(ctx context.Context, proposalID string) (domain.Tally, error) {
	return tallyVotes(ctx, r.Pool, proposalID)
}

// ExecuteProposal applies the treasury transaction and flips the proposal to
// executed in one database transaction. The proposal row lock is the claim:
// of two concurrent executors only one reaches the ledger, the other sees the
// executed state and backs off without mutating anything.
func (r *PgxProposalRepository) ExecuteProposal(ctx context.Context, proposalID string, txn *domain.Transaction) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	lockQuery := `SELECT ` + proposalColumns + ` FROM proposals WHERE proposal_id = $1 FOR UPDATE;`
	proposal, err := scanProposal(tx.QueryRow(ctx, lockQuery, proposalID))
	if err != nil {
		return err
	}
	switch proposal.State {
	case domain.ProposalExecuted:
		return apperrors.ErrAlreadyDecided
	case domain.ProposalResolvedApproved:
		// proceed
	default:
		return apperrors.ErrNotApproved
	}

	if txn != nil {
		if _, _, err := applyTransferInTx(ctx, tx, *txn); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE proposals SET state = 'EXECUTED' WHERE proposal_id = $1;`, proposalID); err != nil {
		return wrapStoreErr("failed to mark proposal executed", err)
	}
	return r.Commit(ctx, tx)
}

// ExpireProposals sweeps open proposals past their deadline. No execution.
func (r *PgxProposalRepository) ExpireProposals(ctx context.Context, now time.Time) (int, error) {
	query := `
		UPDATE proposals SET state = 'EXPIRED', resolved_at = $1
		WHERE state = 'OPEN' AND expires_at <= $1;
	`
	tag, err := r.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, wrapStoreErr("failed to expire proposals", err)
	}
	return int(tag.RowsAffected()), nil
}

// ListResolvedUnexecuted returns approved proposals with an unexecuted side
// effect, oldest first.
func (r *PgxProposalRepository) ListResolvedUnexecuted(ctx context.Context, limit int) ([]domain.Proposal, error) {
	query := `
		SELECT ` + proposalColumns + ` FROM proposals
		WHERE state = 'RESOLVED_APPROVED'
		ORDER BY created_at
		LIMIT $1;
	`
	rows, err := r.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, wrapStoreErr("failed to list unexecuted proposals", err)
	}
	defer rows.Close()

	var proposals []domain.Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		proposals = append(proposals, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("failed to iterate proposals", err)
	}
	return proposals, nil
}

// PgxBodyRosterRepository owns governing-body membership.
type PgxBodyRosterRepository struct {
	BaseRepository
}

func newPgxBodyRosterRepository(pool *pgxpool.Pool) *PgxBodyRosterRepository {
	return &PgxBodyRosterRepository{BaseRepository: BaseRepository{Pool: pool}}
}

// Ensure PgxBodyRosterRepository implements portsrepo.BodyRosterRepository
var _ portsrepo.BodyRosterRepository = (*PgxBodyRosterRepository)(nil)

func (r *PgxBodyRosterRepository) AddMember(ctx context.Context, communityID string, body domain.BodyKind, userID, actorID string) error {
	query := `
		INSERT INTO body_members (community_id, body, user_id, added_by, added_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (community_id, body, user_id) DO NOTHING;
	`
	_, err := r.Pool.Exec(ctx, query, communityID, body, userID, actorID, time.Now())
	if err != nil {
		return wrapStoreErr("failed to add body member", err)
	}
	return nil
}

func (r *PgxBodyRosterRepository) RemoveMember(ctx context.Context, communityID string, body domain.BodyKind, userID string) error {
	query := `DELETE FROM body_members WHERE community_id = $1 AND body = $2 AND user_id = $3;`
	tag, err := r.Pool.Exec(ctx, query, communityID, body, userID)
	if err != nil {
		return wrapStoreErr("failed to remove body member", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxBodyRosterRepository) IsMember(ctx context.Context, communityID string, body domain.BodyKind, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM body_members WHERE community_id = $1 AND body = $2 AND user_id = $3);`
	var exists bool
	if err := r.Pool.QueryRow(ctx, query, communityID, body, userID).Scan(&exists); err != nil {
		return false, wrapStoreErr("failed to check body membership", err)
	}
	return exists, nil
}

func (r *PgxBodyRosterRepository) CountMembers(ctx context.Context, communityID string, body domain.BodyKind) (int, error) {
	var count int
	if err := r.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM body_members WHERE community_id = $1 AND body = $2;`, communityID, body).Scan(&count); err != nil {
		return 0, wrapStoreErr("failed to count body members", err)
	}
	return count, nil
}

func (r *PgxBodyRosterRepository) ListMembers(ctx context.Context, communityID string, body domain.BodyKind) ([]string, error) {
	rows, err := r.Pool.Query(ctx, `SELECT user_id FROM body_members WHERE community_id = $1 AND body = $2 ORDER BY user_id;`, communityID, body)
	if err != nil {
		return nil, wrapStoreErr("failed to list body members", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapStoreErr("failed to scan body member", err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreErr("failed to iterate body members", err)
	}
	return members, nil
}

// countMembersInTx is the eligible-voter count used during vote resolution.
func countMembersInTx(ctx context.Context, tx pgx.Tx, communityID string, body domain.BodyKind) (int, error) {
	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM body_members WHERE community_id = $1 AND body = $2;`, communityID, body).Scan(&count); err != nil {
		return 0, wrapStoreErr("failed to count eligible voters", err)
	}
	return count, nil
}

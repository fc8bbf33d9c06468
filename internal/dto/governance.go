package dto

import (
	"encoding/json"
	"time"

	"github.com/civpoints/community_points_app/internal/core/domain"
)

// CreateProposalRequest opens a proposal before one governing body.
type CreateProposalRequest struct {
	Body    domain.BodyKind     `json:"body" binding:"required,oneof=COUNCIL STATE_COUNCIL SUPREME_ASSEMBLY"`
	Kind    domain.ProposalKind `json:"kind" binding:"required,oneof=TREASURY_TRANSFER DECREE"`
	Title   string              `json:"title" binding:"required,max=200"`
	Payload json.RawMessage     `json:"payload"`
}

// CastVoteRequest records one ballot.
type CastVoteRequest struct {
	Choice domain.VoteChoice `json:"choice" binding:"required,oneof=FOR AGAINST ABSTAIN"`
}

// TallyResponse mirrors domain.Tally.
type TallyResponse struct {
	For     int `json:"for"`
	Against int `json:"against"`
	Abstain int `json:"abstain"`
}

// ProposalResponse mirrors domain.Proposal plus its current tally.
type ProposalResponse struct {
	ProposalID      string                 `json:"proposalID"`
	CommunityID     string                 `json:"communityID"`
	Body            domain.BodyKind        `json:"body"`
	ProposerID      string                 `json:"proposerID"`
	Kind            domain.ProposalKind    `json:"kind"`
	Payload         json.RawMessage        `json:"payload,omitempty"`
	ThresholdPolicy domain.ThresholdPolicy `json:"thresholdPolicy"`
	State           domain.ProposalState   `json:"state"`
	Title           string                 `json:"title"`
	CreatedAt       time.Time              `json:"createdAt"`
	ExpiresAt       time.Time              `json:"expiresAt"`
	ResolvedAt      *time.Time             `json:"resolvedAt,omitempty"`
	Tally           *TallyResponse         `json:"tally,omitempty"`
}

// ToProposalResponse converts a domain.Proposal to its DTO.
func ToProposalResponse(p *domain.Proposal) ProposalResponse {
	return ProposalResponse{
		ProposalID:      p.ProposalID,
		CommunityID:     p.CommunityID,
		Body:            p.Body,
		ProposerID:      p.ProposerID,
		Kind:            p.Kind,
		Payload:         p.Payload,
		ThresholdPolicy: p.ThresholdPolicy,
		State:           p.State,
		Title:           p.Title,
		CreatedAt:       p.CreatedAt,
		ExpiresAt:       p.ExpiresAt,
		ResolvedAt:      p.ResolvedAt,
	}
}

// ToProposalWithTallyResponse attaches the tally to the proposal DTO.
func ToProposalWithTallyResponse(p *domain.Proposal, tally domain.Tally) ProposalResponse {
	res := ToProposalResponse(p)
	res.Tally = &TallyResponse{For: tally.For, Against: tally.Against, Abstain: tally.Abstain}
	return res
}

// VoteResponse mirrors domain.Vote, with the proposal state after the ballot.
type VoteResponse struct {
	ProposalID    string               `json:"proposalID"`
	VoterID       string               `json:"voterID"`
	Choice        domain.VoteChoice    `json:"choice"`
	CastAt        time.Time            `json:"castAt"`
	ProposalState domain.ProposalState `json:"proposalState"`
}

// AddMemberRequest adds a user to a governing-body roster.
type AddMemberRequest struct {
	UserID string `json:"userID" binding:"required"`
}

// ListMembersResponse wraps a body roster.
type ListMembersResponse struct {
	Body    domain.BodyKind `json:"body"`
	Members []string        `json:"members"`
}

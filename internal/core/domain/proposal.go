package domain

import (
	"encoding/json"
	"time"
)

// ProposalState tracks the proposal lifecycle. A proposal resolves the
// instant its outcome is fixed regardless of outstanding votes (early
// resolution); open proposals past their deadline expire with no execution.
type ProposalState string

const (
	ProposalOpen             ProposalState = "OPEN"
	ProposalResolvedApproved ProposalState = "RESOLVED_APPROVED"
	ProposalResolvedRejected ProposalState = "RESOLVED_REJECTED"
	ProposalExecuted         ProposalState = "EXECUTED"
	ProposalExpired          ProposalState = "EXPIRED"
)

// ProposalKind names the side effect a proposal carries.
type ProposalKind string

const (
	// ProposalTreasuryTransfer moves funds out of the body's collective
	// account on approval.
	ProposalTreasuryTransfer ProposalKind = "TREASURY_TRANSFER"
	// ProposalDecree carries no ledger side effect; the resolved record is
	// the outcome.
	ProposalDecree ProposalKind = "DECREE"
)

// TreasuryTransferPayload is the payload for ProposalTreasuryTransfer.
type TreasuryTransferPayload struct {
	TargetAccountID string `json:"targetAccountID"`
	Amount          int64  `json:"amount"`
	Reason          string `json:"reason"`
}

// Proposal is a governance action put before one governing body.
type Proposal struct {
	ProposalID      string          `json:"proposalID"`
	CommunityID     string          `json:"communityID"`
	Body            BodyKind        `json:"body"`
	ProposerID      string          `json:"proposerID"`
	Kind            ProposalKind    `json:"kind"`
	Payload         json.RawMessage `json:"payload"`
	ThresholdPolicy ThresholdPolicy `json:"thresholdPolicy"`
	State           ProposalState   `json:"state"`
	Title           string          `json:"title"`
	CreatedAt       time.Time       `json:"createdAt"`
	ExpiresAt       time.Time       `json:"expiresAt"`
	ResolvedAt      *time.Time      `json:"resolvedAt,omitempty"`
}

// VoteChoice is a single ballot option.
type VoteChoice string

const (
	VoteFor     VoteChoice = "FOR"
	VoteAgainst VoteChoice = "AGAINST"
	VoteAbstain VoteChoice = "ABSTAIN"
)

// ValidChoice reports whether c is a known ballot option.
func ValidChoice(c VoteChoice) bool {
	return c == VoteFor || c == VoteAgainst || c == VoteAbstain
}

// Vote is immutable once cast; re-casting is rejected, never overwritten.
type Vote struct {
	ProposalID string     `json:"proposalID"`
	VoterID    string     `json:"voterID"`
	Choice     VoteChoice `json:"choice"`
	CastAt     time.Time  `json:"castAt"`
}

// Tally is the current vote count for a proposal.
type Tally struct {
	For     int `json:"for"`
	Against int `json:"against"`
	Abstain int `json:"abstain"`
}

// Cast returns the number of ballots received.
func (t Tally) Cast() int {
	return t.For + t.Against + t.Abstain
}

// Add returns the tally with one more ballot of the given choice.
func (t Tally) Add(c VoteChoice) Tally {
	switch c {
	case VoteFor:
		t.For++
	case VoteAgainst:
		t.Against++
	case VoteAbstain:
		t.Abstain++
	}
	return t
}

// Outcome is the result of evaluating a threshold policy against a tally.
type Outcome string

const (
	OutcomeUndecided Outcome = "UNDECIDED"
	OutcomeApproved  Outcome = "APPROVED"
	OutcomeRejected  Outcome = "REJECTED"
)

// ThresholdPolicy decides when a proposal's outcome is fixed. Policies are
// parameterized per governing body from configuration so the three bodies
// share one state machine.
type ThresholdPolicy string

const (
	// PolicyMajority approves once more than half of the eligible voters
	// voted FOR.
	PolicyMajority ThresholdPolicy = "MAJORITY"
	// PolicySupermajority approves once at least two thirds of the eligible
	// voters voted FOR.
	PolicySupermajority ThresholdPolicy = "SUPERMAJORITY"
	// PolicyUnanimous rejects on any AGAINST ballot and approves only once
	// every eligible voter has cast and at least one voted FOR.
	PolicyUnanimous ThresholdPolicy = "UNANIMOUS"
)

// ValidPolicy reports whether p names a known threshold policy.
func ValidPolicy(p ThresholdPolicy) bool {
	return p == PolicyMajority || p == PolicySupermajority || p == PolicyUnanimous
}

// Evaluate returns the proposal outcome given the current tally and the
// total eligible-voter count. It returns a decided outcome as soon as no
// sequence of remaining votes could change it.
func (p ThresholdPolicy) Evaluate(tally Tally, eligible int) Outcome {
	if eligible <= 0 {
		return OutcomeUndecided
	}
	remaining := eligible - tally.Cast()
	if remaining < 0 {
		remaining = 0
	}

	switch p {
	case PolicyMajority, PolicySupermajority:
		needed := eligible/2 + 1
		if p == PolicySupermajority {
			needed = (2*eligible + 2) / 3 // ceil(2/3 * eligible)
		}
		if tally.For >= needed {
			return OutcomeApproved
		}
		if tally.For+remaining < needed {
			return OutcomeRejected
		}
		return OutcomeUndecided

	case PolicyUnanimous:
		if tally.Against > 0 {
			return OutcomeRejected
		}
		if remaining == 0 {
			if tally.For > 0 {
				return OutcomeApproved
			}
			return OutcomeRejected // all abstained
		}
		return OutcomeUndecided
	}

	return OutcomeUndecided
}

package domain_test

import (
	"testing"

	"github.com/civpoints/community_points_app/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestPolicyMajority_EarlyApproval(t *testing.T) {
	// 5 eligible voters: 3 FOR fixes the outcome with 2 ballots outstanding.
	tally := domain.Tally{For: 3}
	assert.Equal(t, domain.OutcomeApproved, domain.PolicyMajority.Evaluate(tally, 5))
}

func TestPolicyMajority_EarlyRejection(t *testing.T) {
	// 5 eligible, 3 AGAINST: at most 2 FOR remain, majority of 3 unreachable.
	tally := domain.Tally{Against: 3}
	assert.Equal(t, domain.OutcomeRejected, domain.PolicyMajority.Evaluate(tally, 5))
}

func TestPolicyMajority_AbstainConsumesBallot(t *testing.T) {
	// 5 eligible, 2 FOR + 1 ABSTAIN: 2 voters remain, 3 FOR still reachable.
	tally := domain.Tally{For: 2, Abstain: 1}
	assert.Equal(t, domain.OutcomeUndecided, domain.PolicyMajority.Evaluate(tally, 5))

	// A third abstention makes the majority unreachable.
	tally = domain.Tally{For: 2, Abstain: 2}
	assert.Equal(t, domain.OutcomeUndecided, domain.PolicyMajority.Evaluate(tally, 5))
	tally = domain.Tally{For: 2, Abstain: 3}
	assert.Equal(t, domain.OutcomeRejected, domain.PolicyMajority.Evaluate(tally, 5))
}

func TestPolicySupermajority(t *testing.T) {
	cases := []struct {
		name     string
		tally    domain.Tally
		eligible int
		want     domain.Outcome
	}{
		{"six of nine approves", domain.Tally{For: 6}, 9, domain.OutcomeApproved},
		{"five of nine undecided", domain.Tally{For: 5}, 9, domain.OutcomeUndecided},
		{"four against of nine rejects", domain.Tally{Against: 4}, 9, domain.OutcomeRejected},
		{"two of three approves", domain.Tally{For: 2}, 3, domain.OutcomeApproved},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.PolicySupermajority.Evaluate(tc.tally, tc.eligible))
		})
	}
}

func TestPolicyUnanimous(t *testing.T) {
	// Any AGAINST rejects immediately.
	assert.Equal(t, domain.OutcomeRejected,
		domain.PolicyUnanimous.Evaluate(domain.Tally{For: 4, Against: 1}, 7))

	// Approval waits for every ballot.
	assert.Equal(t, domain.OutcomeUndecided,
		domain.PolicyUnanimous.Evaluate(domain.Tally{For: 6}, 7))
	assert.Equal(t, domain.OutcomeApproved,
		domain.PolicyUnanimous.Evaluate(domain.Tally{For: 6, Abstain: 1}, 7))

	// Everyone abstaining is not approval.
	assert.Equal(t, domain.OutcomeRejected,
		domain.PolicyUnanimous.Evaluate(domain.Tally{Abstain: 7}, 7))
}

func TestEvaluate_NoEligibleVoters(t *testing.T) {
	assert.Equal(t, domain.OutcomeUndecided, domain.PolicyMajority.Evaluate(domain.Tally{}, 0))
}

func TestTallyAdd(t *testing.T) {
	tally := domain.Tally{}
	tally = tally.Add(domain.VoteFor)
	tally = tally.Add(domain.VoteAgainst)
	tally = tally.Add(domain.VoteAbstain)
	assert.Equal(t, domain.Tally{For: 1, Against: 1, Abstain: 1}, tally)
	assert.Equal(t, 3, tally.Cast())
}

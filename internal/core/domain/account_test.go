package domain_test

import (
	"testing"

	"github.com/civpoints/community_points_app/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestCollectiveAccountID_Deterministic(t *testing.T) {
	communityID := "828193112019818"

	// Two independent derivations must agree without coordination.
	first := domain.CollectiveAccountID(domain.BodyCouncil, communityID)
	second := domain.CollectiveAccountID(domain.BodyCouncil, communityID)
	assert.Equal(t, first, second)
	assert.Equal(t, "901"+communityID, first)
}

func TestCollectiveAccountID_DistinctPerBody(t *testing.T) {
	communityID := "42"
	seen := map[string]domain.BodyKind{}
	for _, body := range domain.AllBodies() {
		id := domain.CollectiveAccountID(body, communityID)
		prev, dup := seen[id]
		assert.False(t, dup, "body %s collides with %s", body, prev)
		seen[id] = body
	}
}

func TestDepartmentAccountID(t *testing.T) {
	assert.Equal(t, "951777", domain.DepartmentAccountID(951, "777"))
}

func TestDerivedCollectiveID(t *testing.T) {
	cases := []struct {
		name        string
		accountID   string
		communityID string
		want        bool
	}{
		{"council account", "901c1", "c1", true},
		{"department account", "951777", "777", true},
		{"personal account", "u1", "c1", false},
		{"bare community id", "c1", "c1", false},
		{"non-numeric prefix", "90xc1", "c1", false},
		{"other community suffix", "901c2", "c1", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.DerivedCollectiveID(tc.accountID, tc.communityID))
		})
	}
}

func TestValidBody(t *testing.T) {
	assert.True(t, domain.ValidBody(domain.BodyStateCouncil))
	assert.False(t, domain.ValidBody(domain.BodyKind("SENATE")))
}

package domain

import (
	"strconv"
	"strings"
)

// AccountKind distinguishes personal accounts from derived collective ones.
type AccountKind string

const (
	AccountPersonal   AccountKind = "PERSONAL"
	AccountCollective AccountKind = "COLLECTIVE"
)

// BodyKind identifies one of the three governing bodies of a community.
type BodyKind string

const (
	BodyCouncil         BodyKind = "COUNCIL"
	BodyStateCouncil    BodyKind = "STATE_COUNCIL"
	BodySupremeAssembly BodyKind = "SUPREME_ASSEMBLY"
)

// bodyPrefixes are the fixed high-order numeric prefixes used to derive
// collective account IDs. Any two processes must derive the same ID without
// coordination, so these values are never configurable.
var bodyPrefixes = map[BodyKind]uint32{
	BodyCouncil:         901,
	BodyStateCouncil:    902,
	BodySupremeAssembly: 903,
}

// ValidBody reports whether k names a known governing body.
func ValidBody(k BodyKind) bool {
	_, ok := bodyPrefixes[k]
	return ok
}

// AllBodies lists the governing bodies in a stable order.
func AllBodies() []BodyKind {
	return []BodyKind{BodyCouncil, BodyStateCouncil, BodySupremeAssembly}
}

// CollectiveAccountID derives the synthetic account ID for a governing body
// within a community: the body's fixed numeric prefix concatenated with the
// community identifier. Deterministic across processes.
func CollectiveAccountID(body BodyKind, communityID string) string {
	return strconv.FormatUint(uint64(bodyPrefixes[body]), 10) + communityID
}

// DepartmentAccountID derives the synthetic account ID for a configured
// department using the department's numeric prefix.
func DepartmentAccountID(prefix uint32, communityID string) string {
	return strconv.FormatUint(uint64(prefix), 10) + communityID
}

// DerivedCollectiveID reports whether accountID has the shape of a derived
// collective account for the community: a non-empty numeric prefix
// concatenated with the community identifier. Lazy account creation uses this
// to pick the right kind and balance floor without consulting configuration.
func DerivedCollectiveID(accountID, communityID string) bool {
	if len(accountID) <= len(communityID) || !strings.HasSuffix(accountID, communityID) {
		return false
	}
	prefix := accountID[:len(accountID)-len(communityID)]
	for _, r := range prefix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Department describes a configured sub-department of a community. Loaded
// from configuration with a hard-coded fallback table.
type Department struct {
	Key    string `json:"key" mapstructure:"key"`
	Name   string `json:"name" mapstructure:"name"`
	Prefix uint32 `json:"prefix" mapstructure:"prefix"`
}

// Account represents a balance record scoped to one community. Personal
// accounts may never go negative; collective accounts may be configured to.
type Account struct {
	CommunityID   string      `json:"communityID"`
	AccountID     string      `json:"accountID"`
	Kind          AccountKind `json:"kind"`
	Balance       int64       `json:"balance"`
	AllowNegative bool        `json:"allowNegative"`
	Frozen        bool        `json:"frozen"`
	AuditFields
}

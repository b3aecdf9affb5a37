package auth

import (
	"fmt"
	"sort"
	"strings"
)

// Role is one of the fixed marketplace roles. The set is closed: roles are
// defined in code, not in the database. What the database stores is which
// users hold which roles.
type Role string

const (
	// RoleViewer is the implicit baseline role every authenticated user holds.
	RoleViewer Role = "viewer"

	// RoleAdvertiser can create and manage ad campaigns.
	RoleAdvertiser Role = "advertiser"

	// RolePublisher can create and manage ad spaces.
	RolePublisher Role = "publisher"

	// RoleStakeholder has read access to marketplace-wide reporting.
	RoleStakeholder Role = "stakeholder"

	// RoleAdmin can manage users, role grants, orgs, and sessions.
	RoleAdmin Role = "admin"
)

// roleRank orders roles by privilege. Used to pick a default acting role
// when the user has expressed no preference: the most privileged grant wins.
var roleRank = map[Role]int{
	RoleViewer:      10,
	RolePublisher:   20,
	RoleAdvertiser:  30,
	RoleStakeholder: 40,
	RoleAdmin:       50,
}

// AllRoles returns every defined role, least privileged first.
func AllRoles() []Role {
	return []Role{RoleViewer, RolePublisher, RoleAdvertiser, RoleStakeholder, RoleAdmin}
}

// ValidRole reports whether s names a defined role.
func ValidRole(s string) bool {
	_, ok := roleRank[Role(s)]
	return ok
}

// ParseRole converts a string to a Role, rejecting unknown names. Input is
// matched case-insensitively; the canonical lowercase form is returned.
func ParseRole(s string) (Role, error) {
	lowered := strings.ToLower(s)
	if !ValidRole(lowered) {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return Role(lowered), nil
}

// Rank returns the privilege rank of the role. Unknown roles rank below
// viewer so they can never win a default-role selection.
func (r Role) Rank() int {
	return roleRank[r]
}

// Principal returns the Casbin-ready identifier for the role (e.g. "role:admin").
func (r Role) Principal() string {
	return RoleID(string(r))
}

// HighestRanked returns the most privileged role in the list, or RoleViewer
// when the list is empty. Ties cannot occur since ranks are distinct.
func HighestRanked(roles []Role) Role {
	best := RoleViewer
	for _, r := range roles {
		if r.Rank() > best.Rank() {
			best = r
		}
	}
	return best
}

// SortRoles orders roles most privileged first, for stable API output.
func SortRoles(roles []Role) {
	sort.Slice(roles, func(i, j int) bool {
		return roles[i].Rank() > roles[j].Rank()
	})
}

// ContainsRole reports whether roles includes r.
func ContainsRole(roles []Role, r Role) bool {
	for _, have := range roles {
		if have == r {
			return true
		}
	}
	return false
}

// DedupeRoles removes duplicates, preserving first occurrence order.
func DedupeRoles(roles []Role) []Role {
	seen := make(map[Role]struct{}, len(roles))
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

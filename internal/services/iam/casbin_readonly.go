package iam

import (
	"fmt"
	"log"

	"github.com/casbin/casbin/v2"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
)

// AuthorizeActingRole checks if the acting role grants permission for the requested capability.
//
// This is a READ-ONLY authorization check that never mutates Casbin state. Unlike
// enforcement schemes that try every role a principal holds, exactly one role is
// consulted: the role the request is acting under. A user who holds admin but is
// acting as viewer gets viewer's answer.
//
// The enforcer is queried with the role principal (e.g., "role:advertiser") which is
// defined in the seeded policy. This eliminates the need for dynamic user→role
// grouping policies in Casbin.
//
// Parameters:
//   - enforcer: Casbin enforcer loaded with static role-based policies
//   - role: the acting role for this request
//   - obj: object type (e.g., "campaign", "adspace", "report", "admin")
//   - act: capability being requested (e.g., "campaign:create", "report:view-all")
//   - attrs: resource attributes for scope-expression filtering (status, owner, org kind)
//
// Returns:
//   - bool: true if the acting role grants the capability
//   - error: any error during enforcement (enforcer failure, invalid policy)
//
// Thread safety: performs no state mutation; safe for unlimited concurrent calls.
func AuthorizeActingRole(
	enforcer casbin.IEnforcer,
	role auth.Role,
	obj, act string,
	attrs map[string]interface{},
) (bool, error) {
	if enforcer == nil {
		return false, fmt.Errorf("casbin enforcer not initialized")
	}

	if !auth.ValidRole(string(role)) {
		log.Printf("authorization denied: unknown acting role %q (obj=%s, act=%s)", role, obj, act)
		return false, nil
	}

	// Casbin expects a non-nil attrs map
	if attrs == nil {
		attrs = make(map[string]interface{})
	}

	rolePrincipal := role.Principal()

	// Query Casbin enforcer (READ-ONLY - no grouping policy mutation)
	allowed, err := enforcer.Enforce(rolePrincipal, obj, act, attrs)
	if err != nil {
		return false, fmt.Errorf("casbin enforce error for role %s: %w", rolePrincipal, err)
	}

	if !allowed {
		log.Printf("authorization denied: role %s does not allow %s on %s (attrs=%v)", rolePrincipal, act, obj, attrs)
	}

	return allowed, nil
}

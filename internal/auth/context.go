package auth

import "context"

// AuthenticatedPrincipal captures identity metadata propagated through the request context.
type AuthenticatedPrincipal struct {
	// Subject is the stable subject identifier (unprefixed user ID).
	Subject string
	// PrincipalID is the Casbin-ready identifier (e.g., user:5f3a...).
	PrincipalID string
	// InternalID references the backing users.id row.
	InternalID string
	// Email is the user's email when available.
	Email string
	// Name is optional display name.
	Name string
	// SessionID references the active session row when the request was
	// cookie-authenticated. Empty for bearer tokens and the test identity.
	SessionID string
	// SessionRole is the acting role persisted on the session row, if any.
	// Captured at authentication time so role resolution needs no extra lookup.
	SessionRole Role
	// Roles lists the granted roles resolved during authentication.
	// Always includes RoleViewer.
	Roles []Role
	// TestMode marks the synthetic development identity. Grants for this
	// principal live only in memory, never in the role_grants table.
	TestMode bool
}

// HasRole reports whether the principal was granted r.
func (p AuthenticatedPrincipal) HasRole(r Role) bool {
	return ContainsRole(p.Roles, r)
}

type principalContextKey struct{}

// SetUserContext stores the authenticated principal on the context for downstream consumers.
func SetUserContext(ctx context.Context, principal AuthenticatedPrincipal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// GetUserFromContext retrieves the authenticated principal from the context.
func GetUserFromContext(ctx context.Context) (AuthenticatedPrincipal, bool) {
	principal, ok := ctx.Value(principalContextKey{}).(AuthenticatedPrincipal)
	return principal, ok
}

// ActingRole is the single role a request is operating under, together with
// where it came from. Authorization consults only this role, never the full
// grant set.
type ActingRole struct {
	Role Role
	// Source records which precedence step produced the role:
	// "header", "session", "preference", or "default".
	Source string
}

type actingRoleContextKey struct{}

// SetActingRole stores the resolved acting role on the context.
func SetActingRole(ctx context.Context, acting ActingRole) context.Context {
	return context.WithValue(ctx, actingRoleContextKey{}, acting)
}

// GetActingRole retrieves the resolved acting role from the context.
func GetActingRole(ctx context.Context) (ActingRole, bool) {
	acting, ok := ctx.Value(actingRoleContextKey{}).(ActingRole)
	return acting, ok
}

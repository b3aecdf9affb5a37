package iam

import (
	"context"
	"time"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
)

// Service provides all identity and access management operations.
//
// This service centralizes:
//   - Authentication (request path - performance critical)
//   - Role and acting-role resolution (request path)
//   - Authorization (request path - read-only Casbin)
//   - Session management (login/logout/role switch)
//   - User, grant, and org management (admin operations)
//   - Cache management (out-of-band refresh)
type Service interface {
	// =========================================================================
	// Authentication (Request Path - Performance Critical)
	// =========================================================================

	// AuthenticateRequest tries all registered authenticators in order.
	//
	// Authenticators are tried in priority order:
	//  1. SessionAuthenticator (checks reach.session cookie)
	//  2. JWTAuthenticator (checks Bearer token)
	//  3. TestModeAuthenticator (only when AUTH_TEST_MODE is enabled)
	//
	// Returns:
	//   - (principal, nil): authentication successful
	//   - (nil, nil): no valid credentials found (unauthenticated request)
	//   - (nil, error): authentication failed (invalid credentials)
	AuthenticateRequest(ctx context.Context, req AuthRequest) (*auth.AuthenticatedPrincipal, error)

	// ResolveRoles computes effective roles for a user.
	//
	// This is a read-only computation:
	//   - Explicit grants from role_grants (1 DB query)
	//   - Roles conferred by org membership kind (1 DB query)
	//   - Extra roles from org_role_mappings (lock-free cache read)
	//   - RoleViewer, always
	//
	// orgNames supplements the user's stored memberships with org names carried
	// in token claims (may be nil). The result is deduplicated and sorted by
	// rank, highest first.
	ResolveRoles(ctx context.Context, userID string, orgNames []string) ([]auth.Role, error)

	// =========================================================================
	// Acting Role (Request Path)
	// =========================================================================

	// ResolveActingRole determines the single role this request operates under.
	//
	// Precedence:
	//  1. headerRole (the X-Acting-Role request header), when non-empty
	//  2. the session's persisted active role (captured on the principal)
	//  3. the user's stored role preference
	//  4. the highest-ranked granted role (viewer when nothing else is held)
	//
	// A header naming an unknown role fails with ErrInvalidRole. A header
	// naming a role the principal does not hold fails with ErrRoleNotGranted.
	// Stale session or preference values (roles no longer granted) fall
	// through to the next precedence step instead of failing.
	ResolveActingRole(ctx context.Context, principal *auth.AuthenticatedPrincipal, headerRole string) (auth.ActingRole, error)

	// SwitchRole changes the principal's acting role.
	//
	// Validates the target against the principal's grants, persists it on the
	// session row (when cookie-authenticated) and as the user's preference, so
	// the choice survives both the request and the session.
	SwitchRole(ctx context.Context, principal *auth.AuthenticatedPrincipal, target auth.Role) error

	// =========================================================================
	// Authorization (Request Path - Read-Only)
	// =========================================================================

	// Authorize checks if the acting role grants a capability on an object type.
	//
	// Only the acting role is consulted, never the principal's full grant set.
	// attrs carries resource attributes (status, owner_id, org kind) for
	// scope-expression evaluation. NO Casbin state mutation occurs.
	Authorize(ctx context.Context, actingRole auth.Role, obj, act string, attrs map[string]interface{}) (bool, error)

	// =========================================================================
	// Cache Management (Out-of-Band, Not in Request Path)
	// =========================================================================

	// RefreshOrgRoleCache reloads org→role mappings from the database.
	//
	// Uses atomic.Value.Store() for zero-downtime hot-reload. Called by server
	// startup, a background ticker, the admin refresh endpoint, and after
	// AssignOrgRole/RemoveOrgRole.
	RefreshOrgRoleCache(ctx context.Context) error

	// GetOrgRoleCacheSnapshot returns the current cache snapshot for debugging.
	GetOrgRoleCacheSnapshot() OrgRoleSnapshot

	// =========================================================================
	// Session Management (Login/Logout - Control Plane)
	// =========================================================================

	// Login validates email/password credentials and creates a session.
	//
	// Returns the session record and the unhashed session token (set as the
	// reach.session cookie). The session's initial active role is the user's
	// resolved default. Fails with ErrInvalidCredentials on bad email or
	// password, ErrUserDisabled for disabled accounts.
	Login(ctx context.Context, email, password, userAgent, ipAddress string) (*models.Session, string, error)

	// CreateSession creates a session for an already-authenticated user.
	// The token is hashed (SHA-256) before storage; the unhashed token is
	// returned for the cookie.
	CreateSession(ctx context.Context, info *auth.SessionInfo) (*models.Session, string, error)

	// RevokeSession invalidates a session by ID.
	RevokeSession(ctx context.Context, sessionID string) error

	// RevokeAllSessions invalidates every session belonging to a user.
	RevokeAllSessions(ctx context.Context, userID string) error

	// GetSessionByID retrieves a session by its ID.
	// Returns repository.ErrNotFound if the session doesn't exist.
	GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error)

	// ListUserSessions retrieves all sessions for a specific user.
	ListUserSessions(ctx context.Context, userID string) ([]models.Session, error)

	// IssueToken mints a short-lived API bearer token for a user.
	IssueToken(ctx context.Context, userID string) (*auth.IssuedToken, error)

	// RevokeJTI adds a JWT ID to the revocation denylist.
	// Used for logout and emergency token revocation.
	RevokeJTI(ctx context.Context, jti, subject string, expiresAt time.Time, revokedBy string) error

	// =========================================================================
	// User Management (Admin Operations)
	// =========================================================================

	// CreateUser creates a new user. password may be empty for accounts that
	// only ever authenticate via issued tokens; when set it is bcrypt-hashed.
	CreateUser(ctx context.Context, email, name, password string) (*models.User, error)

	// GetUserByEmail retrieves a user by email address.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by internal ID.
	GetUserByID(ctx context.Context, userID string) (*models.User, error)

	// ListUsers returns all users.
	ListUsers(ctx context.Context) ([]models.User, error)

	// DisableUser disables an account and revokes all of its sessions.
	DisableUser(ctx context.Context, userID string) error

	// =========================================================================
	// Role Grants (Admin Operations)
	// =========================================================================

	// GrantRole grants a role to a user. Idempotent.
	GrantRole(ctx context.Context, userID string, role auth.Role, grantedBy string) error

	// RevokeRole removes a role grant from a user.
	//
	// Sessions currently acting under the revoked role are not force-switched;
	// the stale value falls through to the next precedence step on the next
	// request.
	RevokeRole(ctx context.Context, userID string, role auth.Role) error

	// ListGrantedRoles returns the user's explicit grants (not org-derived roles).
	ListGrantedRoles(ctx context.Context, userID string) ([]auth.Role, error)

	// =========================================================================
	// Role Preferences
	// =========================================================================

	// SetRolePreference stores the user's default acting role.
	SetRolePreference(ctx context.Context, userID string, role auth.Role) error

	// GetRolePreference returns the stored preference, or repository.ErrNotFound.
	GetRolePreference(ctx context.Context, userID string) (*models.RolePreference, error)

	// ClearRolePreference removes the stored preference.
	ClearRolePreference(ctx context.Context, userID string) error

	// =========================================================================
	// Org Management (Admin Operations - Triggers Cache Refresh)
	// =========================================================================

	// CreateOrg creates an advertiser or publisher org.
	CreateOrg(ctx context.Context, name, kind string) (*models.Org, error)

	// GetOrgByName retrieves an org by name.
	GetOrgByName(ctx context.Context, name string) (*models.Org, error)

	// ListOrgs returns all orgs.
	ListOrgs(ctx context.Context) ([]models.Org, error)

	// AddOrgMember adds a user to an org. Members inherit the role matching
	// the org's kind on their next authentication.
	AddOrgMember(ctx context.Context, orgID, userID, addedBy string) error

	// RemoveOrgMember removes a user from an org.
	RemoveOrgMember(ctx context.Context, orgID, userID string) error

	// ListOrgMembers returns all memberships for an org.
	ListOrgMembers(ctx context.Context, orgID string) ([]models.OrgMembership, error)

	// AssignOrgRole attaches an extra role to every member of the named org.
	// Automatically refreshes the org role cache.
	AssignOrgRole(ctx context.Context, orgName string, role auth.Role, assignedBy string) error

	// RemoveOrgRole detaches an extra role from the named org.
	// Automatically refreshes the org role cache.
	RemoveOrgRole(ctx context.Context, orgName string, role auth.Role) error
}

// OrgRoleSnapshot is an immutable snapshot of org→role mappings.
//
// Stored in atomic.Value for lock-free reads. Never modified after creation.
// To update, create a new snapshot and atomically swap the pointer.
type OrgRoleSnapshot struct {
	// Mappings: orgName → []role
	Mappings map[string][]auth.Role

	// CreatedAt is when this snapshot was built.
	CreatedAt time.Time

	// Version is an incrementing counter for debugging.
	Version int
}

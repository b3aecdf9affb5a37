package iam

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/config"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/bunx"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/telemetry"
)

const tracerName = "reachapi/services/iam"

// sessionCacheSize bounds the token-hash→session LRU.
const sessionCacheSize = 1024

// sessionCacheTTL bounds how long a stale session row can be served after an
// out-of-band mutation that the purge helpers could not reach (e.g. a direct
// database edit). In-process mutations purge the entry immediately.
const sessionCacheTTL = 30 * time.Second

// iamService implements the Service interface.
//
// It coordinates between repositories, the immutable org role cache, the
// Casbin enforcer, and the authenticator chain.
type iamService struct {
	// Repositories
	users           repository.UserRepository
	sessions        repository.SessionRepository
	roleGrants      repository.RoleGrantRepository
	rolePreferences repository.RolePreferenceRepository
	orgs            repository.OrgRepository
	orgMemberships  repository.OrgMembershipRepository
	orgRoleMappings repository.OrgRoleMappingRepository
	revokedJTIs     repository.RevokedJTIRepository

	// Immutable org→role cache (lock-free reads)
	orgRoleCache *OrgRoleCache

	// Session lookup cache (token hash → session + user)
	sessionCache *expirable.LRU[string, sessionCacheEntry]

	// Casbin enforcer (read-only for authorization)
	enforcer casbin.IEnforcer

	// Token issuer for API bearer tokens (nil when no JWT secret configured)
	tokenIssuer *auth.TokenIssuer

	cfg *config.Config

	// Authenticators, tried in order
	authenticators []Authenticator
}

// Dependencies contains all dependencies for IAM service construction.
type Dependencies struct {
	Users           repository.UserRepository
	Sessions        repository.SessionRepository
	RoleGrants      repository.RoleGrantRepository
	RolePreferences repository.RolePreferenceRepository
	Orgs            repository.OrgRepository
	OrgMemberships  repository.OrgMembershipRepository
	OrgRoleMappings repository.OrgRoleMappingRepository
	RevokedJTIs     repository.RevokedJTIRepository
	Enforcer        casbin.IEnforcer
}

// NewIAMService creates a new IAM service with all dependencies.
//
// This constructor:
//   - Initializes the OrgRoleCache with an initial load from the database
//   - Returns error if the initial cache load fails (server cannot start)
//   - Initializes the authenticator chain (session, JWT, optional test mode)
func NewIAMService(deps Dependencies, cfg *config.Config) (Service, error) {
	cache, err := NewOrgRoleCache(deps.OrgRoleMappings)
	if err != nil {
		return nil, fmt.Errorf("initialize org role cache: %w", err)
	}

	var tokenIssuer *auth.TokenIssuer
	if cfg.Auth.JWTSecret != "" {
		tokenIssuer, err = auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL)
		if err != nil {
			return nil, fmt.Errorf("initialize token issuer: %w", err)
		}
	}

	svc := &iamService{
		users:           deps.Users,
		sessions:        deps.Sessions,
		roleGrants:      deps.RoleGrants,
		rolePreferences: deps.RolePreferences,
		orgs:            deps.Orgs,
		orgMemberships:  deps.OrgMemberships,
		orgRoleMappings: deps.OrgRoleMappings,
		revokedJTIs:     deps.RevokedJTIs,
		orgRoleCache:    cache,
		sessionCache:    expirable.NewLRU[string, sessionCacheEntry](sessionCacheSize, nil, sessionCacheTTL),
		enforcer:        deps.Enforcer,
		tokenIssuer:     tokenIssuer,
		cfg:             cfg,
	}

	authenticators, err := initializeAuthenticators(cfg, deps, svc)
	if err != nil {
		return nil, fmt.Errorf("initialize authenticators: %w", err)
	}
	svc.authenticators = authenticators

	return svc, nil
}

// initializeAuthenticators creates and registers authenticators.
//
// Order matters:
//  1. SessionAuthenticator (reach.session cookie)
//  2. JWTAuthenticator (Authorization: Bearer, only when a secret is configured)
//  3. TestModeAuthenticator (only when AUTH_TEST_MODE is enabled; always last so
//     real credentials win)
func initializeAuthenticators(cfg *config.Config, deps Dependencies, svc *iamService) ([]Authenticator, error) {
	var authenticators []Authenticator

	sessionAuth := NewSessionAuthenticator(deps.Users, deps.Sessions, svc.sessionCache, svc)
	authenticators = append(authenticators, sessionAuth)

	jwtAuth, err := NewJWTAuthenticator(cfg, deps.Users, deps.RevokedJTIs, svc)
	if err != nil {
		return nil, fmt.Errorf("create JWT authenticator: %w", err)
	}
	if jwtAuth != nil {
		authenticators = append(authenticators, jwtAuth)
	}

	if cfg.Auth.TestMode {
		authenticators = append(authenticators, NewTestModeAuthenticator(deps.Users, cfg.Auth.TestModeEmail))
	}

	return authenticators, nil
}

// =========================================================================
// Authentication (Request Path - Performance Critical)
// =========================================================================

// AuthenticateRequest tries all registered authenticators in order.
//
// Algorithm:
//   - Try each authenticator in sequence
//   - (nil, nil): no credentials, try next
//   - (nil, error): authentication failed, stop and return the error
//   - (principal, nil): success, stop and return the principal
//   - If all authenticators return (nil, nil): return (nil, nil) for an
//     unauthenticated request
func (s *iamService) AuthenticateRequest(ctx context.Context, req AuthRequest) (*auth.AuthenticatedPrincipal, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.AuthenticateRequest",
		attribute.Int("authenticator_count", len(s.authenticators)),
	)
	defer span.End()

	for i, authenticator := range s.authenticators {
		principal, err := authenticator.Authenticate(ctx, req)
		if err != nil {
			telemetry.AddEvent(span, "authentication.failed",
				attribute.Int("authenticator_index", i),
				attribute.String("error", err.Error()),
			)
			telemetry.RecordError(span, err)
			return nil, err
		}
		if principal != nil {
			span.SetAttributes(
				attribute.String(telemetry.AttrPrincipalID, principal.PrincipalID),
				attribute.Int("authenticator_index", i),
				attribute.Bool("test_mode", principal.TestMode),
			)
			return principal, nil
		}
		// principal == nil && err == nil: no credentials for this authenticator, try next
	}

	telemetry.AddEvent(span, "authentication.no_credentials")
	return nil, nil
}

// ResolveRoles computes effective roles for a user.
//
// Sources, in union:
//  1. Explicit grants from role_grants (1 DB query)
//  2. Roles conferred by org membership kind (1 DB query; advertiser orgs
//     confer advertiser, publisher orgs confer publisher)
//  3. Extra roles from org_role_mappings (lock-free cache read, covers both
//     stored memberships and org names passed in from token claims)
//  4. RoleViewer, unconditionally
//
// Rows carrying roles outside the fixed set are skipped. The result is
// deduplicated and sorted by rank, highest first.
func (s *iamService) ResolveRoles(ctx context.Context, userID string, orgNames []string) ([]auth.Role, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.ResolveRoles",
		attribute.String(telemetry.AttrPrincipalID, userID),
		attribute.Int("claim_org_count", len(orgNames)),
	)
	defer span.End()

	roleSet := map[auth.Role]struct{}{
		auth.RoleViewer: {},
	}

	// Step 1: explicit grants
	grants, err := s.roleGrants.GetByUserID(ctx, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("get role grants: %w", err)
	}
	for _, grant := range grants {
		role, err := auth.ParseRole(grant.Role)
		if err != nil {
			continue
		}
		roleSet[role] = struct{}{}
	}

	// Step 2: org memberships (kind-derived roles) and the membership org names
	memberships, err := s.orgMemberships.ListByUser(ctx, userID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("list org memberships: %w", err)
	}

	orgSet := make(map[string]struct{}, len(memberships)+len(orgNames))
	for _, membership := range memberships {
		if membership.Org == nil {
			continue
		}
		orgSet[membership.Org.Name] = struct{}{}
		switch membership.Org.Kind {
		case models.OrgKindAdvertiser:
			roleSet[auth.RoleAdvertiser] = struct{}{}
		case models.OrgKindPublisher:
			roleSet[auth.RolePublisher] = struct{}{}
		}
	}
	for _, name := range orgNames {
		orgSet[name] = struct{}{}
	}

	// Step 3: extra roles via org_role_mappings (lock-free cache read)
	allOrgs := make([]string, 0, len(orgSet))
	for name := range orgSet {
		allOrgs = append(allOrgs, name)
	}
	for _, role := range s.orgRoleCache.RolesForOrgs(allOrgs) {
		roleSet[role] = struct{}{}
	}

	result := make([]auth.Role, 0, len(roleSet))
	for role := range roleSet {
		result = append(result, role)
	}
	auth.SortRoles(result)

	span.SetAttributes(attribute.Int("role_count", len(result)))
	return result, nil
}

// =========================================================================
// Acting Role (Request Path)
// =========================================================================

// ResolveActingRole determines the single role this request operates under.
//
// Precedence: X-Acting-Role header, then the session's persisted active role,
// then the stored preference, then the highest-ranked grant. Only the header
// step is strict: stale session or preference values fall through silently so
// a revoked grant degrades rather than breaking the account.
func (s *iamService) ResolveActingRole(ctx context.Context, principal *auth.AuthenticatedPrincipal, headerRole string) (auth.ActingRole, error) {
	if principal == nil {
		return auth.ActingRole{}, fmt.Errorf("nil principal")
	}

	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.ResolveActingRole",
		attribute.String(telemetry.AttrPrincipalID, principal.PrincipalID),
	)
	defer span.End()

	// Step 1: explicit header override
	if headerRole != "" {
		role, err := auth.ParseRole(headerRole)
		if err != nil {
			telemetry.RecordError(span, err)
			return auth.ActingRole{}, fmt.Errorf("%w: %q", ErrInvalidRole, headerRole)
		}
		if !principal.HasRole(role) {
			telemetry.AddEvent(span, "acting_role.header_not_granted",
				attribute.String(telemetry.AttrActingRole, string(role)),
			)
			return auth.ActingRole{}, fmt.Errorf("%w: %s", ErrRoleNotGranted, role)
		}
		return s.actingRole(span, role, "header"), nil
	}

	// Step 2: session's persisted active role
	if principal.SessionRole != "" && principal.HasRole(principal.SessionRole) {
		return s.actingRole(span, principal.SessionRole, "session"), nil
	}

	// Step 3: stored preference
	pref, err := s.rolePreferences.Get(ctx, principal.InternalID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		telemetry.RecordError(span, err)
		return auth.ActingRole{}, fmt.Errorf("get role preference: %w", err)
	}
	if pref != nil {
		if role, err := auth.ParseRole(pref.PreferredRole); err == nil && principal.HasRole(role) {
			return s.actingRole(span, role, "preference"), nil
		}
	}

	// Step 4: highest-ranked grant (viewer when nothing else is held)
	return s.actingRole(span, auth.HighestRanked(principal.Roles), "default"), nil
}

func (s *iamService) actingRole(span trace.Span, role auth.Role, source string) auth.ActingRole {
	span.SetAttributes(
		attribute.String(telemetry.AttrActingRole, string(role)),
		attribute.String(telemetry.AttrRoleSource, source),
	)
	return auth.ActingRole{Role: role, Source: source}
}

// SwitchRole changes the principal's acting role.
//
// The switch is persisted on the session row (when cookie-authenticated) and
// as the user's preference; both writes share one transaction so the switch
// is never half-applied. The cached session entry is purged after commit so
// the next request sees the new role immediately. Test-mode principals skip
// the preference write: their grants are memory-only and their identity is
// shared. Switching to the role the session already holds is a no-op.
func (s *iamService) SwitchRole(ctx context.Context, principal *auth.AuthenticatedPrincipal, target auth.Role) error {
	if principal == nil {
		return fmt.Errorf("nil principal")
	}

	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.SwitchRole",
		attribute.String(telemetry.AttrPrincipalID, principal.PrincipalID),
		attribute.String(telemetry.AttrActingRole, string(target)),
	)
	defer span.End()

	if !auth.ValidRole(string(target)) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, target)
	}
	if !principal.HasRole(target) {
		telemetry.AddEvent(span, "role_switch.denied")
		return fmt.Errorf("%w: %s", ErrRoleNotGranted, target)
	}

	if principal.SessionID != "" && principal.SessionRole == target {
		telemetry.AddEvent(span, "role_switch.noop")
		return nil
	}

	switch {
	case principal.SessionID != "" && !principal.TestMode:
		if err := s.sessions.SwitchActiveRole(ctx, principal.SessionID, principal.InternalID, string(target)); err != nil {
			telemetry.RecordError(span, err)
			return fmt.Errorf("persist role switch: %w", err)
		}
		s.purgeCachedSession(principal.SessionID)
	case principal.SessionID != "":
		if err := s.sessions.UpdateActiveRole(ctx, principal.SessionID, string(target)); err != nil {
			telemetry.RecordError(span, err)
			return fmt.Errorf("persist active role: %w", err)
		}
		s.purgeCachedSession(principal.SessionID)
	case !principal.TestMode:
		if err := s.rolePreferences.Upsert(ctx, principal.InternalID, string(target)); err != nil {
			telemetry.RecordError(span, err)
			return fmt.Errorf("persist role preference: %w", err)
		}
	}

	telemetry.AddEvent(span, "role_switch.applied",
		attribute.String(telemetry.AttrSessionID, principal.SessionID),
	)
	return nil
}

// =========================================================================
// Authorization (Request Path - Read-Only)
// =========================================================================

// Authorize checks if the acting role grants a capability on an object type.
//
// Delegates to AuthorizeActingRole, which ensures:
//   - Zero lock contention (no global mutex)
//   - Zero Casbin mutation (no grouping policy writes)
//   - Zero database writes
func (s *iamService) Authorize(ctx context.Context, actingRole auth.Role, obj, act string, attrs map[string]interface{}) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.Authorize",
		attribute.String(telemetry.AttrActingRole, string(actingRole)),
		attribute.String(telemetry.AttrAuthzObject, obj),
		attribute.String(telemetry.AttrAuthzAction, act),
	)
	defer span.End()

	allowed, err := AuthorizeActingRole(s.enforcer, actingRole, obj, act, attrs)
	if err != nil {
		telemetry.RecordError(span, err)
		return false, err
	}

	span.SetAttributes(attribute.Bool(telemetry.AttrAuthzAllowed, allowed))
	return allowed, nil
}

// =========================================================================
// Cache Management (Out-of-Band, Not in Request Path)
// =========================================================================

// RefreshOrgRoleCache reloads org→role mappings from the database.
func (s *iamService) RefreshOrgRoleCache(ctx context.Context) error {
	return s.orgRoleCache.Refresh(ctx)
}

// GetOrgRoleCacheSnapshot returns the current cache snapshot for debugging.
//
// Returns a copy (not a pointer) so callers cannot mutate the cache.
func (s *iamService) GetOrgRoleCacheSnapshot() OrgRoleSnapshot {
	snapshot := s.orgRoleCache.Get()
	if snapshot == nil {
		return OrgRoleSnapshot{Mappings: make(map[string][]auth.Role)}
	}
	return *snapshot
}

// =========================================================================
// Session Management (Login/Logout - Control Plane)
// =========================================================================

// Login validates email/password credentials and creates a session.
//
// The failure modes for a missing account and a wrong password are
// indistinguishable to the caller (both ErrInvalidCredentials).
func (s *iamService) Login(ctx context.Context, email, password, userAgent, ipAddress string) (*models.Session, string, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "iam.Login")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		telemetry.RecordError(span, err)
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	if user.Disabled() {
		return nil, "", ErrUserDisabled
	}
	if user.PasswordHash == nil {
		return nil, "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	// The session starts under the user's resolved default role so the first
	// authenticated request already has a stable acting role.
	roles, err := s.ResolveRoles(ctx, user.ID, nil)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, "", fmt.Errorf("resolve roles: %w", err)
	}
	defaultRole := s.defaultRoleFor(ctx, user.ID, roles)

	session, token, err := s.CreateSession(ctx, &auth.SessionInfo{
		UserID:     user.ID,
		ActiveRole: defaultRole,
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, "", err
	}

	_ = s.users.UpdateLastLogin(ctx, user.ID)

	span.SetAttributes(
		attribute.String(telemetry.AttrPrincipalID, auth.UserID(user.ID)),
		attribute.String(telemetry.AttrSessionID, session.ID),
		attribute.String(telemetry.AttrActingRole, string(defaultRole)),
	)
	return session, token, nil
}

// defaultRoleFor returns the stored preference when it is still granted,
// otherwise the highest-ranked granted role.
func (s *iamService) defaultRoleFor(ctx context.Context, userID string, roles []auth.Role) auth.Role {
	pref, err := s.rolePreferences.Get(ctx, userID)
	if err == nil && pref != nil {
		if role, err := auth.ParseRole(pref.PreferredRole); err == nil && auth.ContainsRole(roles, role) {
			return role
		}
	}
	return auth.HighestRanked(roles)
}

// CreateSession creates a session for an already-authenticated user.
//
// Generates a cryptographically secure session token, hashes it with SHA-256,
// and stores the session record. Returns the unhashed token (to be set as the
// reach.session cookie) and the session record.
func (s *iamService) CreateSession(ctx context.Context, info *auth.SessionInfo) (*models.Session, string, error) {
	if err := auth.ValidateSessionInfo(info); err != nil {
		return nil, "", err
	}

	token, tokenHash, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate session token: %w", err)
	}

	now := time.Now()
	session := &models.Session{
		ID:         bunx.NewUUIDv7(),
		UserID:     info.UserID,
		TokenHash:  tokenHash,
		ActiveRole: string(info.ActiveRole),
		ExpiresAt:  auth.CalculateExpiry(now, s.cfg.Auth.SessionTTL),
	}
	if info.UserAgent != "" {
		session.UserAgent = &info.UserAgent
	}
	if info.IPAddress != "" {
		session.IPAddress = &info.IPAddress
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", fmt.Errorf("create session: %w", err)
	}

	return session, token, nil
}

// RevokeSession invalidates a session by ID and purges its cache entry.
func (s *iamService) RevokeSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	s.purgeCachedSession(sessionID)
	return nil
}

// RevokeAllSessions invalidates every session belonging to a user.
func (s *iamService) RevokeAllSessions(ctx context.Context, userID string) error {
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	s.purgeCachedUserSessions(userID)
	return nil
}

// GetSessionByID retrieves a session by its ID.
func (s *iamService) GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// ListUserSessions retrieves all sessions for a specific user.
func (s *iamService) ListUserSessions(ctx context.Context, userID string) ([]models.Session, error) {
	sessions, err := s.sessions.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user sessions: %w", err)
	}
	return sessions, nil
}

// IssueToken mints a short-lived API bearer token for a user.
func (s *iamService) IssueToken(ctx context.Context, userID string) (*auth.IssuedToken, error) {
	if s.tokenIssuer == nil {
		return nil, fmt.Errorf("token issuing disabled: no JWT secret configured")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user.Disabled() {
		return nil, ErrUserDisabled
	}

	issued, err := s.tokenIssuer.Issue(user.ID, user.Email, user.Name)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return issued, nil
}

// RevokeJTI adds a JWT ID to the revocation denylist.
func (s *iamService) RevokeJTI(ctx context.Context, jti, subject string, expiresAt time.Time, revokedBy string) error {
	revoked := &models.RevokedJTI{
		JTI:     jti,
		Subject: subject,
		Exp:     expiresAt,
	}
	if revokedBy != "" {
		revoked.RevokedBy = &revokedBy
	}

	if err := s.revokedJTIs.Create(ctx, revoked); err != nil {
		return fmt.Errorf("revoke jti: %w", err)
	}
	return nil
}

// =========================================================================
// User Management (Admin Operations)
// =========================================================================

// CreateUser creates a new user. password may be empty for accounts that only
// ever authenticate via issued tokens; when set it is bcrypt-hashed.
func (s *iamService) CreateUser(ctx context.Context, email, name, password string) (*models.User, error) {
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}

	user := &models.User{
		ID:    bunx.NewUUIDv7(),
		Email: email,
		Name:  name,
	}

	if password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hashStr := string(hashed)
		user.PasswordHash = &hashStr
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// GetUserByEmail retrieves a user by email address.
func (s *iamService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.users.GetByEmail(ctx, email)
}

// GetUserByID retrieves a user by internal ID.
func (s *iamService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

// ListUsers returns all users.
func (s *iamService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// DisableUser disables an account and revokes all of its sessions, so the
// lockout takes effect immediately instead of at next session expiry.
func (s *iamService) DisableUser(ctx context.Context, userID string) error {
	if err := s.users.Disable(ctx, userID); err != nil {
		return fmt.Errorf("disable user: %w", err)
	}
	if err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke user sessions: %w", err)
	}
	s.purgeCachedUserSessions(userID)
	return nil
}

// =========================================================================
// Role Grants (Admin Operations)
// =========================================================================

// GrantRole grants a role to a user. Duplicate grants are ignored.
func (s *iamService) GrantRole(ctx context.Context, userID string, role auth.Role, grantedBy string) error {
	if !auth.ValidRole(string(role)) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	// Verify the user exists before writing the grant
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if grantedBy == "" {
		grantedBy = auth.SystemUserID
	}

	grant := &models.RoleGrant{
		ID:        bunx.NewUUIDv7(),
		UserID:    userID,
		Role:      string(role),
		GrantedBy: grantedBy,
	}
	if err := s.roleGrants.Create(ctx, grant); err != nil {
		return fmt.Errorf("create role grant: %w", err)
	}
	return nil
}

// RevokeRole removes a role grant from a user.
//
// Sessions currently acting under the revoked role are not force-switched;
// the stale value falls through during acting-role resolution on the next
// request. Cached session entries are left alone for the same reason.
func (s *iamService) RevokeRole(ctx context.Context, userID string, role auth.Role) error {
	if !auth.ValidRole(string(role)) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if err := s.roleGrants.Delete(ctx, userID, string(role)); err != nil {
		return fmt.Errorf("delete role grant: %w", err)
	}
	return nil
}

// ListGrantedRoles returns the user's explicit grants, highest rank first.
func (s *iamService) ListGrantedRoles(ctx context.Context, userID string) ([]auth.Role, error) {
	grants, err := s.roleGrants.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get role grants: %w", err)
	}

	roles := make([]auth.Role, 0, len(grants))
	for _, grant := range grants {
		if role, err := auth.ParseRole(grant.Role); err == nil {
			roles = append(roles, role)
		}
	}
	auth.SortRoles(roles)
	return roles, nil
}

// =========================================================================
// Role Preferences
// =========================================================================

// SetRolePreference stores the user's default acting role.
//
// The role must currently be resolvable for the user; a preference for an
// unheld role would silently fall through on every request.
func (s *iamService) SetRolePreference(ctx context.Context, userID string, role auth.Role) error {
	if !auth.ValidRole(string(role)) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	roles, err := s.ResolveRoles(ctx, userID, nil)
	if err != nil {
		return fmt.Errorf("resolve roles: %w", err)
	}
	if !auth.ContainsRole(roles, role) {
		return fmt.Errorf("%w: %s", ErrRoleNotGranted, role)
	}

	if err := s.rolePreferences.Upsert(ctx, userID, string(role)); err != nil {
		return fmt.Errorf("upsert role preference: %w", err)
	}
	return nil
}

// GetRolePreference returns the stored preference, or repository.ErrNotFound.
func (s *iamService) GetRolePreference(ctx context.Context, userID string) (*models.RolePreference, error) {
	return s.rolePreferences.Get(ctx, userID)
}

// ClearRolePreference removes the stored preference.
func (s *iamService) ClearRolePreference(ctx context.Context, userID string) error {
	if err := s.rolePreferences.Delete(ctx, userID); err != nil {
		return fmt.Errorf("delete role preference: %w", err)
	}
	return nil
}

// =========================================================================
// Org Management (Admin Operations - Triggers Cache Refresh)
// =========================================================================

// CreateOrg creates an advertiser or publisher org.
func (s *iamService) CreateOrg(ctx context.Context, name, kind string) (*models.Org, error) {
	if kind != models.OrgKindAdvertiser && kind != models.OrgKindPublisher {
		return nil, fmt.Errorf("invalid org kind: %q", kind)
	}
	if name == "" {
		return nil, fmt.Errorf("org name is required")
	}

	org := &models.Org{
		ID:   bunx.NewUUIDv7(),
		Name: name,
		Kind: kind,
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("create org: %w", err)
	}
	return org, nil
}

// GetOrgByName retrieves an org by name.
func (s *iamService) GetOrgByName(ctx context.Context, name string) (*models.Org, error) {
	return s.orgs.GetByName(ctx, name)
}

// ListOrgs returns all orgs.
func (s *iamService) ListOrgs(ctx context.Context) ([]models.Org, error) {
	return s.orgs.List(ctx)
}

// AddOrgMember adds a user to an org.
//
// The kind-derived role takes effect on the member's next authentication; no
// cache is involved because membership roles are read per-request.
func (s *iamService) AddOrgMember(ctx context.Context, orgID, userID, addedBy string) error {
	if _, err := s.orgs.GetByID(ctx, orgID); err != nil {
		return fmt.Errorf("get org: %w", err)
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if addedBy == "" {
		addedBy = auth.SystemUserID
	}

	membership := &models.OrgMembership{
		ID:      bunx.NewUUIDv7(),
		OrgID:   orgID,
		UserID:  userID,
		AddedBy: addedBy,
	}
	if err := s.orgMemberships.Add(ctx, membership); err != nil {
		return fmt.Errorf("add org membership: %w", err)
	}
	return nil
}

// RemoveOrgMember removes a user from an org.
func (s *iamService) RemoveOrgMember(ctx context.Context, orgID, userID string) error {
	if err := s.orgMemberships.Remove(ctx, orgID, userID); err != nil {
		return fmt.Errorf("remove org membership: %w", err)
	}
	return nil
}

// ListOrgMembers returns all memberships for an org.
func (s *iamService) ListOrgMembers(ctx context.Context, orgID string) ([]models.OrgMembership, error) {
	return s.orgMemberships.ListByOrg(ctx, orgID)
}

// AssignOrgRole attaches an extra role to every member of the named org.
//
// After persisting, the org role cache is refreshed so the new mapping is
// visible to the authentication flow immediately.
func (s *iamService) AssignOrgRole(ctx context.Context, orgName string, role auth.Role, assignedBy string) error {
	if !auth.ValidRole(string(role)) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if _, err := s.orgs.GetByName(ctx, orgName); err != nil {
		return fmt.Errorf("get org: %w", err)
	}

	if assignedBy == "" {
		assignedBy = auth.SystemUserID
	}

	mapping := &models.OrgRoleMapping{
		ID:         bunx.NewUUIDv7(),
		OrgName:    orgName,
		Role:       string(role),
		AssignedBy: assignedBy,
	}
	if err := s.orgRoleMappings.Create(ctx, mapping); err != nil {
		return fmt.Errorf("create org role mapping: %w", err)
	}

	if err := s.RefreshOrgRoleCache(ctx); err != nil {
		// The mapping is persisted; the background ticker will pick it up
		return fmt.Errorf("refresh org role cache: %w", err)
	}
	return nil
}

// RemoveOrgRole detaches an extra role from the named org.
func (s *iamService) RemoveOrgRole(ctx context.Context, orgName string, role auth.Role) error {
	if err := s.orgRoleMappings.Delete(ctx, orgName, string(role)); err != nil {
		return fmt.Errorf("delete org role mapping: %w", err)
	}
	if err := s.RefreshOrgRoleCache(ctx); err != nil {
		return fmt.Errorf("refresh org role cache: %w", err)
	}
	return nil
}

// =========================================================================
// Helper Functions
// =========================================================================

// purgeCachedSession drops the cached entry for a session ID.
//
// The cache is keyed by token hash, so this scans the (small, bounded) key
// set. Out-of-band mutations only; never on the request path.
func (s *iamService) purgeCachedSession(sessionID string) {
	for _, key := range s.sessionCache.Keys() {
		if entry, ok := s.sessionCache.Peek(key); ok && entry.session.ID == sessionID {
			s.sessionCache.Remove(key)
			return
		}
	}
}

// purgeCachedUserSessions drops every cached entry belonging to a user.
func (s *iamService) purgeCachedUserSessions(userID string) {
	for _, key := range s.sessionCache.Keys() {
		if entry, ok := s.sessionCache.Peek(key); ok && entry.session.UserID == userID {
			s.sessionCache.Remove(key)
		}
	}
}

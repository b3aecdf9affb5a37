package iam

import (
	"context"
	"fmt"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
)

// sessionCacheEntry pairs a session row with its backing user so a cache hit
// costs zero database queries.
type sessionCacheEntry struct {
	session *models.Session
	user    *models.User
}

// SessionAuthenticator authenticates requests using session cookies.
//
// Flow:
//  1. Extract the "reach.session" cookie
//  2. Return (nil, nil) if not present
//  3. Hash the cookie value (SHA-256)
//  4. Look up the session (expirable LRU cache in front of the database)
//  5. Validate: not revoked, not expired, user not disabled
//  6. Resolve roles (grants ∪ org-derived ∪ viewer)
//  7. Construct a principal carrying the session's persisted active role
//
// Mutations that invalidate cached entries (role switch, revocation) purge
// them through the owning service, so validation never trusts a stale row
// past the cache TTL.
type SessionAuthenticator struct {
	users      repository.UserRepository
	sessions   repository.SessionRepository
	cache      *expirable.LRU[string, sessionCacheEntry]
	iamService Service // Reference to parent IAM service for ResolveRoles
}

// NewSessionAuthenticator creates a new session authenticator.
func NewSessionAuthenticator(
	users repository.UserRepository,
	sessions repository.SessionRepository,
	cache *expirable.LRU[string, sessionCacheEntry],
	iamService Service,
) *SessionAuthenticator {
	return &SessionAuthenticator{
		users:      users,
		sessions:   sessions,
		cache:      cache,
		iamService: iamService,
	}
}

// Authenticate extracts and validates session cookies.
//
// Returns:
//   - (nil, nil) if no session cookie present (no credentials for this authenticator)
//   - (nil, error) if authentication fails (invalid session, expired, revoked, etc.)
//   - (*auth.AuthenticatedPrincipal, nil) if authentication succeeds
func (a *SessionAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*auth.AuthenticatedPrincipal, error) {
	var sessionCookie string
	for _, cookie := range req.Cookies {
		if cookie.Name == auth.SessionCookieName {
			sessionCookie = cookie.Value
			break
		}
	}

	if sessionCookie == "" {
		// No credentials for this authenticator, try next
		return nil, nil
	}

	tokenHash := auth.HashSessionToken(sessionCookie)

	entry, err := a.lookup(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	session, user := entry.session, entry.user

	if err := auth.ValidateSessionToken(session.ExpiresAt, session.Revoked, user.Disabled()); err != nil {
		a.cache.Remove(tokenHash)
		return nil, fmt.Errorf("session invalid: %w", err)
	}

	// Resolve roles; org-derived roles come from stored memberships
	roles, err := a.iamService.ResolveRoles(ctx, user.ID, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}

	// The session's persisted active role rides along on the principal so
	// acting-role resolution needs no extra lookup. An empty or stale value
	// is handled during resolution, not here.
	var sessionRole auth.Role
	if session.ActiveRole != "" {
		if parsed, err := auth.ParseRole(session.ActiveRole); err == nil {
			sessionRole = parsed
		}
	}

	subject := user.PrincipalSubject()
	principal := &auth.AuthenticatedPrincipal{
		Subject:     subject,
		PrincipalID: auth.UserID(subject),
		InternalID:  user.ID,
		Email:       user.Email,
		Name:        user.Name,
		SessionID:   session.ID,
		SessionRole: sessionRole,
		Roles:       roles,
		TestMode:    user.IsTest,
	}

	// Update session last used timestamp (non-blocking)
	go func() {
		// Background context to avoid request cancellation
		_ = a.sessions.UpdateLastUsed(context.Background(), session.ID)
	}()

	return principal, nil
}

// lookup fetches the session and its user, consulting the cache first.
func (a *SessionAuthenticator) lookup(ctx context.Context, tokenHash string) (sessionCacheEntry, error) {
	if entry, ok := a.cache.Get(tokenHash); ok {
		return entry, nil
	}

	session, err := a.sessions.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		return sessionCacheEntry{}, fmt.Errorf("session not found: %w", err)
	}

	user, err := a.users.GetByID(ctx, session.UserID)
	if err != nil {
		return sessionCacheEntry{}, fmt.Errorf("session user not found: %w", err)
	}

	entry := sessionCacheEntry{session: session, user: user}
	a.cache.Add(tokenHash, entry)
	return entry, nil
}

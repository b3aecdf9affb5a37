package iam

import (
	"context"
	"fmt"
	"strings"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/config"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
)

// JWTAuthenticator authenticates requests using bearer tokens minted by this
// service (see auth.TokenIssuer).
//
// Flow:
//  1. Extract "Authorization: Bearer <token>" header
//  2. Return (nil, nil) if not present
//  3. Verify signature, issuer, expiry (HS256)
//  4. Check the jti against the revocation denylist
//  5. Look up the user by the sub claim
//  6. Extract org names from the configured claim, merge with stored memberships
//  7. Resolve roles and construct a principal
//
// Bearer-authenticated requests carry no session, so acting-role resolution
// for them skips straight from the header to the stored preference.
//
// This authenticator is stateless and thread-safe.
type JWTAuthenticator struct {
	cfg         *config.Config
	issuer      *auth.TokenIssuer
	users       repository.UserRepository
	revokedJTIs repository.RevokedJTIRepository
	iamService  Service // Reference to parent IAM service for ResolveRoles
}

// NewJWTAuthenticator creates a new JWT authenticator.
//
// Returns (nil, nil) when no JWT secret is configured; the caller skips
// registering the authenticator in that case.
func NewJWTAuthenticator(
	cfg *config.Config,
	users repository.UserRepository,
	revokedJTIs repository.RevokedJTIRepository,
	iamService Service,
) (*JWTAuthenticator, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, nil
	}

	issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.JWTTTL)
	if err != nil {
		return nil, fmt.Errorf("initialize token issuer: %w", err)
	}

	return &JWTAuthenticator{
		cfg:         cfg,
		issuer:      issuer,
		users:       users,
		revokedJTIs: revokedJTIs,
		iamService:  iamService,
	}, nil
}

// Authenticate extracts and validates bearer tokens.
//
// Returns:
//   - (nil, nil) if no Authorization header present (no credentials for this authenticator)
//   - (nil, error) if authentication fails (invalid token, revoked JTI, etc.)
//   - (*auth.AuthenticatedPrincipal, nil) if authentication succeeds
func (a *JWTAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*auth.AuthenticatedPrincipal, error) {
	authHeader := req.Headers.Get("Authorization")
	if authHeader == "" {
		// No credentials for this authenticator, try next
		return nil, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, fmt.Errorf("malformed authorization header")
	}
	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		return nil, fmt.Errorf("empty bearer token")
	}

	claims, err := a.issuer.Verify(tokenString)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil, fmt.Errorf("token missing jti claim")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("token missing sub claim")
	}

	// Denylist check
	isRevoked, err := a.revokedJTIs.IsRevoked(ctx, jti)
	if err != nil {
		return nil, fmt.Errorf("check revocation status: %w", err)
	}
	if isRevoked {
		return nil, fmt.Errorf("token has been revoked")
	}

	user, err := a.users.GetByID(ctx, sub)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if user.Disabled() {
		return nil, fmt.Errorf("user is disabled")
	}

	// Org names carried in the token supplement stored memberships during
	// role resolution (extra roles via org_role_mappings only).
	orgs := a.extractOrgs(claims)

	roles, err := a.iamService.ResolveRoles(ctx, user.ID, orgs)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}

	subject := user.PrincipalSubject()
	principal := &auth.AuthenticatedPrincipal{
		Subject:     subject,
		PrincipalID: auth.UserID(subject),
		InternalID:  user.ID,
		Email:       user.Email,
		Name:        user.Name,
		SessionID:   "", // No session for bearer auth
		Roles:       roles,
		TestMode:    user.IsTest,
	}

	return principal, nil
}

// extractOrgs extracts org names from token claims using the configured claim field.
func (a *JWTAuthenticator) extractOrgs(claims map[string]interface{}) []string {
	claimField := a.cfg.Auth.OrgsClaimField
	if claimField == "" {
		claimField = "orgs"
	}

	orgs, err := auth.ExtractOrgs(claims, claimField, a.cfg.Auth.OrgsClaimPath)
	if err != nil {
		// Extraction failure is not fatal; the token may simply carry no orgs
		return []string{}
	}

	return orgs
}

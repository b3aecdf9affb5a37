package iam

import (
	"context"
	"net/http"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
)

// Authenticator validates credentials and returns a principal with resolved roles.
//
// Implementations:
//   - SessionAuthenticator: validates the reach.session cookie
//   - JWTAuthenticator: validates Bearer tokens
//   - TestModeAuthenticator: config-gated synthetic identity for development
//
// Return values:
//   - (principal, nil): authentication successful
//   - (nil, nil): credentials not present (not an error, try next authenticator)
//   - (nil, error): authentication failed (invalid credentials)
//
// The authenticator is responsible for:
//  1. Extracting credentials from the request
//  2. Validating credentials (signature, expiry, revocation)
//  3. Resolving identity and checking the account is not disabled
//  4. Computing effective roles (grants ∪ org-derived roles ∪ viewer)
//  5. Constructing an immutable principal
type Authenticator interface {
	// Authenticate validates credentials and returns a principal with resolved roles.
	Authenticate(ctx context.Context, req AuthRequest) (*auth.AuthenticatedPrincipal, error)
}

// AuthRequest wraps HTTP request data for authenticator implementations.
type AuthRequest struct {
	// Headers contains HTTP headers (including Authorization).
	Headers http.Header

	// Cookies contains parsed cookies.
	Cookies []*http.Cookie
}

// AuthRequestFromHTTP builds an AuthRequest from an incoming HTTP request.
func AuthRequestFromHTTP(r *http.Request) AuthRequest {
	return AuthRequest{
		Headers: r.Header,
		Cookies: r.Cookies(),
	}
}
